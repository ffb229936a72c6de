package models

import (
	"strings"
	"time"
)

// Topic is one knowledge-base file. FileName keeps the extension so that
// "Widget.txt" and "Widget.md" stay distinct topics.
type Topic struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// Source records which workflow produced a history entry.
type Source string

const (
	SourceShare  Source = "share"
	SourceCreate Source = "create"
)

// ParseSource maps unknown or empty values to SourceCreate.
func ParseSource(s string) Source {
	switch Source(s) {
	case SourceShare:
		return SourceShare
	default:
		return SourceCreate
	}
}

type PostHistoryEntry struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsDarkMode bool      `json:"is_dark_mode"`
	Source     Source    `json:"source"`
	ExtraInfo  string    `json:"extra_info,omitempty"`
}

// Platform is the target social network profile.
type Platform string

const (
	PlatformX        Platform = "x"
	PlatformLinkedIn Platform = "linkedin"
)

// ParsePlatform accepts "linkedin" in any case; everything else is X.
func ParsePlatform(s string) Platform {
	if strings.EqualFold(strings.TrimSpace(s), string(PlatformLinkedIn)) {
		return PlatformLinkedIn
	}
	return PlatformX
}

// Capability identifies which model call an endpoint/model/key override applies to.
type Capability string

const (
	CapabilityGlobal         Capability = "global"
	CapabilityVision         Capability = "vision"
	CapabilityAnalysis       Capability = "analysis"
	CapabilityResponse       Capability = "response"
	CapabilityPostGeneration Capability = "post_generation"
)

// Capabilities lists every capability that can carry its own override.
var Capabilities = []Capability{
	CapabilityVision,
	CapabilityAnalysis,
	CapabilityResponse,
	CapabilityPostGeneration,
}

// ParseCapability validates a capability name, including "global".
func ParseCapability(s string) (Capability, bool) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if c == CapabilityGlobal {
		return c, true
	}
	for _, known := range Capabilities {
		if c == known {
			return c, true
		}
	}
	return "", false
}
