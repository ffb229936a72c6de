// Package redact masks credentials in bodies and messages before they are logged.
package redact

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	Mask       = "********"
	BearerMask = "Bearer " + Mask
	Hidden     = "[content hidden]"

	// Inline data URLs longer than this are shortened.
	maxDataURL = 64
)

var sensitiveFields = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"bearer":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
}

var (
	bearerRe = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=+/]+`)
	skKeyRe  = regexp.MustCompile(`\bsk-[a-zA-Z0-9_\-]{8,}`)
	apiKeyRe = regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|refresh[_-]?token)(["']?\s*[:=]\s*["']?)[^\s"',&]+`)
)

// JSON returns body re-encoded with secret-bearing fields masked. Field names
// match case-insensitively at any depth; "authorization" values and any string
// starting with "Bearer " become "Bearer ********". Bodies that are not JSON
// are not echoed at all.
func JSON(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Hidden
	}
	out, err := json.Marshal(walk("", v))
	if err != nil {
		return Hidden
	}
	return string(out)
}

func walk(key string, v any) any {
	lower := strings.ToLower(key)
	switch t := v.(type) {
	case map[string]any:
		if lower == "authorization" {
			return BearerMask
		}
		for k, child := range t {
			t[k] = walk(k, child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = walk(key, child)
		}
		return t
	case string:
		switch {
		case lower == "authorization" || strings.HasPrefix(t, "Bearer "):
			return BearerMask
		case sensitiveFields[lower]:
			return Mask
		case strings.HasPrefix(t, "data:") && len(t) > maxDataURL:
			return fmt.Sprintf("%s...(%d bytes)", t[:32], len(t))
		}
		return t
	default:
		if sensitiveFields[lower] || lower == "authorization" {
			return Mask
		}
		return v
	}
}

// String masks bearer tokens and key-looking substrings in free text such as
// error messages.
func String(s string) string {
	s = bearerRe.ReplaceAllString(s, BearerMask)
	s = apiKeyRe.ReplaceAllString(s, "${1}${2}"+Mask)
	return skKeyRe.ReplaceAllString(s, Mask)
}
