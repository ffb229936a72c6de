// Package prefs exposes typed accessors over the plaintext settings table.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	KeyDarkMode        = "dark_mode"
	KeyPlatform        = "social_media_platform"
	KeyUseGlobalAPIKey = "use_global_api_key"
)

// Store is the subset of the database used for preferences.
type Store interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

type Prefs struct {
	store    Store
	defaults config.LLMConfig
}

func New(store Store, defaults config.LLMConfig) *Prefs {
	return &Prefs{store: store, defaults: defaults}
}

// EndpointKey returns the setting name holding a capability's endpoint URL.
func EndpointKey(c models.Capability) string { return string(c) + "_api_url" }

// ModelKey returns the setting name holding a capability's model name.
func ModelKey(c models.Capability) string { return string(c) + "_model" }

func (p *Prefs) get(key string) string {
	v, err := p.store.GetSetting(key)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		slog.Warn("Failed to read setting", "key", key, "error", err)
	}
	return v
}

func (p *Prefs) getBool(key string, def bool) bool {
	v := p.get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (p *Prefs) DarkMode() bool { return p.getBool(KeyDarkMode, false) }

func (p *Prefs) SetDarkMode(dark bool) error {
	return p.store.SetSetting(KeyDarkMode, strconv.FormatBool(dark))
}

func (p *Prefs) Platform() models.Platform { return models.ParsePlatform(p.get(KeyPlatform)) }

func (p *Prefs) SetPlatform(pl models.Platform) error {
	return p.store.SetSetting(KeyPlatform, string(models.ParsePlatform(string(pl))))
}

func (p *Prefs) UseGlobalAPIKey() bool { return p.getBool(KeyUseGlobalAPIKey, true) }

func (p *Prefs) SetUseGlobalAPIKey(v bool) error {
	return p.store.SetSetting(KeyUseGlobalAPIKey, strconv.FormatBool(v))
}

// Endpoint resolves the chat-completion URL for a capability. An empty
// override inherits the global setting, which inherits the config default.
func (p *Prefs) Endpoint(c models.Capability) string {
	if c != models.CapabilityGlobal {
		if v := strings.TrimSpace(p.get(EndpointKey(c))); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(p.get(EndpointKey(models.CapabilityGlobal))); v != "" {
		return v
	}
	return p.defaults.Endpoint
}

// Model resolves the model name for a capability with the same fallback as Endpoint.
func (p *Prefs) Model(c models.Capability) string {
	if c != models.CapabilityGlobal {
		if v := strings.TrimSpace(p.get(ModelKey(c))); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(p.get(ModelKey(models.CapabilityGlobal))); v != "" {
		return v
	}
	return p.defaults.Model
}

// SetOverride stores endpoint and model overrides for a capability. Empty
// values remove the override so the capability inherits global again.
func (p *Prefs) SetOverride(c models.Capability, endpoint, model string) error {
	if err := p.setOrDelete(EndpointKey(c), endpoint); err != nil {
		return err
	}
	return p.setOrDelete(ModelKey(c), model)
}

func (p *Prefs) setOrDelete(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if err := p.store.DeleteSetting(key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
		return nil
	}
	if err := p.store.SetSetting(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// CapabilitySettings is the resolved endpoint/model pair plus whether it is overridden.
type CapabilitySettings struct {
	Endpoint   string `json:"endpoint"`
	Model      string `json:"model"`
	Overridden bool   `json:"overridden"`
}

// Snapshot is the settings view returned by the API and the CLI.
type Snapshot struct {
	DarkMode        bool                                     `json:"dark_mode"`
	Platform        models.Platform                          `json:"platform"`
	UseGlobalAPIKey bool                                     `json:"use_global_api_key"`
	Capabilities    map[models.Capability]CapabilitySettings `json:"capabilities"`
}

func (p *Prefs) Snapshot() Snapshot {
	s := Snapshot{
		DarkMode:        p.DarkMode(),
		Platform:        p.Platform(),
		UseGlobalAPIKey: p.UseGlobalAPIKey(),
		Capabilities:    make(map[models.Capability]CapabilitySettings, len(models.Capabilities)+1),
	}
	s.Capabilities[models.CapabilityGlobal] = CapabilitySettings{
		Endpoint:   p.Endpoint(models.CapabilityGlobal),
		Model:      p.Model(models.CapabilityGlobal),
		Overridden: p.get(EndpointKey(models.CapabilityGlobal)) != "" || p.get(ModelKey(models.CapabilityGlobal)) != "",
	}
	for _, c := range models.Capabilities {
		s.Capabilities[c] = CapabilitySettings{
			Endpoint:   p.Endpoint(c),
			Model:      p.Model(c),
			Overridden: p.get(EndpointKey(c)) != "" || p.get(ModelKey(c)) != "",
		}
	}
	return s
}
