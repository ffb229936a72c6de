package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/thinkscotty/postmuse/internal/keystore"
	"github.com/thinkscotty/postmuse/internal/models"
)

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	keys, err := s.deps.Keys.Configured()
	if err != nil {
		writeError(w, "load key status", err)
		return
	}
	jsonResponse(w, map[string]any{
		"preferences": s.deps.Prefs.Snapshot(),
		"keys":        keys,
		"mode":        s.deps.Mode.State(),
	})
}

type overrideUpdate struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

// settingsUpdate applies only the fields that are present.
type settingsUpdate struct {
	DarkMode        *bool                     `json:"dark_mode"`
	Platform        *string                   `json:"platform"`
	UseGlobalAPIKey *bool                     `json:"use_global_api_key"`
	Overrides       map[string]overrideUpdate `json:"overrides"`
}

func (u settingsUpdate) validate() error {
	if u.Platform != nil {
		if _, err := parsePlatformStrict(*u.Platform); err != nil {
			return err
		}
	}
	for name := range u.Overrides {
		if _, ok := models.ParseCapability(name); !ok {
			return fmt.Errorf("unknown capability %q", name)
		}
	}
	return nil
}

func parsePlatformStrict(s string) (models.Platform, error) {
	switch models.Platform(strings.ToLower(strings.TrimSpace(s))) {
	case models.PlatformX:
		return models.PlatformX, nil
	case models.PlatformLinkedIn:
		return models.PlatformLinkedIn, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := s.deps.Prefs
	if req.DarkMode != nil {
		if err := p.SetDarkMode(*req.DarkMode); err != nil {
			writeError(w, "save dark mode", err)
			return
		}
	}
	if req.Platform != nil {
		platform, _ := parsePlatformStrict(*req.Platform)
		if err := p.SetPlatform(platform); err != nil {
			writeError(w, "save platform", err)
			return
		}
	}
	if req.UseGlobalAPIKey != nil {
		if err := p.SetUseGlobalAPIKey(*req.UseGlobalAPIKey); err != nil {
			writeError(w, "save key fallback", err)
			return
		}
	}
	for name, o := range req.Overrides {
		c, _ := models.ParseCapability(name)
		if err := p.SetOverride(c, o.Endpoint, o.Model); err != nil {
			writeError(w, "save override", err)
			return
		}
	}

	slog.Info("Settings updated", "overrides", len(req.Overrides))
	jsonResponse(w, map[string]any{"preferences": p.Snapshot()})
}

func (s *Server) handleKeysList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.deps.Keys.Configured()
	if err != nil {
		writeError(w, "load key status", err)
		return
	}
	jsonResponse(w, map[string]any{"keys": keys})
}

type setKeyRequest struct {
	Key string `json:"key"`
}

// handleKeySet stores a capability's API key. An empty key removes it. The
// key itself is never echoed back.
func (s *Server) handleKeySet(w http.ResponseWriter, r *http.Request) {
	c, ok := models.ParseCapability(r.PathValue("capability"))
	if !ok {
		jsonError(w, "Unknown capability", http.StatusNotFound)
		return
	}
	var req setKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.deps.Keys.Set(keystore.KeyName(c), req.Key); err != nil {
		writeError(w, "store key", err)
		return
	}
	configured := strings.TrimSpace(req.Key) != ""
	slog.Info("API key updated", "capability", c, "configured", configured)
	jsonResponse(w, map[string]any{"capability": c, "configured": configured})
}

func (s *Server) handleModeGet(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.deps.Mode.State())
}

func (s *Server) handleModeToggle(w http.ResponseWriter, r *http.Request) {
	s.deps.Mode.ToggleTemporaryMode()
	jsonResponse(w, s.deps.Mode.State())
}

type modeOverride struct {
	Dark bool `json:"dark"`
}

func (s *Server) handleModeOverride(w http.ResponseWriter, r *http.Request) {
	var req modeOverride
	if !decodeJSON(w, r, &req) {
		return
	}
	s.deps.Mode.SetTemporaryMode(req.Dark)
	jsonResponse(w, s.deps.Mode.State())
}

func (s *Server) handleModeClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Mode.ClearTemporaryMode()
	jsonResponse(w, s.deps.Mode.State())
}

func (s *Server) handlePlatformToggle(w http.ResponseWriter, r *http.Request) {
	s.deps.Mode.ToggleTemporaryPlatform()
	jsonResponse(w, s.deps.Mode.State())
}

type platformOverride struct {
	Platform string `json:"platform"`
}

func (s *Server) handlePlatformOverride(w http.ResponseWriter, r *http.Request) {
	var req platformOverride
	if !decodeJSON(w, r, &req) {
		return
	}
	platform, err := parsePlatformStrict(req.Platform)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.deps.Mode.SetTemporaryPlatform(platform)
	jsonResponse(w, s.deps.Mode.State())
}

func (s *Server) handlePlatformClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Mode.ClearTemporaryPlatform()
	jsonResponse(w, s.deps.Mode.State())
}
