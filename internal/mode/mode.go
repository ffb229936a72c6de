// Package mode resolves which persona and platform profile apply to a run.
// Each selector has a persisted preference and a process-lifetime temporary
// override that supersedes it until cleared.
package mode

import (
	"sync"

	"github.com/thinkscotty/postmuse/internal/models"
)

// PreferenceReader supplies the persisted values. prefs.Prefs implements it.
type PreferenceReader interface {
	DarkMode() bool
	Platform() models.Platform
}

type override[T any] struct {
	value  T
	active bool
}

type Resolver struct {
	prefs PreferenceReader

	mu       sync.Mutex
	mode     override[bool]
	platform override[models.Platform]
}

func NewResolver(prefs PreferenceReader) *Resolver {
	return &Resolver{prefs: prefs}
}

// EffectiveMode reports whether the dark persona applies right now.
func (r *Resolver) EffectiveMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effectiveModeLocked()
}

func (r *Resolver) effectiveModeLocked() bool {
	if r.mode.active {
		return r.mode.value
	}
	return r.prefs.DarkMode()
}

func (r *Resolver) SetTemporaryMode(dark bool) {
	r.mu.Lock()
	r.mode = override[bool]{value: dark, active: true}
	r.mu.Unlock()
}

// ClearTemporaryMode is a no-op when no override is active.
func (r *Resolver) ClearTemporaryMode() {
	r.mu.Lock()
	r.mode = override[bool]{}
	r.mu.Unlock()
}

// ToggleTemporaryMode overrides with the negation of whatever is effective
// now, so two toggles in a row always restore the original value.
func (r *Resolver) ToggleTemporaryMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := !r.effectiveModeLocked()
	r.mode = override[bool]{value: next, active: true}
	return next
}

func (r *Resolver) IsUsingTemporaryMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode.active
}

func (r *Resolver) EffectivePlatform() models.Platform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effectivePlatformLocked()
}

func (r *Resolver) effectivePlatformLocked() models.Platform {
	if r.platform.active {
		return r.platform.value
	}
	return r.prefs.Platform()
}

func (r *Resolver) SetTemporaryPlatform(p models.Platform) {
	r.mu.Lock()
	r.platform = override[models.Platform]{value: models.ParsePlatform(string(p)), active: true}
	r.mu.Unlock()
}

func (r *Resolver) ClearTemporaryPlatform() {
	r.mu.Lock()
	r.platform = override[models.Platform]{}
	r.mu.Unlock()
}

func (r *Resolver) ToggleTemporaryPlatform() models.Platform {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := otherPlatform(r.effectivePlatformLocked())
	r.platform = override[models.Platform]{value: next, active: true}
	return next
}

func (r *Resolver) IsUsingTemporaryPlatform() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.platform.active
}

// Snapshot captures the effective mode and platform as one consistent value.
func (r *Resolver) Snapshot() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Context{Dark: r.effectiveModeLocked(), Platform: r.effectivePlatformLocked()}
}

// State is the full resolver view reported by the API.
type State struct {
	Context
	TemporaryMode     bool `json:"temporary_mode"`
	TemporaryPlatform bool `json:"temporary_platform"`
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Context:           Context{Dark: r.effectiveModeLocked(), Platform: r.effectivePlatformLocked()},
		TemporaryMode:     r.mode.active,
		TemporaryPlatform: r.platform.active,
	}
}

func otherPlatform(p models.Platform) models.Platform {
	if p == models.PlatformLinkedIn {
		return models.PlatformX
	}
	return models.PlatformLinkedIn
}
