// Package history keeps the capped, newest-first log of generated content.
// The whole list lives as one JSON array under a single settings key and is
// rewritten on every change.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	Key        = "post_history"
	MaxEntries = 100

	// TimestampLayout keeps millisecond precision and a numeric zone offset.
	TimestampLayout = "2006-01-02T15:04:05.000-0700"
)

type Store interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

type History struct {
	store Store
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

type Option func(*History)

// WithClock overrides the time source used by SaveNew.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// WithIDs overrides the id generator used by SaveNew.
func WithIDs(newID func() string) Option {
	return func(h *History) { h.newID = newID }
}

func New(store Store, opts ...Option) *History {
	h := &History{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// List returns the entries newest first. Unparseable data yields an empty list.
func (h *History) List() ([]models.PostHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Save prepends entry and drops the oldest entries beyond MaxEntries.
func (h *History) Save(entry models.PostHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load()
	if err != nil {
		return err
	}
	entries = append([]models.PostHistoryEntry{entry}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return h.persist(entries)
}

// SaveNew builds an entry with a fresh id and the current time, then saves it.
func (h *History) SaveNew(content string, dark bool, source models.Source, extraInfo string) (models.PostHistoryEntry, error) {
	entry := models.PostHistoryEntry{
		ID:         h.newID(),
		Content:    content,
		Timestamp:  h.now(),
		IsDarkMode: dark,
		Source:     source,
		ExtraInfo:  extraInfo,
	}
	if err := h.Save(entry); err != nil {
		return models.PostHistoryEntry{}, err
	}
	return entry, nil
}

// Delete removes the entry with id and reports whether it existed.
func (h *History) Delete(id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load()
	if err != nil {
		return false, err
	}
	for i, e := range entries {
		if e.ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return true, h.persist(entries)
		}
	}
	return false, nil
}

// Clear removes the backing key entirely.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.DeleteSetting(Key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (h *History) load() ([]models.PostHistoryEntry, error) {
	raw, err := h.store.GetSetting(Key)
	if errors.Is(err, database.ErrNotFound) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return Decode([]byte(raw)), nil
}

func (h *History) persist(entries []models.PostHistoryEntry) error {
	data, err := Encode(entries)
	if err != nil {
		return err
	}
	if err := h.store.SetSetting(Key, string(data)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
