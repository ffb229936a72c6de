package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/thinkscotty/postmuse/internal/models"
)

// wireEntry is the persisted form of an entry.
type wireEntry struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	IsDarkMode bool   `json:"is_dark_mode"`
	Source     string `json:"source"`
	ExtraInfo  string `json:"extra_info,omitempty"`
}

// Encode serialises entries in their persisted form.
func Encode(entries []models.PostHistoryEntry) ([]byte, error) {
	wire := make([]wireEntry, len(entries))
	for i, e := range entries {
		wire[i] = wireEntry{
			ID:         e.ID,
			Content:    e.Content,
			Timestamp:  e.Timestamp.Format(TimestampLayout),
			IsDarkMode: e.IsDarkMode,
			Source:     string(e.Source),
			ExtraInfo:  e.ExtraInfo,
		}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

// Decode parses the persisted form. Entries that fail to parse are logged and
// skipped; a malformed array yields nil. Unknown sources decode as create.
func Decode(data []byte) []models.PostHistoryEntry {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("Failed to parse post history, treating as empty", "error", err)
		return nil
	}

	entries := make([]models.PostHistoryEntry, 0, len(raw))
	for i, r := range raw {
		var w wireEntry
		if err := json.Unmarshal(r, &w); err != nil {
			slog.Warn("Skipping malformed history entry", "index", i, "error", err)
			continue
		}
		ts, err := time.Parse(TimestampLayout, w.Timestamp)
		if err != nil {
			slog.Warn("Skipping history entry with bad timestamp", "index", i, "id", w.ID, "error", err)
			continue
		}
		entries = append(entries, models.PostHistoryEntry{
			ID:         w.ID,
			Content:    w.Content,
			Timestamp:  ts,
			IsDarkMode: w.IsDarkMode,
			Source:     models.ParseSource(w.Source),
			ExtraInfo:  w.ExtraInfo,
		})
	}
	return entries
}
