package server

import (
	"net/http"

	"github.com/thinkscotty/postmuse/internal/models"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.History.List()
	if err != nil {
		writeError(w, "list history", err)
		return
	}
	if entries == nil {
		entries = []models.PostHistoryEntry{}
	}
	jsonResponse(w, map[string]any{"entries": entries})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	found, err := s.deps.History.Delete(r.PathValue("id"))
	if err != nil {
		writeError(w, "delete history entry", err)
		return
	}
	if !found {
		jsonError(w, "History entry not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Clear(); err != nil {
		writeError(w, "clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
