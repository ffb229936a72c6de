package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

func (s *Server) uploadLimit() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

// readImage accepts either a multipart form with an "image" part or the raw
// image as the request body.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	image, err := s.readImage(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "Image too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Could not read image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(image) == 0 {
		jsonError(w, "image is required", http.StatusBadRequest)
		return
	}

	res, err := s.deps.Pipeline.Share(r.Context(), s.deps.Mode.Snapshot(), image)
	if err != nil {
		writeError(w, "share", err)
		return
	}
	jsonResponse(w, res)
}

func (s *Server) handleShareRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Pipeline.RefreshSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "refresh", err)
		return
	}
	jsonResponse(w, res)
}

func (s *Server) handleShareToggle(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Pipeline.ToggleSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "toggle", err)
		return
	}
	jsonResponse(w, res)
}

type createPostRequest struct {
	Topic        string `json:"topic"`
	Instructions string `json:"instructions"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		jsonError(w, "topic is required", http.StatusBadRequest)
		return
	}

	out, err := s.deps.Pipeline.CreatePost(r.Context(), s.deps.Mode.Snapshot(), strings.TrimSpace(req.Topic), req.Instructions)
	if err != nil {
		writeError(w, "create post", err)
		return
	}
	jsonStatus(w, http.StatusCreated, out)
}
