package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/thinkscotty/postmuse/internal/knowledge"
	"github.com/thinkscotty/postmuse/internal/models"
)

type topicSummary struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Bytes    int    `json:"bytes"`
}

func (s *Server) handleTopicList(w http.ResponseWriter, r *http.Request) {
	topics, err := s.deps.Topics.List()
	if err != nil {
		writeError(w, "list topics", err)
		return
	}

	result := make([]topicSummary, 0, len(topics))
	for _, t := range topics {
		result = append(result, topicSummary{Name: t.Name, FileName: t.FileName, Bytes: len(t.Content)})
	}
	jsonResponse(w, map[string]any{"topics": result})
}

// lookupTopic accepts either an exact file name or a bare topic name.
func (s *Server) lookupTopic(file string) (models.Topic, error) {
	if knowledge.IsTopicFile(file) {
		return s.deps.Topics.Read(file)
	}
	return s.deps.Topics.Get(file)
}

func (s *Server) handleTopicGet(w http.ResponseWriter, r *http.Request) {
	topic, err := s.lookupTopic(r.PathValue("file"))
	if err != nil {
		writeError(w, "get topic", err)
		return
	}
	jsonResponse(w, topic)
}

type createTopicRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

func (s *Server) handleTopicCreate(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	topic, err := s.deps.Topics.Create(req.Name, req.Extension)
	if err != nil {
		writeError(w, "create topic", err)
		return
	}
	jsonStatus(w, http.StatusCreated, topic)
}

type saveTopicRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleTopicSave(w http.ResponseWriter, r *http.Request) {
	var req saveTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	topic, err := s.lookupTopic(r.PathValue("file"))
	if err != nil {
		writeError(w, "save topic", err)
		return
	}
	topic, err = s.deps.Topics.Save(topic.FileName, req.Content)
	if err != nil {
		writeError(w, "save topic", err)
		return
	}
	jsonResponse(w, topic)
}

func (s *Server) handleTopicDelete(w http.ResponseWriter, r *http.Request) {
	topic, err := s.lookupTopic(r.PathValue("file"))
	if err != nil {
		writeError(w, "delete topic", err)
		return
	}
	if err := s.deps.Topics.Delete(topic.FileName); err != nil {
		writeError(w, "delete topic", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTopicDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Topics.DeleteAll()
	if err != nil {
		writeError(w, "delete topics", err)
		return
	}
	jsonResponse(w, map[string]int{"deleted": n})
}

// handleTopicImport takes a multipart "file" part. Query flags: overwrite,
// force_text, and extension for names without a topic extension.
func (s *Server) handleTopicImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, knowledge.MaxImportBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "file part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	q := r.URL.Query()
	overwrite, _ := strconv.ParseBool(q.Get("overwrite"))
	forceText, _ := strconv.ParseBool(q.Get("force_text"))

	topic, err := s.deps.Topics.Import(header.Filename, header.Header.Get("Content-Type"), file, knowledge.ImportOptions{
		Overwrite: overwrite,
		ForceText: forceText,
		Extension: q.Get("extension"),
	})
	if err != nil {
		writeError(w, "import topic", err)
		return
	}
	jsonStatus(w, http.StatusCreated, topicSummary{Name: topic.Name, FileName: topic.FileName, Bytes: len(topic.Content)})
}
