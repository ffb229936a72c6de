package ai

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/thinkscotty/postmuse/internal/redact"
)

// loggingTransport logs chat-completion bodies. Every body passes through
// redact.JSON first; request headers are never logged.
type loggingTransport struct {
	base http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	debug := slog.Default().Enabled(req.Context(), slog.LevelDebug)

	if debug && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			raw, _ := io.ReadAll(body)
			body.Close()
			slog.Debug("LLM request", "url", req.URL.Redacted(), "body", redact.JSON(raw))
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("LLM API error", "status", resp.StatusCode, "url", req.URL.Redacted(), "body", redact.JSON(raw))
	} else if debug {
		slog.Debug("LLM response", "status", resp.StatusCode, "body", redact.JSON(raw))
	}
	return resp, nil
}
