package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thinkscotty/postmuse/internal/metrics"
	"github.com/thinkscotty/postmuse/internal/mode"
)

// DefaultSessionLimit caps how many analyses stay available for refresh.
const DefaultSessionLimit = 50

var ErrSessionNotFound = errors.New("session not found")

// Session holds the extracted text of one analysis so it can be rescanned
// without another vision call.
type Session struct {
	ID            string       `json:"id"`
	ExtractedText string       `json:"extracted_text"`
	Mode          mode.Context `json:"mode"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Sessions is a bounded cache; the oldest session is evicted first.
type Sessions struct {
	mu    sync.Mutex
	limit int
	items map[string]*Session
	order []string
}

func NewSessions(limit int) *Sessions {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	return &Sessions{limit: limit, items: make(map[string]*Session)}
}

func (s *Sessions) Put(text string, mc mode.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:            uuid.NewString(),
		ExtractedText: text,
		Mode:          mc,
		CreatedAt:     time.Now(),
	}
	s.items[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	for len(s.order) > s.limit {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	metrics.ActiveSessions.Set(float64(len(s.items)))
	return *sess
}

func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

func (s *Sessions) setMode(id string, mc mode.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if ok {
		sess.Mode = mc
	}
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Share analyzes a screenshot and caches its extracted text under a new session.
func (p *Pipeline) Share(ctx context.Context, mc mode.Context, image []byte) (*Result, error) {
	res, err := p.Analyze(ctx, mc, image)
	if err != nil {
		return nil, err
	}
	res.SessionID = p.sessions.Put(res.ExtractedText, mc).ID
	return res, nil
}

// RefreshSession rescans a cached analysis in the mode it was last run with.
func (p *Pipeline) RefreshSession(ctx context.Context, id string) (*Result, error) {
	sess, ok := p.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	res, err := p.Refresh(ctx, sess.Mode, sess.ExtractedText)
	if err != nil {
		return nil, err
	}
	res.SessionID = id
	return res, nil
}

// ToggleSession flips the session's persona and rescans from the topic scan.
func (p *Pipeline) ToggleSession(ctx context.Context, id string) (*Result, error) {
	sess, ok := p.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	flipped := sess.Mode.Flipped()
	p.sessions.setMode(id, flipped)

	res, err := p.Refresh(ctx, flipped, sess.ExtractedText)
	if err != nil {
		return nil, err
	}
	res.SessionID = id
	return res, nil
}
