// Package pipeline runs the reply-opportunity workflow: text extraction from a
// screenshot, a shuffled per-topic judgement scan, and reply drafting. It also
// generates standalone promotional posts for a single topic.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/thinkscotty/postmuse/internal/ai"
	"github.com/thinkscotty/postmuse/internal/metrics"
	"github.com/thinkscotty/postmuse/internal/mode"
	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	visionMaxTokens    = 500
	judgeMaxTokens     = 512
	replyMaxTokens     = 150
	postMaxTokens      = 300
	defaultTemperature = 0.7

	NoTextExtracted = "Image processed, but no text content extracted."
	NoReply         = "Could not generate a response."
)

var (
	// ErrNetwork marks a failed extraction call. Nothing after extraction runs.
	ErrNetwork = errors.New("network error")
	// ErrNoContent is returned when a rescan has no extracted text to work on.
	ErrNoContent = errors.New("no extracted text")
	// ErrEmptyResponse is returned when post generation yields no choices.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Chatter is the subset of ai.Client the pipeline needs.
type Chatter interface {
	Chat(ctx context.Context, capability models.Capability, req ai.ChatRequest) (*ai.ChatResponse, error)
	CheckConfigured(caps ...models.Capability) error
}

type TopicSource interface {
	List() ([]models.Topic, error)
	Get(name string) (models.Topic, error)
}

type HistoryRecorder interface {
	SaveNew(content string, dark bool, source models.Source, extraInfo string) (models.PostHistoryEntry, error)
}

// Shuffler reorders topics in place before a scan.
type Shuffler func(topics []models.Topic)

// Observer receives stage transitions. detail is the topic name while
// scanning and empty otherwise.
type Observer func(stage Stage, detail string)

type Stage string

const (
	StageIdle            Stage = "idle"
	StageExtracting      Stage = "extracting"
	StageScanningTopics  Stage = "scanning_topics"
	StageGeneratingReply Stage = "generating_reply"
	StageNoOpportunity   Stage = "no_opportunity"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

type Outcome string

const (
	OutcomeReply         Outcome = "reply"
	OutcomeNoOpportunity Outcome = "no_opportunity"
	OutcomeNoTopics      Outcome = "no_topics"
)

type Result struct {
	SessionID     string       `json:"session_id,omitempty"`
	Outcome       Outcome      `json:"outcome"`
	ExtractedText string       `json:"extracted_text"`
	Topic         string       `json:"topic,omitempty"`
	TopicFile     string       `json:"topic_file,omitempty"`
	Idea          string       `json:"idea,omitempty"`
	Reply         string       `json:"reply,omitempty"`
	Mode          mode.Context `json:"mode"`
	JudgeCalls    int          `json:"judge_calls"`
	HistoryID     string       `json:"history_id,omitempty"`
}

type PostResult struct {
	Topic     string       `json:"topic"`
	Post      string       `json:"post"`
	Mode      mode.Context `json:"mode"`
	HistoryID string       `json:"history_id,omitempty"`
}

type Pipeline struct {
	llm      Chatter
	topics   TopicSource
	history  HistoryRecorder
	shuffle  Shuffler
	observe  Observer
	sessions *Sessions
}

type Option func(*Pipeline)

func WithShuffler(s Shuffler) Option {
	return func(p *Pipeline) { p.shuffle = s }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observe = o }
}

// WithSessions replaces the default session cache.
func WithSessions(s *Sessions) Option {
	return func(p *Pipeline) { p.sessions = s }
}

// New builds a pipeline. history may be nil, in which case nothing is recorded.
func New(llm Chatter, topics TopicSource, history HistoryRecorder, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:     llm,
		topics:  topics,
		history: history,
		shuffle: func(t []models.Topic) {
			rand.Shuffle(len(t), func(i, j int) { t[i], t[j] = t[j], t[i] })
		},
		observe: func(Stage, string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sessions == nil {
		p.sessions = NewSessions(DefaultSessionLimit)
	}
	return p
}

func (p *Pipeline) Sessions() *Sessions { return p.sessions }

// Analyze runs the full workflow on a screenshot.
func (p *Pipeline) Analyze(ctx context.Context, mc mode.Context, image []byte) (*Result, error) {
	if err := p.llm.CheckConfigured(models.CapabilityVision, models.CapabilityAnalysis); err != nil {
		metrics.PipelineRuns.WithLabelValues("config_error").Inc()
		return nil, err
	}

	p.observe(StageExtracting, "")
	text, err := p.extract(ctx, image)
	if err != nil {
		p.observe(StageFailed, "")
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: extract text: %w", ErrNetwork, err)
	}
	slog.Info("Extracted post text", "chars", len(text))

	return p.scanAndReply(ctx, mc, text)
}

// Refresh reruns the scan and reply stages on text extracted earlier.
func (p *Pipeline) Refresh(ctx context.Context, mc mode.Context, extractedText string) (*Result, error) {
	if strings.TrimSpace(extractedText) == "" {
		return nil, ErrNoContent
	}
	if err := p.llm.CheckConfigured(models.CapabilityAnalysis); err != nil {
		metrics.PipelineRuns.WithLabelValues("config_error").Inc()
		return nil, err
	}
	return p.scanAndReply(ctx, mc, extractedText)
}

func (p *Pipeline) extract(ctx context.Context, image []byte) (string, error) {
	resp, err := p.llm.Chat(ctx, models.CapabilityVision, ai.ChatRequest{
		Messages: []ai.Message{{
			Role:    "user",
			Content: ai.VisionInstruction,
			Images:  [][]byte{image},
		}},
		MaxTokens: visionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp.NoChoices {
		return NoTextExtracted, nil
	}
	return resp.Content, nil
}

func (p *Pipeline) scanAndReply(ctx context.Context, mc mode.Context, text string) (*Result, error) {
	res := &Result{ExtractedText: text, Mode: mc}

	p.observe(StageScanningTopics, "")
	topics, err := p.topics.List()
	if err != nil {
		p.observe(StageFailed, "")
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("list topics: %w", err)
	}
	if len(topics) == 0 {
		res.Outcome = OutcomeNoTopics
		p.finishWithout(res)
		return res, nil
	}

	p.shuffle(topics)

	var (
		winner models.Topic
		idea   string
	)
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			p.observe(StageFailed, "")
			metrics.PipelineRuns.WithLabelValues("failed").Inc()
			return nil, err
		}
		p.observe(StageScanningTopics, topic.Name)
		res.JudgeCalls++

		j, err := p.judge(ctx, mc, text, topic)
		if err != nil {
			metrics.JudgeCalls.WithLabelValues("error").Inc()
			slog.Warn("Judge call failed, skipping topic", "topic", topic.FileName, "error", err)
			continue
		}
		if !j.Usable() {
			metrics.JudgeCalls.WithLabelValues("no").Inc()
			slog.Debug("No opportunity for topic", "topic", topic.FileName)
			continue
		}
		metrics.JudgeCalls.WithLabelValues("yes").Inc()
		winner, idea = topic, j.Idea
		break
	}

	if winner.FileName == "" {
		res.Outcome = OutcomeNoOpportunity
		p.finishWithout(res)
		return res, nil
	}

	p.observe(StageGeneratingReply, winner.Name)
	res.Outcome = OutcomeReply
	res.Topic = winner.Name
	res.TopicFile = winner.FileName
	res.Idea = idea
	res.Reply = p.DraftReply(ctx, mc, text, winner, idea)

	if entry, ok := p.record(res.Reply, mc, models.SourceShare, map[string]string{
		"platform": string(mc.Platform),
	}); ok {
		res.HistoryID = entry.ID
	}

	metrics.PipelineRuns.WithLabelValues(string(OutcomeReply)).Inc()
	p.observe(StageDone, "")
	slog.Info("Found reply opportunity", "topic", winner.FileName, "judge_calls", res.JudgeCalls,
		"mode", mc.AppName(), "platform", mc.Platform)
	return res, nil
}

func (p *Pipeline) finishWithout(res *Result) {
	metrics.PipelineRuns.WithLabelValues(string(res.Outcome)).Inc()
	p.observe(StageNoOpportunity, "")
	p.observe(StageDone, "")
	slog.Info("No reply opportunity", "outcome", res.Outcome, "judge_calls", res.JudgeCalls)
}

func (p *Pipeline) judge(ctx context.Context, mc mode.Context, text string, topic models.Topic) (ai.Judgement, error) {
	resp, err := p.llm.Chat(ctx, models.CapabilityAnalysis, ai.ChatRequest{
		Messages: []ai.Message{
			ai.System(ai.AnalysisSystemPrompt(mc)),
			ai.User(ai.BuildAnalysisPrompt(mc, text, topic)),
		},
		MaxTokens:   judgeMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return ai.Judgement{}, err
	}
	if resp.NoChoices {
		return ai.Judgement{}, nil
	}
	return ai.ParseJudgeResponse(resp.Content), nil
}

// DraftReply returns idea when the judge supplied one. Otherwise it asks the
// response model for a reply, degrading to a fixed message on failure.
func (p *Pipeline) DraftReply(ctx context.Context, mc mode.Context, text string, topic models.Topic, idea string) string {
	if idea != "" {
		return idea
	}

	resp, err := p.llm.Chat(ctx, models.CapabilityResponse, ai.ChatRequest{
		Messages: []ai.Message{
			ai.System(ai.ResponseSystemPrompt(mc)),
			ai.User(ai.BuildResponsePrompt(text, topic, idea)),
		},
		MaxTokens:   replyMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		slog.Warn("Reply generation failed, using fallback", "topic", topic.FileName, "error", err)
		return fmt.Sprintf("Based on the topic \"%s\", you could respond to this post. "+
			"(Note: Response generation failed; please try again.)", topic.Name)
	}
	if resp.NoChoices {
		return NoReply
	}
	return strings.TrimSpace(resp.Content)
}

// CreatePost writes a promotional post about one topic.
func (p *Pipeline) CreatePost(ctx context.Context, mc mode.Context, topicName, specialInstructions string) (*PostResult, error) {
	if err := p.llm.CheckConfigured(models.CapabilityPostGeneration); err != nil {
		return nil, err
	}

	topic, err := p.topics.Get(topicName)
	if err != nil {
		return nil, err
	}

	resp, err := p.llm.Chat(ctx, models.CapabilityPostGeneration, ai.ChatRequest{
		Messages: []ai.Message{
			ai.System(ai.PostGenerationSystemPrompt(mc)),
			ai.User(ai.BuildPostPrompt(mc, topic, specialInstructions)),
		},
		MaxTokens:   postMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate post: %w", ErrNetwork, err)
	}
	if resp.NoChoices {
		return nil, ErrEmptyResponse
	}

	out := &PostResult{
		Topic: topic.Name,
		Post:  ai.ExtractTweet(resp.Content),
		Mode:  mc,
	}
	metrics.PostsGenerated.Inc()

	if entry, ok := p.record(out.Post, mc, models.SourceCreate, map[string]string{
		"platform": string(mc.Platform),
		"topic":    topic.Name,
	}); ok {
		out.HistoryID = entry.ID
	}
	slog.Info("Generated post", "topic", topic.FileName, "chars", len(out.Post), "mode", mc.AppName())
	return out, nil
}

// record saves content to history. Failures are logged, never returned.
func (p *Pipeline) record(content string, mc mode.Context, source models.Source, extra map[string]string) (models.PostHistoryEntry, bool) {
	if p.history == nil {
		return models.PostHistoryEntry{}, false
	}
	info, err := json.Marshal(extra)
	if err != nil {
		slog.Error("Failed to encode history extra info", "error", err)
		info = nil
	}
	entry, err := p.history.SaveNew(content, mc.Dark, source, string(info))
	if err != nil {
		slog.Error("Failed to save history entry", "source", source, "error", err)
		return models.PostHistoryEntry{}, false
	}
	return entry, true
}
