package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/metrics"
	"github.com/thinkscotty/postmuse/internal/models"
	"github.com/thinkscotty/postmuse/internal/redact"
)

const chatCompletionsSuffix = "/chat/completions"

// Client sends chat completions to whichever OpenAI-compatible endpoint is
// configured for a capability. Endpoint, model and key are resolved per call
// so settings changes apply without a restart.
type Client struct {
	settings   SettingsResolver
	keys       KeyResolver
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(settings SettingsResolver, keys KeyResolver, cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		settings: settings,
		keys:     keys,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &loggingTransport{base: http.DefaultTransport},
		},
		limiter: limiter,
	}
}

// CheckConfigured verifies every capability has a resolvable key.
func (c *Client) CheckConfigured(caps ...models.Capability) error {
	for _, capability := range caps {
		if _, err := c.apiKey(capability); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) apiKey(capability models.Capability) (string, error) {
	key, err := c.keys.APIKey(capability, c.settings.UseGlobalAPIKey())
	if err != nil {
		return "", fmt.Errorf("resolve %s key: %w", capability, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w for %s", ErrMissingAPIKey, capability)
	}
	return key, nil
}

// BaseURL converts a configured chat-completions URL into the base URL the
// OpenAI client appends its own paths to.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return strings.TrimSuffix(endpoint, chatCompletionsSuffix)
}

func (c *Client) Chat(ctx context.Context, capability models.Capability, req ChatRequest) (*ChatResponse, error) {
	key, err := c.apiKey(capability)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	model := c.settings.Model(capability)
	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = BaseURL(c.settings.Endpoint(capability))
	clientCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = convertMessage(m)
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	metrics.LLMLatency.WithLabelValues(string(capability)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequests.WithLabelValues(string(capability), "error").Inc()
		slog.Error("Chat completion failed", "capability", capability, "model", model,
			"status", StatusCode(err), "error", redact.String(err.Error()))
		return nil, fmt.Errorf("%s chat completion: %w", capability, err)
	}

	out := &ChatResponse{
		TokensUsed: resp.Usage.TotalTokens,
		Model:      resp.Model,
	}
	if out.Model == "" {
		out.Model = model
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequests.WithLabelValues(string(capability), "empty").Inc()
		out.NoChoices = true
		return out, nil
	}

	metrics.LLMRequests.WithLabelValues(string(capability), "ok").Inc()
	out.Content = resp.Choices[0].Message.Content
	return out, nil
}

// StatusCode extracts the HTTP status from a chat error, or 0 for transport failures.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func convertMessage(m Message) openai.ChatCompletionMessage {
	if len(m.Images) == 0 {
		return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: m.Content,
	}}
	for _, img := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: dataURL(img),
			},
		})
	}
	return openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts}
}

// dataURL inlines image bytes. Unrecognised formats are labelled JPEG.
func dataURL(img []byte) string {
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img))
}
