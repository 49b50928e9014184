package annotation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

const systemPrompt = "You analyze charity campaign descriptions. Respond with JSON only " +
	"(no markdown, no code fences): {\"tags\": [\"tag1\", \"tag2\", \"tag3\"], " +
	"\"summary\": \"a one-sentence summary of the campaign\"}."

// ChatConfig configures the chat-completions annotation provider
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatProvider annotates descriptions through an OpenAI-compatible
// chat-completions API. Any failure yields the documented fallback result.
type ChatProvider struct {
	config  ChatConfig
	client  *http.Client
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewChatProvider creates a new ChatProvider
func NewChatProvider(cfg ChatConfig, logger *observability.Logger, metrics *observability.Metrics) *ChatProvider {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}
	return &ChatProvider{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.WithField("component", "annotation"),
		metrics: metrics,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Annotate derives tags and a summary for the description. It never returns
// an error: call failures and malformed replies produce Fallback(description).
func (p *ChatProvider) Annotate(ctx context.Context, description string) Result {
	content, err := p.complete(ctx, description)
	if err != nil {
		p.logger.WithError(err).Warn("annotation call failed, using fallback")
		return p.fallback(description)
	}

	result, ok := ParseResult(content)
	if !ok {
		p.logger.WithField("reply", content).Warn("malformed annotation reply, using fallback")
		return p.fallback(description)
	}

	if p.metrics != nil {
		p.metrics.AnnotationRequestsTotal.WithLabelValues("ok").Inc()
	}
	return result
}

func (p *ChatProvider) fallback(description string) Result {
	if p.metrics != nil {
		p.metrics.AnnotationRequestsTotal.WithLabelValues("fallback").Inc()
		p.metrics.AnnotationFallbacks.Inc()
	}
	return Fallback(description)
}

func (p *ChatProvider) complete(ctx context.Context, description string) (string, error) {
	reqBody := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: description},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errStatus(resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", errEmptyReply
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ParseResult unwraps code fences from a model reply and validates its
// structure: a tags array (possibly empty) and a summary string are both
// required. The boolean reports whether the reply was usable.
func ParseResult(reply string) (Result, bool) {
	content := StripFences(reply)

	// Pointer fields distinguish a missing or null field from an empty one;
	// both missing and null are rejected.
	var envelope struct {
		Tags    *[]string `json:"tags"`
		Summary *string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return Result{}, false
	}
	if envelope.Tags == nil || envelope.Summary == nil {
		return Result{}, false
	}

	result := Result{Tags: *envelope.Tags, Summary: *envelope.Summary}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return result, true
}
