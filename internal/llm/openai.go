package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentmvp/agent-gateway/pkg/logging"
)

var llmTracer = otel.Tracer("agentgw.internal.llm")

const defaultRequestTimeout = 30 * time.Second

// chatClient is the slice of the OpenAI SDK we use, substitutable in tests.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig describes how to reach the completion API.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int32
	Temperature float32
	Timeout     time.Duration
	Logger      *logging.Logger
}

// OpenAIClient performs exactly one upstream call per Complete. Retry lives
// in RetryingClient so single calls stay deterministic for unit testing.
type OpenAIClient struct {
	client      chatClient
	model       string
	maxTokens   int32
	temperature float32
	timeout     time.Duration
	logger      *logging.Logger
}

// NewOpenAIClient validates the configuration and returns a ready-to-use client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return newOpenAIClient(openai.NewClientWithConfig(clientCfg), cfg), nil
}

func newOpenAIClient(client chatClient, cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClient{
		client:      client,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Complete sends one completion request and classifies any failure before
// returning. Raw SDK errors never escape this package.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	ctx, span := llmTracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req),
		MaxTokens:   int(maxTokens),
		Temperature: temperature,
	})
	if err != nil {
		span.RecordError(err)
		return Response{}, classifyUpstreamError(err)
	}
	if len(resp.Choices) == 0 {
		err := NewError(KindMalformedResponse, "upstream returned no completion choices", nil)
		span.RecordError(err)
		return Response{}, err
	}
	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		err := NewError(KindMalformedResponse, "upstream returned an empty completion", nil)
		span.RecordError(err)
		return Response{}, err
	}

	c.logger.Debug("completion succeeded",
		"model", model,
		"finish_reason", string(choice.FinishReason),
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
	)

	return Response{
		Text: text,
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
		FinishReason: string(choice.FinishReason),
	}, nil
}

// toOpenAIMessages renders system segments ahead of the conversation in the
// order supplied. No reordering or deduplication.
func toOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, system := range req.System {
		if strings.TrimSpace(system) == "" {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range req.Messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return out
}

// classifyUpstreamError maps SDK/transport failures onto the failure
// taxonomy. Caller cancellation passes through so no retry is attempted.
func classifyUpstreamError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTransient, "upstream request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTransient, "upstream request timed out", err)
	}
	return NewError(KindTransient, "upstream request failed", err)
}

func classifyStatus(status int, cause error) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(KindAuthFailure, "upstream rejected the configured credential", cause)
	case status == http.StatusTooManyRequests:
		return NewError(KindRateLimited, "upstream rate limit exceeded", cause)
	case status >= 400 && status < 500:
		return NewError(KindInvalidRequest, "upstream rejected the completion request", cause)
	default:
		return NewError(KindTransient, "upstream request failed", cause)
	}
}
