// Package agent validates inbound requests, shapes them for the LLM gateway
// client, and normalizes results for the HTTP boundary.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentmvp/agent-gateway/internal/llm"
	"github.com/agentmvp/agent-gateway/internal/observability/metrics"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

const defaultSystemPrompt = "You are a helpful, concise assistant. Answer the user's message directly. If you do not know something, say so instead of guessing."

var agentTracer = otel.Tracer("agentgw.internal.agent")

// ContextEntry is one caller-supplied key/value pair biasing the prompt.
// Entries keep their insertion order all the way into the rendered preamble.
type ContextEntry struct {
	Key   string
	Value string
}

type ProcessRequest struct {
	Message string
	Context []ContextEntry
}

type ProcessResponse struct {
	Message   string
	Timestamp time.Time
}

type Service interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)
}

// ServiceConfig parameterizes a GatewayService.
type ServiceConfig struct {
	Model            string
	SystemPrompt     string
	MaxMessageLength int
	MaxTokens        int32
	Temperature      float32
	Logger           *logging.Logger
	Metrics          *metrics.GatewayMetrics
}

// GatewayService holds no per-request state; concurrent calls are independent.
type GatewayService struct {
	client       llm.Client
	model        string
	systemPrompt string
	maxLength    int
	maxTokens    int32
	temperature  float32
	logger       *logging.Logger
	metrics      *metrics.GatewayMetrics
}

func NewService(client llm.Client, cfg ServiceConfig) *GatewayService {
	if client == nil {
		panic("agent: llm client cannot be nil")
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &GatewayService{
		client:       client,
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		maxLength:    cfg.MaxMessageLength,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		logger:       logger,
		metrics:      cfg.Metrics,
	}
}

// Process validates the message, renders the optional context ahead of it,
// and delegates to the gateway client. Validation failures never reach the
// upstream API.
func (s *GatewayService) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		err := llm.NewError(llm.KindValidationFailure, "message must not be empty", nil)
		s.metrics.ObserveRequest(string(llm.KindValidationFailure))
		return nil, err
	}
	if s.maxLength > 0 && utf8.RuneCountInString(message) > s.maxLength {
		err := llm.NewError(llm.KindValidationFailure,
			fmt.Sprintf("message exceeds the maximum length of %d characters", s.maxLength), nil)
		s.metrics.ObserveRequest(string(llm.KindValidationFailure))
		return nil, err
	}

	ctx, span := agentTracer.Start(ctx, "agent.process")
	defer span.End()
	span.SetAttributes(
		attribute.Int("agent.message_length", utf8.RuneCountInString(message)),
		attribute.Int("agent.context_entries", len(req.Context)),
	)

	resp, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      systemSegments(s.systemPrompt, req.Context),
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: message}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		span.RecordError(err)
		s.observeFailure(err)
		return nil, fmt.Errorf("agent: completion failed: %w", err)
	}

	s.metrics.ObserveRequest("success")
	s.logger.Debug("message processed",
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return &ProcessResponse{
		Message:   resp.Text,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *GatewayService) observeFailure(err error) {
	if kind, ok := llm.KindOf(err); ok {
		s.metrics.ObserveRequest(string(kind))
		return
	}
	s.metrics.ObserveRequest("canceled")
}

// systemSegments returns the preamble segments preceding the user message:
// the base prompt first, then the rendered context entries in the order
// supplied.
func systemSegments(prompt string, entries []ContextEntry) []string {
	segments := []string{prompt}
	if rendered := renderContext(entries); rendered != "" {
		segments = append(segments, rendered)
	}
	return segments
}

func renderContext(entries []ContextEntry) string {
	if len(entries) == 0 {
		return ""
	}
	builder := strings.Builder{}
	builder.WriteString("Conversation context:\n")
	for _, entry := range entries {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", entry.Key, entry.Value))
	}
	return strings.TrimRight(builder.String(), "\n")
}
