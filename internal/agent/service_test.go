package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/agentmvp/agent-gateway/internal/llm"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

type stubLLMClient struct {
	response llm.Response
	err      error
	calls    int
	lastReq  llm.Request
}

func (s *stubLLMClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return s.response, nil
}

func newTestService(client llm.Client, maxLength int) *GatewayService {
	return NewService(client, ServiceConfig{
		Model:            "gpt-4o-mini",
		MaxMessageLength: maxLength,
		Logger:           logging.New("error"),
	})
}

func TestProcessRejectsEmptyMessageWithoutUpstreamCall(t *testing.T) {
	stub := &stubLLMClient{}
	service := newTestService(stub, 100)

	for _, message := range []string{"", "   ", "\n\t "} {
		_, err := service.Process(context.Background(), ProcessRequest{Message: message})
		if kind, ok := llm.KindOf(err); !ok || kind != llm.KindValidationFailure {
			t.Fatalf("message %q: expected validation failure, got %v", message, err)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("expected zero upstream calls for invalid messages, got %d", stub.calls)
	}
}

func TestProcessRejectsOversizedMessage(t *testing.T) {
	stub := &stubLLMClient{}
	service := newTestService(stub, 10)

	_, err := service.Process(context.Background(), ProcessRequest{
		Message: strings.Repeat("a", 11),
	})
	if kind, ok := llm.KindOf(err); !ok || kind != llm.KindValidationFailure {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("expected zero upstream calls, got %d", stub.calls)
	}
}

func TestProcessReturnsGeneratedTextUnchanged(t *testing.T) {
	stub := &stubLLMClient{response: llm.Response{Text: "Hello! How can I help you today?"}}
	service := newTestService(stub, 100)

	resp, err := service.Process(context.Background(), ProcessRequest{Message: "Hello"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if resp.Message != "Hello! How can I help you today?" {
		t.Fatalf("expected stub text unchanged, got %q", resp.Message)
	}
	if resp.Timestamp.IsZero() {
		t.Fatal("expected response timestamp to be set")
	}
	if stub.calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", stub.calls)
	}
}

func TestProcessTrimsMessageBeforeSending(t *testing.T) {
	stub := &stubLLMClient{response: llm.Response{Text: "ok"}}
	service := newTestService(stub, 100)

	if _, err := service.Process(context.Background(), ProcessRequest{Message: "  Hi  "}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(stub.lastReq.Messages) != 1 || stub.lastReq.Messages[0].Content != "Hi" {
		t.Fatalf("expected trimmed user message, got %+v", stub.lastReq.Messages)
	}
	if stub.lastReq.Messages[0].Role != llm.ChatRoleUser {
		t.Fatalf("expected user role, got %s", stub.lastReq.Messages[0].Role)
	}
	if stub.lastReq.Model != "gpt-4o-mini" {
		t.Fatalf("expected configured model, got %s", stub.lastReq.Model)
	}
}

func TestProcessRendersContextBeforeUserMessage(t *testing.T) {
	stub := &stubLLMClient{response: llm.Response{Text: "ok"}}
	service := newTestService(stub, 100)

	_, err := service.Process(context.Background(), ProcessRequest{
		Message: "Hi",
		Context: []ContextEntry{{Key: "tone", Value: "formal"}},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	// System segments travel ahead of the user message on the wire.
	if len(stub.lastReq.System) != 2 {
		t.Fatalf("expected base prompt plus context segment, got %v", stub.lastReq.System)
	}
	if !strings.Contains(stub.lastReq.System[1], "tone: formal") {
		t.Fatalf("expected context entry in preamble, got %q", stub.lastReq.System[1])
	}
}

func TestProcessKeepsContextEntryOrder(t *testing.T) {
	stub := &stubLLMClient{response: llm.Response{Text: "ok"}}
	service := newTestService(stub, 100)

	_, err := service.Process(context.Background(), ProcessRequest{
		Message: "Hi",
		Context: []ContextEntry{
			{Key: "zeta", Value: "1"},
			{Key: "alpha", Value: "2"},
			{Key: "zeta", Value: "3"},
		},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	rendered := stub.lastReq.System[1]
	first := strings.Index(rendered, "zeta: 1")
	second := strings.Index(rendered, "alpha: 2")
	third := strings.Index(rendered, "zeta: 3")
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("expected all entries rendered, got %q", rendered)
	}
	if !(first < second && second < third) {
		t.Fatalf("expected insertion order preserved, got %q", rendered)
	}
}

func TestProcessPassesFailureThroughUnchanged(t *testing.T) {
	rateErr := llm.NewError(llm.KindRateLimited, "upstream rate limit exceeded", nil)
	stub := &stubLLMClient{err: rateErr}
	service := newTestService(stub, 100)

	_, err := service.Process(context.Background(), ProcessRequest{Message: "Hi"})
	if kind, ok := llm.KindOf(err); !ok || kind != llm.KindRateLimited {
		t.Fatalf("expected rate-limited failure preserved, got %v", err)
	}
}
