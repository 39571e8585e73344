// Package llm owns all interaction with the hosted completion API: request
// construction, transport invocation, timeout/retry, and error
// classification. Nothing else in the service talks to the provider.
package llm

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is the completion payload built fresh for each upstream call.
// System segments are rendered ahead of Messages in the order supplied.
type Request struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

// Response carries the generated text plus provider metadata that is logged
// but not interpreted further.
type Response struct {
	Text         string
	Usage        TokenUsage
	FinishReason string
}

type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
