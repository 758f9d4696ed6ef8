// Package llm is the boundary to the external language-model collaborator.
// The core treats it as a blocking black box: given a message history, it
// returns free-form text or fails.
package llm

import "context"

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles understood by the providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider interface for LLM providers. A failed call means no reply was
// produced for the turn; providers do not retry on behalf of the caller.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	StreamComplete(ctx context.Context, messages []Message, onChunk func(string) error) error
	SetTemperature(temp float32)
	SetMaxTokens(tokens int32)
}
