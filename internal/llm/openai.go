package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider implements the Provider interface via langchaingo's OpenAI
// client.
type OpenAIProvider struct {
	model       llms.Model
	temperature float32
	maxTokens   int32
}

// NewOpenAIProvider creates a new OpenAI provider. The API key and model name
// come from configuration; langchaingo falls back to OPENAI_API_KEY when the
// key is empty.
func NewOpenAIProvider(apiKey, modelName string) (*OpenAIProvider, error) {
	opts := []openai.Option{openai.WithModel(modelName)}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	return &OpenAIProvider{
		model:       model,
		temperature: 0.0,
		maxTokens:   2000,
	}, nil
}

func (p *OpenAIProvider) content(messages []Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out[i] = llms.TextParts(llms.ChatMessageTypeSystem, msg.Content)
		case RoleUser:
			out[i] = llms.TextParts(llms.ChatMessageTypeHuman, msg.Content)
		case RoleAssistant:
			out[i] = llms.TextParts(llms.ChatMessageTypeAI, msg.Content)
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return out, nil
}

// Complete implements the Provider interface
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	content, err := p.content(messages)
	if err != nil {
		return "", err
	}

	resp, err := p.model.GenerateContent(ctx, content,
		llms.WithTemperature(float64(p.temperature)),
		llms.WithMaxTokens(int(p.maxTokens)),
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Content, nil
}

// StreamComplete implements streaming for OpenAI
func (p *OpenAIProvider) StreamComplete(ctx context.Context, messages []Message, onChunk func(string) error) error {
	content, err := p.content(messages)
	if err != nil {
		return err
	}

	_, err = p.model.GenerateContent(ctx, content,
		llms.WithTemperature(float64(p.temperature)),
		llms.WithMaxTokens(int(p.maxTokens)),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("OpenAI streaming failed: %w", err)
	}

	return nil
}

// SetTemperature sets the temperature for completions
func (p *OpenAIProvider) SetTemperature(temp float32) {
	p.temperature = temp
}

// SetMaxTokens sets the max tokens for completions
func (p *OpenAIProvider) SetMaxTokens(tokens int32) {
	p.maxTokens = tokens
}
