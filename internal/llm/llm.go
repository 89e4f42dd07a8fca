// Package llm adapts eino chat models to the single-prompt completion shape
// the query pipeline needs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"recallai/internal/config"
)

// ErrCompletion marks failures of the LLM capability, whichever stage of the
// pipeline they occur in.
var ErrCompletion = errors.New("llm completion failed")

// Completer is the completion capability: one prompt in, one text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Model backs Completer with a hosted chat model. A local openai-compatible
// server is reachable through the openai provider with LLM_BASE_URL set.
type Model struct {
	chat    model.BaseChatModel
	timeout time.Duration
}

// New selects the configured provider and constructs its chat model.
func New(ctx context.Context, cfg *config.Config) (*Model, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch cfg.LLMProvider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			APIKey:  cfg.LLMAPIKey,
		})
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.LLMAPIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("init gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.LLMModel,
		})
	case "claude":
		var baseURL *string
		if cfg.LLMBaseURL != "" {
			baseURL = &cfg.LLMBaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.LLMAPIKey,
			Model:     cfg.LLMModel,
			BaseURL:   baseURL,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.LLMProvider, err)
	}
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Model{chat: chatModel, timeout: timeout}, nil
}

// Complete sends prompt as a single user message and returns the trimmed
// response. Each call is bounded by the configured timeout.
func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg, err := m.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	return strings.TrimSpace(msg.Content), nil
}
