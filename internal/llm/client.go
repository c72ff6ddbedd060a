// Package llm provides the model-call capability: given a system
// prompt and conversation history, a provider produces an ordered,
// finite sequence of text fragments.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mnemograph/mnemo/internal/config"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stream yields generated fragments in order. Recv returns io.EOF when
// the provider signals completion. Close releases the underlying
// connection; it is safe to call after Recv returned an error.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client is the interface for model providers.
type Client interface {
	// StreamChat opens a generation stream for the given system prompt
	// and history. Fragments are requested lazily through the returned
	// Stream, so cancelling ctx stops generation.
	StreamChat(ctx context.Context, system string, messages []Message) (Stream, error)
}

// UpstreamError wraps a provider failure. Transient instances (rate
// limits, server errors, timeouts) may be retried by the caller.
type UpstreamError struct {
	Provider  string
	Status    int
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Provider, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is an upstream failure worth
// retrying.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transient
}

// transientStatus classifies HTTP status codes from providers.
func transientStatus(status int) bool {
	return status == 429 || status >= 500
}

// NewClient creates a model client based on the config provider
// setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, model, cfg.MaxTokens), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return NewAnthropic(cfg.APIKey, model, cfg.MaxTokens), nil
	case "mock":
		return &MockClient{Fragments: []string{"mock response"}}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
