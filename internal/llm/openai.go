package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAI streams completions from the OpenAI chat API or any
// OpenAI-compatible gateway (set BaseURL to point elsewhere).
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a new OpenAI-compatible client. baseURL may be
// empty for the default endpoint.
func NewOpenAI(baseURL, apiKey, model string, maxTokens int) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = normalizeBaseURL(baseURL)
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

// StreamChat opens a streaming chat completion.
func (o *OpenAI) StreamChat(ctx context.Context, system string, messages []Message) (Stream, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  msgs,
		MaxTokens: o.maxTokens,
		Stream:    true,
	}

	s, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	return &openaiStream{s: s}, nil
}

type openaiStream struct {
	s *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.s.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", wrapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			// Role-only or empty deltas carry no text.
			continue
		}
		return delta, nil
	}
}

func (s *openaiStream) Close() error {
	return s.s.Close()
}

// normalizeBaseURL appends the /v1 prefix the API expects, accepting
// gateway URLs given both with and without it.
func normalizeBaseURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			Provider:  "openai",
			Status:    apiErr.HTTPStatusCode,
			Transient: transientStatus(apiErr.HTTPStatusCode),
			Err:       err,
		}
	}
	// Network-level failures are worth a retry.
	return &UpstreamError{Provider: "openai", Transient: true, Err: err}
}
