package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mnemograph/mnemo/internal/stream"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// Anthropic streams completions from the Anthropic Messages API.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnthropic creates a new Anthropic API client.
func NewAnthropic(apiKey, model string, maxTokens int) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Anthropic{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 300 * time.Second},
	}
}

// StreamChat opens a streaming messages request.
func (a *Anthropic) StreamChat(ctx context.Context, system string, messages []Message) (Stream, error) {
	msgs := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}

	reqBody := map[string]any{
		"model":      a.model,
		"max_tokens": a.maxTokens,
		"stream":     true,
		"messages":   msgs,
	}
	if system != "" {
		reqBody["system"] = system
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPI, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: "anthropic", Transient: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &UpstreamError{
			Provider:  "anthropic",
			Status:    resp.StatusCode,
			Transient: transientStatus(resp.StatusCode),
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	}

	return &anthropicStream{body: resp.Body, dec: stream.NewDecoder(resp.Body)}, nil
}

type anthropicStream struct {
	body io.ReadCloser
	dec  *stream.Decoder
}

// Recv parses SSE events from the Messages API until the next text
// delta. message_stop ends the stream.
func (s *anthropicStream) Recv() (string, error) {
	for {
		ev, err := s.dec.Next()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			return "", &UpstreamError{Provider: "anthropic", Transient: true, Err: err}
		}

		switch ev.Name {
		case "content_block_delta":
			var payload struct {
				Delta struct {
					Text string `json:"text"`
				} `json:"delta"`
			}
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				return "", fmt.Errorf("decode delta: %w", err)
			}
			if payload.Delta.Text == "" {
				continue
			}
			return payload.Delta.Text, nil
		case "message_stop":
			return "", io.EOF
		case "error":
			var payload struct {
				Error struct {
					Type    string `json:"type"`
					Message string `json:"message"`
				} `json:"error"`
			}
			_ = json.Unmarshal([]byte(ev.Data), &payload)
			return "", &UpstreamError{
				Provider:  "anthropic",
				Transient: payload.Error.Type == "overloaded_error",
				Err:       fmt.Errorf("%s: %s", payload.Error.Type, payload.Error.Message),
			}
		default:
			// message_start, content_block_start, ping, etc.
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}
