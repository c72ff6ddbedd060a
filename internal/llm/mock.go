package llm

import (
	"context"
	"io"
)

// MockClient is a test double for the Client interface. It can also
// back the "mock" provider for local development without credentials.
type MockClient struct {
	Fragments []string // scripted output, one Recv per entry
	OpenErr   error    // returned when opening the stream
	FailAfter int      // if > 0, Recv fails after this many fragments
	FailWith  error

	Systems   []string    // records system prompts passed to StreamChat
	Calls     [][]Message // records conversation histories
	RecvCount int         // total Recv requests across all streams
}

// StreamChat records the call and returns a scripted stream.
func (m *MockClient) StreamChat(ctx context.Context, system string, messages []Message) (Stream, error) {
	m.Systems = append(m.Systems, system)
	m.Calls = append(m.Calls, messages)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return &mockStream{client: m, ctx: ctx}, nil
}

type mockStream struct {
	client *MockClient
	ctx    context.Context
	pos    int
	closed bool
}

func (s *mockStream) Recv() (string, error) {
	s.client.RecvCount++
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.client.FailAfter > 0 && s.pos >= s.client.FailAfter {
		return "", s.client.FailWith
	}
	if s.pos >= len(s.client.Fragments) {
		return "", io.EOF
	}
	frag := s.client.Fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}
