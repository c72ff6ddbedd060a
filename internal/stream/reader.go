package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// TerminalError is the decoded form of a terminal error event: the
// stream ended with a reported failure instead of the sentinel.
type TerminalError struct {
	Kind    string
	Message string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("stream error (%s): %s", e.Kind, e.Message)
}

// FragmentReader is the consumer-side view of a framed fragment
// stream: it yields fragment text in arrival order, io.EOF at the
// [DONE] sentinel, and *TerminalError if the stream reported a
// failure.
type FragmentReader struct {
	dec *Decoder
}

// NewFragmentReader returns a FragmentReader decoding from r.
func NewFragmentReader(r io.Reader) *FragmentReader {
	return &FragmentReader{dec: NewDecoder(r)}
}

// Next returns the next fragment's text.
func (fr *FragmentReader) Next() (string, error) {
	for {
		ev, err := fr.dec.Next()
		if err != nil {
			return "", err
		}
		if ev.Data == DoneSentinel {
			return "", io.EOF
		}

		var envelope struct {
			Content string        `json:"content"`
			Error   *ErrorPayload `json:"error"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &envelope); err != nil {
			return "", fmt.Errorf("decode fragment: %w", err)
		}
		if envelope.Error != nil {
			return "", &TerminalError{Kind: envelope.Error.Kind, Message: envelope.Error.Message}
		}
		return envelope.Content, nil
	}
}
