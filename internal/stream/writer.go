// Package stream frames chat output as a Server-Sent Events sequence:
// one event per fragment, a terminal error event on mid-stream
// failure, and a [DONE] sentinel when the stream completes.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DoneSentinel is the data payload of the final event of a completed
// stream.
const DoneSentinel = "[DONE]"

// Fragment is the payload of one incremental unit of generated text.
type Fragment struct {
	Content string `json:"content"`
}

// ErrorPayload is the payload of a terminal error event.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error ErrorPayload `json:"error"`
}

// Writer emits framed events over an http.ResponseWriter, flushing
// after every event so fragments reach the consumer as they are
// generated.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares w for event streaming and writes the SSE headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &Writer{w: w, f: f}, nil
}

// Fragment emits one fragment event.
func (sw *Writer) Fragment(text string) error {
	payload, err := json.Marshal(Fragment{Content: text})
	if err != nil {
		return fmt.Errorf("marshal fragment: %w", err)
	}
	return sw.event(string(payload))
}

// Error emits a terminal error event. The caller is expected to stop
// writing after this.
func (sw *Writer) Error(kind, message string) error {
	payload, err := json.Marshal(errorEnvelope{Error: ErrorPayload{Kind: kind, Message: message}})
	if err != nil {
		return fmt.Errorf("marshal error event: %w", err)
	}
	return sw.event(string(payload))
}

// Done emits the completion sentinel.
func (sw *Writer) Done() error {
	return sw.event(DoneSentinel)
}

func (sw *Writer) event(data string) error {
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return err
	}
	sw.f.Flush()
	return nil
}
