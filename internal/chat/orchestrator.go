// Package chat composes conversation history, retrieved memory, and a
// model provider into an ordered fragment stream.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mnemograph/mnemo/internal/engine"
	"github.com/mnemograph/mnemo/internal/llm"
	"github.com/mnemograph/mnemo/internal/store"
)

const (
	defaultMemoryLimit = 5
	maxOpenAttempts    = 3
	openRetryBackoff   = 500 * time.Millisecond
)

// Request is one chat invocation: the conversation so far plus memory
// augmentation options.
type Request struct {
	Messages    []llm.Message `json:"messages"`
	UseMemory   bool          `json:"use_memory"`
	MemoryLimit int           `json:"memory_limit"`
}

// Orchestrator drives chat generation against the memory graph.
type Orchestrator struct {
	db     *store.DB
	client llm.Client
	log    *zap.Logger
}

// New creates an Orchestrator.
func New(db *store.DB, client llm.Client, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{db: db, client: client, log: log}
}

// Stream generates a response and hands each fragment to emit in
// generation order. emit is called synchronously, so a slow consumer
// pauses generation instead of queueing fragments. Stream returns nil
// on completion, ctx.Err() on cancellation, emit's error if the
// consumer went away, and an upstream error otherwise. In every case
// no further fragments are requested from the provider.
func (o *Orchestrator) Stream(ctx context.Context, req Request, emit func(string) error) error {
	if len(req.Messages) == 0 {
		return &store.ValidationError{Field: "messages", Reason: "must not be empty"}
	}

	system, err := o.buildSystemPrompt(req)
	if err != nil {
		return err
	}

	s, err := o.openStream(ctx, system, req.Messages)
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := emit(frag); err != nil {
			return err
		}
	}
}

// Complete generates the full response by concatenating the fragment
// stream, so its output is byte-identical to what Stream delivers for
// the same input and provider.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	if err := o.Stream(ctx, req, func(frag string) error {
		b.WriteString(frag)
		return nil
	}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// SaveNote stores chat content as a note in the memory graph,
// independent of any in-flight stream.
func (o *Orchestrator) SaveNote(content, title string, tags []string) (*store.Node, error) {
	return o.db.CreateNote(content, title, tags)
}

// openStream starts generation, retrying transient upstream failures
// with backoff before giving up.
func (o *Orchestrator) openStream(ctx context.Context, system string, messages []llm.Message) (llm.Stream, error) {
	var lastErr error
	for attempt := 1; attempt <= maxOpenAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * openRetryBackoff
			o.log.Warn("retrying model stream",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		s, err := o.client.StreamChat(ctx, system, messages)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("open model stream after %d attempts: %w", maxOpenAttempts, lastErr)
}

// buildSystemPrompt assembles the system prompt, injecting retrieved
// note content when memory augmentation is requested. Zero matches is
// not an error; the chat proceeds unaugmented.
func (o *Orchestrator) buildSystemPrompt(req Request) (string, error) {
	if !req.UseMemory {
		return basePrompt, nil
	}

	query := lastUserMessage(req.Messages)
	if query == "" {
		return basePrompt, nil
	}

	limit := req.MemoryLimit
	if limit <= 0 {
		limit = defaultMemoryLimit
	}

	results, err := engine.Search(o.db, query, engine.SearchOpts{
		Type:  store.TypeNote,
		Limit: limit,
	})
	if err != nil {
		return "", fmt.Errorf("memory search: %w", err)
	}
	if len(results) == 0 {
		return basePrompt, nil
	}

	o.log.Debug("memory augmentation",
		zap.String("query", query),
		zap.Int("notes", len(results)),
	)
	return basePrompt + "\n\n" + memoryBlock(results), nil
}
