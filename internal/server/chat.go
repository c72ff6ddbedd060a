package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mnemograph/mnemo/internal/chat"
	"github.com/mnemograph/mnemo/internal/llm"
	"github.com/mnemograph/mnemo/internal/stream"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	message, err := s.orch.Complete(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.Messages) == 0 {
		badRequest(w, "messages must not be empty")
		return
	}

	sw, err := stream.NewWriter(w)
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.orch.Stream(r.Context(), req, sw.Fragment)
	switch {
	case err == nil:
		sw.Done()
	case errors.Is(err, context.Canceled):
		// Client went away. Nothing left to write to.
	default:
		var uerr *llm.UpstreamError
		kind := "internal"
		if errors.As(err, &uerr) {
			kind = "upstream"
		}
		s.log.Error("chat stream failed", zap.Error(err))
		sw.Error(kind, err.Error())
	}
}

func (s *Server) handleSaveToMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string   `json:"content"`
		Title   string   `json:"title"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	note, err := s.orch.SaveNote(req.Content, req.Title, req.Tags)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Saved to memory",
		"note_id": note.ID,
	})
}
