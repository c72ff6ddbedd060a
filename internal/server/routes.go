package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnemograph/mnemo/internal/engine"
	"github.com/mnemograph/mnemo/internal/store"
)

// ---- Notes ----

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string   `json:"content"`
		Title   string   `json:"title"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	note, err := s.db.CreateNote(req.Content, req.Title, req.Tags)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.db.ListNodes(store.TypeNote, "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	s.getTypedNode(w, chi.URLParam(r, "id"), store.TypeNote)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content *string   `json:"content"`
		Title   *string   `json:"title"`
		Tags    *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	node, err := s.db.UpdateNode(chi.URLParam(r, "id"), store.NodeUpdate{
		Content: req.Content,
		Title:   req.Title,
		Tags:    req.Tags,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// ---- Events ----

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string     `json:"content"`
		Priority int        `json:"priority"`
		DueDate  *time.Time `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	event, err := s.db.CreateEvent(req.Content, req.Priority, req.DueDate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	status := store.Status(r.URL.Query().Get("status"))
	if status != "" && !store.ValidStatus(status) {
		badRequest(w, "unknown status "+string(status))
		return
	}

	events, err := s.db.ListNodes(store.TypeEvent, status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	s.getTypedNode(w, chi.URLParam(r, "id"), store.TypeEvent)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  *string       `json:"content"`
		Status   *store.Status `json:"status"`
		Priority *int          `json:"priority"`
		DueDate  *time.Time    `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	// Status-only patches are what detail views send; any transition
	// is allowed.
	if req.Status != nil && req.Content == nil && req.Priority == nil && req.DueDate == nil {
		node, err := engine.SetStatus(s.db, chi.URLParam(r, "id"), *req.Status)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, node)
		return
	}

	node, err := s.db.UpdateNode(chi.URLParam(r, "id"), store.NodeUpdate{
		Content:  req.Content,
		Status:   req.Status,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleAdvanceEvent(w http.ResponseWriter, r *http.Request) {
	node, err := engine.AdvanceStatus(s.db, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleEventContext(w http.ResponseWriter, r *http.Request) {
	ec, err := s.db.ExecutionContextFor(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ec)
}

// handleDeleteNode serves DELETE for both notes and events. Incident
// edges go with the node.
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteNode(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) getTypedNode(w http.ResponseWriter, id string, typ store.NodeType) {
	node, err := s.db.GetNode(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if node.Type != typ {
		s.writeError(w, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// ---- Edges ----

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string         `json:"source_id"`
		TargetID string         `json:"target_id"`
		EdgeType store.EdgeType `json:"edge_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	edge, err := s.db.CreateEdge(req.SourceID, req.TargetID, req.EdgeType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sourceID := q.Get("source_id")
	targetID := q.Get("target_id")
	edgeType := store.EdgeType(q.Get("edge_type"))
	if sourceID == "" || targetID == "" || edgeType == "" {
		badRequest(w, "source_id, target_id and edge_type required")
		return
	}

	if err := s.db.DeleteEdge(sourceID, targetID, edgeType); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleNodeEdges(w http.ResponseWriter, r *http.Request) {
	dir := store.Direction(r.URL.Query().Get("direction"))
	if dir == "" {
		dir = store.Both
	}
	edgeType := store.EdgeType(r.URL.Query().Get("edge_type"))

	edges, err := s.db.NodeEdges(chi.URLParam(r, "id"), edgeType, dir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edges)
}

func (s *Server) handleRelatedNodes(w http.ResponseWriter, r *http.Request) {
	dir := store.Direction(r.URL.Query().Get("direction"))
	if dir == "" {
		dir = store.Both
	}
	edgeType := store.EdgeType(r.URL.Query().Get("edge_type"))

	nodes, err := s.db.Neighbors(chi.URLParam(r, "id"), edgeType, dir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleNodeContext(w http.ResponseWriter, r *http.Request) {
	nc, err := s.db.ResolveContext(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nc)
}

// ---- Search & stats ----

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		badRequest(w, "query parameter required")
		return
	}

	limit := 10
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := engine.Search(s.db, query, engine.SearchOpts{
		Type:  store.NodeType(q.Get("node_type")),
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if results == nil {
		results = []engine.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
