package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeType discriminates the two node variants.
type NodeType string

const (
	TypeNote  NodeType = "note"
	TypeEvent NodeType = "event"
)

// Status is the lifecycle state of an event node.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// ValidStatus reports whether s is a known event status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Node is a unit of stored memory: a note or an event. The two
// variants share the base field set; variant-specific fields are only
// meaningful when the type tag matches.
type Node struct {
	ID      string   `json:"id"`
	Type    NodeType `json:"type"`
	Content string   `json:"content"`

	// Note fields
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	// Event fields
	Status   Status     `json:"status,omitempty"`
	Priority int        `json:"priority,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeUpdate carries a partial mutation. Nil fields are left untouched.
type NodeUpdate struct {
	Content  *string
	Title    *string
	Tags     *[]string
	Status   *Status
	Priority *int
	DueDate  *time.Time
}

// CreateNote inserts a new note node and returns it.
func (db *DB) CreateNote(content, title string, tags []string) (*Node, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if tags == nil {
		tags = []string{}
	}

	now := time.Now()
	n := &Node{
		ID:        uuid.NewString(),
		Type:      TypeNote,
		Content:   content,
		Title:     title,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tagsJSON, err := json.Marshal(n.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO nodes (id, node_type, content, title, tags, created_at, updated_at)
		VALUES (?, 'note', ?, ?, ?, ?, ?)
	`, n.ID, n.Content, n.Title, string(tagsJSON), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// CreateEvent inserts a new event node. Status defaults to pending.
func (db *DB) CreateEvent(content string, priority int, dueDate *time.Time) (*Node, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if priority < 0 {
		return nil, &ValidationError{Field: "priority", Reason: "must not be negative"}
	}

	now := time.Now()
	n := &Node{
		ID:        uuid.NewString(),
		Type:      TypeEvent,
		Content:   content,
		Status:    StatusPending,
		Priority:  priority,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var due any
	if dueDate != nil {
		due = dueDate.UnixMilli()
	}

	_, err := db.Exec(`
		INSERT INTO nodes (id, node_type, content, status, priority, due_date, created_at, updated_at)
		VALUES (?, 'event', ?, 'pending', ?, ?, ?, ?)
	`, n.ID, n.Content, n.Priority, due, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return n, nil
}

// GetNode returns a node by id, or ErrNotFound.
func (db *DB) GetNode(id string) (*Node, error) {
	row := db.QueryRow(`
		SELECT id, node_type, content, title, tags, status, priority, due_date, created_at, updated_at
		FROM nodes WHERE id = ?
	`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

// UpdateNode merges the provided fields into the node and bumps
// updated_at. Variant-specific fields are dispatched on the type tag:
// title/tags apply to notes only, status/priority/due_date to events
// only.
func (db *DB) UpdateNode(id string, upd NodeUpdate) (*Node, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, node_type, content, title, tags, status, priority, due_date, created_at, updated_at
		FROM nodes WHERE id = ?
	`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}

	if upd.Content != nil {
		if strings.TrimSpace(*upd.Content) == "" {
			return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		n.Content = *upd.Content
	}

	switch n.Type {
	case TypeNote:
		if upd.Status != nil || upd.Priority != nil || upd.DueDate != nil {
			return nil, &ValidationError{Field: "type", Reason: "status, priority and due_date apply to events only"}
		}
		if upd.Title != nil {
			n.Title = *upd.Title
		}
		if upd.Tags != nil {
			n.Tags = *upd.Tags
			if n.Tags == nil {
				n.Tags = []string{}
			}
		}
	case TypeEvent:
		if upd.Title != nil || upd.Tags != nil {
			return nil, &ValidationError{Field: "type", Reason: "title and tags apply to notes only"}
		}
		if upd.Status != nil {
			if !ValidStatus(*upd.Status) {
				return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *upd.Status)}
			}
			n.Status = *upd.Status
		}
		if upd.Priority != nil {
			if *upd.Priority < 0 {
				return nil, &ValidationError{Field: "priority", Reason: "must not be negative"}
			}
			n.Priority = *upd.Priority
		}
		if upd.DueDate != nil {
			n.DueDate = upd.DueDate
		}
	}

	n.UpdatedAt = time.Now()

	tagsJSON, err := json.Marshal(tagsOrEmpty(n.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	var due any
	if n.DueDate != nil {
		due = n.DueDate.UnixMilli()
	}
	var status any
	if n.Type == TypeEvent {
		status = string(n.Status)
	}

	_, err = tx.Exec(`
		UPDATE nodes SET content = ?, title = ?, tags = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`, n.Content, n.Title, string(tagsJSON), status, n.Priority, due, n.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("update node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return n, nil
}

// DeleteNode removes a node. Incident edges are removed in the same
// statement via the ON DELETE CASCADE foreign keys, so the cascade is
// atomic with respect to readers. Deleting an absent id is ErrNotFound.
func (db *DB) DeleteNode(id string) error {
	res, err := db.Exec("DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNodes returns nodes ordered by created_at descending. Both
// filters are optional: an empty NodeType matches all nodes, an empty
// Status matches all events.
func (db *DB) ListNodes(typ NodeType, status Status) ([]Node, error) {
	query := `
		SELECT id, node_type, content, title, tags, status, priority, due_date, created_at, updated_at
		FROM nodes`
	var conds []string
	var args []any
	if typ != "" {
		conds = append(conds, "node_type = ?")
		args = append(args, string(typ))
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*Node, error) {
	var n Node
	var tagsJSON string
	var status sql.NullString
	var due sql.NullInt64
	var createdAt, updatedAt int64

	err := s.Scan(&n.ID, &n.Type, &n.Content, &n.Title, &tagsJSON,
		&status, &n.Priority, &due, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if n.Type == TypeNote {
		if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
	if status.Valid {
		n.Status = Status(status.String)
	}
	if due.Valid {
		t := time.UnixMilli(due.Int64)
		n.DueDate = &t
	}
	n.CreatedAt = time.UnixMilli(createdAt)
	n.UpdatedAt = time.UnixMilli(updatedAt)
	return &n, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
