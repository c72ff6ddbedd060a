package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EdgeType classifies the relation an edge expresses. The graph only
// records existence and direction; the semantic detail lives in the
// node content itself.
type EdgeType string

const (
	EdgeDependsOn  EdgeType = "depends_on" // temporal dependency (event -> event)
	EdgePartOf     EdgeType = "part_of"    // hierarchical containment (event -> event)
	EdgeReferences EdgeType = "references" // reference association (any -> any)
	EdgeProduces   EdgeType = "produces"   // causal output (event <-> note)
)

// Edge is a typed directed relation between two nodes. The
// (source, target, type) triple is unique.
type Edge struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	EdgeType  EdgeType  `json:"edge_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Direction selects which incident edges of a node to consider.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
	Both     Direction = "both"
)

// validEdgeTypes maps a (source type, target type) pair to the edge
// types allowed between them.
var validEdgeTypes = map[[2]NodeType][]EdgeType{
	{TypeEvent, TypeEvent}: {EdgeDependsOn, EdgePartOf},
	{TypeNote, TypeNote}:   {EdgeReferences},
	{TypeEvent, TypeNote}:  {EdgeReferences, EdgeProduces},
	{TypeNote, TypeEvent}:  {EdgeReferences, EdgeProduces},
}

func edgeTypeAllowed(src, dst NodeType, et EdgeType) bool {
	for _, allowed := range validEdgeTypes[[2]NodeType{src, dst}] {
		if allowed == et {
			return true
		}
	}
	return false
}

// CreateEdge links two existing nodes. Creating a duplicate
// (source, target, type) triple is a no-op that returns the edge, not
// an error. depends_on edges are rejected if they would close a cycle.
func (db *DB) CreateEdge(sourceID, targetID string, edgeType EdgeType) (*Edge, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create edge: %w", err)
	}
	defer tx.Rollback()

	var srcType, dstType NodeType
	if err := tx.QueryRow("SELECT node_type FROM nodes WHERE id = ?", sourceID).Scan(&srcType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("look up edge source: %w", err)
	}
	if err := tx.QueryRow("SELECT node_type FROM nodes WHERE id = ?", targetID).Scan(&dstType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("look up edge target: %w", err)
	}

	if !edgeTypeAllowed(srcType, dstType, edgeType) {
		return nil, &InvalidEdgeTypeError{EdgeType: edgeType, Source: srcType, Target: dstType}
	}

	if edgeType == EdgeDependsOn {
		// A path target -> ... -> source means this edge closes a cycle.
		reachable, err := hasPath(tx, targetID, sourceID, EdgeDependsOn)
		if err != nil {
			return nil, fmt.Errorf("cycle check: %w", err)
		}
		if reachable {
			return nil, &CycleError{SourceID: sourceID, TargetID: targetID}
		}
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO edges (source_id, target_id, edge_type, created_at)
		VALUES (?, ?, ?, ?)
	`, sourceID, targetID, string(edgeType), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create edge: %w", err)
	}

	return &Edge{SourceID: sourceID, TargetID: targetID, EdgeType: edgeType, CreatedAt: now}, nil
}

// hasPath walks edges of the given type from fromID looking for toID.
func hasPath(tx *sql.Tx, fromID, toID string, edgeType EdgeType) (bool, error) {
	visited := map[string]bool{}
	stack := []string{fromID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == toID {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		rows, err := tx.Query(
			"SELECT target_id FROM edges WHERE source_id = ? AND edge_type = ?",
			current, string(edgeType))
		if err != nil {
			return false, err
		}
		for rows.Next() {
			var next string
			if err := rows.Scan(&next); err != nil {
				rows.Close()
				return false, err
			}
			stack = append(stack, next)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// DeleteEdge removes a specific edge. Removing an absent edge is a
// no-op.
func (db *DB) DeleteEdge(sourceID, targetID string, edgeType EdgeType) error {
	_, err := db.Exec(
		"DELETE FROM edges WHERE source_id = ? AND target_id = ? AND edge_type = ?",
		sourceID, targetID, string(edgeType))
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

// NodeEdges returns edges incident to a node, optionally filtered by
// edge type and direction.
func (db *DB) NodeEdges(nodeID string, edgeType EdgeType, dir Direction) ([]Edge, error) {
	if dir == "" {
		dir = Both
	}

	var edges []Edge
	appendEdges := func(query string, args ...any) error {
		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e Edge
			var createdAt int64
			if err := rows.Scan(&e.SourceID, &e.TargetID, &e.EdgeType, &createdAt); err != nil {
				return err
			}
			e.CreatedAt = time.UnixMilli(createdAt)
			edges = append(edges, e)
		}
		return rows.Err()
	}

	base := "SELECT source_id, target_id, edge_type, created_at FROM edges WHERE %s = ?"
	typeCond := ""
	if edgeType != "" {
		typeCond = " AND edge_type = ?"
	}

	run := func(col, id string) error {
		query := fmt.Sprintf(base, col) + typeCond + " ORDER BY created_at ASC"
		if edgeType != "" {
			return appendEdges(query, id, string(edgeType))
		}
		return appendEdges(query, id)
	}

	if dir == Outgoing || dir == Both {
		if err := run("source_id", nodeID); err != nil {
			return nil, fmt.Errorf("node edges: %w", err)
		}
	}
	if dir == Incoming || dir == Both {
		if err := run("target_id", nodeID); err != nil {
			return nil, fmt.Errorf("node edges: %w", err)
		}
	}
	return edges, nil
}

// Neighbors returns the distinct nodes connected to nodeID by edges of
// the given type and direction.
func (db *DB) Neighbors(nodeID string, edgeType EdgeType, dir Direction) ([]Node, error) {
	edges, err := db.NodeEdges(nodeID, edgeType, dir)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var neighbors []Node
	for _, e := range edges {
		otherID := e.TargetID
		if e.TargetID == nodeID {
			otherID = e.SourceID
		}
		if otherID == nodeID || seen[otherID] {
			continue
		}
		seen[otherID] = true

		n, err := db.GetNode(otherID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, *n)
	}
	return neighbors, nil
}

// NodeContext bundles a node with its graph neighborhood, grouped by
// the relation each neighbor has to it.
type NodeContext struct {
	Main         Node   `json:"main"`
	Dependencies []Node `json:"dependencies"`
	Subtasks     []Node `json:"subtasks"`
	References   []Node `json:"references"`
	Produces     []Node `json:"produces"`
}

// ResolveContext collects the full neighborhood of a node.
func (db *DB) ResolveContext(nodeID string) (*NodeContext, error) {
	main, err := db.GetNode(nodeID)
	if err != nil {
		return nil, err
	}

	deps, err := db.Neighbors(nodeID, EdgeDependsOn, Incoming)
	if err != nil {
		return nil, err
	}
	subs, err := db.Neighbors(nodeID, EdgePartOf, Incoming)
	if err != nil {
		return nil, err
	}
	refs, err := db.Neighbors(nodeID, EdgeReferences, Both)
	if err != nil {
		return nil, err
	}
	prod, err := db.Neighbors(nodeID, EdgeProduces, Outgoing)
	if err != nil {
		return nil, err
	}

	return &NodeContext{
		Main:         *main,
		Dependencies: deps,
		Subtasks:     subs,
		References:   refs,
		Produces:     prod,
	}, nil
}

// ExecutionContext describes what stands between an event and its
// execution: unfinished dependencies, reference notes, and subtasks.
type ExecutionContext struct {
	Event                Node   `json:"event"`
	BlockingDependencies []Node `json:"blocking_dependencies"`
	ContextNotes         []Node `json:"context_notes"`
	Subtasks             []Node `json:"subtasks"`
	CanExecute           bool   `json:"can_execute"`
}

// ExecutionContextFor resolves the execution context of an event.
func (db *DB) ExecutionContextFor(eventID string) (*ExecutionContext, error) {
	event, err := db.GetNode(eventID)
	if err != nil {
		return nil, err
	}
	if event.Type != TypeEvent {
		return nil, ErrNotFound
	}

	blockers, err := db.Neighbors(eventID, EdgeDependsOn, Incoming)
	if err != nil {
		return nil, err
	}
	var blocking []Node
	for _, b := range blockers {
		if b.Type == TypeEvent && b.Status != StatusDone {
			blocking = append(blocking, b)
		}
	}

	refs, err := db.Neighbors(eventID, EdgeReferences, Outgoing)
	if err != nil {
		return nil, err
	}
	var notes []Node
	for _, r := range refs {
		if r.Type == TypeNote {
			notes = append(notes, r)
		}
	}

	parts, err := db.Neighbors(eventID, EdgePartOf, Incoming)
	if err != nil {
		return nil, err
	}
	var subtasks []Node
	for _, p := range parts {
		if p.Type == TypeEvent {
			subtasks = append(subtasks, p)
		}
	}

	return &ExecutionContext{
		Event:                *event,
		BlockingDependencies: blocking,
		ContextNotes:         notes,
		Subtasks:             subtasks,
		CanExecute:           len(blocking) == 0,
	}, nil
}
