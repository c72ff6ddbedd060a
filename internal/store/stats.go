package store

import (
	"fmt"
)

// Stats summarizes the current node and edge population. Counts are
// computed in one pass against the live tables, so they are never
// stale relative to a completed mutation.
type Stats struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalNotes        int            `json:"total_notes"`
	TotalEvents       int            `json:"total_events"`
	TotalEdges        int            `json:"total_edges"`
	EventStatusCounts map[string]int `json:"event_status_counts"`
	EdgeTypeCounts    map[string]int `json:"edge_type_counts"`
}

// Stats returns aggregate counts over the whole graph.
func (db *DB) Stats() (*Stats, error) {
	s := &Stats{
		EventStatusCounts: map[string]int{},
		EdgeTypeCounts:    map[string]int{},
	}

	rows, err := db.Query("SELECT node_type, COUNT(*) FROM nodes GROUP BY node_type")
	if err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node count: %w", err)
		}
		switch NodeType(typ) {
		case TypeNote:
			s.TotalNotes = count
		case TypeEvent:
			s.TotalEvents = count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.TotalNodes = s.TotalNotes + s.TotalEvents

	rows, err = db.Query("SELECT status, COUNT(*) FROM nodes WHERE node_type = 'event' GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		s.EventStatusCounts[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query("SELECT edge_type, COUNT(*) FROM edges GROUP BY edge_type")
	if err != nil {
		return nil, fmt.Errorf("count edges: %w", err)
	}
	for rows.Next() {
		var et string
		var count int
		if err := rows.Scan(&et, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan edge count: %w", err)
		}
		s.EdgeTypeCounts[et] = count
		s.TotalEdges += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s, nil
}
