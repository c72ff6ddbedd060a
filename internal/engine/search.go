package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mnemograph/mnemo/internal/store"
)

// Recency decay: a node's weight halves every 90 days since its last
// update, with a floor so old memories are never ranked out entirely.
const (
	recencyHalfLife = 90 * 24 * time.Hour
	recencyFloor    = 0.1
)

// SearchResult pairs a node with its relevance score.
type SearchResult struct {
	Node  store.Node `json:"node"`
	Score float64    `json:"score"`
}

// SearchOpts controls search behavior.
type SearchOpts struct {
	Type  store.NodeType // filter by node type (empty = all)
	Limit int            // max results; <= 0 means no limit
}

// Search ranks stored nodes against a query string.
//
// Score = token-overlap ratio between the query tokens and the node's
// content+title tokens, weighted by a recency multiplier that decays
// with node age. Ties break on newer updated_at, then lower id. A
// blank query returns nodes in plain list order. Search carries no
// state between calls.
func Search(db *store.DB, query string, opts SearchOpts) ([]SearchResult, error) {
	nodes, err := db.ListNodes(opts.Type, "")
	if err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		results := make([]SearchResult, len(nodes))
		for i, n := range nodes {
			results[i] = SearchResult{Node: n}
		}
		return truncate(results, opts.Limit), nil
	}

	now := time.Now()
	var results []SearchResult
	for _, n := range nodes {
		overlap := overlapRatio(queryTokens, tokenize(n.Content+" "+n.Title))
		if overlap == 0 {
			continue
		}
		results = append(results, SearchResult{
			Node:  n,
			Score: overlap * recencyWeight(now.Sub(n.UpdatedAt)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Node.UpdatedAt.Equal(results[j].Node.UpdatedAt) {
			return results[i].Node.UpdatedAt.After(results[j].Node.UpdatedAt)
		}
		return results[i].Node.ID < results[j].Node.ID
	})

	return truncate(results, opts.Limit), nil
}

// tokenize lowercases and whitespace-splits text into a token set.
func tokenize(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

// overlapRatio is the share of query tokens present in the node tokens.
func overlapRatio(query, node map[string]bool) float64 {
	matched := 0
	for tok := range query {
		if node[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

// recencyWeight computes 0.5^(age/halfLife), floored at recencyFloor.
func recencyWeight(age time.Duration) float64 {
	if age <= 0 {
		return 1.0
	}
	w := math.Pow(0.5, float64(age)/float64(recencyHalfLife))
	if w < recencyFloor {
		return recencyFloor
	}
	return w
}

func truncate(results []SearchResult, limit int) []SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
