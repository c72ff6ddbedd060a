package store

import (
	"errors"
	"testing"
)

func TestCreateEdge(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("task a", 0, nil)
	b, _ := db.CreateEvent("task b", 0, nil)

	edge, err := db.CreateEdge(a.ID, b.ID, EdgeDependsOn)
	if err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if edge.SourceID != a.ID || edge.TargetID != b.ID {
		t.Error("edge endpoints mismatch")
	}

	edges, err := db.NodeEdges(a.ID, "", Both)
	if err != nil {
		t.Fatalf("NodeEdges: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("edges = %d, want 1", len(edges))
	}
}

func TestCreateEdgeMissingEndpoint(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("task a", 0, nil)

	if _, err := db.CreateEdge(a.ID, "no-such-id", EdgeDependsOn); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing target: err = %v, want ErrNotFound", err)
	}
	if _, err := db.CreateEdge("no-such-id", a.ID, EdgeDependsOn); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing source: err = %v, want ErrNotFound", err)
	}
}

func TestCreateEdgeStorageErrorNotMaskedAsNotFound(t *testing.T) {
	db := testDB(t)

	// Break the endpoint lookup outright; the failure must surface as
	// a storage error, not a missing-node result.
	if _, err := db.Exec("DROP TABLE nodes"); err != nil {
		t.Fatalf("drop nodes: %v", err)
	}

	_, err := db.CreateEdge("a", "b", EdgeReferences)
	if err == nil {
		t.Fatal("CreateEdge on broken store: expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("storage failure reported as ErrNotFound: %v", err)
	}
}

func TestCreateEdgeDuplicateIdempotent(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("task a", 0, nil)
	b, _ := db.CreateEvent("task b", 0, nil)

	if _, err := db.CreateEdge(a.ID, b.ID, EdgePartOf); err != nil {
		t.Fatalf("first CreateEdge: %v", err)
	}
	if _, err := db.CreateEdge(a.ID, b.ID, EdgePartOf); err != nil {
		t.Fatalf("duplicate CreateEdge: %v", err)
	}

	stats, _ := db.Stats()
	if stats.TotalEdges != 1 {
		t.Errorf("total edges = %d, want 1", stats.TotalEdges)
	}
}

func TestCreateEdgeTypeValidation(t *testing.T) {
	db := testDB(t)

	note, _ := db.CreateNote("a note", "", nil)
	other, _ := db.CreateNote("another note", "", nil)

	// depends_on is event -> event only.
	_, err := db.CreateEdge(note.ID, other.ID, EdgeDependsOn)
	var ierr *InvalidEdgeTypeError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InvalidEdgeTypeError", err)
	}

	// references is fine between notes.
	if _, err := db.CreateEdge(note.ID, other.ID, EdgeReferences); err != nil {
		t.Fatalf("references note->note: %v", err)
	}
}

func TestCreateEdgeCycleRejected(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("a", 0, nil)
	b, _ := db.CreateEvent("b", 0, nil)
	c, _ := db.CreateEvent("c", 0, nil)

	if _, err := db.CreateEdge(a.ID, b.ID, EdgeDependsOn); err != nil {
		t.Fatalf("a->b: %v", err)
	}
	if _, err := db.CreateEdge(b.ID, c.ID, EdgeDependsOn); err != nil {
		t.Fatalf("b->c: %v", err)
	}

	_, err := db.CreateEdge(c.ID, a.ID, EdgeDependsOn)
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CycleError", err)
	}
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("a", 0, nil)
	b, _ := db.CreateEvent("b", 0, nil)
	note, _ := db.CreateNote("design doc", "", nil)

	db.CreateEdge(a.ID, b.ID, EdgeDependsOn)
	db.CreateEdge(b.ID, note.ID, EdgeReferences)

	if err := db.DeleteNode(b.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	// Every edge where b appeared as source or target is gone.
	for _, id := range []string{a.ID, note.ID} {
		edges, err := db.NodeEdges(id, "", Both)
		if err != nil {
			t.Fatalf("NodeEdges %s: %v", id, err)
		}
		if len(edges) != 0 {
			t.Errorf("node %s still has %d edges after cascade", id, len(edges))
		}
	}

	stats, _ := db.Stats()
	if stats.TotalEdges != 0 {
		t.Errorf("total edges = %d, want 0", stats.TotalEdges)
	}
}

func TestDeleteEdgeIdempotent(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("a", 0, nil)
	b, _ := db.CreateEvent("b", 0, nil)
	db.CreateEdge(a.ID, b.ID, EdgePartOf)

	if err := db.DeleteEdge(a.ID, b.ID, EdgePartOf); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	// Deleting again is a no-op.
	if err := db.DeleteEdge(a.ID, b.ID, EdgePartOf); err != nil {
		t.Fatalf("second DeleteEdge: %v", err)
	}
}

func TestNodeEdgesDirection(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateEvent("a", 0, nil)
	b, _ := db.CreateEvent("b", 0, nil)
	c, _ := db.CreateEvent("c", 0, nil)

	db.CreateEdge(a.ID, b.ID, EdgeDependsOn)
	db.CreateEdge(b.ID, c.ID, EdgeDependsOn)

	out, _ := db.NodeEdges(b.ID, "", Outgoing)
	if len(out) != 1 || out[0].TargetID != c.ID {
		t.Errorf("outgoing = %v, want one edge to c", out)
	}

	in, _ := db.NodeEdges(b.ID, "", Incoming)
	if len(in) != 1 || in[0].SourceID != a.ID {
		t.Errorf("incoming = %v, want one edge from a", in)
	}

	both, _ := db.NodeEdges(b.ID, "", Both)
	if len(both) != 2 {
		t.Errorf("both = %d edges, want 2", len(both))
	}
}

func TestResolveContext(t *testing.T) {
	db := testDB(t)

	main, _ := db.CreateEvent("release v2", 0, nil)
	dep, _ := db.CreateEvent("write changelog", 0, nil)
	sub, _ := db.CreateEvent("tag commit", 0, nil)
	note, _ := db.CreateNote("release checklist", "", nil)

	db.CreateEdge(dep.ID, main.ID, EdgeDependsOn)
	db.CreateEdge(sub.ID, main.ID, EdgePartOf)
	db.CreateEdge(main.ID, note.ID, EdgeProduces)

	ctx, err := db.ResolveContext(main.ID)
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if ctx.Main.ID != main.ID {
		t.Error("main node mismatch")
	}
	if len(ctx.Dependencies) != 1 || ctx.Dependencies[0].ID != dep.ID {
		t.Errorf("dependencies = %v", ctx.Dependencies)
	}
	if len(ctx.Subtasks) != 1 || ctx.Subtasks[0].ID != sub.ID {
		t.Errorf("subtasks = %v", ctx.Subtasks)
	}
	if len(ctx.Produces) != 1 || ctx.Produces[0].ID != note.ID {
		t.Errorf("produces = %v", ctx.Produces)
	}
}

func TestExecutionContext(t *testing.T) {
	db := testDB(t)

	main, _ := db.CreateEvent("deploy", 0, nil)
	blocker, _ := db.CreateEvent("run tests", 0, nil)
	db.CreateEdge(blocker.ID, main.ID, EdgeDependsOn)

	ec, err := db.ExecutionContextFor(main.ID)
	if err != nil {
		t.Fatalf("ExecutionContextFor: %v", err)
	}
	if ec.CanExecute {
		t.Error("expected blocked execution")
	}
	if len(ec.BlockingDependencies) != 1 {
		t.Fatalf("blocking = %d, want 1", len(ec.BlockingDependencies))
	}

	// Completing the blocker unblocks the event.
	done := StatusDone
	if _, err := db.UpdateNode(blocker.ID, NodeUpdate{Status: &done}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	ec, err = db.ExecutionContextFor(main.ID)
	if err != nil {
		t.Fatalf("ExecutionContextFor: %v", err)
	}
	if !ec.CanExecute {
		t.Error("expected executable after blocker done")
	}
}
