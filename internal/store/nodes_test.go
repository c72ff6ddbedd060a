package store

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestCreateNote(t *testing.T) {
	db := testDB(t)

	note, err := db.CreateNote("buy milk", "Errand", []string{"shopping", "home"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	if note.ID == "" {
		t.Error("expected non-empty id")
	}
	if note.Type != TypeNote {
		t.Errorf("type = %q, want note", note.Type)
	}
	if note.UpdatedAt.Before(note.CreatedAt) {
		t.Error("updated_at before created_at")
	}

	// Round-trip: get returns identical fields.
	got, err := db.GetNode(note.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Content != "buy milk" || got.Title != "Errand" {
		t.Errorf("got content=%q title=%q", got.Content, got.Title)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", got.Tags)
	}
}

func TestCreateNoteEmptyContent(t *testing.T) {
	db := testDB(t)

	_, err := db.CreateNote("   ", "", nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateEventDefaults(t *testing.T) {
	db := testDB(t)

	event, err := db.CreateEvent("ship release", 0, nil)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.Status != StatusPending {
		t.Errorf("status = %q, want pending", event.Status)
	}
	if event.Priority != 0 {
		t.Errorf("priority = %d, want 0", event.Priority)
	}
	if event.DueDate != nil {
		t.Error("expected nil due date")
	}
}

func TestCreateEventWithDueDate(t *testing.T) {
	db := testDB(t)

	due := time.Now().Add(48 * time.Hour).Truncate(time.Millisecond)
	event, err := db.CreateEvent("file taxes", 3, &due)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	got, err := db.GetNode(event.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
	if got.Priority != 3 {
		t.Errorf("priority = %d, want 3", got.Priority)
	}
}

func TestCreateEventNegativePriority(t *testing.T) {
	db := testDB(t)

	_, err := db.CreateEvent("bad", -1, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetNode("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNode(t *testing.T) {
	db := testDB(t)

	note, _ := db.CreateNote("draft", "Title", nil)
	before := note.UpdatedAt

	time.Sleep(2 * time.Millisecond)

	content := "final"
	tags := []string{"a"}
	updated, err := db.UpdateNode(note.ID, NodeUpdate{Content: &content, Tags: &tags})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if updated.Content != "final" {
		t.Errorf("content = %q, want final", updated.Content)
	}
	if !updated.UpdatedAt.After(before) {
		t.Error("updated_at not bumped")
	}
	if updated.Title != "Title" {
		t.Errorf("untouched title = %q, want Title", updated.Title)
	}
}

func TestUpdateNodeEmptyContent(t *testing.T) {
	db := testDB(t)

	note, _ := db.CreateNote("draft", "", nil)
	content := ""
	_, err := db.UpdateNode(note.ID, NodeUpdate{Content: &content})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestUpdateNodeVariantDispatch(t *testing.T) {
	db := testDB(t)

	note, _ := db.CreateNote("a note", "", nil)
	event, _ := db.CreateEvent("an event", 0, nil)

	// Event fields on a note are rejected.
	status := StatusDone
	if _, err := db.UpdateNode(note.ID, NodeUpdate{Status: &status}); err == nil {
		t.Error("expected error setting status on a note")
	}

	// Note fields on an event are rejected.
	title := "nope"
	if _, err := db.UpdateNode(event.ID, NodeUpdate{Title: &title}); err == nil {
		t.Error("expected error setting title on an event")
	}

	// Unknown status values are rejected.
	bad := Status("paused")
	if _, err := db.UpdateNode(event.ID, NodeUpdate{Status: &bad}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestUpdateNodeNotFound(t *testing.T) {
	db := testDB(t)

	content := "x"
	_, err := db.UpdateNode("no-such-id", NodeUpdate{Content: &content})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNode(t *testing.T) {
	db := testDB(t)

	note, _ := db.CreateNote("ephemeral", "", nil)

	if err := db.DeleteNode(note.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, err := db.GetNode(note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}

	// Second delete of the same id is NotFound, not silent success.
	if err := db.DeleteNode(note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestListNodesFilters(t *testing.T) {
	db := testDB(t)

	db.CreateNote("note one", "", nil)
	db.CreateNote("note two", "", nil)
	event, _ := db.CreateEvent("event one", 0, nil)
	status := StatusDone
	db.UpdateNode(event.ID, NodeUpdate{Status: &status})

	all, err := db.ListNodes("", "")
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d nodes, want 3", len(all))
	}

	notes, _ := db.ListNodes(TypeNote, "")
	if len(notes) != 2 {
		t.Errorf("notes = %d, want 2", len(notes))
	}

	done, _ := db.ListNodes(TypeEvent, StatusDone)
	if len(done) != 1 {
		t.Errorf("done events = %d, want 1", len(done))
	}

	pending, _ := db.ListNodes(TypeEvent, StatusPending)
	if len(pending) != 0 {
		t.Errorf("pending events = %d, want 0", len(pending))
	}
}

func TestListNodesOrder(t *testing.T) {
	db := testDB(t)

	first, _ := db.CreateNote("first", "", nil)
	time.Sleep(2 * time.Millisecond)
	second, _ := db.CreateNote("second", "", nil)

	nodes, err := db.ListNodes(TypeNote, "")
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	if nodes[0].ID != second.ID || nodes[1].ID != first.ID {
		t.Error("expected created_at descending order")
	}
}

func TestConcurrentAccess(t *testing.T) {
	db := testDB(t)

	seed, err := db.CreateNote("seed", "", nil)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			if _, err := db.CreateNote("concurrent note", "", nil); err != nil {
				return err
			}
			if _, err := db.GetNode(seed.ID); err != nil {
				return err
			}
			_, err := db.ListNodes(TypeNote, "")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent access: %v", err)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalNotes != 9 {
		t.Errorf("total notes = %d, want 9", stats.TotalNotes)
	}
}
