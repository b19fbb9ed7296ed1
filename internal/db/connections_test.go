package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/nexus/internal/note"
)

// mustConnect upserts a connection or fails the test.
func mustConnect(t *testing.T, db *sql.DB, source, target string, label note.Label, strength float64) *note.Connection {
	t.Helper()
	c, err := UpsertConnection(context.Background(), db, note.Connection{
		SourceID: source,
		TargetID: target,
		Label:    label,
		Strength: strength,
	})
	if err != nil {
		t.Fatalf("UpsertConnection(%s->%s) failed: %v", source, target, err)
	}
	return c
}

func TestUpsertConnection_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustInsert(t, db,
		newTestNote("a", "alpha", 1, []float32{1}),
		newTestNote("b", "beta", 2, []float32{1}),
	)

	first := mustConnect(t, db, "a", "b", note.LabelSupports, 0.4)

	reason := "stronger evidence"
	second, err := UpsertConnection(ctx, db, note.Connection{
		SourceID:  "a",
		TargetID:  "b",
		Label:     note.LabelSupports,
		Strength:  0.9,
		Reasoning: &reason,
	})
	if err != nil {
		t.Fatalf("second UpsertConnection failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert changed id: %s -> %s", first.ID, second.ID)
	}
	if second.Strength != 0.9 {
		t.Errorf("Strength = %v, want latest 0.9", second.Strength)
	}
	if second.Reasoning == nil || *second.Reasoning != reason {
		t.Errorf("Reasoning = %v, want %q", second.Reasoning, reason)
	}

	count, err := CountConnections(ctx, db)
	if err != nil {
		t.Fatalf("CountConnections failed: %v", err)
	}
	if count != 1 {
		t.Errorf("connections = %d, want exactly 1 row", count)
	}

	// A different label is a distinct edge
	mustConnect(t, db, "a", "b", note.LabelExpandsOn, 0.5)
	count, _ = CountConnections(ctx, db)
	if count != 2 {
		t.Errorf("connections = %d, want 2 after new label", count)
	}
}

func TestUpsertConnection_ClampsStrength(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db,
		newTestNote("a", "alpha", 1, []float32{1}),
		newTestNote("b", "beta", 2, []float32{1}),
	)

	high := mustConnect(t, db, "a", "b", note.LabelSupports, 1.8)
	if high.Strength != 1 {
		t.Errorf("Strength = %v, want clamped 1", high.Strength)
	}
	low := mustConnect(t, db, "b", "a", note.LabelSupports, -0.3)
	if low.Strength != 0 {
		t.Errorf("Strength = %v, want clamped 0", low.Strength)
	}
}

func TestUpsertConnection_InvalidLabel(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db,
		newTestNote("a", "alpha", 1, []float32{1}),
		newTestNote("b", "beta", 2, []float32{1}),
	)

	_, err := UpsertConnection(context.Background(), db, note.Connection{
		SourceID: "a", TargetID: "b", Label: "causes", Strength: 0.5,
	})
	if err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestUpsertConnection_MissingEndpoint(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db, newTestNote("a", "alpha", 1, []float32{1}))

	_, err := UpsertConnection(context.Background(), db, note.Connection{
		SourceID: "a", TargetID: "ghost", Label: note.LabelRelatedTo, Strength: 0.5,
	})
	if err == nil {
		t.Error("expected foreign key failure for missing target")
	}
}

func TestConnectionsTouching(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustInsert(t, db,
		newTestNote("root", "r", 1, []float32{1}),
		newTestNote("x", "x", 2, []float32{1}),
		newTestNote("y", "y", 3, []float32{1}),
		newTestNote("z", "z", 4, []float32{1}),
	)
	mustConnect(t, db, "root", "x", note.LabelSupports, 0.6)
	mustConnect(t, db, "y", "root", note.LabelRelatedTo, 0.2)
	mustConnect(t, db, "x", "z", note.LabelRelatedTo, 0.9)

	conns, err := ConnectionsTouching(ctx, db, []string{"root"}, 0.3)
	if err != nil {
		t.Fatalf("ConnectionsTouching failed: %v", err)
	}
	if len(conns) != 1 || conns[0].TargetID != "x" {
		t.Errorf("conns = %+v, want only root->x", conns)
	}

	both, err := ConnectionsTouching(ctx, db, []string{"root", "x"}, 0)
	if err != nil {
		t.Fatalf("ConnectionsTouching failed: %v", err)
	}
	if len(both) != 3 {
		t.Fatalf("len = %d, want 3 (no duplicates)", len(both))
	}
	if both[0].Strength != 0.9 {
		t.Errorf("first strength = %v, want strongest first", both[0].Strength)
	}
}

func TestConnectionsAmong(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db,
		newTestNote("a", "a", 1, []float32{1}),
		newTestNote("b", "b", 2, []float32{1}),
		newTestNote("c", "c", 3, []float32{1}),
	)
	mustConnect(t, db, "a", "b", note.LabelSupports, 0.9)
	mustConnect(t, db, "b", "c", note.LabelSupports, 0.9)
	mustConnect(t, db, "c", "a", note.LabelSupports, 0.1)

	conns, err := ConnectionsAmong(context.Background(), db, []string{"a", "b"}, 0.3)
	if err != nil {
		t.Fatalf("ConnectionsAmong failed: %v", err)
	}
	if len(conns) != 1 || conns[0].SourceID != "a" || conns[0].TargetID != "b" {
		t.Errorf("conns = %+v, want only a->b", conns)
	}
}

func TestCountConnectionsByLabel(t *testing.T) {
	db := openTestDB(t)
	mustInsert(t, db,
		newTestNote("a", "a", 1, []float32{1}),
		newTestNote("b", "b", 2, []float32{1}),
	)
	mustConnect(t, db, "a", "b", note.LabelSupports, 0.9)
	mustConnect(t, db, "b", "a", note.LabelSupports, 0.9)
	mustConnect(t, db, "a", "b", note.LabelContradicts, 0.4)

	counts, err := CountConnectionsByLabel(context.Background(), db)
	if err != nil {
		t.Fatalf("CountConnectionsByLabel failed: %v", err)
	}
	if counts[note.LabelSupports] != 2 || counts[note.LabelContradicts] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestConnectionsCreatedSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustInsert(t, db,
		newTestNote("a", "a", 1, []float32{1}),
		newTestNote("b", "b", 2, []float32{1}),
	)
	old := note.Connection{SourceID: "a", TargetID: "b", Label: note.LabelSupports, Strength: 0.9, CreatedAt: 100}
	recent := note.Connection{SourceID: "b", TargetID: "a", Label: note.LabelSupports, Strength: 0.5, CreatedAt: 500}
	for _, c := range []note.Connection{old, recent} {
		if _, err := UpsertConnection(ctx, db, c); err != nil {
			t.Fatalf("UpsertConnection failed: %v", err)
		}
	}

	conns, total, err := ConnectionsCreatedSince(ctx, db, 200, 10)
	if err != nil {
		t.Fatalf("ConnectionsCreatedSince failed: %v", err)
	}
	if total != 1 || len(conns) != 1 || conns[0].SourceID != "b" {
		t.Errorf("conns = %+v total=%d, want only recent", conns, total)
	}
}
