package testutil

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/database/migration"
	"github.com/kbukum/speakerid/testutil"
)

var notesSchema = migration.Source{
	FS: fstest.MapFS{
		"m/1_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);")},
		"m/1_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	},
	Path: "m",
}

func TestComponent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	tc := NewComponent().WithMigrations(notesSchema)

	if h := tc.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %s", h.Status)
	}
	if err := tc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := tc.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}
	if h := tc.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if err := tc.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestComponent_ResetSnapshotRestore(t *testing.T) {
	tc := NewComponent().WithMigrations(notesSchema)
	h := testutil.T(t)
	h.Setup(tc)

	gdb := tc.DB().GormDB
	MustLoadFixture(t, gdb, "notes", []map[string]interface{}{
		{"id": 1, "body": "first"},
		{"id": 2, "body": "second"},
	})
	AssertRowCount(t, gdb, "notes", 2)

	snap := h.Snapshot(tc)

	if err := gdb.Exec("DELETE FROM notes WHERE id = 1").Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	AssertRowCount(t, gdb, "notes", 1)

	h.Restore(tc, snap)
	AssertRowCount(t, gdb, "notes", 2)

	h.Reset(tc)
	AssertRowCount(t, gdb, "notes", 0)

	tables, err := GetTableNames(gdb)
	if err != nil {
		t.Fatalf("GetTableNames failed: %v", err)
	}
	for _, name := range tables {
		if name == migrationsTable {
			t.Errorf("expected %s to be excluded from table names", migrationsTable)
		}
	}
}

func TestComponent_NotStarted(t *testing.T) {
	ctx := context.Background()
	tc := NewComponent()
	if err := tc.Reset(ctx); err == nil {
		t.Error("expected Reset to fail before Start")
	}
	if _, err := tc.Snapshot(ctx); err == nil {
		t.Error("expected Snapshot to fail before Start")
	}
	if err := tc.Restore(ctx, nil); err == nil {
		t.Error("expected Restore to fail before Start")
	}
	if err := tc.Stop(ctx); err != nil {
		t.Errorf("expected Stop before Start to be a no-op, got %v", err)
	}
}
