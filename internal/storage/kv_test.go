package storage

import (
	"context"
	"path/filepath"
	"testing"

	"billease/internal/core"
	"billease/internal/store/local"
)

func newTestBlob(t *testing.T) (*SQLiteBlob, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "billease.db")
	blob, err := NewSQLiteBlob(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteBlob: %v", err)
	}
	t.Cleanup(func() { blob.Close() })
	return blob, dbPath
}

func TestSQLiteBlobMissingKey(t *testing.T) {
	blob, _ := newTestBlob(t)
	data, err := blob.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil data, got %q", data)
	}
}

func TestSQLiteBlobOverwrite(t *testing.T) {
	ctx := context.Background()
	blob, _ := newTestBlob(t)

	if err := blob.Save(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := blob.Save(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := blob.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestSQLiteBlobSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	blob, dbPath := newTestBlob(t)
	if err := blob.Save(ctx, local.DefaultKey, []byte(`{"expenses":[],"bills":[]}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	blob.Close()

	reopened, err := NewSQLiteBlob(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	data, err := reopened.Load(ctx, local.DefaultKey)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"expenses":[],"bills":[]}` {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestSQLiteBlobBacksLocalStore(t *testing.T) {
	ctx := context.Background()
	blob, _ := newTestBlob(t)
	s := local.New(blob, local.DefaultKey, nil)

	e := core.Expense{ID: "e1", Amount: core.Money{Cents: 500}, Category: core.Food, Description: "Coffee", Date: core.NewDate(2025, 6, 1)}
	if err := s.AddExpense(ctx, "", e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	snap, err := s.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != "e1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
