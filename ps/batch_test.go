package ps

import (
	"errors"
	"testing"
)

func TestIndexBatch(t *testing.T) {
	im := newTestManager(t)

	byName, err := im.CreateIndex("idx_name", "testdb", "users", "name", false)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	byAge, err := im.CreateIndex("idx_age", "testdb", "users", "age", false)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	before, _ := im.persistence.History(0)

	batch := im.BeginBatch()
	if err := batch.Save(byName); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := batch.Save(byAge); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if batch.OperationCount() != 2 {
		t.Errorf("Expected 2 operations, got %d", batch.OperationCount())
	}

	txn, err := batch.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if txn.Id == "" {
		t.Error("Expected transaction ID")
	}

	after, _ := im.persistence.History(0)
	if len(after) != len(before)+1 {
		t.Errorf("Expected a single commit, got %d", len(after)-len(before))
	}
	if byName.SnapshotID == "" || byAge.SnapshotID == "" {
		t.Error("Expected snapshot ids after commit")
	}
	if byName.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt after commit")
	}

	if _, err := batch.Commit(); err == nil {
		t.Error("Expected error committing a finished batch")
	}
}

func TestIndexBatchDrop(t *testing.T) {
	im := newTestManager(t)

	idx, err := im.CreateIndex("idx_name", "testdb", "users", "name", false)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if _, err := im.SaveIndex(idx); err != nil {
		t.Fatalf("SaveIndex failed: %v", err)
	}

	batch := im.BeginBatch()
	if err := batch.Drop("testdb", "users", "name"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if err := batch.Drop("testdb", "users", "missing"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Expected ErrIndexNotFound, got %v", err)
	}
	if _, err := batch.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, ok := im.GetIndex("testdb", "users", "name"); ok {
		t.Error("Index should be unregistered after drop")
	}
	if _, err := im.persistence.ReadFileDirect(indexPath("testdb", "users", "name")); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected snapshot to be deleted, got %v", err)
	}
}

func TestIndexBatchRollback(t *testing.T) {
	im := newTestManager(t)
	idx, _ := im.CreateIndex("idx_name", "testdb", "users", "name", false)

	batch := im.BeginBatch()
	batch.Save(idx)
	batch.Rollback()

	if batch.OperationCount() != 0 {
		t.Errorf("Expected 0 operations after rollback, got %d", batch.OperationCount())
	}
	if err := batch.Save(idx); err == nil {
		t.Error("Expected error saving into a rolled back batch")
	}
	if idx.SnapshotID != "" {
		t.Error("Rolled back batch should not save anything")
	}
}

func TestIndexBatchEmptyCommit(t *testing.T) {
	im := newTestManager(t)

	if _, err := im.BeginBatch().Commit(); err == nil {
		t.Error("Expected error committing an empty batch")
	}
}

func TestIndexBatchRejectsReadOnly(t *testing.T) {
	im := newTestManager(t)
	idx, _ := im.CreateIndex("idx_name", "testdb", "users", "name", false)
	txn, err := im.SaveIndex(idx)
	if err != nil {
		t.Fatalf("SaveIndex failed: %v", err)
	}

	old, err := im.LoadIndexAt(txn.Id, "testdb", "users", "name")
	if err != nil {
		t.Fatalf("LoadIndexAt failed: %v", err)
	}
	if err := im.BeginBatch().Save(old); err == nil {
		t.Error("Expected error saving a read-only index")
	}
}
