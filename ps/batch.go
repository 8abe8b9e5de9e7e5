package ps

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type batchOpType int

const (
	saveOp batchOpType = iota
	dropOp
)

// batchOp is a single pending change of an IndexBatch
type batchOp struct {
	Type  batchOpType
	Index *Index
	Path  string
}

// IndexBatch collects snapshot saves and drops of several indexes and
// applies them as a single commit.
type IndexBatch struct {
	manager    *IndexManager
	operations []batchOp
	started    bool
}

// BeginBatch starts an empty batch.
func (im *IndexManager) BeginBatch() *IndexBatch {
	return &IndexBatch{
		manager: im,
		started: true,
	}
}

// Save queues a snapshot of idx. Historical, read-only indexes cannot be
// saved.
func (b *IndexBatch) Save(idx *Index) error {
	if !b.started {
		return fmt.Errorf("batch not started")
	}
	if idx.ReadOnly() {
		return fmt.Errorf("index %s is read-only and cannot be saved", idx.Name)
	}
	b.operations = append(b.operations, batchOp{
		Type:  saveOp,
		Index: idx,
		Path:  indexPath(idx.Database, idx.Table, idx.Column),
	})
	return nil
}

// Drop queues the removal of a registered index and its snapshot.
func (b *IndexBatch) Drop(database, table, column string) error {
	if !b.started {
		return fmt.Errorf("batch not started")
	}
	idx, ok := b.manager.GetIndex(database, table, column)
	if !ok {
		return fmt.Errorf("%w on %s", ErrIndexNotFound, indexKey(database, table, column))
	}
	b.operations = append(b.operations, batchOp{
		Type:  dropOp,
		Index: idx,
		Path:  indexPath(database, table, column),
	})
	return nil
}

// Commit encodes every queued snapshot and writes all changes in one
// commit. Dropped indexes are unregistered once the commit succeeds.
func (b *IndexBatch) Commit() (Transaction, error) {
	if !b.started {
		return Transaction{}, fmt.Errorf("batch not started")
	}
	if len(b.operations) == 0 {
		return Transaction{}, fmt.Errorf("no operations to commit")
	}

	p := b.manager.persistence
	now := time.Now()
	ids := make(map[*Index]string)
	changes := make([]TreeChange, 0, len(b.operations))
	for _, op := range b.operations {
		switch op.Type {
		case saveOp:
			data, id, err := encodeSnapshot(op.Index, now)
			if err != nil {
				return Transaction{}, err
			}
			blobHash, err := p.createBlob(data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			ids[op.Index] = id
			changes = append(changes, TreeChange{Path: op.Path, BlobHash: blobHash})
		case dropOp:
			changes = append(changes, TreeChange{Path: op.Path, IsDelete: true})
		}
	}

	message := fmt.Sprintf("Index batch: %d operation(s)", len(b.operations))
	if len(b.operations) == 1 {
		message = fmt.Sprintf("Saving index %s", b.operations[0].Index.Name)
		if b.operations[0].Type == dropOp {
			message = fmt.Sprintf("Dropping index %s", b.operations[0].Index.Name)
		}
	}
	txn, err := p.commitChanges(changes, b.manager.identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	b.manager.mu.Lock()
	for _, op := range b.operations {
		idx := op.Index
		switch op.Type {
		case saveOp:
			idx.mu.Lock()
			idx.SnapshotID = ids[idx]
			idx.UpdatedAt = now.UTC()
			idx.mu.Unlock()
			b.manager.log(idx).WithFields(logrus.Fields{"snapshot": ids[idx], "txn": txn.Short()}).Info("index saved")
		case dropOp:
			delete(b.manager.indexes, indexKey(idx.Database, idx.Table, idx.Column))
			b.manager.log(idx).WithField("txn", txn.Short()).Info("index dropped")
		}
	}
	b.manager.mu.Unlock()

	b.started = false
	b.operations = nil
	return txn, nil
}

// Rollback discards all queued operations
func (b *IndexBatch) Rollback() {
	b.started = false
	b.operations = nil
}

// OperationCount returns the number of queued operations
func (b *IndexBatch) OperationCount() int {
	return len(b.operations)
}
