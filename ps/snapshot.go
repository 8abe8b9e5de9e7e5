package ps

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/nickyhof/BlockIndex/collection"
	"github.com/nickyhof/BlockIndex/core"
)

// ErrCorruptSnapshot is returned for snapshot data that cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt index snapshot")

const snapshotFormat = 1

// snapshot is the stored form of an index. Blocks are kept as they are in
// memory so a reload reproduces the same block layout.
type snapshot struct {
	Format int    `json:"format"`
	ID     string `json:"id"`
	core.IndexDef
	Entries int       `json:"entries"`
	Blocks  [][]Entry `json:"blocks"`
}

// encodeSnapshot serializes idx under a fresh snapshot id: JSON, compressed
// with snappy.
func encodeSnapshot(idx *Index, at time.Time) ([]byte, string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snap := snapshot{
		Format:   snapshotFormat,
		ID:       uuid.NewString(),
		IndexDef: idx.IndexDef,
		Entries:  idx.entries.Len(),
	}
	snap.UpdatedAt = at.UTC()
	for _, b := range idx.entries.Blocks() {
		snap.Blocks = append(snap.Blocks, b.Values())
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal index %s: %w", idx.Name, err)
	}
	return snappy.Encode(nil, data), snap.ID, nil
}

// decodeSnapshot rebuilds an index from encodeSnapshot output.
func decodeSnapshot(data []byte) (*Index, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Format != snapshotFormat {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrCorruptSnapshot, snap.Format)
	}
	if _, err := uuid.Parse(snap.ID); err != nil {
		return nil, fmt.Errorf("%w: bad snapshot id: %v", ErrCorruptSnapshot, err)
	}

	idx := NewIndex(snap.IndexDef)
	idx.SnapshotID = snap.ID
	blocks := make([]*collection.Block[Entry], 0, len(snap.Blocks))
	for _, values := range snap.Blocks {
		blocks = append(blocks, collection.NewBlockOf(idx.Capacity, values))
	}
	entries, err := collection.NewFromBlocks(blocks, entryOrder(idx.Type), collection.WithCapacity(idx.Capacity))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if entries.Len() != snap.Entries {
		return nil, fmt.Errorf("%w: %d entries recorded, %d stored", ErrCorruptSnapshot, snap.Entries, entries.Len())
	}
	idx.entries = entries
	return idx, nil
}
