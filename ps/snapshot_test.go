package ps

import (
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/nickyhof/BlockIndex/core"
)

func TestSnapshotRoundTrip(t *testing.T) {
	idx := newTestIndex(core.IntType, true, 3)
	for i := 0; i < 25; i++ {
		if err := idx.Insert(strconv.Itoa(i*7%25), "pk"+strconv.Itoa(i)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	idx.DeleteRange("10", "14")

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, id, err := encodeSnapshot(idx, now)
	if err != nil {
		t.Fatalf("encodeSnapshot failed: %v", err)
	}

	got, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decodeSnapshot failed: %v", err)
	}
	if got.SnapshotID != id {
		t.Errorf("Expected snapshot id %s, got %s", id, got.SnapshotID)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("Expected UpdatedAt %v, got %v", now, got.UpdatedAt)
	}
	if got.Qualified() != idx.Qualified() || !got.Unique || got.Type != core.IntType {
		t.Errorf("Definition not preserved: %+v", got.IndexDef)
	}
	if !slices.Equal(got.Entries(), idx.Entries()) {
		t.Errorf("Entries differ: %v vs %v", got.Entries(), idx.Entries())
	}

	// block boundaries survive
	want, have := idx.entries.Blocks(), got.entries.Blocks()
	if len(want) != len(have) {
		t.Fatalf("Expected %d blocks, got %d", len(want), len(have))
	}
	for i := range want {
		if !slices.Equal(want[i].Values(), have[i].Values()) {
			t.Errorf("Block %d differs", i)
		}
	}
	if err := got.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	// the decoded index keeps working
	if err := got.Insert("11", "new"); err != nil {
		t.Errorf("Insert after decode failed: %v", err)
	}
}

func TestSnapshotIDsDiffer(t *testing.T) {
	idx := newTestIndex(core.StringType, false, 4)
	idx.Insert("a", "1")

	_, first, _ := encodeSnapshot(idx, time.Now())
	_, second, _ := encodeSnapshot(idx, time.Now())
	if first == second {
		t.Error("Expected a fresh id per snapshot")
	}
}

func TestSnapshotCorrupt(t *testing.T) {
	encode := func(v any) []byte {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		return snappy.Encode(nil, raw)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not snappy", []byte("plain text")},
		{"not json", snappy.Encode(nil, []byte("{"))},
		{"wrong format", encode(map[string]any{"format": 99, "id": "00000000-0000-0000-0000-000000000000"})},
		{"bad id", encode(map[string]any{"format": snapshotFormat, "id": "nope"})},
		{"count mismatch", encode(map[string]any{
			"format":   snapshotFormat,
			"id":       "00000000-0000-0000-0000-000000000000",
			"capacity": 4,
			"entries":  5,
			"blocks":   [][]Entry{{{"a", "1"}}},
		})},
		{"unordered", encode(map[string]any{
			"format":   snapshotFormat,
			"id":       "00000000-0000-0000-0000-000000000000",
			"capacity": 4,
			"entries":  2,
			"blocks":   [][]Entry{{{"b", "1"}}, {{"a", "2"}}},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeSnapshot(tt.data); !errors.Is(err, ErrCorruptSnapshot) {
				t.Errorf("Expected ErrCorruptSnapshot, got %v", err)
			}
		})
	}
}
