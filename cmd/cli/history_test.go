package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/nickyhof/BlockIndex/config"
)

func TestCommandHistoryAdd(t *testing.T) {
	h := newCommandHistory("")
	for _, cmd := range []string{"lookup a.b 1", "lookup a.b 1", "  ", "save", "lookup a.b 1"} {
		h.add(cmd)
	}

	want := []string{"lookup a.b 1", "save", "lookup a.b 1"}
	if !slices.Equal(h.entries, want) {
		t.Errorf("Expected %v, got %v", want, h.entries)
	}

	entries, first := h.recent(2)
	if first != 2 || !slices.Equal(entries, want[1:]) {
		t.Errorf("Expected %v from 2, got %v from %d", want[1:], entries, first)
	}
}

func TestCommandHistoryLimit(t *testing.T) {
	h := newCommandHistory("")
	for i := range historyLimit + 10 {
		h.add("insert t " + strconv.Itoa(i))
	}

	if h.len() != historyLimit {
		t.Fatalf("Expected %d entries, got %d", historyLimit, h.len())
	}
	if h.entries[0] != "insert t 10" {
		t.Errorf("Expected oldest entries to be dropped, first is %q", h.entries[0])
	}
}

func TestCommandHistorySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history")

	h := newCommandHistory(path)
	if err := h.load(); err != nil {
		t.Fatalf("Loading a missing history failed: %v", err)
	}
	h.add(".use app")
	h.add("lookup users.age 30")
	if err := h.save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temporary file to be renamed, stat returned %v", err)
	}

	reloaded := newCommandHistory(path)
	if err := reloaded.load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !slices.Equal(reloaded.entries, h.entries) {
		t.Errorf("Expected %v, got %v", h.entries, reloaded.entries)
	}
}

func TestPrintBanner(t *testing.T) {
	cfg := &config.Config{}
	cfg.Index.BlockCapacity = 64

	var out bytes.Buffer
	printBanner(&out, cfg)
	if !strings.Contains(out.String(), "BlockIndex "+Version) || !strings.Contains(out.String(), "in-memory repository, blocks of 64 entries") {
		t.Errorf("Unexpected banner %q", out.String())
	}

	out.Reset()
	cfg.Storage.Path = "/var/lib/blockindex"
	printBanner(&out, cfg)
	if !strings.Contains(out.String(), "repository at /var/lib/blockindex") {
		t.Errorf("Unexpected banner %q", out.String())
	}
}
