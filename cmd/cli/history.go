package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// historyLimit is the number of commands kept in memory and on disk.
const historyLimit = 500

// commandHistory remembers the commands typed into the shell and persists
// them between sessions. A zero path keeps the history in memory only.
type commandHistory struct {
	path    string
	entries []string
}

func newCommandHistory(path string) *commandHistory {
	return &commandHistory{path: path}
}

// defaultHistoryPath is ~/.blockindex/history, or "" without a home directory.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".blockindex", "history")
}

// add records a command. Repeating the previous command is not recorded.
func (h *commandHistory) add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	h.trim()
}

func (h *commandHistory) trim() {
	if over := len(h.entries) - historyLimit; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
}

// recent returns the last n commands, oldest first, and the 1-based number
// of the first one returned.
func (h *commandHistory) recent(n int) ([]string, int) {
	start := max(len(h.entries)-n, 0)
	return h.entries[start:], start + 1
}

func (h *commandHistory) len() int { return len(h.entries) }

// load reads the persisted history. A missing file is an empty history.
func (h *commandHistory) load() error {
	if h.path == "" {
		return nil
	}
	file, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.add(scanner.Text())
	}
	return scanner.Err()
}

// save replaces the history file, writing a temporary file first so an
// interrupted save keeps the previous history.
func (h *commandHistory) save() error {
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	data := strings.Join(h.entries, "\n")
	if len(h.entries) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}
