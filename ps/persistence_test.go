package ps

import (
	"errors"
	"testing"
	"time"

	"github.com/nickyhof/BlockIndex/core"
)

func TestNewMemoryPersistence(t *testing.T) {
	persistence := newTestPersistence(t)

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
	if !persistence.isMemoryMode {
		t.Error("Expected memory mode")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}
	if err := persistence.ensureInitialized(); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if _, err := persistence.WriteFileDirect("f", nil, testIdentity, "x"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized on write, got %v", err)
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	p, err := NewFilePersistence(dir, "")
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	if _, err := p.WriteFileDirect("db/t/k", []byte("v"), testIdentity, "write"); err != nil {
		t.Fatalf("WriteFileDirect failed: %v", err)
	}

	reopened, err := NewFilePersistence(dir, "")
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	data, err := reopened.ReadFileDirect("db/t/k")
	if err != nil {
		t.Fatalf("ReadFileDirect after reopen failed: %v", err)
	}
	if string(data) != "v" {
		t.Errorf("Expected 'v', got '%s'", data)
	}
}

func TestCreateAndGetTable(t *testing.T) {
	persistence := newTestPersistence(t)

	table := core.Table{
		Database: "testdb",
		Name:     "users",
		Columns: []core.Column{
			{Name: "id", Type: core.IntType, PrimaryKey: true},
			{Name: "age", Type: core.IntType},
		},
	}
	txn, err := persistence.CreateTable(table, testIdentity)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if txn.Id == "" {
		t.Error("Expected transaction ID to be set")
	}

	got, err := persistence.GetTable("testdb", "users")
	if err != nil {
		t.Fatalf("Failed to get table: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[1].Type != core.IntType {
		t.Errorf("Unexpected schema %+v", got)
	}

	db, err := persistence.GetDatabase("testdb")
	if err != nil {
		t.Fatalf("Expected database to be created with the table: %v", err)
	}
	if db.Name != "testdb" {
		t.Errorf("Expected database 'testdb', got '%s'", db.Name)
	}

	if tables := persistence.ListTables("testdb"); len(tables) != 1 || tables[0] != "users" {
		t.Errorf("Expected [users], got %v", tables)
	}

	if _, err := persistence.GetTable("testdb", "missing"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestRows(t *testing.T) {
	persistence := newTestPersistence(t)

	rows := map[string]Row{
		"1": {"id": "1", "name": "Alice"},
		"2": {"id": "2", "name": "Bob"},
	}
	if _, err := persistence.SaveRows("testdb", "users", rows, testIdentity); err != nil {
		t.Fatalf("SaveRows failed: %v", err)
	}

	row, err := persistence.GetRow("testdb", "users", "2")
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if row["name"] != "Bob" {
		t.Errorf("Expected Bob, got %s", row["name"])
	}

	count := 0
	for pk, row := range persistence.Rows("testdb", "users") {
		if row["id"] != pk {
			t.Errorf("Row %s has id %s", pk, row["id"])
		}
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}

	if _, err := persistence.DeleteRow("testdb", "users", "1", testIdentity); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}
	if _, err := persistence.GetRow("testdb", "users", "1"); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("Expected ErrRowNotFound, got %v", err)
	}

	if _, err := persistence.SaveRows("testdb", "users", map[string]Row{"a/b": {}}, testIdentity); err == nil {
		t.Error("Expected error for primary key containing a slash")
	}
}

func TestTransactionHistory(t *testing.T) {
	persistence := newTestPersistence(t)

	if latest := persistence.LatestTransaction(); latest.Id != "" {
		t.Errorf("Expected no transaction before the first commit, got %s", latest)
	}

	start := time.Now().Add(-time.Minute)
	for _, msg := range []string{"one", "two", "three"} {
		if _, err := persistence.WriteFileDirect("f", []byte(msg), testIdentity, msg); err != nil {
			t.Fatalf("WriteFileDirect failed: %v", err)
		}
	}

	history, err := persistence.History(2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(history))
	}
	if history[0].Message != "three" || history[1].Message != "two" {
		t.Errorf("Expected newest first, got %s, %s", history[0].Message, history[1].Message)
	}

	since, err := persistence.TransactionsSince(start)
	if err != nil {
		t.Fatalf("TransactionsSince failed: %v", err)
	}
	if len(since) != 3 {
		t.Errorf("Expected 3 transactions since start, got %d", len(since))
	}
}
