//go:build comparative

package ps

import (
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

// setupDuckDB creates a DuckDB table with the same rows as setupBenchmarkIndex
// and an ART index on age
func setupDuckDB(b *testing.B, n int) *sql.DB {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		b.Fatalf("Failed to open DuckDB: %v", err)
	}
	b.Cleanup(func() { db.Close() })

	if _, err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, age INTEGER)"); err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}
	if _, err := db.Exec("CREATE INDEX idx_age ON users (age)"); err != nil {
		b.Fatalf("Failed to create index: %v", err)
	}
	for i := 1; i <= n; i++ {
		if _, err := db.Exec("INSERT INTO users VALUES (?, ?)", i, 20+i%50); err != nil {
			b.Fatalf("Failed to insert: %v", err)
		}
	}
	return db
}

func BenchmarkBlockIndex_Lookup(b *testing.B) {
	idx := setupBenchmarkIndex(b, 1000, 128)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		idx.Lookup(strconv.Itoa(20 + i%50))
	}
}

func BenchmarkDuckDB_Lookup(b *testing.B) {
	db := setupDuckDB(b, 1000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT id FROM users WHERE age = ? ORDER BY id", 20+i%50)
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id int
			rows.Scan(&id)
		}
		rows.Close()
	}
}

func BenchmarkBlockIndex_Range(b *testing.B) {
	idx := setupBenchmarkIndex(b, 1000, 128)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		idx.LookupRange("30", "39")
	}
}

func BenchmarkDuckDB_Range(b *testing.B) {
	db := setupDuckDB(b, 1000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT id FROM users WHERE age BETWEEN 30 AND 39 ORDER BY age, id")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id int
			rows.Scan(&id)
		}
		rows.Close()
	}
}
