// Package BlockIndex provides Git-backed secondary indexes built on a
// block-chained sorted collection.
//
// Table rows and index snapshots are stored in a Git repository, so every
// change is a commit and any index can be read back as it was at an earlier
// transaction.
//
// # Quick Start
//
// Create an in-memory repository and index a column:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	db := BlockIndex.Open(persistence)
//	im := db.Indexes(core.Identity{Name: "App", Email: "app@example.com"})
//
//	persistence.CreateTable(core.Table{
//	    Database: "mydb",
//	    Name:     "users",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "age", Type: core.IntType},
//	    },
//	}, identity)
//
//	idx, _ := im.CreateIndex("idx_age", "mydb", "users", "age", false)
//	im.InsertRow("mydb", "users", "1", ps.Row{"id": "1", "age": "42"})
//	keys := idx.LookupRange("30", "50")
//	im.SaveAll()
//
// # Packages
//
//   - collection: the generic block-chained sorted collection and its cursor
//   - core: column types and type-aware value comparison
//   - ps: Git persistence, indexes, snapshots and remote import/export
//   - config: YAML configuration
//
// # CLI
//
// An interactive shell lives in cmd/cli:
//
//	go run ./cmd/cli -config blockindex.yaml
package BlockIndex
