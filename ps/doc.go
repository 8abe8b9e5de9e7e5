// Package ps provides the persistence layer for BlockIndex.
//
// The persistence layer is backed by Git, using go-git for storage. Every
// write creates a commit, so each table row, schema and index snapshot
// carries its full history.
//
// # Memory Persistence
//
// For testing or ephemeral repositories:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage, optionally cloned from a remote on first use:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Indexes
//
// An Index keeps (value, primary key) entries of one column in a
// block-chained sorted collection, ordered by the column's type:
//
//	im := ps.NewIndexManager(persistence, identity, ps.WithBlockCapacity(256))
//	idx, _ := im.CreateIndex("idx_age", "db", "users", "age", false)
//	keys := idx.LookupRange("18", "30")
//
// Rows written through IndexManager.InsertRow and DeleteRow keep every index
// of their table current. Indexes live in memory until saved:
//
//	txn, _ := im.SaveAll()
//
// A saved index is a snappy-compressed snapshot stored next to the table as
// <db>/<table>.index.<column>. LoadIndexes reads the latest snapshots back;
// LoadIndexAt reads a read-only copy as of any earlier transaction.
//
// # Batches
//
// Several saves and drops can share one commit:
//
//	batch := im.BeginBatch()
//	batch.Save(byName)
//	batch.Drop("db", "users", "email")
//	txn, _ := batch.Commit()
//
// # Import and Export
//
// Snapshots can be moved between repositories through local paths and
// file://, s3:// and http(s):// URLs (HTTP is read-only):
//
//	im.ExportIndex(ctx, idx, "s3://bucket/users.age")
//	im.ImportIndex(ctx, "https://example.com/users.age")
package ps
