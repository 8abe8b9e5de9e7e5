package ps

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"path"
	"strings"

	"github.com/nickyhof/BlockIndex/core"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowNotFound   = errors.New("row not found")
)

// Row is a stored record: column name to value.
type Row map[string]string

// Repository layout:
//
//	<db>.database                 database definition
//	<db>/<table>.table            table schema
//	<db>/<table>/<pk>             one row
//	<db>/<table>.index.<column>   index snapshot
func databasePath(name string) string { return name + ".database" }

func tablePath(database, table string) string {
	return path.Join(database, table+".table")
}

func rowDir(database, table string) string { return path.Join(database, table) }

func (persistence *Persistence) CreateDatabase(database core.Database, identity core.Identity) (Transaction, error) {
	data, err := json.Marshal(database)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal database: %w", err)
	}
	return persistence.WriteFileDirect(databasePath(database.Name), data, identity, "Creating database "+database.Name)
}

func (persistence *Persistence) GetDatabase(name string) (*core.Database, error) {
	data, err := persistence.ReadFileDirect(databasePath(name))
	if err != nil {
		return nil, fmt.Errorf("database %s does not exist: %w", name, err)
	}
	var d core.Database
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal database: %w", err)
	}
	return &d, nil
}

// CreateTable stores the schema of a table, creating the database entry
// along with it when needed.
func (persistence *Persistence) CreateTable(table core.Table, identity core.Identity) (Transaction, error) {
	if _, ok := table.PrimaryKey(); !ok {
		return Transaction{}, fmt.Errorf("table %s.%s has no columns", table.Database, table.Name)
	}
	data, err := json.Marshal(table)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to marshal table: %w", err)
	}
	files := map[string][]byte{tablePath(table.Database, table.Name): data}
	if _, err := persistence.GetDatabase(table.Database); err != nil {
		db, _ := json.Marshal(core.Database{Name: table.Database})
		files[databasePath(table.Database)] = db
	}
	return persistence.WriteFilesDirect(files, identity, fmt.Sprintf("Creating table %s.%s", table.Database, table.Name))
}

func (persistence *Persistence) GetTable(database, table string) (*core.Table, error) {
	data, err := persistence.ReadFileDirect(tablePath(database, table))
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, database, table)
	}
	var t core.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return &t, nil
}

// DropTable removes the schema, the rows and every index snapshot of a table.
func (persistence *Persistence) DropTable(database, table string, identity core.Identity) (Transaction, error) {
	paths := []string{tablePath(database, table), rowDir(database, table)}
	entries, err := persistence.ListEntriesDirect(database)
	if err != nil {
		return Transaction{}, err
	}
	prefix := table + indexFileInfix
	for _, entry := range entries {
		if !entry.IsDir && strings.HasPrefix(entry.Name, prefix) {
			paths = append(paths, path.Join(database, entry.Name))
		}
	}
	return persistence.DeletePathDirect(paths, identity, fmt.Sprintf("Dropping table %s.%s", database, table))
}

func (persistence *Persistence) ListTables(database string) []string {
	entries, err := persistence.ListEntriesDirect(database)
	if err != nil {
		return nil
	}
	var tables []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, ".table") {
			tables = append(tables, strings.TrimSuffix(entry.Name, ".table"))
		}
	}
	return tables
}

// SaveRows writes rows keyed by primary key in one commit.
func (persistence *Persistence) SaveRows(database, table string, rows map[string]Row, identity core.Identity) (Transaction, error) {
	files := make(map[string][]byte, len(rows))
	for pk, row := range rows {
		if pk == "" || strings.Contains(pk, "/") {
			return Transaction{}, fmt.Errorf("invalid primary key %q", pk)
		}
		data, err := json.Marshal(row)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to marshal row %s: %w", pk, err)
		}
		files[path.Join(rowDir(database, table), pk)] = data
	}
	return persistence.WriteFilesDirect(files, identity, fmt.Sprintf("Saving %d row(s) in %s.%s", len(rows), database, table))
}

func (persistence *Persistence) DeleteRow(database, table, pk string, identity core.Identity) (Transaction, error) {
	return persistence.DeletePathDirect([]string{path.Join(rowDir(database, table), pk)}, identity,
		fmt.Sprintf("Deleting row %s from %s.%s", pk, database, table))
}

func (persistence *Persistence) GetRow(database, table, pk string) (Row, error) {
	data, err := persistence.ReadFileDirect(path.Join(rowDir(database, table), pk))
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s.%s", ErrRowNotFound, pk, database, table)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row %s: %w", pk, err)
	}
	return row, nil
}

func (persistence *Persistence) ListRowKeys(database, table string) []string {
	entries, err := persistence.ListEntriesDirect(rowDir(database, table))
	if err != nil {
		return nil
	}
	var keys []string
	for _, entry := range entries {
		if !entry.IsDir {
			keys = append(keys, entry.Name)
		}
	}
	return keys
}

// Rows iterates over the rows of a table in primary key file order. Rows
// that fail to decode are skipped.
func (persistence *Persistence) Rows(database, table string) iter.Seq2[string, Row] {
	keys := persistence.ListRowKeys(database, table)
	return func(yield func(string, Row) bool) {
		for _, pk := range keys {
			row, err := persistence.GetRow(database, table, pk)
			if err != nil {
				continue
			}
			if !yield(pk, row) {
				return
			}
		}
	}
}
