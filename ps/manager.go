package ps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nickyhof/BlockIndex/collection"
	"github.com/nickyhof/BlockIndex/core"
	"github.com/sirupsen/logrus"
)

const indexFileInfix = ".index."

func indexPath(database, table, column string) string {
	return path.Join(database, table+indexFileInfix+column)
}

// indexKey generates a unique key for an index
func indexKey(database, table, column string) string {
	return database + "." + table + "." + column
}

// IndexManager owns the column indexes of a repository: it builds them,
// keeps them current as rows change and stores them as snapshots.
type IndexManager struct {
	persistence *Persistence
	identity    core.Identity
	capacity    int
	remote      *RemoteConfig
	logger      *logrus.Logger

	indexes map[string]*Index // key: database.table.column
	mu      sync.RWMutex
}

type ManagerOption func(*IndexManager)

// WithBlockCapacity sets the block capacity of indexes created by the
// manager.
func WithBlockCapacity(capacity int) ManagerOption {
	return func(im *IndexManager) { im.capacity = capacity }
}

// WithRemote sets the S3 configuration used by ExportIndex and ImportIndex.
func WithRemote(cfg RemoteConfig) ManagerOption {
	return func(im *IndexManager) { im.remote = &cfg }
}

func WithLogger(logger *logrus.Logger) ManagerOption {
	return func(im *IndexManager) { im.logger = logger }
}

// NewIndexManager creates a new index manager
func NewIndexManager(persistence *Persistence, identity core.Identity, opts ...ManagerOption) *IndexManager {
	im := &IndexManager{
		persistence: persistence,
		identity:    identity,
		capacity:    collection.DefaultCapacity,
		indexes:     make(map[string]*Index),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.logger == nil {
		im.logger = logrus.New()
		im.logger.SetOutput(io.Discard)
	}
	return im
}

// Identity returns the author of the manager's commits.
func (im *IndexManager) Identity() core.Identity { return im.identity }

func (im *IndexManager) log(idx *Index) *logrus.Entry {
	return im.logger.WithFields(logrus.Fields{
		"index":  idx.Name,
		"target": idx.Qualified(),
	})
}

// CreateIndex creates an index on a column of an existing table and fills it
// from the rows already stored. The index lives in memory until SaveIndex.
func (im *IndexManager) CreateIndex(name, database, table, column string, unique bool) (*Index, error) {
	schema, err := im.persistence.GetTable(database, table)
	if err != nil {
		return nil, err
	}
	col, ok := schema.Column(column)
	if !ok {
		return nil, fmt.Errorf("column %s does not exist in %s.%s", column, database, table)
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(database, table, column)
	if _, exists := im.indexes[key]; exists {
		return nil, fmt.Errorf("%w on %s", ErrIndexExists, key)
	}

	idx := NewIndex(core.IndexDef{
		Name:     name,
		Database: database,
		Table:    table,
		Column:   column,
		Type:     col.Type,
		Unique:   unique,
		Capacity: im.capacity,
	})
	if err := im.rebuild(idx, im.persistence.Rows(database, table)); err != nil {
		return nil, err
	}

	im.indexes[key] = idx
	im.log(idx).WithField("entries", idx.Len()).Info("index created")
	return idx, nil
}

// GetIndex retrieves an existing index
func (im *IndexManager) GetIndex(database, table, column string) (*Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	idx, exists := im.indexes[indexKey(database, table, column)]
	return idx, exists
}

// Indexes returns every loaded index ordered by database, table and column.
func (im *IndexManager) Indexes() []*Index {
	im.mu.RLock()
	defer im.mu.RUnlock()

	keys := make([]string, 0, len(im.indexes))
	for k := range im.indexes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Index, 0, len(keys))
	for _, k := range keys {
		out = append(out, im.indexes[k])
	}
	return out
}

// TableIndexes returns the loaded indexes of one table.
func (im *IndexManager) TableIndexes(database, table string) []*Index {
	return slices.DeleteFunc(im.Indexes(), func(idx *Index) bool {
		return idx.Database != database || idx.Table != table
	})
}

// DropIndex removes an index and its stored snapshot, if any.
func (im *IndexManager) DropIndex(database, table, column string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(database, table, column)
	idx, exists := im.indexes[key]
	if !exists {
		return fmt.Errorf("%w on %s", ErrIndexNotFound, key)
	}

	if idx.SnapshotID != "" {
		if _, err := im.persistence.DeletePathDirect([]string{indexPath(database, table, column)}, im.identity,
			"Dropping index "+idx.Name); err != nil {
			return err
		}
	}

	delete(im.indexes, key)
	im.log(idx).Info("index dropped")
	return nil
}

// SaveIndex stores a snapshot of idx in a new commit.
func (im *IndexManager) SaveIndex(idx *Index) (Transaction, error) {
	batch := im.BeginBatch()
	if err := batch.Save(idx); err != nil {
		return Transaction{}, err
	}
	return batch.Commit()
}

// SaveAll stores a snapshot of every loaded index in a single commit.
func (im *IndexManager) SaveAll() (Transaction, error) {
	batch := im.BeginBatch()
	for _, idx := range im.Indexes() {
		if idx.ReadOnly() {
			continue
		}
		if err := batch.Save(idx); err != nil {
			return Transaction{}, err
		}
	}
	if batch.OperationCount() == 0 {
		return Transaction{}, nil
	}
	return batch.Commit()
}

// LoadIndexes loads the stored snapshots of every column of a table and
// returns how many were found. Loaded snapshots replace in-memory indexes.
func (im *IndexManager) LoadIndexes(database, table string) (int, error) {
	schema, err := im.persistence.GetTable(database, table)
	if err != nil {
		return 0, err
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	loaded := 0
	for _, col := range schema.Columns {
		data, err := im.persistence.ReadFileDirect(indexPath(database, table, col.Name))
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return loaded, err
		}
		idx, err := decodeSnapshot(data)
		if err != nil {
			return loaded, fmt.Errorf("failed to load index on %s.%s.%s: %w", database, table, col.Name, err)
		}
		im.indexes[indexKey(database, table, col.Name)] = idx
		im.log(idx).WithFields(logrus.Fields{"snapshot": idx.SnapshotID, "entries": idx.Len()}).Debug("index loaded")
		loaded++
	}
	return loaded, nil
}

// LoadIndexAt returns the index on database.table.column as it was stored at
// the given transaction. The result is read-only and not registered with
// the manager.
func (im *IndexManager) LoadIndexAt(txnID, database, table, column string) (*Index, error) {
	data, err := im.persistence.ReadFileAt(txnID, indexPath(database, table, column))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, fmt.Errorf("%w on %s.%s.%s at %s", ErrIndexNotFound, database, table, column, txnID)
		}
		return nil, err
	}
	idx, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	idx.entries.SetReadOnly()
	im.log(idx).WithField("txn", txnID).Debug("historical index loaded")
	return idx, nil
}

// RebuildIndex replaces the contents of idx with the entries derived from
// rows. On a unique index a duplicate value fails the rebuild and leaves idx
// untouched.
func (im *IndexManager) RebuildIndex(idx *Index, rows iter.Seq2[string, Row]) error {
	if err := im.rebuild(idx, rows); err != nil {
		return err
	}
	im.log(idx).WithField("entries", idx.Len()).Info("index rebuilt")
	return nil
}

func (im *IndexManager) rebuild(idx *Index, rows iter.Seq2[string, Row]) error {
	var entries []Entry
	for pk, row := range rows {
		if value, ok := row[idx.Column]; ok {
			entries = append(entries, Entry{Value: value, PrimaryKey: pk})
		}
	}

	order := entryOrder(idx.Type)
	rebuilt := collection.NewFromValues(entries, order, collection.WithCapacity(idx.Capacity))
	if idx.Unique {
		var prev *Entry
		for e := range rebuilt.All() {
			if prev != nil && idx.byValue(*prev, e.Value) == 0 {
				return fmt.Errorf("%w: duplicate value %s on index %s", ErrUniqueViolation, e.Value, idx.Name)
			}
			prev = &e
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.entries.ReadOnly() {
		return fmt.Errorf("failed to rebuild index %s: %w", idx.Name, collection.ErrReadOnly)
	}
	idx.entries = rebuilt
	return nil
}

// ExportIndex writes a snapshot of idx to a local path or a file://, s3://
// URL.
func (im *IndexManager) ExportIndex(ctx context.Context, idx *Index, url string) error {
	data, id, err := encodeSnapshot(idx, time.Now())
	if err != nil {
		return err
	}
	w, err := openRemoteWriter(ctx, url, im.remote)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	im.log(idx).WithFields(logrus.Fields{"url": url, "snapshot": id, "bytes": len(data)}).Info("index exported")
	return nil
}

// ImportIndex reads a snapshot from a local path or a file://, http(s)://,
// s3:// URL and registers it, replacing any index on the same column.
func (im *IndexManager) ImportIndex(ctx context.Context, url string) (*Index, error) {
	r, err := openRemoteReader(ctx, url, im.remote)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	idx, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	key := indexKey(idx.Database, idx.Table, idx.Column)
	if _, exists := im.indexes[key]; exists {
		im.log(idx).Warn("imported index replaces the loaded one")
	}
	im.indexes[key] = idx
	im.log(idx).WithFields(logrus.Fields{"url": url, "snapshot": idx.SnapshotID, "entries": idx.Len()}).Info("index imported")
	return idx, nil
}

// InsertRow stores a row and adds it to every index of its table. Unique
// indexes are checked before anything is written.
func (im *IndexManager) InsertRow(database, table, pk string, row Row) (Transaction, error) {
	indexes := im.TableIndexes(database, table)
	old, err := im.persistence.GetRow(database, table, pk)
	if err != nil && !errors.Is(err, ErrRowNotFound) {
		return Transaction{}, err
	}

	for _, idx := range indexes {
		if idx.ReadOnly() {
			return Transaction{}, fmt.Errorf("index %s: %w", idx.Name, collection.ErrReadOnly)
		}
		if value, ok := row[idx.Column]; ok {
			if err := idx.checkInsert(value, pk); err != nil {
				return Transaction{}, err
			}
		}
	}

	txn, err := im.persistence.SaveRows(database, table, map[string]Row{pk: row}, im.identity)
	if err != nil {
		return Transaction{}, err
	}

	for _, idx := range indexes {
		if value, ok := old[idx.Column]; ok {
			if _, err := idx.Delete(value, pk); err != nil {
				return txn, err
			}
		}
		if value, ok := row[idx.Column]; ok {
			if err := idx.Insert(value, pk); err != nil {
				return txn, err
			}
		}
	}
	return txn, nil
}

// DeleteRow removes a row and its entries from every index of its table.
func (im *IndexManager) DeleteRow(database, table, pk string) (Transaction, error) {
	row, err := im.persistence.GetRow(database, table, pk)
	if err != nil {
		return Transaction{}, err
	}
	txn, err := im.persistence.DeleteRow(database, table, pk, im.identity)
	if err != nil {
		return Transaction{}, err
	}

	for _, idx := range im.TableIndexes(database, table) {
		value, ok := row[idx.Column]
		if !ok {
			continue
		}
		removed, err := idx.Delete(value, pk)
		if err != nil {
			return txn, err
		}
		if !removed {
			// the value in the row and the index disagree; fall back to a scan
			if _, err := idx.DeletePrimaryKey(pk); err != nil {
				return txn, err
			}
		}
	}
	return txn, nil
}

// Describe returns a one-line summary of each loaded index.
func (im *IndexManager) Describe() []string {
	var lines []string
	for _, idx := range im.Indexes() {
		kind := "index"
		if idx.Unique {
			kind = "unique index"
		}
		lines = append(lines, fmt.Sprintf("%s %s on %s (%s)", kind, idx.Name, idx.Qualified(), strings.ToLower(idx.Type.String())))
	}
	return lines
}
