package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nickyhof/BlockIndex/core"
	"github.com/nickyhof/BlockIndex/ps"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// execute runs a single command line
func (cli *CLI) execute(line string) error {
	args, err := tokenize(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd := strings.ToLower(args[0])
	args = args[1:]
	switch cmd {
	case ".quit", ".exit", ".q":
		return errQuit
	case ".help", ".h", ".?":
		cli.printHelp()
	case ".history":
		cli.printHistory()
	case ".version":
		fmt.Fprintf(cli.out, "BlockIndex version %s\n", Version)
	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")
	case ".use":
		if len(args) != 1 {
			return usage(".use <database>")
		}
		cli.database = args[0]
		cli.success("Using database: %s", cli.database)
	case ".tables":
		return cli.showTables()
	case ".source":
		if len(args) != 1 {
			return usage(".source <file>")
		}
		return cli.importFile(args[0])
	case "create":
		return cli.create(args)
	case "drop":
		return cli.drop(args)
	case "insert":
		return cli.insert(args)
	case "delete":
		return cli.delete(args)
	case "lookup":
		return cli.lookup(args)
	case "range":
		return cli.lookupRange(args)
	case "purge":
		return cli.purge(args)
	case "save":
		return cli.save()
	case "load":
		return cli.load(args)
	case "asof":
		return cli.asof(args)
	case "export":
		return cli.export(args)
	case "import":
		return cli.importIndex(args)
	case "stats":
		return cli.stats(args)
	case "indexes":
		cli.showIndexes()
	case "log":
		return cli.log(args)
	default:
		return fmt.Errorf("unknown command: %s (type .help for commands)", cmd)
	}
	return nil
}

func (cli *CLI) success(format string, a ...any) {
	fmt.Fprintf(cli.out, "%s✓ %s%s\n", SuccessColor, fmt.Sprintf(format, a...), ResetColor)
}

// qualify resolves [db.]table against the current database
func (cli *CLI) qualify(name string) (database, table string, err error) {
	if database, table, ok := strings.Cut(name, "."); ok {
		return database, table, nil
	}
	if cli.database == "" {
		return "", "", fmt.Errorf("no database selected for %s (use .use <database> or db.table)", name)
	}
	return cli.database, name, nil
}

// qualifyColumn resolves [db.]table.column against the current database
func (cli *CLI) qualifyColumn(name string) (database, table, column string, err error) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", "", fmt.Errorf("expected [db.]table.column, got %s", name)
	}
	database, table, err = cli.qualify(name[:i])
	return database, table, name[i+1:], err
}

func (cli *CLI) index(name string) (*ps.Index, error) {
	database, table, column, err := cli.qualifyColumn(name)
	if err != nil {
		return nil, err
	}
	idx, ok := cli.indexes.GetIndex(database, table, column)
	if !ok {
		return nil, fmt.Errorf("%w on %s.%s.%s", ps.ErrIndexNotFound, database, table, column)
	}
	return idx, nil
}

// create table [db.]table col:type ...   (first column is the primary key)
// create [unique] index name on [db.]table.column
func (cli *CLI) create(args []string) error {
	if len(args) == 0 {
		return usage("create table|index ...")
	}
	switch strings.ToLower(args[0]) {
	case "table":
		return cli.createTable(args[1:])
	case "unique":
		if len(args) < 2 || strings.ToLower(args[1]) != "index" {
			return usage("create unique index <name> on [db.]table.column")
		}
		return cli.createIndex(args[2:], true)
	case "index":
		return cli.createIndex(args[1:], false)
	}
	return usage("create table|index ...")
}

func (cli *CLI) createTable(args []string) error {
	if len(args) < 2 {
		return usage("create table [db.]table <col:type> ...")
	}
	database, name, err := cli.qualify(args[0])
	if err != nil {
		return err
	}
	table := core.Table{Database: database, Name: name}
	for i, def := range args[1:] {
		colName, typeName, ok := strings.Cut(def, ":")
		if !ok {
			typeName = "string"
		}
		colType, err := core.ParseColumnType(typeName)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, core.Column{Name: colName, Type: colType, PrimaryKey: i == 0})
	}
	txn, err := cli.persistence.CreateTable(table, cli.identity())
	if err != nil {
		return err
	}
	cli.success("Table %s.%s created (%s)", database, name, txn.Short())
	return nil
}

func (cli *CLI) createIndex(args []string, unique bool) error {
	if len(args) != 3 || strings.ToLower(args[1]) != "on" {
		return usage("create [unique] index <name> on [db.]table.column")
	}
	database, table, column, err := cli.qualifyColumn(args[2])
	if err != nil {
		return err
	}
	idx, err := cli.indexes.CreateIndex(args[0], database, table, column, unique)
	if err != nil {
		return err
	}
	cli.success("Index %s created on %s (%s entries)", idx.Name, idx.Qualified(), humanize.Comma(int64(idx.Len())))
	return nil
}

// drop index [db.]table.column
func (cli *CLI) drop(args []string) error {
	if len(args) != 2 || strings.ToLower(args[0]) != "index" {
		return usage("drop index [db.]table.column")
	}
	database, table, column, err := cli.qualifyColumn(args[1])
	if err != nil {
		return err
	}
	if err := cli.indexes.DropIndex(database, table, column); err != nil {
		return err
	}
	cli.success("Index on %s.%s.%s dropped", database, table, column)
	return nil
}

// insert [db.]table pk col=value ...
func (cli *CLI) insert(args []string) error {
	if len(args) < 2 {
		return usage("insert [db.]table <pk> [col=value ...]")
	}
	database, table, err := cli.qualify(args[0])
	if err != nil {
		return err
	}
	pk := args[1]

	row := ps.Row{}
	if schema, err := cli.persistence.GetTable(database, table); err == nil {
		if col, ok := schema.PrimaryKey(); ok {
			row[col.Name] = pk
		}
	}
	for _, assign := range args[2:] {
		col, value, ok := strings.Cut(assign, "=")
		if !ok {
			return fmt.Errorf("expected col=value, got %s", assign)
		}
		row[col] = value
	}

	txn, err := cli.indexes.InsertRow(database, table, pk, row)
	if err != nil {
		return err
	}
	cli.success("Row %s written (%s)", pk, txn.Short())
	return nil
}

// delete [db.]table pk
func (cli *CLI) delete(args []string) error {
	if len(args) != 2 {
		return usage("delete [db.]table <pk>")
	}
	database, table, err := cli.qualify(args[0])
	if err != nil {
		return err
	}
	txn, err := cli.indexes.DeleteRow(database, table, args[1])
	if err != nil {
		return err
	}
	cli.success("Row %s deleted (%s)", args[1], txn.Short())
	return nil
}

func (cli *CLI) printKeys(keys []string) {
	for _, k := range keys {
		fmt.Fprintf(cli.out, "  %s\n", k)
	}
	fmt.Fprintf(cli.out, "(%s keys)\n", humanize.Comma(int64(len(keys))))
}

// lookup [db.]table.column value
func (cli *CLI) lookup(args []string) error {
	if len(args) != 2 {
		return usage("lookup [db.]table.column <value>")
	}
	idx, err := cli.index(args[0])
	if err != nil {
		return err
	}
	cli.printKeys(idx.Lookup(args[1]))
	return nil
}

// range [db.]table.column min max
func (cli *CLI) lookupRange(args []string) error {
	if len(args) != 3 {
		return usage("range [db.]table.column <min> <max>")
	}
	idx, err := cli.index(args[0])
	if err != nil {
		return err
	}
	cli.printKeys(idx.LookupRange(args[1], args[2]))
	return nil
}

// purge [db.]table.column min max deletes every row whose indexed value lies
// in [min, max]
func (cli *CLI) purge(args []string) error {
	if len(args) != 3 {
		return usage("purge [db.]table.column <min> <max>")
	}
	idx, err := cli.index(args[0])
	if err != nil {
		return err
	}
	keys := idx.LookupRange(args[1], args[2])
	for _, pk := range keys {
		if _, err := cli.indexes.DeleteRow(idx.Database, idx.Table, pk); err != nil {
			return err
		}
	}
	cli.success("Purged %s rows", humanize.Comma(int64(len(keys))))
	return nil
}

func (cli *CLI) save() error {
	txn, err := cli.indexes.SaveAll()
	if err != nil {
		return err
	}
	if txn.Id == "" {
		fmt.Fprintln(cli.out, "Nothing to save")
		return nil
	}
	cli.success("Indexes saved (%s)", txn.Short())
	return nil
}

// load [db.]table
func (cli *CLI) load(args []string) error {
	if len(args) != 1 {
		return usage("load [db.]table")
	}
	database, table, err := cli.qualify(args[0])
	if err != nil {
		return err
	}
	n, err := cli.indexes.LoadIndexes(database, table)
	if err != nil {
		return err
	}
	cli.success("Loaded %d index(es) of %s.%s", n, database, table)
	return nil
}

// asof txn [db.]table.column min [max]
func (cli *CLI) asof(args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return usage("asof <txn> [db.]table.column <value> [max]")
	}
	database, table, column, err := cli.qualifyColumn(args[1])
	if err != nil {
		return err
	}
	idx, err := cli.indexes.LoadIndexAt(args[0], database, table, column)
	if err != nil {
		return err
	}
	maxValue := args[2]
	if len(args) == 4 {
		maxValue = args[3]
	}
	cli.printKeys(idx.LookupRange(args[2], maxValue))
	return nil
}

// export [db.]table.column url
func (cli *CLI) export(args []string) error {
	if len(args) != 2 {
		return usage("export [db.]table.column <url>")
	}
	idx, err := cli.index(args[0])
	if err != nil {
		return err
	}
	if err := cli.indexes.ExportIndex(context.Background(), idx, args[1]); err != nil {
		return err
	}
	cli.success("Exported %s to %s", idx.Qualified(), args[1])
	return nil
}

// import url
func (cli *CLI) importIndex(args []string) error {
	if len(args) != 1 {
		return usage("import <url>")
	}
	idx, err := cli.indexes.ImportIndex(context.Background(), args[0])
	if err != nil {
		return err
	}
	cli.success("Imported %s (%s entries)", idx.Qualified(), humanize.Comma(int64(idx.Len())))
	return nil
}

// stats [db.]table.column
func (cli *CLI) stats(args []string) error {
	if len(args) != 1 {
		return usage("stats [db.]table.column")
	}
	idx, err := cli.index(args[0])
	if err != nil {
		return err
	}
	s := idx.Stats()
	fmt.Fprintf(cli.out, "%s%s%s\n", BoldColor, idx.Qualified(), ResetColor)
	fmt.Fprintf(cli.out, "  entries:   %s (%s distinct)\n", humanize.Comma(int64(s.Entries)), humanize.Comma(int64(s.Distinct)))
	fmt.Fprintf(cli.out, "  blocks:    %s of capacity %d\n", humanize.Comma(int64(s.Blocks)), s.Capacity)
	fmt.Fprintf(cli.out, "  values:    %s .. %s\n", s.MinValue, s.MaxValue)
	fmt.Fprintf(cli.out, "  size:      %s\n", humanize.Bytes(s.Bytes))
	if idx.SnapshotID != "" {
		fmt.Fprintf(cli.out, "  snapshot:  %s (%s)\n", idx.SnapshotID, humanize.Time(idx.UpdatedAt))
	}
	if s.ReadOnly {
		fmt.Fprintln(cli.out, "  read-only")
	}
	return nil
}

func (cli *CLI) showIndexes() {
	lines := cli.indexes.Describe()
	if len(lines) == 0 {
		fmt.Fprintln(cli.out, "No indexes loaded")
		return
	}
	for _, line := range lines {
		fmt.Fprintf(cli.out, "  %s\n", line)
	}
}

func (cli *CLI) showTables() error {
	if cli.database == "" {
		return usage(".use <database> first")
	}
	for _, table := range cli.persistence.ListTables(cli.database) {
		fmt.Fprintf(cli.out, "  %s\n", table)
	}
	return nil
}

// log [n]
func (cli *CLI) log(args []string) error {
	limit := 10
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return usage("log [count]")
		}
		limit = n
	}
	history, err := cli.persistence.History(limit)
	if err != nil {
		return err
	}
	for _, txn := range history {
		fmt.Fprintf(cli.out, "  %s%s%s  %-14s  %s\n", PromptColor, txn.Short(), ResetColor, humanize.Time(txn.When), txn.Message)
	}
	return nil
}

func (cli *CLI) identity() core.Identity {
	return cli.indexes.Identity()
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h          Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit       Exit the CLI")
	fmt.Fprintln(cli.out, "  .use <db>          Set the current database context")
	fmt.Fprintln(cli.out, "  .tables            List tables in the current database")
	fmt.Fprintln(cli.out, "  .source <file>     Run commands from a file")
	fmt.Fprintln(cli.out, "  .history           Show command history")
	fmt.Fprintln(cli.out, "  .clear             Clear the screen")
	fmt.Fprintln(cli.out, "  .version           Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sIndex Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  create table <t> <col:type> ...            first column is the primary key")
	fmt.Fprintln(cli.out, "  create [unique] index <name> on <t>.<col>")
	fmt.Fprintln(cli.out, "  drop index <t>.<col>")
	fmt.Fprintln(cli.out, "  insert <t> <pk> <col=value> ...")
	fmt.Fprintln(cli.out, "  delete <t> <pk>")
	fmt.Fprintln(cli.out, "  lookup <t>.<col> <value>")
	fmt.Fprintln(cli.out, "  range <t>.<col> <min> <max>")
	fmt.Fprintln(cli.out, "  purge <t>.<col> <min> <max>               delete matching rows")
	fmt.Fprintln(cli.out, "  save                                      snapshot every index")
	fmt.Fprintln(cli.out, "  load <t>                                  load saved indexes")
	fmt.Fprintln(cli.out, "  asof <txn> <t>.<col> <value> [max]        query a past snapshot")
	fmt.Fprintln(cli.out, "  export <t>.<col> <url>                    path, file://, s3://")
	fmt.Fprintln(cli.out, "  import <url>                              path, file://, s3://, http(s)://")
	fmt.Fprintln(cli.out, "  stats <t>.<col>")
	fmt.Fprintln(cli.out, "  indexes")
	fmt.Fprintln(cli.out, "  log [n]")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Tables may be written db.table; values with spaces can be quoted.")
	fmt.Fprintln(cli.out)
}

// tokenize splits a command line on whitespace. Single or double quotes group
// words; a backslash escapes the next character inside quotes.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false
	var quote byte

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == '\\' && i+1 < len(line) {
				i++
				current.WriteByte(line[i])
			} else if ch == quote {
				quote = 0
			} else {
				current.WriteByte(line[i])
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteByte(line[i])
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
