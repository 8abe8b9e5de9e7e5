package core

import (
	"fmt"
	"strings"
)

// Identity identifies the author of a transaction (the Git commit author).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Database struct {
	Name string `json:"name"`
}

type ColumnType int

const (
	StringType ColumnType = iota
	IntType
	FloatType
	BoolType
	TextType
	DateType
	TimestampType
	JsonType
)

var columnTypeNames = map[ColumnType]string{
	StringType:    "STRING",
	IntType:       "INT",
	FloatType:     "FLOAT",
	BoolType:      "BOOL",
	TextType:      "TEXT",
	DateType:      "DATE",
	TimestampType: "TIMESTAMP",
	JsonType:      "JSON",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType maps a type name such as "int" or "VARCHAR" to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "STRING", "VARCHAR":
		return StringType, nil
	case "INT", "INTEGER", "BIGINT":
		return IntType, nil
	case "FLOAT", "DOUBLE", "REAL":
		return FloatType, nil
	case "BOOL", "BOOLEAN":
		return BoolType, nil
	case "TEXT":
		return TextType, nil
	case "DATE":
		return DateType, nil
	case "TIMESTAMP", "DATETIME":
		return TimestampType, nil
	case "JSON":
		return JsonType, nil
	}
	return StringType, fmt.Errorf("unknown column type %q", name)
}

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey"`
}

type Table struct {
	Database string   `json:"database"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the primary key column, or the first column when none
// is flagged.
func (t Table) PrimaryKey() (Column, bool) {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	if len(t.Columns) > 0 {
		return t.Columns[0], true
	}
	return Column{}, false
}
