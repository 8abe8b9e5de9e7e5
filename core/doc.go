// Package core provides the schema types shared by BlockIndex packages.
//
// The package defines Identity, Database, Table, Column and IndexDef, the
// column type constants, and CompareValues, the type-aware ordering used by
// every index.
//
// # Identity
//
// Identity identifies the author of transactions (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Column Types
//
// Supported column types:
//   - StringType: Short strings (VARCHAR equivalent)
//   - TextType: Long text (TEXT equivalent)
//   - IntType: Integers
//   - FloatType: Floating point numbers
//   - BoolType: Boolean values
//   - DateType: Dates (2006-01-02)
//   - TimestampType: Date/time values
//   - JsonType: JSON documents, ordered as strings
//
// # Ordering
//
// Column values are stored as strings. CompareValues orders them by their
// column type, with the empty value first and unparsable values last:
//
//	core.CompareValues(core.IntType, "9", "10")    // -1
//	core.CompareValues(core.StringType, "9", "10") // 1
//
// # Table Definition
//
//	table := core.Table{
//	    Database: "mydb",
//	    Name:     "users",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntType, PrimaryKey: true},
//	        {Name: "name", Type: core.StringType},
//	        {Name: "active", Type: core.BoolType},
//	    },
//	}
package core
