package core

import "time"

// IndexDef describes a secondary index on a single column.
type IndexDef struct {
	Name     string     `json:"name"`
	Database string     `json:"database"`
	Table    string     `json:"table"`
	Column   string     `json:"column"`
	Type     ColumnType `json:"type"`
	Unique   bool       `json:"unique"`
	Capacity int        `json:"capacity"` // block capacity of the backing collection
	// UpdatedAt is the time of the last snapshot, zero until one is saved
	UpdatedAt time.Time `json:"updated_at"`
}

// Qualified returns database.table.column.
func (d IndexDef) Qualified() string {
	return d.Database + "." + d.Table + "." + d.Column
}
