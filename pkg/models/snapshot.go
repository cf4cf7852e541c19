package models

import "time"

// SchemaSnapshot is a point-in-time structured description of a connection's
// schema. Snapshots are immutable once built: a refresh replaces the whole
// value, never mutates it in place, so concurrent readers always observe a
// consistent introspection.
type SchemaSnapshot struct {
	Tables      []SnapshotTable `json:"tables"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

// SnapshotTable is a table with its columns in catalog order.
type SnapshotTable struct {
	Schema  string           `json:"schema"`
	Name    string           `json:"name"`
	Columns []SnapshotColumn `json:"columns"`
	// ForeignKeys are included when the dialect supports FK introspection.
	ForeignKeys []SnapshotForeignKey `json:"foreign_keys,omitempty"`
}

// SnapshotColumn is a column with its source data type.
type SnapshotColumn struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
	IsPrimary  bool   `json:"is_primary"`
}

// SnapshotForeignKey records a relationship usable as a join hint.
type SnapshotForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// TableNames returns the ordered table names, qualified where the source
// schema is not the dialect default.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.QualifiedName())
	}
	return names
}

// QualifiedName returns "schema.table" or just "table" for default schemas.
func (t *SnapshotTable) QualifiedName() string {
	if t.Schema == "" || t.Schema == "public" || t.Schema == "dbo" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
