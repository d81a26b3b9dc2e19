package model

// Schema descriptors returned by metadata calls. ContainerInfo/ItemInfo are
// the generic, family-agnostic projections; SchemaInfo/TableInfo/ColumnInfo
// etc. are the SQL-family-specific records they project from.

type ContainerInfo struct {
	Name          string
	ContainerType string // e.g. "schema", "region" — empty for engines with no concept
}

type ItemInfo struct {
	Name      string
	Container string
	Kind      string // e.g. "table", "view", "collection"
	RowCount  *int64
}

type FieldInfo struct {
	Name            string
	DataType        string
	IsNullable      bool
	IsPrimary       bool
	DefaultValue    *string
	OrdinalPosition int
}

type SchemaInfo struct {
	Name string
}

type TableInfo struct {
	Name      string
	Schema    string
	TableType string
	RowCount  *int64
}

type ColumnInfo struct {
	Name            string
	DataType        string
	IsNullable      bool
	ColumnDefault   *string
	IsPrimaryKey    bool
	OrdinalPosition int
}

type IndexInfo struct {
	Name      string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
	IndexType string
}

type ForeignKeyInfo struct {
	Name              string
	Columns           []string
	RefSchema         string
	RefTable          string
	RefColumns        []string
	OnUpdate          string
	OnDelete          string
}

type TableStats struct {
	RowCount    int64
	SizeBytes   *int64
	SizeDisplay *string
}

type RoutineInfo struct {
	Name        string
	Schema      string
	RoutineType string
	ReturnType  *string
}

type SequenceInfo struct {
	Name     string
	Schema   string
	DataType *string
}

type EnumInfo struct {
	Name     string
	Schema   string
	Variants []string
}

// ContainerInfoFromSchema losslessly projects a SchemaInfo to the generic view.
func ContainerInfoFromSchema(s SchemaInfo) ContainerInfo {
	return ContainerInfo{Name: s.Name}
}

// ItemInfoFromTable losslessly projects a TableInfo to the generic view.
func ItemInfoFromTable(t TableInfo) ItemInfo {
	kind := t.TableType
	if kind == "" {
		kind = "table"
	}
	return ItemInfo{Name: t.Name, Container: t.Schema, Kind: kind, RowCount: t.RowCount}
}

// FieldInfoFromColumn losslessly projects a ColumnInfo to the generic view.
func FieldInfoFromColumn(c ColumnInfo) FieldInfo {
	return FieldInfo{
		Name:            c.Name,
		DataType:        c.DataType,
		IsNullable:      c.IsNullable,
		IsPrimary:       c.IsPrimaryKey,
		DefaultValue:    c.ColumnDefault,
		OrdinalPosition: c.OrdinalPosition,
	}
}
