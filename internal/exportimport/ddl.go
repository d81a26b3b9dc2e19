package exportimport

import (
	"fmt"
	"strings"

	"github.com/berbicanes/queryark/internal/model"
)

// GenerateDDL renders a CREATE TABLE statement for the given column/index/
// foreign-key metadata, followed by one CREATE [UNIQUE] INDEX statement per
// non-primary index, per §4.9 "DDL generation".
func GenerateDDL(schema, table string, columns []model.ColumnInfo, indexes []model.IndexInfo, foreignKeys []model.ForeignKeyInfo) string {
	var sb strings.Builder

	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quoteAnsiQualified(schema, table))
	sb.WriteString(" (\n")

	var lines []string
	var primaryKeyCols []string
	for _, col := range columns {
		lines = append(lines, "  "+columnDefinition(col))
		if col.IsPrimaryKey {
			primaryKeyCols = append(primaryKeyCols, col.Name)
		}
	}
	if len(primaryKeyCols) > 0 {
		lines = append(lines, "  PRIMARY KEY ("+quoteAnsiList(primaryKeyCols)+")")
	}
	for _, fk := range foreignKeys {
		lines = append(lines, "  "+foreignKeyClause(fk))
	}

	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);\n")

	for _, idx := range indexes {
		if idx.IsPrimary {
			continue
		}
		sb.WriteString(indexStatement(schema, table, idx))
		sb.WriteString("\n")
	}

	return sb.String()
}

func columnDefinition(col model.ColumnInfo) string {
	def := quoteAnsi(col.Name) + " " + col.DataType
	if !col.IsNullable {
		def += " NOT NULL"
	}
	if col.ColumnDefault != nil {
		def += " DEFAULT " + *col.ColumnDefault
	}
	return def
}

func foreignKeyClause(fk model.ForeignKeyInfo) string {
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		quoteAnsi(fk.Name),
		quoteAnsiList(fk.Columns),
		quoteAnsiQualified(fk.RefSchema, fk.RefTable),
		quoteAnsiList(fk.RefColumns),
	)
	if fk.OnUpdate != "" && !strings.EqualFold(fk.OnUpdate, "NO ACTION") {
		clause += " ON UPDATE " + fk.OnUpdate
	}
	if fk.OnDelete != "" && !strings.EqualFold(fk.OnDelete, "NO ACTION") {
		clause += " ON DELETE " + fk.OnDelete
	}
	return clause
}

func indexStatement(schema, table string, idx model.IndexInfo) string {
	kind := "INDEX"
	if idx.IsUnique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s);",
		kind,
		quoteAnsi(idx.Name),
		quoteAnsiQualified(schema, table),
		quoteAnsiList(idx.Columns),
	)
}

func quoteAnsiList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteAnsi(n)
	}
	return strings.Join(quoted, ", ")
}
