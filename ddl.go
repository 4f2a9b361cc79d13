package main

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptySchema = errors.New("table has no columns after extraction")

// unsupported access methods downgrade to BTREE on the target
var btreeFallbackMethods = map[string]bool{
	"gin": true, "gist": true, "spgist": true, "brin": true,
}

// emitCreateTable renders the target CREATE TABLE statement for one table.
func emitCreateTable(s *TableSchema) (string, error) {
	if len(s.Columns) == 0 {
		return "", fmt.Errorf("%s: %w", s.Table, errEmptySchema)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", mysqlDialect.Ident(s.TargetName()))

	for i, col := range s.Columns {
		fmt.Fprintf(&b, "  %s %s", mysqlDialect.Ident(col.Name), columnDefinition(col))
		if i < len(s.Columns)-1 || len(s.PrimaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}

	if len(s.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", mysqlDialect.IdentList(s.PrimaryKey))
	}

	b.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	return b.String(), nil
}

func columnDefinition(col Column) string {
	typ := mapColumnType(col)
	if isSerialDefault(col.Default) && !strings.Contains(typ, "AUTO_INCREMENT") {
		typ += " AUTO_INCREMENT"
	}

	def := typ
	if !col.Nullable {
		def += " NOT NULL"
	}

	if col.Default != nil && !strings.Contains(def, "AUTO_INCREMENT") {
		if expr, ok := translateDefault(*col.Default); ok {
			def += " DEFAULT " + expr
		}
	}
	return def
}

// emitCreateIndex renders a CREATE INDEX against the target, downgrading
// access methods the target cannot serve.
func emitCreateIndex(table string, idx Index) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s (", mysqlDialect.Ident(idx.Name), mysqlDialect.Ident(table))

	for i, ic := range idx.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mysqlDialect.Ident(ic.Name))
		if ic.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	fmt.Fprintf(&b, ") USING %s", indexMethod(idx.Method))
	return b.String()
}

func indexMethod(method string) string {
	if btreeFallbackMethods[method] || method == "" {
		return "BTREE"
	}
	return strings.ToUpper(method)
}

// emitAddForeignKey renders the deferred FK constraint for one relation.
func emitAddForeignKey(table string, fk ForeignKey) string {
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
		mysqlDialect.Ident(table),
		mysqlDialect.Ident(fk.Name),
		mysqlDialect.IdentList(fk.Columns),
		mysqlDialect.Ident(fk.RefTable),
		mysqlDialect.IdentList(fk.RefColumns),
		fk.UpdateRule,
		fk.DeleteRule,
	)
}

// indexCompatibilityWarnings reports indexes whose access method is silently
// downgraded, so the operator can review them before relying on plans.
func indexCompatibilityWarnings(schemas []*TableSchema) []string {
	var warnings []string
	for _, s := range schemas {
		for _, idx := range s.Indexes {
			if btreeFallbackMethods[idx.Method] {
				warnings = append(warnings,
					fmt.Sprintf("%s.%s: access method %q is not supported on the target, downgraded to BTREE",
						s.TargetName(), idx.Name, idx.Method))
			}
		}
	}
	return warnings
}
