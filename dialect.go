package main

import "strings"

// Dialect carries the identifier-quoting rules of one SQL engine. Both engines
// escape an embedded quote character by doubling it.
type Dialect struct {
	quote string
}

var (
	pgDialect    = Dialect{quote: `"`}
	mysqlDialect = Dialect{quote: "`"}
)

// Ident quotes a single identifier.
func (d Dialect) Ident(name string) string {
	return d.quote + strings.ReplaceAll(name, d.quote, d.quote+d.quote) + d.quote
}

// IdentList quotes and comma-joins identifiers.
func (d Dialect) IdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Ident(n)
	}
	return strings.Join(quoted, ", ")
}

// Table quotes a possibly schema-qualified table reference.
func (d Dialect) Table(t TableDescriptor) string {
	if t.Schema == "" {
		return d.Ident(t.Name)
	}
	return d.Ident(t.Schema) + "." + d.Ident(t.Name)
}
