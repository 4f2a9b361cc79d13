package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const orphanSampleLimit = 10

// fkValidator pre-checks referential integrity on the target before a
// foreign key is enabled. NULL local columns are permitted; an orphan is a
// row whose FK columns are all non-NULL with no matching referenced row.
type fkValidator struct {
	db *sql.DB
}

// orphanReport is the outcome of validating one constraint.
type orphanReport struct {
	FK      ForeignKey
	Table   string
	Orphans int64
	Samples []string
}

// Validate counts orphans for one foreign key and collects sample tuples.
// A missing referenced table reports as all rows orphaned would; it is
// surfaced as an error instead so the caller can skip with a clear message.
func (v *fkValidator) Validate(ctx context.Context, table string, fk ForeignKey) (*orphanReport, error) {
	exists, err := v.tableExists(ctx, fk.RefTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("referenced table %s does not exist on the target", fk.RefTable)
	}

	where := orphanPredicate(fk)
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s c WHERE %s", mysqlDialect.Ident(table), where)

	rep := &orphanReport{FK: fk, Table: table}
	if err := v.db.QueryRowContext(ctx, countSQL).Scan(&rep.Orphans); err != nil {
		return nil, fmt.Errorf("count orphans for %s: %w", fk.Name, err)
	}
	if rep.Orphans == 0 {
		return rep, nil
	}

	cols := make([]string, len(fk.Columns))
	for i, c := range fk.Columns {
		cols[i] = "c." + mysqlDialect.Ident(c)
	}
	sampleSQL := fmt.Sprintf("SELECT DISTINCT %s FROM %s c WHERE %s LIMIT %d",
		strings.Join(cols, ", "), mysqlDialect.Ident(table), where, orphanSampleLimit)

	rows, err := v.db.QueryContext(ctx, sampleSQL)
	if err != nil {
		return nil, fmt.Errorf("sample orphans for %s: %w", fk.Name, err)
	}
	defer rows.Close()

	vals := make([]any, len(fk.Columns))
	ptrs := make([]any, len(fk.Columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		parts := make([]string, len(vals))
		for i, val := range vals {
			parts[i] = fmt.Sprintf("%s=%s", fk.Columns[i], canonicalValue(val))
		}
		rep.Samples = append(rep.Samples, "("+strings.Join(parts, ", ")+")")
	}
	return rep, rows.Err()
}

// orphanPredicate builds: all local columns NOT NULL AND NOT EXISTS(match).
func orphanPredicate(fk ForeignKey) string {
	var parts []string
	for _, c := range fk.Columns {
		parts = append(parts, fmt.Sprintf("c.%s IS NOT NULL", mysqlDialect.Ident(c)))
	}

	var joins []string
	for i, c := range fk.Columns {
		joins = append(joins, fmt.Sprintf("r.%s = c.%s",
			mysqlDialect.Ident(fk.RefColumns[i]), mysqlDialect.Ident(c)))
	}
	parts = append(parts, fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s r WHERE %s)",
		mysqlDialect.Ident(fk.RefTable), strings.Join(joins, " AND ")))

	return strings.Join(parts, " AND ")
}

func (v *fkValidator) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := v.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", table, err)
	}
	return n > 0, nil
}
