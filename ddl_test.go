package main

import (
	"errors"
	"strings"
	"testing"
)

func serialDefault() *string {
	s := "nextval('users_id_seq'::regclass)"
	return &s
}

func TestEmitCreateTable(t *testing.T) {
	ts := &TableSchema{
		Table: TableDescriptor{Schema: "public", Name: "users"},
		Columns: []Column{
			{Name: "id", DataType: "integer", UDTName: "int4", Default: serialDefault()},
			{Name: "name", DataType: "character varying", UDTName: "varchar", CharMaxLen: 64, Nullable: true},
			{Name: "created_at", DataType: "timestamp without time zone", UDTName: "timestamp", Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}

	ddl, err := emitCreateTable(ts)
	if err != nil {
		t.Fatalf("emitCreateTable() error: %v", err)
	}

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `users`",
		"`id` INT AUTO_INCREMENT NOT NULL",
		"`name` VARCHAR(64)",
		"`created_at` DATETIME",
		"PRIMARY KEY (`id`)",
		"ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("DDL missing %q, got:\n%s", want, ddl)
		}
	}

	// the sequence default must not survive as a DEFAULT clause
	if strings.Contains(ddl, "nextval") || strings.Contains(ddl, "DEFAULT nextval") {
		t.Errorf("sequence default leaked into DDL:\n%s", ddl)
	}
	// nullable columns carry no NOT NULL
	if strings.Contains(ddl, "`name` VARCHAR(64) NOT NULL") {
		t.Error("nullable column emitted NOT NULL")
	}
}

func TestEmitCreateTableDefaults(t *testing.T) {
	now := "now()"
	status := "'pending'::character varying"
	ts := &TableSchema{
		Table: TableDescriptor{Schema: "public", Name: "orders"},
		Columns: []Column{
			{Name: "status", DataType: "character varying", UDTName: "varchar", CharMaxLen: 20, Default: &status},
			{Name: "created_at", DataType: "timestamp without time zone", UDTName: "timestamp", Default: &now, Nullable: true},
		},
	}

	ddl, err := emitCreateTable(ts)
	if err != nil {
		t.Fatalf("emitCreateTable() error: %v", err)
	}
	if !strings.Contains(ddl, "`status` VARCHAR(20) NOT NULL DEFAULT 'pending'") {
		t.Errorf("typed literal default not translated:\n%s", ddl)
	}
	if !strings.Contains(ddl, "`created_at` DATETIME DEFAULT CURRENT_TIMESTAMP") {
		t.Errorf("now() default not translated:\n%s", ddl)
	}
}

func TestEmitCreateTableEmptySchema(t *testing.T) {
	ts := &TableSchema{Table: TableDescriptor{Schema: "public", Name: "ghost"}}
	if _, err := emitCreateTable(ts); !errors.Is(err, errEmptySchema) {
		t.Errorf("emitCreateTable on zero columns = %v, want errEmptySchema", err)
	}
}

func TestEmitCreateIndex(t *testing.T) {
	idx := Index{
		Name:   "idx_users_email",
		Unique: true,
		Method: "btree",
		Columns: []IndexColumn{
			{Name: "email"},
			{Name: "created_at", Desc: true},
		},
	}
	ddl := emitCreateIndex("users", idx)
	want := "CREATE UNIQUE INDEX `idx_users_email` ON `users` (`email` ASC, `created_at` DESC) USING BTREE"
	if ddl != want {
		t.Errorf("emitCreateIndex = %q, want %q", ddl, want)
	}
}

func TestIndexMethod(t *testing.T) {
	tests := []struct{ in, want string }{
		{"btree", "BTREE"},
		{"hash", "HASH"},
		{"gin", "BTREE"},
		{"gist", "BTREE"},
		{"spgist", "BTREE"},
		{"brin", "BTREE"},
		{"", "BTREE"},
	}
	for _, tt := range tests {
		if got := indexMethod(tt.in); got != tt.want {
			t.Errorf("indexMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmitAddForeignKey(t *testing.T) {
	fk := ForeignKey{
		Name:       "fk_orders_user",
		Columns:    []string{"user_id"},
		RefTable:   "users",
		RefColumns: []string{"id"},
		UpdateRule: "CASCADE",
		DeleteRule: "SET NULL",
	}
	ddl := emitAddForeignKey("orders", fk)
	want := "ALTER TABLE `orders` ADD CONSTRAINT `fk_orders_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON UPDATE CASCADE ON DELETE SET NULL"
	if ddl != want {
		t.Errorf("emitAddForeignKey = %q, want %q", ddl, want)
	}
}

func TestIndexCompatibilityWarnings(t *testing.T) {
	schemas := []*TableSchema{
		{
			Table: TableDescriptor{Schema: "public", Name: "docs"},
			Indexes: []Index{
				{Name: "idx_docs_body", Method: "gin", Columns: []IndexColumn{{Name: "body"}}},
				{Name: "idx_docs_id", Method: "btree", Columns: []IndexColumn{{Name: "id"}}},
			},
		},
	}
	warnings := indexCompatibilityWarnings(schemas)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "gin") || !strings.Contains(warnings[0], "idx_docs_body") {
		t.Errorf("warning missing context: %s", warnings[0])
	}
}
