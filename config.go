package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MigrationConfig is the full configuration record. The primary format is
// TOML; a .yaml/.yml extension selects the YAML loader for the same record.
type MigrationConfig struct {
	Source    SourceConfig      `toml:"source" yaml:"source"`
	Target    TargetConfig      `toml:"target" yaml:"target"`
	Migration MigrationSettings `toml:"migration" yaml:"migration"`
	Paths     PathsConfig       `toml:"paths" yaml:"paths"`
}

// SourceConfig identifies the PostgreSQL source.
type SourceConfig struct {
	Driver   string `toml:"driver" yaml:"driver"` // "pgsql"
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	Database string `toml:"database" yaml:"database"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	Schema   string `toml:"schema" yaml:"schema"` // optional; empty = all user schemas
}

// TargetConfig identifies the MariaDB/MySQL target.
type TargetConfig struct {
	Driver    string `toml:"driver" yaml:"driver"` // "mysql"
	Host      string `toml:"host" yaml:"host"`
	Port      int    `toml:"port" yaml:"port"`
	Database  string `toml:"database" yaml:"database"`
	User      string `toml:"user" yaml:"user"`
	Password  string `toml:"password" yaml:"password"`
	Charset   string `toml:"charset" yaml:"charset"`
	Collation string `toml:"collation" yaml:"collation"`
}

// MigrationSettings tune the data phase.
type MigrationSettings struct {
	ChunkSize             int      `toml:"chunk_size" yaml:"chunk_size"`
	LargeTableChunkSize   int      `toml:"large_table_chunk_size" yaml:"large_table_chunk_size"`
	LargeTableThresholdMB int64    `toml:"large_table_threshold_mb" yaml:"large_table_threshold_mb"`
	ParallelWorkers       int      `toml:"parallel_workers" yaml:"parallel_workers"`
	CheckpointInterval    int      `toml:"checkpoint_interval" yaml:"checkpoint_interval"` // in chunks
	SkipIndexes           bool     `toml:"skip_indexes" yaml:"skip_indexes"`
	MemoryBudgetMB        int64    `toml:"memory_budget_mb" yaml:"memory_budget_mb"`
	TablesInclude         []string `toml:"tables_include" yaml:"tables_include"`
	TablesExclude         []string `toml:"tables_exclude" yaml:"tables_exclude"`
}

// PathsConfig locates checkpoint and log directories.
type PathsConfig struct {
	CheckpointDir string `toml:"checkpoint_dir" yaml:"checkpoint_dir"`
	LogDir        string `toml:"log_dir" yaml:"log_dir"`
}

// loadConfig reads a config file and returns a validated MigrationConfig.
func loadConfig(path string) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if unknown := md.Undecoded(); len(unknown) > 0 {
			keys := make([]string, len(unknown))
			for i, k := range unknown {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *MigrationConfig {
	return &MigrationConfig{
		Source: SourceConfig{Driver: "pgsql", Port: 5432},
		Target: TargetConfig{
			Driver:    "mysql",
			Port:      3306,
			Charset:   "utf8mb4",
			Collation: "utf8mb4_unicode_ci",
		},
		Migration: MigrationSettings{
			ChunkSize:             10000,
			LargeTableChunkSize:   50000,
			LargeTableThresholdMB: 1000,
			ParallelWorkers:       4,
			CheckpointInterval:    100,
			MemoryBudgetMB:        512,
		},
		Paths: PathsConfig{CheckpointDir: "checkpoints"},
	}
}

func (c *MigrationConfig) validate() error {
	if c.Source.Driver != "pgsql" {
		return fmt.Errorf("source.driver must be pgsql, got %q", c.Source.Driver)
	}
	if c.Target.Driver != "mysql" {
		return fmt.Errorf("target.driver must be mysql, got %q", c.Target.Driver)
	}
	for _, f := range []struct{ name, val string }{
		{"source.host", c.Source.Host},
		{"source.database", c.Source.Database},
		{"source.user", c.Source.User},
		{"target.host", c.Target.Host},
		{"target.database", c.Target.Database},
		{"target.user", c.Target.User},
	} {
		if f.val == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	if c.Migration.ChunkSize <= 0 {
		return fmt.Errorf("migration.chunk_size must be positive")
	}
	if c.Migration.LargeTableChunkSize <= 0 {
		return fmt.Errorf("migration.large_table_chunk_size must be positive")
	}
	if c.Migration.ParallelWorkers <= 0 {
		return fmt.Errorf("migration.parallel_workers must be positive")
	}
	if c.Migration.CheckpointInterval <= 0 {
		return fmt.Errorf("migration.checkpoint_interval must be positive")
	}
	if c.Migration.MemoryBudgetMB <= 0 {
		return fmt.Errorf("migration.memory_budget_mb must be positive")
	}
	if c.Paths.CheckpointDir == "" {
		return fmt.Errorf("paths.checkpoint_dir is required")
	}
	return nil
}

// memoryBudgetBytes is the process-wide envelope M from which chunk and batch
// sizes are derived.
func (c *MigrationConfig) memoryBudgetBytes() int64 {
	return c.Migration.MemoryBudgetMB * 1024 * 1024
}

// tableSelection is the resolved table whitelist/blacklist. The rule is
// included-minus-excluded: exclude always wins.
type tableSelection struct {
	includeAll bool
	include    map[string]bool
	exclude    map[string]bool
}

// tableSelection folds CLI table flags into the configured lists: includes
// intersect when both are present, excludes union.
func (c *MigrationConfig) tableSelection(cliTables, cliSkip []string) tableSelection {
	include := c.Migration.TablesInclude
	switch {
	case len(cliTables) > 0 && len(include) > 0:
		include = intersect(include, cliTables)
	case len(cliTables) > 0:
		include = cliTables
	}

	sel := tableSelection{
		includeAll: len(c.Migration.TablesInclude) == 0 && len(cliTables) == 0,
		include:    make(map[string]bool, len(include)),
		exclude:    make(map[string]bool),
	}
	for _, t := range include {
		sel.include[t] = true
	}
	for _, t := range c.Migration.TablesExclude {
		sel.exclude[t] = true
	}
	for _, t := range cliSkip {
		sel.exclude[t] = true
	}
	return sel
}

func (s tableSelection) match(name string) bool {
	if s.exclude[name] {
		return false
	}
	return s.includeAll || s.include[name]
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}
