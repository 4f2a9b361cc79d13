package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagFull        bool
	flagSchemaOnly  bool
	flagDataOnly    bool
	flagResume      bool
	flagDryRun      bool
	flagSkipIndexes bool
	flagFindMissing bool
	flagTables      string
	flagSkipTables  string
	flagAfterDate   string
	flagBeforeDate  string
	flagDateColumn  string
)

var rootCmd = &cobra.Command{
	Use:     "mariaferry [config.toml]",
	Short:   "PostgreSQL to MariaDB migration tool",
	Version: versionString(),
	Args:    cobra.MaximumNArgs(1),
	RunE:    runMigration,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "", "path to migration config file (TOML or YAML)")
	f.BoolVar(&flagFull, "full", false, "run all phases: schema, data, indexes, foreign keys, validation (default)")
	f.BoolVar(&flagSchemaOnly, "schema-only", false, "create tables, indexes, and foreign keys without moving data")
	f.BoolVar(&flagDataOnly, "data-only", false, "move data only; create tables missing on the target")
	f.BoolVar(&flagResume, "resume", false, "resume tables from persisted checkpoints")
	f.BoolVar(&flagDryRun, "dry-run", false, "print the migration plan without touching the target")
	f.BoolVar(&flagSkipIndexes, "skip-indexes", false, "do not create indexes")
	f.BoolVar(&flagFindMissing, "find-missing", false, "only report source rows absent from the target")
	f.StringVar(&flagTables, "tables", "", "comma-separated table whitelist (intersected with config include)")
	f.StringVar(&flagSkipTables, "skip-tables", "", "comma-separated table blacklist (united with config exclude)")
	f.StringVar(&flagAfterDate, "after-date", "", "only rows with date-column >= this bound (YYYY-MM-DD[ HH:MM:SS])")
	f.StringVar(&flagBeforeDate, "before-date", "", "only rows with date-column < this bound (YYYY-MM-DD[ HH:MM:SS])")
	f.StringVar(&flagDateColumn, "date-column", "", "column the date bounds apply to")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dateBoundRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}( \d{2}:\d{2}:\d{2})?$`)

func runMigration(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfgPath := flagConfig
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if cfgPath == "" {
		return fmt.Errorf("config file required: mariaferry <config.toml> or mariaferry --config <config.toml>")
	}

	opts, err := resolveOptions()
	if err != nil {
		// configuration problems abort before any database work
		return err
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if err := logx.openLogFile(cfg.Paths.LogDir); err != nil {
		return err
	}
	defer logx.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logx.Infof("mariaferry %s — PostgreSQL → MariaDB migration", versionString())
	logx.Infof("mode=%s resume=%t dry_run=%t workers=%d chunk_size=%d checkpoint_interval=%d",
		opts.Mode, opts.Resume, opts.DryRun,
		cfg.Migration.ParallelWorkers, cfg.Migration.ChunkSize, cfg.Migration.CheckpointInterval)

	_, err = newOrchestrator(cfg, opts).Run(ctx)
	if err != nil {
		logx.Errorf("migration failed: %v", err)
		return err
	}
	return nil
}

func resolveOptions() (runOptions, error) {
	opts := runOptions{
		Mode:        modeFull,
		Resume:      flagResume,
		DryRun:      flagDryRun,
		SkipIndexes: flagSkipIndexes,
		FindMissing: flagFindMissing,
		Tables:      splitList(flagTables),
		SkipTables:  splitList(flagSkipTables),
	}

	modes := 0
	if flagFull {
		modes++
	}
	if flagSchemaOnly {
		opts.Mode = modeSchemaOnly
		modes++
	}
	if flagDataOnly {
		opts.Mode = modeDataOnly
		modes++
	}
	if modes > 1 {
		return opts, fmt.Errorf("--full, --schema-only, and --data-only are mutually exclusive")
	}

	if flagAfterDate != "" || flagBeforeDate != "" {
		if flagDateColumn == "" {
			return opts, fmt.Errorf("--date-column is required when --after-date or --before-date is set")
		}
		for _, bound := range []string{flagAfterDate, flagBeforeDate} {
			if bound != "" && !dateBoundRe.MatchString(bound) {
				return opts, fmt.Errorf("invalid date bound %q, expected YYYY-MM-DD[ HH:MM:SS]", bound)
			}
		}
		opts.Filter = &RowFilter{
			Column: flagDateColumn,
			After:  flagAfterDate,
			Before: flagBeforeDate,
		}
	} else if flagDateColumn != "" {
		return opts, fmt.Errorf("--date-column requires --after-date or --before-date")
	}

	return opts, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
