package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ccard-fpt/generate-synthetic-data/internal/catalog"
	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/pipeline"
)

var (
	dbHost       string
	dbPort       int
	dbUser       string
	dbPassword   string
	dbPrompt     bool
	dbSchema     string
	configPath   string
	outInsert    string
	outDelete    string
	rows         int
	scale        float64
	sampleSize   int
	seed         int64
	workers      int
	batchSize    int
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "generate-synthetic-data",
	Short: "Generate constraint-satisfying synthetic MySQL data as SQL",
	Long: `generate-synthetic-data introspects a MySQL schema and emits ordered
INSERT/DELETE SQL statements for synthetic rows that satisfy the schema's
primary keys, unique indexes, foreign keys, NOT NULL columns, and enum/set
domains. It never writes to the database itself — the output is SQL text.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.Flags().StringVar(&dbHost, "host", "127.0.0.1", "MySQL host")
	rootCmd.Flags().IntVar(&dbPort, "port", 3306, "MySQL port")
	rootCmd.Flags().StringVar(&dbUser, "user", "root", "MySQL user")
	rootCmd.Flags().StringVar(&dbPassword, "password", "", "MySQL password")
	rootCmd.Flags().BoolVar(&dbPrompt, "prompt", false, "Prompt for the MySQL password on the terminal instead of a flag")
	rootCmd.Flags().StringVar(&dbSchema, "schema", "", "Schema (database) name to introspect (required)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to the JSON table configuration (required)")
	rootCmd.Flags().StringVar(&outInsert, "out-insert", "inserts.sql", "Output file for INSERT statements")
	rootCmd.Flags().StringVar(&outDelete, "out-delete", "deletes.sql", "Output file for DELETE statements")
	rootCmd.Flags().IntVar(&rows, "rows", 1000, "Default row count for tables without a per-table override")
	rootCmd.Flags().Float64Var(&scale, "scale", 1.0, "Multiplier applied to every table's row count")
	rootCmd.Flags().IntVar(&sampleSize, "sample-size", 1000, "Row limit when sampling static FK source tables")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed, for reproducible runs")
	rootCmd.Flags().IntVar(&workers, "workers", 4, "Concurrent row-generation workers per table")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 100, "Rows per INSERT statement")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug tracing of constraint-resolution decisions")
}

func Execute() error {
	return rootCmd.Execute()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	log := diagnostics.New(os.Stderr, debug)

	if dbSchema == "" {
		return fmt.Errorf("--schema is required")
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Resolve operational parameters: CLI flag > env var > default for the
	// connection strings, CLI flag > default for the integer options (they
	// have no env var). The per-table config file has no global "options"
	// block to fall back to, unlike the seeder this is adapted from, so cfgVal
	// is always empty/zero.
	dbHost = resolveString(cmd, "host", dbHost, "SYNTH_DB_HOST", "", "127.0.0.1")
	dbUser = resolveString(cmd, "user", dbUser, "SYNTH_DB_USER", "", "root")
	dbPassword = resolveString(cmd, "password", dbPassword, "SYNTH_DB_PASSWORD", "", "")
	rows = resolveInt(cmd, "rows", rows, 0, 1000)
	workers = resolveInt(cmd, "workers", workers, 0, 4)
	batchSize = resolveInt(cmd, "batch-size", batchSize, 0, 100)
	sampleSize = resolveInt(cmd, "sample-size", sampleSize, 0, 1000)

	password := dbPassword
	if dbPrompt {
		password, err = promptPassword()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", dbUser, password, dbHost, dbPort, dbSchema)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("connecting to MySQL: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(workers + 2)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging MySQL: %w", err)
	}

	insertFile, err := os.Create(outInsert)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outInsert, err)
	}
	defer insertFile.Close()

	deleteFile, err := os.Create(outDelete)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outDelete, err)
	}
	defer deleteFile.Close()

	applyScale(cfg, scale)

	cat := catalog.NewMySQL(db)
	opts := pipeline.Options{
		Schema:              dbSchema,
		Seed:                seed,
		Workers:             workers,
		MaxRowsPerStatement: batchSize,
		DefaultRows:         rows,
		StaticSampleSize:    sampleSize,
	}

	if err := pipeline.Run(ctx, cat, cfg, opts, insertFile, deleteFile, log); err != nil {
		return err
	}

	fmt.Printf("Wrote %s and %s in %s\n", outInsert, outDelete, time.Since(start).Round(time.Millisecond))
	return nil
}

// applyScale multiplies every configured table's row count by factor,
// leaving tables without an explicit count untouched (they fall back to
// --rows at generation time).
func applyScale(cfg *config.Config, factor float64) {
	if factor == 1.0 {
		return
	}
	for i := range cfg.Entries {
		if cfg.Entries[i].Rows > 0 {
			cfg.Entries[i].Rows = int(float64(cfg.Entries[i].Rows) * factor)
		}
	}
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "MySQL password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
