package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/config"
	"github.com/parquio/parquio/pkg/dbio"
	"github.com/parquio/parquio/pkg/logger"
	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/storage"
	"github.com/parquio/parquio/pkg/transcode"
	"github.com/parquio/parquio/pkg/xerrors"

	// Register the supported database/sql drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/snowflakedb/gosnowflake"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var (
		configFile  string
		driver      string
		dsn         string
		batchSize   int
		logLevel    string
		logEncoding string
	)

	root := &cobra.Command{
		Use:   "parquio",
		Short: "parquio - query results to parquet and back",
		Long: `parquio moves data between SQL databases and parquet files in both
directions: the query command streams a result set into one or more parquet
files, the insert command streams a parquet file into a table.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file (optional)")
	root.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: pgx, mysql or snowflake")
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "Driver-specific connection string (or PARQUIO_DSN)")
	root.PersistentFlags().IntVar(&batchSize, "batch-size", 0, "Rows per batch and per parquet row group")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logEncoding, "log-encoding", "", "Log encoding (console, json)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if driver != "" {
			cfg.Driver = driver
		}
		if dsn != "" {
			cfg.DSN = dsn
		}
		if batchSize > 0 {
			cfg.BatchSize = batchSize
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logEncoding != "" {
			cfg.LogEncoding = logEncoding
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := logger.Init(logger.Config{
			Level:    cfg.LogLevel,
			Encoding: cfg.LogEncoding,
		}); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("parquio v%s\n", version)
		},
	})

	var (
		compression    string
		batchesPerFile int
	)
	queryCmd := &cobra.Command{
		Use:   "query OUTPUT QUERY [PARAM...]",
		Short: "Run a query and write the result set to parquet",
		Long: `Run a query and write the result set to one or more parquet files.
Each batch of rows becomes one row group. With --batches-per-file N the
output rolls over to a numbered file (out_1.par, out_2.par, ...) every N
batches.

Example:
  parquio query --driver pgx --dsn "$DSN" out.par "SELECT * FROM birthdays"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if compression != "" {
				cfg.Compression = compression
			}
			if cmd.Flags().Changed("batches-per-file") {
				cfg.BatchesPerFile = batchesPerFile
			}
			if len(args) > 0 {
				cfg.OutputPath = args[0]
			}
			if len(args) > 1 {
				cfg.Query = args[1]
			}
			if len(args) > 2 {
				cfg.Params = args[2:]
			}
			if cfg.OutputPath == "" || cfg.Query == "" {
				return xerrors.New(xerrors.ErrorTypeConfig,
					"query requires an output path and a statement, as arguments or config keys")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			params := make([]interface{}, 0, len(cfg.Params))
			for _, p := range cfg.Params {
				params = append(params, p)
			}
			return runQuery(cfg, cfg.OutputPath, cfg.Query, params)
		},
	}
	queryCmd.Flags().StringVar(&compression, "compression", "", "Parquet compression: none, snappy, gzip or zstd")
	queryCmd.Flags().IntVar(&batchesPerFile, "batches-per-file", 0, "Roll to a new numbered output file every N batches (0 = single file)")
	root.AddCommand(queryCmd)

	var placeholder string
	insertCmd := &cobra.Command{
		Use:   "insert INPUT TABLE",
		Short: "Insert the rows of a parquet file into a table",
		Long: `Insert the rows of a parquet file into an existing table. Columns are
matched by position; each read batch is written in its own transaction.

Example:
  parquio insert --driver mysql --dsn "$DSN" out.par birthdays`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if placeholder != "" {
				cfg.Placeholder = placeholder
			}
			if len(args) > 0 {
				cfg.InputPath = args[0]
			}
			if len(args) > 1 {
				cfg.Table = args[1]
			}
			if cfg.InputPath == "" || cfg.Table == "" {
				return xerrors.New(xerrors.ErrorTypeConfig,
					"insert requires an input path and a table, as arguments or config keys")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runInsert(cfg, cfg.InputPath, cfg.Table)
		},
	}
	insertCmd.Flags().StringVar(&placeholder, "placeholder", "", "Statement placeholder style: question or dollar (default derived from driver)")
	root.AddCommand(insertCmd)

	describeCmd := &cobra.Command{
		Use:   "describe QUERY",
		Short: "Print the column mapping of a query as JSON",
		Long: `Print the column descriptors a query would be transcoded with, as JSON.
Useful for checking how source types map before running an export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runDescribe(cfg, args[0])
		},
	}
	root.AddCommand(describeCmd)

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// jobContext returns a context canceled by SIGINT/SIGTERM, tagged with the
// transcode direction for logging.
func jobContext(direction string) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if direction != "" {
		ctx = context.WithValue(ctx, logger.DirectionKey, direction)
	}
	return ctx, cancel
}

func runQuery(cfg *config.Config, output, query string, params []interface{}) error {
	ctx, cancel := jobContext("export")
	defer cancel()

	log := logger.WithContext(ctx).With(
		zap.String("driver", cfg.Driver),
		zap.String("output", output))

	db, err := dbio.Connect(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := dbio.NewQuerySource(ctx, db, query, params, log)
	if err != nil {
		return err
	}
	defer src.Close()

	newSink := func(root *pqschema.GroupNode) (transcode.RowGroupSink, error) {
		return storage.NewSplitWriter(output, root, cfg.Compression, cfg.BatchesPerFile, log)
	}

	start := time.Now()
	if err := transcode.Export(ctx, src, newSink, cfg.BatchSize, log); err != nil {
		return err
	}
	log.Info("query finished", zap.Duration("duration", time.Since(start)))
	return nil
}

func runInsert(cfg *config.Config, input, table string) error {
	ctx, cancel := jobContext("import")
	defer cancel()

	log := logger.WithContext(ctx).With(
		zap.String("driver", cfg.Driver),
		zap.String("input", input),
		zap.String("table", table))

	db, err := dbio.Connect(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	reader, err := storage.OpenReader(input)
	if err != nil {
		return err
	}
	defer reader.Close()

	newSink := func(cols []schema.ColumnDescriptor) (dbio.RowSink, error) {
		return dbio.NewTableSink(ctx, db, table, cols, cfg.PlaceholderStyle(), log)
	}

	start := time.Now()
	if err := transcode.Import(ctx, reader, newSink, cfg.BatchSize, log); err != nil {
		return err
	}
	log.Info("insert finished", zap.Duration("duration", time.Since(start)))
	return nil
}

func runDescribe(cfg *config.Config, query string) error {
	ctx, cancel := jobContext("")
	defer cancel()

	log := logger.Get().With(zap.String("driver", cfg.Driver))

	db, err := dbio.Connect(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := dbio.NewQuerySource(ctx, db, query, nil, log)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := json.MarshalIndent(src.Columns(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
