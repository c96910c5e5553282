// Package main is the colonnade demo CLI: an embeddable analytical engine
// driven from the command line. It uses the cobra package, one
// sub-command per verb.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"colonnade/internal/config"
	"colonnade/internal/engine"
	"colonnade/internal/ingest"
	"colonnade/internal/minisql"
	"colonnade/internal/storage"
	"colonnade/internal/types"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "colonnade",
		Short: "In-process analytical SQL engine",
	}

	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(benchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type commonFlags struct {
	configFile string
	ddlFile    string
	verbose    bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Engine configuration file (TOML)")
	cmd.Flags().StringVarP(&f.ddlFile, "ddl", "d", "", "DDL file applied before the command runs")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Write engine diagnostics to stderr")
}

func openDatabase(flags *commonFlags) (*engine.Database, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		var err error
		if cfg, err = config.ParseFile(flags.configFile); err != nil {
			return nil, err
		}
	}
	logw := io.Discard
	if flags.verbose {
		logw = os.Stderr
	}
	db := engine.New(engine.WithConfig(cfg), engine.WithLogger(logw))
	db.SetParser(minisql.New(db.Catalog()))

	if flags.ddlFile != "" {
		raw, err := os.ReadFile(flags.ddlFile)
		if err != nil {
			return nil, fmt.Errorf("reading DDL file: %w", err)
		}
		if err := db.ApplyDDL(string(raw)); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func queryCmd() *cobra.Command {
	flags := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "query <sql...>",
		Short: "Execute SQL statements and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := openDatabase(flags)
			if err != nil {
				return err
			}
			return runStatements(db, strings.Join(args, " "))
		},
	}
	flags.register(cmd)
	return cmd
}

func runStatements(db *engine.Database, sql string) error {
	ctx := context.Background()
	for _, stmt := range splitStatements(sql) {
		result, err := db.ExecuteCollect(ctx, stmt)
		if err != nil {
			return err
		}
		printResult(os.Stdout, result)
	}
	return nil
}

func splitStatements(sql string) []string {
	var out []string
	for _, part := range strings.Split(sql, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printResult(w io.Writer, result *engine.CollectedResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.ColumnNames, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "(%d rows, %s)\n", len(result.Rows), result.Stats.Elapsed.Round(time.Microsecond))
}

func explainCmd() *cobra.Command {
	flags := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Print the physical plan for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := openDatabase(flags)
			if err != nil {
				return err
			}
			result, err := db.ExecuteCollect(context.Background(), "EXPLAIN "+strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, row := range result.Rows {
				fmt.Println(row[0].AsString())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

type loadFlags struct {
	commonFlags
	dsn   string
	table string
	query string
}

func loadCmd() *cobra.Command {
	flags := &loadFlags{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Copy rows from a MySQL source into a table",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLoad(flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "MySQL DSN to copy from")
	cmd.Flags().StringVarP(&flags.table, "table", "t", "", "Destination table (must exist; see --ddl)")
	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Source query whose columns match the destination schema")
	cmd.MarkFlagRequired("dsn")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("query")
	return cmd
}

func runLoad(flags *loadFlags) error {
	db, err := openDatabase(&flags.commonFlags)
	if err != nil {
		return err
	}
	handle, err := db.Catalog().Resolve(engine.DefaultSchema, flags.table)
	if err != nil {
		return fmt.Errorf("destination table: %w", err)
	}

	ctx := context.Background()
	src, err := ingest.Connect(ctx, flags.dsn)
	if err != nil {
		return err
	}
	defer src.Close()

	copied, err := ingest.CopyQuery(ctx, src, flags.query, handle.Table)
	if err != nil {
		return err
	}
	fmt.Printf("copied %d rows into %s\n", copied, flags.table)
	return nil
}

type benchFlags struct {
	commonFlags
	rows       int
	iterations int
}

func benchCmd() *cobra.Command {
	flags := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench <sql>",
		Short: "Run a query repeatedly over generated data and report timings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBench(flags, strings.Join(args, " "))
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.rows, "rows", "n", 100_000, "Rows of generated data in table bench")
	cmd.Flags().IntVarP(&flags.iterations, "iterations", "i", 5, "Times to run the query")
	return cmd
}

// runBench fills table bench(id INTEGER, grp INTEGER, val DOUBLE) with
// deterministic data and times the query against it.
func runBench(flags *benchFlags, sql string) error {
	db, err := openDatabase(&flags.commonFlags)
	if err != nil {
		return err
	}
	if err := db.ApplyDDL("CREATE TABLE bench(id INTEGER, grp INTEGER, val DOUBLE)"); err != nil {
		return err
	}
	handle, err := db.Catalog().Resolve(engine.DefaultSchema, "bench")
	if err != nil {
		return err
	}
	rows := make([]storage.Row, 0, flags.rows)
	for i := 0; i < flags.rows; i++ {
		rows = append(rows, storage.Row{
			types.NewInteger(int32(i)),
			types.NewInteger(int32(i % 100)),
			types.NewDouble(float64(i%7919) / 10),
		})
	}
	if err := handle.Table.AppendRows(rows); err != nil {
		return err
	}
	if err := handle.Table.Flush(); err != nil {
		return err
	}

	ctx := context.Background()
	var total time.Duration
	for i := 0; i < flags.iterations; i++ {
		result, err := db.ExecuteCollect(ctx, sql)
		if err != nil {
			return err
		}
		total += result.Stats.Elapsed
		fmt.Printf("run %d: %d rows in %s (scanned %d)\n",
			i+1, result.Stats.RowsReturned, result.Stats.Elapsed.Round(time.Microsecond), result.Stats.RowsScanned)
	}
	fmt.Printf("mean: %s over %d runs\n", (total / time.Duration(flags.iterations)).Round(time.Microsecond), flags.iterations)
	return nil
}
