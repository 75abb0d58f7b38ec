// Command loader copies selected columns of a CSV file into a database
// table.
//
//	loader --csv users.csv --host db --user app --password secret --database shop
//	loader --driver postgres --csv users.csv --host db --user app --password secret \
//	    --database shop --table people --columns id,name --create-table
//
// Flags may also come from DATALAKE_* environment variables
// (DATALAKE_PASSWORD for --password). Nothing is printed on success; a
// failure is logged and the exit code is 1.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/som4n/DataLake/internal/loader"
	"github.com/som4n/DataLake/internal/logging"
	_ "github.com/som4n/DataLake/internal/storage/all"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run parses args, loads the CSV and logs any failure before returning it.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	var (
		opt    loader.Options
		logOpt logging.Options
		logger *slog.Logger
	)
	cmd := &cobra.Command{
		Use:           "loader",
		Short:         "Load CSV columns into a MySQL, PostgreSQL, SQL Server or SQLite table",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindEnv(viper.New(), cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, cleanup, err := logging.Setup(logOpt)
			if err != nil {
				return err
			}
			defer cleanup()
			logger = l
			opt.Logger = l
			if _, err := loader.Load(cmd.Context(), opt); err != nil {
				l.Error("load failed", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.StringVar(&opt.CSVPath, "csv", "", "CSV file to load")
	fs.StringVar(&opt.Driver, "driver", loader.DefaultDriver, "mysql, postgres, mssql or sqlite")
	fs.StringVar(&opt.Host, "host", "", "database host")
	fs.IntVar(&opt.Port, "port", 0, "database port (driver default when 0)")
	fs.StringVar(&opt.User, "user", "", "database user")
	fs.StringVar(&opt.Password, "password", "", "database password")
	fs.StringVar(&opt.Database, "database", "", "database name (file path for sqlite)")
	fs.StringVar(&opt.Table, "table", loader.DefaultTable, "destination table")
	fs.StringSliceVar(&opt.Columns, "columns", loader.DefaultColumns, "CSV columns to load, in table order")
	fs.BoolVar(&opt.CreateTable, "create-table", false, "create the table from the CSV schema if missing")
	fs.IntVar(&opt.BatchSize, "batch-size", 0, "rows per insert (0 loads everything at once)")
	fs.StringVar(&logOpt.File, "log-file", logging.DefaultFile, `rotated log file ("-" disables)`)
	fs.StringVar(&logOpt.Level, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&logOpt.Stderr, "log-stderr", true, "mirror log lines to stderr")
	fs.StringVar(&logOpt.SeqURL, "seq-url", "", "Seq server URL for structured logs")
	for _, name := range []string{"csv", "host", "user", "password", "database"} {
		_ = cmd.MarkFlagRequired(name)
	}

	err := cmd.ExecuteContext(ctx)
	if err != nil && logger == nil {
		// logging was never set up, e.g. a missing flag
		fmt.Fprintf(stderr, "loader: %v\n", err)
	}
	return err
}

// bindEnv fills flags not given on the command line from DATALAKE_*
// variables. It runs before required flags are checked, so a password may
// come from the environment alone.
func bindEnv(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("DATALAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if _, ok := os.LookupEnv("DATALAKE_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))); ok {
			err = flags.Set(f.Name, v.GetString(f.Name))
		}
	})
	return err
}
