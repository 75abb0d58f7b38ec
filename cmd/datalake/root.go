package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/som4n/DataLake/internal/catalog"
	"github.com/som4n/DataLake/internal/logging"
	"github.com/som4n/DataLake/internal/metrics"
	"github.com/som4n/DataLake/internal/metrics/datadog"
	"github.com/som4n/DataLake/internal/metrics/prompush"
	"github.com/som4n/DataLake/internal/source"
)

// envPrefix prefixes environment overrides: --log-level is DATALAKE_LOG_LEVEL.
const envPrefix = "DATALAKE"

// errFailed is returned by commands that already reported their failure on
// stdout; main only turns it into the exit code.
var errFailed = errors.New("command failed")

// app holds process-wide state shared by the commands.
type app struct {
	stdout, stderr io.Writer

	configFile     string
	log            logging.Options
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string

	logger   *slog.Logger
	backend  metrics.Backend
	closers  []func()
	recorder *metrics.Recorder

	// Test hooks.
	openStore  source.StoreOpener
	newCrawler func(opt catalog.Options, name, role string, logger *slog.Logger) (*catalog.Crawler, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:     stdout,
		stderr:     stderr,
		logger:     slog.New(slog.DiscardHandler),
		newCrawler: catalog.New,
	}
}

// close flushes metrics and closes the log sinks.
func (a *app) close() {
	if a.recorder != nil {
		if err := a.recorder.Flush(); err != nil {
			a.logger.Warn("metrics flush failed", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// metricsFor returns the run's Recorder, building the backend on first use.
// An unusable backend is logged and replaced by a no-op.
func (a *app) metricsFor(job string) *metrics.Recorder {
	if a.recorder != nil {
		return a.recorder
	}
	if job == "" {
		job = "datalake"
	}
	var (
		b   metrics.Backend
		err error
	)
	switch a.metricsBackend {
	case "", "none":
	case "pushgateway":
		b, err = prompush.NewBackend(job, a.pushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: a.statsdAddr})
	default:
		err = fmt.Errorf("unknown metrics backend %q", a.metricsBackend)
	}
	if err != nil {
		a.logger.Warn("metrics disabled", "backend", a.metricsBackend, "error", err)
		b = nil
	}
	a.recorder = metrics.New(b, job)
	return a.recorder
}

func newRootCommand(a *app) *cobra.Command {
	rc := &cobra.Command{
		Use:           "datalake",
		Short:         "Ingest tabular sources into a partitioned columnar data lake.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return err
			}
			logger, cleanup, err := logging.Setup(a.log)
			if err != nil {
				return err
			}
			a.logger = logger
			a.closers = append(a.closers, cleanup)
			return nil
		},
	}
	rc.SetOut(a.stdout)
	rc.SetErr(a.stderr)

	pf := rc.PersistentFlags()
	pf.StringVar(&a.configFile, "config-file", "", "TOML file with flag defaults")
	pf.StringVar(&a.log.File, "log-file", logging.DefaultFile, `rotated log file ("-" disables)`)
	pf.StringVar(&a.log.Level, "log-level", "info", "debug, info, warn or error")
	pf.BoolVar(&a.log.Stderr, "log-stderr", false, "mirror log lines to stderr")
	pf.StringVar(&a.log.SeqURL, "seq-url", "", "Seq server URL for structured logs")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "none", "none, pushgateway or datadog")
	pf.StringVar(&a.pushgatewayURL, "pushgateway-url", "http://localhost:9091", "Prometheus Pushgateway URL")
	pf.StringVar(&a.statsdAddr, "statsd-addr", "127.0.0.1:8125", "DogStatsD address")

	rc.AddCommand(newIngestCommand(a))
	rc.AddCommand(newCheckCommand(a))
	rc.AddCommand(newValidateCommand(a))
	rc.AddCommand(newCrawlerCommand(a))
	return rc
}

// setAllConfig layers flags over DATALAKE_* environment variables over the
// --config-file TOML file over the flag defaults. Each flag writes through
// its own pointer, so after this call the bound variables hold the resolved
// values.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) { validTags[f.Name] = true })

	if c := v.GetString("config-file"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// GetString is empty for a slice coming from the config file
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if value == "" && f.Value.Type() == "stringSlice" {
			return
		}
		flagErr = f.Value.Set(value)
	})
	return flagErr
}
