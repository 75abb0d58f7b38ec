package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/som4n/DataLake/internal/catalog"
	"github.com/som4n/DataLake/internal/config"
)

// crawlerFlags name a crawler either through a pipeline's catalog block or
// directly.
type crawlerFlags struct {
	config   string
	name     string
	role     string
	database string
	schedule string
	prefix   string
	targets  []string
	region   string
	endpoint string
}

func (f *crawlerFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "pipeline JSON file with a catalog block")
	fs.StringVar(&f.name, "name", "", "crawler name")
	fs.StringVar(&f.role, "role", "", "IAM role ARN the crawler assumes")
	fs.StringVar(&f.database, "database", "", "Glue catalog database")
	fs.StringVar(&f.schedule, "schedule", "", "Glue cron expression, e.g. cron(0 12 * * ? *)")
	fs.StringVar(&f.prefix, "table-prefix", "", "prefix for created table names")
	fs.StringSliceVar(&f.targets, "target", nil, "s3:// prefixes to crawl (default: the pipeline target)")
	fs.StringVar(&f.region, "region", "", "AWS region")
	fs.StringVar(&f.endpoint, "endpoint", "", "Glue endpoint URL")
}

// resolve merges the pipeline's catalog block with explicit flags.
func (f *crawlerFlags) resolve(fs *pflag.FlagSet) (config.Catalog, []string, catalog.Options, error) {
	var p config.Pipeline
	if f.config != "" {
		var err error
		if p, err = config.Load(f.config); err != nil {
			return config.Catalog{}, nil, catalog.Options{}, err
		}
	}
	c := p.Catalog
	set := func(dst *string, name, v string) {
		if fs.Changed(name) || *dst == "" {
			*dst = v
		}
	}
	set(&c.Crawler, "name", f.name)
	set(&c.Role, "role", f.role)
	set(&c.Database, "database", f.database)
	set(&c.Schedule, "schedule", f.schedule)
	set(&c.TablePrefix, "table-prefix", f.prefix)

	targets := f.targets
	if len(targets) == 0 && p.Target.URL != "" {
		targets = []string{p.Target.URL}
	}
	opt := catalog.Options{Region: p.Target.S3.Region, Endpoint: f.endpoint}
	if f.region != "" {
		opt.Region = f.region
	}
	if c.Crawler == "" {
		return c, nil, opt, fmt.Errorf("crawler name is required (--name or catalog.crawler)")
	}
	return c, targets, opt, nil
}

func newCrawlerCommand(a *app) *cobra.Command {
	var f crawlerFlags
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Manage the Glue crawler that catalogs the lake",
	}
	f.register(cmd.PersistentFlags())

	open := func(cmd *cobra.Command) (*catalog.Crawler, config.Catalog, []string, error) {
		c, targets, opt, err := f.resolve(cmd.Flags())
		if err != nil {
			return nil, c, nil, err
		}
		cr, err := a.newCrawler(opt, c.Crawler, c.Role, a.logger)
		return cr, c, targets, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the crawler over the target prefixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, c, targets, err := open(cmd)
			if err != nil {
				return err
			}
			if c.Role == "" {
				return fmt.Errorf("crawler role is required (--role or catalog.role)")
			}
			return cr.Register(cmd.Context(), c.Database, targets, c.Schedule, c.TablePrefix)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Run the crawler once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, _, _, err := open(cmd)
			if err != nil {
				return err
			}
			return cr.Start(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the crawler state and last run as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, _, _, err := open(cmd)
			if err != nil {
				return err
			}
			st, err := cr.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, st)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "schedule",
		Short: "Replace the crawler schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, c, _, err := open(cmd)
			if err != nil {
				return err
			}
			if c.Schedule == "" {
				return fmt.Errorf("schedule is required (--schedule or catalog.schedule)")
			}
			return cr.UpdateSchedule(cmd.Context(), c.Schedule)
		},
	})
	return cmd
}
