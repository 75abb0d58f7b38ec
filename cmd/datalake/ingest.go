package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/som4n/DataLake/internal/catalog"
	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/datasource/file"
	"github.com/som4n/DataLake/internal/ingest"
)

// pipelineFlags describe a pipeline on the command line. With --config the
// file is loaded first and only flags given explicitly override it.
type pipelineFlags struct {
	config string

	job          string
	sourceKind   string
	format       string
	path         string
	conn         string
	query        string
	url          string
	target       string
	partitionBy  []string
	outputFormat string
	compression  string
	workers      int
	region       string
	endpoint     string
	pathStyle    bool
	failOnCheck  bool
}

func (f *pipelineFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "pipeline JSON file")
	fs.StringVar(&f.job, "job", "", "job name for logs and metrics (default \"datalake\")")
	fs.StringVar(&f.sourceKind, "source-kind", "", "file, sql or object (inferred when empty)")
	fs.StringVar(&f.format, "format", "", "input format: csv, json, parquet, arrow (inferred from the extension)")
	fs.StringVar(&f.path, "path", "", "local input file")
	fs.StringVar(&f.conn, "conn", "", "database connection URL (postgres://, mysql://, sqlserver://, sqlite://)")
	fs.StringVar(&f.query, "query", "", "SQL query for database sources")
	fs.StringVar(&f.url, "url", "", "object or prefix URL to read back (s3://, file://)")
	fs.StringVar(&f.target, "target", "", "target URL: s3://bucket/prefix, file:///dir or a local directory")
	fs.StringSliceVar(&f.partitionBy, "partition-by", nil, "partition columns, outermost first")
	fs.StringVar(&f.outputFormat, "output-format", "", "parquet (default) or arrow")
	fs.StringVar(&f.compression, "compression", "", "parquet compression: snappy (default), zstd, gzip, none")
	fs.IntVar(&f.workers, "workers", 0, "concurrent partition writes")
	fs.StringVar(&f.region, "region", "", "AWS region")
	fs.StringVar(&f.endpoint, "endpoint", "", "S3-compatible endpoint URL")
	fs.BoolVar(&f.pathStyle, "path-style", false, "use path-style S3 addressing")
	fs.BoolVar(&f.failOnCheck, "fail-on-check", false, "fail the run when a quality check is false")
}

// pipeline resolves the flags into a pipeline.
func (f *pipelineFlags) pipeline(fs *pflag.FlagSet) (config.Pipeline, error) {
	var p config.Pipeline
	if f.config != "" {
		var err error
		if p, err = config.Load(f.config); err != nil {
			return p, err
		}
	}
	use := func(name string) bool { return f.config == "" || fs.Changed(name) }

	if use("job") {
		p.Job = f.job
	}
	if use("source-kind") {
		p.Source.Kind = f.sourceKind
	}
	if use("format") {
		p.Parser.Kind = f.format
	}
	if use("path") {
		p.Source.File.Path = f.path
	}
	if use("conn") {
		p.Source.SQL.Conn = f.conn
	}
	if use("query") {
		p.Source.SQL.Query = f.query
	}
	if use("url") {
		p.Source.Object.URL = f.url
	}
	if use("target") {
		p.Target.URL = f.target
	}
	if use("partition-by") {
		p.Target.PartitionBy = f.partitionBy
	}
	if use("output-format") {
		p.Target.Format = f.outputFormat
	}
	if use("compression") {
		p.Target.Compression = f.compression
	}
	if use("workers") {
		p.Runtime.WriterWorkers = f.workers
	}
	if use("region") {
		p.Target.S3.Region = f.region
	}
	if use("endpoint") {
		p.Target.S3.Endpoint = f.endpoint
	}
	if use("path-style") {
		p.Target.S3.PathStyle = f.pathStyle
	}
	if use("fail-on-check") {
		p.Runtime.FailOnCheck = f.failOnCheck
	}
	if p.Job == "" {
		p.Job = config.DefaultJob
	}
	return p, nil
}

// validated lints p and prints every issue to w. It fails on error-severity
// issues.
func validated(w io.Writer, p config.Pipeline) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("pipeline is invalid: %d issue(s)", len(issues))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newIngestCommand(a *app) *cobra.Command {
	var (
		pf           pipelineFlags
		manifest     string
		startCrawler bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Read a source and write it to the lake as partitioned columnar objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := pf.pipeline(cmd.Flags())
			if err != nil {
				return err
			}

			var paths []string
			if manifest != "" {
				if paths, err = file.ReadManifest(ctx, manifest); err != nil {
					return err
				}
				if len(paths) == 0 {
					return fmt.Errorf("manifest %s lists no files", manifest)
				}
				p.Source.Kind = "file"
				p.Source.File.Path = paths[0]
			}
			if err := validated(a.stderr, p); err != nil {
				return err
			}

			in, prefix, err := a.buildIngestor(ctx, p)
			if err != nil {
				return err
			}

			var results []ingest.Result
			if manifest == "" {
				results = append(results, in.Ingest(ctx, sourceSpec(p), prefix, p.Target.PartitionBy))
			} else {
				for _, path := range paths {
					q := p
					q.Source.File.Path = path
					results = append(results, in.Ingest(ctx, sourceSpec(q), prefix, p.Target.PartitionBy))
				}
			}

			failed := false
			for _, r := range results {
				failed = failed || !r.OK()
			}
			if manifest == "" {
				err = writeJSON(a.stdout, results[0])
			} else {
				err = writeJSON(a.stdout, results)
			}
			if err != nil {
				return err
			}
			if failed {
				return errFailed
			}
			if startCrawler {
				return a.startCrawler(ctx, p)
			}
			return nil
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().StringVar(&manifest, "manifest", "", "text file listing input files, one per line")
	cmd.Flags().BoolVar(&startCrawler, "start-crawler", false, "start the pipeline's catalog crawler after a successful run")
	return cmd
}

// startCrawler runs the crawler named in the pipeline's catalog block.
func (a *app) startCrawler(ctx context.Context, p config.Pipeline) error {
	if p.Catalog.Crawler == "" {
		return fmt.Errorf("--start-crawler needs catalog.crawler in the pipeline")
	}
	c, err := a.newCrawler(catalog.Options{Region: p.Target.S3.Region}, p.Catalog.Crawler, p.Catalog.Role, a.logger)
	if err != nil {
		return err
	}
	return c.Start(ctx)
}
