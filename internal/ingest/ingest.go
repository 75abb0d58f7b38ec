// Package ingest runs one ingestion: read a source into a table, optionally
// evaluate quality checks and apply a transformation, group rows by
// partition keys and write one columnar object per group.
//
// The result is either success with the total row count or the first
// failure. Objects already written when a later group fails stay in place;
// they are listed in the failed Result so the caller can clean up.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/metrics"
	"github.com/som4n/DataLake/internal/objstore"
	"github.com/som4n/DataLake/internal/partition"
	"github.com/som4n/DataLake/internal/quality"
	"github.com/som4n/DataLake/internal/source"
	"github.com/som4n/DataLake/internal/table"
	"github.com/som4n/DataLake/internal/writer"
)

// Status is the outcome of an ingestion.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the uniform outcome of Ingest.
type Result struct {
	Status    Status               `json:"status"`
	Message   string               `json:"message"`
	Job       string               `json:"job,omitempty"`
	Source    string               `json:"source"`
	Rows      int                  `json:"rows"`
	Objects   []writer.WriteResult `json:"objects,omitempty"`
	Checks    map[string]bool      `json:"checks,omitempty"`
	ErrorKind errs.Kind            `json:"error_kind,omitempty"`
	Duration  time.Duration        `json:"duration_ns"`

	// Err is the typed failure; nil on success.
	Err error `json:"-"`
}

// OK reports whether the ingestion succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Kind returns the error kind of a failed result, or "".
func (r Result) Kind() errs.Kind { return errs.KindOf(r.Err) }

// Options tunes a run.
type Options struct {
	// Checks are evaluated after reading and before any write.
	Checks quality.Rules
	// FailOnCheck turns a check evaluating to false into a
	// errs.KindQualityCheckFailed result. Otherwise failed checks are only
	// reported.
	FailOnCheck bool
	// Transform, when set, replaces the table after checks and before
	// partitioning. Its errors fail the run with errs.KindTransform unless
	// they already carry a kind.
	Transform func(*table.Table) (*table.Table, error)
}

// Ingestor wires a reader and a writer.
type Ingestor struct {
	Reader  *source.Reader
	Writer  *writer.Writer
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// Workers bounds concurrent partition writes. Values below 1 mean 1.
	Workers int
	Job     string
	Options Options
}

// New returns an Ingestor writing through w.
func New(r *source.Reader, w *writer.Writer, logger *slog.Logger, rec *metrics.Recorder) *Ingestor {
	return &Ingestor{Reader: r, Writer: w, Logger: logger, Metrics: rec, Workers: 1}
}

func (in *Ingestor) logger() *slog.Logger {
	l := in.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	if in.Job != "" {
		l = l.With("job", in.Job)
	}
	return l
}

// Ingest reads src and writes it below targetPath, one object per partition
// group when keys are given. With no keys the whole table is written to
// targetPath directly.
func (in *Ingestor) Ingest(ctx context.Context, src source.Spec, targetPath string, keys []string) Result {
	start := time.Now()
	log := in.logger()
	res := Result{Job: in.Job, Source: src.Describe()}

	fail := func(err error) Result {
		res.Status = StatusError
		res.Err = err
		res.ErrorKind = errs.KindOf(err)
		res.Message = err.Error()
		res.Duration = time.Since(start)
		log.ErrorContext(ctx, "ingestion failed",
			"source", res.Source, "target", targetPath, "kind", res.ErrorKind, "error", err)
		return res
	}

	reader := in.Reader
	if reader == nil {
		reader = &source.Reader{Logger: in.Logger}
	}
	if in.Writer == nil {
		return fail(errs.Errorf(errs.KindConfig, "ingest", "no writer configured"))
	}

	// read
	t0 := time.Now()
	tbl, err := reader.Read(ctx, src)
	in.Metrics.Step("read", err, time.Since(t0))
	if err != nil {
		return fail(errs.E(errs.KindRead, "ingest", err))
	}
	in.Metrics.Rows("read", int64(tbl.NumRows()))

	// check
	if len(in.Options.Checks) > 0 {
		t0 = time.Now()
		checks, err := quality.Run(tbl, in.Options.Checks)
		in.Metrics.Step("check", err, time.Since(t0))
		if err != nil {
			return fail(err)
		}
		res.Checks = checks
		if failed := quality.Failed(checks); len(failed) > 0 {
			log.WarnContext(ctx, "quality checks failed", "checks", failed)
			if in.Options.FailOnCheck {
				return fail(errs.Errorf(errs.KindQualityCheckFailed, "ingest",
					"checks failed: %s", strings.Join(failed, ", ")))
			}
		}
	}

	// transform
	if in.Options.Transform != nil {
		t0 = time.Now()
		out, err := in.Options.Transform(tbl)
		if err == nil && out == nil {
			err = fmt.Errorf("transformation returned no table")
		}
		in.Metrics.Step("transform", err, time.Since(t0))
		if err != nil {
			return fail(errs.E(errs.KindTransform, "ingest", err))
		}
		log.DebugContext(ctx, "table transformed",
			"rows_in", tbl.NumRows(), "rows_out", out.NumRows(), "columns", out.ColumnNames())
		tbl = out
	}

	// plan
	t0 = time.Now()
	groups, err := partition.Plan(tbl, keys)
	in.Metrics.Step("plan", err, time.Since(t0))
	if err != nil {
		return fail(err)
	}
	log.DebugContext(ctx, "partitions planned", "groups", len(groups), "keys", keys)

	// write
	t0 = time.Now()
	written, err := in.writeGroups(ctx, groups, targetPath)
	in.Metrics.Step("write", err, time.Since(t0))
	for _, w := range written {
		res.Objects = append(res.Objects, w)
		res.Rows += w.Rows
	}
	in.Metrics.Objects(int64(len(res.Objects)))
	in.Metrics.Rows("written", int64(res.Rows))
	if err != nil {
		return fail(err)
	}

	res.Status = StatusSuccess
	res.Duration = time.Since(start)
	res.Message = fmt.Sprintf("ingested %d rows into %d objects", res.Rows, len(res.Objects))
	log.InfoContext(ctx, "ingestion complete",
		"source", res.Source,
		"target", targetPath,
		"rows", res.Rows,
		"objects", len(res.Objects),
		"duration", res.Duration)
	return res
}

// writeGroups writes every group, at most Workers at a time. It returns the
// objects written (in group order) and the first error.
func (in *Ingestor) writeGroups(ctx context.Context, groups []partition.Group, targetPath string) ([]writer.WriteResult, error) {
	workers := in.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]writer.WriteResult, len(groups))
	done := make([]bool, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, grp := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			wr, err := in.Writer.Write(gctx, grp.Table, objstore.JoinKey(targetPath, grp.Suffix))
			if err != nil {
				return err
			}
			results[i], done[i] = wr, true
			return nil
		})
	}
	err := g.Wait()

	var written []writer.WriteResult
	for i, ok := range done {
		if ok {
			written = append(written, results[i])
		}
	}
	return written, err
}

// IngestCSV ingests a local delimited file.
func (in *Ingestor) IngestCSV(ctx context.Context, path, targetPath string, keys []string) Result {
	return in.Ingest(ctx, source.Spec{Kind: source.KindFile, Format: "csv", Path: path}, targetPath, keys)
}

// IngestJSON ingests a local JSON array or NDJSON file.
func (in *Ingestor) IngestJSON(ctx context.Context, path, targetPath string, keys []string) Result {
	return in.Ingest(ctx, source.Spec{Kind: source.KindFile, Format: "json", Path: path}, targetPath, keys)
}

// IngestDatabase ingests the result of query against the database named by
// conn (see source.ParseConn).
func (in *Ingestor) IngestDatabase(ctx context.Context, conn, query, targetPath string, keys []string) Result {
	return in.Ingest(ctx, source.Spec{Kind: source.KindSQL, Conn: conn, Query: query}, targetPath, keys)
}
