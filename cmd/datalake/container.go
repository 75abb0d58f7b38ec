package main

import (
	"context"
	"log/slog"

	"github.com/som4n/DataLake/internal/codec"
	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/ingest"
	"github.com/som4n/DataLake/internal/objstore"
	"github.com/som4n/DataLake/internal/quality"
	"github.com/som4n/DataLake/internal/source"
	"github.com/som4n/DataLake/internal/writer"
)

// storeOptions maps the pipeline's S3 block onto objstore options.
func storeOptions(p config.Pipeline) objstore.Options {
	return objstore.Options{
		Region:    p.Target.S3.Region,
		Endpoint:  p.Target.S3.Endpoint,
		PathStyle: p.Target.S3.PathStyle,
	}
}

// sourceSpec translates the pipeline's source and parser blocks.
func sourceSpec(p config.Pipeline) source.Spec {
	s := p.Source
	spec := source.Spec{Kind: s.SourceKind(), Options: p.Parser.Options}
	switch spec.Kind {
	case source.KindSQL:
		spec.Conn, spec.Driver, spec.DSN, spec.Query = s.SQL.Conn, s.SQL.Driver, s.SQL.DSN, s.SQL.Query
		spec.Options = nil
	case source.KindObject:
		spec.URL = s.Object.URL
		spec.Format = p.Parser.Kind
	default:
		spec.Path = s.File.Path
		spec.Format = p.Parser.Kind
	}
	return spec
}

// opener resolves store URLs with the pipeline's S3 settings.
func (a *app) opener(p config.Pipeline) source.StoreOpener {
	if a.openStore != nil {
		return a.openStore
	}
	opt := storeOptions(p)
	return func(ctx context.Context, rawURL string) (objstore.Store, string, error) {
		return objstore.Open(ctx, rawURL, opt)
	}
}

func (a *app) reader(p config.Pipeline) *source.Reader {
	return &source.Reader{Logger: a.logger, OpenStore: a.opener(p)}
}

// buildIngestor wires reader, codec, store and writer for p. It returns the
// ingestor and the key prefix inside the target store.
func (a *app) buildIngestor(ctx context.Context, p config.Pipeline) (*ingest.Ingestor, string, error) {
	c, err := codec.New(p.Target.Format, codec.Options{Compression: p.Target.Compression})
	if err != nil {
		return nil, "", err
	}
	store, prefix, err := a.opener(p)(ctx, p.Target.URL)
	if err != nil {
		return nil, "", errs.E(errs.KindConfig, "open target", err)
	}
	rules, err := quality.FromConfig(p.Checks)
	if err != nil {
		return nil, "", errs.E(errs.KindConfig, "checks", err)
	}

	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	in := ingest.New(a.reader(p), writer.New(store, c, logger), logger, a.metricsFor(p.Job))
	in.Job = p.Job
	if p.Runtime.WriterWorkers > 0 {
		in.Workers = p.Runtime.WriterWorkers
	}
	in.Options = ingest.Options{Checks: rules, FailOnCheck: p.Runtime.FailOnCheck}
	return in, prefix, nil
}
