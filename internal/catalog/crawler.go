// Package catalog registers lake prefixes with the AWS Glue Data Catalog
// through a Glue crawler, so partitions written by an ingestion become
// queryable tables.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/glue/glueiface"
	"github.com/pkg/errors"
)

// AWS error codes callers may want to branch on.
const (
	CodeAlreadyExists = glue.ErrCodeAlreadyExistsException
	CodeNotFound      = glue.ErrCodeEntityNotFoundException
	CodeRunning       = glue.ErrCodeCrawlerRunningException
)

// State is the crawler lifecycle state reported by Glue.
type State string

const (
	StateReady    State = glue.CrawlerStateReady
	StateRunning  State = glue.CrawlerStateRunning
	StateStopping State = glue.CrawlerStateStopping
)

// Status is the crawler state plus the outcome of its last run.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	LastCrawl string    `json:"last_crawl,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	LastStart time.Time `json:"last_start,omitempty"`
}

// outputConfig makes new partitions inherit the table schema and merges new
// columns into existing tables.
// Glue expects the version written as 1.0, which encoding/json would render as 1.
const outputConfig = `{"Version":1.0,"CrawlerOutput":{"Partitions":{"AddOrUpdateBehavior":"InheritFromTable"},"Tables":{"AddOrUpdateBehavior":"MergeNewColumns"}}}`

// Crawler manages one named Glue crawler.
type Crawler struct {
	client glueiface.GlueAPI
	name   string
	role   string
	logger *slog.Logger
}

// Options configures the Glue session.
type Options struct {
	Region   string
	Endpoint string
}

// New builds a crawler client from the default AWS credential chain.
func New(opt Options, name, roleARN string, logger *slog.Logger) (*Crawler, error) {
	cfg := aws.NewConfig()
	if opt.Region != "" {
		cfg = cfg.WithRegion(opt.Region)
	}
	if opt.Endpoint != "" {
		cfg = cfg.WithEndpoint(opt.Endpoint)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return NewWithClient(glue.New(sess), name, roleARN, logger), nil
}

// NewWithClient wraps an existing Glue client.
func NewWithClient(client glueiface.GlueAPI, name, roleARN string, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Crawler{client: client, name: name, role: roleARN, logger: logger}
}

// Name returns the crawler name.
func (c *Crawler) Name() string { return c.name }

// Register creates the crawler over targets (s3:// prefixes) writing into
// database. schedule (a Glue cron expression) and prefix are optional.
func (c *Crawler) Register(ctx context.Context, database string, targets []string, schedule, prefix string) error {
	if database == "" {
		return errors.New("catalog database is required")
	}
	if len(targets) == 0 {
		return errors.New("at least one S3 target is required")
	}
	s3Targets := make([]*glue.S3Target, len(targets))
	for i, t := range targets {
		s3Targets[i] = &glue.S3Target{Path: aws.String(t)}
	}
	in := &glue.CreateCrawlerInput{
		Name:         aws.String(c.name),
		Role:         aws.String(c.role),
		DatabaseName: aws.String(database),
		Targets:      &glue.CrawlerTargets{S3Targets: s3Targets},
		SchemaChangePolicy: &glue.SchemaChangePolicy{
			UpdateBehavior: aws.String(glue.UpdateBehaviorUpdateInDatabase),
			DeleteBehavior: aws.String(glue.DeleteBehaviorLog),
		},
		Configuration: aws.String(outputConfig),
	}
	if schedule != "" {
		in.Schedule = aws.String(schedule)
	}
	if prefix != "" {
		in.TablePrefix = aws.String(prefix)
	}

	if _, err := c.client.CreateCrawlerWithContext(ctx, in); err != nil {
		return errors.Wrapf(err, "creating crawler %v", c.name)
	}
	c.logger.InfoContext(ctx, "crawler registered",
		"crawler", c.name, "database", database, "targets", strings.Join(targets, ","))
	return nil
}

// Start runs the crawler once.
func (c *Crawler) Start(ctx context.Context) error {
	if _, err := c.client.StartCrawlerWithContext(ctx, &glue.StartCrawlerInput{Name: aws.String(c.name)}); err != nil {
		return errors.Wrapf(err, "starting crawler %v", c.name)
	}
	c.logger.InfoContext(ctx, "crawler started", "crawler", c.name)
	return nil
}

// Status reports the crawler state and last run.
func (c *Crawler) Status(ctx context.Context) (Status, error) {
	out, err := c.client.GetCrawlerWithContext(ctx, &glue.GetCrawlerInput{Name: aws.String(c.name)})
	if err != nil {
		return Status{}, errors.Wrapf(err, "getting crawler %v", c.name)
	}
	if out.Crawler == nil {
		return Status{}, errors.Errorf("crawler %v: empty response", c.name)
	}
	st := Status{
		Name:  aws.StringValue(out.Crawler.Name),
		State: State(aws.StringValue(out.Crawler.State)),
	}
	if lc := out.Crawler.LastCrawl; lc != nil {
		st.LastCrawl = aws.StringValue(lc.Status)
		st.LastError = aws.StringValue(lc.ErrorMessage)
		st.LastStart = aws.TimeValue(lc.StartTime)
	}
	return st, nil
}

// UpdateSchedule replaces the crawler schedule.
func (c *Crawler) UpdateSchedule(ctx context.Context, schedule string) error {
	_, err := c.client.UpdateCrawlerWithContext(ctx, &glue.UpdateCrawlerInput{
		Name:     aws.String(c.name),
		Schedule: aws.String(schedule),
	})
	if err != nil {
		return errors.Wrapf(err, "updating crawler %v schedule", c.name)
	}
	return nil
}

// Code returns the AWS error code carried by err, or "".
func Code(err error) string {
	if aerr, ok := errors.Cause(err).(awserr.Error); ok {
		return aerr.Code()
	}
	return ""
}
