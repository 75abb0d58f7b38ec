package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/glue/glueiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGlue keeps crawlers in a map and implements the calls Crawler uses.
type fakeGlue struct {
	glueiface.GlueAPI

	crawlers map[string]*glue.Crawler
	created  *glue.CreateCrawlerInput
}

func newFakeGlue() *fakeGlue { return &fakeGlue{crawlers: map[string]*glue.Crawler{}} }

func (f *fakeGlue) CreateCrawlerWithContext(_ aws.Context, in *glue.CreateCrawlerInput, _ ...request.Option) (*glue.CreateCrawlerOutput, error) {
	name := aws.StringValue(in.Name)
	if _, ok := f.crawlers[name]; ok {
		return nil, awserr.New(glue.ErrCodeAlreadyExistsException, "Crawler with name "+name+" has already been created", nil)
	}
	f.created = in
	f.crawlers[name] = &glue.Crawler{
		Name:     in.Name,
		State:    aws.String(glue.CrawlerStateReady),
		Schedule: &glue.Schedule{ScheduleExpression: in.Schedule},
	}
	return &glue.CreateCrawlerOutput{}, nil
}

func (f *fakeGlue) StartCrawlerWithContext(_ aws.Context, in *glue.StartCrawlerInput, _ ...request.Option) (*glue.StartCrawlerOutput, error) {
	c, ok := f.crawlers[aws.StringValue(in.Name)]
	if !ok {
		return nil, awserr.New(glue.ErrCodeEntityNotFoundException, "not found", nil)
	}
	if aws.StringValue(c.State) == glue.CrawlerStateRunning {
		return nil, awserr.New(glue.ErrCodeCrawlerRunningException, "already running", nil)
	}
	c.State = aws.String(glue.CrawlerStateRunning)
	c.LastCrawl = &glue.LastCrawlInfo{
		Status:    aws.String(glue.LastCrawlStatusSucceeded),
		StartTime: aws.Time(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)),
	}
	return &glue.StartCrawlerOutput{}, nil
}

func (f *fakeGlue) GetCrawlerWithContext(_ aws.Context, in *glue.GetCrawlerInput, _ ...request.Option) (*glue.GetCrawlerOutput, error) {
	c, ok := f.crawlers[aws.StringValue(in.Name)]
	if !ok {
		return nil, awserr.New(glue.ErrCodeEntityNotFoundException, "not found", nil)
	}
	return &glue.GetCrawlerOutput{Crawler: c}, nil
}

func (f *fakeGlue) UpdateCrawlerWithContext(_ aws.Context, in *glue.UpdateCrawlerInput, _ ...request.Option) (*glue.UpdateCrawlerOutput, error) {
	c, ok := f.crawlers[aws.StringValue(in.Name)]
	if !ok {
		return nil, awserr.New(glue.ErrCodeEntityNotFoundException, "not found", nil)
	}
	c.Schedule = &glue.Schedule{ScheduleExpression: in.Schedule}
	return &glue.UpdateCrawlerOutput{}, nil
}

const role = "arn:aws:iam::123456789012:role/GlueCrawlerRole"

func TestRegister(t *testing.T) {
	ctx := context.Background()
	fg := newFakeGlue()
	c := NewWithClient(fg, "sales-crawler", role, nil)

	err := c.Register(ctx, "raw", []string{"s3://lake/raw/sales/"}, "cron(0 12 * * ? *)", "raw_")
	require.NoError(t, err)

	in := fg.created
	require.NotNil(t, in)
	assert.Equal(t, role, aws.StringValue(in.Role))
	assert.Equal(t, "raw", aws.StringValue(in.DatabaseName))
	require.Len(t, in.Targets.S3Targets, 1)
	assert.Equal(t, "s3://lake/raw/sales/", aws.StringValue(in.Targets.S3Targets[0].Path))
	assert.Equal(t, "UPDATE_IN_DATABASE", aws.StringValue(in.SchemaChangePolicy.UpdateBehavior))
	assert.Equal(t, "LOG", aws.StringValue(in.SchemaChangePolicy.DeleteBehavior))
	assert.Equal(t, "cron(0 12 * * ? *)", aws.StringValue(in.Schedule))
	assert.Equal(t, "raw_", aws.StringValue(in.TablePrefix))

	assert.Contains(t, aws.StringValue(in.Configuration), `{"Version":1.0,`)
	var conf map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.StringValue(in.Configuration)), &conf))
	assert.Equal(t, 1.0, conf["Version"])
	out := conf["CrawlerOutput"].(map[string]any)
	assert.Equal(t, "InheritFromTable", out["Partitions"].(map[string]any)["AddOrUpdateBehavior"])
	assert.Equal(t, "MergeNewColumns", out["Tables"].(map[string]any)["AddOrUpdateBehavior"])

	// registering twice surfaces the AWS code
	err = c.Register(ctx, "raw", []string{"s3://lake/raw/sales/"}, "", "")
	require.Error(t, err)
	assert.Equal(t, CodeAlreadyExists, Code(err))
}

func TestRegister_OptionalFieldsOmitted(t *testing.T) {
	fg := newFakeGlue()
	c := NewWithClient(fg, "c", role, nil)
	require.NoError(t, c.Register(context.Background(), "raw", []string{"s3://lake/x/"}, "", ""))
	assert.Nil(t, fg.created.Schedule)
	assert.Nil(t, fg.created.TablePrefix)
}

func TestRegister_Validation(t *testing.T) {
	c := NewWithClient(newFakeGlue(), "c", role, nil)
	assert.Error(t, c.Register(context.Background(), "", []string{"s3://x/"}, "", ""))
	assert.Error(t, c.Register(context.Background(), "raw", nil, "", ""))
}

func TestStartAndStatus(t *testing.T) {
	ctx := context.Background()
	fg := newFakeGlue()
	c := NewWithClient(fg, "sales-crawler", role, nil)
	require.NoError(t, c.Register(ctx, "raw", []string{"s3://lake/raw/"}, "", ""))

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReady, st.State)
	assert.Empty(t, st.LastCrawl)

	require.NoError(t, c.Start(ctx))
	st, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{
		Name:      "sales-crawler",
		State:     StateRunning,
		LastCrawl: "SUCCEEDED",
		LastStart: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}, st)

	err = c.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, CodeRunning, Code(err))
}

func TestUnknownCrawler(t *testing.T) {
	ctx := context.Background()
	c := NewWithClient(newFakeGlue(), "ghost", role, nil)

	_, err := c.Status(ctx)
	assert.Equal(t, CodeNotFound, Code(err))
	assert.Equal(t, CodeNotFound, Code(c.Start(ctx)))
	assert.Equal(t, CodeNotFound, Code(c.UpdateSchedule(ctx, "cron(0 1 * * ? *)")))
	assert.Equal(t, "", Code(nil))
}

func TestUpdateSchedule(t *testing.T) {
	ctx := context.Background()
	fg := newFakeGlue()
	c := NewWithClient(fg, "c", role, nil)
	require.NoError(t, c.Register(ctx, "raw", []string{"s3://lake/raw/"}, "cron(0 12 * * ? *)", ""))

	require.NoError(t, c.UpdateSchedule(ctx, "cron(0 6 * * ? *)"))
	assert.Equal(t, "cron(0 6 * * ? *)", aws.StringValue(fg.crawlers["c"].Schedule.ScheduleExpression))
}
