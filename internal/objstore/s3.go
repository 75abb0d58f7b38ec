package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// S3 stores objects in one bucket.
type S3 struct {
	client s3iface.S3API
	bucket string
}

// NewS3 builds a client from the default AWS credential chain plus opt.
func NewS3(opt Options, bucket string) (*S3, error) {
	cfg := aws.NewConfig()
	if opt.Region != "" {
		cfg = cfg.WithRegion(opt.Region)
	}
	if opt.Endpoint != "" {
		cfg = cfg.WithEndpoint(opt.Endpoint)
	}
	if opt.PathStyle {
		cfg = cfg.WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return NewS3WithClient(s3.New(sess), bucket), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client s3iface.S3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Bucket returns the bucket name.
func (s *S3) Bucket() string { return s.bucket }

func (s *S3) url(key string) string { return fmt.Sprintf("s3://%s/%s", s.bucket, key) }

func (s *S3) Put(ctx context.Context, key string, body []byte, meta map[string]string) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if len(meta) > 0 {
		in.Metadata = aws.StringMap(meta)
	}
	if _, err := s.client.PutObjectWithContext(ctx, in); err != nil {
		return errors.Wrapf(err, "putting S3 object %v", s.url(key))
	}
	return nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
				return nil, errors.Wrapf(ErrNotFound, "fetching S3 object %v", s.url(key))
			}
		}
		return nil, errors.Wrapf(err, "fetching S3 object %v", s.url(key))
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading S3 object %v", s.url(key))
	}
	return b, nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix + "/")
	}
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, in, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchBucket {
			return nil, errors.Wrapf(ErrNotFound, "listing %v", s.url(prefix))
		}
		return nil, errors.Wrapf(err, "listing %v", s.url(prefix))
	}
	return keys, nil
}
