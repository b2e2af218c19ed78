package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// ObjectGetter is the part of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Settings configures the client built when S3Loader.Client is nil.
type S3Settings struct {
	Region       string
	Endpoint     string // MinIO or other S3-compatible endpoint
	UsePathStyle bool
}

// S3Loader fetches a text or XLSX export from s3://Bucket/Key.
type S3Loader struct {
	SourceName string
	Bucket     string
	Key        string
	Format     string // "text", "csv" or "xlsx"
	Sheet      string
	Delimiter  rune

	Client   ObjectGetter
	Settings S3Settings
}

func (l *S3Loader) Name() string { return l.SourceName }

func (l *S3Loader) Load(ctx context.Context, opts Options) (*model.SourceTable, error) {
	client := l.Client
	if client == nil {
		c, err := NewS3Client(ctx, l.Settings)
		if err != nil {
			return nil, err
		}
		client = c
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(l.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", l.Bucket, l.Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", l.Bucket, l.Key, err)
	}

	switch l.Format {
	case "", "text", "csv":
		return readText(ctx, l.SourceName, data, l.Delimiter, opts)
	case "xlsx":
		return readXLSX(ctx, l.SourceName, bytes.NewReader(data), l.Sheet, opts)
	default:
		return nil, fmt.Errorf("source %s: unsupported S3 object format %q", l.SourceName, l.Format)
	}
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, st S3Settings) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if st.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(st.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if st.Endpoint != "" {
			o.BaseEndpoint = aws.String(st.Endpoint)
		}
		o.UsePathStyle = st.UsePathStyle
	}), nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri %q needs a bucket and a key", uri)
	}
	return bucket, key, nil
}
