// Package storage writes exported session CSVs to a local directory or
// an S3 bucket, selected by config.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/dataset"
	"github.com/timberwood/outreach/internal/pkg/logger"
)

// Exporter persists a table snapshot as CSV and returns where it went.
type Exporter interface {
	Export(ctx context.Context, t *dataset.Table, name string) (string, error)
}

// NewExporter builds the exporter selected by config.
func NewExporter(ctx context.Context, cfg appconfig.StorageConfig) (Exporter, error) {
	switch cfg.Type {
	case "s3":
		return newS3Exporter(ctx, cfg)
	default:
		return &LocalExporter{dir: cfg.LocalPath}, nil
	}
}

// LocalExporter writes exports to a directory on disk.
type LocalExporter struct {
	dir string
}

// Export writes the table to <dir>/<name>-<timestamp>.csv.
func (e *LocalExporter) Export(_ context.Context, t *dataset.Table, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(e.dir, exportName(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := t.WriteCSV(f); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	logger.Info("exported table", "path", path, "rows", len(t.Rows))
	return path, nil
}

// S3Exporter writes exports to an S3 bucket.
type S3Exporter struct {
	client *s3.Client
	bucket string
}

func newS3Exporter(ctx context.Context, cfg appconfig.StorageConfig) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Exporter{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
	}, nil
}

// Export uploads the table under exports/<name>-<timestamp>.csv and
// returns the object's S3 URI.
func (e *S3Exporter) Export(ctx context.Context, t *dataset.Table, name string) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	key := "exports/" + exportName(name)
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading export: %w", err)
	}
	uri := "s3://" + e.bucket + "/" + key
	logger.Info("exported table", "uri", uri, "rows", len(t.Rows))
	return uri, nil
}

func exportName(name string) string {
	if name == "" {
		name = "outreach"
	}
	return fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format("20060102-150405"))
}
