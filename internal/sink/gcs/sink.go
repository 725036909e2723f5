// Package gcs provides a document sink backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/serp"
)

// Config captures the parameters required to write documents to GCS.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// Sink uploads one JSON object per query to a GCS bucket.
type Sink struct {
	client *storage.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a GCS-backed sink. Authentication is handled via Application
// Default Credentials; the bucket is probed at startup so misconfiguration
// fails before any scraping begins.
func New(ctx context.Context, client *storage.Client, cfg Config, logger *zap.Logger) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("get bucket %q attributes: %w", cfg.Bucket, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{client: client, cfg: cfg, logger: logger}, nil
}

// Store uploads the document to <prefix>/<key>.json and returns the number
// of records written.
func (s *Sink) Store(ctx context.Context, key string, doc serp.Document) (int, error) {
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("document key is required")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}

	objectName := key + ".json"
	if prefix := strings.Trim(s.cfg.Prefix, "/"); prefix != "" {
		objectName = path.Join(prefix, objectName)
	}

	writer := s.client.Bucket(s.cfg.Bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = "application/json; charset=utf-8"
	if _, err := writer.Write(buf.Bytes()); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return 0, fmt.Errorf("write object %s: %w (close writer: %v)", objectName, err, closeErr)
		}
		return 0, fmt.Errorf("write object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close writer for %s: %w", objectName, err)
	}

	records := doc.RecordCount()
	s.logger.Info("document uploaded",
		zap.String("uri", fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, objectName)),
		zap.Int("records", records),
	)
	return records, nil
}
