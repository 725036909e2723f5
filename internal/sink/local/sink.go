// Package local implements a local filesystem document sink.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/serp"
)

// Config captures the parameters for the local filesystem sink.
type Config struct {
	// BaseDir is the directory receiving one JSON file per query.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Sink writes one JSON document per query to the local filesystem. Documents
// are keyed by the sanitized query identifier, so re-running a batch
// overwrites the previous output for the same query.
type Sink struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a local filesystem sink, creating the base directory if needed.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{baseDir: cfg.BaseDir, logger: logger}, nil
}

// Store writes the document to <baseDir>/<key>.json and returns the number
// of records written. The encoding preserves the original text exactly: no
// HTML escaping and no non-ASCII transforms.
func (s *Sink) Store(ctx context.Context, key string, doc serp.Document) (int, error) {
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("document key is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context finished: %w", err)
	}

	payload, err := encodeDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}

	target := filepath.Join(s.baseDir, key+".json")
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return 0, fmt.Errorf("write document %s: %w", target, err)
	}

	records := doc.RecordCount()
	s.logger.Info("document written",
		zap.String("path", target),
		zap.Int("records", records),
	)
	return records, nil
}

func encodeDocument(doc serp.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
