// Package memory contains an in-memory document sink for tests.
package memory

import (
	"context"
	"sync"

	"github.com/searchops/serp-harvester/internal/serp"
)

// Sink stores documents in memory for inspection.
type Sink struct {
	mu   sync.RWMutex
	docs map[string]serp.Document
}

// New returns a memory Sink.
func New() *Sink {
	return &Sink{docs: make(map[string]serp.Document)}
}

// Store records the document under key and returns its record count.
func (s *Sink) Store(_ context.Context, key string, doc serp.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = doc
	return doc.RecordCount(), nil
}

// Get returns the document stored under key.
func (s *Sink) Get(key string) (serp.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return doc, ok
}

// Len returns the number of stored documents.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
