// Package store looks up the trusted certificate records extracted data is validated
// against. Records are keyed by the normalized certificate ID, so "ABC-123" and
// "abc 123" find the same record.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"certverify/internal/certificate"
)

// ErrRecordNotFound is returned when no record exists for a certificate ID.
var ErrRecordNotFound = errors.New("certificate record not found")

// RecordStore finds trusted records by certificate ID.
type RecordStore interface {
	FindByCertificateID(ctx context.Context, certificateID string) (*certificate.Record, error)
}

// MemoryStore is a RecordStore held in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]certificate.Record
}

// NewMemoryStore creates a store holding records.
func NewMemoryStore(records ...certificate.Record) *MemoryStore {
	s := &MemoryStore{records: make(map[string]certificate.Record, len(records))}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// LoadMemoryStore reads a JSON array of records from path.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	records, err := ReadRecordsFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(records...), nil
}

// ReadRecordsFile reads a JSON array of records.
func ReadRecordsFile(path string) ([]certificate.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []certificate.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records %s: %w", path, err)
	}
	return records, nil
}

// Put adds or replaces a record.
func (s *MemoryStore) Put(r certificate.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[certificate.Normalize(r.CertificateID)] = r
}

// FindByCertificateID implements RecordStore.
func (s *MemoryStore) FindByCertificateID(ctx context.Context, certificateID string) (*certificate.Record, error) {
	key := certificate.Normalize(certificateID)
	if key == "" {
		return nil, ErrRecordNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}
