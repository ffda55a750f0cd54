// Package verification runs the certificate pipeline: extract text, parse the
// certificate fields and, when a trusted record is available, validate them.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"certverify/internal/certificate"
	"certverify/internal/logger"
	"certverify/internal/ocr"
	"certverify/internal/store"
)

// Status summarises a Report.
type Status string

const (
	// StatusVerified means the validation passed.
	StatusVerified Status = "verified"
	// StatusMismatch means a record was found but validation failed.
	StatusMismatch Status = "mismatch"
	// StatusNotFound means no trusted record could be found to validate against.
	StatusNotFound Status = "not_found"
	// StatusExtracted means fields were parsed and no validation was requested.
	StatusExtracted Status = "extracted"
)

// ErrNoRecordSource is returned by Verify when the request carries no record and
// the service has no store to look one up in.
var ErrNoRecordSource = errors.New("no trusted record supplied and no record store configured")

// TextExtractor produces text from an uploaded file.
type TextExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (*ocr.Result, error)
}

// Request is one verification.
type Request struct {
	FileName string
	Data     []byte

	// Record is the trusted record to validate against. When nil the record is
	// looked up in the store.
	Record *certificate.Record

	// LookupID overrides the parsed certificate ID for the store lookup.
	LookupID string
}

// Extraction describes how the text was obtained.
type Extraction struct {
	Source       string        `json:"source"`
	Method       string        `json:"method"`
	Pages        int           `json:"pages,omitempty"`
	Preprocessed bool          `json:"preprocessed,omitempty"`
	Duration     time.Duration `json:"durationNs"`
}

// Report is the outcome of Extract or Verify.
type Report struct {
	Status     Status                        `json:"status"`
	Message    string                        `json:"message,omitempty"`
	Extracted  certificate.ExtractedData     `json:"extracted"`
	Validation *certificate.ValidationResult `json:"validation,omitempty"`
	Record     *certificate.Record           `json:"record,omitempty"` // set when verified or supplied by the caller
	Extraction Extraction                    `json:"extraction"`
}

// Service runs the pipeline. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	extractor TextExtractor
	records   store.RecordStore
	log       zerolog.Logger
}

// NewService creates a service. records may be nil when callers always supply the
// trusted record.
func NewService(extractor TextExtractor, records store.RecordStore) *Service {
	return &Service{
		extractor: extractor,
		records:   records,
		log:       logger.WithComponent("verification"),
	}
}

// Extract reads and parses a certificate without validating it. Extraction errors
// are returned unchanged so callers can classify them.
func (s *Service) Extract(ctx context.Context, name string, data []byte) (*Report, error) {
	res, err := s.extractor.Extract(ctx, name, data)
	if err != nil {
		return nil, err
	}

	extracted := certificate.Parse(res.Text)
	s.log.Debug().
		Str("file", name).
		Str("method", res.Method).
		Float64("confidence", extracted.Confidence).
		Msg("Certificate parsed")

	return &Report{
		Status:    StatusExtracted,
		Extracted: extracted,
		Extraction: Extraction{
			Source:       res.Source,
			Method:       res.Method,
			Pages:        res.Pages,
			Preprocessed: res.Preprocessed,
			Duration:     res.Duration,
		},
	}, nil
}

// Verify extracts, parses and validates a certificate. A missing record is
// reported as StatusNotFound, not as an error.
func (s *Service) Verify(ctx context.Context, req Request) (*Report, error) {
	if req.Record == nil && s.records == nil {
		return nil, ErrNoRecordSource
	}

	report, err := s.Extract(ctx, req.FileName, req.Data)
	if err != nil {
		return nil, err
	}

	record := req.Record
	if record == nil {
		id := req.LookupID
		if id == "" {
			id = certificate.Value(report.Extracted.CertificateID)
		}
		if id == "" {
			report.Status = StatusNotFound
			report.Message = "no certificate ID found on the document"
			return report, nil
		}

		record, err = s.records.FindByCertificateID(ctx, id)
		if errors.Is(err, store.ErrRecordNotFound) {
			report.Status = StatusNotFound
			report.Message = fmt.Sprintf("no record found for certificate ID %q", id)
			return report, nil
		}
		if err != nil {
			return nil, fmt.Errorf("look up certificate %q: %w", id, err)
		}
	}

	result := certificate.Validate(report.Extracted, *record)
	report.Validation = &result
	report.Status = StatusMismatch
	if result.IsValid {
		report.Status = StatusVerified
	}
	if result.IsValid || req.Record != nil {
		report.Record = record
	}

	s.log.Info().
		Str("file", req.FileName).
		Str("certificate_id", record.CertificateID).
		Str("status", string(report.Status)).
		Strs("matched", result.MatchedFields).
		Strs("mismatched", result.MismatchedFields).
		Msg("Certificate verified")

	return report, nil
}
