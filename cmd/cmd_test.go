package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/certificate"
	"certverify/internal/config"
	"certverify/internal/ocr"
	"certverify/internal/verification"
)

func strPtr(s string) *string { return &s }

func TestHandleExtractionError(t *testing.T) {
	log := zerolog.Nop()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", ocr.NewExtractionError("Recognize", ocr.ErrExtractionTimeout, ""), "OCR did not finish in time"},
		{"deadline", context.DeadlineExceeded, "processing timed out"},
		{"canceled", context.Canceled, "processing was canceled"},
		{"unsupported", ocr.NewExtractionError("Extract", ocr.ErrUnsupportedFormat, ""), "unsupported file type"},
		{"too large", ocr.NewExtractionError("ExtractImage", ocr.ErrFileTooLarge, ""), "file too large"},
		{"pdf backend", ocr.NewExtractionError("ExtractPDF", &ocr.IntegrationError{Backend: "x"}, ""), "misconfigured"},
		{"no record", verification.ErrNoRecordSource, "no trusted record"},
		{"auth", errors.New("rpc error: code = Unauthenticated"), "authentication failed"},
		{"engine", ocr.NewExtractionError("Recognize", ocr.ErrExtractionFailed, ""), "could not read certificate"},
		{"other", errors.New("disk on fire"), "certificate processing failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, handleExtractionError(tt.err, log).Error(), tt.want)
		})
	}
}

func TestFormatReport(t *testing.T) {
	report := &verification.Report{
		Status: verification.StatusMismatch,
		Extracted: certificate.ExtractedData{
			StudentName:   strPtr("Jon Doe"),
			CertificateID: strPtr("FSWD-5F3A2B-123456"),
			Confidence:    50,
			RawText:       "This is to certify that\nJon Doe",
		},
		Validation: &certificate.ValidationResult{
			MatchedFields:    []string{"certificateId"},
			MismatchedFields: []string{"studentName"},
			Warnings:         []string{"Student name mismatch"},
			Confidence:       25,
		},
		Extraction: verification.Extraction{Source: "image", Method: "tesseract"},
	}

	out := formatReport("cert.png", report, false)
	assert.Contains(t, out, "=== Certificate: cert.png ===")
	assert.Contains(t, out, "Student name:    Jon Doe")
	assert.Contains(t, out, "Course:          -")
	assert.Contains(t, out, "Status:          MISMATCH")
	assert.Contains(t, out, "  ! Student name mismatch")
	assert.NotContains(t, out, "Extracted Text")

	out = formatReport("cert.png", report, true)
	assert.Contains(t, out, "=== Extracted Text ===")
	assert.Contains(t, out, "This is to certify that")
}

func TestGetNumWorkers(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "")
	assert.Equal(t, defaultBatchWorkers, getNumWorkers())

	t.Setenv("BATCH_WORKERS", "9")
	assert.Equal(t, 9, getNumWorkers())

	t.Setenv("BATCH_WORKERS", "-2")
	assert.Equal(t, defaultBatchWorkers, getNumWorkers())
}

func TestBatchStatus(t *testing.T) {
	assert.Equal(t, "error", batchStatus(verification.BatchResult{Err: errors.New("boom")}))
	assert.Equal(t, "error", batchStatus(verification.BatchResult{}))
	assert.Equal(t, "verified", batchStatus(verification.BatchResult{Report: &verification.Report{Status: verification.StatusVerified}}))
}

func TestOpenRecordStore(t *testing.T) {
	log := zerolog.Nop()

	records, release, err := openRecordStore(&config.Config{}, "", log)
	require.NoError(t, err)
	release()
	assert.Nil(t, records)

	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"studentName":"John Doe","certificateId":"FSWD-5F3A2B-123456"}]`), 0o600))

	records, release, err = openRecordStore(&config.Config{DatabaseURL: "postgres://unused"}, path, log)
	require.NoError(t, err)
	defer release()

	rec, err := records.FindByCertificateID(context.Background(), "fswd 5f3a2b 123456")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", rec.StudentName)
}

func TestCreateExtractorRejectsUnknownPDFBackend(t *testing.T) {
	_, err := createExtractor(&config.Config{OCREngine: "tesseract", PDFBackend: "pdfjs"}, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrIntegrationShape)
	assert.Contains(t, err.Error(), "ledongthuc")
}

func TestReadCertificateFile(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.Nop()

	_, err := readCertificateFile(filepath.Join(dir, "missing.png"), log)
	assert.ErrorContains(t, err, "file not found")

	_, err = readCertificateFile(dir, log)
	assert.ErrorContains(t, err, "not a regular file")

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = readCertificateFile(empty, log)
	assert.ErrorContains(t, err, "file is empty")

	good := filepath.Join(dir, "cert.png")
	require.NoError(t, os.WriteFile(good, []byte("png"), 0o600))
	data, err := readCertificateFile(good, log)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}
