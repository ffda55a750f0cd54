package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/certificate"
	"certverify/internal/verification"
)

func strPtr(s string) *string { return &s }

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_EF2/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_EF2", id)

	_, err = extractSpreadsheetID("https://example.org/not-a-sheet")
	assert.Error(t, err)
}

func TestBuildRows(t *testing.T) {
	processedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	results := []verification.BatchResult{
		{
			Path: "certs/a.png",
			Report: &verification.Report{
				Status: verification.StatusMismatch,
				Extracted: certificate.ExtractedData{
					StudentName:   strPtr("Jon Doe"),
					CertificateID: strPtr("FSWD-5F3A2B-123456"),
					Grade:         strPtr("A+"),
					Confidence:    50,
				},
				Validation: &certificate.ValidationResult{
					MatchedFields:    []string{"certificateId"},
					MismatchedFields: []string{"studentName"},
					Warnings:         []string{"name differs", "second"},
					Confidence:       25,
				},
				Extraction: verification.Extraction{Method: "tesseract"},
			},
		},
		{
			Path:   "certs/b.png",
			Report: &verification.Report{Status: verification.StatusNotFound, Message: "no certificate ID found on the document"},
		},
		{Path: "certs/c.png", Err: errors.New("permission denied")},
	}

	rows := BuildRows(results, processedAt)
	require.Len(t, rows, 3)

	assert.Equal(t, Row{
		File:                 "certs/a.png",
		Status:               "mismatch",
		CertificateID:        "FSWD-5F3A2B-123456",
		StudentName:          "Jon Doe",
		Grade:                "A+",
		ExtractionConfidence: 50,
		Matched:              "certificateId",
		Mismatched:           "studentName",
		ValidationConfidence: 25,
		Warnings:             "name differs; second",
		Method:               "tesseract",
		ProcessedAt:          "2024-03-01 09:30:00",
	}, rows[0])

	assert.Equal(t, "not_found", rows[1].Status)
	assert.Equal(t, "no certificate ID found on the document", rows[1].Warnings)

	assert.Equal(t, "error", rows[2].Status)
	assert.Equal(t, "Error: permission denied", rows[2].Warnings)

	assert.Len(t, rows[0].Values(), len(Headers))
}

func TestRecordsFromValues(t *testing.T) {
	values := [][]interface{}{
		{"Certificate ID", "Student Name", "course_name", "Issue Date"},
		{"FSWD-5F3A2B-123456", "John Doe", "Full Stack Web Dev", "2024-01-15"},
		{"", "No ID"},
		{"DS-2023-0042", "Maria Lopez"},
	}

	records, err := RecordsFromValues(values)
	require.NoError(t, err)
	assert.Equal(t, []certificate.Record{
		{StudentName: "John Doe", CertificateID: "FSWD-5F3A2B-123456", CourseName: "Full Stack Web Dev", IssueDate: "2024-01-15"},
		{StudentName: "Maria Lopez", CertificateID: "DS-2023-0042"},
	}, records)

	_, err = RecordsFromValues([][]interface{}{{"name", "course"}})
	assert.Error(t, err)

	records, err = RecordsFromValues(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
