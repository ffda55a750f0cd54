package verification

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/certificate"
	"certverify/internal/ocr"
	"certverify/internal/store"
)

const certificateText = `Webory Skills Academy
This is to certify that
Jon Doe
Certificate ID: FSWD-5F3A2B-123456`

var trusted = certificate.Record{
	StudentName:   "John Doe",
	CertificateID: "FSWD-5F3A2B-123456",
	CourseName:    "Full Stack Web Dev",
	IssueDate:     "2024-01-15",
}

// stubExtractor returns texts by file name.
type stubExtractor struct {
	texts map[string]string
	err   error
}

func (s stubExtractor) Extract(ctx context.Context, name string, data []byte) (*ocr.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	text, ok := s.texts[name]
	if !ok {
		text = string(data)
	}
	return &ocr.Result{Text: text, Source: ocr.SourceImage, Method: "stub"}, nil
}

type failingStore struct{ err error }

func (f failingStore) FindByCertificateID(ctx context.Context, id string) (*certificate.Record, error) {
	return nil, f.err
}

func TestExtract(t *testing.T) {
	svc := NewService(stubExtractor{}, nil)

	report, err := svc.Extract(context.Background(), "cert.png", []byte(certificateText))
	require.NoError(t, err)

	assert.Equal(t, StatusExtracted, report.Status)
	assert.Equal(t, "Jon Doe", certificate.Value(report.Extracted.StudentName))
	assert.Equal(t, "stub", report.Extraction.Method)
	assert.Nil(t, report.Validation)
}

func TestVerifyWithSuppliedRecord(t *testing.T) {
	svc := NewService(stubExtractor{}, nil)
	record := trusted

	report, err := svc.Verify(context.Background(), Request{FileName: "cert.png", Data: []byte(certificateText), Record: &record})
	require.NoError(t, err)

	assert.Equal(t, StatusVerified, report.Status)
	require.NotNil(t, report.Validation)
	assert.Equal(t, []string{certificate.FieldCertificateID, certificate.FieldStudentName}, report.Validation.MatchedFields)
	assert.Equal(t, 50.0, report.Validation.Confidence)
	assert.Equal(t, &record, report.Record)
}

func TestVerifyLooksUpParsedID(t *testing.T) {
	svc := NewService(stubExtractor{}, store.NewMemoryStore(trusted))

	report, err := svc.Verify(context.Background(), Request{FileName: "cert.png", Data: []byte(certificateText)})
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, report.Status)
	assert.Equal(t, trusted, *report.Record)
}

func TestVerifyMismatch(t *testing.T) {
	other := trusted
	other.StudentName = "Alice Walker"
	svc := NewService(stubExtractor{}, store.NewMemoryStore(other))

	report, err := svc.Verify(context.Background(), Request{FileName: "cert.png", Data: []byte(certificateText)})
	require.NoError(t, err)

	assert.Equal(t, StatusMismatch, report.Status)
	assert.Equal(t, []string{certificate.FieldStudentName}, report.Validation.MismatchedFields)
	assert.NotEmpty(t, report.Validation.Warnings)
	assert.Nil(t, report.Record, "a looked-up record is only returned once verified")
}

func TestVerifyLookupIDOverride(t *testing.T) {
	svc := NewService(stubExtractor{}, store.NewMemoryStore(trusted))

	report, err := svc.Verify(context.Background(), Request{
		FileName: "cert.png",
		Data:     []byte("This is to certify that\nJohn Doe\nCertificate ID: WRONG-000"),
		LookupID: "fswd-5f3a2b-123456",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusMismatch, report.Status)
	assert.Contains(t, report.Validation.MismatchedFields, certificate.FieldCertificateID)
	assert.False(t, report.Validation.IsValid)
	assert.Nil(t, report.Record)
}

func TestVerifyNotFound(t *testing.T) {
	svc := NewService(stubExtractor{}, store.NewMemoryStore())

	report, err := svc.Verify(context.Background(), Request{FileName: "cert.png", Data: []byte(certificateText)})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, report.Status)
	assert.Contains(t, report.Message, "FSWD-5F3A2B-123456")
	assert.Nil(t, report.Validation)

	report, err = svc.Verify(context.Background(), Request{FileName: "blank.png", Data: []byte("nothing useful")})
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, report.Status)
	assert.Equal(t, "no certificate ID found on the document", report.Message)
}

func TestVerifyErrors(t *testing.T) {
	_, err := NewService(stubExtractor{}, nil).Verify(context.Background(), Request{FileName: "cert.png"})
	assert.ErrorIs(t, err, ErrNoRecordSource)

	readErr := ocr.NewExtractionError("Recognize", ocr.ErrExtractionTimeout, "")
	_, err = NewService(stubExtractor{err: readErr}, store.NewMemoryStore()).Verify(context.Background(), Request{FileName: "cert.png"})
	assert.ErrorIs(t, err, ocr.ErrExtractionTimeout)

	dbErr := errors.New("connection reset")
	_, err = NewService(stubExtractor{}, failingStore{err: dbErr}).Verify(context.Background(), Request{FileName: "cert.png", Data: []byte(certificateText)})
	assert.ErrorIs(t, err, dbErr)
}

func TestVerifyFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	paths := []string{
		write("a.png", certificateText),
		write("b.png", "nothing"),
		filepath.Join(dir, "missing.png"),
		write("c.pdf", certificateText),
	}

	svc := NewService(stubExtractor{}, store.NewMemoryStore(trusted))

	var mu sync.Mutex
	var seen []int
	results := svc.VerifyFiles(context.Background(), paths, 3, func(done, total int, r BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(paths), total)
		seen = append(seen, done)
	})

	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, paths[i], r.Path)
	}
	assert.Equal(t, StatusVerified, results[0].Report.Status)
	assert.Equal(t, StatusNotFound, results[1].Report.Status)
	assert.Error(t, results[2].Err)
	assert.Equal(t, StatusVerified, results[3].Report.Status)

	sort.Ints(seen)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestFindCertificateFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"a.PNG", "b.pdf", "notes.txt", filepath.Join("nested", "c.jpeg")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	files, err := FindCertificateFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"a.PNG", "b.pdf", "c.jpeg"}, names)
}
