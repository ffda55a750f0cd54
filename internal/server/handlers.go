package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"certverify/internal/certificate"
	"certverify/internal/logger"
	"certverify/internal/ocr"
	"certverify/internal/verification"
)

// fileField is the multipart field holding the certificate.
const fileField = "certificate"

var alternativeFileFields = []string{"file", "upload", "image", "document", "cert", "certificateFile", "certificate[]", "files[]"}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSONResp(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSONResp(w, status, errorResponse{
		Status:  strings.ReplaceAll(http.StatusText(status), " ", "_"),
		Message: message,
		Details: details,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract: POST /api/v1/extract
// multipart/form-data with file field "certificate"
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	report, err := s.svc.Extract(r.Context(), name, data)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSONResp(w, http.StatusOK, report)
}

// handleVerify: POST /api/v1/verify
// multipart/form-data with file field "certificate" and optional record fields. Without
// record fields the record is looked up by certificate ID.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	req := verification.Request{
		FileName: name,
		Data:     data,
		Record:   recordFromForm(r),
		LookupID: strings.TrimSpace(r.FormValue("lookupId")),
	}

	report, err := s.svc.Verify(r.Context(), req)
	if errors.Is(err, verification.ErrNoRecordSource) {
		writeError(w, http.StatusBadRequest, "send the trusted record fields (studentName, certificateId, courseName, issueDate)", "")
		return
	}
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	if req.Record == nil {
		withholdRecordValues(report)
	}
	writeJSONResp(w, http.StatusOK, report)
}

// withholdRecordValues strips stored values from a mismatch against a looked-up record.
func withholdRecordValues(report *verification.Report) {
	if report.Status != verification.StatusMismatch || report.Validation == nil {
		return
	}
	report.Record = nil
	warnings := make([]string, len(report.Validation.MismatchedFields))
	for i, field := range report.Validation.MismatchedFields {
		warnings[i] = field + " does not match records"
	}
	report.Validation.Warnings = warnings
}

// handleQRCode: GET /api/v1/certificates/{id}/qrcode
func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if certificate.Normalize(id) == "" {
		writeError(w, http.StatusBadRequest, "invalid certificate ID", "")
		return
	}

	size := 256
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024", "")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(s.verifyURL(id), qrcode.Medium, size)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("certificate_id", id).Msg("QR code generation failed")
		writeError(w, http.StatusInternalServerError, "failed to generate QR code", "")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) verifyURL(id string) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/verify/" + url.PathEscape(id)
}

// readUpload returns the uploaded certificate. It writes the error response itself
// and reports ok=false when the request is unusable.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "")
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to parse form or file too large", "")
		return "", nil, false
	}

	file, header, err := formFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field 'certificate' (send multipart/form-data with field name 'certificate')", "")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file", "")
		return "", nil, false
	}
	return header.Filename, data, true
}

// formFile looks for the certificate under its canonical field, then the common
// alternatives, then the first file field sent.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(fileField)
	if err == nil {
		return file, header, nil
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil, nil, err
	}

	log := logger.FromContext(r.Context())
	for _, alt := range alternativeFileFields {
		if f, h, altErr := r.FormFile(alt); altErr == nil {
			log.Debug().Str("field", alt).Msg("Using alternative file field")
			return f, h, nil
		}
	}
	for key := range r.MultipartForm.File {
		if f, h, keyErr := r.FormFile(key); keyErr == nil {
			log.Debug().Str("field", key).Msg("Falling back to first file field")
			return f, h, nil
		}
	}
	return nil, nil, err
}

func recordFromForm(r *http.Request) *certificate.Record {
	rec := certificate.Record{
		StudentName:   strings.TrimSpace(r.FormValue("studentName")),
		CertificateID: strings.TrimSpace(r.FormValue("certificateId")),
		CourseName:    strings.TrimSpace(r.FormValue("courseName")),
		IssueDate:     strings.TrimSpace(r.FormValue("issueDate")),
	}
	if rec == (certificate.Record{}) {
		return nil
	}
	return &rec
}

func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	switch {
	case errors.Is(err, ocr.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large", err.Error())
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type, upload an image or PDF", "")
	case errors.Is(err, ocr.ErrExtractionTimeout), errors.Is(err, ocr.ErrExtractionFailed), errors.Is(err, ocr.ErrIntegrationShape):
		log.Warn().Err(err).Msg("Certificate extraction failed")
		writeError(w, http.StatusUnprocessableEntity, "could not read certificate", err.Error())
	default:
		log.Error().Err(err).Msg("Verification failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}
