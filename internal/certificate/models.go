// Package certificate parses certificate fields out of OCR or PDF text and validates them
// against a trusted record.
//
// Both stages are total functions: sparse or malformed text produces a record with nil
// fields and a low confidence, never an error. Nothing in this package performs I/O.
//
// Line handling: CRLF and lone CR line endings are folded to LF before the text is split,
// so output from Windows tooling parses the same as Unix output.
package certificate

// Field names reported in ValidationResult.
const (
	FieldCertificateID = "certificateId"
	FieldStudentName   = "studentName"
	FieldCourseName    = "courseName"
	FieldIssueDate     = "issueDate"
)

// canonicalFieldCount is the number of fields confidence scores are computed against.
const canonicalFieldCount = 4

// ExtractedData is the best-effort record parsed from certificate text.
// A nil field means the parser found nothing for it.
type ExtractedData struct {
	StudentName     *string `json:"studentName"`
	CertificateID   *string `json:"certificateId"`
	CourseName      *string `json:"courseName"`
	IssueDate       *string `json:"issueDate"`
	InstitutionName *string `json:"institutionName"`
	Grade           *string `json:"grade"`

	// Confidence is the share of the four canonical fields that were found, 0-100.
	Confidence float64 `json:"confidence"`

	// RawText is the full extractor output, kept for auditing.
	RawText string `json:"rawText"`
}

// Record is the trusted comparison record, usually loaded from the database.
type Record struct {
	StudentName   string `json:"studentName"`
	CertificateID string `json:"certificateId"`
	CourseName    string `json:"courseName"`
	IssueDate     string `json:"issueDate"`
}

// ValidationResult is the verdict of comparing ExtractedData against a Record.
// MatchedFields and MismatchedFields are disjoint.
type ValidationResult struct {
	IsValid          bool     `json:"isValid"`
	MatchedFields    []string `json:"matchedFields"`
	MismatchedFields []string `json:"mismatchedFields"`
	Confidence       float64  `json:"confidence"`
	Warnings         []string `json:"warnings"`
}

// Value dereferences an optional field, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
