package certificate

import "fmt"

// Match thresholds. Changing them changes what counts as a genuine certificate.
const (
	StudentNameThreshold = 0.70
	CourseNameThreshold  = 0.60
	MinMatchedFields     = 2
)

// Validate compares extracted fields with the trusted record. Fields the parser did not find
// are skipped: they count neither as matched nor as mismatched.
func Validate(extracted ExtractedData, record Record) ValidationResult {
	result := ValidationResult{
		MatchedFields:    []string{},
		MismatchedFields: []string{},
		Warnings:         []string{},
	}

	if extracted.CertificateID != nil {
		if Normalize(*extracted.CertificateID) == Normalize(record.CertificateID) {
			result.match(FieldCertificateID)
		} else {
			result.mismatch(FieldCertificateID, "Certificate ID does not match records")
		}
	}

	if extracted.StudentName != nil {
		score := Similarity(*extracted.StudentName, record.StudentName)
		if score >= StudentNameThreshold {
			result.match(FieldStudentName)
		} else {
			result.mismatch(FieldStudentName, fmt.Sprintf(
				"Student name mismatch: OCR found %q, database has %q (similarity %.2f)",
				*extracted.StudentName, record.StudentName, score))
		}
	}

	if extracted.CourseName != nil {
		score := Similarity(*extracted.CourseName, record.CourseName)
		if score >= CourseNameThreshold {
			result.match(FieldCourseName)
		} else {
			result.mismatch(FieldCourseName, fmt.Sprintf(
				"Course name mismatch: OCR found %q, database has %q (similarity %.2f)",
				*extracted.CourseName, record.CourseName, score))
		}
	}

	if extracted.IssueDate != nil {
		got, want := NormalizeDate(*extracted.IssueDate), NormalizeDate(record.IssueDate)
		if got == want {
			result.match(FieldIssueDate)
		} else {
			result.mismatch(FieldIssueDate, fmt.Sprintf(
				"Issue date mismatch: OCR found %q, database has %q", *extracted.IssueDate, record.IssueDate))
		}
	}

	result.IsValid = len(result.MismatchedFields) == 0 && len(result.MatchedFields) >= MinMatchedFields
	result.Confidence = float64(len(result.MatchedFields)) / canonicalFieldCount * 100
	return result
}

func (r *ValidationResult) match(field string) {
	r.MatchedFields = append(r.MatchedFields, field)
}

func (r *ValidationResult) mismatch(field, warning string) {
	r.MismatchedFields = append(r.MismatchedFields, field)
	r.Warnings = append(r.Warnings, warning)
}
