package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "abc123", Normalize("ABC-123"))
	assert.Equal(t, "abc123", Normalize("abc 123"))
	assert.Equal(t, "fswd5f3a2b123456", Normalize(" FSWD-5F3A2B/123_456 "))
	assert.Equal(t, "", Normalize("--- ..."))
	assert.Equal(t, "josé", Normalize("José"))
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "", b: "", want: 0},
		{a: "abc", b: "", want: 3},
		{a: "kitten", b: "sitting", want: 3},
		{a: "flaw", b: "lawn", want: 2},
		{a: "johndoe", b: "jondoe", want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		assert.Equal(t, tt.want, Distance(tt.b, tt.a), "%q vs %q", tt.b, tt.a)
	}
}

func TestSimilarity(t *testing.T) {
	pairs := [][2]string{
		{"John Doe", "Jon Doe"},
		{"Full Stack Web Dev", "Full Stack Web Development"},
		{"abc", "xyz"},
		{"", "something"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "symmetry for %q/%q", p[0], p[1])
	}

	assert.Equal(t, 1.0, Similarity("Jane Smith", "Jane Smith"))
	assert.Equal(t, 1.0, Similarity("Jane-Smith", "jane smith"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abcd", "wxyz"))
	assert.InDelta(t, 6.0/7.0, Similarity("John Doe", "Jon Doe"), 1e-9)
}

func TestValidateScenarioPartialExtraction(t *testing.T) {
	extracted := ExtractedData{
		CertificateID: strPtr("FSWD-5F3A2B-123456"),
		StudentName:   strPtr("Jon Doe"),
	}
	record := Record{
		CertificateID: "FSWD-5F3A2B-123456",
		StudentName:   "John Doe",
		CourseName:    "Full Stack Web Dev",
		IssueDate:     "2024-01-15",
	}

	got := Validate(extracted, record)

	assert.Equal(t, []string{FieldCertificateID, FieldStudentName}, got.MatchedFields)
	assert.Empty(t, got.MismatchedFields)
	assert.Empty(t, got.Warnings)
	assert.True(t, got.IsValid)
	assert.Equal(t, 50.0, got.Confidence)
}

func TestValidateWrongIDInvalidatesPerfectName(t *testing.T) {
	extracted := ExtractedData{
		CertificateID: strPtr("WRONG-000"),
		StudentName:   strPtr("John Doe"),
		CourseName:    strPtr("Full Stack Web Dev"),
	}
	record := Record{CertificateID: "FSWD-123", StudentName: "John Doe", CourseName: "Full Stack Web Dev"}

	got := Validate(extracted, record)

	assert.False(t, got.IsValid)
	assert.Equal(t, []string{FieldCertificateID}, got.MismatchedFields)
	assert.Equal(t, []string{FieldStudentName, FieldCourseName}, got.MatchedFields)
	assert.Len(t, got.Warnings, 1)
	assert.Equal(t, 50.0, got.Confidence)
}

func TestValidateSingleMatchIsNotEnough(t *testing.T) {
	got := Validate(ExtractedData{CertificateID: strPtr("abc 123")}, Record{CertificateID: "ABC-123"})

	assert.Equal(t, []string{FieldCertificateID}, got.MatchedFields)
	assert.Empty(t, got.MismatchedFields)
	assert.False(t, got.IsValid)
	assert.Equal(t, 25.0, got.Confidence)
}

func TestValidateNothingExtracted(t *testing.T) {
	got := Validate(ExtractedData{}, Record{CertificateID: "X", StudentName: "Y"})

	assert.False(t, got.IsValid)
	assert.Empty(t, got.MatchedFields)
	assert.Empty(t, got.MismatchedFields)
	assert.Zero(t, got.Confidence)
}

func TestValidateStudentNameWarningQuotesBothValues(t *testing.T) {
	got := Validate(
		ExtractedData{StudentName: strPtr("Alice Walker"), CertificateID: strPtr("C-100")},
		Record{StudentName: "Bob Stone", CertificateID: "C-100"},
	)

	assert.Equal(t, []string{FieldStudentName}, got.MismatchedFields)
	if assert.Len(t, got.Warnings, 1) {
		assert.Contains(t, got.Warnings[0], `"Alice Walker"`)
		assert.Contains(t, got.Warnings[0], `"Bob Stone"`)
	}
	assert.False(t, got.IsValid)
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name      string
		extracted ExtractedData
		record    Record
		matched   []string
	}{
		{
			// "fullstackweb" vs "fullstackwebdevelopment": 1 - 11/23 < 0.60
			name:      "course too short",
			extracted: ExtractedData{CourseName: strPtr("Full Stack Web")},
			record:    Record{CourseName: "Full Stack Web Development"},
			matched:   []string{},
		},
		{
			// "fullstackwebdev" vs "fullstackwebdevelopment": 1 - 8/23 >= 0.60
			name:      "course abbreviated",
			extracted: ExtractedData{CourseName: strPtr("Full Stack Web Dev")},
			record:    Record{CourseName: "Full Stack Web Development"},
			matched:   []string{FieldCourseName},
		},
		{
			// one transposition costs two edits: 1 - 2/7
			name:      "name typo",
			extracted: ExtractedData{StudentName: strPtr("Jhon Doe")},
			record:    Record{StudentName: "John Doe"},
			matched:   []string{FieldStudentName},
		},
		{
			// two transpositions: 1 - 4/7
			name:      "name garbled",
			extracted: ExtractedData{StudentName: strPtr("Jhon Deo")},
			record:    Record{StudentName: "John Doe"},
			matched:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.extracted, tt.record)
			assert.Equal(t, tt.matched, got.MatchedFields)
			for _, f := range got.MatchedFields {
				assert.NotContains(t, got.MismatchedFields, f)
			}
		})
	}
}

func TestValidateIssueDate(t *testing.T) {
	tests := []struct {
		name      string
		extracted string
		record    string
		match     bool
	}{
		{name: "day first slash", extracted: "15/01/2024", record: "2024-01-15", match: true},
		{name: "month name", extracted: "Jan 15, 2024", record: "2024-01-15", match: true},
		{name: "four letter abbreviation", extracted: "Sept 5, 2024", record: "2024-09-05", match: true},
		{name: "different day", extracted: "16-01-2024", record: "2024-01-15", match: false},
		{name: "identical unparsable", extracted: "Spring 2024", record: "Spring 2024", match: true},
		{name: "different unparsable", extracted: "Spring 2024", record: "Fall 2024", match: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(ExtractedData{IssueDate: strPtr(tt.extracted)}, Record{IssueDate: tt.record})
			if tt.match {
				assert.Equal(t, []string{FieldIssueDate}, got.MatchedFields)
			} else {
				assert.Equal(t, []string{FieldIssueDate}, got.MismatchedFields)
			}
		})
	}
}

func TestValidateIssueDateWarningQuotesRawValues(t *testing.T) {
	got := Validate(ExtractedData{IssueDate: strPtr("16/01/2024")}, Record{IssueDate: "2024-01-15"})
	assert.Equal(t, []string{`Issue date mismatch: OCR found "16/01/2024", database has "2024-01-15"`}, got.Warnings)
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2024-01-15":       "2024-01-15",
		"15-01-2024":       "2024-01-15",
		"15/01/2024":       "2024-01-15",
		"5/1/2024":         "2024-01-05",
		"January 5, 2024":  "2024-01-05",
		"Jan 15 2024":      "2024-01-15",
		"Sept 5, 2024":     "2024-09-05",
		"Sept. 5, 2024":    "2024-09-05",
		"September 5 2024": "2024-09-05",
		" 2024-01-15 ":     "2024-01-15",
		"not a date":       "not a date",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDate(in), "input %q", in)
	}
}
