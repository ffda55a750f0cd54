package certificate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// "Certificate No: ABC-12345", "Registration Number - 2021/CS/001". One label, then at
	// most one qualifier (group 1), then the ID (group 2).
	labeledIDRe = regexp.MustCompile(`(?i)\b(?:certificate|cert|credential|ref|reference|registration|reg|id|no|number|code|num)((?:[\s.:#-]+(?:id|no|number|num))?)\b[\s.:#-]*(` + idToken + `)`)

	// An ID starting where a qualifier matched, for IDs like "NO-778899".
	leadingIDRe = regexp.MustCompile(`(?i)^(` + idToken + `)`)

	// "FSWD-5F3A2B-123456", "AB12 3456". Upper case only so ordinary prose is never picked up.
	separatedIDRe = regexp.MustCompile(`\b([A-Z0-9]{2,}(?:[-_/ ][A-Z0-9]{2,})+)\b`)

	broadIDRe = regexp.MustCompile(`\b([A-Za-z0-9]{8,})\b`)

	nameTriggerRe   = regexp.MustCompile(`(?i)certify|awarded to|presented to`)
	courseTriggerRe = regexp.MustCompile(`(?i)completion of|successfully completed`)

	nameLineRe        = regexp.MustCompile(`^[\p{L} .]+$`)
	institutionLineRe = regexp.MustCompile(`^[\p{L} &.,\-]+$`)

	dateRe = regexp.MustCompile(`(?i)\b(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{1,2}-\d{1,2}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})\b`)
	fullDateRe = regexp.MustCompile(`^(?:\d{1,4}[-/ ]){2}\d{1,4}$`)

	gradeRe = regexp.MustCompile(`(?i:\b(?:grade|score|marks|cgpa))\b\s*[:\-]?\s*([A-F][+\-]?|\d+(?:\.\d+)?%?)(?:[^A-Za-z0-9.]|$)`)
)

const idToken = `[A-Z0-9]{2,}(?:[-_/]?[A-Z0-9]{2,})+`

const institutionSearchLines = 5

// Parse extracts certificate fields from raw text. Every field is first-match-wins and
// is located independently of the others in a single pass over the non-empty lines.
func Parse(raw string) ExtractedData {
	data := ExtractedData{RawText: raw}
	lines := splitLines(raw)

	for i, line := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}

		if data.CertificateID == nil {
			if id, ok := findCertificateID(line); ok {
				data.CertificateID = strPtr(id)
			}
		}

		if data.StudentName == nil && next != "" && nameTriggerRe.MatchString(line) {
			if n := utf8.RuneCountInString(next); n >= 2 && n <= 50 && nameLineRe.MatchString(next) {
				data.StudentName = strPtr(next)
			}
		}

		if data.CourseName == nil && next != "" && courseTriggerRe.MatchString(line) {
			if n := utf8.RuneCountInString(next); n >= 5 && n <= 100 {
				data.CourseName = strPtr(next)
			}
		}

		if data.IssueDate == nil {
			if m := dateRe.FindStringSubmatch(line); m != nil {
				data.IssueDate = strPtr(m[1])
			}
		}

		if data.InstitutionName == nil && i < institutionSearchLines {
			if n := utf8.RuneCountInString(line); n >= 5 && n <= 80 && institutionLineRe.MatchString(line) {
				data.InstitutionName = strPtr(line)
			}
		}

		if data.Grade == nil {
			if m := gradeRe.FindStringSubmatch(line); m != nil {
				data.Grade = strPtr(m[1])
			}
		}
	}

	data.Confidence = extractionConfidence(data)
	return data
}

// findCertificateID tries the ID strategies from strict to loose on a single line.
func findCertificateID(line string) (string, bool) {
	for _, m := range labeledIDRe.FindAllStringSubmatchIndex(line, -1) {
		id := line[m[4]:m[5]]
		if m[3] > m[2] {
			// The qualifier may be the ID's own prefix: "Certificate Number: NO-778899".
			qualifier := strings.TrimLeft(line[m[2]:m[3]], " \t.:#-")
			if alt := leadingIDRe.FindStringSubmatch(line[m[3]-len(qualifier):]); alt != nil && len(alt[1]) > len(id) && hasDigit(alt[1]) {
				id = alt[1]
			}
		}
		if hasDigit(id) {
			return id, true
		}
	}

	for _, m := range separatedIDRe.FindAllStringSubmatch(line, -1) {
		c := m[1]
		if len(c) >= 6 && hasDigit(c) && !fullDateRe.MatchString(c) && !isHeading(c) {
			return c, true
		}
	}

	for _, m := range broadIDRe.FindAllStringSubmatch(line, -1) {
		if hasDigit(m[1]) && hasLetter(m[1]) {
			return m[1], true
		}
	}

	return "", false
}

// isHeading reports whether a space-joined candidate reads as words rather than an ID:
// "CERTIFICATE OF ACHIEVEMENT 2024". IDs with a -_/ separator are never headings.
func isHeading(c string) bool {
	if !strings.Contains(c, " ") || strings.ContainsAny(c, "-_/") {
		return false
	}
	for _, group := range strings.Fields(c) {
		if !hasDigit(group) {
			return true
		}
	}
	return false
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func extractionConfidence(d ExtractedData) float64 {
	found := 0
	for _, f := range []*string{d.StudentName, d.CertificateID, d.CourseName, d.IssueDate} {
		if f != nil {
			found++
		}
	}
	return float64(found) / canonicalFieldCount * 100
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
