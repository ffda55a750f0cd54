package certificate

import (
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// dateLayouts are tried in order. Numeric dates are read day first, the way the parser's
// DD-MM-YYYY and DD/MM/YYYY patterns describe them.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-06",
	"2/1/06",
	"02.01.2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan. 2, 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC3339,
}

// Go's "Jan" layout only knows three-letter abbreviations.
var septRe = regexp.MustCompile(`(?i)\bsept\b`)

var dateParser = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  dateLayouts,
}

// NormalizeDate renders s as YYYY-MM-DD. Strings that cannot be parsed are returned
// unchanged (trimmed), so two identical unparsable strings still compare equal.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	t, err := dateParser.Parse(septRe.ReplaceAllString(s, "Sep"))
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
