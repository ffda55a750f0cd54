package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"certverify/internal/certificate"
	"certverify/internal/logger"
	"certverify/internal/verification"
)

// Headers of the audit sheet, columns A to O.
var Headers = []interface{}{
	"File", "Status", "Certificate ID", "Student Name", "Course", "Issue Date",
	"Institution", "Grade", "Extraction Confidence", "Matched", "Mismatched",
	"Validation Confidence", "Warnings", "Method", "Processed At",
}

const lastColumn = "O"

var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// Row is one audit line.
type Row struct {
	File                 string
	Status               string
	CertificateID        string
	StudentName          string
	CourseName           string
	IssueDate            string
	Institution          string
	Grade                string
	ExtractionConfidence float64
	Matched              string
	Mismatched           string
	ValidationConfidence float64
	Warnings             string
	Method               string
	ProcessedAt          string
}

// NewSheetsService creates a new Google Sheets service
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// WriteBatchResults appends one row per batch result to sheetName, creating the sheet
// and its header row when missing.
func (s *Service) WriteBatchResults(ctx context.Context, results []verification.BatchResult, sheetName string) error {
	const op = "WriteBatchResults"

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(results)).
		Msg("Writing batch results to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	var values [][]interface{}
	for _, row := range BuildRows(results, time.Now()) {
		values = append(values, row.Values())
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		sheetName+"!A:"+lastColumn,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote batch results to Google Sheet")

	return nil
}

// BuildRows converts batch results into audit rows stamped with processedAt.
func BuildRows(results []verification.BatchResult, processedAt time.Time) []Row {
	stamp := processedAt.Format("2006-01-02 15:04:05")
	rows := make([]Row, 0, len(results))

	for _, result := range results {
		row := Row{
			File:        result.Path,
			ProcessedAt: stamp,
		}

		if result.Err != nil || result.Report == nil {
			row.Status = "error"
			if result.Err != nil {
				row.Warnings = "Error: " + result.Err.Error()
			}
			rows = append(rows, row)
			continue
		}

		report := result.Report
		row.Status = string(report.Status)
		row.Method = report.Extraction.Method

		ex := report.Extracted
		row.CertificateID = certificate.Value(ex.CertificateID)
		row.StudentName = certificate.Value(ex.StudentName)
		row.CourseName = certificate.Value(ex.CourseName)
		row.IssueDate = certificate.Value(ex.IssueDate)
		row.Institution = certificate.Value(ex.InstitutionName)
		row.Grade = certificate.Value(ex.Grade)
		row.ExtractionConfidence = ex.Confidence

		if v := report.Validation; v != nil {
			row.Matched = strings.Join(v.MatchedFields, ", ")
			row.Mismatched = strings.Join(v.MismatchedFields, ", ")
			row.ValidationConfidence = v.Confidence
			row.Warnings = strings.Join(v.Warnings, "; ")
		} else if report.Message != "" {
			row.Warnings = report.Message
		}

		rows = append(rows, row)
	}

	return rows
}

// Values returns the row in column order.
func (r Row) Values() []interface{} {
	return []interface{}{
		r.File,                 // A
		r.Status,               // B
		r.CertificateID,        // C
		r.StudentName,          // D
		r.CourseName,           // E
		r.IssueDate,            // F
		r.Institution,          // G
		r.Grade,                // H
		r.ExtractionConfidence, // I
		r.Matched,              // J
		r.Mismatched,           // K
		r.ValidationConfidence, // L
		r.Warnings,             // M
		r.Method,               // N
		r.ProcessedAt,          // O
	}
}

func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, lastColumn)
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

		_, err = s.sheetsService.Spreadsheets.Values.Update(
			s.spreadsheetID,
			headerRange,
			&sheets.ValueRange{Values: [][]interface{}{Headers}},
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to add headers: %w", op, err)
		}

		if err := s.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	return nil
}

// formatHeaders makes the header row bold and resizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	columns := int64(len(Headers))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}

// ReadRange reads values from a specified range in the spreadsheet
func (s *Service) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().
		Str("range", rangeSpec).
		Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}

	s.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", rangeSpec).
		Msg("Successfully read range from spreadsheet")

	return resp.Values, nil
}

// ReadRecords reads trusted records from a range whose first row is a header naming
// the columns studentName, certificateId, courseName and issueDate (any case, spaces
// and underscores ignored).
func (s *Service) ReadRecords(ctx context.Context, rangeSpec string) ([]certificate.Record, error) {
	values, err := s.ReadRange(ctx, rangeSpec)
	if err != nil {
		return nil, err
	}
	return RecordsFromValues(values)
}

// RecordsFromValues maps sheet values to records using the header row. Rows without a
// certificate ID are skipped.
func RecordsFromValues(values [][]interface{}) ([]certificate.Record, error) {
	if len(values) == 0 {
		return nil, nil
	}

	columns := map[string]int{}
	for i, h := range values[0] {
		columns[headerKey(fmt.Sprint(h))] = i
	}
	idCol, ok := columns["certificateid"]
	if !ok {
		return nil, fmt.Errorf("header row has no certificateId column")
	}

	cell := func(row []interface{}, key string) string {
		i, ok := columns[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	var records []certificate.Record
	for _, row := range values[1:] {
		if idCol >= len(row) || strings.TrimSpace(fmt.Sprint(row[idCol])) == "" {
			continue
		}
		records = append(records, certificate.Record{
			StudentName:   cell(row, "studentname"),
			CertificateID: cell(row, "certificateid"),
			CourseName:    cell(row, "coursename"),
			IssueDate:     cell(row, "issuedate"),
		})
	}
	return records, nil
}

func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}
