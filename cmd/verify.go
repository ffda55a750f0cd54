package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"certverify/internal/certificate"
	"certverify/internal/config"
	"certverify/internal/logger"
	"certverify/internal/verification"
)

// errNotVerified makes the command exit non-zero after the report was printed.
var errNotVerified = errors.New("certificate could not be verified")

var verifyCmd = &cobra.Command{
	Use:   "verify [certificate-file]",
	Short: "Validate a certificate against its trusted record",
	Long: `Extract the fields of a certificate and compare them with the trusted record.

The record is taken from the --name/--id/--course/--date flags when any of them
is set. Otherwise it is looked up by the certificate ID printed on the document
(or --lookup) in the --records JSON file or the DATABASE_URL database, cached in
REDIS_URL when configured.

A certificate verifies when no extracted field contradicts the record and at
least two fields match. The command exits non-zero when it does not verify.`,
	Example: `  # Compare with a record given on the command line
  certverify verify cert.png --name "John Doe" --id FSWD-5F3A2B-123456

  # Look the record up in the database
  certverify verify cert.pdf

  # Look up a specific ID in a records file
  certverify verify cert.jpg --records records.json --lookup FSWD-5F3A2B-123456 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("name", "", "Trusted student name")
	verifyCmd.Flags().String("id", "", "Trusted certificate ID")
	verifyCmd.Flags().String("course", "", "Trusted course name")
	verifyCmd.Flags().String("date", "", "Trusted issue date")
	verifyCmd.Flags().String("lookup", "", "Certificate ID to look up instead of the one on the document")
	verifyCmd.Flags().String("records", "", "JSON file of trusted records (instead of DATABASE_URL)")
	verifyCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
	verifyCmd.Flags().Bool("raw", false, "Include the raw extracted text")
	verifyCmd.Flags().Int("timeout", 120, "Overall timeout in seconds")
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("verify")

	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	id, _ := flags.GetString("id")
	course, _ := flags.GetString("course")
	date, _ := flags.GetString("date")
	lookupID, _ := flags.GetString("lookup")
	recordsPath, _ := flags.GetString("records")
	outputPath, _ := flags.GetString("output")
	jsonOutput, _ := flags.GetBool("json")
	includeRaw, _ := flags.GetBool("raw")
	timeoutSecs, _ := flags.GetInt("timeout")

	path := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := readCertificateFile(path, log)
	if err != nil {
		return err
	}

	req := verification.Request{
		FileName: filepath.Base(path),
		Data:     data,
		LookupID: strings.TrimSpace(lookupID),
	}
	record := certificate.Record{
		StudentName:   strings.TrimSpace(name),
		CertificateID: strings.TrimSpace(id),
		CourseName:    strings.TrimSpace(course),
		IssueDate:     strings.TrimSpace(date),
	}
	if record != (certificate.Record{}) {
		req.Record = &record
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	extractor, err := createExtractor(cfg, log)
	if err != nil {
		return err
	}

	svc := verification.NewService(extractor, nil)
	if req.Record == nil {
		records, release, err := openRecordStore(cfg, recordsPath, log)
		if err != nil {
			return err
		}
		defer release()
		svc = verification.NewService(extractor, records)
	}

	log.Info().
		Str("file", path).
		Bool("record_from_flags", req.Record != nil).
		Str("lookup", req.LookupID).
		Msg("Starting certificate verification")

	report, err := svc.Verify(ctx, req)
	if err != nil {
		return handleExtractionError(err, log)
	}

	if !includeRaw {
		report.Extracted.RawText = ""
	}

	var out []byte
	if jsonOutput {
		out, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		out = append(out, '\n')
	} else {
		out = []byte(formatReport(filepath.Base(path), report, includeRaw))
	}

	if err := writeOutput(out, outputPath, log); err != nil {
		return err
	}

	if report.Status != verification.StatusVerified {
		return fmt.Errorf("%w: %s", errNotVerified, report.Status)
	}
	return nil
}
