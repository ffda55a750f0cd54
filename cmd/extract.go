package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"certverify/internal/certificate"
	"certverify/internal/config"
	"certverify/internal/logger"
	"certverify/internal/verification"
)

var extractCmd = &cobra.Command{
	Use:   "extract [certificate-file]",
	Short: "Extract and parse the fields of a certificate",
	Long: `Read a certificate image or PDF and print the fields found on it.

Images go through the OCR engine selected by OCR_ENGINE. PDFs are read from
their embedded text layer; scanned PDFs without text produce empty fields.

Environment variables:
  OCR_ENGINE     - tesseract (default), vision or documentai
  OCR_TIMEOUT    - OCR time limit per image (default 30s)
  OCR_PREPROCESS - resize, grayscale and contrast-stretch images (default true)
  PDF_BACKEND    - PDF text backend (default ledongthuc)`,
	Example: `  # Print the parsed fields
  certverify extract certificate.png

  # JSON including the raw OCR text
  certverify extract certificate.pdf --json --raw

  # Save to a file
  certverify extract certificate.jpg --json -o fields.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Bool("raw", false, "Include the raw extracted text")
	extractCmd.Flags().Int("timeout", 120, "Overall timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	includeRaw, _ := cmd.Flags().GetBool("raw")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]

	log.Info().
		Str("file", path).
		Bool("json", jsonOutput).
		Bool("raw", includeRaw).
		Msg("Starting certificate extraction")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := readCertificateFile(path, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	extractor, err := createExtractor(cfg, log)
	if err != nil {
		return err
	}

	report, err := verification.NewService(extractor, nil).Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return handleExtractionError(err, log)
	}

	log.Info().
		Str("source", report.Extraction.Source).
		Str("method", report.Extraction.Method).
		Float64("confidence", report.Extracted.Confidence).
		Dur("duration", report.Extraction.Duration).
		Msg("Certificate extraction completed")

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

	return writeOutput(out, outputPath, log)
}

// formatReport renders a report for the terminal.
func formatReport(name string, report *verification.Report, includeRaw bool) string {
	var b strings.Builder
	ex := report.Extracted

	fmt.Fprintf(&b, "=== Certificate: %s ===\n", name)
	fmt.Fprintf(&b, "Student name:    %s\n", orDash(ex.StudentName))
	fmt.Fprintf(&b, "Certificate ID:  %s\n", orDash(ex.CertificateID))
	fmt.Fprintf(&b, "Course:          %s\n", orDash(ex.CourseName))
	fmt.Fprintf(&b, "Issue date:      %s\n", orDash(ex.IssueDate))
	fmt.Fprintf(&b, "Institution:     %s\n", orDash(ex.InstitutionName))
	fmt.Fprintf(&b, "Grade:           %s\n", orDash(ex.Grade))
	fmt.Fprintf(&b, "Confidence:      %.0f%%\n", ex.Confidence)

	meta := report.Extraction
	fmt.Fprintf(&b, "Read from:       %s via %s", meta.Source, meta.Method)
	if meta.Pages > 0 {
		fmt.Fprintf(&b, ", %d page(s)", meta.Pages)
	}
	fmt.Fprintf(&b, " in %s\n", meta.Duration.Round(time.Millisecond))

	if v := report.Validation; v != nil {
		b.WriteString("\n=== Validation ===\n")
		fmt.Fprintf(&b, "Status:          %s\n", strings.ToUpper(string(report.Status)))
		fmt.Fprintf(&b, "Matched:         %s\n", joinOrDash(v.MatchedFields))
		fmt.Fprintf(&b, "Mismatched:      %s\n", joinOrDash(v.MismatchedFields))
		fmt.Fprintf(&b, "Confidence:      %.0f%%\n", v.Confidence)
		for _, w := range v.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", w)
		}
	} else if report.Message != "" {
		fmt.Fprintf(&b, "\nStatus:          %s (%s)\n", strings.ToUpper(string(report.Status)), report.Message)
	}

	if includeRaw {
		b.WriteString("\n=== Extracted Text ===\n\n")
		b.WriteString(ex.RawText)
		b.WriteString("\n")
	}
	return b.String()
}

func orDash(s *string) string {
	if v := certificate.Value(s); v != "" {
		return v
	}
	return "-"
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}
