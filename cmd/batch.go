package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"certverify/internal/config"
	"certverify/internal/logger"
	"certverify/internal/sheets"
	"certverify/internal/verification"
)

const defaultBatchWorkers = 4

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Verify every certificate in a folder",
	Long: `Verify all certificate images and PDFs in a folder (recursively).

Each certificate is read, parsed and validated against the trusted record found
under the certificate ID printed on it. Records come from --records or from the
DATABASE_URL database (cached in REDIS_URL when configured).

With --sheet the results are appended to the worksheet of that name in
GOOGLE_SHEET_URL; the worksheet and its header row are created when missing.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Verify a folder against the database
  certverify batch ./certificates

  # Use a records file and log the results to Google Sheets
  certverify batch ./certificates --records records.json --sheet Verifications

  # Process without writing to the sheet
  certverify batch ./certificates --sheet Verifications --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("records", "", "JSON file of trusted records (instead of DATABASE_URL)")
	batchCmd.Flags().String("sheet", "", "Worksheet in GOOGLE_SHEET_URL to append results to")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS or 4)")
	batchCmd.Flags().Bool("dry-run", false, "Process files but don't write to Google Sheet")
	batchCmd.Flags().Bool("json", false, "Print the reports as JSON instead of a summary")
	batchCmd.Flags().Duration("timeout", 30*time.Minute, "Overall timeout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	flags := cmd.Flags()
	folderPath := args[0]
	recordsPath, _ := flags.GetString("records")
	sheetName, _ := flags.GetString("sheet")
	workers, _ := flags.GetInt("workers")
	dryRun, _ := flags.GetBool("dry-run")
	jsonOutput, _ := flags.GetBool("json")
	timeout, _ := flags.GetDuration("timeout")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if sheetName != "" && !dryRun {
		if err := cfg.RequireSheets(); err != nil {
			return err
		}
	}
	if workers <= 0 {
		workers = getNumWorkers()
	}

	log.Info().
		Str("folder", folderPath).
		Str("sheet", sheetName).
		Int("workers", workers).
		Bool("dry_run", dryRun).
		Msg("Starting batch verification")

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	extractor, err := createExtractor(cfg, log)
	if err != nil {
		return err
	}

	records, release, err := openRecordStore(cfg, recordsPath, log)
	if err != nil {
		return err
	}
	defer release()
	if records == nil {
		return fmt.Errorf("no trusted records: pass --records or set DATABASE_URL")
	}

	files, err := verification.FindCertificateFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find certificate files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No certificate images or PDFs found in the folder.")
		return nil
	}

	quiet := jsonOutput
	if !quiet {
		fmt.Println(strings.Repeat("=", 80))
		fmt.Println("                       CERTIFICATE BATCH VERIFICATION")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Folder: %s\n", folderPath)
		fmt.Printf("Verifying %d files with %d parallel workers...\n\n", len(files), workers)
	}

	svc := verification.NewService(extractor, records)
	results := svc.VerifyFiles(ctx, files, workers, func(done, total int, r verification.BatchResult) {
		if quiet {
			return
		}
		fmt.Printf("[%d/%d] %s - %s", done, total, filepath.Base(r.Path), getStatusEmoji(r))
		switch {
		case r.Err != nil:
			fmt.Printf(" (%s)", r.Err.Error())
		case r.Report == nil:
		case r.Report.Validation != nil:
			fmt.Printf(" (%.0f%%)", r.Report.Validation.Confidence)
		case r.Report.Message != "":
			fmt.Printf(" (%s)", r.Report.Message)
		}
		fmt.Println()
	})

	counts := map[string]int{}
	for _, r := range results {
		counts[batchStatus(r)]++
	}

	if jsonOutput {
		out, err := json.MarshalIndent(batchJSON(results), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Println()
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("                 RESULT")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("Verified:  %d\n", counts[string(verification.StatusVerified)])
		fmt.Printf("Mismatch:  %d\n", counts[string(verification.StatusMismatch)])
		fmt.Printf("Not found: %d\n", counts[string(verification.StatusNotFound)])
		if counts["error"] > 0 {
			fmt.Printf("Errors:    %d\n", counts["error"])
		}
		fmt.Println()
	}

	if sheetName != "" && !dryRun {
		if !quiet {
			fmt.Println("Writing results to Google Sheet...")
		}

		sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := sheetsService.WriteBatchResults(ctx, results, sheetName); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}

		if !quiet {
			fmt.Printf("Sheet: %s\n", sheetName)
			fmt.Printf("Rows added: %d\n", len(results))
			fmt.Printf("URL: %s\n", cfg.GoogleSheetURL)
		}
	}

	log.Info().
		Int("total", len(files)).
		Int("verified", counts[string(verification.StatusVerified)]).
		Int("mismatch", counts[string(verification.StatusMismatch)]).
		Int("not_found", counts[string(verification.StatusNotFound)]).
		Int("errors", counts["error"]).
		Msg("Batch verification completed")

	if err := ctx.Err(); err != nil {
		return handleExtractionError(err, log)
	}
	return nil
}

// getNumWorkers returns the number of workers from environment or default
func getNumWorkers() int {
	if workersStr := os.Getenv("BATCH_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil && workers > 0 {
			return workers
		}
	}
	return defaultBatchWorkers
}

func batchStatus(r verification.BatchResult) string {
	if r.Err != nil || r.Report == nil {
		return "error"
	}
	return string(r.Report.Status)
}

func getStatusEmoji(r verification.BatchResult) string {
	switch batchStatus(r) {
	case string(verification.StatusVerified):
		return "✅"
	case string(verification.StatusMismatch):
		return "⚠️"
	case string(verification.StatusNotFound):
		return "❓"
	default:
		return "❌"
	}
}

type batchItem struct {
	File   string               `json:"file"`
	Report *verification.Report `json:"report,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func batchJSON(results []verification.BatchResult) []batchItem {
	items := make([]batchItem, len(results))
	for i, r := range results {
		items[i] = batchItem{File: r.Path, Report: r.Report}
		if r.Report != nil {
			r.Report.Extracted.RawText = ""
		}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	return items
}
