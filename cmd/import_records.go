package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certverify/internal/certificate"
	"certverify/internal/config"
	"certverify/internal/logger"
	"certverify/internal/sheets"
	"certverify/internal/store"
)

var importRecordsCmd = &cobra.Command{
	Use:   "import-records [records.json]",
	Short: "Load trusted certificate records into the database",
	Long: `Insert or update trusted records in the DATABASE_URL database.

Records are read from a JSON array of objects with studentName, certificateId,
courseName and issueDate, or with --sheet-range from GOOGLE_SHEET_URL, where the
first row of the range names those columns. Existing rows with the same
normalized certificate ID are updated, and their Redis cache entries dropped
when REDIS_URL is set.`,
	Example: `  # Import a JSON file
  certverify import-records records.json

  # Import from a Google Sheet
  certverify import-records --sheet-range "Records!A:D"

  # Check the input without writing
  certverify import-records records.json --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImportRecords,
}

func init() {
	rootCmd.AddCommand(importRecordsCmd)

	importRecordsCmd.Flags().String("sheet-range", "", "Read records from this range of GOOGLE_SHEET_URL")
	importRecordsCmd.Flags().Bool("dry-run", false, "Read and check the records without writing them")
	importRecordsCmd.Flags().Duration("timeout", 5*time.Minute, "Overall timeout")
}

func runImportRecords(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import-records")

	sheetRange, _ := cmd.Flags().GetString("sheet-range")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if (len(args) == 1) == (sheetRange != "") {
		return fmt.Errorf("pass either a records file or --sheet-range")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	var records []certificate.Record
	if sheetRange != "" {
		if err := cfg.RequireSheets(); err != nil {
			return err
		}
		sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		records, err = sheetsService.ReadRecords(ctx, sheetRange)
		if err != nil {
			return err
		}
	} else {
		records, err = store.ReadRecordsFile(args[0])
		if err != nil {
			return err
		}
	}

	var valid []certificate.Record
	for _, r := range records {
		if certificate.Normalize(r.CertificateID) == "" || r.StudentName == "" {
			log.Warn().
				Str("certificate_id", r.CertificateID).
				Str("student_name", r.StudentName).
				Msg("Skipping record without certificate ID or student name")
			continue
		}
		valid = append(valid, r)
	}

	fmt.Printf("Read %d records, %d valid\n", len(records), len(valid))
	if dryRun || len(valid) == 0 {
		return nil
	}

	if err := cfg.RequireStore(); err != nil {
		return err
	}
	pg, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	if err := pg.Save(ctx, valid...); err != nil {
		return err
	}

	if cfg.RedisURL != "" {
		client, err := store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		cache := store.NewCachedStore(pg, client, cfg.CacheTTL)
		for _, r := range valid {
			if err := cache.Invalidate(ctx, r.CertificateID); err != nil {
				log.Warn().Err(err).Str("certificate_id", r.CertificateID).Msg("Failed to drop cached record")
			}
		}
	}

	log.Info().Int("records", len(valid)).Msg("Records imported")
	fmt.Printf("Imported %d records\n", len(valid))
	return nil
}
