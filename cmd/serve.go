package cmd

import (
	"github.com/spf13/cobra"

	"certverify/internal/config"
	"certverify/internal/logger"
	"certverify/internal/server"
	"certverify/internal/verification"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the certificate verification HTTP API",
	Long: `Serve the verification pipeline over HTTP.

Endpoints:
  POST /api/v1/extract                    multipart field "certificate"
  POST /api/v1/verify                     multipart "certificate" plus optional
                                          studentName, certificateId, courseName,
                                          issueDate, lookupId form fields
  GET  /api/v1/certificates/{id}/qrcode   PNG QR code of the public verify URL
  GET  /healthz

Records for lookups come from --records or DATABASE_URL (cached in REDIS_URL).
Without either, /api/v1/verify needs the record in the form fields.`,
	Example: `  # Listen on HTTP_ADDR (default :8080)
  certverify serve

  # Serve a records file on another port
  certverify serve --addr :9000 --records records.json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().String("records", "", "JSON file of trusted records (instead of DATABASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	recordsPath, _ := cmd.Flags().GetString("records")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.HTTPAddr
	}

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
		log.Warn().Msg("No record store configured, verify requests must carry the record")
	}

	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	srv := server.New(verification.NewService(extractor, records), server.Config{
		Addr:           addr,
		PublicBaseURL:  cfg.PublicBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	return srv.ListenAndServe(ctx)
}
