package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"certverify/internal/config"
	"certverify/internal/ocr"
	"certverify/internal/store"
	"certverify/internal/verification"
)

// createContextWithTimeout creates a context with timeout and signal handling.
// A non-positive timeout only cancels on signals.
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createExtractor builds the extractor for the configured OCR engine and PDF backend.
func createExtractor(cfg *config.Config, log zerolog.Logger) (*ocr.Extractor, error) {
	if err := cfg.RequireOCR(); err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(ocr.EngineConfig{
		Name: cfg.OCREngine,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		},
		Tesseract: ocr.TesseractConfig{
			Binary:      cfg.TesseractPath,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
		},
		LanguageHints: cfg.OCRLanguageHints,
	})
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS " +
				"to a service account JSON file or GOOGLE_CREDENTIALS to inline JSON, " +
				"or choose OCR_ENGINE=tesseract")
		}
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	pdfText, err := ocr.DefaultPDFBackends(ocr.PDFOptions{Password: cfg.PDFPassword}).Resolve(cfg.PDFBackend)
	if err != nil {
		return nil, fmt.Errorf("PDF_BACKEND: %w", err)
	}

	log.Debug().
		Str("engine", engine.Name()).
		Str("pdf_backend", cfg.PDFBackend).
		Dur("timeout", cfg.OCRTimeout).
		Msg("Extractor configured")

	return ocr.NewExtractor(engine,
		ocr.WithTimeout(cfg.OCRTimeout),
		ocr.WithPreprocessing(cfg.PreprocessImages),
		ocr.WithMaxBytes(cfg.MaxUploadBytes),
		ocr.WithPDFBackend(cfg.PDFBackend, pdfText),
	), nil
}

// openRecordStore returns the trusted record store: a JSON records file when recordsPath
// is set, otherwise Postgres behind an optional Redis cache. The returned func releases
// the connections. A nil store with a nil error means nothing is configured.
func openRecordStore(cfg *config.Config, recordsPath string, log zerolog.Logger) (store.RecordStore, func(), error) {
	noop := func() {}

	if recordsPath != "" {
		s, err := store.LoadMemoryStore(recordsPath)
		if err != nil {
			return nil, noop, err
		}
		log.Debug().Str("file", recordsPath).Msg("Using records file")
		return s, noop, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, noop, nil
	}

	pg, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeAll := func() {
		if err := pg.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}

	if cfg.RedisURL == "" {
		return pg, closeAll, nil
	}

	client, err := store.NewRedisClient(cfg.RedisURL)
	if err != nil {
		closeAll()
		return nil, noop, err
	}
	log.Debug().Dur("ttl", cfg.CacheTTL).Msg("Caching record lookups in Redis")

	return store.NewCachedStore(pg, client, cfg.CacheTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
		closeAll()
	}, nil
}

// handleExtractionError provides user-friendly error messages for pipeline failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Certificate processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, ocr.ErrExtractionTimeout):
		return fmt.Errorf("could not read certificate: OCR did not finish in time. Try raising OCR_TIMEOUT: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file type. Upload a PNG, JPEG, TIFF, BMP, GIF, WebP image or a PDF")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("file too large. Raise MAX_UPLOAD_BYTES or compress the file: %w", err)
	case errors.Is(err, ocr.ErrIntegrationShape):
		return fmt.Errorf("PDF text extraction is misconfigured: %w", err)
	case errors.Is(err, verification.ErrNoRecordSource):
		return fmt.Errorf("no trusted record: pass --name/--id/--course/--date, --records, or set DATABASE_URL")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Ensure the service account may use the selected OCR API")
	case errors.Is(err, ocr.ErrExtractionFailed):
		return fmt.Errorf("could not read certificate: %w", err)
	default:
		return fmt.Errorf("certificate processing failed: %w", err)
	}
}

// readCertificateFile checks the path and reads it.
func readCertificateFile(path string, log zerolog.Logger) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if !ocr.IsSupportedFile(path) {
		log.Warn().Str("file", path).Msg("Unrecognised file extension, relying on content sniffing")
	}

	return os.ReadFile(path)
}
