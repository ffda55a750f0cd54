package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"certverify/internal/logger"
)

// Extractor produces plain text from certificate images and PDFs.
type Extractor struct {
	engine     Engine
	pdf        PDFTextFunc
	pdfName    string
	clock      clockwork.Clock
	timeout    time.Duration
	preprocess bool
	maxBytes   int64
	log        zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock replaces the clock used for the recognition deadline.
func WithClock(c clockwork.Clock) Option {
	return func(e *Extractor) { e.clock = c }
}

// WithTimeout sets the recognition deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPreprocessing toggles image pre-processing.
func WithPreprocessing(enabled bool) Option {
	return func(e *Extractor) { e.preprocess = enabled }
}

// WithPDFBackend sets the function used to read PDF text layers.
func WithPDFBackend(name string, fn PDFTextFunc) Option {
	return func(e *Extractor) {
		e.pdfName = name
		e.pdf = fn
	}
}

// WithMaxBytes rejects inputs larger than n bytes. Zero disables the check.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) { e.maxBytes = n }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor creates an extractor over the given OCR engine. The engine may be nil
// when only PDFs are processed.
func NewExtractor(engine Engine, opts ...Option) *Extractor {
	e := &Extractor{
		engine:     engine,
		pdf:        LedongthucText(PDFOptions{}),
		pdfName:    DefaultPDFBackend,
		clock:      clockwork.NewRealClock(),
		timeout:    DefaultTimeout,
		preprocess: true,
		log:        logger.WithComponent("ocr"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on the detected format of data; name is only consulted when the
// content itself is not recognised.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (*Result, error) {
	switch DetectKind(name, data) {
	case KindPDF:
		return e.ExtractPDF(ctx, data)
	case KindImage:
		return e.ExtractImage(ctx, data)
	default:
		return nil, NewExtractionError("Extract", ErrUnsupportedFormat, fmt.Sprintf("file: %s", name))
	}
}

// ExtractImage recognises the text in an image.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte) (*Result, error) {
	const op = "ExtractImage"
	start := e.clock.Now()

	if err := e.checkSize(op, data); err != nil {
		return nil, err
	}
	if e.engine == nil {
		return nil, NewExtractionError(op, ErrExtractionFailed, "no OCR engine configured")
	}

	input, preprocessed := data, false
	if e.preprocess {
		processed, err := Preprocess(data, MaxPreprocessDimension)
		if err != nil {
			e.log.Warn().Err(err).Msg("Image pre-processing failed, using original image")
		} else {
			input, preprocessed = processed, true
		}
	}

	text, err := e.recognize(ctx, input)
	if err != nil {
		e.log.Error().Err(err).Str("engine", e.engine.Name()).Msg("Image extraction failed")
		return nil, err
	}

	end := e.clock.Now()
	e.log.Debug().
		Str("engine", e.engine.Name()).
		Int("chars", len(text)).
		Bool("preprocessed", preprocessed).
		Dur("duration", end.Sub(start)).
		Msg("Image extracted")

	return &Result{
		Text:         text,
		Source:       SourceImage,
		Method:       e.engine.Name(),
		Preprocessed: preprocessed,
		ProcessedAt:  end,
		Duration:     end.Sub(start),
	}, nil
}

// recognize runs one worker against the deadline. The worker is closed exactly once
// whichever side of the race finishes first.
func (e *Extractor) recognize(ctx context.Context, image []byte) (string, error) {
	const op = "Recognize"

	worker, err := e.engine.NewWorker(ctx)
	if err != nil {
		return "", engineFailure(op, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if cerr := worker.Close(); cerr != nil {
				e.log.Warn().Err(cerr).Str("engine", e.engine.Name()).Msg("Failed to release OCR worker")
			}
		})
	}
	defer release()

	recCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := e.clock.NewTimer(e.timeout)
	defer timer.Stop()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := worker.Recognize(recCtx, image)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", engineFailure(op, out.err)
		}
		return out.text, nil
	case <-timer.Chan():
		cancel()
		return "", NewExtractionError(op, ErrExtractionTimeout, fmt.Sprintf("no result after %s", e.timeout))
	case <-ctx.Done():
		return "", NewExtractionError(op, ctx.Err(), "extraction canceled")
	}
}

// ExtractPDF reads the embedded text layer of a PDF.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (*Result, error) {
	const op = "ExtractPDF"
	start := e.clock.Now()

	if err := e.checkSize(op, data); err != nil {
		return nil, err
	}
	if e.pdf == nil {
		return nil, NewExtractionError(op, &IntegrationError{Backend: e.pdfName}, "")
	}

	out, err := e.pdf(ctx, data)
	if err != nil {
		e.log.Error().Err(err).Str("backend", e.pdfName).Msg("PDF extraction failed")
		return nil, engineFailure(op, err)
	}

	end := e.clock.Now()
	e.log.Debug().
		Str("backend", e.pdfName).
		Int("pages", out.Pages).
		Int("chars", len(out.Text)).
		Msg("PDF extracted")

	return &Result{
		Text:        out.Text,
		Source:      SourcePDF,
		Method:      e.pdfName,
		Pages:       out.Pages,
		ProcessedAt: end,
		Duration:    end.Sub(start),
	}, nil
}

func (e *Extractor) checkSize(op string, data []byte) error {
	if e.maxBytes > 0 && int64(len(data)) > e.maxBytes {
		return NewExtractionError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes, limit: %d bytes", len(data), e.maxBytes))
	}
	return nil
}
