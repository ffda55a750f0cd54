// Package ocr turns uploaded certificates into plain text.
//
// Images are recognised by an OCR engine. PDFs are read from their embedded text
// layer only; no page is rendered or recognised.
//
// Engines:
//   - vision: Google Cloud Vision DOCUMENT_TEXT_DETECTION
//   - documentai: Google Document AI OCR processor (needs GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID)
//   - tesseract: local tesseract binary
//
// Google engines read credentials from the environment:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Every image extraction acquires its own Worker from the Engine and releases it
// exactly once, including when recognition times out. Workers are never shared
// between calls. Nothing is retried; an empty text result is not an error.
package ocr

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds a single image recognition.
	DefaultTimeout = 30 * time.Second

	// MaxPreprocessDimension is the bounding box images are fitted into before recognition.
	MaxPreprocessDimension = 1800
)

// Source values reported in Result.
const (
	SourceImage = "image"
	SourcePDF   = "pdf"
)

// Engine hands out OCR workers. Implementations must be safe for concurrent use;
// the workers they return need not be.
type Engine interface {
	// Name identifies the engine in results and logs.
	Name() string

	// NewWorker acquires a worker for a single recognition.
	NewWorker(ctx context.Context) (Worker, error)
}

// Worker recognises a single image. It is used by one call and then closed.
type Worker interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Result is the outcome of one extraction.
type Result struct {
	// Text is the extracted text. It may be empty.
	Text string `json:"text"`

	// Source is "image" or "pdf".
	Source string `json:"source"`

	// Method names the engine or PDF backend that produced the text.
	Method string `json:"method"`

	// Pages is the number of PDF pages read. Zero for images.
	Pages int `json:"pages,omitempty"`

	// Preprocessed reports whether the image sent to the engine was the pre-processed one.
	Preprocessed bool `json:"preprocessed,omitempty"`

	// ProcessedAt is when extraction finished.
	ProcessedAt time.Time `json:"processed_at"`

	// Duration is how long extraction took.
	Duration time.Duration `json:"duration"`
}
