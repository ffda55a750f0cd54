package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TesseractConfig configures the local tesseract engine.
type TesseractConfig struct {
	// Binary is the tesseract executable. Defaults to "tesseract".
	Binary string

	// Lang is passed as -l. Defaults to "eng".
	Lang string

	// TessdataDir is passed as --tessdata-dir when set.
	TessdataDir string

	// Runner executes the binary. Defaults to ExecRunner.
	Runner Runner
}

// TesseractEngine recognises images with a local tesseract binary. Each worker owns a
// temporary directory that is removed when the worker is closed.
type TesseractEngine struct {
	config TesseractConfig
}

// NewTesseractEngine creates a tesseract engine.
func NewTesseractEngine(config TesseractConfig) *TesseractEngine {
	if config.Binary == "" {
		config.Binary = "tesseract"
	}
	if config.Lang == "" {
		config.Lang = "eng"
	}
	if config.Runner == nil {
		config.Runner = ExecRunner{}
	}
	return &TesseractEngine{config: config}
}

// Name implements Engine.
func (t *TesseractEngine) Name() string { return "tesseract" }

// NewWorker implements Engine.
func (t *TesseractEngine) NewWorker(ctx context.Context) (Worker, error) {
	dir, err := os.MkdirTemp("", "certverify-ocr-*")
	if err != nil {
		return nil, WrapExtractionError("NewTesseractWorker", err, "failed to create work directory")
	}
	return &tesseractWorker{config: t.config, dir: dir}, nil
}

type tesseractWorker struct {
	config TesseractConfig
	dir    string
}

func (w *tesseractWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	in := filepath.Join(w.dir, "certificate.img")
	if err := os.WriteFile(in, image, 0o600); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	args := []string{in, "stdout", "-l", w.config.Lang}
	if w.config.TessdataDir != "" {
		args = append(args, "--tessdata-dir", w.config.TessdataDir)
	}

	stdout, stderr, err := w.config.Runner.Run(ctx, w.config.Binary, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(stdout), nil
}

func (w *tesseractWorker) Close() error {
	return os.RemoveAll(w.dir)
}
