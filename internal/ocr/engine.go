package ocr

import (
	"fmt"
	"strings"
)

// EngineConfig selects and configures an engine for NewEngine.
type EngineConfig struct {
	// Name is one of "vision", "documentai", "tesseract".
	Name string

	DocumentAI DocumentAIConfig
	Tesseract  TesseractConfig

	// LanguageHints are passed to Vision.
	LanguageHints []string
}

// NewEngine builds the engine named in config. Google engines take their
// credentials from the environment.
func NewEngine(config EngineConfig) (Engine, error) {
	const op = "NewEngine"

	switch strings.ToLower(config.Name) {
	case "vision":
		opts, _ := GoogleClientOptions()
		return NewVisionEngine(config.LanguageHints, opts...), nil
	case "documentai":
		opts, ok := GoogleClientOptions()
		if !ok {
			return nil, NewExtractionError(op, ErrMissingCredentials, "documentai engine")
		}
		return NewDocumentAIEngine(config.DocumentAI, opts...)
	case "tesseract", "":
		return NewTesseractEngine(config.Tesseract), nil
	default:
		return nil, NewExtractionError(op, ErrUnknownEngine, fmt.Sprintf("engine: %s", config.Name))
	}
}
