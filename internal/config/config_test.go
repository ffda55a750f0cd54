package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OCR_ENGINE", "")
	t.Setenv("OCR_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tesseract", cfg.OCREngine)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.True(t, cfg.PreprocessImages)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "ledongthuc", cfg.PDFBackend)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("OCR_ENGINE", "abbyy")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_ENGINE")
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "45s", want: 45 * time.Second},
		{name: "plain seconds", value: "12", want: 12 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "unset falls back", value: "", want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestRequireOCR(t *testing.T) {
	cfg := &Config{OCREngine: "documentai"}
	assert.Error(t, cfg.RequireOCR())

	cfg.GoogleCloudProject = "proj"
	cfg.DocumentAIProcessorID = "abc123"
	assert.NoError(t, cfg.RequireOCR())

	assert.NoError(t, (&Config{OCREngine: "tesseract"}).RequireOCR())
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("OCR_LANGUAGE_HINTS", " en, ,hi ,")
	assert.Equal(t, []string{"en", "hi"}, getEnvList("OCR_LANGUAGE_HINTS"))

	t.Setenv("OCR_LANGUAGE_HINTS", "")
	assert.Empty(t, getEnvList("OCR_LANGUAGE_HINTS"))
}
