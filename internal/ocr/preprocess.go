package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocess prepares an image for recognition: it is fitted within maxDim x maxDim
// keeping its aspect ratio, converted to grayscale and contrast stretched. The result
// is PNG encoded.
func Preprocess(data []byte, maxDim int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Fit never upscales.
	fitted := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	gray := imaging.Grayscale(fitted)
	out := stretchContrast(gray)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// stretchContrast maps the darkest luminance present to black and the brightest to white.
func stretchContrast(img image.Image) *image.NRGBA {
	hist := imaging.Histogram(img)

	lo, hi := -1, -1
	for i, v := range hist {
		if v > 0 {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 || hi <= lo || (lo == 0 && hi == 255) {
		return imaging.Clone(img)
	}

	span := hi - lo
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := (int(c.R) - lo) * 255 / span
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		return color.NRGBA{R: uint8(v), G: uint8(v), B: uint8(v), A: c.A}
	})
}
