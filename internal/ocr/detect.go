package ocr

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

// Kind is the broad format of an uploaded certificate.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return SourceImage
	case KindPDF:
		return SourcePDF
	default:
		return "unknown"
	}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// DetectKind sniffs data first and falls back to the file extension of name.
func DetectKind(name string, data []byte) Kind {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return KindPDF
	}
	if len(data) > 0 {
		mime := http.DetectContentType(data)
		if strings.HasPrefix(mime, "image/") {
			return KindImage
		}
		if mime == "application/pdf" {
			return KindPDF
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		return KindPDF
	case imageExtensions[ext]:
		return KindImage
	default:
		return KindUnknown
	}
}

// IsSupportedFile reports whether name has an extension the extractor accepts.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pdf" || imageExtensions[ext]
}

// imageMimeType returns the MIME type sent to cloud engines.
func imageMimeType(data []byte) string {
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "image/tiff"
	}
	return "image/png"
}
