package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultPDFBackend is the name of the built-in text layer reader.
const DefaultPDFBackend = "ledongthuc"

// PDFText is the text layer of a PDF.
type PDFText struct {
	Text  string
	Pages int
}

// PDFTextFunc reads the text layer of a PDF held in memory.
type PDFTextFunc func(ctx context.Context, data []byte) (PDFText, error)

// PDFOptions are the compatibility settings handed to a PDF backend when it is built.
type PDFOptions struct {
	// Password is tried once when the document is encrypted.
	Password string

	// PageSeparator is written between pages. Defaults to a newline.
	PageSeparator string
}

// PDFBackends maps backend names to text functions.
type PDFBackends map[string]PDFTextFunc

// DefaultPDFBackends returns the built-in backends configured with opts.
func DefaultPDFBackends(opts PDFOptions) PDFBackends {
	return PDFBackends{
		DefaultPDFBackend: LedongthucText(opts),
	}
}

// Resolve returns the backend registered under name. Unknown names and nil entries
// fail with an *IntegrationError listing what is registered.
func (b PDFBackends) Resolve(name string) (PDFTextFunc, error) {
	if fn, ok := b[name]; ok && fn != nil {
		return fn, nil
	}

	available := make([]string, 0, len(b))
	for key, fn := range b {
		if fn != nil {
			available = append(available, key)
		}
	}
	return nil, &IntegrationError{Backend: name, Available: available}
}

// LedongthucText reads PDF text with github.com/ledongthuc/pdf. The library panics
// on some malformed documents; those panics are returned as errors.
func LedongthucText(opts PDFOptions) PDFTextFunc {
	sep := opts.PageSeparator
	if sep == "" {
		sep = "\n"
	}

	return func(ctx context.Context, data []byte) (result PDFText, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = PDFText{}
				err = fmt.Errorf("malformed PDF: %v", r)
			}
		}()

		reader, err := openPDF(data, opts.Password)
		if err != nil {
			return PDFText{}, fmt.Errorf("open PDF: %w", err)
		}

		pages := reader.NumPage()
		fonts := make(map[string]*pdf.Font)
		var text strings.Builder
		for i := 1; i <= pages; i++ {
			if err := ctx.Err(); err != nil {
				return PDFText{}, err
			}

			page := reader.Page(i)
			if page.V.IsNull() {
				continue
			}
			for _, name := range page.Fonts() {
				if _, ok := fonts[name]; !ok {
					f := page.Font(name)
					fonts[name] = &f
				}
			}

			pageText, err := page.GetPlainText(fonts)
			if err != nil {
				return PDFText{}, fmt.Errorf("page %d: %w", i, err)
			}
			if i > 1 {
				text.WriteString(sep)
			}
			text.WriteString(pageText)
		}

		return PDFText{Text: text.String(), Pages: pages}, nil
	}
}

func openPDF(data []byte, password string) (*pdf.Reader, error) {
	r := bytes.NewReader(data)
	if password == "" {
		return pdf.NewReader(r, int64(len(data)))
	}

	// The reader keeps asking until it gets an empty string.
	tried := false
	return pdf.NewReaderEncrypted(r, int64(len(data)), func() string {
		if tried {
			return ""
		}
		tried = true
		return password
	})
}
