package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	worker  *fakeWorker
	newErr  error
	created atomic.Int32
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewWorker(ctx context.Context) (Worker, error) {
	if e.newErr != nil {
		return nil, e.newErr
	}
	e.created.Add(1)
	return e.worker, nil
}

type fakeWorker struct {
	text  string
	err   error
	block bool

	mu       sync.Mutex
	received []byte
	closes   atomic.Int32
	returned chan struct{}
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{returned: make(chan struct{})}
}

func (w *fakeWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	defer close(w.returned)

	w.mu.Lock()
	w.received = append([]byte(nil), image...)
	w.mu.Unlock()

	if w.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return w.text, w.err
}

func (w *fakeWorker) Close() error {
	w.closes.Add(1)
	return nil
}

func (w *fakeWorker) input() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.received
}

// gradientPNG draws a horizontal gradient between lo and hi.
func gradientPNG(t *testing.T, width, height int, lo, hi uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		v := lo
		if width > 1 {
			v = lo + uint8(int(hi-lo)*x/(width-1))
		}
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// buildPDF writes a minimal uncompressed PDF with one page per entry. Lines of a
// page are shown with T* so the text layer keeps them on separate lines.
func buildPDF(pages ...[]string) []byte {
	var buf bytes.Buffer
	var offsets []int

	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, lines := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 18 Tf 20 TL 72 720 Td")
		for j, line := range lines {
			if j > 0 {
				content.WriteString(" T*")
			}
			fmt.Fprintf(&content, " (%s) Tj", line)
		}
		content.WriteString(" ET")

		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
