// Package document opens PDF files and turns their pages into positioned text lines.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ledongthuc/pdf"

	"pdfseek/internal/domain"
)

var (
	// ErrNotPDF is returned when a file does not start with a PDF header
	ErrNotPDF = errors.New("not a PDF file")
	// ErrPageOutOfRange is returned for page numbers outside 1..NumPages
	ErrPageOutOfRange = errors.New("page out of range")
)

// Glyph is one rune of a line with its horizontal extent
type Glyph struct {
	X, W float64
}

// Line is a run of text sharing one baseline
type Line struct {
	Text     string
	Glyphs   []Glyph // one per rune of Text
	Baseline float64
	Size     float64
	Bounds   domain.Rect // infinite when the line lies outside the media box
}

// RuneCount returns the number of runes in the line
func (l *Line) RuneCount() int {
	return len(l.Glyphs)
}

// RegionBounds returns the bounds of runes [start, end) of the line
func (l *Line) RegionBounds(start, end int) domain.Rect {
	if !l.Bounds.IsFinite() || start < 0 || end > len(l.Glyphs) || start >= end {
		return domain.InfiniteRect
	}
	first, last := l.Glyphs[start], l.Glyphs[end-1]
	return domain.Rect{
		X: first.X,
		Y: l.Bounds.Y,
		W: last.X + last.W - first.X,
		H: l.Bounds.H,
	}
}

// Page is the extracted text layer of one page
type Page struct {
	Number   domain.PageRef
	MediaBox domain.Rect
	Lines    []Line
}

// Document is an opened PDF with lazily extracted, cached pages
type Document struct {
	Path     string
	file     *os.File
	pool     *readerPool
	numPages int
	cache    *lru.Cache[int, *Page]
}

// NumPages returns the number of pages in the document
func (d *Document) NumPages() int {
	return d.numPages
}

// Page returns the extracted page n (1-based)
func (d *Document) Page(ctx context.Context, n int) (*Page, error) {
	if n < 1 || n > d.numPages {
		return nil, fmt.Errorf("page %d of %d: %w", n, d.numPages, ErrPageOutOfRange)
	}
	if p, ok := d.cache.Get(n); ok {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := d.pool.get()
	if err != nil {
		return nil, fmt.Errorf("failed to open reader: %w", err)
	}
	defer d.pool.put(r)

	p, err := extractPage(r, n)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page %d: %w", n, err)
	}
	d.cache.Add(n, p)
	return p, nil
}

// Text renders the whole document as plain text, one block per page
func (d *Document) Text(ctx context.Context) (string, error) {
	var b strings.Builder
	for n := 1; n <= d.numPages; n++ {
		p, err := d.Page(ctx, n)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", n)
		for _, l := range p.Lines {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
		if n < d.numPages {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Close releases the underlying file
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// readerPool hands out independent PDF readers over the same file.
// os.File.ReadAt is safe for concurrent use, a single pdf.Reader is not.
type readerPool struct {
	file *os.File
	size int64
	free chan *pdf.Reader
}

func newReaderPool(f *os.File, size int64, capacity int) *readerPool {
	if capacity < 1 {
		capacity = 1
	}
	return &readerPool{file: f, size: size, free: make(chan *pdf.Reader, capacity)}
}

func (p *readerPool) get() (*pdf.Reader, error) {
	select {
	case r := <-p.free:
		return r, nil
	default:
		return pdf.NewReader(p.file, p.size)
	}
}

func (p *readerPool) put(r *pdf.Reader) {
	select {
	case p.free <- r:
	default:
	}
}
