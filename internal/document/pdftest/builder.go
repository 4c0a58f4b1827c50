// Package pdftest builds small deterministic PDF files for tests.
package pdftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// GlyphWidth is the advance of every character, in thousandths of the font size
const GlyphWidth = 500

// Text is one string drawn at a baseline position
type Text struct {
	X, Y float64
	Size float64
	S    string
}

// Page describes one page of the generated document
type Page struct {
	Width, Height float64 // defaults to US Letter
	Texts         []Text
}

// Line returns a Text with the default size of 12pt
func Line(x, y float64, s string) Text {
	return Text{X: x, Y: y, Size: 12, S: s}
}

// Build returns the bytes of a PDF containing pages.
// All text uses Helvetica with WinAnsiEncoding and uniform glyph widths.
func Build(pages ...Page) []byte {
	return build(true, pages)
}

// BuildWithoutWidths is Build with a bare standard-14 font dictionary, so
// readers get no glyph advances.
func BuildWithoutWidths(pages ...Page) []byte {
	return build(false, pages)
}

func build(withWidths bool, pages []Page) []byte {
	var b strings.Builder
	offsets := map[int]int{}

	obj := func(n int, body string) {
		offsets[n] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	b.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	if withWidths {
		widths := make([]string, 126-32+1)
		for i := range widths {
			widths[i] = fmt.Sprint(GlyphWidth)
		}
		obj(3, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
			strings.Join(widths, " ")))
	} else {
		obj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	}

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 || h == 0 {
			w, h = 612, 792
		}
		stream := contentStream(p.Texts)
		obj(pageObj(i), fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>",
			w, h, pageObj(i)+1))
		obj(pageObj(i)+1, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	maxObj := pageObj(len(pages)-1) + 1
	if len(pages) == 0 {
		maxObj = 3
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", maxObj+1)
	b.WriteString("0000000000 65535 f \n")
	for n := 1; n <= maxObj; n++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&b, "trailer\n<< /Root 1 0 R /Size %d >>\nstartxref\n%d\n%%%%EOF\n", maxObj+1, xref)
	return []byte(b.String())
}

// Write builds the document into a file under t.TempDir and returns its path
func Write(t testing.TB, name string, pages ...Page) string {
	t.Helper()
	return writeFile(t, name, Build(pages...))
}

// WriteWithoutWidths is Write for BuildWithoutWidths
func WriteWithoutWidths(t testing.TB, name string, pages ...Page) string {
	t.Helper()
	return writeFile(t, name, BuildWithoutWidths(pages...))
}

func writeFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func pageObj(i int) int {
	return 4 + 2*i
}

func contentStream(texts []Text) string {
	var b strings.Builder
	for _, t := range texts {
		size := t.Size
		if size == 0 {
			size = 12
		}
		fmt.Fprintf(&b, "BT /F1 %g Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", size, t.X, t.Y, escape(t.S))
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
