package views

import (
	"math"

	"pdfseek/internal/document"
	"pdfseek/internal/domain"
)

// RowKind tells what a rendered row shows
type RowKind int

const (
	RowBlank RowKind = iota
	RowHeader
	RowText
)

// Row is one terminal row of the continuous document view
type Row struct {
	Kind   RowKind
	Page   domain.PageRef
	Line   int // line index on the page, -1 for non-text rows
	Indent int // leading cells derived from the line's x position
}

const (
	pointsPerCell = 7.2 // 10 cells per inch
	maxIndent     = 40
)

type lineKey struct {
	page domain.PageRef
	line int
}

// Layout maps page lines to rows. Pages are stacked top to bottom, each
// introduced by a header row and separated by a blank row.
type Layout struct {
	Rows  []Row
	lines map[lineKey]int
	start map[domain.PageRef]int
}

// NewLayout lays out pages in order. Nil pages are skipped.
func NewLayout(pages []*document.Page) *Layout {
	l := &Layout{
		lines: make(map[lineKey]int),
		start: make(map[domain.PageRef]int),
	}
	for _, p := range pages {
		if p == nil {
			continue
		}
		if len(l.Rows) > 0 {
			l.Rows = append(l.Rows, Row{Kind: RowBlank, Page: p.Number, Line: -1})
		}
		l.start[p.Number] = len(l.Rows)
		l.Rows = append(l.Rows, Row{Kind: RowHeader, Page: p.Number, Line: -1})

		left := leftEdge(p)
		for i := range p.Lines {
			l.lines[lineKey{p.Number, i}] = len(l.Rows)
			l.Rows = append(l.Rows, Row{
				Kind:   RowText,
				Page:   p.Number,
				Line:   i,
				Indent: indent(&p.Lines[i], left),
			})
		}
	}
	return l
}

// Len returns the number of rows
func (l *Layout) Len() int {
	return len(l.Rows)
}

// RowOf returns the row showing line of page
func (l *Layout) RowOf(page domain.PageRef, line int) (int, bool) {
	row, ok := l.lines[lineKey{page, line}]
	return row, ok
}

// PageStart returns the header row of page
func (l *Layout) PageStart(page domain.PageRef) (int, bool) {
	row, ok := l.start[page]
	return row, ok
}

// PageAt returns the page shown at row
func (l *Layout) PageAt(row int) domain.PageRef {
	if len(l.Rows) == 0 {
		return domain.NoPage
	}
	if row < 0 {
		row = 0
	}
	if row >= len(l.Rows) {
		row = len(l.Rows) - 1
	}
	return l.Rows[row].Page
}

// leftEdge is the smallest x of any glyph on the page
func leftEdge(p *document.Page) float64 {
	left := math.Inf(1)
	for i := range p.Lines {
		if g := p.Lines[i].Glyphs; len(g) > 0 && g[0].X < left {
			left = g[0].X
		}
	}
	return left
}

func indent(line *document.Line, left float64) int {
	if len(line.Glyphs) == 0 || math.IsInf(left, 0) {
		return 0
	}
	dx := line.Glyphs[0].X - left
	if math.IsNaN(dx) || dx <= 0 {
		return 0
	}
	n := int(dx / pointsPerCell)
	if n > maxIndent {
		n = maxIndent
	}
	return n
}
