package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pdfseek/internal/document"
	"pdfseek/internal/domain"
)

// mark is the paint of one cell; higher marks win
type mark int

const (
	markText mark = iota
	markGutter
	markHeader
	markFound
	markSelected
	markCurrent
	markMarker
)

// markOf maps the highlight a match carries to its paint
func markOf(c domain.HighlightColor) mark {
	switch c {
	case domain.HighlightFound:
		return markFound
	case domain.HighlightSelected:
		return markSelected
	}
	return markText
}

type cell struct {
	r rune
	m mark
}

// gutterWidth is the marker column plus its separator
const gutterWidth = 2

// DocumentState contains everything needed to paint the document
type DocumentState struct {
	Pages        []*document.Page
	Layout       *Layout
	Found        []domain.Match
	Selection    *domain.Selection
	Current      int // index into Selection.Matches, -1 for none
	Markers      []domain.Marker
	MarkerSymbol string
	Offset       int // first visible row, for view-anchored markers
	LineNumbers  bool
}

// RenderDocument paints all rows of the layout
func (r *Renderer) RenderDocument(s DocumentState) string {
	if s.Layout == nil || s.Layout.Len() == 0 {
		return r.styles.Dim.Render("(no text)")
	}

	pages := make(map[domain.PageRef]*document.Page, len(s.Pages))
	for _, p := range s.Pages {
		if p != nil {
			pages[p.Number] = p
		}
	}

	rows := make([][]cell, s.Layout.Len())
	for i, row := range s.Layout.Rows {
		rows[i] = r.rowCells(row, pages[row.Page], s.LineNumbers)
	}

	for _, m := range s.Found {
		paint(rows, s.Layout, m, markOf(m.Color), s.LineNumbers)
	}
	if s.Selection != nil {
		for i, m := range s.Selection.Matches {
			k := markOf(m.Color)
			if i == s.Current {
				k = markCurrent
			}
			paint(rows, s.Layout, m, k, s.LineNumbers)
		}
	}

	symbol := '■'
	if rs := []rune(s.MarkerSymbol); len(rs) > 0 {
		symbol = rs[0]
	}
	for _, m := range s.Markers {
		placeMarker(rows, s.Layout, m, symbol, s.Offset)
	}

	out := make([]string, len(rows))
	for i, cells := range rows {
		out[i] = r.paintCells(cells)
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) rowCells(row Row, page *document.Page, lineNumbers bool) []cell {
	switch row.Kind {
	case RowHeader:
		return textCells(fmt.Sprintf("── Page %d ──", row.Page), markHeader)
	case RowBlank:
		return nil
	}

	var cells []cell
	cells = append(cells, textCells(strings.Repeat(" ", gutterWidth), markGutter)...)
	if lineNumbers {
		cells = append(cells, textCells(fmt.Sprintf("%4d ", row.Line+1), markGutter)...)
	}
	cells = append(cells, textCells(strings.Repeat(" ", row.Indent), markText)...)
	if page != nil && row.Line < len(page.Lines) {
		cells = append(cells, textCells(page.Lines[row.Line].Text, markText)...)
	}
	return cells
}

// textOffset is the cell where the text of a row starts
func textOffset(row Row, lineNumbers bool) int {
	off := gutterWidth + row.Indent
	if lineNumbers {
		off += 5
	}
	return off
}

func paint(rows [][]cell, layout *Layout, m domain.Match, k mark, lineNumbers bool) {
	for _, region := range m.Lines {
		ri, ok := layout.RowOf(region.Page, region.Line)
		if !ok {
			continue
		}
		off := textOffset(layout.Rows[ri], lineNumbers)
		for c := off + region.Start; c < off+region.End && c < len(rows[ri]); c++ {
			if c >= 0 && rows[ri][c].m < k {
				rows[ri][c].m = k
			}
		}
	}
}

// placeMarker draws the marker either at a fixed cell of the visible area or
// in the gutter of the line it belongs to
func placeMarker(rows [][]cell, layout *Layout, m domain.Marker, symbol rune, offset int) {
	var ri, col int
	switch m.Anchor {
	case domain.AnchorView:
		ri, col = offset+int(m.Rect.Y), int(m.Rect.X)
	case domain.AnchorPage:
		row, ok := layout.RowOf(m.Line.Page, m.Line.Line)
		if !ok {
			return
		}
		ri, col = row, 0
	}
	if ri < 0 || ri >= len(rows) || col < 0 {
		return
	}
	for len(rows[ri]) <= col {
		rows[ri] = append(rows[ri], cell{r: ' ', m: markText})
	}
	rows[ri][col] = cell{r: symbol, m: markMarker}
}

func textCells(s string, k mark) []cell {
	cells := make([]cell, 0, len(s))
	for _, r := range s {
		cells = append(cells, cell{r: r, m: k})
	}
	return cells
}

func (r *Renderer) paintCells(cells []cell) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		var run []rune
		for j < len(cells) && cells[j].m == cells[i].m {
			run = append(run, cells[j].r)
			j++
		}
		b.WriteString(r.styleFor(cells[i].m).Render(string(run)))
		i = j
	}
	return b.String()
}

func (r *Renderer) styleFor(k mark) lipgloss.Style {
	switch k {
	case markGutter:
		return r.styles.LineNumber
	case markHeader:
		return r.styles.PageHeader
	case markFound:
		return r.styles.Found
	case markSelected:
		return r.styles.Selected
	case markCurrent:
		return r.styles.Current
	case markMarker:
		return r.styles.Marker
	default:
		return r.styles.Text
	}
}
