package document

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfseek/internal/domain"
)

// letter is used when a page carries no usable MediaBox
var letter = domain.Rect{W: 612, H: 792}

const (
	// glyphs whose baselines differ by less than this fraction of the
	// font size belong to the same line
	baselineTolerance = 0.5
	// horizontal gaps wider than this fraction of the font size become a space
	spaceGap = 0.15
	// advance per rune, as a fraction of the font size, for glyphs the font
	// gives no width (standard fonts without /Widths)
	estimatedAdvance = 0.5
)

func extractPage(r *pdf.Reader, n int) (page *Page, err error) {
	p := r.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: %w", n, ErrPageOutOfRange)
	}

	// the pdf package reports some malformed content streams by panicking
	defer func() {
		if rec := recover(); rec != nil {
			page, err = nil, fmt.Errorf("malformed content: %v", rec)
		}
	}()

	content := p.Content()
	mediaBox := readMediaBox(p.V)
	return &Page{
		Number:   domain.PageRef(n),
		MediaBox: mediaBox,
		Lines:    buildLines(content.Text, mediaBox),
	}, nil
}

func readMediaBox(v pdf.Value) domain.Rect {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
			x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
			r := domain.Rect{
				X: math.Min(x0, x1),
				Y: math.Min(y0, y1),
				W: math.Abs(x1 - x0),
				H: math.Abs(y1 - y0),
			}
			if r.W > 0 && r.H > 0 {
				return r
			}
		}
		v = v.Key("Parent")
	}
	return letter
}

// buildLines groups positioned glyphs into lines, top to bottom and left to right
func buildLines(texts []pdf.Text, mediaBox domain.Rect) []Line {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, t)
	}
	if len(glyphs) == 0 {
		return nil
	}

	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var lines []Line
	start := 0
	for i := 1; i <= len(glyphs); i++ {
		if i < len(glyphs) && sameLine(glyphs[start], glyphs[i]) {
			continue
		}
		run := glyphs[start:i]
		sort.SliceStable(run, func(a, b int) bool { return run[a].X < run[b].X })
		if line, ok := makeLine(run, mediaBox); ok {
			lines = append(lines, line)
		}
		start = i
	}
	return lines
}

func sameLine(a, b pdf.Text) bool {
	size := math.Max(math.Max(a.FontSize, b.FontSize), 1)
	return math.Abs(a.Y-b.Y) <= baselineTolerance*size
}

// makeLine lays out one run of glyphs. Whitespace from the content stream is
// kept as a single space; gaps between visible glyphs become a space too.
// Glyphs reported without a width are placed after their predecessor.
func makeLine(run []pdf.Text, mediaBox domain.Rect) (Line, bool) {
	var text []rune
	var glyphs []Glyph
	size := 0.0
	space := false
	for _, t := range run {
		size = math.Max(size, t.FontSize)
		runes := []rune(t.S)
		x, w := t.X, t.W
		if w <= 0 {
			w = estimatedAdvance * math.Max(t.FontSize, 1) * float64(len(runes))
			if n := len(glyphs); n > 0 {
				x = math.Max(x, glyphs[n-1].X+glyphs[n-1].W)
			}
		}

		if strings.TrimSpace(t.S) == "" {
			if len(glyphs) > 0 && !space {
				text = append(text, ' ')
				glyphs = append(glyphs, Glyph{X: x, W: w})
				space = true
			}
			continue
		}

		if n := len(glyphs); n > 0 && !space {
			end := glyphs[n-1].X + glyphs[n-1].W
			if gap := x - end; gap > spaceGap*math.Max(t.FontSize, 1) {
				text = append(text, ' ')
				glyphs = append(glyphs, Glyph{X: end, W: gap})
			}
		}
		per := w / float64(len(runes))
		for k, r := range runes {
			text = append(text, r)
			glyphs = append(glyphs, Glyph{X: x + float64(k)*per, W: per})
		}
		space = false
	}
	if space {
		text = text[:len(text)-1]
		glyphs = glyphs[:len(glyphs)-1]
	}
	if len(glyphs) == 0 {
		return Line{}, false
	}
	if size <= 0 {
		size = 1
	}

	baseline := run[0].Y
	last := glyphs[len(glyphs)-1]
	bounds := domain.Rect{
		X: glyphs[0].X,
		Y: baseline - 0.2*size,
		W: last.X + last.W - glyphs[0].X,
		H: size,
	}
	if !overlaps(bounds, mediaBox) {
		bounds = domain.InfiniteRect
	}

	return Line{
		Text:     string(text),
		Glyphs:   glyphs,
		Baseline: baseline,
		Size:     size,
		Bounds:   bounds,
	}, true
}

func overlaps(r, box domain.Rect) bool {
	return r.X <= box.X+box.W && r.X+r.W >= box.X &&
		r.Y <= box.Y+box.H && r.Y+r.H >= box.Y
}
