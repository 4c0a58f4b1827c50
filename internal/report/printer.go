package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"pdfseek/internal/domain"
)

// ColorMode selects when output is colored
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses auto, always or never
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto", "":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// LineSource returns the text of a line of the document
type LineSource func(page domain.PageRef, line int) (string, bool)

// Printer writes matches and diagnostics for the command line
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool

	match *color.Color
	where *color.Color
}

// NewPrinter creates a printer writing to out and err
func NewPrinter(out, errOut io.Writer, mode ColorMode) *Printer {
	use := false
	switch mode {
	case ColorAlways:
		use = true
	case ColorAuto:
		use = !color.NoColor
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			use = false
		}
	}

	p := &Printer{
		out:       out,
		err:       errOut,
		useColors: use,
		match:     color.New(color.FgYellow, color.Bold),
		where:     color.New(color.FgCyan),
	}
	if use {
		p.match.EnableColor()
		p.where.EnableColor()
	} else {
		p.match.DisableColor()
		p.where.DisableColor()
	}
	return p
}

// Match prints one match, one output line per line region
func (p *Printer) Match(m domain.Match, lines LineSource) {
	for _, region := range m.Lines {
		text, ok := lines(region.Page, region.Line)
		if !ok {
			continue
		}
		loc := p.where.Sprintf("%d:%d:", region.Page, region.Line+1)
		fmt.Fprintf(p.out, "%s %s\n", loc, p.highlight(text, region.Start, region.End))
	}
}

// Summary prints the match count
func (p *Printer) Summary(query string, sel *domain.Selection) {
	n := sel.Len()
	noun := "matches"
	if n == 1 {
		noun = "match"
	}
	fmt.Fprintf(p.err, "%d %s for %q\n", n, noun, query)
}

// Warning prints a non-fatal problem
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error prints a fatal problem
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

func (p *Printer) highlight(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return text
	}
	var b strings.Builder
	b.WriteString(string(runes[:start]))
	b.WriteString(p.match.Sprint(string(runes[start:end])))
	b.WriteString(string(runes[end:]))
	return b.String()
}

// JSONRegion is one line region in JSON output
type JSONRegion struct {
	Line   int       `json:"line"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
	Text   string    `json:"text"`
	Bounds *JSONRect `json:"bounds,omitempty"`
}

// JSONRect is a finite rectangle in page space
type JSONRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// JSONMatch is one match in JSON output
type JSONMatch struct {
	Page    int          `json:"page"`
	Bounds  *JSONRect    `json:"bounds,omitempty"`
	Regions []JSONRegion `json:"regions"`
}

// JSONResult is the whole JSON document
type JSONResult struct {
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Matches []JSONMatch `json:"matches"`
}

// BuildJSON converts a selection to its JSON form.
// Regions without a finite position have no bounds.
func BuildJSON(query string, sel *domain.Selection, lines LineSource) JSONResult {
	res := JSONResult{Query: query, Count: sel.Len(), Matches: []JSONMatch{}}
	if sel == nil {
		return res
	}
	for _, m := range sel.Matches {
		jm := JSONMatch{Page: int(m.Page), Bounds: jsonRect(m.Bounds())}
		for _, r := range m.Lines {
			jr := JSONRegion{Line: r.Line + 1, Start: r.Start, End: r.End}
			if text, ok := lines(r.Page, r.Line); ok {
				runes := []rune(text)
				if r.Start >= 0 && r.End <= len(runes) && r.Start < r.End {
					jr.Text = string(runes[r.Start:r.End])
				}
			}
			jr.Bounds = jsonRect(r.Bounds)
			jm.Regions = append(jm.Regions, jr)
		}
		res.Matches = append(res.Matches, jm)
	}
	return res
}

func jsonRect(r domain.Rect) *JSONRect {
	if !r.IsFinite() {
		return nil
	}
	return &JSONRect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// JSON writes the selection as an indented JSON document
func (p *Printer) JSON(query string, sel *domain.Selection, lines LineSource) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildJSON(query, sel, lines)); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
