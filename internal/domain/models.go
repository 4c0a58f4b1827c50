package domain

import (
	"math"
)

// PageRef identifies a page of the loaded document (1-based)
type PageRef int

// NoPage is returned when no page is available
const NoPage PageRef = 0

// Rect is a rectangle in page space (PDF points, origin bottom-left)
type Rect struct {
	X, Y float64
	W, H float64
}

// InfiniteRect is reported for regions that cannot be laid out on a page
var InfiniteRect = Rect{X: math.Inf(1), Y: math.Inf(1)}

// IsFinite reports whether the origin of r is a real, renderable point
func (r Rect) IsFinite() bool {
	return !math.IsInf(r.X, 0) && !math.IsNaN(r.X) && !math.IsInf(r.Y, 0) && !math.IsNaN(r.Y)
}

// Union returns the smallest rectangle covering r and o
func (r Rect) Union(o Rect) Rect {
	if !r.IsFinite() {
		return o
	}
	if !o.IsFinite() {
		return r
	}
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.X+r.W, o.X+o.W)
	y1 := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// HighlightColor tells the view how a region should be painted
type HighlightColor int

const (
	HighlightNone HighlightColor = iota
	HighlightFound
	HighlightSelected
)

// SessionID identifies one search run; events from other sessions are stale
type SessionID string

// LineRegion is the part of a match that lies on one text line
type LineRegion struct {
	Page   PageRef
	Line   int  // index into the page's lines
	Start  int  // rune offset within the line
	End    int  // rune offset (exclusive)
	Bounds Rect // page-relative bounds; infinite when off-page
}

// BoundsOn returns the bounds of the line relative to page.
// Lines on any other page have no meaningful position there.
func (l LineRegion) BoundsOn(page PageRef) Rect {
	if l.Page != page {
		return InfiniteRect
	}
	return l.Bounds
}

// Match is one located occurrence of the query
type Match struct {
	Session SessionID
	Page    PageRef
	Lines   []LineRegion
	Color   HighlightColor
}

// Bounds returns the union of all line bounds of the match
func (m Match) Bounds() Rect {
	r := InfiniteRect
	for _, l := range m.Lines {
		r = r.Union(l.Bounds)
	}
	return r
}

// Selection is the ordered, cumulative set of matches of one query
type Selection struct {
	Matches []Match
}

// Len returns the number of matches in the selection
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Matches)
}

// Add appends a match, keeping discovery order
func (s *Selection) Add(m Match) {
	s.Matches = append(s.Matches, m)
}

// Lines flattens the selection into its line regions, in discovery order
func (s *Selection) Lines() []LineRegion {
	if s == nil {
		return nil
	}
	var lines []LineRegion
	for _, m := range s.Matches {
		lines = append(lines, m.Lines...)
	}
	return lines
}

// Recolor sets the highlight of every match
func (s *Selection) Recolor(c HighlightColor) {
	if s == nil {
		return
	}
	for i := range s.Matches {
		s.Matches[i].Color = c
	}
}

// Clone returns a copy that shares no slices with s
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	out := &Selection{Matches: make([]Match, len(s.Matches))}
	for i, m := range s.Matches {
		m.Lines = append([]LineRegion(nil), m.Lines...)
		out.Matches[i] = m
	}
	return out
}

// MarkerAnchor says which coordinate space a marker rectangle is in
type MarkerAnchor int

const (
	// AnchorView places the marker relative to the visible view bounds
	AnchorView MarkerAnchor = iota
	// AnchorPage places the marker relative to the page
	AnchorPage
)

// MarkerHandle identifies an attached marker
type MarkerHandle int

// Marker is the single visual indicator attached next to found text
type Marker struct {
	Handle MarkerHandle
	Page   PageRef
	Rect   Rect
	Anchor MarkerAnchor
	Line   LineRegion // line that triggered the placement
}
