// Package report renders search results outside the TUI.
package report

import (
	"fmt"
	"io"

	"pdfseek/internal/domain"
)

// Recorder is a headless view: it remembers what the aggregator asked it to
// show and optionally traces every call.
type Recorder struct {
	trace io.Writer

	page    domain.PageRef
	hasPage bool
	markers map[domain.MarkerHandle]domain.Marker
	next    domain.MarkerHandle

	Jumps     []domain.LineRegion
	Selection *domain.Selection
}

// NewRecorder creates a recorder. trace may be nil.
func NewRecorder(trace io.Writer) *Recorder {
	return &Recorder{trace: trace, markers: make(map[domain.MarkerHandle]domain.Marker)}
}

func (r *Recorder) tracef(format string, args ...interface{}) {
	if r.trace != nil {
		fmt.Fprintf(r.trace, format+"\n", args...)
	}
}

// JumpTo implements aggregator.View
func (r *Recorder) JumpTo(line domain.LineRegion) {
	r.page, r.hasPage = line.Page, true
	r.Jumps = append(r.Jumps, line)
	r.tracef("jump page=%d line=%d [%d,%d)", line.Page, line.Line, line.Start, line.End)
}

// CurrentPage implements aggregator.View
func (r *Recorder) CurrentPage() (domain.PageRef, bool) {
	return r.page, r.hasPage
}

// AttachMarker implements aggregator.View
func (r *Recorder) AttachMarker(m domain.Marker) domain.MarkerHandle {
	r.next++
	m.Handle = r.next
	r.markers[m.Handle] = m
	r.tracef("marker+ #%d page=%d at (%.1f, %.1f)", m.Handle, m.Page, m.Rect.X, m.Rect.Y)
	return m.Handle
}

// DetachMarker implements aggregator.View
func (r *Recorder) DetachMarker(h domain.MarkerHandle) {
	delete(r.markers, h)
	r.tracef("marker- #%d", h)
}

// SetSelection implements aggregator.View
func (r *Recorder) SetSelection(sel *domain.Selection) {
	r.Selection = sel
	r.tracef("selection %d matches", sel.Len())
}

// Markers returns the number of markers currently attached
func (r *Recorder) Markers() int {
	return len(r.markers)
}
