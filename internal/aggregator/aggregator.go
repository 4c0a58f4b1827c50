// Package aggregator merges the streamed matches of one search into a
// cumulative selection and drives the view while they arrive.
//
// An Aggregator is not safe for concurrent use. The host must call every
// method from the goroutine that owns the view; in the TUI that is the
// bubbletea update loop, which the finder feeds through program messages.
package aggregator

import (
	"context"
	"log"

	"github.com/google/uuid"

	"pdfseek/internal/domain"
	"pdfseek/internal/eventbus"
)

// Finder starts asynchronous searches.
// Events for session must eventually reach OnMatchFound and OnSearchEnded.
type Finder interface {
	BeginFind(ctx context.Context, session domain.SessionID, text string, caseInsensitive bool)
}

// View is the document display the aggregator drives
type View interface {
	// JumpTo scrolls the view so that line is visible
	JumpTo(line domain.LineRegion)
	// CurrentPage returns the page currently shown, if any
	CurrentPage() (domain.PageRef, bool)
	// AttachMarker draws m and returns a handle for detaching it
	AttachMarker(m domain.Marker) domain.MarkerHandle
	// DetachMarker removes a marker previously attached
	DetachMarker(h domain.MarkerHandle)
	// SetSelection replaces the highlighted selection
	SetSelection(sel *domain.Selection)
}

// Options configures an Aggregator
type Options struct {
	CaseInsensitive bool
	Placement       Placement
	Bus             eventbus.EventBus // optional
	NewSession      func() domain.SessionID
}

// Stats counts the side effects performed on the view
type Stats struct {
	Jumps    int
	Attached int
	Detached int
	Skipped  int // line regions ignored because they had no finite origin
	Stale    int // events dropped because their session was superseded
}

// Aggregator owns the state of the current search session
type Aggregator struct {
	finder Finder
	view   View
	opts   Options

	parent context.Context
	cancel context.CancelFunc

	query     string
	session   domain.SessionID
	selection *domain.Selection
	active    *domain.Marker
	searching bool
	stats     Stats
}

// New creates an aggregator. ctx bounds the lifetime of every search it starts.
func New(ctx context.Context, finder Finder, view View, opts Options) *Aggregator {
	if opts.Placement == nil {
		opts.Placement = DefaultFixedOffset
	}
	if opts.NewSession == nil {
		opts.NewSession = func() domain.SessionID { return domain.SessionID(uuid.NewString()) }
	}
	return &Aggregator{
		finder: finder,
		view:   view,
		opts:   opts,
		parent: ctx,
	}
}

// OnQueryChanged supersedes the running search with a new one for query.
// The query is expected to be trimmed already. An empty query is searched too.
func (a *Aggregator) OnQueryChanged(query string) {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}

	a.selection = nil
	a.detachMarker()

	a.query = query
	a.session = a.opts.NewSession()
	a.searching = true

	if a.opts.Bus != nil {
		a.opts.Bus.Publish(eventbus.SearchStartedEvent{Session: a.session, Query: query})
	}

	ctx, cancel := context.WithCancel(a.parent)
	a.cancel = cancel
	a.finder.BeginFind(ctx, a.session, query, a.opts.CaseInsensitive)
}

// OnMatchFound adds one match to the cumulative selection and revisits every
// line of the selection that can be laid out on the match's page.
func (a *Aggregator) OnMatchFound(ev domain.MatchFoundEvent) {
	if ev.Session != a.session {
		a.stats.Stale++
		return
	}

	match := ev.Match
	match.Color = domain.HighlightFound
	if a.selection == nil {
		a.selection = &domain.Selection{}
	}
	a.selection.Add(match)

	for _, line := range a.selection.Lines() {
		bounds := line.BoundsOn(match.Page)
		if !bounds.IsFinite() {
			log.Printf("Skipping line %d of page %d: no finite origin on page %d", line.Line, line.Page, match.Page)
			a.stats.Skipped++
			continue
		}
		a.view.JumpTo(line)
		a.stats.Jumps++
		a.placeMarker(line, bounds)
	}
}

// OnSearchEnded shows the whole cumulative selection, if there is one
func (a *Aggregator) OnSearchEnded(ev domain.SearchEndedEvent) {
	if ev.Session != a.session {
		a.stats.Stale++
		return
	}
	a.searching = false

	if a.opts.Bus != nil {
		a.opts.Bus.Publish(eventbus.SearchCompletedEvent{
			Session:    a.session,
			Query:      a.query,
			MatchCount: a.selection.Len(),
			Cancelled:  ev.Cancelled,
		})
	}

	if a.selection.Len() == 0 {
		return
	}
	sel := a.selection.Clone()
	sel.Recolor(domain.HighlightSelected)
	a.view.SetSelection(sel)
}

// Reset runs the current query again, e.g. after the document was reloaded
func (a *Aggregator) Reset() {
	a.OnQueryChanged(a.query)
}

// Close cancels the running search
func (a *Aggregator) Close() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// placeMarker moves the single marker next to line
func (a *Aggregator) placeMarker(line domain.LineRegion, bounds domain.Rect) {
	a.detachMarker()

	page, ok := a.view.CurrentPage()
	if !ok {
		return
	}

	rect, anchor := a.opts.Placement.Place(bounds)
	m := domain.Marker{Page: page, Rect: rect, Anchor: anchor, Line: line}
	m.Handle = a.view.AttachMarker(m)
	a.active = &m
	a.stats.Attached++
}

func (a *Aggregator) detachMarker() {
	if a.active == nil {
		return
	}
	a.view.DetachMarker(a.active.Handle)
	a.active = nil
	a.stats.Detached++
}

// Query returns the current query
func (a *Aggregator) Query() string {
	return a.query
}

// Session returns the id of the current search session
func (a *Aggregator) Session() domain.SessionID {
	return a.session
}

// Searching reports whether the current session has not ended yet
func (a *Aggregator) Searching() bool {
	return a.searching
}

// Matches returns the matches found so far in discovery order.
// The slice is shared with the aggregator and must not be modified.
func (a *Aggregator) Matches() []domain.Match {
	if a.selection == nil {
		return nil
	}
	return a.selection.Matches
}

// Selection returns a copy of the cumulative selection, nil when empty
func (a *Aggregator) Selection() *domain.Selection {
	return a.selection.Clone()
}

// ActiveMarker returns the attached marker, if any
func (a *Aggregator) ActiveMarker() (domain.Marker, bool) {
	if a.active == nil {
		return domain.Marker{}, false
	}
	return *a.active, true
}

// Stats returns the side effect counters
func (a *Aggregator) Stats() Stats {
	return a.stats
}
