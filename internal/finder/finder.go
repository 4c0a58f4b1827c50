// Package finder searches the text layer of a document and streams matches.
package finder

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"pdfseek/internal/document"
	"pdfseek/internal/domain"
)

// ErrNoDocument is reported when a search starts before a document is loaded
var ErrNoDocument = errors.New("no document loaded")

// Source is the part of a document the finder reads
type Source interface {
	NumPages() int
	Page(ctx context.Context, n int) (*document.Page, error)
}

// Observer receives the events of every search session.
// For each session MatchFound is called zero or more times, in page, line and
// offset order, followed by exactly one SearchEnded.
type Observer interface {
	MatchFound(domain.MatchFoundEvent)
	SearchEnded(domain.SearchEndedEvent)
}

// Finder runs asynchronous find-all searches over a Source
type Finder struct {
	mu       sync.RWMutex
	src      Source
	observer Observer
	workers  int
	wg       sync.WaitGroup
}

// New creates a finder reporting to observer.
// workers bounds the number of pages extracted concurrently.
func New(src Source, observer Observer, workers int) *Finder {
	if workers < 1 {
		workers = 1
	}
	return &Finder{src: src, observer: observer, workers: workers}
}

// SetSource swaps the searched document, e.g. after a reload
func (f *Finder) SetSource(src Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
}

func (f *Finder) source() Source {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.src
}

// BeginFind starts searching for text and returns immediately.
// Cancelling ctx abandons the search; its SearchEnded is still delivered.
func (f *Finder) BeginFind(ctx context.Context, session domain.SessionID, text string, caseInsensitive bool) {
	src := f.source()
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx, src, session, text, caseInsensitive)
	}()
}

// Wait blocks until every started search has delivered its SearchEnded
func (f *Finder) Wait() {
	f.wg.Wait()
}

type pageResult struct {
	page *document.Page
	err  error
}

func (f *Finder) run(ctx context.Context, src Source, session domain.SessionID, text string, caseInsensitive bool) {
	end := domain.SearchEndedEvent{Session: session}
	defer func() {
		if ctx.Err() != nil {
			end.Cancelled = true
		}
		f.observer.SearchEnded(end)
	}()

	if src == nil {
		end.Err = ErrNoDocument
		return
	}
	m := newMatcher(text, caseInsensitive)
	if m.empty() {
		return
	}

	n := src.NumPages()
	slots := make([]chan pageResult, n)
	for i := range slots {
		slots[i] = make(chan pageResult, 1)
	}

	var g errgroup.Group
	g.SetLimit(f.workers)
	extracted := make(chan struct{})
	go func() {
		defer close(extracted)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				p, err := src.Page(ctx, i+1)
				slots[i] <- pageResult{page: p, err: err}
				return nil
			})
		}
		g.Wait()
	}()
	defer func() { <-extracted }()

	count := 0
	for i := 0; i < n; i++ {
		var res pageResult
		select {
		case <-ctx.Done():
			return
		case res = <-slots[i]:
		}
		if res.err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Skipping page %d: %v", i+1, res.err)
			if end.Err == nil {
				end.Err = res.err
			}
			continue
		}

		for _, match := range m.find(res.page) {
			if ctx.Err() != nil {
				return
			}
			match.Session = session
			f.observer.MatchFound(domain.MatchFoundEvent{Session: session, Match: match})
			count++
		}
	}
	log.Printf("Search %s for %q found %d matches", session, text, count)
}

// position maps a byte of the folded page text back to a rune of a line
type position struct {
	line int
	r    int // rune index; equal to the line's rune count for the joining space
}

type matcher struct {
	needle string
	caser  *cases.Caser
}

func newMatcher(text string, caseInsensitive bool) *matcher {
	m := &matcher{}
	if caseInsensitive {
		c := cases.Fold()
		m.caser = &c
		m.needle = c.String(text)
	} else {
		m.needle = text
	}
	return m
}

func (m *matcher) empty() bool {
	return m.needle == ""
}

func (m *matcher) fold(r rune) string {
	if m.caser == nil {
		return string(r)
	}
	return m.caser.String(string(r))
}

// find returns the non-overlapping matches on page, in reading order.
// Lines are joined by a single space, so a match may span lines.
func (m *matcher) find(page *document.Page) []domain.Match {
	var hay strings.Builder
	var pos []position
	for li := range page.Lines {
		if li > 0 {
			hay.WriteByte(' ')
			pos = append(pos, position{line: li - 1, r: page.Lines[li-1].RuneCount()})
		}
		ri := 0
		for _, r := range page.Lines[li].Text {
			s := m.fold(r)
			hay.WriteString(s)
			for k := 0; k < len(s); k++ {
				pos = append(pos, position{line: li, r: ri})
			}
			ri++
		}
	}

	text := hay.String()
	var matches []domain.Match
	for off := 0; off < len(text); {
		idx := strings.Index(text[off:], m.needle)
		if idx < 0 {
			break
		}
		s, e := off+idx, off+idx+len(m.needle)
		if match, ok := m.regions(page, pos[s], pos[e-1]); ok {
			matches = append(matches, match)
		}
		off = e
	}
	return matches
}

// regions splits the match between first and last (inclusive) into line regions
func (m *matcher) regions(page *document.Page, first, last position) (domain.Match, bool) {
	if first.r >= page.Lines[first.line].RuneCount() {
		first = position{line: first.line + 1, r: 0}
	}
	if last.r >= page.Lines[last.line].RuneCount() {
		last.r = page.Lines[last.line].RuneCount() - 1
	}
	if first.line > last.line || (first.line == last.line && first.r > last.r) {
		return domain.Match{}, false
	}

	match := domain.Match{Page: page.Number}
	for li := first.line; li <= last.line; li++ {
		line := &page.Lines[li]
		start, end := 0, line.RuneCount()
		if li == first.line {
			start = first.r
		}
		if li == last.line {
			end = last.r + 1
		}
		match.Lines = append(match.Lines, domain.LineRegion{
			Page:   page.Number,
			Line:   li,
			Start:  start,
			End:    end,
			Bounds: line.RegionBounds(start, end),
		})
	}
	return match, true
}
