package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfseek/internal/config"
	"pdfseek/internal/document"
	"pdfseek/internal/document/pdftest"
	"pdfseek/internal/domain"
	"pdfseek/internal/eventbus"
	"pdfseek/internal/finder"
)

type findCall struct {
	session domain.SessionID
	text    string
}

type fakeFinder struct {
	calls []findCall
}

func (f *fakeFinder) BeginFind(_ context.Context, session domain.SessionID, text string, _ bool) {
	f.calls = append(f.calls, findCall{session, text})
}

func (f *fakeFinder) queries() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.text)
	}
	return out
}

func (f *fakeFinder) session() domain.SessionID {
	return f.calls[len(f.calls)-1].session
}

type fakeSources struct {
	set []finder.Source
}

func (s *fakeSources) SetSource(src finder.Source) {
	s.set = append(s.set, src)
}

// testPages builds n pages of 30 lines each
func testPages(n int) []*document.Page {
	var pages []*document.Page
	for p := 1; p <= n; p++ {
		page := &document.Page{Number: domain.PageRef(p), MediaBox: domain.Rect{W: 612, H: 792}}
		for i := 0; i < 30; i++ {
			text := fmt.Sprintf("page %d line %d", p, i)
			if i == 10 {
				text = "the cat sat here"
			}
			var glyphs []document.Glyph
			for j := range text {
				glyphs = append(glyphs, document.Glyph{X: 72 + float64(j)*6, W: 6})
			}
			y := 740 - float64(i)*20
			page.Lines = append(page.Lines, document.Line{
				Text:     text,
				Glyphs:   glyphs,
				Baseline: y,
				Size:     12,
				Bounds:   domain.Rect{X: 72, Y: y - 2.4, W: float64(len(text)) * 6, H: 12},
			})
		}
		pages = append(pages, page)
	}
	return pages
}

func region(page domain.PageRef, line int) domain.LineRegion {
	y := 740 - float64(line)*20
	return domain.LineRegion{Page: page, Line: line, Start: 4, End: 7, Bounds: domain.Rect{X: 96, Y: y - 2.4, W: 18, H: 12}}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, opts Options) (*Model, *fakeFinder) {
	t.Helper()
	f := &fakeFinder{}
	opts.Finder = f
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	m := NewModel(context.Background(), opts)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, f
}

func loaded(t *testing.T, opts Options) (*Model, *fakeFinder) {
	t.Helper()
	m, f := newTestModel(t, opts)
	m.Update(documentLoadedMsg{pages: testPages(3)})
	return m, f
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(runes(string(r)))
	}
}

func TestEveryEditSearchesTrimmedQuery(t *testing.T) {
	m, f := loaded(t, Options{})

	typeText(m, " ca")

	assert.Equal(t, []string{"", "c", "ca"}, f.queries())
	assert.Equal(t, " ca", m.input.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "c", f.queries()[len(f.calls)-1])
}

func TestNoSearchBeforeDocumentLoads(t *testing.T) {
	m, f := newTestModel(t, Options{})

	typeText(m, "cat")
	assert.Empty(t, f.calls)

	m.Update(documentLoadedMsg{pages: testPages(1)})
	assert.Equal(t, []string{"cat"}, f.queries())
}

func TestInitialQueryRunsAfterLoad(t *testing.T) {
	_, f := loaded(t, Options{Query: "cat"})

	assert.Equal(t, []string{"cat"}, f.queries())
}

func TestMatchJumpsToPageAndAttachesMarker(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "cat")

	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{
		Session: f.session(),
		Match:   domain.Match{Page: 2, Lines: []domain.LineRegion{region(2, 10)}},
	}})

	page, ok := m.CurrentPage()
	require.True(t, ok)
	assert.Equal(t, domain.PageRef(2), page)

	row, _ := m.layout.RowOf(2, 10)
	assert.GreaterOrEqual(t, row, m.vp.YOffset)
	assert.Less(t, row, m.vp.YOffset+m.vp.Height)

	assert.Len(t, m.markers, 1)
	assert.Len(t, m.found, 1)
	assert.Contains(t, m.View(), "■")
	assert.Contains(t, m.View(), "page 2/3")
	assert.Contains(t, m.status, "1 found")
}

func TestStaleMatchIsIgnored(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "c")
	old := f.session()
	typeText(m, "a")

	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{
		Session: old,
		Match:   domain.Match{Page: 3, Lines: []domain.LineRegion{region(3, 10)}},
	}})

	assert.Empty(t, m.found)
	assert.Empty(t, m.markers)
	assert.Equal(t, 0, m.vp.YOffset)
}

func TestSearchEndShowsSelectionAndSteps(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "cat")
	s := f.session()
	for _, p := range []domain.PageRef{1, 3} {
		m.Update(matchFoundMsg{event: domain.MatchFoundEvent{Session: s, Match: domain.Match{Page: p, Lines: []domain.LineRegion{region(p, 10)}}}})
	}

	m.Update(searchEndedMsg{event: domain.SearchEndedEvent{Session: s}})

	require.Equal(t, 2, m.selection.Len())
	assert.Equal(t, `2 matches for "cat"`, m.status)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.focusInput)

	m.Update(runes("n"))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, "Match 1/2", m.status)
	page, _ := m.CurrentPage()
	assert.Equal(t, domain.PageRef(1), page)

	m.Update(runes("n"))
	m.Update(runes("n"))
	assert.Equal(t, 0, m.cursor, "stepping wraps around")

	m.Update(runes("N"))
	assert.Equal(t, 1, m.cursor)
	page, _ = m.CurrentPage()
	assert.Equal(t, domain.PageRef(3), page)

	assert.Equal(t, "cat", m.input.Value(), "n and N do not edit the query while unfocused")
}

func TestSearchWithoutMatches(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "zebra")

	m.Update(searchEndedMsg{event: domain.SearchEndedEvent{Session: f.session()}})

	assert.Nil(t, m.selection)
	assert.Equal(t, `No matches for "zebra"`, m.status)
}

func TestQueryChangeClearsResults(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "cat")
	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{Session: f.session(), Match: domain.Match{Page: 1, Lines: []domain.LineRegion{region(1, 10)}}}})
	m.Update(searchEndedMsg{event: domain.SearchEndedEvent{Session: f.session()}})
	require.Len(t, m.markers, 1)

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Empty(t, m.markers)
	assert.Empty(t, m.found)
	assert.Nil(t, m.selection)
	assert.Equal(t, -1, m.cursor)
}

func TestMatchPlacementDrawsInGutter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Marker.Placement = config.PlacementMatch
	m, f := loaded(t, Options{Config: cfg})
	typeText(m, "cat")

	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{Session: f.session(), Match: domain.Match{Page: 1, Lines: []domain.LineRegion{region(1, 10)}}}})

	require.Len(t, m.markers, 1)
	for _, mk := range m.markers {
		assert.Equal(t, domain.AnchorPage, mk.Anchor)
	}
	var markerLine string
	for _, l := range strings.Split(m.vp.View(), "\n") {
		if strings.Contains(l, "■") {
			markerLine = l
		}
	}
	assert.True(t, strings.HasPrefix(markerLine, "■ "))
	assert.Contains(t, markerLine, "the cat sat here")
}

func TestScrollKeys(t *testing.T) {
	m, _ := loaded(t, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, m.vp.Height, m.vp.YOffset)

	m.Update(runes("G"))
	assert.Equal(t, m.layout.Len()-m.vp.Height, m.vp.YOffset)
	page, _ := m.CurrentPage()
	assert.Equal(t, domain.PageRef(3), page)

	m.Update(runes("g"))
	assert.Equal(t, 0, m.vp.YOffset)

	m.Update(runes("j"))
	assert.Equal(t, 1, m.vp.YOffset)
}

func TestQuitKeys(t *testing.T) {
	m, _ := loaded(t, Options{})

	m.Update(runes("q"))
	assert.Equal(t, "q", m.input.Value(), "q types into the focused search field")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestErrorEventShowsInStatus(t *testing.T) {
	m, _ := loaded(t, Options{})

	_, cmd := m.Update(EventMsg{Event: eventbus.ErrorEvent{Message: "watch failed"}})

	assert.Equal(t, "watch failed", m.status)
	assert.NotNil(t, cmd)
}

func TestLoadFailureKeepsRunning(t *testing.T) {
	m, f := newTestModel(t, Options{Path: "missing.pdf", Loader: document.NewLoader(document.Options{})})

	m.Update(m.loadDocument(false)())

	assert.False(t, m.loaded)
	assert.Contains(t, m.status, "Failed to load document")
	typeText(m, "cat")
	assert.Empty(t, f.calls)
}

func TestLoadAndReloadRealDocument(t *testing.T) {
	path := pdftest.Write(t, "cats.pdf",
		pdftest.Page{Texts: []pdftest.Text{pdftest.Line(72, 700, "A cat on page one")}},
		pdftest.Page{Texts: []pdftest.Text{pdftest.Line(72, 700, "Another cat")}},
	)
	bus := eventbus.New()
	defer bus.Close()
	sources := &fakeSources{}
	m, f := newTestModel(t, Options{
		Path:    path,
		Query:   "cat",
		Bus:     bus,
		Sources: sources,
		Loader:  document.NewLoader(document.Options{Readers: 2, CachePages: 4}),
	})
	defer m.Shutdown()

	m.Update(m.loadDocument(false)())

	require.True(t, m.loaded)
	assert.Len(t, m.pages, 2)
	assert.Contains(t, m.View(), "A cat on page one")
	assert.Contains(t, m.View(), "── Page 2 ──")
	require.Len(t, sources.set, 1)
	assert.Equal(t, []string{"cat"}, f.queries())

	_, cmd := m.Update(EventMsg{Event: eventbus.DocumentChangedEvent{Path: path}})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Len(t, sources.set, 2)
	assert.Equal(t, []string{"cat", "cat"}, f.queries(), "reload reruns the query")
}

func TestReloadRerunsCurrentSearch(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "cat")
	first := f.session()
	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{Session: first, Match: domain.Match{Page: 1, Lines: []domain.LineRegion{region(1, 10)}}}})
	require.Len(t, m.found, 1)
	require.Len(t, m.markers, 1)

	m.Update(documentLoadedMsg{pages: testPages(2), reload: true})

	assert.Equal(t, "cat", f.calls[len(f.calls)-1].text)
	assert.NotEqual(t, first, f.session(), "a reload starts a new session")
	assert.Empty(t, m.found)
	assert.Empty(t, m.markers)
	assert.True(t, m.agg.Searching())
	assert.Equal(t, `Searching "cat"…`, m.status)

	m.Update(matchFoundMsg{event: domain.MatchFoundEvent{Session: first, Match: domain.Match{Page: 1, Lines: []domain.LineRegion{region(1, 10)}}}})
	assert.Empty(t, m.found, "matches of the old document are stale")
}

func TestStepWhileSearching(t *testing.T) {
	m, f := loaded(t, Options{})
	typeText(m, "cat")
	m.Update(tea.KeyMsg{Type: tea.KeyTab})

	m.Update(runes("n"))
	assert.Equal(t, `Still searching "cat"…`, m.status)

	m.Update(searchEndedMsg{event: domain.SearchEndedEvent{Session: f.session()}})
	m.Update(runes("n"))
	assert.Equal(t, `No matches for "cat"`, m.status)
}

func TestDocumentChangeIgnoredWhenNotWatching(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Document.Watch = false
	m, _ := loaded(t, Options{Config: cfg, Loader: document.NewLoader(document.Options{})})

	_, cmd := m.Update(EventMsg{Event: eventbus.DocumentChangedEvent{Path: "x.pdf"}})

	assert.Nil(t, cmd)
}

func TestHelpContentListsKeys(t *testing.T) {
	content := NewHelpRenderer().RenderHelpContent(config.PlacementFixed)

	for _, want := range []string{"pdfseek Help", "tab/esc", "next match", "ctrl+o", "Marker placement: fixed"} {
		assert.Contains(t, content, want)
	}
}

func TestPagerNeedsProgram(t *testing.T) {
	m, _ := loaded(t, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})

	_, cmd := m.Update(runes("?"))

	assert.Nil(t, cmd)
	assert.Error(t, NewPagerOps(nil).ShowInPager("x"))
}
