package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"pdfseek/internal/aggregator"
	"pdfseek/internal/config"
	"pdfseek/internal/document"
	"pdfseek/internal/domain"
	"pdfseek/internal/eventbus"
	"pdfseek/internal/finder"
	"pdfseek/internal/ui/views"
)

// DocumentOpener opens the document shown by the viewer
type DocumentOpener interface {
	Open(path string) (*document.Document, error)
}

// SourceSetter receives every newly loaded document
type SourceSetter interface {
	SetSource(src finder.Source)
}

// Options wires the model to the rest of the application
type Options struct {
	Config    *config.Config
	Bus       eventbus.EventBus // optional
	Finder    aggregator.Finder
	Sources   SourceSetter   // optional
	Loader    DocumentOpener // optional; without it pages arrive as messages
	Path      string
	Query     string // initial search
	Placement aggregator.Placement
}

// Model represents the UI state. It is the view driven by the aggregator.
type Model struct {
	ctx     context.Context
	cfg     *config.Config
	bus     eventbus.EventBus
	agg     *aggregator.Aggregator
	sources SourceSetter
	loader  DocumentOpener
	path    string

	// document
	doc    *document.Document
	pages  []*document.Page
	layout *views.Layout
	loaded bool

	// search results
	found     []domain.Match
	selection *domain.Selection
	cursor    int
	markers   map[domain.MarkerHandle]domain.Marker
	nextMark  domain.MarkerHandle

	// widgets
	width      int
	height     int
	input      textinput.Model
	vp         viewport.Model
	help       help.Model
	keys       keyMap
	focusInput bool

	currentPage domain.PageRef
	status      string
	statusKind  views.StatusKind
	dirty       bool
	inPagerMode bool

	renderer *views.Renderer
	helpText *HelpRenderer

	// Program reference for terminal management
	program *tea.Program
	pager   *PagerOps
}

// NewModel creates a new UI model
func NewModel(ctx context.Context, opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "search"
	input.SetValue(opts.Query)
	input.Focus()

	m := &Model{
		ctx:        ctx,
		cfg:        cfg,
		bus:        opts.Bus,
		sources:    opts.Sources,
		loader:     opts.Loader,
		path:       opts.Path,
		cursor:     -1,
		markers:    make(map[domain.MarkerHandle]domain.Marker),
		input:      input,
		vp:         viewport.New(80, 20),
		help:       help.New(),
		keys:       newKeyMap(),
		focusInput: true,
		renderer:   views.NewRenderer(views.NewStyles(cfg.UI.FoundColor, cfg.UI.SelectionColor)),
		helpText:   NewHelpRenderer(),
	}

	placement := opts.Placement
	if placement == nil {
		p, err := aggregator.PlacementFromConfig(cfg.Marker)
		if err != nil {
			log.Printf("Using default marker placement: %v", err)
		} else {
			placement = p
		}
	}

	m.agg = aggregator.New(ctx, opts.Finder, m, aggregator.Options{
		CaseInsensitive: cfg.Search.CaseInsensitive,
		Placement:       placement,
		Bus:             opts.Bus,
	})

	if opts.Path != "" {
		m.setStatus(fmt.Sprintf("Loading %s…", filepath.Base(opts.Path)), views.StatusLoading)
	}
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	m.pager = NewPagerOps(p)
}

// Shutdown cancels the running search and closes the document
func (m *Model) Shutdown() {
	m.agg.Close()
	if m.doc != nil {
		if err := m.doc.Close(); err != nil {
			log.Printf("Failed to close document: %v", err)
		}
		m.doc = nil
	}
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	if m.loader == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.loadDocument(false))
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	default:
		cmd = m.handleNonKeyboardMsg(msg)
	}

	if m.dirty {
		m.refresh()
	}
	return m, cmd
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.inPagerMode {
		return ""
	}

	file := ""
	if m.path != "" {
		file = filepath.Base(m.path)
	}

	state := views.ScreenState{
		Width:      m.width,
		Height:     m.height,
		File:       file,
		Page:       int(m.currentPage),
		Pages:      len(m.pages),
		Input:      m.input.View(),
		Body:       m.vp.View(),
		Status:     m.status,
		StatusKind: m.statusKind,
		Help:       m.help.View(m.keys),
	}
	return m.renderer.Render(state)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.agg.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Focus):
		return m.toggleFocus()
	case key.Matches(msg, m.keys.PageUp):
		m.scrollTo(m.vp.YOffset - m.vp.Height)
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.scrollTo(m.vp.YOffset + m.vp.Height)
		return nil
	case key.Matches(msg, m.keys.Text):
		return m.showText()
	case key.Matches(msg, m.keys.Reload):
		if m.loader == nil {
			return nil
		}
		m.setStatus("Reloading…", views.StatusLoading)
		return m.loadDocument(true)
	}

	if m.focusInput {
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.queryEdited()
		}
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		m.step(1)
	case key.Matches(msg, m.keys.Prev):
		m.step(-1)
	case key.Matches(msg, m.keys.Up):
		m.scrollTo(m.vp.YOffset - 1)
	case key.Matches(msg, m.keys.Down):
		m.scrollTo(m.vp.YOffset + 1)
	case key.Matches(msg, m.keys.Top):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.scrollTo(m.maxOffset())
	case key.Matches(msg, m.keys.Help):
		return m.showHelp()
	case key.Matches(msg, m.keys.Quit):
		m.agg.Close()
		return tea.Quit
	}
	return nil
}

// handleNonKeyboardMsg handles non-keyboard messages
func (m *Model) handleNonKeyboardMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case matchFoundMsg:
		current := msg.event.Session == m.agg.Session()
		m.agg.OnMatchFound(msg.event)
		if current {
			m.found = m.agg.Matches()
			m.setStatus(fmt.Sprintf("Searching %q… %d found", m.agg.Query(), len(m.found)), views.StatusLoading)
			m.dirty = true
		}
		return nil

	case searchEndedMsg:
		current := msg.event.Session == m.agg.Session()
		m.agg.OnSearchEnded(msg.event)
		if current {
			m.searchFinished(msg.event)
		}
		return nil

	case documentLoadedMsg:
		return m.documentLoaded(msg)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case pagerMsg:
		if msg.err != nil {
			log.Printf("Pager failed: %v", msg.err)
			m.setStatus(fmt.Sprintf("Pager failed: %v", msg.err), views.StatusError)
			return clearStatusAfter(3 * time.Second)
		}
		return nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return nil

	case clearStatusMsg:
		m.setStatus("", views.StatusInfo)
		return nil

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}
}

func (m *Model) handleEvent(event eventbus.DomainEvent) tea.Cmd {
	switch e := event.(type) {
	case eventbus.DocumentChangedEvent:
		if !m.cfg.Document.Watch || m.loader == nil {
			return nil
		}
		log.Printf("Document changed on disk: %s", e.Path)
		m.setStatus("Document changed, reloading…", views.StatusLoading)
		return m.loadDocument(true)
	case eventbus.ErrorEvent:
		m.setStatus(e.Message, views.StatusError)
		return clearStatusAfter(5 * time.Second)
	}
	return nil
}

// queryEdited restarts the search with the trimmed contents of the input
func (m *Model) queryEdited() {
	if !m.loaded {
		return
	}
	query := strings.TrimSpace(m.input.Value())
	m.clearResults()
	m.agg.OnQueryChanged(query)
	if query == "" {
		m.setStatus("", views.StatusInfo)
	} else {
		m.setStatus(fmt.Sprintf("Searching %q…", query), views.StatusLoading)
	}
}

// rerunSearch searches the reloaded document for the current query again
func (m *Model) rerunSearch() {
	m.clearResults()
	m.agg.Reset()
	m.setStatus(fmt.Sprintf("Searching %q…", m.agg.Query()), views.StatusLoading)
}

func (m *Model) clearResults() {
	m.found = nil
	m.selection = nil
	m.cursor = -1
	m.dirty = true
}

func (m *Model) searchFinished(ev domain.SearchEndedEvent) {
	query := m.agg.Query()
	st := m.agg.Stats()
	log.Printf("Search %q ended: %d jumps, %d markers attached, %d lines skipped, %d stale events",
		query, st.Jumps, st.Attached, st.Skipped, st.Stale)
	switch {
	case errors.Is(ev.Err, finder.ErrNoDocument):
		m.setStatus("No document loaded", views.StatusError)
	case query == "":
		m.setStatus("", views.StatusInfo)
	case len(m.found) == 0:
		m.setStatus(fmt.Sprintf("No matches for %q", query), views.StatusInfo)
	default:
		noun := "matches"
		if len(m.found) == 1 {
			noun = "match"
		}
		status := fmt.Sprintf("%d %s for %q", len(m.found), noun, query)
		if ev.Err != nil {
			status += " (some pages could not be read)"
		}
		m.setStatus(status, views.StatusSuccess)
	}
}

func (m *Model) documentLoaded(msg documentLoadedMsg) tea.Cmd {
	if msg.err != nil {
		log.Printf("Failed to load %s: %v", m.path, msg.err)
		m.setStatus(fmt.Sprintf("Failed to load document: %v", msg.err), views.StatusError)
		if m.bus != nil {
			m.bus.Publish(eventbus.ErrorEvent{Message: "failed to load document", Err: msg.err})
		}
		return nil
	}

	old := m.doc
	m.doc = msg.doc
	m.pages = msg.pages
	m.layout = views.NewLayout(msg.pages)
	m.loaded = true
	if msg.doc != nil && m.sources != nil {
		m.sources.SetSource(msg.doc)
	}
	if !msg.reload || m.currentPage == domain.NoPage || int(m.currentPage) > len(msg.pages) {
		m.currentPage = 1
		if len(msg.pages) == 0 {
			m.currentPage = domain.NoPage
		}
	}
	m.setStatus(fmt.Sprintf("%d pages", len(msg.pages)), views.StatusInfo)
	m.refresh()

	if m.bus != nil {
		if msg.reload {
			m.bus.Publish(eventbus.DocumentReloadedEvent{Path: m.path, Pages: len(msg.pages)})
		} else {
			m.bus.Publish(eventbus.DocumentLoadedEvent{Path: m.path, Pages: len(msg.pages)})
		}
	}

	switch {
	case msg.reload && m.agg.Query() != "":
		m.rerunSearch()
	case m.input.Value() != "":
		m.queryEdited()
	}

	if old != nil && old != msg.doc {
		if err := old.Close(); err != nil {
			log.Printf("Failed to close previous document: %v", err)
		}
	}
	return nil
}

// loadDocument returns a command that opens the document and extracts every page
func (m *Model) loadDocument(reload bool) tea.Cmd {
	ctx, loader, path, workers := m.ctx, m.loader, m.path, m.cfg.Search.Workers
	return func() tea.Msg {
		doc, err := loader.Open(path)
		if err != nil {
			return documentLoadedMsg{reload: reload, err: err}
		}
		pages, err := extractAll(ctx, doc, workers)
		if err != nil {
			_ = doc.Close()
			return documentLoadedMsg{reload: reload, err: err}
		}
		return documentLoadedMsg{doc: doc, pages: pages, reload: reload}
	}
}

// extractAll extracts every page; unreadable pages are shown empty
func extractAll(ctx context.Context, doc *document.Document, workers int) ([]*document.Page, error) {
	pages := make([]*document.Page, doc.NumPages())
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := range pages {
		g.Go(func() error {
			p, err := doc.Page(ctx, i+1)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Page %d unreadable: %v", i+1, err)
				p = &document.Page{Number: domain.PageRef(i + 1)}
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to extract pages: %w", err)
	}
	return pages, nil
}

func (m *Model) toggleFocus() tea.Cmd {
	m.focusInput = !m.focusInput
	if m.focusInput {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

// step moves the cursor through the final selection and jumps to it
func (m *Model) step(dir int) {
	n := m.selection.Len()
	if n == 0 {
		if m.agg.Searching() && m.agg.Query() != "" {
			m.setStatus(fmt.Sprintf("Still searching %q…", m.agg.Query()), views.StatusLoading)
		}
		return
	}
	switch {
	case m.cursor < 0 && dir > 0:
		m.cursor = 0
	case m.cursor < 0:
		m.cursor = n - 1
	default:
		m.cursor = ((m.cursor+dir)%n + n) % n
	}
	match := m.selection.Matches[m.cursor]
	if len(match.Lines) > 0 {
		m.JumpTo(match.Lines[0])
	}
	m.setStatus(fmt.Sprintf("Match %d/%d", m.cursor+1, n), views.StatusInfo)
	m.dirty = true
}

func (m *Model) resize() {
	m.vp.Width = m.width
	m.vp.Height = max(m.height-views.ChromeHeight, 1)
	m.input.Width = max(m.width-len(m.input.Prompt)-1, 1)
	m.dirty = true
}

func (m *Model) maxOffset() int {
	if m.layout == nil {
		return 0
	}
	return max(m.layout.Len()-m.vp.Height, 0)
}

func (m *Model) scrollTo(y int) {
	y = min(max(y, 0), m.maxOffset())
	m.vp.SetYOffset(y)
	if m.layout != nil && m.layout.Len() > 0 {
		m.currentPage = m.layout.PageAt(y)
	}
	m.dirty = true
}

// refresh repaints the document into the viewport
func (m *Model) refresh() {
	m.dirty = false
	if m.layout == nil {
		return
	}
	markers := make([]domain.Marker, 0, len(m.markers))
	for _, mk := range m.markers {
		markers = append(markers, mk)
	}
	y := m.vp.YOffset
	m.vp.SetContent(m.renderer.RenderDocument(views.DocumentState{
		Pages:        m.pages,
		Layout:       m.layout,
		Found:        m.found,
		Selection:    m.selection,
		Current:      m.cursor,
		Markers:      markers,
		MarkerSymbol: m.cfg.Marker.Symbol,
		Offset:       y,
		LineNumbers:  m.cfg.UI.ShowLineNumbers,
	}))
	m.vp.SetYOffset(y)
}

func (m *Model) setStatus(msg string, kind views.StatusKind) {
	m.status = msg
	m.statusKind = kind
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// showHelp returns a command that shows help using ov pager
func (m *Model) showHelp() tea.Cmd {
	if m.program == nil {
		return nil
	}
	content := m.helpText.RenderHelpContent(m.cfg.Marker.Placement)
	return m.runPager(func() (string, error) { return content, nil })
}

// showText returns a command that shows the extracted text using ov pager
func (m *Model) showText() tea.Cmd {
	if m.program == nil || m.doc == nil {
		return nil
	}
	doc, ctx := m.doc, m.ctx
	return m.runPager(func() (string, error) { return doc.Text(ctx) })
}

func (m *Model) runPager(content func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		text, err := content()
		if err != nil {
			return pagerMsg{err: err}
		}

		// Send pause message to stop rendering
		m.program.Send(pauseRenderingMsg{})

		err = m.pager.ShowInPager(text)

		// Send resume message to restart rendering
		m.program.Send(resumeRenderingMsg{})

		return pagerMsg{err: err}
	}
}

// JumpTo scrolls the viewport so that line is visible
func (m *Model) JumpTo(line domain.LineRegion) {
	if m.layout == nil {
		return
	}
	row, ok := m.layout.RowOf(line.Page, line.Line)
	if !ok {
		log.Printf("JumpTo: no row for page %d line %d", line.Page, line.Line)
		return
	}
	y := m.vp.YOffset
	if row < y || row >= y+m.vp.Height {
		y = row - m.vp.Height/3
	}
	m.scrollTo(y)
	m.currentPage = line.Page
}

// CurrentPage returns the page the viewer is on
func (m *Model) CurrentPage() (domain.PageRef, bool) {
	if !m.loaded || m.currentPage == domain.NoPage {
		return domain.NoPage, false
	}
	return m.currentPage, true
}

// AttachMarker adds mk to the painted markers
func (m *Model) AttachMarker(mk domain.Marker) domain.MarkerHandle {
	m.nextMark++
	mk.Handle = m.nextMark
	m.markers[mk.Handle] = mk
	m.dirty = true
	return mk.Handle
}

// DetachMarker removes a marker
func (m *Model) DetachMarker(h domain.MarkerHandle) {
	delete(m.markers, h)
	m.dirty = true
}

// SetSelection paints sel as the final selection
func (m *Model) SetSelection(sel *domain.Selection) {
	m.selection = sel
	m.cursor = -1
	m.dirty = true
}

var _ aggregator.View = (*Model)(nil)
