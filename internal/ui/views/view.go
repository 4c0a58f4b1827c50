package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusKind selects the style of the status bar
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// ScreenState contains all the state needed for rendering the screen
type ScreenState struct {
	Width      int
	Height     int
	File       string
	Page       int
	Pages      int
	Input      string
	Body       string
	Status     string
	StatusKind StatusKind
	Help       string
}

// Renderer handles all view rendering
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a new renderer
func NewRenderer(styles *Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Styles returns the styles in use
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// ChromeHeight is the number of rows used around the document body
const ChromeHeight = 4

// Render produces the complete view
func (r *Renderer) Render(s ScreenState) string {
	var b strings.Builder

	title := r.styles.Title.Render("pdfseek")
	if s.File != "" {
		title += " " + r.styles.Dim.Render(s.File)
	}
	if s.Pages > 0 {
		pos := fmt.Sprintf("page %d/%d", s.Page, s.Pages)
		gap := s.Width - lipgloss.Width(title) - len(pos)
		if gap < 1 {
			gap = 1
		}
		title += strings.Repeat(" ", gap) + r.styles.Status.Render(pos)
	}
	b.WriteString(title)
	b.WriteString("\n")

	b.WriteString(s.Input)
	b.WriteString("\n")

	b.WriteString(s.Body)
	b.WriteString("\n")

	b.WriteString(r.renderStatus(s.Status, s.StatusKind))
	b.WriteString("\n")
	b.WriteString(r.styles.Help.Render(s.Help))

	return b.String()
}

func (r *Renderer) renderStatus(msg string, kind StatusKind) string {
	switch kind {
	case StatusLoading:
		return r.styles.StatusLoading.Render(msg)
	case StatusSuccess:
		return r.styles.StatusSuccess.Render(msg)
	case StatusError:
		return r.styles.StatusError.Render(msg)
	default:
		return r.styles.Status.Render(msg)
	}
}
