package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title         lipgloss.Style
	Dim           lipgloss.Style
	Status        lipgloss.Style
	StatusError   lipgloss.Style
	StatusLoading lipgloss.Style
	StatusSuccess lipgloss.Style
	Help          lipgloss.Style
	PageHeader    lipgloss.Style
	LineNumber    lipgloss.Style
	Text          lipgloss.Style
	Found         lipgloss.Style
	Selected      lipgloss.Style
	Current       lipgloss.Style
	Marker        lipgloss.Style
}

// NewStyles creates the styles, using foundColor and selectionColor as the
// backgrounds of found and selected matches
func NewStyles(foundColor, selectionColor string) *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Dim:           lipgloss.NewStyle().Faint(true),
		Status:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
		Help:          lipgloss.NewStyle().Faint(true),
		PageHeader:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		LineNumber:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Text:          lipgloss.NewStyle(),
		Found: lipgloss.NewStyle().
			Background(lipgloss.Color(foundColor)).
			Foreground(lipgloss.Color("16")),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(selectionColor)).
			Foreground(lipgloss.Color("16")),
		Current: lipgloss.NewStyle().
			Background(lipgloss.Color(selectionColor)).
			Foreground(lipgloss.Color("16")).
			Bold(true).
			Underline(true),
		Marker: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	}
}
