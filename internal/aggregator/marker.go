package aggregator

import (
	"fmt"

	"pdfseek/internal/config"
	"pdfseek/internal/domain"
)

// Placement decides where the marker goes for a line with the given bounds
type Placement interface {
	Place(line domain.Rect) (domain.Rect, domain.MarkerAnchor)
}

// FixedOffset puts the marker at a constant position inside the view,
// whatever line triggered it.
type FixedOffset struct {
	X, Y, W, H float64
}

// DefaultFixedOffset is the view-relative marker position used by fixed placement
var DefaultFixedOffset = FixedOffset{X: 100, Y: 200, W: 30, H: 30}

func (p FixedOffset) Place(domain.Rect) (domain.Rect, domain.MarkerAnchor) {
	return domain.Rect{X: p.X, Y: p.Y, W: p.W, H: p.H}, domain.AnchorView
}

// AtMatch puts a square marker immediately left of the matched line
type AtMatch struct {
	Size float64
	Gap  float64
}

func (p AtMatch) Place(line domain.Rect) (domain.Rect, domain.MarkerAnchor) {
	return domain.Rect{X: line.X - p.Gap - p.Size, Y: line.Y, W: p.Size, H: p.Size}, domain.AnchorPage
}

// PlacementFromConfig builds the placement policy from marker settings.
// Fixed offsets are in the view's own units (terminal cells for the TUI).
func PlacementFromConfig(m config.MarkerSettings) (Placement, error) {
	switch m.Placement {
	case config.PlacementFixed:
		return FixedOffset{X: float64(m.OffsetX), Y: float64(m.OffsetY), W: 1, H: 1}, nil
	case config.PlacementMatch:
		return AtMatch{Size: 6, Gap: 2}, nil
	default:
		return nil, fmt.Errorf("unknown marker placement %q", m.Placement)
	}
}
