package ui

import (
	"pdfseek/internal/document"
	"pdfseek/internal/domain"
	"pdfseek/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// matchFoundMsg carries a finder match into the update loop
type matchFoundMsg struct {
	event domain.MatchFoundEvent
}

// searchEndedMsg carries the end of a search into the update loop
type searchEndedMsg struct {
	event domain.SearchEndedEvent
}

// documentLoadedMsg contains the result of opening the document
type documentLoadedMsg struct {
	doc    *document.Document
	pages  []*document.Page
	reload bool
	err    error
}

// pagerMsg contains the result of a pager command
type pagerMsg struct {
	err error
}

// pauseRenderingMsg signals to pause Bubble Tea rendering
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume Bubble Tea rendering
type resumeRenderingMsg struct{}

// clearStatusMsg clears a transient status message
type clearStatusMsg struct{}
