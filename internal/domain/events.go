package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventDocumentLoaded   EventType = "DocumentLoaded"
	EventDocumentChanged  EventType = "DocumentChanged"
	EventDocumentReloaded EventType = "DocumentReloaded"
	EventSearchStarted    EventType = "SearchStarted"
	EventSearchCompleted  EventType = "SearchCompleted"
	EventError            EventType = "Error"
	EventConfigLoaded     EventType = "ConfigLoaded"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// DocumentLoadedEvent is emitted when a document has been opened
type DocumentLoadedEvent struct {
	Path  string
	Pages int
}

func (e DocumentLoadedEvent) Type() EventType { return EventDocumentLoaded }

// DocumentChangedEvent is emitted when the file behind the document changes on disk
type DocumentChangedEvent struct {
	Path string
}

func (e DocumentChangedEvent) Type() EventType { return EventDocumentChanged }

// DocumentReloadedEvent is emitted after a changed document was opened again
type DocumentReloadedEvent struct {
	Path  string
	Pages int
}

func (e DocumentReloadedEvent) Type() EventType { return EventDocumentReloaded }

// SearchStartedEvent is emitted when a new query supersedes the previous one
type SearchStartedEvent struct {
	Session SessionID
	Query   string
}

func (e SearchStartedEvent) Type() EventType { return EventSearchStarted }

// SearchCompletedEvent is emitted when a search session ends
type SearchCompletedEvent struct {
	Session    SessionID
	Query      string
	MatchCount int
	Cancelled  bool
}

func (e SearchCompletedEvent) Type() EventType { return EventSearchCompleted }

// ErrorEvent is emitted when a background operation fails
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// MatchFoundEvent carries one match of a search session.
// It is delivered through the finder's sink, not the event bus.
type MatchFoundEvent struct {
	Session SessionID
	Match   Match
}

// SearchEndedEvent terminates a search session.
// Exactly one is emitted per session, after all of its matches.
type SearchEndedEvent struct {
	Session   SessionID
	Cancelled bool
	Err       error
}
