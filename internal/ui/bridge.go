package ui

import (
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"pdfseek/internal/domain"
	"pdfseek/internal/eventbus"
)

// SearchBridge delivers finder events to the bubbletea update loop, where the
// aggregator lives. Events arriving before a program is set are dropped.
type SearchBridge struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewSearchBridge creates an unconnected bridge
func NewSearchBridge() *SearchBridge {
	return &SearchBridge{}
}

// SetProgram connects the bridge to p
func (b *SearchBridge) SetProgram(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

func (b *SearchBridge) send(msg tea.Msg) {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()
	if p == nil {
		log.Printf("SearchBridge: no program, dropping %T", msg)
		return
	}
	p.Send(msg)
}

// MatchFound implements finder.Observer
func (b *SearchBridge) MatchFound(ev domain.MatchFoundEvent) {
	b.send(matchFoundMsg{event: ev})
}

// SearchEnded implements finder.Observer
func (b *SearchBridge) SearchEnded(ev domain.SearchEndedEvent) {
	b.send(searchEndedMsg{event: ev})
}

// Forward subscribes to the given bus events and sends them to the program as
// EventMsg. The returned function unsubscribes.
func (b *SearchBridge) Forward(bus eventbus.EventBus, types ...eventbus.EventType) func() {
	var unsubs []func()
	for _, t := range types {
		unsubs = append(unsubs, bus.Subscribe(t, func(e eventbus.DomainEvent) {
			b.send(EventMsg{Event: e})
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
