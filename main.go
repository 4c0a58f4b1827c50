package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"pdfseek/internal/config"
	"pdfseek/internal/document"
	"pdfseek/internal/eventbus"
	"pdfseek/internal/finder"
	"pdfseek/internal/ui"
)

// defaultDocument is opened when no file is given
const defaultDocument = "sample.pdf"

func main() {
	// Parse command line arguments
	var (
		configPath  string
		query       string
		placement   string
		logPath     string
		writeConfig bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the config file (default: user config dir)")
	flag.StringVar(&query, "q", "", "Initial search query")
	flag.StringVar(&placement, "placement", "", "Marker placement: fixed or match (overrides config)")
	flag.StringVar(&logPath, "log", "pdfseek.log", "Log file")
	flag.BoolVar(&writeConfig, "write-config", false, "Write the effective config and exit")
	flag.Parse()

	docPath := defaultDocument
	if flag.NArg() > 0 {
		docPath = flag.Arg(0)
	}

	// Set up logging
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
	} else {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Create event bus
	bus := eventbus.New()
	defer bus.Close()

	if configPath == "" {
		configPath = config.DefaultPath()
	}
	logLifecycle(bus)

	configSvc := config.NewConfigServiceWithBus(configPath, bus)
	cfg, err := configSvc.Load()
	if err != nil {
		log.Printf("Error loading config: %v", err)
		fmt.Fprintf(os.Stderr, "Error loading config, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if placement != "" {
		cfg.Marker.Placement = placement
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	if writeConfig {
		if err := configSvc.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", configSvc.Path())
		return
	}

	// Resolve to absolute path
	absPath, err := filepath.Abs(docPath)
	if err != nil {
		fmt.Printf("Error resolving path: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stat(absPath); err != nil {
		fmt.Printf("Error opening document: %v\n", err)
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	loader := document.NewLoader(document.Options{
		Validate:   cfg.Document.Validate,
		CachePages: cfg.Document.CachePages,
		Readers:    cfg.Search.Workers,
	})
	bridge := ui.NewSearchBridge()
	searcher := finder.New(nil, bridge, cfg.Search.Workers)

	if cfg.Document.Watch {
		watcher, err := document.NewWatcher(bus, absPath, document.DefaultDebounce)
		if err != nil {
			log.Printf("Not watching %s: %v", absPath, err)
		} else {
			defer watcher.Close()
			watcher.Start(ctx)
		}
	}

	// Create UI model
	log.Printf("Creating UI model for %s...", absPath)
	model := ui.NewModel(ctx, ui.Options{
		Config:  cfg,
		Bus:     bus,
		Finder:  searcher,
		Sources: searcher,
		Loader:  loader,
		Path:    absPath,
		Query:   query,
	})

	// Create Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)
	bridge.SetProgram(p)
	defer bridge.Forward(bus, eventbus.EventDocumentChanged, eventbus.EventError)()

	// Run the UI
	log.Printf("Starting UI...")
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Printf("Error running program: %v", err)
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
	log.Printf("UI exited normally")

	// Cleanup
	cancel()
	searcher.Wait()
	model.Shutdown()
}

// logLifecycle writes the bus lifecycle events to the log
func logLifecycle(bus eventbus.EventBus) {
	handler := func(e eventbus.DomainEvent) {
		switch event := e.(type) {
		case eventbus.ConfigLoadedEvent:
			log.Printf("Config loaded from %s", event.Path)
		case eventbus.DocumentLoadedEvent:
			log.Printf("Document %s loaded: %d pages", event.Path, event.Pages)
		case eventbus.DocumentReloadedEvent:
			log.Printf("Document %s reloaded: %d pages", event.Path, event.Pages)
		case eventbus.SearchStartedEvent:
			log.Printf("Search %s for %q started", event.Session, event.Query)
		case eventbus.SearchCompletedEvent:
			log.Printf("Search %s for %q completed: %d matches (cancelled=%v)", event.Session, event.Query, event.MatchCount, event.Cancelled)
		}
	}

	for _, t := range []eventbus.EventType{
		eventbus.EventConfigLoaded,
		eventbus.EventDocumentLoaded,
		eventbus.EventDocumentReloaded,
		eventbus.EventSearchStarted,
		eventbus.EventSearchCompleted,
	} {
		bus.Subscribe(t, handler)
	}
}
