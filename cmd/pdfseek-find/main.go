// Command pdfseek-find runs one search over a PDF without the viewer and
// prints every match.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdfseek/internal/aggregator"
	"pdfseek/internal/config"
	"pdfseek/internal/document"
	"pdfseek/internal/domain"
	"pdfseek/internal/finder"
	"pdfseek/internal/report"
)

// Exit codes follow grep
const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

func main() {
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

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// eventQueue hands finder events to the goroutine that owns the aggregator
type eventQueue chan interface{}

func (q eventQueue) MatchFound(ev domain.MatchFoundEvent)   { q <- ev }
func (q eventQueue) SearchEnded(ev domain.SearchEndedEvent) { q <- ev }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pdfseek-find", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath      string
		caseInsensitive bool
		placement       string
		asJSON          bool
		trace           bool
		verbose         bool
		colorMode       string
	)
	fs.StringVar(&configPath, "config", "", "Path to the config file (default: user config dir)")
	fs.BoolVar(&caseInsensitive, "i", true, "Case-insensitive matching (-i=false for exact case)")
	fs.StringVar(&placement, "placement", "", "Marker placement: fixed or match (overrides config)")
	fs.BoolVar(&asJSON, "json", false, "Print matches as JSON")
	fs.BoolVar(&trace, "trace", false, "Print every view action to stderr")
	fs.BoolVar(&verbose, "v", false, "Log to stderr")
	fs.StringVar(&colorMode, "color", "auto", "Color output: auto, always or never")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: pdfseek-find [flags] file.pdf query\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitError
	}
	path, query := fs.Arg(0), fs.Arg(1)

	if verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	mode, err := report.ParseColorMode(colorMode)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	printer := report.NewPrinter(stdout, stderr, mode)

	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.NewConfigService(configPath).Load()
	if err != nil {
		printer.Warning("config not loaded, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if placement != "" {
		cfg.Marker.Placement = placement
	}
	pl, err := aggregator.PlacementFromConfig(cfg.Marker)
	if err != nil {
		printer.Error("%v", err)
		return exitError
	}

	doc, err := document.NewLoader(document.Options{
		Validate:   cfg.Document.Validate,
		CachePages: cfg.Document.CachePages,
		Readers:    cfg.Search.Workers,
	}).Open(path)
	if err != nil {
		printer.Error("%v", err)
		return exitError
	}
	defer doc.Close()

	var traceOut io.Writer
	if trace {
		traceOut = stderr
	}
	view := report.NewRecorder(traceOut)
	events := make(eventQueue, 64)
	searcher := finder.New(doc, events, cfg.Search.Workers)
	agg := aggregator.New(ctx, searcher, view, aggregator.Options{
		CaseInsensitive: caseInsensitive,
		Placement:       pl,
	})

	agg.OnQueryChanged(query)
	var end domain.SearchEndedEvent
	for done := false; !done; {
		switch ev := (<-events).(type) {
		case domain.MatchFoundEvent:
			agg.OnMatchFound(ev)
		case domain.SearchEndedEvent:
			agg.OnSearchEnded(ev)
			end, done = ev, true
		}
	}
	searcher.Wait()
	st := agg.Stats()
	log.Printf("%d jumps, %d markers attached, %d detached, %d lines skipped", st.Jumps, st.Attached, st.Detached, st.Skipped)

	if end.Cancelled {
		printer.Error("search interrupted")
		return exitError
	}
	if end.Err != nil {
		printer.Warning("some pages could not be read: %v", end.Err)
	}

	lines := func(page domain.PageRef, line int) (string, bool) {
		p, err := doc.Page(ctx, int(page))
		if err != nil || line < 0 || line >= len(p.Lines) {
			return "", false
		}
		return p.Lines[line].Text, true
	}

	sel := agg.Selection()
	if asJSON {
		if err := printer.JSON(agg.Query(), sel, lines); err != nil {
			printer.Error("%v", err)
			return exitError
		}
	} else {
		if sel != nil {
			for _, m := range sel.Matches {
				printer.Match(m, lines)
			}
		}
		printer.Summary(agg.Query(), sel)
	}

	if sel.Len() == 0 {
		return exitNoMatch
	}
	return exitMatch
}
