package document

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Options controls how documents are opened
type Options struct {
	Validate   bool // run pdfcpu validation before opening
	CachePages int  // number of extracted pages kept in memory
	Readers    int  // number of concurrent page readers
}

// Loader opens PDF documents
type Loader struct {
	opts Options
}

var disablePdfcpuConfig sync.Once

// NewLoader creates a loader with the given options
func NewLoader(opts Options) *Loader {
	if opts.CachePages < 1 {
		opts.CachePages = 64
	}
	if opts.Readers < 1 {
		opts.Readers = 1
	}
	return &Loader{opts: opts}
}

// Open opens the PDF at path
func (l *Loader) Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	doc, err := l.open(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return doc, nil
}

func (l *Loader) open(f *os.File, path string) (*Document, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}

	if err := checkHeader(f); err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}

	if l.opts.Validate {
		if err := validate(f); err != nil {
			return nil, fmt.Errorf("failed to validate document %s: %w", path, err)
		}
	}

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}

	cache, err := lru.New[int, *Page](l.opts.CachePages)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}

	pool := newReaderPool(f, info.Size(), l.opts.Readers)
	pool.put(r)

	doc := &Document{
		Path:     path,
		file:     f,
		pool:     pool,
		numPages: r.NumPage(),
		cache:    cache,
	}
	log.Printf("Opened %s (%d pages)", path, doc.numPages)
	return doc, nil
}

func checkHeader(f *os.File) error {
	head := make([]byte, 1024)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return err
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return ErrNotPDF
	}
	return nil
}

func validate(f *os.File) error {
	// pdfcpu would otherwise create its own config dir under $HOME
	disablePdfcpuConfig.Do(api.DisableConfigDir)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return api.Validate(f, nil)
}
