package visualization

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Sink stores rendered images under a bare name such as "plot_residuals".
type Sink interface {
	Save(name string, img io.WriterTo) error
}

// DirSink writes "<Dir>/<name>.png", creating Dir on demand and overwriting
// existing files.
type DirSink struct {
	Dir string
}

// Save implements Sink.
func (s DirSink) Save(name string, img io.WriterTo) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", s.Dir)
	}
	path := filepath.Join(s.Dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()
	if _, err := img.WriteTo(f); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// MemorySink keeps rendered images in memory. Used by tests.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Save implements Sink.
func (s *MemorySink) Save(name string, img io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := img.WriteTo(&buf); err != nil {
		return errors.Wrapf(err, "failed to render %s", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = buf.Bytes()
	return nil
}

// Get returns the bytes saved under name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}

// Names returns the saved names in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
