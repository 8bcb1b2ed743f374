package supervisor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
)

// Marker touches a file on every beat. A hardware watchdog daemon watches its
// modification time.
type Marker struct {
	path  string
	clock clock.Clock
	log   *transitionLogger
}

// NewMarker creates a Marker for path.
func NewMarker(path string, clk clock.Clock) *Marker {
	return &Marker{
		path:  path,
		clock: clk,
		log:   &transitionLogger{name: "marker " + path},
	}
}

// Path returns the marker file path.
func (m *Marker) Path() string { return m.path }

// Beat creates the marker if needed and sets its mtime to now.
func (m *Marker) Beat() {
	m.log.observe(m.touch())
}

func (m *Marker) touch() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	now := m.clock.Now()
	if err := os.Chtimes(m.path, now, now); err != nil {
		return fmt.Errorf("failed to touch marker: %w", err)
	}
	return nil
}
