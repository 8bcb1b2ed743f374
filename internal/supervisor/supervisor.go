// Package supervisor signals liveness to whatever keeps the watchdog itself
// alive: systemd's service watchdog and an optional hardware watchdog marker.
package supervisor

import (
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// Heartbeat is a liveness signal. Beat never blocks for long and never fails
// the caller.
type Heartbeat interface {
	Beat()
}

// BeatFunc adapts a function to Heartbeat.
type BeatFunc func()

func (f BeatFunc) Beat() { f() }

// Multi fans a beat out to several heartbeats.
type Multi []Heartbeat

func (m Multi) Beat() {
	for _, hb := range m {
		hb.Beat()
	}
}

// transitionLogger reports a failing signal once, and again when it recovers.
type transitionLogger struct {
	mu      sync.Mutex
	name    string
	failing bool
}

func (t *transitionLogger) observe(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case err != nil && !t.failing:
		t.failing = true
		logging.Error("%s heartbeat failing: %v", t.name, err)
	case err == nil && t.failing:
		t.failing = false
		logging.Info("%s heartbeat restored", t.name)
	}
}

// Systemd talks to the service manager over $NOTIFY_SOCKET.
type Systemd struct {
	notify   func(unsetEnvironment bool, state string) (bool, error)
	watchdog func(unsetEnvironment bool) (time.Duration, error)
	log      *transitionLogger
}

// NewSystemd creates a systemd notifier.
func NewSystemd() *Systemd {
	return &Systemd{
		notify:   daemon.SdNotify,
		watchdog: daemon.SdWatchdogEnabled,
		log:      &transitionLogger{name: "systemd"},
	}
}

// Beat sends WATCHDOG=1.
func (s *Systemd) Beat() {
	_, err := s.notify(false, daemon.SdNotifyWatchdog)
	s.log.observe(err)
}

// Ready sends READY=1. It reports false when no notify socket is configured.
func (s *Systemd) Ready() bool {
	sent, err := s.notify(false, daemon.SdNotifyReady)
	if err != nil {
		logging.Warn("Failed to notify systemd readiness: %v", err)
	}
	return sent
}

// Stopping sends STOPPING=1.
func (s *Systemd) Stopping() {
	if _, err := s.notify(false, daemon.SdNotifyStopping); err != nil {
		logging.Debug("Failed to notify systemd shutdown: %v", err)
	}
}

// Timeout returns the service watchdog timeout, or 0 when none is configured.
func (s *Systemd) Timeout() (time.Duration, error) {
	return s.watchdog(false)
}
