package persistence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// DefaultRetryDelay is the pause before the single retry of a failed counter write.
const DefaultRetryDelay = 200 * time.Millisecond

// ErrUnknownCounter is returned for an action with no registered counter file.
var ErrUnknownCounter = errors.New("unknown counter")

// PersistenceError reports a counter write that failed even after retry.
type PersistenceError struct {
	Action string
	Path   string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s counter %s (%s): %v", e.Op, e.Action, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CounterFile binds an action name to its counter record.
type CounterFile struct {
	Action string
	Path   string
}

// CounterStore keeps one durable invocation counter per recovery action.
// Reads fail open to 0; writes are atomic and retried once.
type CounterStore struct {
	mu         sync.Mutex
	files      map[string]*FileStorage
	order      []string
	retryDelay time.Duration
}

// CounterOption configures a CounterStore.
type CounterOption func(*CounterStore)

// WithRetryDelay overrides DefaultRetryDelay.
func WithRetryDelay(d time.Duration) CounterOption {
	return func(s *CounterStore) {
		s.retryDelay = d
	}
}

// NewCounterStore creates a store over the given counter files.
func NewCounterStore(files []CounterFile, backupCount int, opts ...CounterOption) *CounterStore {
	s := &CounterStore{
		files:      make(map[string]*FileStorage, len(files)),
		retryDelay: DefaultRetryDelay,
	}
	for _, f := range files {
		if _, dup := s.files[f.Action]; dup {
			continue
		}
		s.files[f.Action] = NewFileStorage(f.Path, backupCount)
		s.order = append(s.order, f.Action)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Actions returns the registered action names in registration order.
func (s *CounterStore) Actions() []string {
	return append([]string(nil), s.order...)
}

// Path returns the counter file of action, or "" when unknown.
func (s *CounterStore) Path(action string) string {
	if fs, ok := s.files[action]; ok {
		return fs.Path()
	}
	return ""
}

// Get returns the persisted count for action. Missing, unreadable or corrupt
// records read as 0 so a bad read never blocks escalation. A missing record
// is created with 0.
func (s *CounterStore) Get(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.get(action, true)
	return n
}

// Peek is Get without side effects: a missing record reads as 0 and is not
// created.
func (s *CounterStore) Peek(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.get(action, false)
	return n
}

// get reads the count for action. The error is non-nil when a record exists
// but neither it nor any backup could be decoded; n is then 0.
func (s *CounterStore) get(action string, create bool) (int, error) {
	fs, ok := s.files[action]
	if !ok {
		logging.Warn("No counter registered for action %s, treating as 0", action)
		return 0, nil
	}

	data, err := fs.Read()
	if err != nil {
		logging.Warn("Failed to read counter %s (%s), treating as 0: %v", action, fs.Path(), err)
		return 0, err
	}
	if data == nil {
		if create {
			if err := fs.Write(encodeCount(0)); err != nil {
				logging.Warn("Failed to create counter %s (%s): %v", action, fs.Path(), err)
			}
		}
		return 0, nil
	}

	n, err := decodeCount(data)
	if err == nil {
		return n, nil
	}

	logging.Warn("Counter %s (%s) is corrupt: %v", action, fs.Path(), err)
	backup, berr := fs.RecoverFromBackup()
	if berr != nil {
		return 0, err
	}
	n, berr = decodeCount(backup)
	if berr != nil {
		return 0, err
	}
	return n, nil
}

// Increment adds one to the persisted count and returns the new value. On
// error the returned value is what the count should have become. A record
// that exists but cannot be read is overwritten with 1.
func (s *CounterStore) Increment(action string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, rerr := s.get(action, true)
	n := cur + 1
	if rerr != nil {
		logging.Error("Counter %s is unreadable, overwriting with %d; earlier invocations are lost: %v",
			action, n, rerr)
	}
	return n, s.write(action, "increment", n)
}

// Reset sets the persisted count back to 0.
func (s *CounterStore) Reset(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(action, "reset", 0)
}

// Set overwrites the persisted count.
func (s *CounterStore) Set(action string, n int) error {
	if n < 0 {
		return fmt.Errorf("counter %s: negative value %d", action, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(action, "set", n)
}

// Snapshot reads every registered counter.
func (s *CounterStore) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.order))
	for _, action := range s.order {
		out[action], _ = s.get(action, true)
	}
	return out
}

func (s *CounterStore) write(action, op string, n int) error {
	fs, ok := s.files[action]
	if !ok {
		return &PersistenceError{Action: action, Op: op, Err: ErrUnknownCounter}
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := fs.Write(encodeCount(n)); err != nil {
			logging.Warn("Counter %s write attempt %d failed: %v", action, attempt, err)
			return err
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1))
	if err != nil {
		return &PersistenceError{Action: action, Path: fs.Path(), Op: op, Err: err}
	}

	logging.Debug("Counter %s = %d", action, n)
	return nil
}

func encodeCount(n int) []byte {
	return []byte(strconv.Itoa(n) + "\n")
}

func decodeCount(data []byte) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
