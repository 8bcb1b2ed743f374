package healthcheck

import (
	"context"
	"errors"
	"sync"
	"time"
)

// scriptedChecker replays a fixed sequence of outcomes, then repeats the last.
type scriptedChecker struct {
	mu      sync.Mutex
	results []bool
	calls   int
	panicAt int
}

func newScripted(results ...bool) *scriptedChecker {
	return &scriptedChecker{results: results, panicAt: -1}
}

func (s *scriptedChecker) Name() string { return "scripted" }

func (s *scriptedChecker) CheckOnce(ctx context.Context) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i == s.panicAt {
		panic("probe exploded")
	}
	if len(s.results) == 0 {
		return false, 0, &ProbeError{Checker: s.Name(), Err: errors.New("no script")}
	}
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	if !s.results[i] {
		return false, time.Millisecond, &ProbeError{Checker: s.Name(), Err: errors.New("scripted failure")}
	}
	return true, time.Millisecond, nil
}

func (s *scriptedChecker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type staticResolver struct {
	addrs []string
	err   error
}

func (r staticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return r.addrs, r.err
}
