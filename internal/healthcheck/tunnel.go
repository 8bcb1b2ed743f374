package healthcheck

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
	"github.com/jerkytreats/nwwatchdog/internal/system"
)

// Resolver looks up the addresses of the tunnel host.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// TunnelChecker passes when an established TCP session to host:port exists,
// as reported by `ss`.
type TunnelChecker struct {
	host     string
	port     int
	timeout  time.Duration
	exec     system.CommandExecutor
	resolver Resolver
}

// NewTunnelChecker constructs a TunnelChecker. A nil executor or resolver
// selects the OS implementation.
func NewTunnelChecker(host string, port int, timeout time.Duration, exec system.CommandExecutor, resolver Resolver) *TunnelChecker {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &TunnelChecker{
		host:     host,
		port:     port,
		timeout:  timeout,
		exec:     exec,
		resolver: resolver,
	}
}

func (tc *TunnelChecker) Name() string { return "reverse-tunnel" }

// Target returns host:port for log messages.
func (tc *TunnelChecker) Target() string {
	return net.JoinHostPort(tc.host, strconv.Itoa(tc.port))
}

// CheckOnce resolves the tunnel host and looks for an established session to it.
func (tc *TunnelChecker) CheckOnce(ctx context.Context) (bool, time.Duration, error) {
	start := time.Now()

	if tc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tc.timeout)
		defer cancel()
	}

	addrs, err := tc.resolver.LookupHost(ctx, tc.host)
	if err != nil {
		return false, time.Since(start), &ProbeError{Checker: tc.Name(), Err: fmt.Errorf("resolve %s: %w", tc.host, err)}
	}
	if len(addrs) == 0 {
		return false, time.Since(start), &ProbeError{Checker: tc.Name(), Err: fmt.Errorf("resolve %s: no addresses", tc.host)}
	}

	out, err := tc.exec.Execute(ctx, "ss", "-t", "-n", "state", "established")
	if err != nil {
		return false, time.Since(start), &ProbeError{Checker: tc.Name(), Err: fmt.Errorf("ss: %w", err)}
	}

	want := make(map[string]bool, len(addrs))
	for _, addr := range addrs {
		want[net.JoinHostPort(addr, strconv.Itoa(tc.port))] = true
	}

	logging.Debug("checking for established session to %s (%s)", tc.Target(), strings.Join(addrs, ","))

	if hasSession(string(out), want) {
		return true, time.Since(start), nil
	}
	return false, time.Since(start), &ProbeError{Checker: tc.Name(), Err: fmt.Errorf("no established session to %s", tc.Target())}
}

// hasSession scans ss output for a peer column equal to one of the wanted endpoints.
func hasSession(output string, want map[string]bool) bool {
	for _, line := range strings.Split(output, "\n") {
		for _, field := range strings.Fields(line) {
			if want[field] {
				return true
			}
		}
	}
	return false
}
