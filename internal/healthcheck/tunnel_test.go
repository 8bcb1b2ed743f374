package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerkytreats/nwwatchdog/internal/system"
)

const ssOutput = `Recv-Q Send-Q Local Address:Port   Peer Address:Port Process
0      0      10.31.81.1:44318      192.0.2.10:20022
0      0      10.31.81.1:53012      192.0.2.10:443
`

func TestTunnelCheckerEstablished(t *testing.T) {
	mock := system.NewMockExecutor()
	mock.AddResponse("ss -t -n state established", []byte(ssOutput), nil)

	tc := NewTunnelChecker("beehive.example.org", 20022, time.Second, mock, staticResolver{addrs: []string{"192.0.2.10"}})

	ok, _, err := tc.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "reverse-tunnel", tc.Name())
	assert.Equal(t, "beehive.example.org:20022", tc.Target())
	require.Len(t, mock.Commands, 1)
	assert.Equal(t, "ss -t -n state established", mock.Commands[0].Line())
}

func TestTunnelCheckerNoSession(t *testing.T) {
	mock := system.NewMockExecutor()
	mock.AddResponse("ss", []byte(ssOutput), nil)

	// port 2002 must not match 20022
	tc := NewTunnelChecker("beehive.example.org", 2002, time.Second, mock, staticResolver{addrs: []string{"192.0.2.10"}})

	ok, _, err := tc.CheckOnce(context.Background())
	assert.False(t, ok)
	var pe *ProbeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "reverse-tunnel", pe.Checker)
}

func TestTunnelCheckerIPv6(t *testing.T) {
	mock := system.NewMockExecutor()
	mock.AddResponse("ss", []byte("0 0 [fd00::2]:40000 [fd00::1]:20022\n"), nil)

	tc := NewTunnelChecker("beehive.example.org", 20022, time.Second, mock, staticResolver{addrs: []string{"fd00::1"}})

	ok, _, err := tc.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTunnelCheckerFailures(t *testing.T) {
	tests := []struct {
		name     string
		resolver staticResolver
		ssErr    error
		wantMsg  string
	}{
		{
			name:     "resolve error",
			resolver: staticResolver{err: errors.New("no such host")},
			wantMsg:  "resolve",
		},
		{
			name:     "no addresses",
			resolver: staticResolver{},
			wantMsg:  "no addresses",
		},
		{
			name:     "ss missing",
			resolver: staticResolver{addrs: []string{"192.0.2.10"}},
			ssErr:    errors.New("executable file not found"),
			wantMsg:  "ss:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := system.NewMockExecutor()
			mock.AddResponse("ss", nil, tt.ssErr)

			tc := NewTunnelChecker("beehive.example.org", 20022, time.Second, mock, tt.resolver)
			ok, _, err := tc.CheckOnce(context.Background())
			assert.False(t, ok)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAggregate(t *testing.T) {
	results, healthy := Aggregate(context.Background(), newScripted(true), newScripted(true))
	assert.True(t, healthy)
	assert.Len(t, results, 1) // same name collapses

	results, healthy = Aggregate(context.Background(), newScripted(false))
	assert.False(t, healthy)
	assert.Error(t, results["scripted"].Error)

	_, healthy = Aggregate(context.Background())
	assert.False(t, healthy)
}
