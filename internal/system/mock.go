package system

import (
	"context"
	"strings"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses. Lookup tries the full
	// command line, then "command arg1", then "command".
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// Hook, if set, runs instead of the response table.
	Hook func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// MockCommand records an executed command.
type MockCommand struct {
	Name string
	Args []string
}

// Line renders the command as a single space-separated string.
func (c MockCommand) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse adds a response for a specific command pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	cmd := MockCommand{Name: name, Args: append([]string(nil), args...)}
	m.Commands = append(m.Commands, cmd)
	hook := m.Hook
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, name, args...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := []string{cmd.Line()}
	if len(args) > 0 {
		keys = append(keys, name+" "+args[0])
	}
	keys = append(keys, name)

	for _, key := range keys {
		if resp, ok := m.Responses[key]; ok {
			return resp.Output, resp.Err
		}
	}
	return m.DefaultResponse.Output, m.DefaultResponse.Err
}

// Lines returns every executed command line in order.
func (m *MockExecutor) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		out = append(out, c.Line())
	}
	return out
}
