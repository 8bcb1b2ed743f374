package system

import (
	"context"
	"errors"
	"testing"
)

func TestMockExecutor_ResponseLookup(t *testing.T) {
	m := NewMockExecutor()
	m.AddResponse("ss -t state established", []byte("full"), nil)
	m.AddResponse("systemctl restart", []byte("prefix"), nil)
	m.AddResponse("systemctl", nil, errors.New("generic"))
	m.DefaultResponse = MockResponse{Output: []byte("default")}

	ctx := context.Background()

	out, _ := m.Execute(ctx, "ss", "-t", "state", "established")
	if string(out) != "full" {
		t.Errorf("full match = %q, want %q", out, "full")
	}

	out, _ = m.Execute(ctx, "systemctl", "restart", "NetworkManager")
	if string(out) != "prefix" {
		t.Errorf("prefix match = %q, want %q", out, "prefix")
	}

	if _, err := m.Execute(ctx, "systemctl", "--force", "reboot"); err == nil || err.Error() != "generic" {
		t.Errorf("name match err = %v, want generic", err)
	}

	out, _ = m.Execute(ctx, "chown", "root:root")
	if string(out) != "default" {
		t.Errorf("default = %q, want %q", out, "default")
	}

	lines := m.Lines()
	if len(lines) != 4 || lines[1] != "systemctl restart NetworkManager" {
		t.Errorf("Lines() = %v", lines)
	}
}

func TestMockExecutor_CancelledContext(t *testing.T) {
	m := NewMockExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Execute(ctx, "ss"); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute on cancelled ctx err = %v, want context.Canceled", err)
	}
	if len(m.Commands) != 1 {
		t.Errorf("expected command to be recorded, got %d", len(m.Commands))
	}
}

func TestMockExecutor_Hook(t *testing.T) {
	m := NewMockExecutor()
	m.Hook = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(name), nil
	}

	out, err := m.Execute(context.Background(), "hooked")
	if err != nil || string(out) != "hooked" {
		t.Errorf("hook result = %q, %v", out, err)
	}
}

func TestDefaultExecutor_RunsCommand(t *testing.T) {
	out, err := DefaultExecutor().Execute(context.Background(), "echo", "ok")
	if err != nil {
		t.Skipf("echo not available: %v", err)
	}
	if string(out) != "ok\n" {
		t.Errorf("echo output = %q", out)
	}
}
