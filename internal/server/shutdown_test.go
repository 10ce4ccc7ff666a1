package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultShutdownConfig(t *testing.T) {
	cfg := DefaultShutdownConfig()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Timeout)
	}
	if len(cfg.Signals) != 2 {
		t.Errorf("Expected 2 signals, got %d", len(cfg.Signals))
	}
}

func TestNewShutdownHandler_NilConfigUsesDefaults(t *testing.T) {
	h := NewShutdownHandler(nil)
	if h.timeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %v", h.timeout)
	}

	h = NewShutdownHandler(&ShutdownConfig{Timeout: 10 * time.Second})
	if h.timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", h.timeout)
	}
}

func TestShutdownHandler_HooksSortedByPriority(t *testing.T) {
	h := NewShutdownHandler(nil)

	noop := func(ctx context.Context) error { return nil }
	h.RegisterHook("low", 100, noop)
	h.RegisterHook("high", 10, noop)
	h.RegisterHook("mid", 50, noop)

	want := []string{"high", "mid", "low"}
	for i, name := range want {
		if h.hooks[i].Name != name {
			t.Errorf("Expected %s at position %d, got %s", name, i, h.hooks[i].Name)
		}
	}
}

func TestShutdownHandler_RunsHooksInOrder(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 5 * time.Second})

	var order []int
	h.RegisterHook("third", 30, func(ctx context.Context) error {
		order = append(order, 3)
		return nil
	})
	h.RegisterHook("first", 10, func(ctx context.Context) error {
		order = append(order, 1)
		return nil
	})
	h.RegisterHook("second", 20, func(ctx context.Context) error {
		order = append(order, 2)
		return nil
	})

	h.Start()
	h.Shutdown()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown timed out")
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("Expected order [1 2 3], got %v", order)
	}
}

func TestShutdownHandler_FailingHookDoesNotAbort(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 5 * time.Second})

	var called bool
	h.RegisterHook("failing", 10, func(ctx context.Context) error {
		return errors.New("hook failed")
	})
	h.RegisterHook("after", 20, func(ctx context.Context) error {
		called = true
		return nil
	})

	h.Start()
	h.Shutdown()
	h.Wait()

	if !called {
		t.Error("Expected later hook to run despite earlier failure")
	}
}

func TestShutdownHandler_WaitWithTimeout(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 5 * time.Second})
	h.RegisterHook("quick", 10, func(ctx context.Context) error { return nil })

	h.Start()
	h.Shutdown()

	if !h.WaitWithTimeout(2 * time.Second) {
		t.Error("Expected wait to succeed")
	}
}

func TestShutdownHandler_WaitWithTimeout_SlowHook(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 10 * time.Second})
	h.RegisterHook("slow", 10, func(ctx context.Context) error {
		time.Sleep(5 * time.Second)
		return nil
	})

	h.Start()
	go h.Shutdown()

	if h.WaitWithTimeout(100 * time.Millisecond) {
		t.Error("Expected wait to time out")
	}
}

func TestShutdownHandler_DoubleStart(t *testing.T) {
	h := NewShutdownHandler(nil)

	h.Start()
	h.Start()

	if !h.started {
		t.Error("Expected started after Start")
	}
}

func TestShutdownHandler_ShutdownBeforeStart(t *testing.T) {
	h := NewShutdownHandler(nil)
	h.Shutdown() // must not panic or block
}

func TestHTTPServerShutdownHook(t *testing.T) {
	called := false
	hook := HTTPServerShutdownHook("dashboard", func(ctx context.Context) error {
		called = true
		return nil
	})

	if hook.Name != "dashboard" {
		t.Errorf("Expected name dashboard, got %s", hook.Name)
	}
	if hook.Priority != 10 {
		t.Errorf("Expected priority 10, got %d", hook.Priority)
	}

	hook.Fn(context.Background())
	if !called {
		t.Error("Expected shutdown function to be called")
	}
}

func TestDatabaseShutdownHook(t *testing.T) {
	closed := false
	hook := DatabaseShutdownHook(func() {
		closed = true
	})

	if hook.Name != "database" {
		t.Errorf("Expected name database, got %s", hook.Name)
	}
	if hook.Priority != 90 {
		t.Errorf("Expected priority 90, got %d", hook.Priority)
	}

	hook.Fn(context.Background())
	if !closed {
		t.Error("Expected pool to be closed")
	}
}

func TestTracingShutdownHook(t *testing.T) {
	flushed := false
	hook := TracingShutdownHook(func(ctx context.Context) error {
		flushed = true
		return nil
	})

	if hook.Name != "tracing" {
		t.Errorf("Expected name tracing, got %s", hook.Name)
	}

	hook.Fn(context.Background())
	if !flushed {
		t.Error("Expected exporter to be flushed")
	}
}

func TestNewGracefulServer(t *testing.T) {
	g := NewGracefulServer(nil, nil)
	if g.Health == nil {
		t.Error("Expected health server")
	}
	if g.Shutdown == nil {
		t.Error("Expected shutdown handler")
	}
	// The health server registers its own drain hook.
	if len(g.Shutdown.hooks) != 1 {
		t.Errorf("Expected 1 builtin hook, got %d", len(g.Shutdown.hooks))
	}
}

func TestGracefulServer_RegisterHook(t *testing.T) {
	g := NewGracefulServer(nil, nil)
	g.RegisterHook("test", 50, func(ctx context.Context) error { return nil })

	if len(g.Shutdown.hooks) != 2 {
		t.Errorf("Expected 2 hooks, got %d", len(g.Shutdown.hooks))
	}
}
