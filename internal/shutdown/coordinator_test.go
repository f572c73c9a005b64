package shutdown

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hopecommon/cs3611-email-sub000/internal/logging"
)

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&logging.LogConfig{Level: logging.ERROR, Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("NewLogger error: %v", err)
	}
	return logger
}

type fakeSession struct {
	closed chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{closed: make(chan struct{})}
}

func (f *fakeSession) CloseForShutdown(ctx context.Context) error {
	close(f.closed)
	return nil
}

func TestShutdownWithNoSessionsReturnsImmediately(t *testing.T) {
	c := New(testLogger(t))
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	c := New(testLogger(t))
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() error: %v", err)
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestShutdownClosesListeners(t *testing.T) {
	c := New(testLogger(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen error: %v", err)
	}
	c.AddListener(ln)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if _, err := net.Dial("tcp", ln.Addr().String()); err == nil {
		t.Error("listener still accepting connections after Shutdown")
	}
}

func TestShutdownNotifiesAndWaitsForSessions(t *testing.T) {
	c := New(testLogger(t))
	sess := newFakeSession()
	c.RegisterSession(sess)

	if got := c.ActiveSessionCount(); got != 1 {
		t.Fatalf("ActiveSessionCount() = %d, want 1", got)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Shutdown(context.Background())
	}()

	select {
	case <-sess.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("CloseForShutdown was never called")
	}

	c.UnregisterSession(sess)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Shutdown() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after session was unregistered")
	}
}

func TestShutdownRespectsContextDeadline(t *testing.T) {
	c := New(testLogger(t))
	sess := newFakeSession()
	c.RegisterSession(sess)
	// Deliberately never unregister: Shutdown must give up at the deadline
	// rather than block forever.

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Shutdown(ctx)
	if err == nil {
		t.Error("Shutdown() error = nil, want context deadline error")
	}
}

func TestRegisterUnregisterSessionTracksCount(t *testing.T) {
	c := New(testLogger(t))
	a := newFakeSession()
	b := newFakeSession()

	c.RegisterSession(a)
	c.RegisterSession(b)
	if got := c.ActiveSessionCount(); got != 2 {
		t.Fatalf("ActiveSessionCount() = %d, want 2", got)
	}

	c.UnregisterSession(a)
	if got := c.ActiveSessionCount(); got != 1 {
		t.Fatalf("ActiveSessionCount() after one unregister = %d, want 1", got)
	}

	// Unregistering twice must not panic or double-decrement the wait group.
	c.UnregisterSession(a)
	if got := c.ActiveSessionCount(); got != 1 {
		t.Fatalf("ActiveSessionCount() after duplicate unregister = %d, want 1", got)
	}

	c.UnregisterSession(b)
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

func TestRemoveListenerBeforeShutdown(t *testing.T) {
	c := New(testLogger(t))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen error: %v", err)
	}
	c.AddListener(ln)
	c.RemoveListener(ln)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	// The coordinator no longer owns ln, so it must still be open.
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Errorf("listener closed even though it was removed: %v", err)
	} else {
		conn.Close()
	}
	ln.Close()
}

func TestIsShuttingDown(t *testing.T) {
	c := New(testLogger(t))
	if c.IsShuttingDown() {
		t.Error("IsShuttingDown() = true before Shutdown, want false")
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if !c.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after Shutdown, want true")
	}
}
