// Package netutil holds the connection-acceptance helpers shared by the
// SMTP and POP3 listeners: the bounded connection limiter and per-socket
// keepalive/timeout setup.
package netutil

import "sync/atomic"

// ConnectionLimiter enforces max_connections with a lock-free CAS loop.
type ConnectionLimiter struct {
	maxConnections int64
	current        atomic.Int64
}

// NewConnectionLimiter creates a limiter admitting at most max concurrent
// connections.
func NewConnectionLimiter(max int) *ConnectionLimiter {
	return &ConnectionLimiter{maxConnections: int64(max)}
}

// TryAcquire attempts to claim a connection slot. It returns false once the
// limiter is at capacity, at which point the caller should reject the
// connection (421/-ERR) rather than block.
func (l *ConnectionLimiter) TryAcquire() bool {
	for {
		current := l.current.Load()
		if current >= l.maxConnections {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a previously acquired slot. Callers pair every successful
// TryAcquire with exactly one Release; the count is decremented
// unconditionally, so a Release without a prior successful TryAcquire
// leaves it one lower than the connections actually held.
func (l *ConnectionLimiter) Release() {
	l.current.Add(-1)
}

// Current reports the number of connections presently occupying a slot.
func (l *ConnectionLimiter) Current() int64 {
	return l.current.Load()
}

// Max reports the configured capacity.
func (l *ConnectionLimiter) Max() int64 {
	return l.maxConnections
}
