package netutil

import (
	"net"
	"time"
)

// ConfigureKeepAlive enables TCP keepalive on conn with the given period, if
// conn is a *net.TCPConn. Non-TCP connections (used by tests with net.Pipe)
// are left untouched.
func ConfigureKeepAlive(conn net.Conn, period time.Duration) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(period)
}

// DeadlineConn wraps the read/write deadline calls a session needs without
// forcing callers to juggle time.Time zero values directly.
type DeadlineConn struct {
	net.Conn
	IdleTimeout time.Duration
}

// Touch resets the read deadline to now+IdleTimeout. Call it before each
// blocking read so a silent client is evicted after IdleTimeout of
// inactivity rather than hanging the connection slot forever.
func (d *DeadlineConn) Touch() error {
	if d.IdleTimeout <= 0 {
		return nil
	}
	return d.SetReadDeadline(time.Now().Add(d.IdleTimeout))
}
