package pool

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

var noDeadline = time.Time{}

// Conn is one full-duplex octet stream (the Byte Transport layer): a frontend's
// single connection to a backend process, plus the bookkeeping the rest of the
// driver pins to it (backend key, init state, last-used time, adapter data).
//
// A Conn is not safe for concurrent use: the protocol it carries is a strictly
// ordered request/response exchange, so callers must serialize access (see
// WithReader/WithWriter).
type Conn struct {
	netConn net.Conn

	Reader *BufReader
	Writer *WriteBuffer

	Inited   bool
	InitedAt time.Time
	usedAt   atomic.Value

	ProcessID int32
	SecretKey int32

	TxStatus byte

	// UserData lets the adapter layer pin its own per-connection state (the
	// protocol lifecycle machine, the prepared-statement cache) to a Conn
	// across Get/Put cycles, without this package needing to know their
	// types (internal/protocol already imports internal/pool, so the
	// reverse import would cycle).
	UserData interface{}

	_lastID int64
}

func NewConn(netConn net.Conn) *Conn {
	cn := &Conn{
		Writer: NewWriteBuffer(),
	}
	cn.Reader = NewBufReader(netConn)
	cn.SetNetConn(netConn)
	cn.SetUsedAt(time.Now())
	return cn
}

func (cn *Conn) UsedAt() time.Time {
	return cn.usedAt.Load().(time.Time)
}

func (cn *Conn) SetUsedAt(tm time.Time) {
	cn.usedAt.Store(tm)
}

func (cn *Conn) IsStale(timeout time.Duration) bool {
	return timeout > 0 && time.Since(cn.UsedAt()) > timeout
}

func (cn *Conn) SetNetConn(netConn net.Conn) {
	cn.netConn = netConn
	cn.Reader.Reset(netConn)
}

func (cn *Conn) NetConn() net.Conn {
	return cn.netConn
}

// EnableTLS swaps the underlying net.Conn for a TLS client conn. Callers must
// have already completed the SSLRequest/'S' handshake byte before calling this.
func (cn *Conn) EnableTLS(conf *tls.Config) {
	cn.SetNetConn(tls.Client(cn.netConn, conf))
}

// NextID returns a connection-local, monotonically increasing identifier used
// to name unnamed portals and server-side prepared statements deterministically.
func (cn *Conn) NextID() string {
	cn._lastID++
	return strconv.FormatInt(cn._lastID, 10)
}

func (cn *Conn) setTimeout(rt, wt time.Duration) {
	now := time.Now()
	cn.SetUsedAt(now)
	if rt > 0 {
		_ = cn.netConn.SetReadDeadline(now.Add(rt))
	} else {
		_ = cn.netConn.SetReadDeadline(noDeadline)
	}
	if wt > 0 {
		_ = cn.netConn.SetWriteDeadline(now.Add(wt))
	} else {
		_ = cn.netConn.SetWriteDeadline(noDeadline)
	}
}

// WithReader serializes the scoped deadline and hands the buffered reader to fn.
// A ctx with a deadline further tightens the socket read deadline.
func (cn *Conn) WithReader(ctx context.Context, timeout time.Duration, fn func(rd *BufReader) error) error {
	cn.setTimeout(deadlineFrom(ctx, timeout), 0)
	return fn(cn.Reader)
}

// WithWriter serializes the scoped deadline, hands the write buffer to fn, and
// flushes it once if fn succeeds; if fn fails, the buffered bytes are
// discarded without being written.
func (cn *Conn) WithWriter(ctx context.Context, timeout time.Duration, fn func(wb *WriteBuffer) error) error {
	cn.setTimeout(0, deadlineFrom(ctx, timeout))

	if err := fn(cn.Writer); err != nil {
		cn.Writer.Reset()
		return err
	}

	return cn.flush()
}

func deadlineFrom(ctx context.Context, timeout time.Duration) time.Duration {
	if ctx != nil {
		if dl, ok := ctx.Deadline(); ok {
			if d := time.Until(dl); timeout == 0 || d < timeout {
				return d
			}
		}
	}
	return timeout
}

func (cn *Conn) flush() error {
	_, err := cn.netConn.Write(cn.Writer.Bytes)
	cn.Writer.Reset()
	return err
}

func (cn *Conn) Close() error {
	return cn.netConn.Close()
}

// CheckHealth refuses to return a connection with unread bytes buffered: that
// can only mean a previous protocol exchange was abandoned mid-message.
func (cn *Conn) CheckHealth() error {
	if n := cn.Reader.Buffered(); n != 0 {
		return fmt.Errorf("pgwire: connection has %d unread bytes", n)
	}
	return nil
}
