// Package copyproto implements the COPY sub-protocol (§4.6): the
// CopyInResponse/CopyOutResponse/CopyData/CopyDone/CopyFail exchange that
// takes over a connection for bulk row transfer once the server replies to
// a COPY statement with a CopyResponse instead of the usual result flow.
package copyproto

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
	"github.com/vmihailenco/msgpack/v5"
)

// flushThreshold is the default byte-sink chunking size: bytes written via
// the Writer facade accumulate locally and are flushed as one CopyData
// message once this many bytes are buffered, to avoid a wire round trip per
// small Write call.
const flushThreshold = 1000

// ErrNotActive is returned by any Session method once the session has ended
// (via EndCopy/CancelCopy or a server-initiated CopyDone/ErrorResponse),
// matching the "ObjectNotInState after end" one-way latch the COPY facades
// enforce.
var ErrNotActive = fmt.Errorf("pgwire: copy session is not active")

// Session drives one COPY IN or COPY OUT exchange over a single Conn. It is
// created once the adapter has observed CopyInResponse/CopyOutResponse and
// is discarded once CopyDone/CopyFail/an error ends the exchange; a new
// COPY requires a new Session.
type Session struct {
	conn   *pool.Conn
	in     bool // true for COPY IN (client -> server), false for COPY OUT
	active bool

	format  protocol.FormatCode
	colFmts []protocol.FormatCode

	writeBuf bytes.Buffer
}

func newSession(conn *pool.Conn, in bool, resp *protocol.CopyResponse) *Session {
	return &Session{
		conn:    conn,
		in:      in,
		active:  true,
		format:  resp.OverallFormat,
		colFmts: resp.ColumnFormats,
	}
}

// NewCopyIn wraps a Conn already past CopyInResponse.
func NewCopyIn(conn *pool.Conn, resp *protocol.CopyResponse) *Session {
	return newSession(conn, true, resp)
}

// NewCopyOut wraps a Conn already past CopyOutResponse.
func NewCopyOut(conn *pool.Conn, resp *protocol.CopyResponse) *Session {
	return newSession(conn, false, resp)
}

// IsActive is a one-way latch: once EndCopy/CancelCopy has been called (or
// the server closed out the COPY), it never returns true again for this
// Session, even if the underlying connection goes on to start a new COPY.
func (s *Session) IsActive() bool {
	return s.active
}

// WriteToCopy appends p to the pending outbound chunk, flushing a CopyData
// message once flushThreshold bytes have accumulated. Only valid for a COPY
// IN session.
func (s *Session) WriteToCopy(ctx context.Context, p []byte) (int, error) {
	if !s.active {
		return 0, ErrNotActive
	}
	if !s.in {
		return 0, fmt.Errorf("pgwire: WriteToCopy called on a COPY OUT session")
	}

	s.writeBuf.Write(p)
	for s.writeBuf.Len() >= flushThreshold {
		if err := s.flushChunk(ctx, flushThreshold); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// WriteRow writes one already-formatted COPY row (the caller encodes the
// row in the negotiated text or binary tuple format) immediately as its own
// CopyData message, for the row-at-a-time facade.
func (s *Session) WriteRow(ctx context.Context, row []byte) error {
	if !s.active {
		return ErrNotActive
	}
	if !s.in {
		return fmt.Errorf("pgwire: WriteRow called on a COPY OUT session")
	}
	return s.sendChunk(ctx, row)
}

func (s *Session) flushChunk(ctx context.Context, n int) error {
	chunk := make([]byte, n)
	if _, err := s.writeBuf.Read(chunk); err != nil {
		return err
	}
	return s.sendChunk(ctx, chunk)
}

func (s *Session) sendChunk(ctx context.Context, chunk []byte) error {
	return s.conn.WithWriter(ctx, 0, func(wb *pool.WriteBuffer) error {
		protocol.WriteCopyData(wb, chunk)
		return nil
	})
}

// EndCopy flushes any buffered bytes, sends CopyDone, and latches the
// session inactive. Calling it on an already-ended session returns
// ErrNotActive, matching the pgjdbc facades' "can't re-end" behavior.
func (s *Session) EndCopy(ctx context.Context) error {
	if !s.active {
		return ErrNotActive
	}
	if s.in && s.writeBuf.Len() > 0 {
		if err := s.flushChunk(ctx, s.writeBuf.Len()); err != nil {
			s.active = false
			return err
		}
	}
	s.active = false
	return s.conn.WithWriter(ctx, 0, func(wb *pool.WriteBuffer) error {
		protocol.WriteCopyDone(wb)
		return nil
	})
}

// CancelCopy sends CopyFail with reason, aborting a COPY IN session. It is
// an error to call this on a COPY OUT session or a session that has already
// ended (pgjdbc's CopyTest exercises exactly this misuse path).
func (s *Session) CancelCopy(ctx context.Context, reason string) error {
	if !s.active {
		return ErrNotActive
	}
	if !s.in {
		return fmt.Errorf("pgwire: CancelCopy called on a COPY OUT session")
	}
	s.active = false
	return s.conn.WithWriter(ctx, 0, func(wb *pool.WriteBuffer) error {
		protocol.WriteCopyFail(wb, reason)
		return nil
	})
}

// ReadFromCopy returns the next row of server-sent COPY data, or nil once
// CopyDone has been observed (the pull facade's EOF signal). The caller
// (the adapter's connection loop) is responsible for having already read
// the CopyData/CopyDone message and handing this Session just the payload;
// this package does not itself own the read loop since that loop is shared
// with the rest of the protocol state machine.
func (s *Session) ReadFromCopy(data []byte, done bool) ([]byte, error) {
	if !s.active {
		return nil, ErrNotActive
	}
	if s.in {
		return nil, fmt.Errorf("pgwire: ReadFromCopy called on a COPY IN session")
	}
	if done {
		s.active = false
		return nil, nil
	}
	return data, nil
}

// DebugDump renders one in-flight binary-format COPY tuple (already split
// into per-column byte slices) as msgpack, for diagnostic logging only:
// the wire format itself is never msgpack, this exists purely so a log
// line can show a compact, structured view of a row without hex-dumping
// raw bytes.
func (s *Session) DebugDump(columns [][]byte) (string, error) {
	b, err := msgpack.Marshal(columns)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
