package copyproto

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
)

// discardConn is a net.Conn that records everything written to it, modeled
// on the teacher's base_test.go mockConn used to assert on wire bytes
// without a real server.
type discardConn struct {
	written bytes.Buffer
}

func (c *discardConn) Read(b []byte) (int, error)       { return 0, nil }
func (c *discardConn) Write(b []byte) (int, error)      { return c.written.Write(b) }
func (c *discardConn) Close() error                     { return nil }
func (c *discardConn) LocalAddr() net.Addr              { return nil }
func (c *discardConn) RemoteAddr() net.Addr             { return nil }
func (c *discardConn) SetDeadline(t time.Time) error    { return nil }
func (c *discardConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *discardConn) SetWriteDeadline(t time.Time) error { return nil }

func newTestConn() (*pool.Conn, *discardConn) {
	nc := &discardConn{}
	return pool.NewConn(nc), nc
}

// TestCopyInRoundTrip covers the client side of §8's COPY round-trip
// scenario: a row written through WriteRow is accepted, and EndCopy latches
// the session inactive afterward.
func TestCopyInRoundTrip(t *testing.T) {
	cn, _ := newTestConn()
	sess := NewCopyIn(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatText})

	if !sess.IsActive() {
		t.Fatal("new session should be active")
	}

	row := []byte("1\tfoo\n")
	if err := sess.WriteRow(context.Background(), row); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}

	if err := sess.EndCopy(context.Background()); err != nil {
		t.Fatalf("EndCopy: %v", err)
	}
	if sess.IsActive() {
		t.Error("session should be inactive after EndCopy")
	}
}

func TestCopyInLatchIsOneWay(t *testing.T) {
	cn, _ := newTestConn()
	sess := NewCopyIn(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatText})

	if err := sess.EndCopy(context.Background()); err != nil {
		t.Fatalf("EndCopy: %v", err)
	}

	if err := sess.EndCopy(context.Background()); err != ErrNotActive {
		t.Errorf("second EndCopy = %v, want ErrNotActive", err)
	}
	if _, err := sess.WriteToCopy(context.Background(), []byte("x")); err != ErrNotActive {
		t.Errorf("WriteToCopy after EndCopy = %v, want ErrNotActive", err)
	}
	if err := sess.CancelCopy(context.Background(), "too late"); err != ErrNotActive {
		t.Errorf("CancelCopy after EndCopy = %v, want ErrNotActive", err)
	}
}

func TestCopyInCancelRejectsCopyOut(t *testing.T) {
	cn, _ := newTestConn()
	sess := NewCopyOut(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatText})

	if err := sess.CancelCopy(context.Background(), "reason"); err == nil {
		t.Error("CancelCopy on a COPY OUT session should fail")
	}
	if _, err := sess.WriteToCopy(context.Background(), []byte("x")); err == nil {
		t.Error("WriteToCopy on a COPY OUT session should fail")
	}
}

// TestCopyOutReadFromCopy covers the pull facade's EOF signal: done=true
// latches the session inactive and returns nil, nil.
func TestCopyOutReadFromCopy(t *testing.T) {
	cn, _ := newTestConn()
	sess := NewCopyOut(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatText})

	data, err := sess.ReadFromCopy([]byte("row one\n"), false)
	if err != nil {
		t.Fatalf("ReadFromCopy: %v", err)
	}
	if string(data) != "row one\n" {
		t.Errorf("ReadFromCopy = %q", data)
	}

	data, err = sess.ReadFromCopy(nil, true)
	if err != nil {
		t.Fatalf("ReadFromCopy(done): %v", err)
	}
	if data != nil {
		t.Errorf("ReadFromCopy(done) = %v, want nil", data)
	}
	if sess.IsActive() {
		t.Error("session should be inactive after done")
	}
}

func TestWriteToCopyFlushesAtThreshold(t *testing.T) {
	cn, nc := newTestConn()
	sess := NewCopyIn(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatText})

	chunk := bytes.Repeat([]byte{'x'}, flushThreshold)
	if _, err := sess.WriteToCopy(context.Background(), chunk); err != nil {
		t.Fatalf("WriteToCopy: %v", err)
	}
	if nc.written.Len() == 0 {
		t.Error("expected a CopyData message to have been flushed to the wire")
	}
}

func TestDebugDump(t *testing.T) {
	cn, _ := newTestConn()
	sess := NewCopyOut(cn, &protocol.CopyResponse{OverallFormat: protocol.FormatBinary})

	s, err := sess.DebugDump([][]byte{[]byte("a"), []byte("b")})
	if err != nil {
		t.Fatalf("DebugDump: %v", err)
	}
	if s == "" {
		t.Error("DebugDump returned empty string")
	}
}
