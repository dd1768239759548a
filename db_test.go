package pgwire

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
)

// mockConn records the first write's CancelRequest code, mirroring the
// teacher's base_test.go mockConn used to assert on cancellation bytes
// without a real server.
type mockConn struct {
	mu         sync.Mutex
	cancelCode int32
}

func (m *mockConn) Read(b []byte) (int, error) { return 0, nil }

func (m *mockConn) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(b) >= 8 {
		m.cancelCode = int32(binary.BigEndian.Uint32(b[4:8]))
	}
	return len(b), nil
}

func (m *mockConn) lastCancelCode() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCode
}

func (m *mockConn) Close() error                       { return nil }
func (m *mockConn) LocalAddr() net.Addr                { return nil }
func (m *mockConn) RemoteAddr() net.Addr               { return nil }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

// mockPooler is a minimal pool.Pooler, grounded on base_test.go's
// mockPooler: Get hands back an already-Inited connection so getConn skips
// the real startup handshake, and NewConn (used only by cancelRequest)
// hands back a connection whose writes we can inspect.
type mockPooler struct {
	cancelConn *mockConn
	removed    bool
	put        bool
}

func (p *mockPooler) NewConn(ctx context.Context) (*pool.Conn, error) {
	p.cancelConn = &mockConn{}
	cn := pool.NewConn(p.cancelConn)
	return cn, nil
}

func (p *mockPooler) CloseConn(cn *pool.Conn) error { return nil }

func (p *mockPooler) Get(ctx context.Context) (*pool.Conn, error) {
	cn := pool.NewConn(&mockConn{})
	cn.Inited = true
	cn.ProcessID = 123
	cn.SecretKey = 234
	return cn, nil
}

func (p *mockPooler) Put(cn *pool.Conn) { p.put = true }

func (p *mockPooler) Remove(cn *pool.Conn, err error) { p.removed = true }

func (p *mockPooler) Len() int           { return 1 }
func (p *mockPooler) FreeLen() int       { return 1 }
func (p *mockPooler) Stats() *pool.Stats { return nil }
func (p *mockPooler) Close() error       { return nil }
func (p *mockPooler) Closed() bool       { return false }

// TestWithConnCancelsOnContextDone covers §4.5's cancellation model: when
// ctx is done before fn returns, withConn sends CancelRequest on a brand
// new transport (never the connection running fn) and removes that
// connection from the pool rather than returning it healthy.
func TestWithConnCancelsOnContextDone(t *testing.T) {
	mp := &mockPooler{}
	db := &DB{opt: &Config{WriteTimeout: time.Second}, pool: mp}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := make(chan struct{})
	err := db.withConn(ctx, func(ctx context.Context, c *Conn) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return &protocol.ServerError{Fields: map[byte]string{protocol.FieldSeverity: "FATAL", protocol.FieldCode: "57014"}}
	})
	if err == nil {
		t.Fatal("expected fn's error to propagate")
	}

	<-started
	if mp.cancelConn == nil {
		t.Fatal("expected a throwaway connection to have been dialed for CancelRequest")
	}
	if got := mp.cancelConn.lastCancelCode(); got != protocol.CancelRequestCode {
		t.Errorf("cancel request code = %d, want %d", got, protocol.CancelRequestCode)
	}
	if !mp.removed {
		t.Error("expected the connection to be removed from the pool after a FATAL error")
	}
}

func TestShouldRetry(t *testing.T) {
	db := &DB{opt: &Config{RetryStatementTimeout: false}}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"serialization failure", &protocol.ServerError{Fields: map[byte]string{protocol.FieldCode: "40001"}}, true},
		{"too many connections", &protocol.ServerError{Fields: map[byte]string{protocol.FieldCode: "53300"}}, true},
		{"statement timeout, retry disabled", &protocol.ServerError{Fields: map[byte]string{protocol.FieldCode: "57014"}}, false},
		{"syntax error", &protocol.ServerError{Fields: map[byte]string{protocol.FieldCode: "42601"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := db.shouldRetry(tt.err); got != tt.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestShouldRetryStatementTimeoutWhenEnabled(t *testing.T) {
	db := &DB{opt: &Config{RetryStatementTimeout: true}}
	err := &protocol.ServerError{Fields: map[byte]string{protocol.FieldCode: "57014"}}
	if !db.shouldRetry(err) {
		t.Error("expected statement timeout to be retryable when RetryStatementTimeout is set")
	}
}
