package pool

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pg/pgwire/internal"
)

var (
	ErrClosed      = internal.Errorf("pgwire: connection pool is closed")
	ErrPoolTimeout = internal.Errorf("pgwire: connection pool timeout")
	errConnStale   = internal.Errorf("pgwire: connection is stale")
)

// Stats contains pool state information and accumulated stats.
type Stats struct {
	Requests uint32
	Hits     uint32
	Timeouts uint32

	TotalConns uint32
	FreeConns  uint32
}

// Pooler is the resource-pooling contract above the Byte Transport: it hands
// out *Conn values for the adapter to serialize operations against, and takes
// them back (Put) or discards them (Remove) when a fault poisons the conn.
type Pooler interface {
	NewConn(ctx context.Context) (*Conn, error)
	CloseConn(*Conn) error

	Get(ctx context.Context) (*Conn, error)
	Put(*Conn)
	Remove(*Conn, error)

	Len() int
	FreeLen() int
	Stats() *Stats

	Close() error
	Closed() bool
}

type Options struct {
	Dial    func(ctx context.Context) (net.Conn, error)
	OnClose func(*Conn) error

	PoolSize           int
	PoolTimeout        time.Duration
	IdleTimeout        time.Duration
	IdleCheckFrequency time.Duration
}

// ConnPool is a fixed-capacity pool of *Conn. Each Conn is a single-threaded
// serial resource (spec §5): the pool's only job is handing exactly one
// caller a conn at a time, never sharing one concurrently.
type ConnPool struct {
	opt *Options

	queue chan struct{}

	connsMu sync.Mutex
	conns   []*Conn

	freeConnsMu sync.Mutex
	freeConns   []*Conn

	stats Stats

	_closed int32
}

var _ Pooler = (*ConnPool)(nil)

func NewConnPool(opt *Options) *ConnPool {
	p := &ConnPool{
		opt: opt,

		queue:     make(chan struct{}, opt.PoolSize),
		conns:     make([]*Conn, 0, opt.PoolSize),
		freeConns: make([]*Conn, 0, opt.PoolSize),
	}

	if opt.IdleTimeout > 0 && opt.IdleCheckFrequency > 0 {
		go p.reaper(opt.IdleCheckFrequency)
	}

	return p
}

func (p *ConnPool) NewConn(ctx context.Context) (*Conn, error) {
	netConn, err := p.opt.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewConn(netConn), nil
}

func (p *ConnPool) popFree() *Conn {
	if len(p.freeConns) == 0 {
		return nil
	}
	idx := len(p.freeConns) - 1
	cn := p.freeConns[idx]
	p.freeConns = p.freeConns[:idx]
	return cn
}

// Get returns an existing idle connection or dials a new one, blocking until
// one is available or PoolTimeout elapses.
func (p *ConnPool) Get(ctx context.Context) (*Conn, error) {
	if p.Closed() {
		return nil, ErrClosed
	}

	atomic.AddUint32(&p.stats.Requests, 1)

	timer := time.NewTimer(p.opt.PoolTimeout)
	defer timer.Stop()

	select {
	case p.queue <- struct{}{}:
	case <-timer.C:
		atomic.AddUint32(&p.stats.Timeouts, 1)
		return nil, ErrPoolTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		p.freeConnsMu.Lock()
		cn := p.popFree()
		p.freeConnsMu.Unlock()

		if cn == nil {
			break
		}
		if cn.IsStale(p.opt.IdleTimeout) {
			p.remove(cn, errConnStale)
			continue
		}

		atomic.AddUint32(&p.stats.Hits, 1)
		return cn, nil
	}

	newcn, err := p.NewConn(ctx)
	if err != nil {
		<-p.queue
		return nil, err
	}

	p.connsMu.Lock()
	p.conns = append(p.conns, newcn)
	p.connsMu.Unlock()

	return newcn, nil
}

func (p *ConnPool) Put(cn *Conn) {
	if err := cn.CheckHealth(); err != nil {
		internal.Logf("pgwire: %s, discarding connection", err)
		p.Remove(cn, err)
		return
	}
	p.freeConnsMu.Lock()
	p.freeConns = append(p.freeConns, cn)
	p.freeConnsMu.Unlock()
	<-p.queue
}

func (p *ConnPool) Remove(cn *Conn, reason error) {
	p.remove(cn, reason)
	<-p.queue
}

func (p *ConnPool) remove(cn *Conn, reason error) {
	_ = p.CloseConn(cn)

	p.connsMu.Lock()
	for i, c := range p.conns {
		if c == cn {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			break
		}
	}
	p.connsMu.Unlock()
}

func (p *ConnPool) CloseConn(cn *Conn) error {
	if p.opt.OnClose != nil {
		_ = p.opt.OnClose(cn)
	}
	return cn.Close()
}

func (p *ConnPool) Len() int {
	p.connsMu.Lock()
	defer p.connsMu.Unlock()
	return len(p.conns)
}

func (p *ConnPool) FreeLen() int {
	p.freeConnsMu.Lock()
	defer p.freeConnsMu.Unlock()
	return len(p.freeConns)
}

func (p *ConnPool) Stats() *Stats {
	return &Stats{
		Requests:   atomic.LoadUint32(&p.stats.Requests),
		Hits:       atomic.LoadUint32(&p.stats.Hits),
		Timeouts:   atomic.LoadUint32(&p.stats.Timeouts),
		TotalConns: uint32(p.Len()),
		FreeConns:  uint32(p.FreeLen()),
	}
}

func (p *ConnPool) Closed() bool {
	return atomic.LoadInt32(&p._closed) == 1
}

func (p *ConnPool) Close() error {
	if !atomic.CompareAndSwapInt32(&p._closed, 0, 1) {
		return ErrClosed
	}

	var retErr error
	p.connsMu.Lock()
	for _, cn := range p.conns {
		if err := p.CloseConn(cn); err != nil && retErr == nil {
			retErr = err
		}
	}
	p.conns = nil
	p.connsMu.Unlock()

	p.freeConnsMu.Lock()
	p.freeConns = nil
	p.freeConnsMu.Unlock()

	return retErr
}

func (p *ConnPool) reapStaleConn() bool {
	if len(p.freeConns) == 0 {
		return false
	}
	cn := p.freeConns[0]
	if !cn.IsStale(p.opt.IdleTimeout) {
		return false
	}
	p.remove(cn, errConnStale)
	p.freeConns = append(p.freeConns[:0], p.freeConns[1:]...)
	return true
}

func (p *ConnPool) reaper(frequency time.Duration) {
	ticker := time.NewTicker(frequency)
	defer ticker.Stop()

	for range ticker.C {
		if p.Closed() {
			break
		}

		p.freeConnsMu.Lock()
		var n int
		for p.reapStaleConn() {
			n++
		}
		p.freeConnsMu.Unlock()

		if n > 0 {
			s := p.Stats()
			internal.Logf(
				"pgwire: reaper removed %d stale conns (total=%d free=%d)",
				n, s.TotalConns, s.FreeConns,
			)
		}
	}
}
