package pool

import (
	"context"
	"sync/atomic"
)

const (
	stateDefault = 0
	stateInited  = 1
	stateClosed  = 2
)

// SingleConnPool adapts a single *Conn, pinned out of a parent Pooler, to the
// Pooler interface. A Tx or a cached Stmt uses one to hold its conn for the
// transaction/statement's lifetime instead of returning it to the pool
// between operations.
type SingleConnPool struct {
	pool Pooler

	state uint32
	ch    chan *Conn
}

var _ Pooler = (*SingleConnPool)(nil)

func NewSingleConnPool(pool Pooler) *SingleConnPool {
	return &SingleConnPool{
		pool: pool,
		ch:   make(chan *Conn, 1),
	}
}

func (p *SingleConnPool) SetConn(cn *Conn) {
	if atomic.CompareAndSwapUint32(&p.state, stateDefault, stateInited) {
		p.ch <- cn
		return
	}
	panic("pgwire: SingleConnPool.SetConn called twice")
}

func (p *SingleConnPool) NewConn(ctx context.Context) (*Conn, error) {
	return p.pool.NewConn(ctx)
}

func (p *SingleConnPool) CloseConn(cn *Conn) error {
	return p.pool.CloseConn(cn)
}

func (p *SingleConnPool) Get(ctx context.Context) (*Conn, error) {
	if atomic.CompareAndSwapUint32(&p.state, stateDefault, stateInited) {
		cn, err := p.pool.Get(ctx)
		if err != nil {
			return nil, err
		}
		p.ch <- cn
	}

	select {
	case cn := <-p.ch:
		p.ch <- cn
		return cn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *SingleConnPool) Put(cn *Conn) {}

func (p *SingleConnPool) Remove(cn *Conn, reason error) {
	if atomic.CompareAndSwapUint32(&p.state, stateInited, stateClosed) {
		select {
		case <-p.ch:
		default:
		}
		p.pool.Remove(cn, reason)
	}
}

// Close releases the pinned connection back to the parent pool.
func (p *SingleConnPool) Close() error {
	if atomic.CompareAndSwapUint32(&p.state, stateInited, stateClosed) {
		select {
		case cn := <-p.ch:
			p.pool.Put(cn)
		default:
		}
	}
	return nil
}

func (p *SingleConnPool) Closed() bool {
	return atomic.LoadUint32(&p.state) == stateClosed
}

func (p *SingleConnPool) Len() int {
	if p.Closed() {
		return 0
	}
	return 1
}

func (p *SingleConnPool) FreeLen() int {
	return 0
}

func (p *SingleConnPool) Stats() *Stats {
	return &Stats{}
}
