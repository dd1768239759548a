package pgwire

import (
	"context"

	"github.com/go-pg/pgwire/internal"
	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
)

// Stmt is a prepared statement pinned to one connection for its entire
// lifetime, as opposed to the ad hoc statement cache DB.Exec/DB.Query drive
// on whichever connection the pool happens to hand back.
type Stmt struct {
	db        *DB
	conn      *Conn
	name      string
	sql       string
	paramOIDs []uint32
}

// Exec executes the prepared statement, ignoring any returned rows.
func (s *Stmt) Exec(ctx context.Context, args ...interface{}) (Result, error) {
	out, err := execPrepared(ctx, s.conn, s.name, s.paramOIDs, args)
	if err != nil {
		return Result{}, err
	}
	return newResult(out.tag), nil
}

// Query executes the prepared statement and returns the buffered result set.
func (s *Stmt) Query(ctx context.Context, args ...interface{}) (*Rows, error) {
	out, err := execPrepared(ctx, s.conn, s.name, s.paramOIDs, args)
	if err != nil {
		return nil, err
	}
	return newRows(out.desc, out.rows), nil
}

// QueryOne acts like Query, but the statement must return exactly one row.
func (s *Stmt) QueryOne(ctx context.Context, args ...interface{}) (*Rows, error) {
	rows, err := s.Query(ctx, args...)
	if err != nil {
		return nil, err
	}
	if err := internal.AssertOneRow(len(rows.rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the server-side prepared statement and releases its pinned
// connection back to the pool.
func (s *Stmt) Close(ctx context.Context) error {
	if err := closeStmt(ctx, s.conn, s.name); err != nil {
		return err
	}
	return s.db.pool.Close()
}

// closeStmt sends Close+Flush for a named prepared statement and waits for
// CloseComplete, per base.go's closeStmt.
func closeStmt(ctx context.Context, c *Conn, name string) error {
	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteClose(wb, protocol.CloseStatement, name)
		protocol.WriteFlush(wb)
		return nil
	}); err != nil {
		return err
	}

	return c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		kind, _, err := rd.ReadMsgType()
		if err != nil {
			return err
		}
		if protocol.MsgType(kind) != protocol.MsgCloseComplete {
			return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
		}
		return nil
	})
}
