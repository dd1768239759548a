package pgwire

import (
	"context"

	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
)

// Tx is a transaction pinned to one connection for its duration: BEGIN runs
// on checkout, every statement inside the transaction reuses that same
// connection, and Commit/Rollback releases it back to the pool.
type Tx struct {
	db    *DB
	spool *pool.SingleConnPool
	conn  *Conn
	done  bool
}

// Begin checks out a connection and sends BEGIN on it.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	spool := pool.NewSingleConnPool(db.pool)
	tdb := db.withPool(spool)

	c, err := tdb.getConn(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.simpleQuery(ctx, "BEGIN"); err != nil {
		spool.Remove(c.cn, err)
		return nil, err
	}

	return &Tx{db: tdb, spool: spool, conn: c}, nil
}

func (tx *Tx) checkDone() error {
	if tx.done {
		return errTxDone
	}
	return nil
}

// Exec executes sql on the transaction's connection.
func (tx *Tx) Exec(ctx context.Context, sql string, args ...interface{}) (Result, error) {
	if err := tx.checkDone(); err != nil {
		return Result{}, err
	}
	return tx.db.execOn(ctx, tx.conn, sql, args)
}

// Query executes sql on the transaction's connection and returns the
// buffered result set.
func (tx *Tx) Query(ctx context.Context, sql string, args ...interface{}) (*Rows, error) {
	if err := tx.checkDone(); err != nil {
		return nil, err
	}
	return tx.db.queryOn(ctx, tx.conn, sql, args)
}

// Commit sends COMMIT and releases the pinned connection.
func (tx *Tx) Commit(ctx context.Context) error {
	return tx.end(ctx, "COMMIT")
}

// Rollback sends ROLLBACK and releases the pinned connection.
func (tx *Tx) Rollback(ctx context.Context) error {
	return tx.end(ctx, "ROLLBACK")
}

func (tx *Tx) end(ctx context.Context, sql string) error {
	if err := tx.checkDone(); err != nil {
		return err
	}
	tx.done = true

	_, err := tx.conn.simpleQuery(ctx, sql)
	if isBadConn(err, false) {
		tx.spool.Remove(tx.conn.cn, err)
	} else {
		_ = tx.spool.Close()
	}
	return err
}

// TxStatus reports the transaction status (idle/in-transaction/failed) as
// of the last completed statement, letting a caller detect a failed
// transaction before attempting ROLLBACK.
func (tx *Tx) TxStatus() protocol.TxStatus {
	return tx.conn.TxStatus()
}
