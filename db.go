package pgwire

import (
	"context"
	"io"
	"time"

	"github.com/go-pg/pgwire/internal"
	"github.com/go-pg/pgwire/internal/pool"
)

// DB is a pooled client for one PostgreSQL server: the long-lived handle an
// application holds, issuing queries and COPY streams over whichever
// physical connection the pool hands it for each call. A DB is safe for
// concurrent use by many goroutines.
type DB struct {
	opt  *Config
	pool pool.Pooler
}

// Connect creates a DB against opt. It does not dial eagerly; the first
// connection is opened (and the Startup/Authentication handshake run) by
// the first call that needs one.
func Connect(opt *Config) *DB {
	opt.init()
	return &DB{
		opt:  opt,
		pool: newConnPool(opt),
	}
}

func (db *DB) withPool(p pool.Pooler) *DB {
	return &DB{opt: db.opt, pool: p}
}

func (db *DB) retryBackoff(attempt int) time.Duration {
	return internal.RetryBackoff(attempt, db.opt.MinRetryBackoff, db.opt.MaxRetryBackoff)
}

// Close closes the pool, closing every connection currently idle or
// checked out. It is rare to Close a DB: the handle is meant to be
// long-lived and shared.
func (db *DB) Close() error {
	return db.pool.Close()
}

// PoolStats reports the underlying connection pool's state.
func (db *DB) PoolStats() *pool.Stats {
	return db.pool.Stats()
}

func (db *DB) getConn(ctx context.Context) (*Conn, error) {
	cn, err := db.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	c, err := initConn(ctx, cn, db.opt)
	if err != nil {
		db.pool.Remove(cn, err)
		return nil, err
	}
	return c, nil
}

func (db *DB) releaseConn(c *Conn, err error) {
	if isBadConn(err, false) {
		db.pool.Remove(c.cn, err)
	} else {
		db.pool.Put(c.cn)
	}
}

// withConn checks out a Conn, runs fn, and releases it, cancelling fn's
// in-flight request on the server (via a throwaway CancelRequest transport)
// if ctx is done before fn returns.
func (db *DB) withConn(ctx context.Context, fn func(context.Context, *Conn) error) error {
	c, err := db.getConn(ctx)
	if err != nil {
		return err
	}

	var fnDone chan struct{}
	if ctx != nil && ctx.Done() != nil {
		fnDone = make(chan struct{})
		go func() {
			select {
			case <-fnDone:
			case <-ctx.Done():
				if err := cancelRequest(context.Background(), db.pool, db.opt.WriteTimeout, c.ProcessID(), c.SecretKey()); err != nil {
					internal.Logf("pgwire: cancelRequest failed: %s", err)
				}
				fnDone <- struct{}{}
			}
		}()
	}

	defer func() {
		if fnDone != nil {
			select {
			case <-fnDone:
			case fnDone <- struct{}{}:
			}
		}
		db.releaseConn(c, err)
	}()

	err = fn(ctx, c)
	return err
}

func (db *DB) shouldRetry(err error) bool {
	switch err {
	case nil, context.Canceled, context.DeadlineExceeded:
		return false
	}
	if pgErr, ok := err.(Error); ok {
		switch pgErr.Code() {
		case "40001", // serialization_failure
			"53300", // too_many_connections
			"55000": // object_not_in_prerequisite_state (invisible tuple delete)
			return true
		case "57014": // query_canceled (statement_timeout)
			return db.opt.RetryStatementTimeout
		default:
			return false
		}
	}
	return isNetworkError(err)
}

// Exec executes sql, ignoring any returned rows. args are bound as Bind
// parameters of an extended-query round trip when present; with no args it
// goes through the simple query protocol.
func (db *DB) Exec(ctx context.Context, sql string, args ...interface{}) (Result, error) {
	var res Result
	var lastErr error

	for attempt := 0; attempt <= db.opt.MaxRetries; attempt++ {
		if attempt > 0 {
			if lastErr = internal.Sleep(ctx, db.retryBackoff(attempt-1)); lastErr != nil {
				break
			}
		}

		lastErr = db.withConn(ctx, func(ctx context.Context, c *Conn) error {
			var err error
			res, err = db.execOn(ctx, c, sql, args)
			return err
		})
		if !db.shouldRetry(lastErr) {
			break
		}
	}
	return res, lastErr
}

func (db *DB) execOn(ctx context.Context, c *Conn, sql string, args []interface{}) (Result, error) {
	if len(args) == 0 {
		out, err := c.simpleQuery(ctx, sql)
		if err != nil {
			return Result{}, err
		}
		return newResult(out.tag), nil
	}

	out, err := execExtended(ctx, c, sql, args)
	if err != nil {
		return Result{}, err
	}
	return newResult(out.tag), nil
}

// ExecOne acts like Exec, but sql must affect exactly one row; it returns
// ErrNoRows or ErrMultiRows otherwise.
func (db *DB) ExecOne(ctx context.Context, sql string, args ...interface{}) (Result, error) {
	res, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return Result{}, err
	}
	if err := internal.AssertOneRow(res.RowsAffected()); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Query executes sql (typically a SELECT) and returns the buffered result
// set. args behave as in Exec.
func (db *DB) Query(ctx context.Context, sql string, args ...interface{}) (*Rows, error) {
	var rows *Rows
	var lastErr error

	for attempt := 0; attempt <= db.opt.MaxRetries; attempt++ {
		if attempt > 0 {
			if lastErr = internal.Sleep(ctx, db.retryBackoff(attempt-1)); lastErr != nil {
				break
			}
		}

		lastErr = db.withConn(ctx, func(ctx context.Context, c *Conn) error {
			var err error
			rows, err = db.queryOn(ctx, c, sql, args)
			return err
		})
		if !db.shouldRetry(lastErr) {
			break
		}
	}
	return rows, lastErr
}

func (db *DB) queryOn(ctx context.Context, c *Conn, sql string, args []interface{}) (*Rows, error) {
	if len(args) == 0 {
		out, err := c.simpleQuery(ctx, sql)
		if err != nil {
			return nil, err
		}
		return newRows(out.desc, out.rows), nil
	}

	out, err := execExtended(ctx, c, sql, args)
	if err != nil {
		return nil, err
	}
	return newRows(out.desc, out.rows), nil
}

// QueryOne acts like Query, but sql must return exactly one row.
func (db *DB) QueryOne(ctx context.Context, sql string, args ...interface{}) (*Rows, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if err := internal.AssertOneRow(len(rows.rows)); err != nil {
		return nil, err
	}
	return rows, nil
}

// CopyFrom copies data read from r to the server as the payload of a COPY
// ... FROM STDIN statement.
func (db *DB) CopyFrom(ctx context.Context, r io.Reader, sql string) (Result, error) {
	var res Result
	err := db.withConn(ctx, func(ctx context.Context, c *Conn) error {
		sess, err := c.startCopyIn(ctx, sql)
		if err != nil {
			return err
		}

		buf := make([]byte, 64*1024)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if _, werr := sess.WriteToCopy(ctx, buf[:n]); werr != nil {
					_ = sess.CancelCopy(ctx, werr.Error())
					return werr
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				_ = sess.CancelCopy(ctx, rerr.Error())
				return rerr
			}
		}

		if err := sess.EndCopy(ctx); err != nil {
			return err
		}
		res, err = c.finishCopy(ctx)
		return err
	})
	return res, err
}

// CopyTo streams the payload of a COPY ... TO STDOUT statement to w.
func (db *DB) CopyTo(ctx context.Context, w io.Writer, sql string) (Result, error) {
	var res Result
	err := db.withConn(ctx, func(ctx context.Context, c *Conn) error {
		sess, err := c.startCopyOut(ctx, sql)
		if err != nil {
			return err
		}

		res, err = c.readFromCopyLoop(ctx, func(chunk []byte) error {
			_, err := sess.ReadFromCopy(chunk, false)
			if err != nil {
				return err
			}
			_, err = w.Write(chunk)
			return err
		})
		return err
	})
	return res, err
}

// Prepare creates a named, server-side prepared statement, pinned to its
// own connection for the lifetime of the returned Stmt.
func (db *DB) Prepare(ctx context.Context, sql string) (*Stmt, error) {
	spool := pool.NewSingleConnPool(db.pool)
	sdb := db.withPool(spool)

	c, err := sdb.getConn(ctx)
	if err != nil {
		return nil, err
	}

	name, paramOIDs, err := prepareNamed(ctx, c, sql)
	if err != nil {
		_ = spool.Close()
		return nil, err
	}

	return &Stmt{db: sdb, conn: c, name: name, sql: sql, paramOIDs: paramOIDs}, nil
}
