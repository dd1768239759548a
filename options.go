package pgwire

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/go-pg/pgwire/internal/pool"
)

// Config holds everything needed to negotiate and run a connection: the
// Startup/Authentication handshake parameters and the pool/retry/timeout
// knobs that govern the adapter sitting on top of the protocol core.
type Config struct {
	// Network is either "tcp" or "unix". Default is "tcp".
	Network string
	// Addr is host:port for tcp, or a socket path for unix.
	Addr string

	User     string
	Password string
	Database string

	// ApplicationName is reported to the server as the application_name
	// startup parameter, surfaced in pg_stat_activity.
	ApplicationName string

	// TLSConfig enables TLS negotiation via SSLRequest when non-nil.
	TLSConfig *tls.Config

	// MaxRetries is the maximum number of retries before giving up on a
	// query that fails with a retryable error (serialization failure, too
	// many connections, or, if RetryStatementTimeout, a statement
	// timeout). Default is to not retry.
	MaxRetries            int
	RetryStatementTimeout bool
	MinRetryBackoff       time.Duration
	MaxRetryBackoff       time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize           int
	PoolTimeout        time.Duration
	IdleTimeout        time.Duration
	IdleCheckFrequency time.Duration

	// StmtCacheThreshold is the use count at which an unnamed statement
	// is promoted to a named, server-prepared one. Default is
	// stmtcache.DefaultThreshold (5).
	StmtCacheThreshold int
	// StmtCacheCapacity bounds the number of named statements a Conn keeps
	// prepared at once; least-recently-used entries are evicted. Default
	// is 100.
	StmtCacheCapacity int

	// OnConnect, if set, runs once per new physical connection right after
	// the startup handshake completes, before it is handed out from the
	// pool for the first time.
	OnConnect func(ctx context.Context, cn *Conn) error
}

func (opt *Config) init() {
	if opt.Network == "" {
		opt.Network = "tcp"
	}
	if opt.Addr == "" {
		switch opt.Network {
		case "tcp":
			opt.Addr = "localhost:5432"
		case "unix":
			opt.Addr = "/var/run/postgresql/.s.PGSQL.5432"
		}
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 20
	}
	if opt.PoolTimeout == 0 {
		if opt.ReadTimeout != 0 {
			opt.PoolTimeout = opt.ReadTimeout + time.Second
		} else {
			opt.PoolTimeout = 30 * time.Second
		}
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.IdleCheckFrequency == 0 {
		opt.IdleCheckFrequency = time.Minute
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = 250 * time.Millisecond
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = 4 * time.Second
	}
}

func (opt *Config) dialer() func(ctx context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: opt.DialTimeout}
		return d.DialContext(ctx, opt.Network, opt.Addr)
	}
}

func newConnPool(opt *Config) *pool.ConnPool {
	return pool.NewConnPool(&pool.Options{
		Dial:               opt.dialer(),
		PoolSize:           opt.PoolSize,
		PoolTimeout:        opt.PoolTimeout,
		IdleTimeout:        opt.IdleTimeout,
		IdleCheckFrequency: opt.IdleCheckFrequency,
	})
}
