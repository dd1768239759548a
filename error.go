package pgwire

import (
	"io"
	"net"

	"github.com/go-pg/pgwire/internal"
	"github.com/go-pg/pgwire/internal/protocol"
)

var (
	ErrSSLNotSupported = internal.Errorf("pgwire: SSL is not enabled on the server")

	ErrNoRows    = internal.ErrNoRows
	ErrMultiRows = internal.ErrMultiRows

	errClosed     = internal.Errorf("pgwire: database is closed")
	errTxDone     = internal.Errorf("pgwire: transaction has already been committed or rolled back")
	errStmtClosed = internal.Errorf("pgwire: statement is closed")
)

// Error is the interface satisfied by a server-reported error or notice, a
// thin rename of protocol.ServerError's field-map accessors so adapter
// callers don't need to import internal/protocol themselves.
type Error interface {
	error
	Code() string
	Message() string
	Detail() string
	Hint() string
}

var _ Error = (*protocol.ServerError)(nil)

func isBadConn(err error, allowTimeout bool) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(internal.Error); ok {
		return false
	}
	if pgErr, ok := err.(*protocol.ServerError); ok && pgErr.Fields[protocol.FieldSeverity] != "FATAL" {
		return false
	}
	if allowTimeout {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return false
		}
	}
	return true
}

func isNetworkError(err error) bool {
	if err == io.EOF {
		return true
	}
	_, ok := err.(net.Error)
	return ok
}
