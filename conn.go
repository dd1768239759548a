package pgwire

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pg/pgwire/internal/auth"
	"github.com/go-pg/pgwire/internal/copyproto"
	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
	"github.com/go-pg/pgwire/internal/stmtcache"
	"github.com/go-pg/pgwire/internal/types"
)

// Conn wraps one pool.Conn with the bookkeeping the protocol core needs to
// drive it: the connection lifecycle state machine and the prepared
// statement cache. Neither survives the physical connection that owns them,
// so a fresh pair is pinned the first time a *pool.Conn is initialized.
type Conn struct {
	cn    *pool.Conn
	opt   *Config
	fsm   *protocol.Machine
	stmts *stmtcache.Cache
}

// newConn wraps cn, reusing its pinned Conn (stored in cn.UserData) if this
// is not the first time the physical connection has been handed out.
func newConn(cn *pool.Conn, opt *Config) *Conn {
	if extra, ok := cn.UserData.(*Conn); ok {
		return extra
	}
	c := &Conn{
		cn:    cn,
		opt:   opt,
		fsm:   protocol.NewMachine(),
		stmts: stmtcache.New(opt.StmtCacheThreshold, opt.StmtCacheCapacity),
	}
	cn.UserData = c
	return c
}

// ProcessID and SecretKey identify this backend for CancelRequest.
func (c *Conn) ProcessID() int32 { return c.cn.ProcessID }
func (c *Conn) SecretKey() int32 { return c.cn.SecretKey }

// TxStatus reports the transaction status from the most recent ReadyForQuery.
func (c *Conn) TxStatus() protocol.TxStatus { return c.fsm.TxStatus() }

// initConn runs the Startup/Authentication handshake once per physical
// connection (idempotent: cn.Inited gates repeat calls from getConn).
func initConn(ctx context.Context, cn *pool.Conn, opt *Config) (*Conn, error) {
	c := newConn(cn, opt)
	if cn.Inited {
		return c, nil
	}
	cn.Inited = true
	cn.InitedAt = time.Now()

	if opt.TLSConfig != nil {
		if err := c.enableTLS(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.fsm.BeginStartup(); err != nil {
		return nil, err
	}

	if err := cn.WithWriter(ctx, opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteStartup(wb, c.startupParams())
		return nil
	}); err != nil {
		return nil, err
	}

	if err := c.runStartupExchange(ctx); err != nil {
		return nil, err
	}

	if opt.OnConnect != nil {
		if err := opt.OnConnect(ctx, c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Conn) startupParams() map[string]string {
	params := map[string]string{
		"user":     c.opt.User,
		"database": c.opt.Database,
	}
	if c.opt.ApplicationName != "" {
		params["application_name"] = c.opt.ApplicationName
	}
	return params
}

// enableTLS writes the pseudo-startup SSLRequest and, if the server agrees,
// swaps the transport for a TLS client conn before the real startup message
// is ever sent.
func (c *Conn) enableTLS(ctx context.Context) error {
	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteSSLRequest(wb)
		return nil
	}); err != nil {
		return err
	}

	var reply byte
	if err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		var err error
		reply, err = rd.ReadByte()
		return err
	}); err != nil {
		return err
	}

	switch reply {
	case 'S':
		c.cn.EnableTLS(c.opt.TLSConfig)
		return nil
	case 'N':
		return ErrSSLNotSupported
	default:
		return fmt.Errorf("pgwire: unexpected SSLRequest reply %q", reply)
	}
}

// runStartupExchange drives Authentication through BackendKeyData/
// ParameterStatus up to the first ReadyForQuery.
func (c *Conn) runStartupExchange(ctx context.Context) error {
	var plugin auth.Plugin

	return c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, bodyLen, err := rd.ReadMsgType()
			if err != nil {
				return err
			}

			switch protocol.MsgType(kind) {
			case protocol.MsgAuthentication:
				authReq, err := protocol.ReadAuthRequest(rd, bodyLen)
				if err != nil {
					return err
				}
				if err := c.fsm.OnAuthRequest(authReq.Sub); err != nil {
					return err
				}
				resp, err := c.respondToAuth(authReq, &plugin)
				if err != nil {
					return err
				}
				if resp != nil {
					if err := c.sendAuthResponse(ctx, authReq.Sub, resp); err != nil {
						return err
					}
				}

			case protocol.MsgBackendKeyData:
				bk, err := protocol.ReadBackendKeyData(rd)
				if err != nil {
					return err
				}
				c.cn.ProcessID = bk.ProcessID
				c.cn.SecretKey = bk.SecretKey

			case protocol.MsgParameterStatus:
				if _, err := protocol.ReadParameterStatus(rd); err != nil {
					return err
				}

			case protocol.MsgNoticeResponse:
				if _, err := protocol.ReadServerError(rd); err != nil {
					return err
				}

			case protocol.MsgErrorResponse:
				srvErr, err := protocol.ReadServerError(rd)
				if err != nil {
					return err
				}
				return srvErr

			case protocol.MsgReadyForQuery:
				status, err := protocol.ReadReadyForQuery(rd)
				if err != nil {
					return err
				}
				return c.fsm.OnReadyForQuery(status)

			default:
				return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
			}
		}
	})
}

// respondToAuth computes the client's next message for one AuthenticationXXX
// challenge, dispatching to the matching scheme in internal/auth.
func (c *Conn) respondToAuth(req *protocol.AuthRequest, plugin *auth.Plugin) ([]byte, error) {
	switch req.Sub {
	case protocol.AuthOK:
		return nil, nil

	case protocol.AuthCleartextPassword:
		return []byte(c.opt.Password), nil

	case protocol.AuthMD5Password:
		var salt [4]byte
		copy(salt[:], req.Data)
		return []byte(auth.HashMD5Password(c.opt.User, c.opt.Password, salt)), nil

	case protocol.AuthSASL:
		mechanisms := splitNulTerminated(req.Data)
		p, err := auth.NewSCRAM(c.opt.User, c.opt.Password, mechanisms)
		if err != nil {
			return nil, err
		}
		*plugin = p
		resp, _ := p.Initial()
		return resp, nil

	case protocol.AuthSASLContinue:
		resp, _, err := (*plugin).Step(req.Data)
		return resp, err

	case protocol.AuthSASLFinal:
		_, _, err := (*plugin).Step(req.Data)
		return nil, err

	default:
		return nil, fmt.Errorf("pgwire: unsupported authentication method %d", req.Sub)
	}
}

func (c *Conn) sendAuthResponse(ctx context.Context, sub int32, resp []byte) error {
	return c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		switch sub {
		case protocol.AuthSASL:
			protocol.WriteSASLInitialResponse(wb, "SCRAM-SHA-256", resp)
		case protocol.AuthSASLContinue:
			protocol.WriteSASLResponse(wb, resp)
		default:
			protocol.WritePassword(wb, string(resp))
		}
		return nil
	})
}

func splitNulTerminated(data []byte) []string {
	var out []string
	for _, part := range bytes.Split(data, []byte{0}) {
		if len(part) > 0 {
			out = append(out, string(part))
		}
	}
	return out
}

// queryOutcome is the accumulated result of a simple-query round trip: the
// last RowDescription seen, every DataRow under it, and the command tag.
type queryOutcome struct {
	desc *protocol.RowDescription
	rows []*protocol.DataRow
	tag  string
}

// simpleQuery drives the simple query protocol (§4.1) for sql, which may
// contain several ';'-separated statements; only the final RowDescription/
// CommandComplete pair is kept, matching the teacher's single-Result
// convention for a multi-statement Query call.
func (c *Conn) simpleQuery(ctx context.Context, sql string) (*queryOutcome, error) {
	if err := c.fsm.BeginSimpleQuery(); err != nil {
		return nil, err
	}

	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteQuery(wb, sql)
		return nil
	}); err != nil {
		return nil, err
	}

	var out queryOutcome
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}

			switch protocol.MsgType(kind) {
			case protocol.MsgRowDescription:
				out.desc, err = protocol.ReadRowDescription(rd)
				out.rows = nil
				if err != nil {
					return err
				}

			case protocol.MsgDataRow:
				row, err := protocol.ReadDataRow(rd)
				if err != nil {
					return err
				}
				out.rows = append(out.rows, row)

			case protocol.MsgCommandComplete:
				cc, err := protocol.ReadCommandComplete(rd)
				if err != nil {
					return err
				}
				out.tag = cc.Tag

			case protocol.MsgEmptyQueryResponse:
				// no-op: zero-length query text, nothing to record

			case protocol.MsgNoticeResponse:
				if _, err := protocol.ReadServerError(rd); err != nil {
					return err
				}

			case protocol.MsgErrorResponse:
				e, err := protocol.ReadServerError(rd)
				if err != nil {
					return err
				}
				srvErr = e

			case protocol.MsgCopyInResponse, protocol.MsgCopyOutResponse:
				// A bare Query containing COPY is driven through
				// startCopyIn/startCopyOut instead; reaching here means the
				// caller used simpleQuery directly on a COPY statement.
				return fmt.Errorf("pgwire: COPY statement requires startCopyIn/startCopyOut")

			case protocol.MsgReadyForQuery:
				status, err := protocol.ReadReadyForQuery(rd)
				if err != nil {
					return err
				}
				return c.fsm.OnReadyForQuery(status)

			default:
				return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if srvErr != nil {
		return nil, srvErr
	}
	return &out, nil
}

// startCopyIn sends sql (expected to be a COPY ... FROM STDIN statement) and
// drives the exchange up to CopyInResponse, handing back a copyproto.Session
// the caller streams row data through.
func (c *Conn) startCopyIn(ctx context.Context, sql string) (*copyproto.Session, error) {
	resp, err := c.beginCopy(ctx, sql)
	if err != nil {
		return nil, err
	}
	if err := c.fsm.OnCopyInResponse(resp.OverallFormat); err != nil {
		return nil, err
	}
	return copyproto.NewCopyIn(c.cn, resp), nil
}

// startCopyOut sends sql (expected to be a COPY ... TO STDOUT statement) and
// drives the exchange up to CopyOutResponse.
func (c *Conn) startCopyOut(ctx context.Context, sql string) (*copyproto.Session, error) {
	resp, err := c.beginCopy(ctx, sql)
	if err != nil {
		return nil, err
	}
	if err := c.fsm.OnCopyOutResponse(resp.OverallFormat); err != nil {
		return nil, err
	}
	return copyproto.NewCopyOut(c.cn, resp), nil
}

func (c *Conn) beginCopy(ctx context.Context, sql string) (*protocol.CopyResponse, error) {
	if err := c.fsm.BeginSimpleQuery(); err != nil {
		return nil, err
	}
	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteQuery(wb, sql)
		return nil
	}); err != nil {
		return nil, err
	}

	var resp *protocol.CopyResponse
	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}
			switch protocol.MsgType(kind) {
			case protocol.MsgCopyInResponse, protocol.MsgCopyOutResponse:
				resp, err = protocol.ReadCopyResponse(rd)
				return err
			case protocol.MsgErrorResponse:
				srvErr, err := protocol.ReadServerError(rd)
				if err != nil {
					return err
				}
				return srvErr
			case protocol.MsgNoticeResponse:
				if _, err := protocol.ReadServerError(rd); err != nil {
					return err
				}
			default:
				return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
			}
		}
	})
	return resp, err
}

// finishCopy drives the connection from CopyDone (already sent by the
// Session) through CommandComplete and ReadyForQuery.
func (c *Conn) finishCopy(ctx context.Context) (Result, error) {
	var tag string
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}
			switch protocol.MsgType(kind) {
			case protocol.MsgCommandComplete:
				cc, err := protocol.ReadCommandComplete(rd)
				if err != nil {
					return err
				}
				tag = cc.Tag
			case protocol.MsgErrorResponse:
				e, err := protocol.ReadServerError(rd)
				if err != nil {
					return err
				}
				srvErr = e
			case protocol.MsgNoticeResponse:
				if _, err := protocol.ReadServerError(rd); err != nil {
					return err
				}
			case protocol.MsgReadyForQuery:
				status, err := protocol.ReadReadyForQuery(rd)
				if err != nil {
					return err
				}
				return c.fsm.OnReadyForQuery(status)
			default:
				return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
			}
		}
	})
	if err != nil {
		return Result{}, err
	}
	if srvErr != nil {
		return Result{}, srvErr
	}
	return newResult(tag), nil
}

// readFromCopyLoop pulls CopyData chunks from the wire and hands each to
// sink until CopyDone, folding the trailing CommandComplete/ReadyForQuery
// into the returned Result.
func (c *Conn) readFromCopyLoop(ctx context.Context, sink func([]byte) error) (Result, error) {
	var tag string
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, bodyLen, err := rd.ReadMsgType()
			if err != nil {
				return err
			}
			switch protocol.MsgType(kind) {
			case protocol.MsgCopyData:
				data, err := protocol.ReadCopyData(rd, bodyLen)
				if err != nil {
					return err
				}
				if err := sink(data); err != nil {
					return err
				}
			case protocol.MsgCopyDone:
				if err := c.fsm.OnCopyDone(); err != nil {
					return err
				}
			case protocol.MsgCommandComplete:
				cc, err := protocol.ReadCommandComplete(rd)
				if err != nil {
					return err
				}
				tag = cc.Tag
			case protocol.MsgErrorResponse:
				e, err := protocol.ReadServerError(rd)
				if err != nil {
					return err
				}
				srvErr = e
			case protocol.MsgNoticeResponse:
				if _, err := protocol.ReadServerError(rd); err != nil {
					return err
				}
			case protocol.MsgReadyForQuery:
				status, err := protocol.ReadReadyForQuery(rd)
				if err != nil {
					return err
				}
				return c.fsm.OnReadyForQuery(status)
			default:
				return &protocol.ErrProtocolViolation{State: c.fsm.State(), Msg: protocol.MsgType(kind)}
			}
		}
	})
	if err != nil {
		return Result{}, err
	}
	if srvErr != nil {
		return Result{}, srvErr
	}
	return newResult(tag), nil
}

// cancelRequest dials a brand-new, throwaway transport and sends
// CancelRequest, per §4.5: cancellation is never sent on the connection
// being cancelled, since that connection is busy in the middle of the
// request it's trying to interrupt.
func cancelRequest(ctx context.Context, pooler pool.Pooler, writeTimeout time.Duration, processID, secretKey int32) error {
	cn, err := pooler.NewConn(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = pooler.CloseConn(cn)
	}()

	return cn.WithWriter(ctx, writeTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteCancelRequest(wb, processID, secretKey)
		return nil
	})
}

// encodeParamText infers v's OID (unless oid is already known) and encodes
// it in text format, the format this core always negotiates for Bind
// parameters (§4.3: binary param encoding is reserved for result columns
// where the caller explicitly opts in via Describe).
func encodeParamText(v interface{}) (protocol.ParamValue, error) {
	if v == nil {
		return protocol.ParamValue{IsNull: true}, nil
	}
	oid, ok := types.InferOID(v)
	if !ok {
		return protocol.ParamValue{}, fmt.Errorf("pgwire: cannot infer wire type for %T", v)
	}
	b, err := types.EncodeText(oid, v)
	if err != nil {
		return protocol.ParamValue{}, err
	}
	return protocol.ParamValue{Bytes: b}, nil
}
