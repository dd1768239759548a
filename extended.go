package pgwire

import (
	"context"

	"github.com/go-pg/pgwire/internal/pool"
	"github.com/go-pg/pgwire/internal/protocol"
)

// execExtended drives one pipelined Parse/Bind/Describe/Execute/Sync round
// trip (§4.1 extended query protocol), promoting sql from the unnamed
// statement to a named, server-prepared one once its use count crosses the
// stmtcache threshold, and folding in the Close of any statement the cache
// evicted to make room.
func execExtended(ctx context.Context, c *Conn, sql string, args []interface{}) (*queryOutcome, error) {
	entry := c.stmts.Lookup(sql)
	shouldPromote := c.stmts.RecordUse(entry)

	parseName := ""
	sendParse := true
	if entry.Named() {
		parseName = entry.Name
		sendParse = false
	} else if shouldPromote {
		parseName = c.stmts.Promote(entry, nil)
	}

	params := make([]protocol.ParamValue, len(args))
	for i, a := range args {
		p, err := encodeParamText(a)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}

	pendingClose := c.stmts.TakePendingClose()

	if err := c.fsm.BeginExtendedQuery(); err != nil {
		return nil, err
	}

	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		for _, name := range pendingClose {
			protocol.WriteClose(wb, protocol.CloseStatement, name)
		}
		if sendParse {
			protocol.WriteParse(wb, parseName, sql, nil)
		}
		protocol.WriteBind(wb, "", parseName, nil, params, nil)
		protocol.WriteDescribe(wb, protocol.DescribePortal, "")
		protocol.WriteExecute(wb, "", 0)
		protocol.WriteSync(wb)
		return nil
	}); err != nil {
		return nil, err
	}
	c.fsm.OnSyncSent()

	var out queryOutcome
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}

			switch protocol.MsgType(kind) {
			case protocol.MsgParseComplete, protocol.MsgBindComplete, protocol.MsgCloseComplete:
				// no body

			case protocol.MsgParameterDesc:
				if _, err := protocol.ReadParameterDescription(rd); err != nil {
					return err
				}

			case protocol.MsgRowDescription:
				out.desc, err = protocol.ReadRowDescription(rd)
				if err != nil {
					return err
				}

			case protocol.MsgNoData:
				// statement returns no rows (an Exec-only command)

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

			case protocol.MsgPortalSuspended:
				// unreached: Execute was sent with maxRows == 0 (no limit)

			case protocol.MsgEmptyQueryResponse:
				// no-op

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

// prepareNamed Parses sql under a fresh, connection-local name and
// Describes it, returning the name and the server-inferred parameter OIDs
// for a pinned Stmt (as opposed to execExtended's cache-driven promotion,
// used for ad hoc queries on a pooled, shared connection).
func prepareNamed(ctx context.Context, c *Conn, sql string) (string, []uint32, error) {
	name := c.cn.NextID()

	if err := c.fsm.BeginExtendedQuery(); err != nil {
		return "", nil, err
	}

	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteParse(wb, name, sql, nil)
		protocol.WriteDescribe(wb, protocol.DescribeStatement, name)
		protocol.WriteSync(wb)
		return nil
	}); err != nil {
		return "", nil, err
	}
	c.fsm.OnSyncSent()

	var paramOIDs []uint32
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}

			switch protocol.MsgType(kind) {
			case protocol.MsgParseComplete:
				// no body

			case protocol.MsgParameterDesc:
				pd, err := protocol.ReadParameterDescription(rd)
				if err != nil {
					return err
				}
				paramOIDs = pd.OIDs

			case protocol.MsgRowDescription:
				if _, err := protocol.ReadRowDescription(rd); err != nil {
					return err
				}

			case protocol.MsgNoData:
				// statement returns no rows

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
		return "", nil, err
	}
	if srvErr != nil {
		return "", nil, srvErr
	}
	return name, paramOIDs, nil
}

// execPrepared runs a Bind/Execute/Sync round trip against an
// already-Parsed statement name (used by Stmt.Exec/Stmt.Query).
func execPrepared(ctx context.Context, c *Conn, name string, paramOIDs []uint32, args []interface{}) (*queryOutcome, error) {
	params := make([]protocol.ParamValue, len(args))
	for i, a := range args {
		p, err := encodeParamText(a)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}

	if err := c.fsm.BeginExtendedQuery(); err != nil {
		return nil, err
	}

	if err := c.cn.WithWriter(ctx, c.opt.WriteTimeout, func(wb *pool.WriteBuffer) error {
		protocol.WriteBind(wb, "", name, nil, params, nil)
		protocol.WriteDescribe(wb, protocol.DescribePortal, "")
		protocol.WriteExecute(wb, "", 0)
		protocol.WriteSync(wb)
		return nil
	}); err != nil {
		return nil, err
	}
	c.fsm.OnSyncSent()

	var out queryOutcome
	var srvErr *protocol.ServerError

	err := c.cn.WithReader(ctx, c.opt.ReadTimeout, func(rd *pool.BufReader) error {
		for {
			kind, _, err := rd.ReadMsgType()
			if err != nil {
				return err
			}

			switch protocol.MsgType(kind) {
			case protocol.MsgBindComplete:
				// no body

			case protocol.MsgRowDescription:
				out.desc, err = protocol.ReadRowDescription(rd)
				if err != nil {
					return err
				}

			case protocol.MsgNoData:
				// statement returns no rows

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
				// no-op

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
