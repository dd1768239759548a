package protocol

import (
	"github.com/go-pg/pgwire/internal/pool"
)

// WriteStartup writes the initial, kind-byte-less startup message: protocol
// version followed by key/value parameter pairs, terminated by a lone NUL.
func WriteStartup(buf *pool.WriteBuffer, params map[string]string) {
	buf.StartMessage(0)
	buf.WriteInt32(ProtocolVersion)
	for k, v := range params {
		buf.WriteString(k)
		buf.WriteString(v)
	}
	buf.WriteByte(0)
	buf.FinishMessage()
}

// WriteSSLRequest writes the pseudo-startup message a client sends before the
// real startup message to negotiate TLS.
func WriteSSLRequest(buf *pool.WriteBuffer) {
	buf.StartMessage(0)
	buf.WriteInt32(SSLRequestCode)
	buf.FinishMessage()
}

// WriteCancelRequest writes the 16-byte cancellation payload. Per §4.5/§6
// this is sent on a brand-new, throwaway transport, never the main connection.
func WriteCancelRequest(buf *pool.WriteBuffer, processID, secretKey int32) {
	buf.StartMessage(0)
	buf.WriteInt32(CancelRequestCode)
	buf.WriteInt32(processID)
	buf.WriteInt32(secretKey)
	buf.FinishMessage()
}

func WritePassword(buf *pool.WriteBuffer, password string) {
	buf.StartMessage(byte(MsgPassword))
	buf.WriteString(password)
	buf.FinishMessage()
}

// WriteSASLInitialResponse and WriteSASLResponse reuse the PasswordMessage
// kind byte per the protocol's SASL sub-exchange.
func WriteSASLInitialResponse(buf *pool.WriteBuffer, mechanism string, initial []byte) {
	buf.StartMessage(byte(MsgPassword))
	buf.WriteString(mechanism)
	if initial == nil {
		buf.WriteInt32(-1)
	} else {
		buf.WriteInt32(int32(len(initial)))
		buf.WriteBytes(initial)
	}
	buf.FinishMessage()
}

func WriteSASLResponse(buf *pool.WriteBuffer, resp []byte) {
	buf.StartMessage(byte(MsgPassword))
	buf.WriteBytes(resp)
	buf.FinishMessage()
}

// WriteQuery writes a simple-query-protocol Query message.
func WriteQuery(buf *pool.WriteBuffer, sql string) {
	buf.StartMessage(byte(MsgQuery))
	buf.WriteString(sql)
	buf.FinishMessage()
}

// WriteParse writes a Parse message. name == "" means the unnamed statement.
// paramOIDs may be nil or shorter than the statement's real parameter count;
// the server infers the rest.
func WriteParse(buf *pool.WriteBuffer, name, sql string, paramOIDs []uint32) {
	buf.StartMessage(byte(MsgParse))
	buf.WriteString(name)
	buf.WriteString(sql)
	buf.WriteInt16(int16(len(paramOIDs)))
	for _, oid := range paramOIDs {
		buf.WriteInt32(int32(oid))
	}
	buf.FinishMessage()
}

// ParamValue is one Bind parameter: either explicitly NULL, or length-prefixed
// bytes already encoded per its chosen format code.
type ParamValue struct {
	IsNull bool
	Bytes  []byte
}

// WriteBind writes a Bind message binding portal to statement, with one
// format code per parameter (or a single code applied to all, or none for
// all-text) and one format code per result column.
func WriteBind(
	buf *pool.WriteBuffer,
	portal, statement string,
	paramFormats []FormatCode,
	params []ParamValue,
	resultFormats []FormatCode,
) {
	buf.StartMessage(byte(MsgBind))
	buf.WriteString(portal)
	buf.WriteString(statement)

	buf.WriteInt16(int16(len(paramFormats)))
	for _, f := range paramFormats {
		buf.WriteInt16(int16(f))
	}

	buf.WriteInt16(int16(len(params)))
	for _, p := range params {
		if p.IsNull {
			buf.WriteInt32(-1)
			continue
		}
		buf.WriteInt32(int32(len(p.Bytes)))
		buf.WriteBytes(p.Bytes)
	}

	buf.WriteInt16(int16(len(resultFormats)))
	for _, f := range resultFormats {
		buf.WriteInt16(int16(f))
	}
	buf.FinishMessage()
}

// DescribeTarget selects whether Describe targets a prepared statement ('S')
// or a portal ('P').
type DescribeTarget byte

const (
	DescribeStatement DescribeTarget = 'S'
	DescribePortal    DescribeTarget = 'P'
)

func WriteDescribe(buf *pool.WriteBuffer, target DescribeTarget, name string) {
	buf.StartMessage(byte(MsgDescribe))
	buf.WriteByte(byte(target))
	buf.WriteString(name)
	buf.FinishMessage()
}

// WriteExecute writes an Execute message. maxRows == 0 means "no limit".
func WriteExecute(buf *pool.WriteBuffer, portal string, maxRows int32) {
	buf.StartMessage(byte(MsgExecute))
	buf.WriteString(portal)
	buf.WriteInt32(maxRows)
	buf.FinishMessage()
}

func WriteSync(buf *pool.WriteBuffer) {
	buf.StartMessage(byte(MsgSync))
	buf.FinishMessage()
}

func WriteFlush(buf *pool.WriteBuffer) {
	buf.StartMessage(byte(MsgFlush))
	buf.FinishMessage()
}

// CloseTarget mirrors DescribeTarget for the Close message.
type CloseTarget byte

const (
	CloseStatement CloseTarget = 'S'
	ClosePortal    CloseTarget = 'P'
)

func WriteClose(buf *pool.WriteBuffer, target CloseTarget, name string) {
	buf.StartMessage(byte(MsgClose))
	buf.WriteByte(byte(target))
	buf.WriteString(name)
	buf.FinishMessage()
}

func WriteTerminate(buf *pool.WriteBuffer) {
	buf.StartMessage(byte(MsgTerminate))
	buf.FinishMessage()
}

func WriteCopyData(buf *pool.WriteBuffer, chunk []byte) {
	buf.StartMessage(byte(MsgCopyData))
	buf.WriteBytes(chunk)
	buf.FinishMessage()
}

func WriteCopyDone(buf *pool.WriteBuffer) {
	buf.StartMessage(byte(MsgCopyDone))
	buf.FinishMessage()
}

func WriteCopyFail(buf *pool.WriteBuffer, reason string) {
	buf.StartMessage(byte(MsgCopyFail))
	buf.WriteString(reason)
	buf.FinishMessage()
}
