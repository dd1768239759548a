// Package protocol implements the PostgreSQL frontend/backend wire protocol
// version 3.0: message framing and parsing (the Message Codec) and the
// connection lifecycle state machine layered on top of it.
package protocol

// MsgType is the single kind byte leading every backend message and most
// frontend messages (the exceptions are StartupMessage, SSLRequest and
// CancelRequest, which carry no kind byte at all).
type MsgType byte

// Frontend message kinds.
const (
	MsgPassword  MsgType = 'p' // PasswordMessage / SASLInitialResponse / SASLResponse / GSSResponse
	MsgQuery     MsgType = 'Q'
	MsgParse     MsgType = 'P'
	MsgBind      MsgType = 'B'
	MsgDescribe  MsgType = 'D'
	MsgExecute   MsgType = 'E'
	MsgSync      MsgType = 'S'
	MsgClose     MsgType = 'C'
	MsgFlush     MsgType = 'H'
	MsgTerminate MsgType = 'X'
	MsgCopyData  MsgType = 'd'
	MsgCopyDone  MsgType = 'c'
	MsgCopyFail  MsgType = 'f'
)

// Backend message kinds. A few letters are reused between frontend and
// backend (e.g. 'D' is Describe from the client but DataRow from the
// server); the codec never confuses the two because it always knows which
// direction it is decoding.
const (
	MsgAuthentication     MsgType = 'R'
	MsgBackendKeyData     MsgType = 'K'
	MsgParameterStatus    MsgType = 'S'
	MsgReadyForQuery      MsgType = 'Z'
	MsgRowDescription     MsgType = 'T'
	MsgDataRow            MsgType = 'D'
	MsgCommandComplete    MsgType = 'C'
	MsgErrorResponse      MsgType = 'E'
	MsgNoticeResponse     MsgType = 'N'
	MsgParseComplete      MsgType = '1'
	MsgBindComplete       MsgType = '2'
	MsgCloseComplete      MsgType = '3'
	MsgNoData             MsgType = 'n'
	MsgParameterDesc      MsgType = 't'
	MsgEmptyQueryResponse MsgType = 'I'
	MsgPortalSuspended    MsgType = 's'
	MsgCopyInResponse     MsgType = 'G'
	MsgCopyOutResponse    MsgType = 'H'
	MsgNotificationResp   MsgType = 'A'
)

// Authentication sub-types, carried as the first int32 of an 'R' message.
const (
	AuthOK                int32 = 0
	AuthCleartextPassword int32 = 3
	AuthMD5Password       int32 = 5
	AuthSASL              int32 = 10
	AuthSASLContinue      int32 = 11
	AuthSASLFinal         int32 = 12
)

// Transaction status byte carried by ReadyForQuery.
const (
	TxStatusIdle          byte = 'I'
	TxStatusInBlock       byte = 'T'
	TxStatusInFailedBlock byte = 'E'
)

// FormatCode distinguishes textual from binary field encoding, as declared
// per-column in RowDescription and per-parameter in Bind.
type FormatCode int16

const (
	FormatText   FormatCode = 0
	FormatBinary FormatCode = 1
)

// ProtocolVersion is frontend/backend protocol 3.0, encoded 3<<16 | 0.
const ProtocolVersion int32 = 196608

// SSLRequestCode and CancelRequestCode are the magic numbers sent in lieu of
// a real protocol version in the first 4 bytes after the length, so the
// server can distinguish these pseudo-startup messages from a real one.
const (
	SSLRequestCode    int32 = 80877103
	CancelRequestCode int32 = 80877102
)

// MaxMessageSize is the upper bound on a single message's declared length
// (including the length field). §4.2: pool.BufReader.ReadMsgType rejects
// anything larger as malformed rather than attempting to allocate 1GB+.
const MaxMessageSize = 1 << 30
