package protocol

import (
	"fmt"

	"github.com/go-pg/pgwire/internal/pool"
)

// ColumnDescriptor is one field of a RowDescription, identifying how the
// matching column of every following DataRow is typed and encoded.
type ColumnDescriptor struct {
	Name         string
	TableOID     uint32
	TableAttNum  int16
	DataTypeOID  uint32
	DataTypeSize int16
	TypeModifier int32
	Format       FormatCode
}

type RowDescription struct {
	Fields []ColumnDescriptor
}

// ReadRowDescription decodes a 'T' message body (payload already framed by
// the caller via BufReader.ReadMsgType).
func ReadRowDescription(rd *pool.BufReader) (*RowDescription, error) {
	n, err := rd.ReadInt16()
	if err != nil {
		return nil, err
	}
	fields := make([]ColumnDescriptor, n)
	for i := range fields {
		name, err := rd.ReadString()
		if err != nil {
			return nil, err
		}
		tableOID, err := rd.ReadInt32()
		if err != nil {
			return nil, err
		}
		attNum, err := rd.ReadInt16()
		if err != nil {
			return nil, err
		}
		typeOID, err := rd.ReadInt32()
		if err != nil {
			return nil, err
		}
		typeSize, err := rd.ReadInt16()
		if err != nil {
			return nil, err
		}
		typeMod, err := rd.ReadInt32()
		if err != nil {
			return nil, err
		}
		format, err := rd.ReadInt16()
		if err != nil {
			return nil, err
		}
		fields[i] = ColumnDescriptor{
			Name:         name,
			TableOID:     uint32(tableOID),
			TableAttNum:  attNum,
			DataTypeOID:  uint32(typeOID),
			DataTypeSize: typeSize,
			TypeModifier: typeMod,
			Format:       FormatCode(format),
		}
	}
	return &RowDescription{Fields: fields}, nil
}

// DataRow holds one row's raw column values. A nil entry means SQL NULL, as
// distinct from a zero-length non-NULL value.
type DataRow struct {
	Values [][]byte
}

func ReadDataRow(rd *pool.BufReader) (*DataRow, error) {
	n, err := rd.ReadInt16()
	if err != nil {
		return nil, err
	}
	values := make([][]byte, n)
	for i := range values {
		l, err := rd.ReadInt32()
		if err != nil {
			return nil, err
		}
		if l < 0 {
			values[i] = nil
			continue
		}
		b, err := rd.ReadFull(int(l))
		if err != nil {
			return nil, err
		}
		values[i] = b
	}
	return &DataRow{Values: values}, nil
}

// CommandComplete carries the server's command tag, e.g. "INSERT 0 1" or
// "SELECT 3".
type CommandComplete struct {
	Tag string
}

func ReadCommandComplete(rd *pool.BufReader) (*CommandComplete, error) {
	s, err := rd.ReadString()
	if err != nil {
		return nil, err
	}
	return &CommandComplete{Tag: s}, nil
}

// Field codes within ErrorResponse/NoticeResponse, per §4.2.
const (
	FieldSeverity     = 'S'
	FieldSeverityV    = 'V'
	FieldCode         = 'C'
	FieldMessage      = 'M'
	FieldDetail       = 'D'
	FieldHint         = 'H'
	FieldPosition     = 'P'
	FieldInternalPos  = 'p'
	FieldInternalQry  = 'q'
	FieldWhere        = 'W'
	FieldSchemaName   = 's'
	FieldTableName    = 't'
	FieldColumnName   = 'c'
	FieldDataTypeName = 'd'
	FieldConstraint   = 'n'
	FieldFile         = 'F'
	FieldLine         = 'L'
	FieldRoutine      = 'R'
)

// ServerError is the parsed field map of an ErrorResponse or NoticeResponse.
type ServerError struct {
	Fields map[byte]string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("pgwire: %s: %s (SQLSTATE %s)", e.Fields[FieldSeverity], e.Fields[FieldMessage], e.Fields[FieldCode])
}

func (e *ServerError) Code() string    { return e.Fields[FieldCode] }
func (e *ServerError) Message() string { return e.Fields[FieldMessage] }
func (e *ServerError) Detail() string  { return e.Fields[FieldDetail] }
func (e *ServerError) Hint() string    { return e.Fields[FieldHint] }

// ReadServerError decodes the shared wire shape of ErrorResponse and
// NoticeResponse: a sequence of (byte code, NUL-terminated string) pairs
// terminated by a NUL byte in place of a code.
func ReadServerError(rd *pool.BufReader) (*ServerError, error) {
	fields := make(map[byte]string)
	for {
		c, err := rd.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == 0 {
			break
		}
		s, err := rd.ReadString()
		if err != nil {
			return nil, err
		}
		fields[c] = s
	}
	return &ServerError{Fields: fields}, nil
}

type ParameterStatus struct {
	Name  string
	Value string
}

func ReadParameterStatus(rd *pool.BufReader) (*ParameterStatus, error) {
	name, err := rd.ReadString()
	if err != nil {
		return nil, err
	}
	value, err := rd.ReadString()
	if err != nil {
		return nil, err
	}
	return &ParameterStatus{Name: name, Value: value}, nil
}

type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

func ReadBackendKeyData(rd *pool.BufReader) (*BackendKeyData, error) {
	pid, err := rd.ReadInt32()
	if err != nil {
		return nil, err
	}
	key, err := rd.ReadInt32()
	if err != nil {
		return nil, err
	}
	return &BackendKeyData{ProcessID: pid, SecretKey: key}, nil
}

// ReadReadyForQuery returns the transaction status byte (TxStatusIdle,
// TxStatusInBlock or TxStatusInFailedBlock).
func ReadReadyForQuery(rd *pool.BufReader) (byte, error) {
	return rd.ReadByte()
}

// AuthRequest is the decoded body of an 'R' Authentication message. Sub == AuthOK,
// AuthCleartextPassword, AuthMD5Password, AuthSASL, AuthSASLContinue or
// AuthSASLFinal. Data carries the MD5 salt, the SASL mechanism list, or the
// SASL challenge/outcome bytes, depending on Sub.
type AuthRequest struct {
	Sub  int32
	Data []byte
}

func ReadAuthRequest(rd *pool.BufReader, bodyLen int) (*AuthRequest, error) {
	sub, err := rd.ReadInt32()
	if err != nil {
		return nil, err
	}
	rest := bodyLen - 4
	if rest <= 0 {
		return &AuthRequest{Sub: sub}, nil
	}
	data, err := rd.ReadFull(rest)
	if err != nil {
		return nil, err
	}
	return &AuthRequest{Sub: sub, Data: data}, nil
}

// ParameterDescription is the 't' message: the inferred/declared OID of each
// parameter of a just-Described statement.
type ParameterDescription struct {
	OIDs []uint32
}

func ReadParameterDescription(rd *pool.BufReader) (*ParameterDescription, error) {
	n, err := rd.ReadInt16()
	if err != nil {
		return nil, err
	}
	oids := make([]uint32, n)
	for i := range oids {
		v, err := rd.ReadInt32()
		if err != nil {
			return nil, err
		}
		oids[i] = uint32(v)
	}
	return &ParameterDescription{OIDs: oids}, nil
}

// ReadCopyResponse decodes the shared shape of CopyInResponse/CopyOutResponse/
// CopyBothResponse: an overall format code followed by one format code per
// column.
type CopyResponse struct {
	OverallFormat FormatCode
	ColumnFormats []FormatCode
}

func ReadCopyResponse(rd *pool.BufReader) (*CopyResponse, error) {
	overall, err := rd.ReadByte()
	if err != nil {
		return nil, err
	}
	n, err := rd.ReadInt16()
	if err != nil {
		return nil, err
	}
	formats := make([]FormatCode, n)
	for i := range formats {
		f, err := rd.ReadInt16()
		if err != nil {
			return nil, err
		}
		formats[i] = FormatCode(f)
	}
	return &CopyResponse{OverallFormat: FormatCode(overall), ColumnFormats: formats}, nil
}

// ReadCopyData reads a CopyData message body: a raw chunk of COPY stream
// bytes, valid only until the next BufReader call (copy it if you keep it).
func ReadCopyData(rd *pool.BufReader, bodyLen int) ([]byte, error) {
	return rd.ReadN(bodyLen)
}

// ReadNotificationResponse decodes an async LISTEN/NOTIFY payload. Carried
// for completeness; the driver core does not act on it (Non-goal: LISTEN/NOTIFY
// channel registration is out of scope).
type NotificationResponse struct {
	ProcessID int32
	Channel   string
	Payload   string
}

func ReadNotificationResponse(rd *pool.BufReader) (*NotificationResponse, error) {
	pid, err := rd.ReadInt32()
	if err != nil {
		return nil, err
	}
	channel, err := rd.ReadString()
	if err != nil {
		return nil, err
	}
	payload, err := rd.ReadString()
	if err != nil {
		return nil, err
	}
	return &NotificationResponse{ProcessID: pid, Channel: channel, Payload: payload}, nil
}
