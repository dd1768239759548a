package pool

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/go-pg/pgwire/internal"
)

// BufReader is the receive side of the Byte Transport: a bounded, buffered
// reader guaranteeing that a partial read never loses bytes (ReadN blocks
// until it has read exactly n bytes or hits an error).
type BufReader struct {
	br      *bufio.Reader
	readBuf []byte
}

func NewBufReader(r io.Reader) *BufReader {
	return &BufReader{
		br:      bufio.NewReaderSize(r, 1<<15),
		readBuf: make([]byte, 0, 512),
	}
}

func (rd *BufReader) Reset(r io.Reader) {
	rd.br.Reset(r)
}

func (rd *BufReader) Buffered() int {
	return rd.br.Buffered()
}

func (rd *BufReader) ReadByte() (byte, error) {
	return rd.br.ReadByte()
}

// ReadN reads exactly n bytes, reusing an internal scratch buffer. The
// returned slice is only valid until the next ReadN call.
func (rd *BufReader) ReadN(n int) ([]byte, error) {
	if cap(rd.readBuf) < n {
		rd.readBuf = make([]byte, n)
	} else {
		rd.readBuf = rd.readBuf[:n]
	}
	_, err := io.ReadFull(rd.br, rd.readBuf)
	return rd.readBuf, err
}

// ReadFull reads n bytes into a freshly allocated slice (no backing-array
// aliasing), for callers that must keep the data past the next ReadN.
func (rd *BufReader) ReadFull(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rd.br, b)
	return b, err
}

func (rd *BufReader) ReadInt16() (int16, error) {
	b, err := rd.ReadN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (rd *BufReader) ReadInt32() (int32, error) {
	b, err := rd.ReadN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (rd *BufReader) ReadInt64() (int64, error) {
	b, err := rd.ReadN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadString reads a NUL-terminated string, as used for most text fields in
// the protocol (user, database, column names, error fields, ...).
func (rd *BufReader) ReadString() (string, error) {
	b, err := rd.br.ReadSlice(0)
	if err != nil {
		return "", err
	}
	return string(b[:len(b)-1]), nil
}

// ReadMsgType reads the 1-byte kind and 4-byte length prefix of a backend
// message and returns the kind plus the remaining payload length (length
// minus the 4 bytes of the length field itself). A declared length below 4
// or above 1<<30 is rejected.
func (rd *BufReader) ReadMsgType() (byte, int, error) {
	c, err := rd.br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	l, err := rd.ReadInt32()
	if err != nil {
		return 0, 0, err
	}
	if int(l) < 4 {
		return 0, 0, internal.Errorf("pgwire: malformed message length %d", l)
	}
	if int(l) > 1<<30 { // protocol.MaxMessageSize
		return 0, 0, internal.Errorf("pgwire: message length %d exceeds maximum", l)
	}
	return c, int(l) - 4, nil
}
