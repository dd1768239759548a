package pool

import (
	"encoding/binary"

	"github.com/vmihailenco/bufpool"
)

var bufferPool bufpool.Pool

var nullParamLength = int32(-1)

// WriteBuffer accumulates one or more frontend messages before a single flush
// to the wire. StartMessage/FinishMessage bracket a message so its 4-byte
// length prefix (which, per the protocol, includes itself but excludes the
// leading kind byte) can be backpatched once the payload is known.
type WriteBuffer struct {
	Bytes []byte
	start []int

	pooled *bufpool.Buffer
}

func NewWriteBuffer() *WriteBuffer {
	pb := bufferPool.Get()
	return &WriteBuffer{
		Bytes:  pb.Bytes()[:0],
		pooled: pb,
	}
}

// StartMessage opens a message. Pass 0 for a startup-style message that has
// no leading kind byte.
func (buf *WriteBuffer) StartMessage(c byte) {
	if c == 0 {
		buf.start = append(buf.start, len(buf.Bytes))
		buf.Bytes = append(buf.Bytes, 0, 0, 0, 0)
	} else {
		buf.start = append(buf.start, len(buf.Bytes)+1)
		buf.Bytes = append(buf.Bytes, c, 0, 0, 0, 0)
	}
}

func (buf *WriteBuffer) popStart() int {
	start := buf.start[len(buf.start)-1]
	buf.start = buf.start[:len(buf.start)-1]
	return start
}

// FinishMessage backpatches the length prefix opened by the matching
// StartMessage.
func (buf *WriteBuffer) FinishMessage() {
	start := buf.popStart()
	binary.BigEndian.PutUint32(buf.Bytes[start:], uint32(len(buf.Bytes)-start))
}

// StartParam/FinishParam/FinishNullParam bracket one Bind parameter value,
// whose length prefix does NOT include itself (unlike a message length).
func (buf *WriteBuffer) StartParam() {
	buf.start = append(buf.start, len(buf.Bytes))
	buf.Bytes = append(buf.Bytes, 0, 0, 0, 0)
}

func (buf *WriteBuffer) FinishParam() {
	start := buf.popStart()
	binary.BigEndian.PutUint32(buf.Bytes[start:], uint32(len(buf.Bytes)-start-4))
}

func (buf *WriteBuffer) FinishNullParam() {
	start := buf.popStart()
	binary.BigEndian.PutUint32(buf.Bytes[start:], uint32(nullParamLength))
}

func (buf *WriteBuffer) Write(b []byte) (int, error) {
	buf.Bytes = append(buf.Bytes, b...)
	return len(b), nil
}

func (buf *WriteBuffer) WriteByte(c byte) error {
	buf.Bytes = append(buf.Bytes, c)
	return nil
}

func (buf *WriteBuffer) WriteInt16(num int16) {
	buf.Bytes = append(buf.Bytes, 0, 0)
	binary.BigEndian.PutUint16(buf.Bytes[len(buf.Bytes)-2:], uint16(num))
}

func (buf *WriteBuffer) WriteInt32(num int32) {
	buf.Bytes = append(buf.Bytes, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(buf.Bytes[len(buf.Bytes)-4:], uint32(num))
}

func (buf *WriteBuffer) WriteString(s string) {
	buf.Bytes = append(buf.Bytes, s...)
	buf.Bytes = append(buf.Bytes, 0)
}

func (buf *WriteBuffer) WriteBytes(b []byte) {
	buf.Bytes = append(buf.Bytes, b...)
}

func (buf *WriteBuffer) Reset() {
	buf.start = buf.start[:0]
	buf.Bytes = buf.Bytes[:0]
}

// Release returns the backing array to the shared buffer pool. Call once the
// WriteBuffer itself is no longer needed (connection close), not per-flush.
func (buf *WriteBuffer) Release() {
	buf.pooled.ResetBuf(buf.Bytes[:0])
	bufferPool.Put(buf.pooled)
}
