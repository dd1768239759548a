package types

import (
	"encoding/binary"
	"fmt"

	"github.com/go-pg/pgwire/internal/temporal"
)

func init() {
	register(&Codec{
		OID: OIDTimestampTZ,
		DecodeText: func(src []byte) (interface{}, error) {
			return temporal.ParseInstant(string(src))
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return []byte(temporal.FormatInstant(v.(temporal.Instant))), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			micros, err := readInt64(src)
			if err != nil {
				return nil, err
			}
			return temporal.DecodeInstantBinary(micros), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			return writeInt64(temporal.EncodeInstantBinary(v.(temporal.Instant))), nil
		},
	})

	register(&Codec{
		OID: OIDTimestamp,
		DecodeText: func(src []byte) (interface{}, error) {
			return temporal.ParseLocalTimestamp(string(src))
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return []byte(temporal.FormatLocalTimestamp(v.(temporal.LocalTime))), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			micros, err := readInt64(src)
			if err != nil {
				return nil, err
			}
			return temporal.DecodeLocalTimestampBinary(micros), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			return writeInt64(temporal.EncodeLocalTimestampBinary(v.(temporal.LocalTime))), nil
		},
	})

	register(&Codec{
		OID: OIDDate,
		DecodeText: func(src []byte) (interface{}, error) {
			return temporal.ParseDate(string(src))
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return []byte(temporal.FormatDate(v.(temporal.LocalTime))), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			days, err := readInt32(src)
			if err != nil {
				return nil, err
			}
			return temporal.DecodeDateBinary(days), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			return writeInt32(temporal.EncodeDateBinary(v.(temporal.LocalTime))), nil
		},
	})

	register(&Codec{
		OID: OIDTime,
		DecodeText: func(src []byte) (interface{}, error) {
			return temporal.ParseLocalClockTime(string(src))
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return []byte(temporal.FormatLocalClockTime(v.(temporal.LocalTime))), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			micros, err := readInt64(src)
			if err != nil {
				return nil, err
			}
			return temporal.DecodeClockTimeBinary(micros), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			return writeInt64(temporal.EncodeClockTimeBinary(v.(temporal.LocalTime))), nil
		},
	})

	register(&Codec{
		OID: OIDTimeTZ,
		DecodeText: func(src []byte) (interface{}, error) {
			return temporal.ParseOffsetClockTime(string(src))
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return []byte(temporal.FormatOffsetClockTime(v.(temporal.Instant))), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 12 {
				return nil, fmt.Errorf("pgwire: invalid timetz binary length %d", len(src))
			}
			micros, err := readInt64(src[:8])
			if err != nil {
				return nil, err
			}
			offset, err := readInt32(src[8:])
			if err != nil {
				return nil, err
			}
			return temporal.DecodeOffsetClockTimeBinary(micros, -offset), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			micros, offset := temporal.EncodeOffsetClockTimeBinary(v.(temporal.Instant))
			buf := writeInt64(micros)
			return append(buf, writeInt32(-offset)...), nil
		},
	})
}

func readInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("pgwire: expected 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func readInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("pgwire: expected 4 bytes, got %d", len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func writeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func writeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}
