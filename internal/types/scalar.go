package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

func init() {
	registerBool()
	registerInts()
	registerFloats()
	registerText()
}

func registerBool() {
	register(&Codec{
		OID: OIDBool,
		DecodeText: func(src []byte) (interface{}, error) {
			switch string(src) {
			case "t":
				return true, nil
			case "f":
				return false, nil
			default:
				return nil, fmt.Errorf("pgwire: invalid bool text %q", src)
			}
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			if v.(bool) {
				return []byte("t"), nil
			}
			return []byte("f"), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 1 {
				return nil, fmt.Errorf("pgwire: invalid bool binary length %d", len(src))
			}
			return src[0] != 0, nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			if v.(bool) {
				return []byte{1}, nil
			}
			return []byte{0}, nil
		},
	})
}

func registerInts() {
	register(&Codec{
		OID: OIDInt2,
		DecodeText: func(src []byte) (interface{}, error) {
			n, err := strconv.ParseInt(string(src), 10, 16)
			return int16(n), err
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return strconv.AppendInt(nil, int64(v.(int16)), 10), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 2 {
				return nil, fmt.Errorf("pgwire: invalid int2 binary length %d", len(src))
			}
			return int16(binary.BigEndian.Uint16(src)), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 2)
			binary.BigEndian.PutUint16(b, uint16(v.(int16)))
			return b, nil
		},
	})

	register(&Codec{
		OID: OIDInt4,
		DecodeText: func(src []byte) (interface{}, error) {
			n, err := strconv.ParseInt(string(src), 10, 32)
			return int32(n), err
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return strconv.AppendInt(nil, int64(v.(int32)), 10), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 4 {
				return nil, fmt.Errorf("pgwire: invalid int4 binary length %d", len(src))
			}
			return int32(binary.BigEndian.Uint32(src)), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, uint32(v.(int32)))
			return b, nil
		},
	})

	register(&Codec{
		OID: OIDInt8,
		DecodeText: func(src []byte) (interface{}, error) {
			return strconv.ParseInt(string(src), 10, 64)
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			if n, ok := v.(int); ok {
				return strconv.AppendInt(nil, int64(n), 10), nil
			}
			return strconv.AppendInt(nil, v.(int64), 10), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 8 {
				return nil, fmt.Errorf("pgwire: invalid int8 binary length %d", len(src))
			}
			return int64(binary.BigEndian.Uint64(src)), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 8)
			if n, ok := v.(int); ok {
				binary.BigEndian.PutUint64(b, uint64(n))
				return b, nil
			}
			binary.BigEndian.PutUint64(b, uint64(v.(int64)))
			return b, nil
		},
	})

	register(&Codec{
		OID: OIDOID,
		DecodeText: func(src []byte) (interface{}, error) {
			n, err := strconv.ParseUint(string(src), 10, 32)
			return uint32(n), err
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return strconv.AppendUint(nil, uint64(v.(uint32)), 10), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 4 {
				return nil, fmt.Errorf("pgwire: invalid oid binary length %d", len(src))
			}
			return binary.BigEndian.Uint32(src), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, v.(uint32))
			return b, nil
		},
	})
}

func registerFloats() {
	register(&Codec{
		OID: OIDFloat4,
		DecodeText: func(src []byte) (interface{}, error) {
			n, err := strconv.ParseFloat(string(src), 32)
			return float32(n), err
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return strconv.AppendFloat(nil, float64(v.(float32)), 'g', -1, 32), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 4 {
				return nil, fmt.Errorf("pgwire: invalid float4 binary length %d", len(src))
			}
			return math.Float32frombits(binary.BigEndian.Uint32(src)), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, math.Float32bits(v.(float32)))
			return b, nil
		},
	})

	register(&Codec{
		OID: OIDFloat8,
		DecodeText: func(src []byte) (interface{}, error) {
			return strconv.ParseFloat(string(src), 64)
		},
		EncodeText: func(v interface{}) ([]byte, error) {
			return strconv.AppendFloat(nil, v.(float64), 'g', -1, 64), nil
		},
		DecodeBinary: func(src []byte) (interface{}, error) {
			if len(src) != 8 {
				return nil, fmt.Errorf("pgwire: invalid float8 binary length %d", len(src))
			}
			return math.Float64frombits(binary.BigEndian.Uint64(src)), nil
		},
		EncodeBinary: func(v interface{}) ([]byte, error) {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, math.Float64bits(v.(float64)))
			return b, nil
		},
	})
}

// registerText covers text/varchar/bpchar/json/jsonb: all five are
// byte-identical on the wire, text or binary, as plain (or JSON-valid UTF-8)
// strings.
func registerText() {
	textCodec := func(oid OID) *Codec {
		return &Codec{
			OID: oid,
			DecodeText: func(src []byte) (interface{}, error) {
				return string(src), nil
			},
			EncodeText: func(v interface{}) ([]byte, error) {
				return []byte(v.(string)), nil
			},
			DecodeBinary: func(src []byte) (interface{}, error) {
				return string(src), nil
			},
			EncodeBinary: func(v interface{}) ([]byte, error) {
				return []byte(v.(string)), nil
			},
		}
	}
	register(textCodec(OIDText))
	register(textCodec(OIDVarchar))
	register(textCodec(OIDChar))
	register(textCodec(OIDJSON))
	register(textCodec(OIDJSONB))
}
