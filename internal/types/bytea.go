package types

import (
	"bytes"
	"fmt"

	"github.com/tmthrgd/go-hex"
)

func init() {
	register(&Codec{
		OID:          OIDBytea,
		DecodeText:   decodeByteaText,
		EncodeText:   encodeByteaText,
		DecodeBinary: func(src []byte) (interface{}, error) { return append([]byte(nil), src...), nil },
		EncodeBinary: func(v interface{}) ([]byte, error) { return v.([]byte), nil },
	})
}

// encodeByteaText always emits the modern hex format, \x followed by two
// hex digits per byte. PostgreSQL has accepted this format since 9.0; the
// legacy octal-escape format is decode-only, for servers that still emit it
// under bytea_output=escape.
func encodeByteaText(v interface{}) ([]byte, error) {
	b := v.([]byte)
	if b == nil {
		return nil, nil
	}
	dst := make([]byte, 2+hex.EncodedLen(len(b)))
	dst[0], dst[1] = '\\', 'x'
	hex.Encode(dst[2:], b)
	return dst, nil
}

func decodeByteaText(src []byte) (interface{}, error) {
	if bytes.HasPrefix(src, []byte{'\\', 'x'}) {
		buf := src[2:]
		dst := make([]byte, hex.DecodedLen(len(buf)))
		n, err := hex.Decode(dst, buf)
		if err != nil {
			return nil, fmt.Errorf("pgwire: invalid bytea hex encoding: %w", err)
		}
		return dst[:n], nil
	}
	return decodeByteaEscape(src)
}

// decodeByteaEscape decodes the legacy bytea_output=escape format: printable
// ASCII passes through, \\ is a literal backslash, and \NNN is an octal byte
// value.
func decodeByteaEscape(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' {
			dst = append(dst, c)
			continue
		}
		if i+1 < len(src) && src[i+1] == '\\' {
			dst = append(dst, '\\')
			i++
			continue
		}
		if i+3 < len(src) {
			o := src[i+1 : i+4]
			var v int
			valid := true
			for _, d := range o {
				if d < '0' || d > '7' {
					valid = false
					break
				}
				v = v*8 + int(d-'0')
			}
			if valid {
				dst = append(dst, byte(v))
				i += 3
				continue
			}
		}
		return nil, fmt.Errorf("pgwire: invalid bytea escape sequence at byte %d", i)
	}
	return dst, nil
}
