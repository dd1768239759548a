package types

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Array is the core's representation of a PostgreSQL array value: a
// flattened, row-major slice of decoded element values (nil entries are SQL
// NULL) alongside its dimension sizes and lower bounds. Kept deliberately
// un-reflective: the caller that knows the Go element type converts
// Values itself, matching the OID-table dispatch used everywhere else in
// this package rather than dynamic reflect-based (de)serialization.
type Array struct {
	ElemOID     OID
	Dims        []int32
	LowerBounds []int32
	Values      []interface{}
}

func init() {
	registerArray(OIDBoolArray, OIDBool)
	registerArray(OIDInt2Array, OIDInt2)
	registerArray(OIDInt4Array, OIDInt4)
	registerArray(OIDInt8Array, OIDInt8)
	registerArray(OIDFloat4Array, OIDFloat4)
	registerArray(OIDFloat8Array, OIDFloat8)
	registerArray(OIDTextArray, OIDText)
	registerArray(OIDBpcharArray, OIDChar)
	registerArray(OIDVarcharArr, OIDVarchar)
	registerArray(OIDNumericArr, OIDNumeric)
	registerArray(OIDJSONArray, OIDJSON)
	registerArray(OIDJSONBArray, OIDJSONB)
}

func registerArray(arrayOID, elemOID OID) {
	register(&Codec{
		OID:          arrayOID,
		DecodeText:   func(src []byte) (interface{}, error) { return decodeArrayText(elemOID, src) },
		EncodeText:   func(v interface{}) ([]byte, error) { return encodeArrayText(elemOID, v.(*Array)) },
		DecodeBinary: func(src []byte) (interface{}, error) { return decodeArrayBinary(elemOID, src) },
		EncodeBinary: func(v interface{}) ([]byte, error) { return encodeArrayBinary(elemOID, v.(*Array)) },
	})
}

// --- binary ---

type cursor struct {
	b []byte
	i int
}

func (c *cursor) i32() (int32, error) {
	if c.i+4 > len(c.b) {
		return 0, fmt.Errorf("pgwire: array binary truncated")
	}
	v := int32(binary.BigEndian.Uint32(c.b[c.i : c.i+4]))
	c.i += 4
	return v, nil
}

func decodeArrayBinary(elemOID OID, src []byte) (interface{}, error) {
	c := &cursor{b: src}
	ndim, err := c.i32()
	if err != nil {
		return nil, err
	}
	if _, err := c.i32(); err != nil { // hasnull flag, informational only
		return nil, err
	}
	wireElemOID, err := c.i32()
	if err != nil {
		return nil, err
	}
	_ = wireElemOID

	dims := make([]int32, ndim)
	lbounds := make([]int32, ndim)
	total := int32(1)
	for i := range dims {
		d, err := c.i32()
		if err != nil {
			return nil, err
		}
		lb, err := c.i32()
		if err != nil {
			return nil, err
		}
		dims[i], lbounds[i] = d, lb
		total *= d
	}
	if ndim == 0 {
		total = 0
	}

	values := make([]interface{}, total)
	for i := range values {
		l, err := c.i32()
		if err != nil {
			return nil, err
		}
		if l < 0 {
			values[i] = nil
			continue
		}
		if c.i+int(l) > len(c.b) {
			return nil, fmt.Errorf("pgwire: array element truncated")
		}
		elemBytes := c.b[c.i : c.i+int(l)]
		c.i += int(l)
		v, err := DecodeBinary(elemOID, elemBytes)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return &Array{ElemOID: elemOID, Dims: dims, LowerBounds: lbounds, Values: values}, nil
}

func appendI32(b []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(b, tmp[:]...)
}

func encodeArrayBinary(elemOID OID, arr *Array) ([]byte, error) {
	var buf []byte
	buf = appendI32(buf, int32(len(arr.Dims)))

	hasNull := int32(0)
	for _, v := range arr.Values {
		if v == nil {
			hasNull = 1
			break
		}
	}
	buf = appendI32(buf, hasNull)
	buf = appendI32(buf, int32(elemOID))

	for i, d := range arr.Dims {
		lb := int32(1)
		if i < len(arr.LowerBounds) {
			lb = arr.LowerBounds[i]
		}
		buf = appendI32(buf, d)
		buf = appendI32(buf, lb)
	}

	for _, v := range arr.Values {
		if v == nil {
			buf = appendI32(buf, -1)
			continue
		}
		eb, err := EncodeBinary(elemOID, v)
		if err != nil {
			return nil, err
		}
		buf = appendI32(buf, int32(len(eb)))
		buf = append(buf, eb...)
	}
	return buf, nil
}

// --- text ---

// encodeArrayText renders a (possibly multi-dimensional, but here always
// flattened to one level since the adapter only ever constructs Arrays from
// a flat Go slice) array in PostgreSQL's curly-brace literal form.
func encodeArrayText(elemOID OID, arr *Array) ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, v := range arr.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v == nil {
			sb.WriteString("NULL")
			continue
		}
		eb, err := EncodeText(elemOID, v)
		if err != nil {
			return nil, err
		}
		sb.WriteString(quoteArrayElem(eb))
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

func quoteArrayElem(b []byte) string {
	needsQuote := len(b) == 0
	for _, c := range b {
		switch c {
		case '{', '}', ',', '"', '\\', ' ':
			needsQuote = true
		}
	}
	if !needsQuote {
		return string(b)
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// decodeArrayText parses a single-dimension curly-brace array literal.
// Multi-dimensional literals are not decoded as such: a nested "{...}"
// sub-array is kept whole as one token and handed to elemOID's text codec
// like any other element, which for the core element types rejects it.
func decodeArrayText(elemOID OID, src []byte) (interface{}, error) {
	s := string(src)
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("pgwire: invalid array literal %q", s)
	}
	inner := s[1 : len(s)-1]

	tokens, err := splitArrayTokens(inner)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(tokens))
	for i, tok := range tokens {
		if tok.isNull {
			values[i] = nil
			continue
		}
		v, err := DecodeText(elemOID, []byte(tok.text))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return &Array{
		ElemOID:     elemOID,
		Dims:        []int32{int32(len(values))},
		LowerBounds: []int32{1},
		Values:      values,
	}, nil
}

type arrayToken struct {
	text   string
	isNull bool
}

// splitArrayTokens splits the comma-separated body of one array literal
// level, honoring double-quoted elements (with \\ and \" escapes) and
// depth-tracked nested braces so a nested sub-array is returned whole.
func splitArrayTokens(s string) ([]arrayToken, error) {
	if s == "" {
		return nil, nil
	}

	var tokens []arrayToken
	var cur strings.Builder
	quoted := false
	wasQuoted := false
	depth := 0

	flush := func() {
		text := cur.String()
		if !wasQuoted && text == "NULL" {
			tokens = append(tokens, arrayToken{isNull: true})
		} else {
			tokens = append(tokens, arrayToken{text: text})
		}
		cur.Reset()
		wasQuoted = false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quoted:
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					cur.WriteByte(s[i])
				}
			case '"':
				quoted = false
			default:
				cur.WriteByte(c)
			}
		case c == '"':
			quoted = true
			wasQuoted = true
		case c == '{':
			depth++
			cur.WriteByte(c)
		case c == '}':
			depth--
			cur.WriteByte(c)
		case c == ',' && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	if quoted || depth != 0 {
		return nil, fmt.Errorf("pgwire: unterminated array literal")
	}
	return tokens, nil
}
