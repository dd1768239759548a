package types

import "fmt"

// Codec is the pair of encode/decode functions registered for one OID. A
// nil decode/encode function means that direction is unsupported for this
// type (e.g. no driver ever needs to encode a server-only pseudo-type).
//
// Decode functions are never called for SQL NULL: DecodeText and
// DecodeBinary return (nil, nil) for a nil src before consulting the
// registry. Encode functions receive the typed Go value produced by the
// caller and must never be asked to encode NULL (callers special-case NULL
// before consulting the registry, per §4.3).
type Codec struct {
	OID OID

	DecodeText   func(src []byte) (interface{}, error)
	EncodeText   func(v interface{}) ([]byte, error)
	DecodeBinary func(src []byte) (interface{}, error)
	EncodeBinary func(v interface{}) ([]byte, error)
}

// registry is the fixed table keyed by OID, built once at init time. The
// core never does dynamic dispatch by Go reflect.Kind for wire codecs; every
// supported type has an explicit entry here.
var registry = map[OID]*Codec{}

func register(c *Codec) {
	if _, dup := registry[c.OID]; dup {
		panic(fmt.Sprintf("pgwire: duplicate codec registration for OID %d", c.OID))
	}
	registry[c.OID] = c
}

// Lookup returns the codec registered for oid, or nil if oid is not in the
// core's fixed type catalogue.
func Lookup(oid OID) *Codec {
	return registry[oid]
}

// DecodeText decodes src (nil means SQL NULL) as the text representation of
// oid. Unknown OIDs fall back to returning the raw string, matching the
// driver's text-fallback rule for types outside the core set.
func DecodeText(oid OID, src []byte) (interface{}, error) {
	if src == nil {
		return nil, nil
	}
	if c := registry[oid]; c != nil && c.DecodeText != nil {
		return c.DecodeText(src)
	}
	return string(src), nil
}

// DecodeBinary decodes src (nil means SQL NULL) as the binary representation
// of oid. Unlike DecodeText, there is no generic fallback: a binary format
// must be registered explicitly, or the caller should have negotiated text
// format for that column instead (§4.3: binary support is opt-in per type).
func DecodeBinary(oid OID, src []byte) (interface{}, error) {
	if src == nil {
		return nil, nil
	}
	c := registry[oid]
	if c == nil || c.DecodeBinary == nil {
		return nil, fmt.Errorf("pgwire: no binary decoder registered for OID %d", oid)
	}
	return c.DecodeBinary(src)
}

func EncodeText(oid OID, v interface{}) ([]byte, error) {
	c := registry[oid]
	if c == nil || c.EncodeText == nil {
		return nil, fmt.Errorf("pgwire: no text encoder registered for OID %d", oid)
	}
	return c.EncodeText(v)
}

func EncodeBinary(oid OID, v interface{}) ([]byte, error) {
	c := registry[oid]
	if c == nil || c.EncodeBinary == nil {
		return nil, fmt.Errorf("pgwire: no binary encoder registered for OID %d", oid)
	}
	return c.EncodeBinary(v)
}
