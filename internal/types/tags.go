package types

import "github.com/vmihailenco/tagparser"

// namedOIDs maps the type-name aliases accepted in a `pgtype:"..."` struct
// tag to their OID, for the cases where a bare Go type is ambiguous about
// which SQL array/composite element type it binds to (e.g. []string could
// be text[], varchar[] or bpchar[]).
var namedOIDs = map[string]OID{
	"bool":        OIDBool,
	"bytea":       OIDBytea,
	"char":        OIDChar,
	"int2":        OIDInt2,
	"int4":        OIDInt4,
	"int8":        OIDInt8,
	"float4":      OIDFloat4,
	"float8":      OIDFloat8,
	"text":        OIDText,
	"varchar":     OIDVarchar,
	"numeric":     OIDNumeric,
	"json":        OIDJSON,
	"jsonb":       OIDJSONB,
	"timestamp":   OIDTimestamp,
	"timestamptz": OIDTimestampTZ,
	"date":        OIDDate,
	"time":        OIDTime,
	"timetz":      OIDTimeTZ,
}

// FieldTag is the parsed form of a `pgtype:"..."` struct tag: a type-name
// alias plus option flags such as "array".
type FieldTag struct {
	OID     OID
	HasOID  bool
	Array   bool
	Options map[string]string
}

// ParseFieldTag parses a struct tag value of the form `name,option,option`,
// e.g. `numeric,array` for a []*Numeric field bound to numeric[]. An empty
// tag yields a zero FieldTag (HasOID false), telling the caller to fall back
// to inferring the OID from the Go type alone.
func ParseFieldTag(tag string) FieldTag {
	if tag == "" {
		return FieldTag{}
	}
	t := tagparser.Parse(tag)

	ft := FieldTag{Options: t.Options}
	if oid, ok := namedOIDs[t.Name]; ok {
		ft.OID = oid
		ft.HasOID = true
	}
	_, ft.Array = t.Options["array"]
	return ft
}

// ArrayOID resolves a scalar element OID to its corresponding one-dimensional
// array OID, for the core set of element types registered in this package.
func ArrayOID(elemOID OID) (OID, bool) {
	switch elemOID {
	case OIDBool:
		return OIDBoolArray, true
	case OIDInt2:
		return OIDInt2Array, true
	case OIDInt4:
		return OIDInt4Array, true
	case OIDInt8:
		return OIDInt8Array, true
	case OIDFloat4:
		return OIDFloat4Array, true
	case OIDFloat8:
		return OIDFloat8Array, true
	case OIDText:
		return OIDTextArray, true
	case OIDChar:
		return OIDBpcharArray, true
	case OIDVarchar:
		return OIDVarcharArr, true
	case OIDNumeric:
		return OIDNumericArr, true
	case OIDJSON:
		return OIDJSONArray, true
	case OIDJSONB:
		return OIDJSONBArray, true
	default:
		return 0, false
	}
}
