package types

import "github.com/go-pg/pgwire/internal/temporal"

// InferOID picks the wire type a bare Go value should be sent as when the
// caller hasn't named one explicitly (e.g. via a `pgtype:"..."` struct tag,
// see ParseFieldTag). It covers bool, the integer and float types (int is
// sent as int8), string, []byte, temporal.Instant (timestamptz),
// temporal.LocalTime (timestamp), *Numeric and *Array; date, time, timetz
// and oid are never inferred, so callers binding those or anything else
// must resolve the OID themselves.
func InferOID(v interface{}) (OID, bool) {
	switch x := v.(type) {
	case bool:
		return OIDBool, true
	case int16:
		return OIDInt2, true
	case int32:
		return OIDInt4, true
	case int64, int:
		return OIDInt8, true
	case float32:
		return OIDFloat4, true
	case float64:
		return OIDFloat8, true
	case string:
		return OIDText, true
	case []byte:
		return OIDBytea, true
	case temporal.Instant:
		return OIDTimestampTZ, true
	case temporal.LocalTime:
		return OIDTimestamp, true
	case *Numeric:
		return OIDNumeric, true
	case *Array:
		return ArrayOID(x.ElemOID)
	default:
		return 0, false
	}
}
