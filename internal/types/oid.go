// Package types implements the typed value transfer layer: encoding and
// decoding Go values to and from the wire formats (text and binary) of the
// core set of PostgreSQL types named in §4.3.
package types

// OID is a PostgreSQL object identifier, used here to name a base or array
// type in the type catalogue.
type OID uint32

// Core scalar and array type OIDs, the fixed catalogue this driver codes
// without a round-trip to pg_type. Values match PostgreSQL's well-known
// builtin OIDs.
const (
	OIDBool        OID = 16
	OIDBytea       OID = 17
	OIDChar        OID = 18
	OIDInt8        OID = 20
	OIDInt2        OID = 21
	OIDInt4        OID = 23
	OIDText        OID = 25
	OIDOID         OID = 26
	OIDJSON        OID = 114
	OIDJSONArray   OID = 199
	OIDFloat4      OID = 700
	OIDFloat8      OID = 701
	OIDBoolArray   OID = 1000
	OIDBpcharArray OID = 1014
	OIDVarcharArr  OID = 1015
	OIDInt2Array   OID = 1005
	OIDInt4Array   OID = 1007
	OIDTextArray   OID = 1009
	OIDInt8Array   OID = 1016
	OIDFloat4Array OID = 1021
	OIDFloat8Array OID = 1022
	OIDVarchar     OID = 1043
	OIDDate        OID = 1082
	OIDTime        OID = 1083
	OIDTimestamp   OID = 1114
	OIDTimestampTZ OID = 1184
	OIDTimeTZ      OID = 1266
	OIDNumericArr  OID = 1231
	OIDInterval    OID = 1186
	OIDNumeric     OID = 1700
	OIDUUID        OID = 2950
	OIDJSONB       OID = 3802
	OIDJSONBArray  OID = 3807
)
