package pgtype

// Fixed OIDs for the built-in type system, taken from PostgreSQL's
// pg_type catalog. Enum OIDs are never fixed; they are resolved per
// connection (see EnumResolver).
const (
	OIDBool        uint32 = 16
	OIDInt8        uint32 = 20
	OIDInt2        uint32 = 21
	OIDInt4        uint32 = 23
	OIDText        uint32 = 25
	OIDFloat8      uint32 = 701
	OIDUnknown     uint32 = 705
	OIDBytea       uint32 = 17
	OIDDate        uint32 = 1082
	OIDTimestamptz uint32 = 1184
	OIDInterval    uint32 = 1186
)

// fieldOIDTable is the fixed kind→OID mapping. String maps to UNKNOWN so
// the server infers the parameter's type from context (the column it is
// compared against or assigned to) instead of the client forcing text.
var fieldOIDTable = map[Kind]uint32{
	KindBool:      OIDBool,
	KindInt:       OIDInt8,
	KindInt16:     OIDInt2,
	KindInt32:     OIDInt4,
	KindInt64:     OIDInt8,
	KindFloat:     OIDFloat8,
	KindString:    OIDUnknown,
	KindOctets:    OIDBytea,
	KindPdate:     OIDDate,
	KindPtime:     OIDTimestamptz,
	KindPtimeSpan: OIDInterval,
}
