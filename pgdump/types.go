package pgdump

// Column describes one attribute of a user-supplied schema. Schema
// knowledge is always supplied by the caller — this package never reads
// pg_attribute/pg_class/pg_database itself, since reconstructing app-level
// schema from the catalogs is out of scope for an offline file inspector.
type Column struct {
	Name  string `json:"name"`
	TypID int    `json:"typid"`
	Len   int    `json:"len"`   // attlen: fixed width, or -1 for varlena, -2 for cstring
	Num   int    `json:"num"`   // attnum, 1-based; 0 means "use position"
	Align byte   `json:"align"` // attalign: 'c','s','i','d', or 0 to derive from TypID
}

// Well-known built-in type OIDs. The attribute decoder table (decodeTable,
// spec component B) renders a subset of them; the rest are known only to
// typeAlign and TypeName.
const (
	OidBool        = 16
	OidBytea       = 17
	OidChar        = 18
	OidName        = 19
	OidInt8        = 20
	OidInt2        = 21
	OidInt2Vector  = 22
	OidInt4        = 23
	OidRegproc     = 24
	OidText        = 25
	OidOid         = 26
	OidTid         = 27
	OidXid         = 28
	OidCid         = 29
	OidJSON        = 114
	OidXML         = 142
	OidPgLsn       = 3220
	OidPoint       = 600
	OidLseg        = 601
	OidPath        = 602
	OidBox         = 603
	OidPolygon     = 604
	OidLine        = 628
	OidFloat4      = 700
	OidFloat8      = 701
	OidCircle      = 718
	OidMoney       = 790
	OidMacaddr     = 829
	OidInet        = 869
	OidCidr        = 650
	OidMacaddr8    = 774
	OidBpchar      = 1042
	OidVarchar     = 1043
	OidDate        = 1082
	OidTime        = 1083
	OidTimestamp   = 1114
	OidTimestampTZ = 1184
	OidInterval    = 1186
	OidTimeTZ      = 1266
	OidBit         = 1560
	OidVarbit      = 1562
	OidNumeric     = 1700
	OidUUID        = 2950
	OidTsvector    = 3614
	OidTsquery     = 3615
	OidJSONB       = 3802
	OidJSONPath    = 4072
	OidInt4Range   = 3904
	OidNumRange    = 3906
	OidTsRange     = 3908
	OidTsTzRange   = 3910
	OidDateRange   = 3912
	OidInt8Range   = 3926
)

var oidNames = map[int]string{
	OidBool: "bool", OidBytea: "bytea", OidChar: "char", OidName: "name",
	OidInt8: "int8", OidInt2: "int2", OidInt4: "int4", OidText: "text",
	OidOid: "oid", OidTid: "tid", OidXid: "xid", OidCid: "cid",
	OidJSON: "json", OidXML: "xml", OidPgLsn: "pg_lsn", OidFloat4: "float4",
	OidFloat8: "float8", OidMoney: "money", OidMacaddr: "macaddr",
	OidInet: "inet", OidCidr: "cidr", OidMacaddr8: "macaddr8",
	OidBpchar: "bpchar", OidVarchar: "varchar", OidDate: "date",
	OidTime: "time", OidTimestamp: "timestamp", OidTimestampTZ: "timestamptz",
	OidInterval: "interval", OidTimeTZ: "timetz", OidBit: "bit",
	OidVarbit: "varbit", OidNumeric: "numeric", OidUUID: "uuid",
	OidTsvector: "tsvector", OidTsquery: "tsquery", OidJSONB: "jsonb",
	OidJSONPath: "jsonpath",
}

// TypeName returns the built-in type name for a known OID, or "unknown"
// otherwise. It never consults pg_type — the caller is expected to know
// which OIDs its schema uses.
func TypeName(typID int) string {
	if name, ok := oidNames[typID]; ok {
		return name
	}
	return "unknown"
}
