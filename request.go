package pg

import "github.com/polydb/pg/pgtype"

// RowMult is the static contract on how many rows a Request's response
// may carry.
type RowMult int

const (
	// Zero means the request never returns rows (e.g. DDL, BEGIN).
	Zero RowMult = iota
	// One means exactly one row is expected; anything else is rejected.
	One
	// ZeroOrOne means at most one row is expected.
	ZeroOrOne
	// ZeroOrMore places no bound on the row count.
	ZeroOrMore
)

func (m RowMult) String() string {
	switch m {
	case Zero:
		return "zero"
	case One:
		return "one"
	case ZeroOrOne:
		return "zero_or_one"
	case ZeroOrMore:
		return "zero_or_more"
	default:
		return "unknown"
	}
}

// DriverInfo describes the driver's capabilities to a Request's Template
// function and to the pool's gating logic.
type DriverInfo struct {
	Scheme    string
	CanConcur bool
	CanPool   bool
}

// Request is the external, read-only descriptor of one call: the shape of
// its parameters and rows, how many rows it may produce, an optional
// stable identity that makes it eligible for statement caching, and a
// function that produces the query template once driver info is known.
//
// Identity is nil for a one-shot request: it is encoded as a literal SQL
// string each call and never PREPAREd. A non-nil Identity must be stable
// across calls with the same Template output — it is the statement
// cache's key.
type Request struct {
	Params   pgtype.Type
	Row      pgtype.Type
	Mult     RowMult
	Identity *int64
	Template func(DriverInfo) Query
}

// OneShot builds a Request with no stable identity.
func OneShot(params, row pgtype.Type, mult RowMult, tmpl func(DriverInfo) Query) Request {
	return Request{Params: params, Row: row, Mult: mult, Template: tmpl}
}

// Cached builds a Request keyed by id, eligible for PREPARE/DEALLOCATE
// caching in the issuing connection's statement cache.
func Cached(id int64, params, row pgtype.Type, mult RowMult, tmpl func(DriverInfo) Query) Request {
	return Request{Params: params, Row: row, Mult: mult, Identity: &id, Template: tmpl}
}
