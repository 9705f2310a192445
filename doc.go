// Package pg is the connector core: it turns a driver-agnostic Request
// descriptor into server traffic over a *pgconn.PgConn, using pgtype to
// marshal parameters and unmarshal rows, stmtcache to avoid re-PREPAREing
// a stable request, and pgxpool to bound how many connections exist.
//
// The package plays the role of connection dispatcher, enum OID prober
// and connector facade; pgtype, pgconn, stmtcache and pgxpool are its
// collaborators, each its own package so a caller can depend on only the
// layer it needs.
package pg
