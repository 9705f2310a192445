package pg

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/polydb/pg/pgconn"
	"github.com/polydb/pg/pgerr"
	"github.com/polydb/pg/pgtype"
	"github.com/polydb/pg/stmtcache"
)

// Conn is one connection handle: a libpq-style connection, its prepared-
// statement cache and enum-OID cache, and the in_use/in_transaction bits
// that track its session state. Exactly one Request is ever mid-flight on
// a Conn at a time; Call enforces that with inUse and fails loudly rather
// than serializing concurrent callers.
type Conn struct {
	pgConn   *pgconn.PgConn
	uri      string
	config   *Config
	driver   DriverInfo
	prepared *stmtcache.Cache
	enumOIDs map[string]uint32

	inUse         atomic.Bool
	inTransaction bool

	tracer Tracer
}

// Tracer receives dispatcher lifecycle events, an ambient observability
// hook independent of any particular query (see tracelog.TraceLog); a nil
// Tracer disables tracing.
type Tracer interface {
	TraceQuery(ctx context.Context, conn *Conn, query string, dur time.Duration, rows int, err error)
	TraceReconnect(ctx context.Context, conn *Conn, err error)
}

func newConn(pgConn *pgconn.PgConn, uri string, cfg *Config, info DriverInfo) *Conn {
	return &Conn{
		pgConn:   pgConn,
		uri:      uri,
		config:   cfg,
		driver:   info,
		prepared: stmtcache.New(),
		enumOIDs: make(map[string]uint32),
		tracer:   cfg.Tracer,
	}
}

// usingDB enforces the connection's mutual exclusion: it asserts the
// connection is not already in use, sets inUse, runs f, and guarantees
// inUse is cleared on every exit path. A true concurrent call — inUse
// already set — is a programming error and panics rather than silently
// queuing.
func (c *Conn) usingDB(f func() error) error {
	if !c.inUse.CompareAndSwap(false, true) {
		panic("pg: concurrent use of a single Conn")
	}
	defer c.inUse.Store(false)
	return f()
}

// ResolveEnumOID implements pgtype.EnumResolver: it probes the
// catalog for name's OID on first use and caches the result on c for the
// lifetime of the connection (cleared only by reconnect, which discards
// the whole Conn's cache along with the prepared-statement cache).
func (c *Conn) ResolveEnumOID(name string) (uint32, error) {
	if oid, ok := c.enumOIDs[name]; ok {
		return oid, nil
	}
	oid, err := c.probeEnumOID(context.Background(), name)
	if err != nil {
		return 0, err
	}
	c.enumOIDs[name] = oid
	return oid, nil
}

// probeEnumOID issues the catalog lookup for a user-defined enum type's
// OID, reusing call (the unlocked body of Call) with a one-shot request rather
// than hand-rolling a second send/receive path.
func (c *Conn) probeEnumOID(ctx context.Context, name string) (uint32, error) {
	req := OneShot(
		pgtype.NewField(pgtype.KindString),
		pgtype.NewField(pgtype.KindInt32),
		ZeroOrOne,
		func(DriverInfo) Query {
			return Lit("SELECT oid FROM pg_catalog.pg_type WHERE typname = $1")
		},
	)
	resp, err := c.call(ctx, req, name)
	if err != nil {
		c.trace(ctx, "(enum probe)", 0, 0, err)
		return 0, pgerr.New(pgerr.EncodeMissing, c.uri, "", "enum type "+name+" could not be probed: "+err.Error())
	}
	v, err := resp.findOpt()
	if err != nil {
		return 0, pgerr.New(pgerr.EncodeMissing, c.uri, "", "enum type "+name+" probe rejected: "+err.Error())
	}
	if v == nil {
		return 0, pgerr.New(pgerr.EncodeMissing, c.uri, "", "enum type "+name+" is not defined on the server")
	}
	return uint32(v.(int32)), nil
}

func (c *Conn) trace(ctx context.Context, query string, dur time.Duration, rows int, err error) {
	if c.tracer != nil {
		c.tracer.TraceQuery(ctx, c, query, dur, rows, err)
	}
}

func (c *Conn) traceReconnect(ctx context.Context, err error) {
	if c.tracer != nil {
		c.tracer.TraceReconnect(ctx, c, err)
	}
}

// Call is the public request pipeline: it probes enum OIDs, prepares or
// looks up the cached statement, encodes parameters, sends the request,
// and returns a Response. Exec, the transaction helpers and
// SetStatementTimeout funnel through it; Populate drives COPY through
// pgconn directly.
func (c *Conn) Call(ctx context.Context, req Request, params ...any) (*Response, error) {
	var value any
	switch len(params) {
	case 0:
		value = nil
	case 1:
		value = params[0]
	default:
		value = params
	}

	start := time.Now()
	var resp *Response
	err := c.usingDB(func() error {
		r, err := c.retryOnConnectionError(ctx, func() (*Response, error) {
			return c.call(ctx, req, value)
		})
		resp = r
		return err
	})
	rows := 0
	query := ""
	if resp != nil {
		query = resp.query
		if !resp.IsStreaming() {
			rows, _ = resp.ReturnedCount()
		}
	}
	c.trace(ctx, query, time.Since(start), rows, err)
	return resp, err
}

func (c *Conn) call(ctx context.Context, req Request, value any) (*Response, error) {
	paramLen := pgtype.Length(req.Params)
	oids := make([]uint32, paramLen)
	binary := make([]bool, paramLen)
	if err := pgtype.InitParamTypes(oids, binary, req.Params, c); err != nil {
		return nil, err
	}

	cells, err := pgtype.EncodeParams(req.Params, value)
	if err != nil {
		return nil, err
	}

	singleRow := req.Mult == ZeroOrMore && c.config.UseSingleRowMode

	if req.Identity == nil {
		return c.callOneShot(ctx, req, oids, binary, cells, singleRow)
	}
	return c.callCached(ctx, req, *req.Identity, oids, binary, cells, singleRow)
}

func (c *Conn) callOneShot(ctx context.Context, req Request, oids []uint32, binary []bool, cells []pgtype.Cell, singleRow bool) (*Response, error) {
	sql, _, err := Render(req.Template(c.driver), nil, true)
	if err != nil {
		return nil, pgerr.New(pgerr.RequestFailed, c.uri, "", err.Error())
	}

	paramValues := cellValues(cells, binary)
	formats := paramFormats(binary)
	rr := c.pgConn.ExecParams(ctx, sql, paramValues, oids, formats, nil)
	return c.finishResult(ctx, sql, req, rr, singleRow)
}

func (c *Conn) callCached(ctx context.Context, req Request, id int64, oids []uint32, binary []bool, cells []pgtype.Cell, singleRow bool) (*Response, error) {
	entry, ok := c.prepared.Get(id)
	if !ok {
		sql, _, err := Render(req.Template(c.driver), nil, true)
		if err != nil {
			return nil, pgerr.New(pgerr.RequestFailed, c.uri, "", err.Error())
		}
		e, err := c.prepared.Prepare(ctx, c.pgConn, id, sql, oids, binary, singleRow)
		if err != nil {
			return nil, pgerr.Wrap(pgerr.RequestFailed, c.uri, sql, resultErrorMsg(err))
		}
		entry = e
	}

	paramValues := cellValues(cells, entry.ParamBinary)
	formats := paramFormats(entry.ParamBinary)
	rr := c.pgConn.ExecPrepared(ctx, entry.Name, paramValues, formats, nil)
	return c.finishResult(ctx, entry.SQL, req, rr, singleRow)
}

func (c *Conn) finishResult(ctx context.Context, sql string, req Request, rr *pgconn.ResultReader, singleRow bool) (*Response, error) {
	if singleRow {
		resp := newStreamResponse(req.Row, sql, rr, req.Mult)
		resp.uri = c.uri
		return resp, nil
	}
	result := rr.Read()
	status, ntuples := classifyResult(result)
	if result.Err != nil && (status == statusFatalError || c.pgConn.IsClosed()) {
		return nil, pgerr.Wrap(pgerr.RequestFailed, c.uri, sql, resultErrorMsg(result.Err))
	}
	if err := checkQueryResult(req.Mult, singleRow, status, ntuples); err != nil {
		return nil, pgerr.Wrap(pgerr.ResponseRejected, c.uri, sql, pgerr.PlainMsg(err.Error()))
	}
	resp := newResponse(req.Row, sql, result)
	resp.uri = c.uri
	return resp, nil
}

func cellValues(cells []pgtype.Cell, binary []bool) [][]byte {
	out := make([][]byte, len(cells))
	for i, c := range cells {
		if c.Null {
			out[i] = nil
			continue
		}
		out[i] = c.Bytes
	}
	return out
}

func paramFormats(binary []bool) []int16 {
	out := make([]int16, len(binary))
	for i, b := range binary {
		if b {
			out[i] = 1
		}
	}
	return out
}

// retryOnConnectionError implements transparent reconnect: outside a
// transaction, exactly one Connection_failure during f triggers
// a reset and a single retry; inside a transaction the error always
// surfaces immediately since session state (temp tables, advisory locks,
// the transaction itself) would otherwise be lost silently.
func (c *Conn) retryOnConnectionError(ctx context.Context, f func() (*Response, error)) (*Response, error) {
	resp, err := f()
	if err == nil {
		return resp, nil
	}
	if c.inTransaction || !pgerr.IsConnectionFailure(err) {
		return nil, err
	}
	if rerr := c.reset(ctx); rerr != nil {
		c.traceReconnect(ctx, rerr)
		return nil, err
	}
	c.traceReconnect(ctx, nil)
	return f()
}

// reset clears the prepared-statement cache and drives a fresh libpq-style
// connect.
func (c *Conn) reset(ctx context.Context) error {
	c.prepared.Clear()
	pgConn, err := pgconn.ConnectConfig(ctx, c.config.toPGConnConfig())
	if err != nil {
		return pgerr.Wrap(pgerr.ConnectFailed, c.uri, "", &pgerr.ConnectErrorMsg{Step: "reconnect", Err: err})
	}
	_ = c.pgConn.Close(ctx)
	c.pgConn = pgConn
	c.enumOIDs = make(map[string]uint32)
	c.inTransaction = false
	return nil
}

// Exec runs req and discards the response, surfacing only the error (the
// "exec" Response operation applied eagerly).
func (c *Conn) Exec(ctx context.Context, req Request, params ...any) error {
	_, err := c.Call(ctx, req, params...)
	return err
}

// StartTransaction issues BEGIN and marks the connection in_transaction,
// disabling reconnect-on-error until Commit or Rollback.
func (c *Conn) StartTransaction(ctx context.Context) error {
	req := OneShot(pgtype.Unit{}, pgtype.Unit{}, Zero, func(DriverInfo) Query { return Lit("BEGIN") })
	if err := c.Exec(ctx, req); err != nil {
		return err
	}
	c.inTransaction = true
	return nil
}

// Commit issues COMMIT; in_transaction is cleared unconditionally, even
// if the server rejects the commit.
func (c *Conn) Commit(ctx context.Context) error {
	req := OneShot(pgtype.Unit{}, pgtype.Unit{}, Zero, func(DriverInfo) Query { return Lit("COMMIT") })
	err := c.Exec(ctx, req)
	c.inTransaction = false
	return err
}

// Rollback issues ROLLBACK; in_transaction is cleared unconditionally.
func (c *Conn) Rollback(ctx context.Context) error {
	req := OneShot(pgtype.Unit{}, pgtype.Unit{}, Zero, func(DriverInfo) Query { return Lit("ROLLBACK") })
	err := c.Exec(ctx, req)
	c.inTransaction = false
	return err
}

// SetStatementTimeout converts seconds to milliseconds (max(1, round(s*1000)),
// or 0 to disable) and issues a one-shot SET statement_timeout.
func (c *Conn) SetStatementTimeout(ctx context.Context, seconds *float64) error {
	ms := 0
	if seconds != nil {
		ms = int(*seconds*1000 + 0.5)
		if ms < 1 {
			ms = 1
		}
		if *seconds == 0 {
			ms = 0
		}
	}
	sql := fmt.Sprintf("SET statement_timeout TO %d", ms)
	req := OneShot(pgtype.Unit{}, pgtype.Unit{}, Zero, func(DriverInfo) Query { return Lit(sql) })
	return c.Exec(ctx, req)
}

// Validate consumes any pending input and checks the connection is idle
// and not closed; on failure it attempts a reset and returns whatever
// error the reset produced (nil on success).
func (c *Conn) Validate(ctx context.Context) error {
	if err := c.pgConn.CheckConn(); err != nil {
		return c.reset(ctx)
	}
	return nil
}

// Check invokes k with whether the connection currently looks usable.
func (c *Conn) Check(k func(ok bool)) {
	k(!c.pgConn.IsClosed())
}

// Close finishes the underlying libpq connection under the same mutual
// exclusion as any other request; a connection error during close is
// never surfaced, only traced.
func (c *Conn) Close(ctx context.Context) error {
	return c.usingDB(func() error {
		if err := c.pgConn.Close(ctx); err != nil {
			c.trace(ctx, "(close)", 0, 0, err)
		}
		return nil
	})
}

// URI returns the connection string the connection was opened with.
func (c *Conn) URI() string { return c.uri }
