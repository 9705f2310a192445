package pg

import (
	"strconv"

	"github.com/polydb/pg/pgconn"
	"github.com/polydb/pg/pgerr"
	"github.com/polydb/pg/pgtype"
)

// Response is the value a Call returns: the row descriptor and query text
// it was issued with, plus either a complete, fully-buffered Result or a
// single-row stream still being pumped off the wire.
type Response struct {
	rowType pgtype.Type
	query   string
	uri     string

	complete *pgconn.Result // nil when streaming

	stream *pgconn.ResultReader // nil when complete
	mult   RowMult

	// Warning is a side channel for a Nonfatal_error treated as a success.
	// pgconn never reports that status, so nothing in this package sets
	// it and it is always nil.
	Warning *pgerr.Error
}

func newResponse(rowType pgtype.Type, query string, result *pgconn.Result) *Response {
	return &Response{rowType: rowType, query: query, complete: result}
}

func newStreamResponse(rowType pgtype.Type, query string, rr *pgconn.ResultReader, mult RowMult) *Response {
	return &Response{rowType: rowType, query: query, stream: rr, mult: mult}
}

// IsStreaming reports whether this Response is a single-row stream rather
// than a fully materialized result.
func (r *Response) IsStreaming() bool { return r.stream != nil }

// Exec is a no-op on an already-classified Response: the classifier
// already rejected any contract violation, so there is nothing left to
// check.
func (r *Response) Exec() error { return nil }

// ReturnedCount is the number of rows a complete Response carries.
// Unsupported on a streaming Response.
func (r *Response) ReturnedCount() (int, error) {
	if r.complete == nil {
		return 0, pgerr.New(pgerr.Unsupported, r.uri, r.query, "ReturnedCount is not meaningful for a single-row stream")
	}
	return len(r.complete.Rows), nil
}

// AffectedCount parses the command tag's row count. Unsupported on a
// streaming Response.
func (r *Response) AffectedCount() (int64, error) {
	if r.complete == nil {
		return 0, pgerr.New(pgerr.Unsupported, r.uri, r.query, "AffectedCount is not meaningful for a single-row stream")
	}
	return r.complete.CommandTag.RowsAffected(), nil
}

// Find decodes row 0. The caller must already know (e.g. via a Mult of
// One) that exactly one row was returned.
func (r *Response) Find() (any, error) {
	if r.complete == nil || len(r.complete.Rows) == 0 {
		return nil, pgerr.New(pgerr.DecodeRejected, r.uri, r.query, "Find called with no row available")
	}
	return r.decodeRow(r.complete.Rows[0])
}

// FindOpt decodes row 0 if present, or returns (nil, nil) if the complete
// response carried zero rows.
func (r *Response) FindOpt() (any, error) {
	return r.findOpt()
}

func (r *Response) findOpt() (any, error) {
	if r.complete == nil {
		return nil, pgerr.New(pgerr.Unsupported, r.uri, r.query, "FindOpt is not meaningful for a single-row stream")
	}
	if len(r.complete.Rows) == 0 {
		return nil, nil
	}
	return r.decodeRow(r.complete.Rows[0])
}

func (r *Response) decodeRow(raw [][]byte) (any, error) {
	cells := make([]pgtype.Cell, len(raw))
	for i, b := range raw {
		cells[i] = pgtype.Cell{Bytes: b, Null: b == nil}
	}
	return pgtype.DecodeRow(r.rowType, cells)
}

// Fold folds f over every row: a pure fold over a complete response, or a
// streaming fold that pumps one row off the wire at a time for a
// single-row response.
func (r *Response) Fold(acc any, f func(acc, row any) (any, error)) (any, error) {
	if r.complete != nil {
		for _, raw := range r.complete.Rows {
			row, err := r.decodeRow(raw)
			if err != nil {
				return acc, err
			}
			acc, err = f(acc, row)
			if err != nil {
				return acc, err
			}
		}
		return acc, nil
	}
	var err error
	err = r.iterateStream(func(row any) error {
		var ferr error
		acc, ferr = f(acc, row)
		return ferr
	})
	return acc, err
}

// StreamEvent is one element of the lazy sequence ToStream yields:
// exactly one of Row, Err or End is set, and the sequence ends with the
// first Err or End event.
type StreamEvent struct {
	Row any
	Err error
	End bool
}

// ToStream materializes the single-row protocol as a slice of events the
// caller can range over in order, stopping at the first Err.
func (r *Response) ToStream() []StreamEvent {
	var events []StreamEvent
	if r.complete != nil {
		for _, raw := range r.complete.Rows {
			row, err := r.decodeRow(raw)
			if err != nil {
				events = append(events, StreamEvent{Err: err})
				return events
			}
			events = append(events, StreamEvent{Row: row})
		}
		events = append(events, StreamEvent{End: true})
		return events
	}
	err := r.iterateStream(func(row any) error {
		events = append(events, StreamEvent{Row: row})
		return nil
	})
	if err != nil {
		events = append(events, StreamEvent{Err: err})
		return events
	}
	events = append(events, StreamEvent{End: true})
	return events
}

// iterateStream pumps rows off r.stream one at a time via NextRow,
// decoding each as it arrives, layered on pgconn.ResultReader's
// incremental delivery instead of libpq's Single_tuple messages.
func (r *Response) iterateStream(f func(row any) error) error {
	rr := r.stream
	for rr.NextRow() {
		values := rr.Values()
		cells := make([]pgtype.Cell, len(values))
		for i, v := range values {
			cells[i] = pgtype.Cell{Bytes: v, Null: v == nil}
		}
		row, err := pgtype.DecodeRow(r.rowType, cells)
		if err != nil {
			_ = rr.Close()
			return pgerr.Wrap(pgerr.DecodeRejected, r.uri, r.query, pgerr.PlainMsg(err.Error()))
		}
		if ferr := f(row); ferr != nil {
			_ = rr.Close()
			return ferr
		}
	}
	if _, err := rr.Close(); err != nil {
		return pgerr.Wrap(pgerr.ResponseRejected, r.uri, r.query, resultErrorMsg(err))
	}
	return nil
}

// commandTagRowCount parses a "SELECT n" / "INSERT 0 n" style command tag
// into its trailing row count, independently of CommandTag.RowsAffected.
// Nothing in the package calls it.
func commandTagRowCount(tag string) (int64, error) {
	for i := len(tag) - 1; i >= 0; i-- {
		if tag[i] < '0' || tag[i] > '9' {
			return strconv.ParseInt(tag[i+1:], 10, 64)
		}
	}
	return strconv.ParseInt(tag, 10, 64)
}
