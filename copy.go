package pg

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/polydb/pg/pgerr"
	"github.com/polydb/pg/pgtype"
)

// RowSource supplies the rows a Populate call streams to the server. Next
// returns (row, true, nil) while rows remain, (nil, false, nil) at
// end-of-data, or a non-nil error to abort the COPY.
type RowSource interface {
	Next() (row any, ok bool, err error)
}

// Populate implements bulk load via COPY FROM STDIN. Each row source is
// encoded through pgtype's COPY encoder (TAB
// separator, NULL as \N) and streamed to the server without buffering
// the whole input, riding pgconn.PgConn.CopyFrom's own
// put_copy_data/put_copy_end pump.
func (c *Conn) Populate(ctx context.Context, table string, columns []string, rowType pgtype.Type, rows RowSource) error {
	copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN", table, strings.Join(columns, ", "))

	var outer error
	err := c.usingDB(func() error {
		r := &copyReader{rowType: rowType, rows: rows}
		_, cerr := c.pgConn.CopyFrom(ctx, r, copySQL)
		if r.err != nil {
			outer = r.err
			return nil
		}
		return cerr
	})
	if outer != nil {
		return outer
	}
	if err != nil {
		return pgerr.Wrap(pgerr.RequestFailed, c.uri, copySQL, resultErrorMsg(err))
	}
	return nil
}

// copyReader adapts a RowSource + pgtype COPY encoder to io.Reader, the
// shape pgconn.PgConn.CopyFrom expects.
type copyReader struct {
	rowType pgtype.Type
	rows    RowSource
	buf     []byte
	done    bool
	err     error
}

func (r *copyReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}
		row, ok, err := r.rows.Next()
		if err != nil {
			r.err = err
			r.done = true
			return 0, r.err
		}
		if !ok {
			r.done = true
			continue
		}
		encoded, err := pgtype.EncodeCopyRow(r.rowType, row, nil)
		if err != nil {
			r.err = pgerr.Wrap(pgerr.EncodeRejected, "", "", pgerr.PlainMsg(err.Error()))
			r.done = true
			return 0, r.err
		}
		r.buf = encoded
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
