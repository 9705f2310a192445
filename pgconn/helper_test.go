package pgconn_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/polydb/pg/pgconn"

	"github.com/stretchr/testify/require"
)

func closeConn(t testing.TB, conn *pgconn.PgConn) {
	require.Nil(t, conn.Close(context.Background()))
}

// ensureConnValid asserts conn is still usable for a fresh query after a test has driven it through an error path.
func ensureConnValid(t testing.TB, conn *pgconn.PgConn) {
	result := conn.ExecParams(context.Background(), "select generate_series(1,10)", nil, nil, nil, nil).Read()
	require.NoError(t, result.Err)
	require.Len(t, result.Rows, 10)
	for i, row := range result.Rows {
		require.Equal(t, strconv.Itoa(i+1), string(row[0]))
	}
}
