package pgproto3_test

import (
	"testing"

	"github.com/polydb/pg/pgproto3"
	"github.com/stretchr/testify/require"
)

func TestQueryEncodeDecode(t *testing.T) {
	t.Parallel()

	want := &pgproto3.Query{String: "select 1"}
	encoded := want.Encode(nil)

	got := &pgproto3.Query{}
	require.NoError(t, got.Decode(encoded[5:]))
	require.Equal(t, want, got)
}
