package pg

import (
	"errors"
	"testing"

	"github.com/polydb/pg/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyResult(t *testing.T) {
	t.Run("command ok", func(t *testing.T) {
		status, n := classifyResult(&pgconn.Result{CommandTag: pgconn.NewCommandTag("INSERT 0 1")})
		assert.Equal(t, statusCommandOK, status)
		assert.Equal(t, 0, n)
	})

	t.Run("tuples ok", func(t *testing.T) {
		result := &pgconn.Result{
			FieldDescriptions: []pgconn.FieldDescription{{Name: "x"}},
			Rows:              [][][]byte{{[]byte("1")}, {[]byte("2")}},
		}
		status, n := classifyResult(result)
		assert.Equal(t, statusTuplesOK, status)
		assert.Equal(t, 2, n)
	})

	t.Run("empty query", func(t *testing.T) {
		status, n := classifyResult(&pgconn.Result{})
		assert.Equal(t, statusEmptyQuery, status)
		assert.Equal(t, 0, n)
	})

	t.Run("fatal error", func(t *testing.T) {
		status, n := classifyResult(&pgconn.Result{Err: &pgconn.PgError{Code: "40001"}})
		assert.Equal(t, statusFatalError, status)
		assert.Equal(t, 0, n)
	})

	t.Run("bad response", func(t *testing.T) {
		status, n := classifyResult(&pgconn.Result{Err: errors.New("boom")})
		assert.Equal(t, statusBadResponse, status)
		assert.Equal(t, 0, n)
	})
}

func TestCheckQueryResult(t *testing.T) {
	tests := []struct {
		name          string
		mult          RowMult
		singleRowMode bool
		status        resultStatus
		ntuples       int
		wantErr       bool
	}{
		{"command ok with Zero", Zero, false, statusCommandOK, 0, false},
		{"command ok with One", One, false, statusCommandOK, 0, true},
		{"tuples ok Zero matches", Zero, false, statusTuplesOK, 0, false},
		{"tuples ok Zero mismatch", Zero, false, statusTuplesOK, 1, true},
		{"tuples ok One matches", One, false, statusTuplesOK, 1, false},
		{"tuples ok One mismatch", One, false, statusTuplesOK, 0, true},
		{"tuples ok ZeroOrOne matches", ZeroOrOne, false, statusTuplesOK, 1, false},
		{"tuples ok ZeroOrOne mismatch", ZeroOrOne, false, statusTuplesOK, 2, true},
		{"tuples ok ZeroOrMore always matches", ZeroOrMore, false, statusTuplesOK, 50, false},
		{"single row mode end of data", ZeroOrMore, true, statusTuplesOK, 0, false},
		{"single row mode unexpected tuples", ZeroOrMore, true, statusTuplesOK, 1, true},
		{"empty query always errors", Zero, false, statusEmptyQuery, 0, true},
		{"bad response always errors", Zero, false, statusBadResponse, 0, true},
		{"fatal error always errors", Zero, false, statusFatalError, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkQueryResult(tt.mult, tt.singleRowMode, tt.status, tt.ntuples)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResultErrorMsg(t *testing.T) {
	t.Run("pg error", func(t *testing.T) {
		msg := resultErrorMsg(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
		assert.NotNil(t, msg)
	})

	t.Run("non-pg error", func(t *testing.T) {
		msg := resultErrorMsg(errors.New("connection reset"))
		assert.NotNil(t, msg)
	})
}
