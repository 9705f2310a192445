package pg

import (
	"fmt"

	"github.com/polydb/pg/pgconn"
	"github.com/polydb/pg/pgerr"
)

// resultStatus is this binding's analogue of libpq's PQresultStatus enum.
// pgconn's extended-protocol reader never reports
// Copy_in/out/both, Nonfatal_error or a bare Single_tuple message the way
// libpq's text protocol does — those are folded into the nearest status
// below rather than faked.
type resultStatus int

const (
	statusCommandOK resultStatus = iota
	statusTuplesOK
	statusEmptyQuery
	statusFatalError
	statusBadResponse
)

// classifyResult derives a resultStatus and row count from a completed
// pgconn.Result.
func classifyResult(result *pgconn.Result) (resultStatus, int) {
	if result.Err != nil {
		if _, ok := result.Err.(*pgconn.PgError); ok {
			return statusFatalError, 0
		}
		return statusBadResponse, 0
	}
	if result.FieldDescriptions != nil {
		return statusTuplesOK, len(result.Rows)
	}
	if result.CommandTag.String() == "" {
		return statusEmptyQuery, 0
	}
	return statusCommandOK, 0
}

// checkQueryResult implements the decision table mapping a result status
// and its row-count multiplicity contract to either nil or a violation error.
func checkQueryResult(mult RowMult, singleRowMode bool, status resultStatus, ntuples int) error {
	switch status {
	case statusCommandOK:
		if mult == Zero {
			return nil
		}
		return fmt.Errorf("tuples expected")
	case statusTuplesOK:
		if singleRowMode {
			if ntuples == 0 {
				return nil
			}
			return fmt.Errorf("received %d tuples in single-row mode, expected a streamed end-of-data", ntuples)
		}
		switch mult {
		case Zero:
			if ntuples == 0 {
				return nil
			}
			return fmt.Errorf("received %d tuples, expected zero", ntuples)
		case One:
			if ntuples == 1 {
				return nil
			}
			return fmt.Errorf("received %d tuples, expected one", ntuples)
		case ZeroOrOne:
			if ntuples <= 1 {
				return nil
			}
			return fmt.Errorf("received %d tuples, expected zero or one", ntuples)
		case ZeroOrMore:
			return nil
		default:
			return fmt.Errorf("unrecognized row multiplicity")
		}
	case statusEmptyQuery:
		return fmt.Errorf("the query was empty")
	case statusBadResponse:
		return fmt.Errorf("malformed server response")
	case statusFatalError:
		return fmt.Errorf("request failed")
	default:
		return fmt.Errorf("unrecognized result status")
	}
}

// resultErrorMsg converts a pgconn-level error into the pgerr Msg carrier
// matching its shape: a server ErrorResponse becomes a ResultErrorMsg
// classified by SQLSTATE, anything else becomes a ConnectionErrorMsg so
// retry-on-connection-error can recognize it.
func resultErrorMsg(err error) pgerr.Msg {
	if pe, ok := err.(*pgconn.PgError); ok {
		return &pgerr.ResultErrorMsg{
			SQLState: pe.SQLState(),
			Message:  pe.Message,
			Detail:   pe.Detail,
			Hint:     pe.Hint,
			Cause:    pgerr.ClassifyCause(pe.SQLState()),
		}
	}
	return &pgerr.ConnectionErrorMsg{Cause: pgerr.CauseConnectionFailure, Err: err}
}
