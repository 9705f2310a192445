package pgerr

// SQLSTATE code classes, taken from the server's fixed error-code
// catalog. Only the classes a caller is likely to switch on are named
// explicitly; everything else maps to CauseUnknown.
const (
	sqlstateIntegrityConstraintViolation = "23000"
	sqlstateRestrictViolation            = "23001"
	sqlstateNotNullViolation             = "23502"
	sqlstateForeignKeyViolation          = "23503"
	sqlstateUniqueViolation              = "23505"
	sqlstateCheckViolation               = "23514"
	sqlstateExclusionViolation           = "23P01"
	sqlstateInvalidAuthorizationSpec     = "28000"
	sqlstateInvalidPassword              = "28P01"
	sqlstateSyntaxErrorOrAccessRule      = "42000"
	sqlstateSyntaxError                  = "42601"
	sqlstateInsufficientPrivilege        = "42501"
	sqlstateUndefinedColumn              = "42703"
	sqlstateUndefinedTable               = "42P01"
	sqlstateTRSerializationFailure       = "40001"
	sqlstateTRIntegrityConstraint        = "40002"
	sqlstateTRDeadlockDetected           = "40P01"
	sqlstateConnectionException          = "08000"
	sqlstateConnectionDoesNotExist       = "08003"
	sqlstateConnectionFailure            = "08006"
	sqlstateQueryCanceled                = "57014"
)

// ClassifyCause maps a five-character SQLSTATE to a Cause. Unrecognized
// codes classify as CauseUnknown rather than erroring — the caller still
// has the raw SQLSTATE in ResultErrorMsg.SQLState.
func ClassifyCause(sqlstate string) Cause {
	switch sqlstate {
	case sqlstateUniqueViolation:
		return CauseUniqueViolation
	case sqlstateForeignKeyViolation:
		return CauseForeignKeyViolation
	case sqlstateNotNullViolation:
		return CauseNotNullViolation
	case sqlstateCheckViolation:
		return CauseCheckViolation
	case sqlstateExclusionViolation:
		return CauseExclusionViolation
	case sqlstateRestrictViolation:
		return CauseRestrictViolation
	case sqlstateIntegrityConstraintViolation, sqlstateTRIntegrityConstraint:
		return CauseIntegrityConstraint
	case sqlstateTRSerializationFailure:
		return CauseSerializationFailure
	case sqlstateTRDeadlockDetected:
		return CauseDeadlockDetected
	case sqlstateConnectionException, sqlstateConnectionDoesNotExist:
		return CauseConnectionException
	case sqlstateConnectionFailure:
		return CauseConnectionFailure
	case sqlstateInvalidAuthorizationSpec, sqlstateInvalidPassword:
		return CauseInvalidAuthorization
	case sqlstateInsufficientPrivilege:
		return CauseInsufficientPrivilege
	case sqlstateUndefinedColumn:
		return CauseUndefinedColumn
	case sqlstateUndefinedTable:
		return CauseUndefinedTable
	case sqlstateSyntaxError, sqlstateSyntaxErrorOrAccessRule:
		return CauseSyntaxError
	case sqlstateQueryCanceled:
		return CauseQueryCanceled
	default:
		return CauseUnknown
	}
}
