// Package pgerr defines the connector's error taxonomy: the root package's
// connect, request and response paths return *pgerr.Error, so a caller
// can errors.As into one type and switch on Kind. pgconn and pgxpool
// return their own error values, and Populate returns a RowSource's error
// unchanged.
package pgerr

import (
	"fmt"
)

// Kind classifies why a request failed. It tags the phase (connect,
// request, response) the failure happened in, not the wire-level detail.
type Kind int

const (
	// LoadRejected means a URI could not be mapped to a registered driver.
	LoadRejected Kind = iota
	// ConnectFailed means the transport-level connection attempt failed.
	ConnectFailed
	// PostConnect means the connection succeeded but session startup
	// (authentication, the UTC TimeZone SET) failed.
	PostConnect
	// RequestFailed means the wire-level send/await cycle failed.
	RequestFailed
	// ResponseRejected means the server responded but the response shape
	// violated the request's contract.
	ResponseRejected
	// EncodeMissing means no coding was available for a parameter value.
	EncodeMissing
	// EncodeRejected means a coding refused to encode a parameter value.
	EncodeRejected
	// DecodeMissing means no coding was available to decode a column.
	DecodeMissing
	// DecodeRejected means a coding refused to decode a column value.
	DecodeRejected
	// Unsupported means the operation is not meaningful for the current
	// response (e.g. AffectedCount on a single-row stream).
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case LoadRejected:
		return "load_rejected"
	case ConnectFailed:
		return "connect_failed"
	case PostConnect:
		return "post_connect"
	case RequestFailed:
		return "request_failed"
	case ResponseRejected:
		return "response_rejected"
	case EncodeMissing:
		return "encode_missing"
	case EncodeRejected:
		return "encode_rejected"
	case DecodeMissing:
		return "decode_missing"
	case DecodeRejected:
		return "decode_rejected"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Cause classifies a server-reported SQLSTATE into a small, stable set of
// categories a caller can branch on without memorizing five-character
// codes.
type Cause int

const (
	CauseUnknown Cause = iota
	CauseIntegrityConstraint
	CauseRestrictViolation
	CauseNotNullViolation
	CauseForeignKeyViolation
	CauseUniqueViolation
	CauseCheckViolation
	CauseExclusionViolation
	CauseSerializationFailure
	CauseDeadlockDetected
	CauseConnectionException
	CauseConnectionFailure
	CauseInvalidAuthorization
	CauseInsufficientPrivilege
	CauseUndefinedColumn
	CauseUndefinedTable
	CauseSyntaxError
	CauseQueryCanceled
)

// Error is the error value the root package's dispatcher returns. It carries
// the URI the request was issued against, the query text when one exists,
// and a free-form or structured message.
type Error struct {
	Kind  Kind
	URI   string
	Query string
	Msg   Msg
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s: %s (query: %s)", e.Kind, e.Msg.String(), e.Query)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg.String())
}

// Unwrap exposes the underlying cause (a *ConnectErrorMsg or
// *ConnectionErrorMsg wrapping a network error, or nil for plain text
// messages) so callers can keep using errors.Is/errors.As down to the
// transport error.
func (e *Error) Unwrap() error {
	if u, ok := e.Msg.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return nil
}

// Msg is either a free-form string or one of the structured carriers
// below. Its pretty-printer dispatches by concrete type.
type Msg interface {
	String() string
}

type PlainMsg string

func (m PlainMsg) String() string { return string(m) }

// ConnectErrorMsg carries a failure from establishing a connection:
// parsing the conninfo, connecting, session startup or reconnecting.
type ConnectErrorMsg struct {
	Step string // "parse", "connect", "startup", "reconnect"
	Err  error
}

func (m *ConnectErrorMsg) String() string {
	return fmt.Sprintf("%s: %v", m.Step, m.Err)
}

func (m *ConnectErrorMsg) Unwrap() error { return m.Err }

// ConnectionErrorMsg carries a mid-request transport failure, classified
// into a Cause so retry logic can recognize Connection_failure without
// string matching.
type ConnectionErrorMsg struct {
	Cause Cause
	Err   error
}

func (m *ConnectionErrorMsg) String() string {
	return fmt.Sprintf("connection error (%v): %v", m.Cause, m.Err)
}

func (m *ConnectionErrorMsg) Unwrap() error { return m.Err }

// ResultErrorMsg carries a server ErrorResponse/NoticeResponse, classified
// from its SQLSTATE.
type ResultErrorMsg struct {
	SQLState string
	Message  string
	Detail   string
	Hint     string
	Cause    Cause
}

func (m *ResultErrorMsg) String() string {
	if m.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", m.Message, m.SQLState, m.Detail)
	}
	return fmt.Sprintf("%s (%s)", m.Message, m.SQLState)
}

// New builds a plain-text *Error of the given kind.
func New(kind Kind, uri, query, msg string) *Error {
	return &Error{Kind: kind, URI: uri, Query: query, Msg: PlainMsg(msg)}
}

// Wrap builds an *Error of the given kind carrying a structured Msg.
func Wrap(kind Kind, uri, query string, msg Msg) *Error {
	return &Error{Kind: kind, URI: uri, Query: query, Msg: msg}
}

// IsConnectionFailure reports whether err is a RequestFailed error whose
// cause is a connection failure — the one condition that triggers
// transparent reconnect-and-retry outside a transaction.
func IsConnectionFailure(err error) bool {
	e, ok := err.(*Error)
	if !ok || e.Kind != RequestFailed {
		return false
	}
	cm, ok := e.Msg.(*ConnectionErrorMsg)
	return ok && cm.Cause == CauseConnectionFailure
}
