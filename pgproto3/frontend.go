package pgproto3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frontend drives the client side of the protocol over r/w. A single
// instance is reused for the lifetime of a connection: Send/Receive never
// allocate a new flyweight per message, they decode into fields already
// held on the struct.
type Frontend struct {
	r *msgReader
	w io.Writer

	wbuf []byte

	authenticationOk           AuthenticationOk
	authenticationCleartext    AuthenticationCleartextPassword
	authenticationMD5          AuthenticationMD5Password
	authenticationSASL         AuthenticationSASL
	authenticationSASLContinue AuthenticationSASLContinue
	authenticationSASLFinal    AuthenticationSASLFinal
	authenticationGSS          AuthenticationGSS
	authenticationGSSContinue  AuthenticationGSSContinue
	backendKeyData             BackendKeyData
	bindComplete               BindComplete
	commandComplete            CommandComplete
	copyData                   CopyData
	copyDone                   CopyDone
	copyInResponse             CopyInResponse
	dataRow                    DataRow
	emptyQueryResponse         EmptyQueryResponse
	errorResponse              ErrorResponse
	noData                     NoData
	noticeResponse             NoticeResponse
	parameterDescription       ParameterDescription
	parameterStatus            ParameterStatus
	parseComplete              ParseComplete
	readyForQuery              ReadyForQuery
	rowDescription             RowDescription

	bodyLen    int
	msgType    byte
	partialMsg bool
	authType   uint32
}

// NewFrontend creates a Frontend that reads from r and writes to w.
func NewFrontend(r io.Reader, w io.Writer) *Frontend {
	return &Frontend{r: newMsgReader(r), w: w}
}

// Send buffers msg for the next Flush.
func (f *Frontend) Send(msg FrontendMessage) {
	f.wbuf = msg.Encode(f.wbuf)
}

// Flush writes everything buffered by Send to w.
func (f *Frontend) Flush() error {
	if len(f.wbuf) == 0 {
		return nil
	}

	n, err := f.w.Write(f.wbuf)

	const maxKeep = 1024
	if len(f.wbuf) > maxKeep {
		f.wbuf = make([]byte, 0, maxKeep)
	} else {
		f.wbuf = f.wbuf[:0]
	}

	if err != nil {
		return &writeError{err: err, safeToRetry: n == 0}
	}
	return nil
}

// Receive reads and decodes the next backend message. The returned message
// is only valid until the next call to Receive.
func (f *Frontend) Receive() (BackendMessage, error) {
	if !f.partialMsg {
		header, err := f.r.Next(5)
		if err != nil {
			return nil, translateEOFtoErrUnexpectedEOF(err)
		}

		f.msgType = header[0]
		msgLength := int(binary.BigEndian.Uint32(header[1:]))
		if msgLength < 4 {
			return nil, fmt.Errorf("invalid message length: %d", msgLength)
		}
		f.bodyLen = msgLength - 4
		f.partialMsg = true
	}

	body, err := f.r.Next(f.bodyLen)
	if err != nil {
		return nil, translateEOFtoErrUnexpectedEOF(err)
	}
	f.partialMsg = false

	msg, err := f.backendMessageFor(f.msgType, body)
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(body); err != nil {
		return nil, err
	}
	return msg, nil
}

func (f *Frontend) backendMessageFor(msgType byte, body []byte) (BackendMessage, error) {
	switch msgType {
	case '1':
		return &f.parseComplete, nil
	case '2':
		return &f.bindComplete, nil
	case 'c':
		return &f.copyDone, nil
	case 'C':
		return &f.commandComplete, nil
	case 'd':
		return &f.copyData, nil
	case 'D':
		return &f.dataRow, nil
	case 'E':
		return &f.errorResponse, nil
	case 'G':
		return &f.copyInResponse, nil
	case 'I':
		return &f.emptyQueryResponse, nil
	case 'K':
		return &f.backendKeyData, nil
	case 'n':
		return &f.noData, nil
	case 'N':
		return &f.noticeResponse, nil
	case 'R':
		return f.findAuthenticationMessageType(body)
	case 'S':
		return &f.parameterStatus, nil
	case 't':
		return &f.parameterDescription, nil
	case 'T':
		return &f.rowDescription, nil
	case 'Z':
		return &f.readyForQuery, nil
	default:
		return nil, fmt.Errorf("unknown message type: %c", msgType)
	}
}

func (f *Frontend) findAuthenticationMessageType(src []byte) (BackendMessage, error) {
	if len(src) < 4 {
		return nil, errors.New("authentication message too short")
	}
	f.authType = binary.BigEndian.Uint32(src[:4])

	switch f.authType {
	case AuthTypeOk:
		return &f.authenticationOk, nil
	case AuthTypeCleartextPassword:
		return &f.authenticationCleartext, nil
	case AuthTypeMD5Password:
		return &f.authenticationMD5, nil
	case AuthTypeGSS:
		return &f.authenticationGSS, nil
	case AuthTypeGSSCont:
		return &f.authenticationGSSContinue, nil
	case AuthTypeSASL:
		return &f.authenticationSASL, nil
	case AuthTypeSASLContinue:
		return &f.authenticationSASLContinue, nil
	case AuthTypeSASLFinal:
		return &f.authenticationSASLFinal, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type: %d", f.authType)
	}
}

// GetAuthType reports the authentication type of the most recently decoded
// Authentication* message, needed because every variant multiplexes onto
// the same 'R' message tag.
func (f *Frontend) GetAuthType() uint32 {
	return f.authType
}

// ReadBufferLen reports how many bytes are already buffered from the wire
// but not yet consumed by Receive, used by the connection's poll loop to
// decide whether a read would block.
func (f *Frontend) ReadBufferLen() int {
	return f.r.Buffered()
}
