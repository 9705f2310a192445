// Package pgproto3 implements the wire-level messages of the PostgreSQL
// extended query protocol (protocol version 3): enough of the frontend and
// backend message set for a driver that only ever runs Parse/Bind/Describe/
// Execute/Sync cycles, simple queries, COPY, and the SASL/MD5/cleartext
// authentication handshakes. Message types the dispatcher never sends or
// receives (function calls, LISTEN/NOTIFY, statement/portal Close,
// GSSAPI encryption negotiation, protocol version negotiation) are not
// implemented here.
package pgproto3

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/polydb/pg/internal/pgio"
)

// Message is decoded from or encoded onto the wire. Decode receives the
// message body only: the leading 1-byte type tag and 4-byte length prefix
// have already been consumed by the reader.
type Message interface {
	Decode(src []byte) error
}

// FrontendMessage is sent by the driver to the server.
type FrontendMessage interface {
	Message
	Frontend()
	Encode(dst []byte) []byte
}

// BackendMessage is sent by the server to the driver.
type BackendMessage interface {
	Message
	Backend()
	Encode(dst []byte) []byte
}

func beginMessage(buf []byte, msgType byte) ([]byte, int) {
	buf = append(buf, msgType)
	buf = pgio.AppendInt32(buf, -1)
	return buf, len(buf) - 4
}

func finishMessage(buf []byte, sp int) []byte {
	binary.BigEndian.PutUint32(buf[sp:], uint32(len(buf)-sp))
	return buf
}

type invalidMessageLenErr struct {
	messageType string
	expectedLen int
	actualLen   int
}

func (e *invalidMessageLenErr) Error() string {
	return fmt.Sprintf("%s body must have length of %d, but it is %d", e.messageType, e.expectedLen, e.actualLen)
}

type invalidMessageFormatErr struct {
	messageType string
	details     string
}

func (e *invalidMessageFormatErr) Error() string {
	msg := fmt.Sprintf("%s body is invalid", e.messageType)
	if e.details != "" {
		msg += ": " + e.details
	}
	return msg
}

type writeError struct {
	err         error
	safeToRetry bool
}

func (e *writeError) Error() string     { return fmt.Sprintf("write failed: %s", e.err.Error()) }
func (e *writeError) SafeToRetry() bool { return e.safeToRetry }
func (e *writeError) Unwrap() error     { return e.err }

func translateEOFtoErrUnexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// msgReader pulls whole message bodies out of an io.Reader with a single
// growable buffer instead of allocating per Read call. A message that
// arrives split across TCP segments is reassembled by Frontend/Backend
// calling Next(5) for the header and Next(bodyLen) for the body as two
// separate, resumable steps — see Frontend.Receive.
type msgReader struct {
	r      io.Reader
	buf    []byte
	rp, wp int
}

func newMsgReader(r io.Reader) *msgReader {
	// Postgres's own send buffer is 8KB; matching it avoids needless
	// extra read syscalls for the common case.
	buf := make([]byte, 8192)
	return &msgReader{r: r, buf: buf}
}

// Next returns the next n bytes. The slice is only valid until the next
// call to Next.
func (m *msgReader) Next(n int) ([]byte, error) {
	if m.rp == m.wp {
		m.rp, m.wp = 0, 0
	}

	if (m.wp - m.rp) >= n {
		buf := m.buf[m.rp : m.rp+n : m.rp+n]
		m.rp += n
		return buf, nil
	}

	if len(m.buf) < n {
		grown := make([]byte, n)
		m.wp = copy(grown, m.buf[m.rp:m.wp])
		m.rp = 0
		m.buf = grown
	} else if (len(m.buf) - m.wp) < (n - (m.wp - m.rp)) {
		m.wp = copy(m.buf, m.buf[m.rp:m.wp])
		m.rp = 0
	}

	minRead := n - (m.wp - m.rp)
	nn, err := io.ReadAtLeast(m.r, m.buf[m.wp:], minRead)
	m.wp += nn
	if err != nil {
		return nil, err
	}

	buf := m.buf[m.rp : m.rp+n : m.rp+n]
	m.rp += n
	return buf, nil
}

// Buffered returns the count of bytes already read off the wire but not yet
// consumed via Next.
func (m *msgReader) Buffered() int {
	return m.wp - m.rp
}
