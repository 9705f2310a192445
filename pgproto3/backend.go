package pgproto3

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxStartupPacketLen matches libpq's MAX_STARTUP_PACKET_LENGTH.
const maxStartupPacketLen = 10000

// Backend decodes the frontend side of the protocol. The driver never runs
// as a server; this exists so internal/pgmock can script a fake server in
// tests without depending on a second, incompatible pgproto3 module.
type Backend struct {
	r *msgReader
	w io.Writer

	bind            Bind
	copyData        CopyData
	copyFail        CopyFail
	describe        Describe
	execute         Execute
	flush           Flush
	parse           Parse
	passwordMessage PasswordMessage
	query           Query
	startupMessage  StartupMessage
	sync            Sync
	terminate       Terminate

	bodyLen    int
	msgType    byte
	partialMsg bool
}

func NewBackend(r io.Reader, w io.Writer) *Backend {
	return &Backend{r: newMsgReader(r), w: w}
}

func (b *Backend) Send(msg BackendMessage) error {
	_, err := b.w.Write(msg.Encode(nil))
	return err
}

func (b *Backend) ReceiveStartupMessage() (*StartupMessage, error) {
	header, err := b.r.Next(4)
	if err != nil {
		return nil, translateEOFtoErrUnexpectedEOF(err)
	}
	msgSize := int(binary.BigEndian.Uint32(header) - 4)
	if msgSize < 0 || msgSize > maxStartupPacketLen {
		return nil, fmt.Errorf("invalid length of startup packet: %d", msgSize)
	}

	buf, err := b.r.Next(msgSize)
	if err != nil {
		return nil, translateEOFtoErrUnexpectedEOF(err)
	}
	if err := b.startupMessage.Decode(buf); err != nil {
		return nil, err
	}
	return &b.startupMessage, nil
}

func (b *Backend) Receive() (FrontendMessage, error) {
	if !b.partialMsg {
		header, err := b.r.Next(5)
		if err != nil {
			return nil, translateEOFtoErrUnexpectedEOF(err)
		}
		b.msgType = header[0]
		b.bodyLen = int(binary.BigEndian.Uint32(header[1:])) - 4
		b.partialMsg = true
	}

	body, err := b.r.Next(b.bodyLen)
	if err != nil {
		return nil, translateEOFtoErrUnexpectedEOF(err)
	}
	b.partialMsg = false

	var msg FrontendMessage
	switch b.msgType {
	case 'B':
		msg = &b.bind
	case 'd':
		msg = &b.copyData
	case 'D':
		msg = &b.describe
	case 'E':
		msg = &b.execute
	case 'f':
		msg = &b.copyFail
	case 'H':
		msg = &b.flush
	case 'P':
		msg = &b.parse
	case 'p':
		msg = &b.passwordMessage
	case 'Q':
		msg = &b.query
	case 'S':
		msg = &b.sync
	case 'X':
		msg = &b.terminate
	default:
		return nil, fmt.Errorf("unknown message type: %c", b.msgType)
	}

	err = msg.Decode(body)
	return msg, err
}
