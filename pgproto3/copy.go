package pgproto3

import (
	"bytes"
	"encoding/binary"

	"github.com/polydb/pg/internal/pgio"
)

// CopyData carries a chunk of COPY payload in either direction.
type CopyData struct {
	Data []byte
}

func (*CopyData) Backend()  {}
func (*CopyData) Frontend() {}

func (dst *CopyData) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *CopyData) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'd')
	dst = append(dst, src.Data...)
	return finishMessage(dst, sp)
}

// CopyDone signals a clean end of a COPY operation, from either side.
type CopyDone struct{}

func (*CopyDone) Backend()  {}
func (*CopyDone) Frontend() {}

func (dst *CopyDone) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "CopyDone", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *CopyDone) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'c')
	return finishMessage(dst, sp)
}

// CopyFail aborts a COPY FROM STDIN with a client-supplied reason.
type CopyFail struct {
	Message string
}

func (*CopyFail) Frontend() {}

func (dst *CopyFail) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "CopyFail"}
	}
	dst.Message = string(src[:idx])
	return nil
}

func (src *CopyFail) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'f')
	dst = append(dst, src.Message...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// CopyInResponse tells the client the server is ready to receive COPY data,
// and in what format each column expects it.
type CopyInResponse struct {
	OverallFormat     byte
	ColumnFormatCodes []uint16
}

func (*CopyInResponse) Backend() {}

func (dst *CopyInResponse) Decode(src []byte) error {
	buf := bytes.NewBuffer(src)
	if buf.Len() < 3 {
		return &invalidMessageFormatErr{messageType: "CopyInResponse"}
	}
	overallFormat := buf.Next(1)[0]
	columnCount := int(binary.BigEndian.Uint16(buf.Next(2)))
	if buf.Len() != columnCount*2 {
		return &invalidMessageFormatErr{messageType: "CopyInResponse"}
	}
	codes := make([]uint16, columnCount)
	for i := 0; i < columnCount; i++ {
		codes[i] = binary.BigEndian.Uint16(buf.Next(2))
	}
	*dst = CopyInResponse{OverallFormat: overallFormat, ColumnFormatCodes: codes}
	return nil
}

func (src *CopyInResponse) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'G')
	dst = append(dst, src.OverallFormat)
	dst = pgio.AppendUint16(dst, uint16(len(src.ColumnFormatCodes)))
	for _, fc := range src.ColumnFormatCodes {
		dst = pgio.AppendUint16(dst, fc)
	}
	return finishMessage(dst, sp)
}

// Flush asks the server to deliver any pending output without waiting for
// a Sync, used mid-COPY to keep the connection's read side from stalling.
type Flush struct{}

func (*Flush) Frontend() {}

func (dst *Flush) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "Flush", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *Flush) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'H')
	return finishMessage(dst, sp)
}
