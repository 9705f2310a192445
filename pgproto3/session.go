package pgproto3

import (
	"bytes"
	"encoding/binary"

	"github.com/polydb/pg/internal/pgio"
)

// ParameterStatus reports a server configuration value (e.g. TimeZone,
// server_version), sent once at startup and again whenever it changes.
type ParameterStatus struct {
	Name  string
	Value string
}

func (*ParameterStatus) Backend() {}

func (dst *ParameterStatus) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "ParameterStatus"}
	}
	rp := idx + 1
	idx2 := bytes.IndexByte(src[rp:], 0)
	if idx2 < 0 {
		return &invalidMessageFormatErr{messageType: "ParameterStatus"}
	}
	dst.Name = string(src[:idx])
	dst.Value = string(src[rp : rp+idx2])
	return nil
}

func (src *ParameterStatus) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'S')
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	dst = append(dst, src.Value...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// BackendKeyData carries the process ID and secret key used by a future
// cancel-request connection to identify which backend to interrupt.
type BackendKeyData struct {
	ProcessID uint32
	SecretKey uint32
}

func (*BackendKeyData) Backend() {}

func (dst *BackendKeyData) Decode(src []byte) error {
	if len(src) != 8 {
		return &invalidMessageLenErr{messageType: "BackendKeyData", expectedLen: 8, actualLen: len(src)}
	}
	dst.ProcessID = binary.BigEndian.Uint32(src[:4])
	dst.SecretKey = binary.BigEndian.Uint32(src[4:])
	return nil
}

func (src *BackendKeyData) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'K')
	dst = pgio.AppendUint32(dst, src.ProcessID)
	dst = pgio.AppendUint32(dst, src.SecretKey)
	return finishMessage(dst, sp)
}

// ReadyForQuery reports the current transaction status ('I' idle, 'T' in a
// transaction, 'E' in a failed transaction) and that a new query cycle can
// begin.
type ReadyForQuery struct {
	TxStatus byte
}

func (*ReadyForQuery) Backend() {}

func (dst *ReadyForQuery) Decode(src []byte) error {
	if len(src) != 1 {
		return &invalidMessageLenErr{messageType: "ReadyForQuery", expectedLen: 1, actualLen: len(src)}
	}
	dst.TxStatus = src[0]
	return nil
}

func (src *ReadyForQuery) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'Z')
	dst = append(dst, src.TxStatus)
	return finishMessage(dst, sp)
}

// Terminate politely closes the connection.
type Terminate struct{}

func (*Terminate) Frontend() {}

func (dst *Terminate) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "Terminate", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *Terminate) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'X')
	return finishMessage(dst, sp)
}
