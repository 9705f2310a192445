package pgproto3

import (
	"bytes"
	"encoding/binary"

	"github.com/polydb/pg/internal/pgio"
)

// Query sends a simple-query string, which may hold several
// semicolon-separated statements. The statement cache uses this path for
// administrative statements (SET, DEALLOCATE) that never need parameters.
type Query struct {
	String string
}

func (*Query) Frontend() {}

func (dst *Query) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "Query"}
	}
	dst.String = string(src[:idx])
	return nil
}

func (src *Query) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'Q')
	dst = append(dst, src.String...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

const (
	TextFormat   = 0
	BinaryFormat = 1
)

// FieldDescription describes one column of a RowDescription.
type FieldDescription struct {
	Name                 []byte
	TableOID             uint32
	TableAttributeNumber uint16
	DataTypeOID          uint32
	DataTypeSize         int16
	TypeModifier         int32
	Format               int16
}

// RowDescription describes the columns the following DataRow messages carry.
type RowDescription struct {
	Fields []FieldDescription
}

func (*RowDescription) Backend() {}

func (dst *RowDescription) Decode(src []byte) error {
	buf := bytes.NewBuffer(src)

	if buf.Len() < 2 {
		return &invalidMessageFormatErr{messageType: "RowDescription"}
	}
	fieldCount := int(binary.BigEndian.Uint16(buf.Next(2)))
	fields := make([]FieldDescription, fieldCount)

	for i := 0; i < fieldCount; i++ {
		var fd FieldDescription
		name, err := buf.ReadBytes(0)
		if err != nil {
			return err
		}
		fd.Name = name[:len(name)-1]

		if buf.Len() < 18 {
			return &invalidMessageFormatErr{messageType: "RowDescription"}
		}
		fd.TableOID = binary.BigEndian.Uint32(buf.Next(4))
		fd.TableAttributeNumber = binary.BigEndian.Uint16(buf.Next(2))
		fd.DataTypeOID = binary.BigEndian.Uint32(buf.Next(4))
		fd.DataTypeSize = int16(binary.BigEndian.Uint16(buf.Next(2)))
		fd.TypeModifier = int32(binary.BigEndian.Uint32(buf.Next(4)))
		fd.Format = int16(binary.BigEndian.Uint16(buf.Next(2)))
		fields[i] = fd
	}
	dst.Fields = fields
	return nil
}

func (src *RowDescription) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'T')
	dst = pgio.AppendUint16(dst, uint16(len(src.Fields)))
	for _, fd := range src.Fields {
		dst = append(dst, fd.Name...)
		dst = append(dst, 0)
		dst = pgio.AppendUint32(dst, fd.TableOID)
		dst = pgio.AppendUint16(dst, fd.TableAttributeNumber)
		dst = pgio.AppendUint32(dst, fd.DataTypeOID)
		dst = pgio.AppendInt16(dst, fd.DataTypeSize)
		dst = pgio.AppendInt32(dst, fd.TypeModifier)
		dst = pgio.AppendInt16(dst, fd.Format)
	}
	return finishMessage(dst, sp)
}

// DataRow carries one row of values, each either nil (SQL NULL) or the raw
// text/binary encoding named by the matching RowDescription field's Format.
type DataRow struct {
	Values [][]byte
}

func (*DataRow) Backend() {}

func (dst *DataRow) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "DataRow"}
	}
	rp := 0
	fieldCount := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2

	// Reuse dst.Values's backing array unless it's too small or (to avoid
	// one wide row pinning memory forever) far too large.
	if cap(dst.Values) < fieldCount || cap(dst.Values)-fieldCount > 32 {
		dst.Values = make([][]byte, fieldCount, 32)
	} else {
		dst.Values = dst.Values[:fieldCount]
	}

	for i := 0; i < fieldCount; i++ {
		if len(src[rp:]) < 4 {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		size := int(int32(binary.BigEndian.Uint32(src[rp:])))
		rp += 4
		if size == -1 {
			dst.Values[i] = nil
			continue
		}
		if len(src[rp:]) < size {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		dst.Values[i] = src[rp : rp+size]
		rp += size
	}
	return nil
}

func (src *DataRow) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'D')
	dst = pgio.AppendUint16(dst, uint16(len(src.Values)))
	for _, v := range src.Values {
		if v == nil {
			dst = pgio.AppendInt32(dst, -1)
			continue
		}
		dst = pgio.AppendInt32(dst, int32(len(v)))
		dst = append(dst, v...)
	}
	return finishMessage(dst, sp)
}

// CommandComplete reports the command tag of a finished command, e.g.
// "INSERT 0 1" or "SELECT 3".
type CommandComplete struct {
	CommandTag []byte
}

func (*CommandComplete) Backend() {}

func (dst *CommandComplete) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx != len(src)-1 {
		return &invalidMessageFormatErr{messageType: "CommandComplete"}
	}
	dst.CommandTag = src[:idx]
	return nil
}

func (src *CommandComplete) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'C')
	dst = append(dst, src.CommandTag...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// EmptyQueryResponse replaces CommandComplete when the submitted query
// string was empty.
type EmptyQueryResponse struct{}

func (*EmptyQueryResponse) Backend() {}

func (dst *EmptyQueryResponse) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "EmptyQueryResponse", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *EmptyQueryResponse) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'I')
	return finishMessage(dst, sp)
}
