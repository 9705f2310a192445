package pgproto3

import (
	"bytes"
	"encoding/binary"

	"github.com/polydb/pg/internal/pgio"
)

// Parse names and registers a prepared statement on the server, with an
// optional list of parameter type OIDs (a zero OID lets the server infer
// the type from the query text).
type Parse struct {
	Name          string
	Query         string
	ParameterOIDs []uint32
}

func (*Parse) Frontend() {}

func (dst *Parse) Decode(src []byte) error {
	buf := bytes.NewBuffer(src)

	name, err := buf.ReadBytes(0)
	if err != nil {
		return err
	}
	dst.Name = string(name[:len(name)-1])

	query, err := buf.ReadBytes(0)
	if err != nil {
		return err
	}
	dst.Query = string(query[:len(query)-1])

	if buf.Len() < 2 {
		return &invalidMessageFormatErr{messageType: "Parse"}
	}
	count := int(binary.BigEndian.Uint16(buf.Next(2)))
	for i := 0; i < count; i++ {
		if buf.Len() < 4 {
			return &invalidMessageFormatErr{messageType: "Parse"}
		}
		dst.ParameterOIDs = append(dst.ParameterOIDs, binary.BigEndian.Uint32(buf.Next(4)))
	}
	return nil
}

func (src *Parse) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'P')
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	dst = append(dst, src.Query...)
	dst = append(dst, 0)
	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterOIDs)))
	for _, v := range src.ParameterOIDs {
		dst = pgio.AppendUint32(dst, v)
	}
	return finishMessage(dst, sp)
}

// Bind binds parameter values to a named (or unnamed) portal against an
// already-parsed statement.
type Bind struct {
	DestinationPortal    string
	PreparedStatement    string
	ParameterFormatCodes []int16
	Parameters           [][]byte
	ResultFormatCodes    []int16
}

func (*Bind) Frontend() {}

func (dst *Bind) Decode(src []byte) error {
	*dst = Bind{}

	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	dst.DestinationPortal = string(src[:idx])
	rp := idx + 1

	idx = bytes.IndexByte(src[rp:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	dst.PreparedStatement = string(src[rp : rp+idx])
	rp += idx + 1

	if len(src[rp:]) < 2 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	paramFormatCount := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	if paramFormatCount > 0 {
		dst.ParameterFormatCodes = make([]int16, paramFormatCount)
		if len(src[rp:]) < len(dst.ParameterFormatCodes)*2 {
			return &invalidMessageFormatErr{messageType: "Bind"}
		}
		for i := 0; i < paramFormatCount; i++ {
			dst.ParameterFormatCodes[i] = int16(binary.BigEndian.Uint16(src[rp:]))
			rp += 2
		}
	}

	if len(src[rp:]) < 2 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	paramCount := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	if paramCount > 0 {
		dst.Parameters = make([][]byte, paramCount)
		for i := 0; i < paramCount; i++ {
			if len(src[rp:]) < 4 {
				return &invalidMessageFormatErr{messageType: "Bind"}
			}
			size := int(int32(binary.BigEndian.Uint32(src[rp:])))
			rp += 4
			if size == -1 {
				continue
			}
			if len(src[rp:]) < size {
				return &invalidMessageFormatErr{messageType: "Bind"}
			}
			dst.Parameters[i] = src[rp : rp+size]
			rp += size
		}
	}

	if len(src[rp:]) < 2 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	resultFormatCount := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	dst.ResultFormatCodes = make([]int16, resultFormatCount)
	if len(src[rp:]) < len(dst.ResultFormatCodes)*2 {
		return &invalidMessageFormatErr{messageType: "Bind"}
	}
	for i := 0; i < resultFormatCount; i++ {
		dst.ResultFormatCodes[i] = int16(binary.BigEndian.Uint16(src[rp:]))
		rp += 2
	}
	return nil
}

func (src *Bind) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'B')
	dst = append(dst, src.DestinationPortal...)
	dst = append(dst, 0)
	dst = append(dst, src.PreparedStatement...)
	dst = append(dst, 0)

	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterFormatCodes)))
	for _, fc := range src.ParameterFormatCodes {
		dst = pgio.AppendInt16(dst, fc)
	}

	dst = pgio.AppendUint16(dst, uint16(len(src.Parameters)))
	for _, p := range src.Parameters {
		if p == nil {
			dst = pgio.AppendInt32(dst, -1)
			continue
		}
		dst = pgio.AppendInt32(dst, int32(len(p)))
		dst = append(dst, p...)
	}

	dst = pgio.AppendUint16(dst, uint16(len(src.ResultFormatCodes)))
	for _, fc := range src.ResultFormatCodes {
		dst = pgio.AppendInt16(dst, fc)
	}
	return finishMessage(dst, sp)
}

// Describe requests the shape of a prepared statement ('S') or portal ('P').
type Describe struct {
	ObjectType byte
	Name       string
}

func (*Describe) Frontend() {}

func (dst *Describe) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "Describe"}
	}
	dst.ObjectType = src[0]
	idx := bytes.IndexByte(src[1:], 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Describe"}
	}
	dst.Name = string(src[1 : 1+idx])
	return nil
}

func (src *Describe) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'D')
	dst = append(dst, src.ObjectType)
	dst = append(dst, src.Name...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// Execute requests rows from a bound portal. MaxRows of 0 means unlimited;
// the connector always sends 0, streaming rows at the API layer instead of
// relying on PortalSuspended.
type Execute struct {
	Portal  string
	MaxRows uint32
}

func (*Execute) Frontend() {}

func (dst *Execute) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "Execute"}
	}
	rp := idx + 1
	if len(src[rp:]) < 4 {
		return &invalidMessageFormatErr{messageType: "Execute"}
	}
	dst.Portal = string(src[:idx])
	dst.MaxRows = binary.BigEndian.Uint32(src[rp:])
	return nil
}

func (src *Execute) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'E')
	dst = append(dst, src.Portal...)
	dst = append(dst, 0)
	dst = pgio.AppendUint32(dst, src.MaxRows)
	return finishMessage(dst, sp)
}

// Sync closes out an extended-query message group, triggering ReadyForQuery.
type Sync struct{}

func (*Sync) Frontend() {}

func (dst *Sync) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "Sync", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *Sync) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'S')
	return finishMessage(dst, sp)
}

// ParseComplete acknowledges a successful Parse.
type ParseComplete struct{}

func (*ParseComplete) Backend() {}

func (dst *ParseComplete) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "ParseComplete", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *ParseComplete) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, '1')
	return finishMessage(dst, sp)
}

// BindComplete acknowledges a successful Bind.
type BindComplete struct{}

func (*BindComplete) Backend() {}

func (dst *BindComplete) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "BindComplete", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *BindComplete) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, '2')
	return finishMessage(dst, sp)
}

// NoData is sent instead of RowDescription when Describe targets a
// statement or portal that returns no rows.
type NoData struct{}

func (*NoData) Backend() {}

func (dst *NoData) Decode(src []byte) error {
	if len(src) != 0 {
		return &invalidMessageLenErr{messageType: "NoData", expectedLen: 0, actualLen: len(src)}
	}
	return nil
}

func (src *NoData) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'n')
	return finishMessage(dst, sp)
}

// ParameterDescription lists the parameter OIDs a prepared statement expects.
type ParameterDescription struct {
	ParameterOIDs []uint32
}

func (*ParameterDescription) Backend() {}

func (dst *ParameterDescription) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "ParameterDescription"}
	}
	rp := 0
	count := int(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	if len(src[rp:]) != count*4 {
		return &invalidMessageFormatErr{messageType: "ParameterDescription"}
	}
	dst.ParameterOIDs = make([]uint32, count)
	for i := 0; i < count; i++ {
		dst.ParameterOIDs[i] = binary.BigEndian.Uint32(src[rp:])
		rp += 4
	}
	return nil
}

func (src *ParameterDescription) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 't')
	dst = pgio.AppendUint16(dst, uint16(len(src.ParameterOIDs)))
	for _, oid := range src.ParameterOIDs {
		dst = pgio.AppendUint32(dst, oid)
	}
	return finishMessage(dst, sp)
}
