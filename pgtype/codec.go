package pgtype

import (
	"fmt"
	"strconv"
	"time"

	"github.com/polydb/pg/pgerr"
)

// Cell is one wire-format parameter or column value: the bytes to send
// or the bytes received, plus whether it represents SQL NULL. Binary is
// only ever true for KindOctets parameters — every other kind is sent
// and parsed as text (the UNKNOWN OID defers typing to the server, so
// text is the only format that always works).
type Cell struct {
	Bytes  []byte
	Null   bool
	Binary bool
}

// EncodeParams walks t and value together, producing one Cell per
// primitive leaf. value's shape must mirror t's shape:
//
//	Unit        -> ignored
//	Field       -> a Go scalar matching the field's kind (bool, int64,
//	               int16, int32, float64, string, []byte, time.Time,
//	               time.Duration)
//	Option      -> *T, where T is whatever Elem expects; nil means None
//	Tup2/3/4    -> [2]any / [3]any / [4]any
//	Custom      -> an arbitrary user value passed through Encode first
//	Annot       -> the same shape as Elem
//
// A value a coding refuses yields EncodeRejected tagged with the field
// kind that rejected it; a value of the wrong Go type is also
// EncodeRejected, not a panic. A Custom type with no encoder, or an
// unknown field kind, yields EncodeMissing.
func EncodeParams(t Type, value any) ([]Cell, error) {
	cells := make([]Cell, 0, t.Length())
	cells, err := encodeWalk(t, value, cells)
	if err != nil {
		return nil, err
	}
	return cells, nil
}

func encodeWalk(t Type, value any, out []Cell) ([]Cell, error) {
	switch n := t.(type) {
	case Unit:
		return out, nil
	case Field:
		cell, err := encodeField(n, value)
		if err != nil {
			return nil, err
		}
		return append(out, cell), nil
	case Option:
		if value == nil {
			return encodeNulls(n.Elem, out), nil
		}
		// value is expected to be a pointer to the element's shape.
		inner, err := derefOption(value)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return encodeNulls(n.Elem, out), nil
		}
		return encodeWalk(n.Elem, inner, out)
	case Tup2:
		parts, err := asTuple(value, 2)
		if err != nil {
			return nil, err
		}
		out, err = encodeWalk(n.A, parts[0], out)
		if err != nil {
			return nil, err
		}
		return encodeWalk(n.B, parts[1], out)
	case Tup3:
		parts, err := asTuple(value, 3)
		if err != nil {
			return nil, err
		}
		var err2 error
		out, err2 = encodeWalk(n.A, parts[0], out)
		if err2 != nil {
			return nil, err2
		}
		out, err2 = encodeWalk(n.B, parts[1], out)
		if err2 != nil {
			return nil, err2
		}
		return encodeWalk(n.C, parts[2], out)
	case Tup4:
		parts, err := asTuple(value, 4)
		if err != nil {
			return nil, err
		}
		var err2 error
		out, err2 = encodeWalk(n.A, parts[0], out)
		if err2 != nil {
			return nil, err2
		}
		out, err2 = encodeWalk(n.B, parts[1], out)
		if err2 != nil {
			return nil, err2
		}
		out, err2 = encodeWalk(n.C, parts[2], out)
		if err2 != nil {
			return nil, err2
		}
		return encodeWalk(n.D, parts[3], out)
	case Custom:
		if n.Encode == nil {
			return nil, pgerr.New(pgerr.EncodeMissing, "", "", "custom type has no encoder")
		}
		rep, err := n.Encode(value)
		if err != nil {
			return nil, pgerr.New(pgerr.EncodeRejected, "", "", "custom encode failed: "+err.Error())
		}
		return encodeWalk(n.Rep, rep, out)
	case Annot:
		return encodeWalk(n.Elem, value, out)
	default:
		return nil, pgerr.New(pgerr.EncodeRejected, "", "", "unrecognized type descriptor node")
	}
}

// encodeNulls emits Length(t) NULL cells — the wire form of Option's
// None arm.
func encodeNulls(t Type, out []Cell) []Cell {
	for i := 0; i < t.Length(); i++ {
		out = append(out, Cell{Null: true})
	}
	return out
}

func derefOption(value any) (any, error) {
	// Accept either a **T-like "maybe" wrapper expressed as *any, or a
	// plain pointer to a scalar. Callers that build requests by hand pass
	// *any so nil/non-nil is explicit regardless of the element's kind.
	if p, ok := value.(*any); ok {
		if p == nil {
			return nil, nil
		}
		return *p, nil
	}
	return value, nil
}

func asTuple(value any, n int) ([]any, error) {
	switch v := value.(type) {
	case [2]any:
		if n != 2 {
			break
		}
		return v[:], nil
	case [3]any:
		if n != 3 {
			break
		}
		return v[:], nil
	case [4]any:
		if n != 4 {
			break
		}
		return v[:], nil
	case []any:
		if len(v) == n {
			return v, nil
		}
	}
	return nil, pgerr.New(pgerr.EncodeRejected, "", "", fmt.Sprintf("expected a %d-tuple value", n))
}

func encodeField(f Field, value any) (Cell, error) {
	switch f.Kind {
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		if b {
			return Cell{Bytes: []byte("t")}, nil
		}
		return Cell{Bytes: []byte("f")}, nil
	case KindInt, KindInt64:
		i, err := asInt64(value)
		if err != nil {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: strconv.AppendInt(nil, i, 10)}, nil
	case KindInt16:
		i, err := asInt64(value)
		if err != nil {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: strconv.AppendInt(nil, i, 10)}, nil
	case KindInt32:
		i, err := asInt64(value)
		if err != nil {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: strconv.AppendInt(nil, i, 10)}, nil
	case KindFloat:
		fl, ok := value.(float64)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(strconv.FormatFloat(fl, 'g', -1, 64))}, nil
	case KindString:
		s, ok := value.(string)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(s)}, nil
	case KindOctets:
		b, ok := value.([]byte)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: b, Binary: true}, nil
	case KindPdate:
		t, ok := value.(time.Time)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(Converter.EncodeDate(t))}, nil
	case KindPtime:
		t, ok := value.(time.Time)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(Converter.EncodeTimestamp(t))}, nil
	case KindPtimeSpan:
		d, ok := value.(time.Duration)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(Converter.EncodeSpan(d))}, nil
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return Cell{}, rejectField(f, value)
		}
		return Cell{Bytes: []byte(s)}, nil
	default:
		return Cell{}, pgerr.New(pgerr.EncodeMissing, "", "", "no encoding for field kind")
	}
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("not an integer")
	}
}

func rejectField(f Field, value any) error {
	return pgerr.New(pgerr.EncodeRejected, "", "", fmt.Sprintf("cannot encode %T as field kind %d", value, f.Kind))
}

// DecodeRow walks t against a flat slice of wire cells — one per
// primitive leaf, row-major, matching the order EncodeParams/InitParamTypes
// would visit them in — and returns a value shaped like t (mirroring
// EncodeParams's shape conventions). Option uses the skip-null probe: a
// cell group represents None iff every one of its Length(Elem) cells is
// NULL; otherwise it decodes Elem normally, even if only some of that
// group's cells are NULL (that is a decode error, not a partial None).
func DecodeRow(t Type, cells []Cell) (any, error) {
	value, rest, err := decodeWalk(t, cells)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, pgerr.New(pgerr.DecodeRejected, "", "", "row decoder left unconsumed cells")
	}
	return value, nil
}

func decodeWalk(t Type, cells []Cell) (any, []Cell, error) {
	switch n := t.(type) {
	case Unit:
		return nil, cells, nil
	case Field:
		if len(cells) == 0 {
			return nil, nil, pgerr.New(pgerr.DecodeRejected, "", "", "row has fewer cells than the descriptor expects")
		}
		v, err := decodeField(n, cells[0])
		if err != nil {
			return nil, nil, err
		}
		return v, cells[1:], nil
	case Option:
		length := n.Elem.Length()
		if len(cells) < length {
			return nil, nil, pgerr.New(pgerr.DecodeRejected, "", "", "row has fewer cells than the descriptor expects")
		}
		if allNull(cells[:length]) {
			return (*any)(nil), cells[length:], nil
		}
		inner, rest, err := decodeWalk(n.Elem, cells)
		if err != nil {
			return nil, nil, err
		}
		boxed := new(any)
		*boxed = inner
		return boxed, rest, nil
	case Tup2:
		a, rest, err := decodeWalk(n.A, cells)
		if err != nil {
			return nil, nil, err
		}
		b, rest, err := decodeWalk(n.B, rest)
		if err != nil {
			return nil, nil, err
		}
		return [2]any{a, b}, rest, nil
	case Tup3:
		a, rest, err := decodeWalk(n.A, cells)
		if err != nil {
			return nil, nil, err
		}
		b, rest, err := decodeWalk(n.B, rest)
		if err != nil {
			return nil, nil, err
		}
		c, rest, err := decodeWalk(n.C, rest)
		if err != nil {
			return nil, nil, err
		}
		return [3]any{a, b, c}, rest, nil
	case Tup4:
		a, rest, err := decodeWalk(n.A, cells)
		if err != nil {
			return nil, nil, err
		}
		b, rest, err := decodeWalk(n.B, rest)
		if err != nil {
			return nil, nil, err
		}
		c, rest, err := decodeWalk(n.C, rest)
		if err != nil {
			return nil, nil, err
		}
		d, rest, err := decodeWalk(n.D, rest)
		if err != nil {
			return nil, nil, err
		}
		return [4]any{a, b, c, d}, rest, nil
	case Custom:
		rep, rest, err := decodeWalk(n.Rep, cells)
		if err != nil {
			return nil, nil, err
		}
		if n.Decode == nil {
			return nil, nil, pgerr.New(pgerr.DecodeMissing, "", "", "custom type has no decoder")
		}
		v, err := n.Decode(rep)
		if err != nil {
			return nil, nil, pgerr.New(pgerr.DecodeRejected, "", "", "custom decode failed: "+err.Error())
		}
		return v, rest, nil
	case Annot:
		return decodeWalk(n.Elem, cells)
	default:
		return nil, nil, pgerr.New(pgerr.DecodeRejected, "", "", "unrecognized type descriptor node")
	}
}

func allNull(cells []Cell) bool {
	for _, c := range cells {
		if !c.Null {
			return false
		}
	}
	return true
}

func decodeField(f Field, cell Cell) (any, error) {
	if cell.Null {
		return nil, pgerr.New(pgerr.DecodeRejected, "", "", "unexpected NULL for a non-Option field")
	}
	s := string(cell.Bytes)
	switch f.Kind {
	case KindBool:
		switch s {
		case "t", "true":
			return true, nil
		case "f", "false":
			return false, nil
		default:
			return nil, decodeReject(f, s)
		}
	case KindInt, KindInt64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return i, nil
	case KindInt16:
		i, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return int16(i), nil
	case KindInt32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return int32(i), nil
	case KindFloat:
		fl, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return fl, nil
	case KindString:
		return s, nil
	case KindOctets:
		if cell.Binary {
			return cell.Bytes, nil
		}
		b, err := UnescapeBytea(cell.Bytes)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return b, nil
	case KindPdate:
		t, err := Converter.DecodeDate(s)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return t, nil
	case KindPtime:
		t, err := Converter.DecodeTimestamp(s)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return t, nil
	case KindPtimeSpan:
		d, err := Converter.DecodeSpan(s)
		if err != nil {
			return nil, decodeReject(f, s)
		}
		return d, nil
	case KindEnum:
		return s, nil
	default:
		return nil, pgerr.New(pgerr.DecodeMissing, "", "", "no decoding for field kind")
	}
}

func decodeReject(f Field, raw string) error {
	return pgerr.New(pgerr.DecodeRejected, "", "", fmt.Sprintf("cannot decode %q as field kind %d", raw, f.Kind))
}
