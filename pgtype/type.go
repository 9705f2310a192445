// Package pgtype implements the type-directed parameter/row marshaller:
// a first-class descriptor tree that walks a query's input and output
// shape, binds parameter OIDs, and drives value encoding/decoding. It is
// organized around that descriptor tree rather than a per-type Codec
// registry, so one interpreter loop handles every row/parameter shape a
// caller can build.
package pgtype

import "github.com/polydb/pg/pgerr"

// Kind is a primitive field kind — a leaf of a Type tree.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindInt16
	KindInt32
	KindInt64
	KindFloat
	KindString
	KindOctets
	KindPdate
	KindPtime
	KindPtimeSpan
	KindEnum
)

// Type is a node in the descriptor tree. Every Type knows its own
// length: the number of primitive leaves it contributes to a parameter
// or row array.
type Type interface {
	Length() int
}

// Unit consumes no parameter or column slots. It is the descriptor for
// requests with no parameters or a Command_ok response.
type Unit struct{}

func (Unit) Length() int { return 0 }

// Field is a single primitive leaf. EnumName is only meaningful when
// Kind == KindEnum.
type Field struct {
	Kind     Kind
	EnumName string
}

func (Field) Length() int { return 1 }

// NewField builds a Field descriptor for a non-enum primitive kind.
func NewField(k Kind) Field { return Field{Kind: k} }

// NewEnum builds a Field descriptor for a user-defined enum type, keyed
// by its Postgres type name for OID resolution (see EnumResolver).
func NewEnum(name string) Field { return Field{Kind: KindEnum, EnumName: name} }

// Option wraps a descriptor whose value may be absent. Absence is
// represented on the wire by every one of Elem's leaves being SQL NULL
// (the "skip-null" probe).
type Option struct {
	Elem Type
}

func (o Option) Length() int { return o.Elem.Length() }

// Tup2, Tup3 and Tup4 are fixed-arity product types. Their length is the
// sum of their components' lengths, matching the invariant that the leaf
// count equals the parameter/row array width.
type Tup2 struct{ A, B Type }

func (t Tup2) Length() int { return t.A.Length() + t.B.Length() }

type Tup3 struct{ A, B, C Type }

func (t Tup3) Length() int { return t.A.Length() + t.B.Length() + t.C.Length() }

type Tup4 struct{ A, B, C, D Type }

func (t Tup4) Length() int {
	return t.A.Length() + t.B.Length() + t.C.Length() + t.D.Length()
}

// Custom layers a user coding on top of a representation descriptor Rep.
// Encode turns a user value into a value shaped like Rep; Decode is its
// inverse. Both may fail — the caller's coding is not trusted.
type Custom struct {
	Rep    Type
	Encode func(userValue any) (repValue any, err error)
	Decode func(repValue any) (userValue any, err error)
}

func (c Custom) Length() int { return c.Rep.Length() }

// Annot attaches a human-readable label to a descriptor without changing
// its shape. It exists purely for error messages and request introspection.
type Annot struct {
	Label string
	Elem  Type
}

func (a Annot) Length() int { return a.Elem.Length() }

// Length is the exported form of the cursor invariant: the number of
// primitive leaves in t.
func Length(t Type) int { return t.Length() }

// EnumResolver resolves a user-defined enum type name to its OID,
// consulting (and filling) a connection-local cache. It is implemented by
// the connection dispatcher; pgtype only calls through the
// interface so the codec stays free of any notion of a live connection.
type EnumResolver interface {
	ResolveEnumOID(name string) (uint32, error)
}

// InitParamTypes walks t left to right, assigning each field leaf's OID
// into oids[cursor] and binary[cursor] = (oid == BYTEA). Option does not
// itself consume a slot — only its leaves do. Custom defers to its Rep.
// Enum leaves resolve through resolver; a resolution failure surfaces as
// EncodeMissing. Post-condition: cursor == len(oids).
func InitParamTypes(oids []uint32, binary []bool, t Type, resolver EnumResolver) error {
	cursor := 0
	if err := walkInitParamTypes(t, oids, binary, &cursor, resolver); err != nil {
		return err
	}
	if cursor != len(oids) {
		return pgerr.New(pgerr.EncodeRejected, "", "", "type descriptor cursor mismatch after walk")
	}
	return nil
}

func walkInitParamTypes(t Type, oids []uint32, binary []bool, cursor *int, resolver EnumResolver) error {
	switch n := t.(type) {
	case Unit:
		return nil
	case Field:
		oid, err := oidForField(n, resolver)
		if err != nil {
			return err
		}
		oids[*cursor] = oid
		binary[*cursor] = oid == OIDBytea
		*cursor++
		return nil
	case Option:
		return walkInitParamTypes(n.Elem, oids, binary, cursor, resolver)
	case Tup2:
		if err := walkInitParamTypes(n.A, oids, binary, cursor, resolver); err != nil {
			return err
		}
		return walkInitParamTypes(n.B, oids, binary, cursor, resolver)
	case Tup3:
		for _, e := range [...]Type{n.A, n.B, n.C} {
			if err := walkInitParamTypes(e, oids, binary, cursor, resolver); err != nil {
				return err
			}
		}
		return nil
	case Tup4:
		for _, e := range [...]Type{n.A, n.B, n.C, n.D} {
			if err := walkInitParamTypes(e, oids, binary, cursor, resolver); err != nil {
				return err
			}
		}
		return nil
	case Custom:
		return walkInitParamTypes(n.Rep, oids, binary, cursor, resolver)
	case Annot:
		return walkInitParamTypes(n.Elem, oids, binary, cursor, resolver)
	default:
		return pgerr.New(pgerr.EncodeRejected, "", "", "unrecognized type descriptor node")
	}
}

func oidForField(f Field, resolver EnumResolver) (uint32, error) {
	if f.Kind == KindEnum {
		if resolver == nil {
			return 0, pgerr.New(pgerr.EncodeMissing, "", "", "enum type "+f.EnumName+" requires an OID resolver")
		}
		oid, err := resolver.ResolveEnumOID(f.EnumName)
		if err != nil {
			return 0, pgerr.New(pgerr.EncodeMissing, "", "", "no OID for enum type "+f.EnumName+": "+err.Error())
		}
		return oid, nil
	}
	oid, ok := fieldOIDTable[f.Kind]
	if !ok {
		return 0, pgerr.New(pgerr.EncodeMissing, "", "", "no OID mapping for field kind")
	}
	return oid, nil
}
