package model

import "fmt"

// ValueType tags the dynamic type carried by a Parameter's Value, a Glow
// requirement.
type ValueType int

const (
	TypeNone ValueType = iota
	TypeInteger
	TypeReal
	TypeString
	TypeBoolean
	TypeTrigger
	TypeEnum
	TypeOctets
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeReal:
		return "Real"
	case TypeString:
		return "String"
	case TypeBoolean:
		return "Boolean"
	case TypeTrigger:
		return "Trigger"
	case TypeEnum:
		return "Enum"
	case TypeOctets:
		return "Octets"
	default:
		return "None"
	}
}

// Access controls whether a parameter may be read/written by a consumer.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

// MatrixType governs connection-set invariants.
type MatrixType int

const (
	MatrixOneToN MatrixType = iota
	MatrixOneToOne
	MatrixNToN
)

// Disposition is a per-connection state flag a provider reports; emberflow
// records and surfaces it without interpreting Modified/Pending/Locked
// any further.
type Disposition int

const (
	DispositionTally Disposition = iota
	DispositionModified
	DispositionPending
	DispositionLocked
)

// ConnectionOperation is the verb carried by a Glow Connection element.
type ConnectionOperation int

const (
	OpAbsolute ConnectionOperation = iota
	OpConnect
	OpDisconnect
)

// Value is a tagged union over the Ember+ parameter value types. Decoding
// fails loudly on an unexpected tag rather than silently promoting.
type Value struct {
	Type    ValueType
	Int     int64
	Real    float64
	Str     string
	Bool    bool
	EnumIdx int32 // integer code when Type==TypeEnum
	Octets  []byte
}

func NewInt(v int64) Value     { return Value{Type: TypeInteger, Int: v} }
func NewReal(v float64) Value  { return Value{Type: TypeReal, Real: v} }
func NewString(v string) Value { return Value{Type: TypeString, Str: v} }
func NewBool(v bool) Value     { return Value{Type: TypeBoolean, Bool: v} }
func NewTrigger() Value        { return Value{Type: TypeTrigger} }
func NewEnum(code int32) Value { return Value{Type: TypeEnum, EnumIdx: code} }
func NewOctets(b []byte) Value { return Value{Type: TypeOctets, Octets: append([]byte(nil), b...)} }

func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return fmt.Sprintf("%d", v.Int)
	case TypeReal:
		return fmt.Sprintf("%g", v.Real)
	case TypeString:
		return v.Str
	case TypeBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case TypeTrigger:
		return "<trigger>"
	case TypeEnum:
		return fmt.Sprintf("enum(%d)", v.EnumIdx)
	case TypeOctets:
		return fmt.Sprintf("<%d bytes>", len(v.Octets))
	default:
		return "<none>"
	}
}

func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeInteger:
		return v.Int == o.Int
	case TypeReal:
		return v.Real == o.Real
	case TypeString:
		return v.Str == o.Str
	case TypeBoolean:
		return v.Bool == o.Bool
	case TypeEnum:
		return v.EnumIdx == o.EnumIdx
	case TypeOctets:
		if len(v.Octets) != len(o.Octets) {
			return false
		}
		for i := range v.Octets {
			if v.Octets[i] != o.Octets[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}
