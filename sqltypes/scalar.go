// Package sqltypes holds the scalar value and operator vocabulary shared
// between the planner, the expression compiler, and the physical
// operators. The columnar Schema/Field/DataType/Record/Array vocabulary
// itself comes from github.com/apache/arrow-go/v18/arrow.
package sqltypes

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// ScalarValue is a tagged literal of a single arrow.DataType. Utf8 literals
// hold a *string so cloning a ScalarValue never copies the backing bytes.
type ScalarValue struct {
	Type    arrow.DataType
	Bool    bool
	Int64   int64
	Float64 float64
	Str     *string
}

// NewBool builds a Boolean scalar.
func NewBool(v bool) ScalarValue {
	return ScalarValue{Type: arrow.FixedWidthTypes.Boolean, Bool: v}
}

// NewInt64 builds an Int64 scalar (the literal type every integer literal
// parses to, per the planner's `rex` rules).
func NewInt64(v int64) ScalarValue {
	return ScalarValue{Type: arrow.PrimitiveTypes.Int64, Int64: v}
}

// NewFloat64 builds a Float64 scalar.
func NewFloat64(v float64) ScalarValue {
	return ScalarValue{Type: arrow.PrimitiveTypes.Float64, Float64: v}
}

// NewUtf8 builds a Utf8 scalar with shared string ownership.
func NewUtf8(v string) ScalarValue {
	return ScalarValue{Type: arrow.BinaryTypes.String, Str: &v}
}

// String renders the scalar for plan-debugging output, matching the
// "DataType(value)" shape used by the planner's format tests.
func (s ScalarValue) String() string {
	switch {
	case s.Type == nil:
		return "null"
	case arrow.TypeEqual(s.Type, arrow.FixedWidthTypes.Boolean):
		return fmt.Sprintf("Boolean(%v)", s.Bool)
	case arrow.TypeEqual(s.Type, arrow.BinaryTypes.String):
		if s.Str == nil {
			return `Utf8("")`
		}
		return fmt.Sprintf("Utf8(%q)", *s.Str)
	default:
		name := s.Type.String()
		if strings.HasPrefix(name, "uint") {
			name = "UInt" + name[len("uint"):]
		} else {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		if isFloatType(s.Type) {
			return fmt.Sprintf("%s(%v)", name, s.Float64)
		}
		return fmt.Sprintf("%s(%v)", name, s.Int64)
	}
}

func isFloatType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

// AsFloat64 widens whatever numeric payload the scalar carries to float64.
// Used by the expression compiler when materializing a literal array of a
// wider numeric type than the literal's own storage (e.g. an Int64(9)
// literal cast to Float64).
func (s ScalarValue) AsFloat64() float64 {
	if isFloatType(s.Type) {
		return s.Float64
	}
	return float64(s.Int64)
}

// AsInt64 narrows/widens whatever numeric payload the scalar carries to
// int64.
func (s ScalarValue) AsInt64() int64 {
	if isFloatType(s.Type) {
		return int64(s.Float64)
	}
	return s.Int64
}

// Operator enumerates every BinaryExpr operator spec.md defines.
type Operator int

const (
	Gt Operator = iota
	GtEq
	Lt
	LtEq
	Eq
	NotEq
	Plus
	Minus
	Multiply
	Divide
	Modulus
	And
	Or
	Not
	Like
	NotLike
)

func (o Operator) String() string {
	switch o {
	case Gt:
		return "Gt"
	case GtEq:
		return "GtEq"
	case Lt:
		return "Lt"
	case LtEq:
		return "LtEq"
	case Eq:
		return "Eq"
	case NotEq:
		return "NotEq"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Multiply:
		return "Multiply"
	case Divide:
		return "Divide"
	case Modulus:
		return "Modulus"
	case And:
		return "And"
	case Or:
		return "Or"
	case Not:
		return "Not"
	case Like:
		return "Like"
	case NotLike:
		return "NotLike"
	default:
		return "Unknown"
	}
}

// IsComparison reports whether op always yields Boolean, per spec.md §4.2.
func (o Operator) IsComparison() bool {
	switch o {
	case Gt, GtEq, Lt, LtEq, Eq, NotEq, And, Or, Not, Like, NotLike:
		return true
	default:
		return false
	}
}
