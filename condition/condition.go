// Package condition implements the ICON condition algebra: a strongly-typed
// predicate language over robot state variables, with conjunction,
// disjunction, and negation, convertible to an on-wire form evaluated inside
// the server's real-time loop.
//
// The type hierarchy is a closed sum type over {Comparison, Conjunction,
// Negation}, modeled as a Go interface implemented by exactly those three
// concrete types (a visitor-free recursion, since Go's type switches make a
// visitor interface unnecessary for a closed set this small).
package condition

import (
	"fmt"
	"math"

	"github.com/icon-robotics/iconclient/iconerr"
)

// DefaultMaxAbsError is the conventional tolerance for approximate
// comparisons, 2⁻¹⁰. IsApprox, IsNotApprox and Create take the tolerance as
// an explicit argument and never substitute this value on their own.
const DefaultMaxAbsError = 0x1p-10

// Op is a comparison operator. The numeric gaps below (3 and 4 absent from
// the int-compatible set, 1 and 2 absent from the float-compatible set)
// mirror the wire enum's deliberate reservation of those values for the
// operators that don't apply to that value type; it isn't load-bearing in
// this package, just kept for continuity with the wire form.
type Op int

const (
	OpUnspecified Op = iota
	OpEqual
	OpNotEqual
	OpApproxEqual
	OpApproxNotEqual
	OpLessThanOrEqual
	OpLessThan
	OpGreaterThanOrEqual
	OpGreaterThan
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "EQUAL"
	case OpNotEqual:
		return "NOT_EQUAL"
	case OpApproxEqual:
		return "APPROX_EQUAL"
	case OpApproxNotEqual:
		return "APPROX_NOT_EQUAL"
	case OpLessThanOrEqual:
		return "LESS_THAN_OR_EQUAL"
	case OpLessThan:
		return "LESS_THAN"
	case OpGreaterThanOrEqual:
		return "GREATER_THAN_OR_EQUAL"
	case OpGreaterThan:
		return "GREATER_THAN"
	default:
		return "UNSPECIFIED"
	}
}

// ValueKind identifies which variant of Value is populated.
type ValueKind int

const (
	ValueKindUnset ValueKind = iota
	ValueKindBool
	ValueKindInt64
	ValueKindDouble
)

// Value is the oneof'd comparison operand: exactly one of the three fields
// is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int64  int64
	Double float64
}

// BoolValue constructs a bool-kinded Value.
func BoolValue(v bool) Value { return Value{Kind: ValueKindBool, Bool: v} }

// IntValue constructs an int64-kinded Value.
func IntValue(v int64) Value { return Value{Kind: ValueKindInt64, Int64: v} }

// DoubleValue constructs a double-kinded Value.
func DoubleValue(v float64) Value { return Value{Kind: ValueKindDouble, Double: v} }

func (v Value) String() string {
	switch v.Kind {
	case ValueKindBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueKindInt64:
		return fmt.Sprintf("%d", v.Int64)
	case ValueKindDouble:
		return fmt.Sprintf("%.17g", v.Double)
	default:
		return "<unset>"
	}
}

// Condition is implemented by Comparison, Conjunction, and Negation — the
// closed set of condition variants. It is intentionally unexported-method
// sealed (via the marker method conditionNode) so no other package can add
// a fourth variant.
type Condition interface {
	conditionNode()
}

// Comparison compares an action-specific state variable, or any supported
// field of the robot system status, to a fixed value.
type Comparison struct {
	StateVariableName string
	Operation         Op
	Value             Value
	MaxAbsError        float64
}

func (Comparison) conditionNode() {}

// Create validates (operation, value) per the spec's type-compatibility
// invariants and builds a Comparison, or returns InvalidArgument:
//
//   - a bool value pairs only with EQUAL/NOT_EQUAL;
//   - a double value pairs only with APPROX_EQUAL/APPROX_NOT_EQUAL or one
//     of the four ordered operators;
//   - an int64 value pairs only with EQUAL/NOT_EQUAL or one of the four
//     ordered operators.
//
// maxAbsError is used only for APPROX_EQUAL/APPROX_NOT_EQUAL comparisons
// and is otherwise ignored; pass DefaultMaxAbsError when in doubt.
func Create(stateVariableName string, op Op, value Value, maxAbsError float64) (Comparison, error) {
	switch value.Kind {
	case ValueKindBool:
		if op != OpEqual && op != OpNotEqual {
			return Comparison{}, iconerr.InvalidArgument(
				"condition: bool value is incompatible with operation %s (only EQUAL/NOT_EQUAL allowed)", op)
		}
	case ValueKindDouble:
		switch op {
		case OpApproxEqual, OpApproxNotEqual, OpLessThanOrEqual, OpLessThan, OpGreaterThanOrEqual, OpGreaterThan:
		default:
			return Comparison{}, iconerr.InvalidArgument(
				"condition: double value is incompatible with operation %s (value=%s)", op, value)
		}
	case ValueKindInt64:
		switch op {
		case OpEqual, OpNotEqual, OpLessThanOrEqual, OpLessThan, OpGreaterThanOrEqual, OpGreaterThan:
		default:
			return Comparison{}, iconerr.InvalidArgument(
				"condition: int64 value is incompatible with operation %s (value=%s)", op, value)
		}
	default:
		return Comparison{}, iconerr.InvalidArgument("condition: value oneof is unset")
	}
	if stateVariableName == "" {
		return Comparison{}, iconerr.InvalidArgument("condition: state_variable_name must not be empty")
	}
	return Comparison{
		StateVariableName: stateVariableName,
		Operation:          op,
		Value:              value,
		MaxAbsError:        maxAbsError,
	}, nil
}

// IsTrue builds a Comparison satisfied when name equals true.
func IsTrue(name string) Comparison {
	c, _ := Create(name, OpEqual, BoolValue(true), 0)
	return c
}

// IsFalse builds a Comparison satisfied when name equals false.
func IsFalse(name string) Comparison {
	c, _ := Create(name, OpEqual, BoolValue(false), 0)
	return c
}

// IsEqual builds a Comparison satisfied when name equals value.
func IsEqual(name string, value int64) Comparison {
	c, _ := Create(name, OpEqual, IntValue(value), 0)
	return c
}

// IsNotEqual builds a Comparison satisfied when name does not equal value.
func IsNotEqual(name string, value int64) Comparison {
	c, _ := Create(name, OpNotEqual, IntValue(value), 0)
	return c
}

// IsApprox builds a Comparison satisfied when name is within maxAbsError of
// value.
func IsApprox(name string, value float64, maxAbsError float64) Comparison {
	c, _ := Create(name, OpApproxEqual, DoubleValue(value), maxAbsError)
	return c
}

// IsNotApprox builds a Comparison satisfied when name is not within
// maxAbsError of value.
func IsNotApprox(name string, value float64, maxAbsError float64) Comparison {
	c, _ := Create(name, OpApproxNotEqual, DoubleValue(value), maxAbsError)
	return c
}

// IsLessThanOrEqual builds an int64 ordered Comparison.
func IsLessThanOrEqual(name string, value int64) Comparison {
	c, _ := Create(name, OpLessThanOrEqual, IntValue(value), 0)
	return c
}

// IsLessThan builds an int64 ordered Comparison.
func IsLessThan(name string, value int64) Comparison {
	c, _ := Create(name, OpLessThan, IntValue(value), 0)
	return c
}

// IsGreaterThanOrEqual builds an int64 ordered Comparison.
func IsGreaterThanOrEqual(name string, value int64) Comparison {
	c, _ := Create(name, OpGreaterThanOrEqual, IntValue(value), 0)
	return c
}

// IsGreaterThan builds an int64 ordered Comparison.
func IsGreaterThan(name string, value int64) Comparison {
	c, _ := Create(name, OpGreaterThan, IntValue(value), 0)
	return c
}

// IsLessThanOrEqualF builds a double ordered Comparison.
func IsLessThanOrEqualF(name string, value float64) Comparison {
	c, _ := Create(name, OpLessThanOrEqual, DoubleValue(value), 0)
	return c
}

// IsLessThanF builds a double ordered Comparison.
func IsLessThanF(name string, value float64) Comparison {
	c, _ := Create(name, OpLessThan, DoubleValue(value), 0)
	return c
}

// IsGreaterThanOrEqualF builds a double ordered Comparison.
func IsGreaterThanOrEqualF(name string, value float64) Comparison {
	c, _ := Create(name, OpGreaterThanOrEqual, DoubleValue(value), 0)
	return c
}

// IsGreaterThanF builds a double ordered Comparison.
func IsGreaterThanF(name string, value float64) Comparison {
	c, _ := Create(name, OpGreaterThan, DoubleValue(value), 0)
	return c
}

// Equal reports structural equality between two Comparisons.
func (c Comparison) Equal(other Comparison) bool {
	return c.StateVariableName == other.StateVariableName &&
		c.Operation == other.Operation &&
		c.Value == other.Value &&
		c.MaxAbsError == other.MaxAbsError
}

// ConjunctionOp selects AllOf/AnyOf aggregation behavior.
type ConjunctionOp int

const (
	ConjunctionUnspecified ConjunctionOp = iota
	ConjunctionAllOf
	ConjunctionAnyOf
)

// Conjunction represents a condition comprised of the composition of other
// conditions, combined with either AllOf or AnyOf semantics.
type Conjunction struct {
	Operation  ConjunctionOp
	Conditions []Condition
}

func (Conjunction) conditionNode() {}

// AllOf builds a Conjunction satisfied when every child condition holds.
func AllOf(conditions ...Condition) Conjunction {
	cp := make([]Condition, len(conditions))
	copy(cp, conditions)
	return Conjunction{Operation: ConjunctionAllOf, Conditions: cp}
}

// AnyOf builds a Conjunction satisfied when at least one child condition
// holds.
func AnyOf(conditions ...Condition) Conjunction {
	cp := make([]Condition, len(conditions))
	copy(cp, conditions)
	return Conjunction{Operation: ConjunctionAnyOf, Conditions: cp}
}

// negatedConditionSalt is mixed into Negation's hash to keep it from
// colliding with its child's hash, mirroring the original's
// kNegatedConditionId.
const negatedConditionSalt = 0xAEDF098

// Negation represents the logical negation of exactly one child condition.
type Negation struct {
	Condition Condition
}

func (Negation) conditionNode() {}

// Not builds a Negation of condition.
func Not(cond Condition) Negation {
	return Negation{Condition: cond}
}

// Equal reports structural equality between two Condition trees.
func Equal(a, b Condition) bool {
	switch a := a.(type) {
	case Comparison:
		b, ok := b.(Comparison)
		return ok && a.Equal(b)
	case Conjunction:
		b, ok := b.(Conjunction)
		if !ok || a.Operation != b.Operation || len(a.Conditions) != len(b.Conditions) {
			return false
		}
		for i := range a.Conditions {
			if !Equal(a.Conditions[i], b.Conditions[i]) {
				return false
			}
		}
		return true
	case Negation:
		b, ok := b.(Negation)
		return ok && Equal(a.Condition, b.Condition)
	default:
		return false
	}
}

// Hash returns a structural hash of the condition tree. Hash(Not(c)) is
// guaranteed to differ from Hash(c) for any c, by salting with
// negatedConditionSalt.
func Hash(c Condition) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	mix := func(vs ...uint64) {
		for _, v := range vs {
			h ^= v
			h *= prime64
		}
	}
	mixString := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= prime64
		}
	}
	var walk func(Condition)
	walk = func(c Condition) {
		switch c := c.(type) {
		case Comparison:
			mixString(c.StateVariableName)
			mix(uint64(c.Operation))
			switch c.Value.Kind {
			case ValueKindBool:
				v := uint64(0)
				if c.Value.Bool {
					v = 1
				}
				mix(uint64(c.Value.Kind), v)
			case ValueKindInt64:
				mix(uint64(c.Value.Kind), uint64(c.Value.Int64))
			case ValueKindDouble:
				mix(uint64(c.Value.Kind), doubleBits(c.Value.Double))
			}
			mix(doubleBits(c.MaxAbsError))
		case Conjunction:
			mix(uint64(c.Operation), uint64(len(c.Conditions)))
			for _, child := range c.Conditions {
				walk(child)
			}
		case Negation:
			mix(negatedConditionSalt)
			walk(c.Condition)
		}
	}
	walk(c)
	return h
}

func doubleBits(f float64) uint64 {
	return math.Float64bits(f)
}
