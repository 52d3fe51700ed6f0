package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/icon-robotics/iconclient/iconerr"
)

func TestCreate_boolValueRejectsOrderedOp(t *testing.T) {
	_, err := Create("@A.in_range", OpLessThan, BoolValue(true), 0)
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, iconerr.Code(err))
	require.Contains(t, err.Error(), "bool value is incompatible")
}

func TestCreate_doubleValueRejectsPlainEqual(t *testing.T) {
	_, err := Create("@A.joint_position[0]", OpEqual, DoubleValue(1.5), 0)
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, iconerr.Code(err))
}

func TestCreate_intValueAcceptsOrderedOps(t *testing.T) {
	for _, op := range []Op{OpEqual, OpNotEqual, OpLessThanOrEqual, OpLessThan, OpGreaterThanOrEqual, OpGreaterThan} {
		_, err := Create("@A.counter", op, IntValue(3), 0)
		require.NoErrorf(t, err, "op %s should be valid for int64 value", op)
	}
}

func TestCreate_emptyStateVariableName(t *testing.T) {
	_, err := Create("", OpEqual, IntValue(1), 0)
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, iconerr.Code(err))
}

func TestConvenienceConstructors(t *testing.T) {
	require.True(t, IsTrue("@A.done").Equal(IsTrue("@A.done")))
	require.False(t, IsTrue("@A.done").Equal(IsFalse("@A.done")))

	approx := IsApprox("@A.joint_position[2]", 1.0, DefaultMaxAbsError)
	require.Equal(t, OpApproxEqual, approx.Operation)
	require.Equal(t, DefaultMaxAbsError, approx.MaxAbsError)
}

func TestAllOfAnyOf_structuralEquality(t *testing.T) {
	a := AllOf(IsTrue("@A.homed"), IsGreaterThan("@A.cycle_count", 0))
	b := AllOf(IsTrue("@A.homed"), IsGreaterThan("@A.cycle_count", 0))
	require.True(t, Equal(a, b))

	c := AnyOf(IsTrue("@A.homed"), IsGreaterThan("@A.cycle_count", 0))
	require.False(t, Equal(a, c), "AllOf and AnyOf over identical children must not compare equal")
}

func TestNegation_hashDiffersFromChild(t *testing.T) {
	cond := IsTrue("@A.homed")
	neg := Not(cond)

	require.NotEqual(t, Hash(cond), Hash(neg))
	require.False(t, Equal(cond, neg))
}

func TestNegation_doubleNegationNotEqualToOriginal(t *testing.T) {
	cond := IsTrue("@A.homed")
	require.False(t, Equal(cond, Not(Not(cond))), "Not(Not(c)) is a distinct tree from c, not a simplification")
}

func TestHash_stableAcrossEqualBuilds(t *testing.T) {
	a := AllOf(IsEqual("@A.mode", 2), Not(IsFalse("@A.enabled")))
	b := AllOf(IsEqual("@A.mode", 2), Not(IsFalse("@A.enabled")))
	require.Equal(t, Hash(a), Hash(b))
}

func TestHash_orderSensitive(t *testing.T) {
	a := AllOf(IsEqual("@A.mode", 1), IsEqual("@A.mode", 2))
	b := AllOf(IsEqual("@A.mode", 2), IsEqual("@A.mode", 1))
	require.NotEqual(t, Hash(a), Hash(b))
	require.False(t, Equal(a, b))
}
