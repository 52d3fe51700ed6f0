package rotation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func approxEqual(t *testing.T, want, got, tolerance float64, msg string) {
	t.Helper()
	if math.Abs(want-got) > tolerance {
		t.Fatalf("%s: want %.17g, got %.17g (tolerance %.3g)", msg, want, got, tolerance)
	}
}

func TestIdentity_isIdentityQuaternion(t *testing.T) {
	id := Identity()
	require.Equal(t, Quaternion{W: 1}, id.Quaternion())
	require.Equal(t, 0.0, id.Norm())
}

func TestFromRPY_roundTrip(t *testing.T) {
	cases := []struct{ roll, pitch, yaw float64 }{
		{0.1, 0.2, 0.3},
		{-0.4, 0.0, 1.2},
		{0, 0, 0},
		{0.05, -0.9, -2.5},
	}
	for _, c := range cases {
		r := FromRPY(c.roll, c.pitch, c.yaw)
		roll, pitch, yaw := r.ToRPY()
		approxEqual(t, c.roll, roll, 1e-9, "roll")
		approxEqual(t, c.pitch, pitch, 1e-9, "pitch")
		approxEqual(t, c.yaw, yaw, 1e-9, "yaw")
	}
}

func TestToRPY_gimbalLockPositivePole(t *testing.T) {
	r := FromRPY(0, math.Pi/2, 0.7)
	roll, pitch, yaw := r.ToRPY()
	approxEqual(t, 0, roll, 1e-9, "roll at +pi/2 pitch must be reported as zero")
	approxEqual(t, math.Pi/2, pitch, 1e-9, "pitch")
	approxEqual(t, 0.7, yaw, 1e-9, "yaw absorbs roll at the pole")
}

func TestToRPY_gimbalLockNegativePole(t *testing.T) {
	r := FromRPY(0, -math.Pi/2, -0.4)
	_, pitch, _ := r.ToRPY()
	approxEqual(t, -math.Pi/2, pitch, 1e-9, "pitch")
}

func TestCompose_withInverseIsIdentity(t *testing.T) {
	r := FromRPY(0.3, -0.6, 1.1)
	composed := r.Compose(r.Inverse())
	require.True(t, composed.IsApproxDefault(Identity()))
}

func TestIsApprox_sameOrientationOppositeSignQuaternion(t *testing.T) {
	r := FromRPY(0.2, 0.1, -0.3)
	negated := Rotation{q: Quaternion{W: -r.q.W, X: -r.q.X, Y: -r.q.Y, Z: -r.q.Z}}
	require.True(t, r.IsApproxDefault(negated), "q and -q represent the same rotation")
}

func TestToAngleAxis_smallAngleLinearization(t *testing.T) {
	// An angle well below the 1e-7 cutoff must use the linearized branch,
	// scale = 2, exactly.
	tinyAngle := 1e-9
	r := FromRPY(tinyAngle, 0, 0)
	aa := r.ToAngleAxis()
	approxEqual(t, 2*r.q.X, aa[0], 1e-15, "x")
	approxEqual(t, 0, aa[1], 1e-15, "y")
	approxEqual(t, 0, aa[2], 1e-15, "z")
}

func TestToAngleAxis_magnitudeMatchesRotationAngle(t *testing.T) {
	r := FromRPY(0, 0, math.Pi/3)
	aa := r.ToAngleAxis()
	mag := math.Sqrt(aa[0]*aa[0] + aa[1]*aa[1] + aa[2]*aa[2])
	approxEqual(t, math.Pi/3, mag, 1e-9, "angle-axis magnitude")
}

func TestFromQuaternion_rejectsDegenerate(t *testing.T) {
	_, err := FromQuaternion(Quaternion{})
	require.Error(t, err)
}

func TestFromQuaternion_normalizesNonUnitInput(t *testing.T) {
	r, err := FromQuaternion(Quaternion{W: 2, X: 0, Y: 0, Z: 0})
	require.NoError(t, err)
	require.True(t, IsNormalizedQuaternion(r.Quaternion()))
}

func TestFromQuaternionStrict_rejectsNonUnitInput(t *testing.T) {
	_, err := FromQuaternionStrict(Quaternion{W: 2, X: 0, Y: 0, Z: 0})
	require.Error(t, err)
}

func TestFromQuaternionStrict_acceptsUnitInput(t *testing.T) {
	r, err := FromQuaternionStrict(Quaternion{W: 1})
	require.NoError(t, err)
	require.Equal(t, Quaternion{W: 1}, r.Quaternion())
}

func TestFromQuaternionUnchecked_storesValueVerbatim(t *testing.T) {
	q := Quaternion{W: 0.6, X: 0.8}
	r := FromQuaternionUnchecked(q)
	require.Equal(t, q, r.Quaternion())
}

func TestMakeDotProductPositive(t *testing.T) {
	r := FromRPY(0.5, 0.2, -0.1)
	negated := Rotation{q: Quaternion{W: -r.q.W, X: -r.q.X, Y: -r.q.Y, Z: -r.q.Z}}
	fixed := negated.MakeDotProductPositive(r)
	require.True(t, fixed.Quaternion().dot(r.Quaternion()) >= 0)
}

func TestRotate_identityIsNoOp(t *testing.T) {
	p := [3]float64{1, 2, 3}
	got := Identity().Rotate(p)
	require.Equal(t, p, got)
}
