package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icon-robotics/iconclient/rotation"
)

func approxVec(t *testing.T, want, got Vec3, tolerance float64) {
	t.Helper()
	for i := range want {
		if math.Abs(want[i]-got[i]) > tolerance {
			t.Fatalf("component %d: want %.17g, got %.17g", i, want[i], got[i])
		}
	}
}

func TestComposeWithInverseIsIdentity(t *testing.T) {
	p := New(rotation.FromRPY(0.3, 0.1, -0.4), Vec3{1, 2, 3})
	result := p.Compose(p.Inverse())
	require.True(t, result.IsApproxUniform(Identity(), 1e-9))
}

func TestApply_translationOnly(t *testing.T) {
	p := FromTranslation(Vec3{1, 2, 3})
	got := p.Apply(Vec3{0, 0, 0})
	require.Equal(t, Vec3{1, 2, 3}, got)
}

func TestTransformWrench_pureTranslationAddsMomentArm(t *testing.T) {
	// B is offset from A by (1, 0, 0) with no rotation; a pure force along Z
	// at B's origin produces a torque about Y at A's origin: translation ×
	// force = (1,0,0) × (0,0,1) = (0*1-0*0, 0*0-1*1, 1*0-0*0) = (0,-1,0).
	aTb := FromTranslation(Vec3{1, 0, 0})
	bW := Wrench{Force: Vec3{0, 0, 1}, Torque: Vec3{0, 0, 0}}
	aW := TransformWrench(aTb, bW)
	approxVec(t, Vec3{0, 0, 1}, aW.Force, 1e-12)
	approxVec(t, Vec3{0, -1, 0}, aW.Torque, 1e-12)
}

func TestTransformWrench_pureRotationRotatesBothHalves(t *testing.T) {
	// A 90 degree rotation about Z maps X to Y.
	aTb := FromRotation(rotation.FromRPY(0, 0, math.Pi/2))
	bW := Wrench{Force: Vec3{1, 0, 0}, Torque: Vec3{0, 1, 0}}
	aW := TransformWrench(aTb, bW)
	approxVec(t, Vec3{0, 1, 0}, aW.Force, 1e-9)
	approxVec(t, Vec3{-1, 0, 0}, aW.Torque, 1e-9)
}

func TestTransformWrench_identityIsNoOp(t *testing.T) {
	bW := Wrench{Force: Vec3{1, 2, 3}, Torque: Vec3{4, 5, 6}}
	aW := TransformWrench(Identity(), bW)
	require.Equal(t, bW, aW)
}

func TestMatrix_bottomRowIsHomogeneousAndTranslationColumnMatches(t *testing.T) {
	p := New(rotation.FromRPY(0.1, 0.2, 0.3), Vec3{1, 2, 3})
	m := p.Matrix()
	require.Equal(t, [4]float64{0, 0, 0, 1}, m[3])
	require.Equal(t, 1.0, m[0][3])
	require.Equal(t, 2.0, m[1][3])
	require.Equal(t, 3.0, m[2][3])
}
