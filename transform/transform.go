// Package transform implements SE(3): rigid transforms composed of a
// translation and a [rotation.Rotation], used for goal poses, tool frames,
// and wrench transport between a session's parts.
package transform

import (
	"math"

	"github.com/icon-robotics/iconclient/rotation"
)

// Vec3 is a 3D Cartesian vector: a position, a translation, or one half
// (force or torque) of a [Wrench].
type Vec3 [3]float64

func (v Vec3) add(other Vec3) Vec3 {
	return Vec3{v[0] + other[0], v[1] + other[1], v[2] + other[2]}
}

func (v Vec3) sub(other Vec3) Vec3 {
	return Vec3{v[0] - other[0], v[1] - other[1], v[2] - other[2]}
}

func (v Vec3) neg() Vec3 {
	return Vec3{-v[0], -v[1], -v[2]}
}

func (v Vec3) cross(other Vec3) Vec3 {
	return Vec3{
		v[1]*other[2] - v[2]*other[1],
		v[2]*other[0] - v[0]*other[2],
		v[0]*other[1] - v[1]*other[0],
	}
}

func (v Vec3) norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Wrench is a generalized force: (fx, fy, fz, tx, ty, tz) at a frame's
// origin, expressed in that frame's coordinates.
type Wrench struct {
	Force  Vec3
	Torque Vec3
}

// Pose is a rigid transform: a translation composed with a rotation,
// applied rotation-then-translation (i.e. Pose{R,t} * p = t + R*p).
type Pose struct {
	Translation Vec3
	Rotation    rotation.Rotation
}

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{Rotation: rotation.Identity()}
}

// FromTranslation builds a pose with the given translation and identity
// rotation.
func FromTranslation(t Vec3) Pose {
	return Pose{Translation: t, Rotation: rotation.Identity()}
}

// FromRotation builds a pose with the given rotation and zero translation.
func FromRotation(r rotation.Rotation) Pose {
	return Pose{Rotation: r}
}

// New builds a pose from a rotation and a translation.
func New(r rotation.Rotation, t Vec3) Pose {
	return Pose{Translation: t, Rotation: r}
}

// Inverse returns the pose that undoes p.
func (p Pose) Inverse() Pose {
	rInv := p.Rotation.Inverse()
	return Pose{Rotation: rInv, Translation: rInv.Rotate(p.Translation).neg()}
}

// Compose returns p followed by rhs, i.e. applying the result to a point is
// equivalent to applying rhs then p: (p.Compose(rhs)) * x == p * (rhs * x).
func (p Pose) Compose(rhs Pose) Pose {
	return Pose{
		Translation: p.Translation.add(p.Rotation.Rotate(rhs.Translation)),
		Rotation:    p.Rotation.Compose(rhs.Rotation),
	}
}

// Apply transforms point by p: rotate then translate.
func (p Pose) Apply(point Vec3) Vec3 {
	return p.Translation.add(p.Rotation.Rotate(point))
}

// Matrix returns the 4x4 homogeneous transformation matrix, row-major:
// matrix[row][col].
func (p Pose) Matrix() [4][4]float64 {
	r := p.Rotation.Matrix()
	var m [4][4]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row][col] = r[row][col]
		}
		m[row][3] = p.Translation[row]
	}
	m[3] = [4]float64{0, 0, 0, 1}
	return m
}

// IsApprox reports whether p and other are within linearTolerance of
// translation and angularTolerance of rotation.
func (p Pose) IsApprox(other Pose, linearTolerance, angularTolerance float64) bool {
	return p.Translation.sub(other.Translation).norm() < linearTolerance &&
		p.Rotation.IsApprox(other.Rotation, angularTolerance)
}

// IsApproxUniform is IsApprox with the same tolerance used for both
// translation and rotation.
func (p Pose) IsApproxUniform(other Pose, tolerance float64) bool {
	return p.IsApprox(other, tolerance, tolerance)
}

// TransformWrench transports wrench bW, sensed at the origin of frame B and
// expressed in B's coordinates, to the origin of frame A expressed in A's
// coordinates, given aTb: the pose of B relative to A.
//
// The torque component picks up a moment-arm term, translation × force,
// accounting for the lever arm between the two frames' origins.
func TransformWrench(aTb Pose, bW Wrench) Wrench {
	aForce := aTb.Rotation.Rotate(bW.Force)
	aTorque := aTb.Rotation.Rotate(bW.Torque).add(aTb.Translation.cross(aForce))
	return Wrench{Force: aForce, Torque: aTorque}
}
