// Package rotation implements SO(3): 3D rotations represented as unit
// quaternions, used by [github.com/icon-robotics/iconclient/transform] and
// by the Cartesian limits and goal poses of a motion session.
package rotation

import (
	"math"

	"github.com/icon-robotics/iconclient/iconerr"
)

// dummyPrecision mirrors Eigen::NumTraits<double>::dummy_precision(), the
// default isApprox tolerance.
const dummyPrecision = 1e-12

// Quaternion is a Hamilton quaternion (w + xi + yj + zk).
type Quaternion struct {
	W, X, Y, Z float64
}

func (q Quaternion) squaredNorm() float64 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

func (q Quaternion) norm() float64 {
	return math.Sqrt(q.squaredNorm())
}

func (q Quaternion) normalized() Quaternion {
	n := q.norm()
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

func (q Quaternion) dot(other Quaternion) float64 {
	return q.W*other.W + q.X*other.X + q.Y*other.Y + q.Z*other.Z
}

// mul is Hamilton product, q*r.
func (q Quaternion) mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

func (q Quaternion) conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// IsNormalizedQuaternion reports whether q's squared norm is within
// dummyPrecision of 1.
func IsNormalizedQuaternion(q Quaternion) bool {
	return math.Abs(q.squaredNorm()-1) < dummyPrecision
}

// Rotation is a 3D rotation, stored internally as a unit quaternion. The
// zero value is NOT a valid Rotation; use [Identity] or one of the other
// constructors.
type Rotation struct {
	q Quaternion
}

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{q: Quaternion{W: 1}}
}

// strictQuaternionTolerance is the squared-norm deviation from 1 that
// [FromQuaternionStrict] tolerates without rejecting.
const strictQuaternionTolerance = dummyPrecision

// FromQuaternionStrict rejects quaternion unless it is already within
// strictQuaternionTolerance of unit norm; unlike [FromQuaternion], it never
// normalizes the input. Use this on any path where a non-unit input
// indicates a caller bug rather than acceptable floating-point drift.
func FromQuaternionStrict(quaternion Quaternion) (Rotation, error) {
	if math.Abs(quaternion.squaredNorm()-1) > strictQuaternionTolerance {
		return Rotation{}, iconerr.InvalidArgument(
			"rotation: quaternion must already be unit norm (quaternion=%+v, squaredNorm=%.17g)",
			quaternion, quaternion.squaredNorm())
	}
	return Rotation{q: quaternion}, nil
}

// FromQuaternionUnchecked constructs a Rotation directly from quaternion,
// with no validation or normalization. For realtime call sites carrying a
// value already known to be unit norm by construction (e.g. the output of
// [Rotation.Compose], which renormalizes internally).
func FromQuaternionUnchecked(quaternion Quaternion) Rotation {
	return Rotation{q: quaternion}
}

// FromQuaternion is the lenient construction path (see
// [FromQuaternionStrict] for the strict alternative): it normalizes
// quaternion, whatever its norm, and returns the corresponding Rotation, or
// InvalidArgument if quaternion is degenerate (too close to the zero
// quaternion to normalize meaningfully, or non-finite). No bound is placed on
// how far from unit norm the input may be.
func FromQuaternion(quaternion Quaternion) (Rotation, error) {
	n := quaternion.norm()
	if n < dummyPrecision || math.IsNaN(n) || math.IsInf(n, 0) {
		return Rotation{}, iconerr.InvalidArgument(
			"rotation: cannot normalize quaternion with norm %.17g", n)
	}
	normalized := quaternion.normalized()
	if !IsNormalizedQuaternion(normalized) {
		return Rotation{}, iconerr.InvalidArgument(
			"rotation: quaternion must be normalized (quaternion=%+v, squaredNorm=%.17g)",
			quaternion, quaternion.squaredNorm())
	}
	return Rotation{q: normalized}, nil
}

// FromRPY builds a Rotation from roll, pitch, yaw angles in radians, via the
// intrinsic Z-Y-X Euler convention (yaw about Z, then pitch about the new Y,
// then roll about the new X).
func FromRPY(roll, pitch, yaw float64) Rotation {
	phi := roll / 2
	the := pitch / 2
	psi := yaw / 2

	cr, sr := math.Cos(phi), math.Sin(phi)
	cp, sp := math.Cos(the), math.Sin(the)
	cy, sy := math.Cos(psi), math.Sin(psi)

	q := Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
	return Rotation{q: q.normalized()}
}

// Quaternion returns the rotation's underlying unit quaternion.
func (r Rotation) Quaternion() Quaternion { return r.q }

// Norm returns the magnitude of the rotation, in radians, in [0, pi].
func (r Rotation) Norm() float64 {
	vecNorm := math.Sqrt(r.q.X*r.q.X + r.q.Y*r.q.Y + r.q.Z*r.q.Z)
	return 2 * math.Atan2(vecNorm, math.Abs(r.q.W))
}

// Inverse returns the inverse rotation.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: r.q.conjugate()}
}

// Compose returns r followed by rhs applied in r's frame, i.e. the
// quaternion product r.Quaternion() * rhs.Quaternion(), renormalized to
// third order to suppress floating-point drift — the same correction as the
// original's operator*=.
func (r Rotation) Compose(rhs Rotation) Rotation {
	q := r.q.mul(rhs.q)
	nsq := q.squaredNorm()
	if nsq != 1 {
		scale := (3 + nsq) / (1 + 3*nsq)
		q = Quaternion{W: q.W * scale, X: q.X * scale, Y: q.Y * scale, Z: q.Z * scale}
	}
	return Rotation{q: q}
}

// Rotate applies the rotation to a point, returning the rotated point.
func (r Rotation) Rotate(point [3]float64) [3]float64 {
	p := Quaternion{X: point[0], Y: point[1], Z: point[2]}
	result := r.q.mul(p).mul(r.q.conjugate())
	return [3]float64{result.X, result.Y, result.Z}
}

// Matrix returns the 3x3 rotation matrix corresponding to r, in row-major
// order: matrix[row][col].
func (r Rotation) Matrix() [3][3]float64 {
	w, x, y, z := r.q.W, r.q.X, r.q.Y, r.q.Z
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// IsApprox reports whether r and other represent approximately the same
// orientation, within tolerance. The comparison metric is 1 - dot², the
// normalized quaternions' squared dot product subtracted from one: zero
// when the two represent the same orientation, one when they are 180°
// apart.
func (r Rotation) IsApprox(other Rotation, tolerance float64) bool {
	dot := r.q.normalized().dot(other.q.normalized())
	return 1-dot*dot < tolerance
}

// IsApproxDefault is IsApprox with the default tolerance.
func (r Rotation) IsApproxDefault(other Rotation) bool {
	return r.IsApprox(other, dummyPrecision)
}

// MakeDotProductPositive flips the sign of r's quaternion (all four
// components together, an equivalent rotation) if needed so that its dot
// product with reference is non-negative. Used to pick a canonical
// "shortest angle" representative among the two quaternions (q and -q)
// that represent the same rotation.
func (r Rotation) MakeDotProductPositive(reference Rotation) Rotation {
	if r.q.dot(reference.q) < 0 {
		return Rotation{q: Quaternion{W: -r.q.W, X: -r.q.X, Y: -r.q.Y, Z: -r.q.Z}}
	}
	return r
}

// almostOne mirrors the original's `1 - epsilon` gimbal-lock threshold.
const almostOne = 1 - 2.220446049250313e-16

// ToRPY decomposes r into roll, pitch, yaw angles in radians. Near the
// gimbal-lock poles (pitch = ±π/2) roll is reported as zero and yaw absorbs
// the combined rotation, matching the original's branch structure exactly.
func (r Rotation) ToRPY() (roll, pitch, yaw float64) {
	q := r.q
	discriminant := -2 * (q.X*q.Z - q.W*q.Y)
	switch {
	case discriminant > almostOne:
		return 0, math.Pi / 2, 2 * math.Atan2(q.Z, q.W)
	case discriminant < -almostOne:
		return 0, -math.Pi / 2, 2 * math.Atan2(q.Z, q.W)
	default:
		roll = math.Atan2(2*(q.Y*q.Z+q.W*q.X), q.W*q.W-q.X*q.X-q.Y*q.Y+q.Z*q.Z)
		pitch = math.Asin(discriminant)
		yaw = math.Atan2(2*(q.X*q.Y+q.W*q.Z), q.W*q.W+q.X*q.X-q.Y*q.Y-q.Z*q.Z)
		return roll, pitch, yaw
	}
}

// angleAxisCutoff is the small-angle linearization threshold used by
// ToAngleAxis, matching the original's kCutoffAngle.
const angleAxisCutoff = 1e-7

// ToAngleAxis returns a vector along the rotation axis whose length is the
// rotation angle in radians. This representation stays numerically stable
// for small angles, via linearization below angleAxisCutoff, and always
// picks the quaternion sign (q or -q) with non-negative w, i.e. the
// smaller-angle representative of the orientation.
func (r Rotation) ToAngleAxis() [3]float64 {
	q := r.q.normalized()
	if q.W < 0 {
		q = Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	vecNorm := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	angle := 2 * math.Atan2(vecNorm, q.W)
	if angle < angleAxisCutoff {
		return [3]float64{2 * q.X, 2 * q.Y, 2 * q.Z}
	}
	scale := angle / vecNorm
	return [3]float64{scale * q.X, scale * q.Y, scale * q.Z}
}
