// Package limits holds joint-space and Cartesian-space motion limits, and
// the dynamic payload (mass, center of gravity, inertia) a part is carrying,
// together with the validation the real-time server requires of each.
package limits

import (
	"math"

	"github.com/icon-robotics/iconclient/iconerr"
	"github.com/icon-robotics/iconclient/transform"
)

// MaxJointCount bounds the joint count of a [JointLimits] and is the array
// length of the realtime-safe [BoundedJointLimits], which stores its limits
// in fixed-capacity arrays rather than heap-allocated slices.
const MaxJointCount = 25

// JointLimits holds per-joint motion limits for a part with a known, fixed
// joint count (at most [MaxJointCount]). All six slices must have equal
// length; use [NewJointLimits] or [UnlimitedJointLimits] rather than
// constructing one directly.
type JointLimits struct {
	MinPosition     []float64
	MaxPosition     []float64
	MaxVelocity     []float64
	MaxAcceleration []float64
	MaxJerk         []float64
	MaxTorque       []float64
}

func equalLen(vs ...[]float64) bool {
	if len(vs) == 0 {
		return true
	}
	n := len(vs[0])
	for _, v := range vs[1:] {
		if len(v) != n {
			return false
		}
	}
	return true
}

// Size returns the joint count, i.e. the length of MinPosition.
func (j JointLimits) Size() int { return len(j.MinPosition) }

// IsSizeConsistent reports whether all six limit vectors have equal length.
func (j JointLimits) IsSizeConsistent() bool {
	return equalLen(j.MinPosition, j.MaxPosition, j.MaxVelocity, j.MaxAcceleration, j.MaxJerk, j.MaxTorque)
}

// IsValid reports whether j's limits are self-consistent:
//   - all six vectors have the same length, at most [MaxJointCount];
//   - MinPosition[i] <= MaxPosition[i] for every joint;
//   - every non-position limit (velocity, acceleration, jerk, torque) is
//     non-negative, being the magnitude of a symmetric (-limit, +limit)
//     range.
func (j JointLimits) IsValid() bool {
	if !j.IsSizeConsistent() {
		return false
	}
	if j.Size() > MaxJointCount {
		return false
	}
	if j.Size() == 0 {
		return true
	}
	for i := range j.MinPosition {
		if j.MinPosition[i] > j.MaxPosition[i] {
			return false
		}
	}
	for _, v := range [][]float64{j.MaxVelocity, j.MaxAcceleration, j.MaxJerk, j.MaxTorque} {
		for _, x := range v {
			if x < 0 {
				return false
			}
		}
	}
	return true
}

// NewJointLimits validates and builds a JointLimits. It returns
// InvalidArgument if the vectors have inconsistent lengths, exceed
// [MaxJointCount], or fail any of [JointLimits.IsValid]'s invariants.
func NewJointLimits(minPosition, maxPosition, maxVelocity, maxAcceleration, maxJerk, maxTorque []float64) (JointLimits, error) {
	j := JointLimits{
		MinPosition:     minPosition,
		MaxPosition:     maxPosition,
		MaxVelocity:     maxVelocity,
		MaxAcceleration: maxAcceleration,
		MaxJerk:         maxJerk,
		MaxTorque:       maxTorque,
	}
	if !j.IsSizeConsistent() {
		return JointLimits{}, iconerr.InvalidArgument("limits: joint limit vectors have inconsistent lengths")
	}
	if j.Size() > MaxJointCount {
		return JointLimits{}, iconerr.InvalidArgument(
			"limits: joint count %d exceeds the realtime-safe maximum of %d", j.Size(), MaxJointCount)
	}
	if !j.IsValid() {
		return JointLimits{}, iconerr.InvalidArgument("limits: joint limits are not self-consistent")
	}
	return j, nil
}

// UnlimitedJointLimits returns a JointLimits of the given size with every
// position bound at ±infinity and every non-position limit at +infinity.
func UnlimitedJointLimits(size int) (JointLimits, error) {
	if size > MaxJointCount {
		return JointLimits{}, iconerr.InvalidArgument(
			"limits: joint count %d exceeds the realtime-safe maximum of %d", size, MaxJointCount)
	}
	j := JointLimits{
		MinPosition:     make([]float64, size),
		MaxPosition:     make([]float64, size),
		MaxVelocity:     make([]float64, size),
		MaxAcceleration: make([]float64, size),
		MaxJerk:         make([]float64, size),
		MaxTorque:       make([]float64, size),
	}
	for i := 0; i < size; i++ {
		j.MinPosition[i] = math.Inf(-1)
		j.MaxPosition[i] = math.Inf(1)
		j.MaxVelocity[i] = math.Inf(1)
		j.MaxAcceleration[i] = math.Inf(1)
		j.MaxJerk[i] = math.Inf(1)
		j.MaxTorque[i] = math.Inf(1)
	}
	return j, nil
}

// BoundedJointLimits is the compile-time-bounded counterpart of JointLimits,
// backed by fixed-size [MaxJointCount]float64 arrays instead of slices, for
// realtime code paths that must not allocate on the heap. Count reports how
// many of each array's leading entries are in use; entries at or beyond
// Count are zero and not part of the limits. Use [ToBounded] to build one
// from a JointLimits, rather than constructing one directly.
type BoundedJointLimits struct {
	Count           int
	MinPosition     [MaxJointCount]float64
	MaxPosition     [MaxJointCount]float64
	MaxVelocity     [MaxJointCount]float64
	MaxAcceleration [MaxJointCount]float64
	MaxJerk         [MaxJointCount]float64
	MaxTorque       [MaxJointCount]float64
}

// ToBounded converts j to its bounded representation, rejecting it with
// InvalidArgument if it exceeds [MaxJointCount] joints or fails
// [JointLimits.IsValid].
func ToBounded(j JointLimits) (BoundedJointLimits, error) {
	if !j.IsValid() {
		return BoundedJointLimits{}, iconerr.InvalidArgument("limits: joint limits are not self-consistent")
	}
	if j.Size() > MaxJointCount {
		return BoundedJointLimits{}, iconerr.InvalidArgument(
			"limits: joint count %d exceeds the realtime-safe maximum of %d", j.Size(), MaxJointCount)
	}
	var b BoundedJointLimits
	b.Count = j.Size()
	copy(b.MinPosition[:], j.MinPosition)
	copy(b.MaxPosition[:], j.MaxPosition)
	copy(b.MaxVelocity[:], j.MaxVelocity)
	copy(b.MaxAcceleration[:], j.MaxAcceleration)
	copy(b.MaxJerk[:], j.MaxJerk)
	copy(b.MaxTorque[:], j.MaxTorque)
	return b, nil
}

// FromBounded converts b back to a slice-backed JointLimits of length
// b.Count, allocating fresh slices (not a realtime-safe operation; intended
// for handing a bounded limits value back to non-realtime code).
func FromBounded(b BoundedJointLimits) JointLimits {
	return JointLimits{
		MinPosition:     append([]float64(nil), b.MinPosition[:b.Count]...),
		MaxPosition:     append([]float64(nil), b.MaxPosition[:b.Count]...),
		MaxVelocity:     append([]float64(nil), b.MaxVelocity[:b.Count]...),
		MaxAcceleration: append([]float64(nil), b.MaxAcceleration[:b.Count]...),
		MaxJerk:         append([]float64(nil), b.MaxJerk[:b.Count]...),
		MaxTorque:       append([]float64(nil), b.MaxTorque[:b.Count]...),
	}
}

// NewSimpleJointLimits builds a JointLimits of ndof joints where every joint
// shares the same position/velocity/acceleration/jerk magnitude, with
// position symmetric about zero and torque unlimited.
func NewSimpleJointLimits(ndof int, maxPosition, maxVelocity, maxAcceleration, maxJerk float64) (JointLimits, error) {
	return NewSimpleJointLimitsWithTorque(ndof, maxPosition, maxVelocity, maxAcceleration, maxJerk, math.Inf(1))
}

// NewSimpleJointLimitsWithTorque is [NewSimpleJointLimits] with an explicit
// maxTorque instead of unlimited.
func NewSimpleJointLimitsWithTorque(ndof int, maxPosition, maxVelocity, maxAcceleration, maxJerk, maxTorque float64) (JointLimits, error) {
	minPos := make([]float64, ndof)
	maxPos := make([]float64, ndof)
	vel := make([]float64, ndof)
	acc := make([]float64, ndof)
	jerk := make([]float64, ndof)
	torque := make([]float64, ndof)
	for i := 0; i < ndof; i++ {
		minPos[i] = -maxPosition
		maxPos[i] = maxPosition
		vel[i] = maxVelocity
		acc[i] = maxAcceleration
		jerk[i] = maxJerk
		torque[i] = maxTorque
	}
	return NewJointLimits(minPos, maxPos, vel, acc, jerk, torque)
}

// CartesianLimits holds Cartesian-space limits on a part's tip pose:
// translational position/velocity/acceleration/jerk as per-axis ranges, and
// scalar bounds on rotational velocity/acceleration/jerk magnitude.
type CartesianLimits struct {
	MinTranslationalPosition     transform.Vec3
	MaxTranslationalPosition     transform.Vec3
	MinTranslationalVelocity     transform.Vec3
	MaxTranslationalVelocity     transform.Vec3
	MinTranslationalAcceleration transform.Vec3
	MaxTranslationalAcceleration transform.Vec3
	MinTranslationalJerk         transform.Vec3
	MaxTranslationalJerk         transform.Vec3
	MaxRotationalVelocity        float64
	MaxRotationalAcceleration    float64
	MaxRotationalJerk            float64
}

// UnlimitedCartesianLimits returns CartesianLimits with every bound at
// infinity.
func UnlimitedCartesianLimits() CartesianLimits {
	inf := transform.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	ninf := transform.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	return CartesianLimits{
		MinTranslationalPosition:     ninf,
		MaxTranslationalPosition:     inf,
		MinTranslationalVelocity:     ninf,
		MaxTranslationalVelocity:     inf,
		MinTranslationalAcceleration: ninf,
		MaxTranslationalAcceleration: inf,
		MinTranslationalJerk:         ninf,
		MaxTranslationalJerk:         inf,
		MaxRotationalVelocity:        math.Inf(1),
		MaxRotationalAcceleration:    math.Inf(1),
		MaxRotationalJerk:            math.Inf(1),
	}
}

// NewSimpleCartesianLimits builds CartesianLimits where every translational
// axis shares the given magnitude, symmetric about zero.
func NewSimpleCartesianLimits(maxTranslationalPosition, maxTranslationalVelocity, maxTranslationalAcceleration, maxTranslationalJerk, maxRotationalVelocity, maxRotationalAcceleration, maxRotationalJerk float64) CartesianLimits {
	symmetric := func(mag float64) (transform.Vec3, transform.Vec3) {
		return transform.Vec3{-mag, -mag, -mag}, transform.Vec3{mag, mag, mag}
	}
	minPos, maxPos := symmetric(maxTranslationalPosition)
	minVel, maxVel := symmetric(maxTranslationalVelocity)
	minAcc, maxAcc := symmetric(maxTranslationalAcceleration)
	minJerk, maxJerk := symmetric(maxTranslationalJerk)
	return CartesianLimits{
		MinTranslationalPosition:     minPos,
		MaxTranslationalPosition:     maxPos,
		MinTranslationalVelocity:     minVel,
		MaxTranslationalVelocity:     maxVel,
		MinTranslationalAcceleration: minAcc,
		MaxTranslationalAcceleration: maxAcc,
		MinTranslationalJerk:         minJerk,
		MaxTranslationalJerk:         maxJerk,
		MaxRotationalVelocity:        maxRotationalVelocity,
		MaxRotationalAcceleration:    maxRotationalAcceleration,
		MaxRotationalJerk:            maxRotationalJerk,
	}
}

func vec3LessEqual(a, b transform.Vec3) bool {
	return a[0] <= b[0] && a[1] <= b[1] && a[2] <= b[2]
}

func vec3NonPositive(v transform.Vec3) bool {
	return v[0] <= 0 && v[1] <= 0 && v[2] <= 0
}

func vec3NonNegative(v transform.Vec3) bool {
	return v[0] >= 0 && v[1] >= 0 && v[2] >= 0
}

// IsValid reports whether every min/max pair satisfies min <= max, and every
// limit but position is symmetric about zero (min <= 0 <= max, or for the
// scalar rotational limits, simply >= 0). No special treatment is given to
// infinite bounds: [UnlimitedCartesianLimits] is valid.
func (c CartesianLimits) IsValid() bool {
	return vec3LessEqual(c.MinTranslationalPosition, c.MaxTranslationalPosition) &&
		vec3LessEqual(c.MinTranslationalVelocity, c.MaxTranslationalVelocity) &&
		vec3LessEqual(c.MinTranslationalAcceleration, c.MaxTranslationalAcceleration) &&
		vec3LessEqual(c.MinTranslationalJerk, c.MaxTranslationalJerk) &&
		vec3NonPositive(c.MinTranslationalVelocity) && vec3NonNegative(c.MaxTranslationalVelocity) &&
		vec3NonPositive(c.MinTranslationalAcceleration) && vec3NonNegative(c.MaxTranslationalAcceleration) &&
		vec3NonPositive(c.MinTranslationalJerk) && vec3NonNegative(c.MaxTranslationalJerk) &&
		c.MaxRotationalVelocity >= 0 && c.MaxRotationalAcceleration >= 0 && c.MaxRotationalJerk >= 0
}

// Payload is the dynamic payload (mass, center of gravity, inertia) a part
// is carrying, used by the server's trajectory and force controllers.
// Construct with [NewPayload]; its invariants cannot be broken once built.
type Payload struct {
	massKG   float64
	tipTCog  transform.Pose
	inertia  [3][3]float64
}

// symmetryThreshold bounds the allowed asymmetry |M - Mᵀ| of the inertia
// matrix, matching the original's density-realizability check.
const symmetryThreshold = 1e-6

// NewPayload validates and builds a Payload. mass_kg must be strictly
// positive, unless it is (approximately) zero, allowed as the "no payload"
// case. inertia, expressed about the center of gravity, must be symmetric
// and positive definite (all eigenvalues > 0) with eigenvalues obeying the
// triangle inequality — a zero matrix is allowed, for point masses.
func NewPayload(massKG float64, tipTCog transform.Pose, inertia [3][3]float64) (Payload, error) {
	if !isApproxZero(massKG) {
		if massKG <= 0 {
			return Payload{}, iconerr.FailedPrecondition("limits: payload mass should be > 0.0, got %.17g kg", massKG)
		}
	}
	if !isZeroMatrix(inertia) {
		if err := validateInertia(inertia); err != nil {
			return Payload{}, err
		}
	}
	return Payload{massKG: massKG, tipTCog: tipTCog, inertia: inertia}, nil
}

// Mass returns the payload mass in kilograms.
func (p Payload) Mass() float64 { return p.massKG }

// TipTCog returns the center-of-gravity pose relative to the part's tip
// frame.
func (p Payload) TipTCog() transform.Pose { return p.tipTCog }

// Inertia returns the 3x3 symmetric inertia matrix about the center of
// gravity, in kg·m².
func (p Payload) Inertia() [3][3]float64 { return p.inertia }

// Equal reports approximate equality: mass within dummy precision, pose
// within default tolerance, and an exact (bitwise) inertia comparison —
// inertia does not carry its own tolerance in the original and callers
// compare it directly.
func (p Payload) Equal(other Payload) bool {
	const massTolerance = 1e-12
	return math.Abs(p.massKG-other.massKG) < massTolerance &&
		p.tipTCog.IsApproxUniform(other.tipTCog, 1e-12) &&
		p.inertia == other.inertia
}

func isApproxZero(v float64) bool {
	return math.Abs(v) < 1e-12
}

func isZeroMatrix(m [3][3]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func validateInertia(m [3][3]float64) error {
	if !isSymmetric(m) {
		return iconerr.FailedPrecondition(
			"limits: inertia tensor is not symmetric: [[%.17g %.17g %.17g],[%.17g %.17g %.17g],[%.17g %.17g %.17g]]",
			m[0][0], m[0][1], m[0][2], m[1][0], m[1][1], m[1][2], m[2][0], m[2][1], m[2][2])
	}
	eig := symmetricEigenvalues3(m)
	for _, v := range eig {
		if v <= 0 {
			return iconerr.FailedPrecondition(
				"limits: inertia tensor is not positive definite, all eigenvalues should be > 0.0, got [%.17g %.17g %.17g]",
				eig[0], eig[1], eig[2])
		}
	}
	sum := eig[0] + eig[1] + eig[2]
	for _, v := range eig {
		if sum < 2*v {
			return iconerr.FailedPrecondition(
				"limits: inertia tensor eigenvalues do not satisfy the triangle inequality: %.17g is not >= %.17g",
				sum, 2*v)
		}
	}
	return nil
}

func isSymmetric(m [3][3]float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m[i][j]-m[j][i]) > symmetryThreshold {
				return false
			}
		}
	}
	return true
}

// symmetricEigenvalues3 returns the three real eigenvalues of a symmetric
// 3x3 matrix via the closed-form trigonometric solution (Smith's
// algorithm), avoiding a dependency on a general-purpose linear algebra
// library for what is otherwise a single validation check.
func symmetricEigenvalues3(m [3][3]float64) [3]float64 {
	p1 := m[0][1]*m[0][1] + m[0][2]*m[0][2] + m[1][2]*m[1][2]
	trace := m[0][0] + m[1][1] + m[2][2]
	if p1 == 0 {
		// Already diagonal.
		v := [3]float64{m[0][0], m[1][1], m[2][2]}
		return v
	}
	q := trace / 3
	p2 := (m[0][0]-q)*(m[0][0]-q) + (m[1][1]-q)*(m[1][1]-q) + (m[2][2]-q)*(m[2][2]-q) + 2*p1
	p := math.Sqrt(p2 / 6)

	var b [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			diag := 0.0
			if i == j {
				diag = q
			}
			b[i][j] = (m[i][j] - diag) / p
		}
	}
	r := det3(b) / 2
	if r < -1 {
		r = -1
	} else if r > 1 {
		r = 1
	}
	phi := math.Acos(r) / 3

	eig1 := q + 2*p*math.Cos(phi)
	eig3 := q + 2*p*math.Cos(phi+2*math.Pi/3)
	eig2 := 3*q - eig1 - eig3
	return [3]float64{eig1, eig2, eig3}
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
