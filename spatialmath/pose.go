// Package spatialmath defines rigid transformations used to move points between reference frames.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transformation: a translation in R3 plus an orientation. Applying a pose
// to a point rotates the point and then translates it.
type Pose interface {
	// Point returns the translation of the pose.
	Point() r3.Vector
	// Orientation returns the rotation of the pose.
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with the same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion(r3.Vector{}, quat.Number{Real: 1})
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return newDualQuaternion(p, o.Quaternion())
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return newDualQuaternion(point, quat.Number{Real: 1})
}

// NewPoseFromOrientation returns a pose with no translation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
// Applying the result to a point applies b first and then a.
func Compose(a, b Pose) Pose {
	return &dualQuaternion{dualquat.Mul(dualQuaternionFromPose(a).Number, dualQuaternionFromPose(b).Number)}
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to
// B, PoseInverse(p) will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(normalize(p.Orientation().Quaternion()))
	return newDualQuaternion(rotate(inv, p.Point().Mul(-1)), inv)
}

// TransformPoint applies the pose to a single point.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return rotate(p.Orientation().Quaternion(), v).Add(p.Point())
}

// Interpolate will return a new Pose that has been interpolated the set amount between two poses.
// The translation is interpolated linearly and the orientation spherically. by is clamped to
// [0, 1].
func Interpolate(p1, p2 Pose, by float64) Pose {
	by = math.Max(0, math.Min(1, by))
	pt := p1.Point().Mul(1 - by).Add(p2.Point().Mul(by))
	return newDualQuaternion(pt, slerp(p1.Orientation().Quaternion(), p2.Orientation().Quaternion(), by))
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same
// within the given epsilon, comparing translations component-wise and orientations as rotations.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	pa, pb := a.Point(), b.Point()
	if math.Abs(pa.X-pb.X) > epsilon || math.Abs(pa.Y-pb.Y) > epsilon || math.Abs(pa.Z-pb.Z) > epsilon {
		return false
	}
	return QuaternionAlmostEqual(a.Orientation().Quaternion(), b.Orientation().Quaternion(), epsilon)
}

// PoseToString returns a human readable representation of a pose.
func PoseToString(p Pose) string {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Roll:%.2f Pitch:%.2f Yaw:%.2f}",
		pt.X, pt.Y, pt.Z, RadToDeg(ea.Roll), RadToDeg(ea.Pitch), RadToDeg(ea.Yaw))
}

// dualQuaternion is the Pose implementation. The real part is the unit rotation quaternion and
// the dual part is half the translation quaternion multiplied by the rotation.
type dualQuaternion struct {
	dualquat.Number
}

func newDualQuaternion(pt r3.Vector, q quat.Number) *dualQuaternion {
	q = normalize(q)
	return &dualQuaternion{dualquat.Number{
		Real: q,
		Dual: quat.Scale(0.5, quat.Mul(quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}, q)),
	}}
}

func dualQuaternionFromPose(p Pose) *dualQuaternion {
	if dq, ok := p.(*dualQuaternion); ok {
		return dq
	}
	return newDualQuaternion(p.Point(), p.Orientation().Quaternion())
}

func (q *dualQuaternion) Point() r3.Vector {
	t := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
}

func (q *dualQuaternion) Orientation() Orientation {
	o := Quaternion(q.Real)
	return &o
}

func rotate(q quat.Number, v r3.Vector) r3.Vector {
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
