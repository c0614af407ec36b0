package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestZeroPose(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)

	v := r3.Vector{X: 1, Y: -2, Z: 3}
	test.That(t, TransformPoint(p, v), test.ShouldResemble, v)
}

func TestPoseRoundTrip(t *testing.T) {
	pt := r3.Vector{X: 0.1, Y: -0.3, Z: 1.2}
	p := NewPose(pt, &EulerAngles{Roll: 0.1, Pitch: -0.4, Yaw: 1.3})
	got := p.Point()
	test.That(t, got.X, test.ShouldAlmostEqual, pt.X)
	test.That(t, got.Y, test.ShouldAlmostEqual, pt.Y)
	test.That(t, got.Z, test.ShouldAlmostEqual, pt.Z)

	ea := p.Orientation().EulerAngles()
	test.That(t, ea.Roll, test.ShouldAlmostEqual, 0.1)
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, -0.4)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, 1.3)
}

func TestTransformPoint(t *testing.T) {
	// 90 degrees about z, then up one unit
	p := NewPose(r3.Vector{Z: 1}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	got := TransformPoint(p, r3.Vector{X: 1})
	test.That(t, got.X, test.ShouldAlmostEqual, 0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1)
	test.That(t, got.Z, test.ShouldAlmostEqual, 1)

	rm := p.Orientation().RotationMatrix()
	viaMatrix := rm.Mul(r3.Vector{X: 1}).Add(p.Point())
	test.That(t, viaMatrix.X, test.ShouldAlmostEqual, got.X)
	test.That(t, viaMatrix.Y, test.ShouldAlmostEqual, got.Y)
	test.That(t, viaMatrix.Z, test.ShouldAlmostEqual, got.Z)
}

func TestCompose(t *testing.T) {
	a := NewPose(r3.Vector{X: 1}, &R4AA{Theta: math.Pi / 2, RZ: 1})
	b := NewPose(r3.Vector{Y: 2}, &EulerAngles{Pitch: 0.3})
	v := r3.Vector{X: 0.5, Y: 0.25, Z: -1}

	composed := TransformPoint(Compose(a, b), v)
	sequential := TransformPoint(a, TransformPoint(b, v))
	test.That(t, composed.X, test.ShouldAlmostEqual, sequential.X)
	test.That(t, composed.Y, test.ShouldAlmostEqual, sequential.Y)
	test.That(t, composed.Z, test.ShouldAlmostEqual, sequential.Z)
}

func TestPoseInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 3, Y: -1, Z: 0.5}, &EulerAngles{Roll: 0.2, Pitch: 0.7, Yaw: -2})
	identity := Compose(p, PoseInverse(p))
	test.That(t, PoseAlmostEqualEps(identity, NewZeroPose(), 1e-9), test.ShouldBeTrue)
	identity = Compose(PoseInverse(p), p)
	test.That(t, PoseAlmostEqualEps(identity, NewZeroPose(), 1e-9), test.ShouldBeTrue)
}

func TestInterpolate(t *testing.T) {
	p1 := NewPoseFromPoint(r3.Vector{})
	p2 := NewPose(r3.Vector{X: 2}, &R4AA{Theta: math.Pi / 2, RZ: 1})

	mid := Interpolate(p1, p2, 0.5)
	test.That(t, mid.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, mid.Orientation().AxisAngles().Theta, test.ShouldAlmostEqual, math.Pi/4)

	test.That(t, PoseAlmostEqual(Interpolate(p1, p2, 0), p1), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqualEps(Interpolate(p1, p2, 1), p2, 1e-9), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqualEps(Interpolate(p1, p2, 7), p2, 1e-9), test.ShouldBeTrue)
}

func TestQuaternionAlmostEqual(t *testing.T) {
	q := (&EulerAngles{Yaw: 0.4}).Quaternion()
	test.That(t, QuaternionAlmostEqual(q, Flip(q), 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q, quat.Number{Real: 1}, 1e-9), test.ShouldBeFalse)
}

func TestPoseToString(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, PoseToString(p), test.ShouldContainSubstring, "X:1.0000")
}
