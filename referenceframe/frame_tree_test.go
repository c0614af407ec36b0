package referenceframe

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/obstacles/spatialmath"
	"go.viam.com/obstacles/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}

var t0 = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

func TestFrameTreeStatic(t *testing.T) {
	ft := NewFrameTree(0)
	// camera one meter forward and half a meter up, pitched down 90 degrees so its z looks at the floor
	cameraPose := spatialmath.NewPose(r3.Vector{X: 1, Z: 0.5}, &spatialmath.EulerAngles{Pitch: math.Pi / 2})
	test.That(t, ft.SetStatic("base_link", "camera", cameraPose), test.ShouldBeNil)
	test.That(t, ft.SetStatic("base_link", "lidar", spatialmath.NewPoseFromPoint(r3.Vector{Y: 2})), test.ShouldBeNil)

	pose, err := ft.Lookup("base_link", "camera", time.Time{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(pose, cameraPose), test.ShouldBeTrue)

	p := spatialmath.TransformPoint(pose, r3.Vector{Z: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 2)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0.5)

	// sibling frames go through the common parent
	pose, err = ft.Lookup("lidar", "camera", t0)
	test.That(t, err, test.ShouldBeNil)
	p = spatialmath.TransformPoint(pose, r3.Vector{})
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, -2)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0.5)

	// and the inverse direction
	pose, err = ft.Lookup("camera", "base_link", t0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(pose, spatialmath.PoseInverse(cameraPose)), test.ShouldBeTrue)

	pose, err = ft.Lookup("camera", "camera", t0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)

	test.That(t, ft.FrameNames(), test.ShouldResemble, []string{"base_link", "camera", "lidar"})
	parent, ok := ft.Parent("camera")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, parent, test.ShouldEqual, "base_link")
	_, ok = ft.Parent("base_link")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFrameTreeErrors(t *testing.T) {
	ft := NewFrameTree(0)
	test.That(t, ft.SetStatic("base_link", "camera", spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, ft.SetStatic("odom", "map_child", spatialmath.NewZeroPose()), test.ShouldBeNil)

	_, err := ft.Lookup("base_link", "missing", t0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not exist")
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)

	_, err = ft.Lookup("odom", "camera", t0)
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not connected")

	test.That(t, ft.SetStatic("camera", "base_link", spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, ft.SetStatic("camera", "camera", spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, ft.SetStatic("", "camera", spatialmath.NewZeroPose()), test.ShouldNotBeNil)
	test.That(t, ft.Set("base_link", "camera", spatialmath.NewZeroPose(), time.Time{}), test.ShouldNotBeNil)
}

func TestFrameTreeStamped(t *testing.T) {
	ft := NewFrameTree(2 * time.Second)
	test.That(t, ft.SetStatic("base_link", "camera", spatialmath.NewZeroPose()), test.ShouldBeNil)
	for i := 0; i <= 4; i++ {
		stamp := t0.Add(time.Duration(i) * time.Second)
		pose := spatialmath.NewPose(r3.Vector{X: float64(i)}, &spatialmath.EulerAngles{Yaw: float64(i) * 0.1})
		test.That(t, ft.Set("odom", "base_link", pose, stamp), test.ShouldBeNil)
	}

	// exact sample
	pose, err := ft.Lookup("odom", "camera", t0.Add(3*time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 3)

	// interpolated between samples
	pose, err = ft.Lookup("odom", "camera", t0.Add(2500*time.Millisecond))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 2.5)
	test.That(t, pose.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, 0.25)

	// latest
	pose, err = ft.Lookup("odom", "camera", time.Time{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 4)

	// samples older than the cache duration are gone
	_, err = ft.Lookup("odom", "camera", t0.Add(time.Second))
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)
	// no extrapolation into the future
	_, err = ft.Lookup("odom", "camera", t0.Add(5*time.Second))
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)

	// out of order samples are inserted in place
	test.That(t, ft.Set("odom", "base_link", spatialmath.NewPoseFromPoint(r3.Vector{X: 10}), t0.Add(3500*time.Millisecond)), test.ShouldBeNil)
	pose, err = ft.Lookup("odom", "camera", t0.Add(3500*time.Millisecond))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 10)
}

func TestResolveWaits(t *testing.T) {
	ft := NewFrameTree(0)
	test.That(t, ft.SetStatic("base_link", "camera", spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})), test.ShouldBeNil)

	// immediately available
	pose, err := ft.Resolve(context.Background(), "base_link", "camera", t0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().Z, test.ShouldAlmostEqual, 1)

	// not available and not waiting
	_, err = ft.Resolve(context.Background(), "odom", "camera", t0, 0)
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)

	// times out
	start := time.Now()
	_, err = ft.Resolve(context.Background(), "odom", "camera", t0, 50*time.Millisecond)
	test.That(t, errorIsUnavailable(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "timed out")
	test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)

	// becomes available while waiting
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(20 * time.Millisecond)
		_ = ft.Set("odom", "base_link", spatialmath.NewPoseFromPoint(r3.Vector{X: 5}), t0)
	}()
	pose, err = ft.Resolve(context.Background(), "odom", "camera", t0, 5*time.Second)
	<-done
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 5)
	test.That(t, pose.Point().Z, test.ShouldAlmostEqual, 1)

	// context cancellation ends the wait
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ft.Resolve(ctx, "map", "camera", t0, 5*time.Second)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func errorIsUnavailable(err error) bool {
	return errors.Is(err, ErrTransformUnavailable)
}
