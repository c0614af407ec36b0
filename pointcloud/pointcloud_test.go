package pointcloud

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/obstacles/spatialmath"
)

var testStamp = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

func zCloud(zs ...float64) *PointCloud {
	pts := make([]r3.Vector, 0, len(zs))
	for i, z := range zs {
		pts = append(pts, r3.Vector{X: float64(i), Y: 0, Z: z})
	}
	return New("camera", testStamp, pts)
}

func TestNewCopiesPoints(t *testing.T) {
	pts := []r3.Vector{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	cloud := New("camera", testStamp, pts)
	pts[0] = r3.Vector{}
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, cloud.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, cloud.FrameID(), test.ShouldEqual, "camera")
	test.That(t, cloud.Timestamp(), test.ShouldEqual, testStamp)

	out := cloud.Points()
	out[1] = r3.Vector{}
	test.That(t, cloud.At(1), test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})

	meta := cloud.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, 1)
	test.That(t, meta.MaxZ, test.ShouldEqual, 6)

	var nilCloud *PointCloud
	test.That(t, nilCloud.Size(), test.ShouldEqual, 0)
}

func TestIterateStops(t *testing.T) {
	cloud := zCloud(0, 1, 2, 3)
	visited := 0
	cloud.Iterate(func(i int, p r3.Vector) bool {
		visited++
		return i < 1
	})
	test.That(t, visited, test.ShouldEqual, 2)
}

func TestAxis(t *testing.T) {
	for _, tc := range []struct {
		in   string
		axis Axis
	}{{"x", AxisX}, {"Y", AxisY}, {" z ", AxisZ}} {
		a, err := AxisFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, a, test.ShouldEqual, tc.axis)
	}
	_, err := AxisFromString("w")
	test.That(t, err, test.ShouldNotBeNil)

	v := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, AxisX.Of(v), test.ShouldEqual, 1)
	test.That(t, AxisY.Of(v), test.ShouldEqual, 2)
	test.That(t, AxisZ.Of(v), test.ShouldEqual, 3)
	test.That(t, AxisZ.String(), test.ShouldEqual, "z")
}

func TestPassThrough(t *testing.T) {
	cloud := zCloud(-2, -0.5, 0, 1, 2)

	below := PassThrough(cloud, AxisZ, math.Inf(-1), -1)
	test.That(t, below.Points(), test.ShouldResemble, []r3.Vector{{X: 0, Y: 0, Z: -2}})
	test.That(t, below.FrameID(), test.ShouldEqual, "camera")
	test.That(t, below.Timestamp(), test.ShouldEqual, testStamp)

	band := PassThrough(cloud, AxisZ, -0.5, 1)
	test.That(t, band.Size(), test.ShouldEqual, 3)
	test.That(t, band.At(0).Z, test.ShouldEqual, -0.5)
	test.That(t, band.At(2).Z, test.ShouldEqual, 1)

	test.That(t, PassThrough(cloud, AxisZ, 5, 6).Size(), test.ShouldEqual, 0)
	test.That(t, PassThrough(cloud, AxisZ, 1, -1).Size(), test.ShouldEqual, 0)
	test.That(t, PassThrough(NewEmpty("camera", testStamp), AxisZ, -1, 1).Size(), test.ShouldEqual, 0)

	forward := PassThrough(cloud, AxisX, 3, math.Inf(1))
	test.That(t, forward.Size(), test.ShouldEqual, 2)
}

func TestPassThroughPartition(t *testing.T) {
	zs := []float64{-3, -1.5, -1, math.Nextafter(-1, 0), -0.2, 0, 0.7, 1.5, 1.6, 4}
	cloud := zCloud(zs...)
	for _, split := range []float64{-1, 0, 0.7, 1.5} {
		lower := PassThrough(cloud, AxisZ, -1.5, split)
		upper := PassThrough(cloud, AxisZ, Above(split), 1.5)
		whole := PassThrough(cloud, AxisZ, -1.5, 1.5)
		test.That(t, lower.Size()+upper.Size(), test.ShouldEqual, whole.Size())

		seen := map[float64]int{}
		for _, c := range []*PointCloud{lower, upper} {
			c.Iterate(func(_ int, p r3.Vector) bool {
				seen[p.X]++
				return true
			})
		}
		whole.Iterate(func(_ int, p r3.Vector) bool {
			test.That(t, seen[p.X], test.ShouldEqual, 1)
			return true
		})
	}
	test.That(t, Above(1), test.ShouldBeGreaterThan, 1)
	test.That(t, Above(math.Inf(-1)), test.ShouldBeLessThan, -math.MaxFloat64/2)
}

func TestIndexSet(t *testing.T) {
	set, err := NewIndexSet(5, 3, 0, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, set.Len(), test.ShouldEqual, 3)
	test.That(t, set.Sorted(), test.ShouldResemble, IndexSet{0, 3, 4})
	test.That(t, set, test.ShouldResemble, IndexSet{3, 0, 4})

	_, err = NewIndexSet(5, 5)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewIndexSet(5, -1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewIndexSet(5, 1, 1)
	test.That(t, err, test.ShouldNotBeNil)

	empty, err := NewIndexSet(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Len(), test.ShouldEqual, 0)

	test.That(t, IndexSet{1, 2}.Intersects(IndexSet{3, 2}), test.ShouldBeTrue)
	test.That(t, IndexSet{1, 2}.Intersects(IndexSet{3}), test.ShouldBeFalse)
}

func TestExtract(t *testing.T) {
	cloud := zCloud(10, 11, 12, 13)
	out, err := Extract(cloud, IndexSet{3, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Points(), test.ShouldResemble, []r3.Vector{{X: 3, Y: 0, Z: 13}, {X: 1, Y: 0, Z: 11}})
	test.That(t, out.FrameID(), test.ShouldEqual, "camera")

	out, err = Extract(cloud, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Size(), test.ShouldEqual, 0)

	_, err = Extract(cloud, IndexSet{4})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConcat(t *testing.T) {
	a := zCloud(1, 2)
	b := zCloud(3)
	out := Concat("base_link", testStamp, a, nil, NewEmpty("camera", testStamp), b)
	test.That(t, out.Size(), test.ShouldEqual, 3)
	test.That(t, out.FrameID(), test.ShouldEqual, "base_link")
	test.That(t, out.At(0).Z, test.ShouldEqual, 1)
	test.That(t, out.At(2).Z, test.ShouldEqual, 3)
	test.That(t, Concat("base_link", testStamp).Size(), test.ShouldEqual, 0)
}

func TestApplyPose(t *testing.T) {
	cloud := New("camera", testStamp, []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}})
	pose := spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 1}, &spatialmath.EulerAngles{Yaw: math.Pi / 2})
	out := ApplyPose(cloud, pose, "base_link")
	test.That(t, out.FrameID(), test.ShouldEqual, "base_link")
	test.That(t, out.Timestamp(), test.ShouldEqual, testStamp)
	test.That(t, out.At(0).X, test.ShouldAlmostEqual, 0)
	test.That(t, out.At(0).Y, test.ShouldAlmostEqual, 1)
	test.That(t, out.At(0).Z, test.ShouldAlmostEqual, 1)
	test.That(t, out.At(1).Z, test.ShouldAlmostEqual, 2)
	test.That(t, cloud.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 0})
}

func sortedNeighbors(kd *KDTree, q r3.Vector, radius float64) []int {
	out := kd.RadiusNeighbors(q, radius)
	sort.Ints(out)
	return out
}

func TestKDTreeRadiusNeighbors(t *testing.T) {
	var pts []r3.Vector
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			pts = append(pts, r3.Vector{X: float64(i) * 0.1, Y: float64(j) * 0.1})
		}
	}
	cloud := New("camera", testStamp, pts)
	kd := NewKDTree(cloud)

	// corner, one axis neighbor each way, radius a bit over the spacing
	test.That(t, sortedNeighbors(kd, r3.Vector{}, 0.101), test.ShouldResemble, []int{0, 1, 10})
	test.That(t, sortedNeighbors(kd, r3.Vector{X: 0.5, Y: 0.5}, 0.101), test.ShouldResemble, []int{45, 54, 55, 56, 65})

	test.That(t, kd.RadiusNeighbors(r3.Vector{X: 5, Y: 5}, 0.1), test.ShouldBeEmpty)
	test.That(t, NewKDTree(NewEmpty("camera", testStamp)).RadiusNeighbors(r3.Vector{}, 1), test.ShouldBeNil)

	// brute force agreement
	q := r3.Vector{X: 0.33, Y: 0.41, Z: 0.02}
	var want []int
	for i, p := range pts {
		if p.Sub(q).Norm() <= 0.25 {
			want = append(want, i)
		}
	}
	test.That(t, sortedNeighbors(kd, q, 0.25), test.ShouldResemble, want)

	// appending keeps what is already in the buffer
	buf := kd.AppendRadiusNeighbors([]int{-1}, r3.Vector{}, 0.101)
	test.That(t, buf[0], test.ShouldEqual, -1)
	test.That(t, len(buf), test.ShouldEqual, 4)
	test.That(t, kd.AppendRadiusNeighbors(buf[:0], r3.Vector{}, -1), test.ShouldBeEmpty)
}

func TestKDTreeRadiusNeighborsBruteForce(t *testing.T) {
	// many repeated coordinates so split values are shared between subtrees
	rnd := rand.New(rand.NewSource(7))
	pts := make([]r3.Vector, 2000)
	for i := range pts {
		pts[i] = r3.Vector{
			X: float64(rnd.Intn(20)) * 0.05,
			Y: float64(rnd.Intn(20)) * 0.05,
			Z: float64(rnd.Intn(4)) * 0.05,
		}
	}
	kd := NewKDTree(New("camera", testStamp, pts))
	for n := 0; n < 50; n++ {
		q := pts[rnd.Intn(len(pts))]
		radius := float64(rnd.Intn(4)) * 0.05
		want := []int{}
		for i, p := range pts {
			if p.Sub(q).Norm2() <= radius*radius {
				want = append(want, i)
			}
		}
		got := sortedNeighbors(kd, q, radius)
		test.That(t, got, test.ShouldResemble, want)
	}
}
