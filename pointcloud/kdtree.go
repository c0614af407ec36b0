package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree answers radius queries over the points of one cloud. Results are offsets into that cloud.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

// NewKDTree builds a tree over the points of cloud. The cloud itself is not modified.
func NewKDTree(cloud *PointCloud) *KDTree {
	backing := make([]kdPoint, cloud.Size())
	pts := make(kdPoints, len(backing))
	cloud.Iterate(func(i int, p r3.Vector) bool {
		backing[i] = kdPoint{idx: i, pos: p}
		pts[i] = &backing[i]
		return true
	})
	kd := &KDTree{size: len(pts)}
	if len(pts) > 0 {
		kd.tree = kdtree.New(pts, false)
	}
	return kd
}

// RadiusNeighbors returns the offsets of every point within radius of q (inclusive), in no
// particular order. A point of the cloud located at q is included.
func (kd *KDTree) RadiusNeighbors(q r3.Vector, radius float64) []int {
	if kd.tree == nil || radius < 0 {
		return nil
	}
	return kd.AppendRadiusNeighbors(make([]int, 0, 16), q, radius)
}

// AppendRadiusNeighbors appends the result of RadiusNeighbors to dst and returns the extended
// slice, so callers running many queries can reuse one buffer.
func (kd *KDTree) AppendRadiusNeighbors(dst []int, q r3.Vector, radius float64) []int {
	if kd.tree == nil || radius < 0 {
		return dst
	}
	return appendWithin(dst, kd.tree.Root, q, radius*radius)
}

// appendWithin walks the tree without a kdtree.Keeper since radius results carry no order.
func appendWithin(dst []int, n *kdtree.Node, q r3.Vector, radius2 float64) []int {
	for n != nil {
		p := n.Point.(*kdPoint)
		if p.pos.Sub(q).Norm2() <= radius2 {
			dst = append(dst, p.idx)
		}
		// the left subtree holds values <= the split, the right one values >= it. Pruning uses the
		// same squared distance as the test above so ties at the radius are never skipped.
		d := coord(q, n.Plane) - coord(p.pos, n.Plane)
		switch {
		case d*d <= radius2:
			dst = appendWithin(dst, n.Left, q, radius2)
			n = n.Right
		case d < 0:
			n = n.Left
		default:
			n = n.Right
		}
	}
	return dst
}

type kdPoint struct {
	idx int
	pos r3.Vector
}

func coord(v r3.Vector, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Compare implements kdtree.Comparable.
func (p *kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(p.pos, d) - coord(c.(*kdPoint).pos, d)
}

// Dims implements kdtree.Comparable.
func (p *kdPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance, as kdtree expects.
func (p *kdPoint) Distance(c kdtree.Comparable) float64 {
	return p.pos.Sub(c.(*kdPoint).pos).Norm2()
}

type kdPoints []*kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                      { return len(p) }
func (p kdPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p kdPoints) Pivot(d kdtree.Dim) int {
	return kdPlane{kdPoints: p, dim: d}.Pivot()
}

type kdPlane struct {
	kdPoints
	dim kdtree.Dim
}

func (p kdPlane) Less(i, j int) bool {
	return coord(p.kdPoints[i].pos, p.dim) < coord(p.kdPoints[j].pos, p.dim)
}

func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

func (p kdPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
