package segmentation

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/obstacles/pointcloud"
)

// normalEstimate holds the estimated normal of the points with enough neighbors and the tree
// the neighborhoods were taken from.
type normalEstimate struct {
	kd      *pointcloud.KDTree
	normals []r3.Vector
	valid   []bool
}

// estimateNormals computes the unit normal of each point as the direction of least variance of
// its radius neighborhood. Neighborhoods are not kept; clustering queries the tree again.
func estimateNormals(ctx context.Context, cloud *pointcloud.PointCloud, radius float64, minNeighbors int) (*normalEstimate, error) {
	n := cloud.Size()
	est := &normalEstimate{
		kd:      pointcloud.NewKDTree(cloud),
		normals: make([]r3.Vector, n),
		valid:   make([]bool, n),
	}
	var fit planeFit
	var idx []int
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		center := cloud.At(i)
		idx = est.kd.AppendRadiusNeighbors(idx[:0], center, radius)
		if len(idx) < minNeighbors {
			continue
		}
		normal, ok := fit.leastVarianceDirection(cloud, center, idx)
		if !ok {
			continue
		}
		est.normals[i] = normal
		est.valid[i] = true
	}
	return est, nil
}

// planeFit holds the matrices reused across neighborhoods.
type planeFit struct {
	cov  *mat.SymDense
	es   mat.EigenSym
	vecs mat.Dense
}

// leastVarianceDirection returns the eigenvector of the smallest eigenvalue of the covariance of
// the points at idx. Offsets are taken from center, which keeps the one-pass sums well conditioned.
func (f *planeFit) leastVarianceDirection(cloud *pointcloud.PointCloud, center r3.Vector, idx []int) (r3.Vector, bool) {
	var sum r3.Vector
	var sxx, sxy, sxz, syy, syz, szz float64
	for _, j := range idx {
		d := cloud.At(j).Sub(center)
		sum = sum.Add(d)
		sxx += d.X * d.X
		sxy += d.X * d.Y
		sxz += d.X * d.Z
		syy += d.Y * d.Y
		syz += d.Y * d.Z
		szz += d.Z * d.Z
	}
	inv := 1 / float64(len(idx))
	m := sum.Mul(inv)
	if f.cov == nil {
		f.cov = mat.NewSymDense(3, nil)
	}
	f.cov.SetSym(0, 0, sxx*inv-m.X*m.X)
	f.cov.SetSym(0, 1, sxy*inv-m.X*m.Y)
	f.cov.SetSym(0, 2, sxz*inv-m.X*m.Z)
	f.cov.SetSym(1, 1, syy*inv-m.Y*m.Y)
	f.cov.SetSym(1, 2, syz*inv-m.Y*m.Z)
	f.cov.SetSym(2, 2, szz*inv-m.Z*m.Z)
	if ok := f.es.Factorize(f.cov, true); !ok {
		return r3.Vector{}, false
	}
	// eigenvalues are in ascending order
	f.es.VectorsTo(&f.vecs)
	normal := r3.Vector{X: f.vecs.At(0, 0), Y: f.vecs.At(1, 0), Z: f.vecs.At(2, 0)}
	if normal.Norm2() == 0 {
		return r3.Vector{}, false
	}
	return normal.Normalize(), true
}
