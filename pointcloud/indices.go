package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// IndexSet is an ordered sequence of distinct offsets into a single cloud.
type IndexSet []int

// NewIndexSet validates indices against a cloud of the given size. Every index must be in
// [0, size) and appear once.
func NewIndexSet(size int, indices ...int) (IndexSet, error) {
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= size {
			return nil, errors.Errorf("index %d out of bounds for cloud of size %d", idx, size)
		}
		if _, ok := seen[idx]; ok {
			return nil, errors.Errorf("index %d appears more than once", idx)
		}
		seen[idx] = struct{}{}
	}
	out := make(IndexSet, len(indices))
	copy(out, indices)
	return out, nil
}

// Len returns the number of indices.
func (set IndexSet) Len() int {
	return len(set)
}

// Sorted returns a copy of the set in ascending order.
func (set IndexSet) Sorted() IndexSet {
	out := make(IndexSet, len(set))
	copy(out, set)
	sort.Ints(out)
	return out
}

// Intersects reports whether the two sets share any index.
func (set IndexSet) Intersects(other IndexSet) bool {
	if len(other) < len(set) {
		set, other = other, set
	}
	lookup := make(map[int]struct{}, len(set))
	for _, idx := range set {
		lookup[idx] = struct{}{}
	}
	for _, idx := range other {
		if _, ok := lookup[idx]; ok {
			return true
		}
	}
	return false
}

// Extract returns a new cloud with the points of cloud at the given indices, in index-set order.
func Extract(cloud *PointCloud, set IndexSet) (*PointCloud, error) {
	if len(set) == 0 {
		return NewEmpty(cloud.frame, cloud.stamp), nil
	}
	out := make([]r3.Vector, 0, len(set))
	for _, idx := range set {
		if idx < 0 || idx >= cloud.Size() {
			return nil, errors.Errorf("index %d out of bounds for cloud of size %d", idx, cloud.Size())
		}
		out = append(out, cloud.points[idx])
	}
	return newOwned(cloud.frame, cloud.stamp, out), nil
}
