// Package referenceframe keeps a tree of named coordinate frames connected by rigid transforms and
// answers queries for the pose of one frame relative to another at a point in time.
package referenceframe

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/obstacles/spatialmath"
)

// DefaultCacheDuration is how much history of each stamped transform a FrameTree keeps.
const DefaultCacheDuration = 10 * time.Second

type stampedPose struct {
	stamp time.Time
	pose  spatialmath.Pose
}

// edge connects a child frame to its parent. The pose of an edge maps points expressed in the
// child frame into the parent frame.
type edge struct {
	parent  string
	static  bool
	pose    spatialmath.Pose
	history []stampedPose // sorted by stamp
}

// FrameTree is a concurrency safe buffer of transforms between named frames. Each frame has at
// most one parent. Static edges hold for all time; stamped edges keep a bounded history and are
// interpolated between samples.
type FrameTree struct {
	mu        sync.Mutex
	edges     map[string]*edge
	cacheTime time.Duration
	// changed is closed and replaced whenever an edge is added or updated.
	changed chan struct{}
}

// NewFrameTree returns an empty tree keeping cacheTime of history per stamped edge. A
// non-positive cacheTime selects DefaultCacheDuration.
func NewFrameTree(cacheTime time.Duration) *FrameTree {
	if cacheTime <= 0 {
		cacheTime = DefaultCacheDuration
	}
	return &FrameTree{
		edges:     map[string]*edge{},
		cacheTime: cacheTime,
		changed:   make(chan struct{}),
	}
}

// SetStatic sets a time-invariant transform giving the pose of child in parent.
func (ft *FrameTree) SetStatic(parent, child string, pose spatialmath.Pose) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if err := ft.checkEdge(parent, child); err != nil {
		return err
	}
	ft.edges[child] = &edge{parent: parent, static: true, pose: pose}
	ft.notifyLocked()
	return nil
}

// Set records the pose of child in parent at stamp. Samples older than the cache duration
// relative to the newest sample are discarded. Setting a different parent for child, or
// replacing a static edge, discards the previous history.
func (ft *FrameTree) Set(parent, child string, pose spatialmath.Pose, stamp time.Time) error {
	if stamp.IsZero() {
		return errors.Errorf("transform %s -> %s needs a timestamp", parent, child)
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if err := ft.checkEdge(parent, child); err != nil {
		return err
	}
	e, ok := ft.edges[child]
	if !ok || e.static || e.parent != parent {
		e = &edge{parent: parent}
		ft.edges[child] = e
	}
	sample := stampedPose{stamp: stamp, pose: pose}
	i := sort.Search(len(e.history), func(i int) bool { return !e.history[i].stamp.Before(stamp) })
	switch {
	case i < len(e.history) && e.history[i].stamp.Equal(stamp):
		e.history[i] = sample
	default:
		e.history = append(e.history, stampedPose{})
		copy(e.history[i+1:], e.history[i:])
		e.history[i] = sample
	}
	newest := e.history[len(e.history)-1].stamp
	cutoff := sort.Search(len(e.history), func(i int) bool {
		return newest.Sub(e.history[i].stamp) <= ft.cacheTime
	})
	e.history = e.history[cutoff:]
	ft.notifyLocked()
	return nil
}

func (ft *FrameTree) checkEdge(parent, child string) error {
	if parent == "" || child == "" {
		return errors.New("frame names must be non-empty")
	}
	if parent == child {
		return errors.Errorf("frame %q cannot be its own parent", child)
	}
	// walking up from parent must not reach child
	for cur := parent; ; {
		e, ok := ft.edges[cur]
		if !ok {
			return nil
		}
		if e.parent == child {
			return errors.Errorf("adding %s -> %s would create a cycle", parent, child)
		}
		cur = e.parent
	}
}

func (ft *FrameTree) notifyLocked() {
	close(ft.changed)
	ft.changed = make(chan struct{})
}

// FrameNames returns the names of every frame in the tree, sorted.
func (ft *FrameTree) FrameNames() []string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	names := make([]string, 0, 2*len(ft.edges))
	for child, e := range ft.edges {
		names = append(names, child, e.parent)
	}
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

// Parent returns the parent of frame, or false if frame has none.
func (ft *FrameTree) Parent(frame string) (string, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	e, ok := ft.edges[frame]
	if !ok {
		return "", false
	}
	return e.parent, true
}

// Lookup returns the pose that maps points expressed in source into target at stamp. A zero
// stamp uses the newest sample of every stamped edge. Failures wrap ErrTransformUnavailable.
func (ft *FrameTree) Lookup(target, source string, stamp time.Time) (spatialmath.Pose, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.lookupLocked(target, source, stamp)
}

func (ft *FrameTree) lookupLocked(target, source string, stamp time.Time) (spatialmath.Pose, error) {
	if target == source {
		return spatialmath.NewZeroPose(), nil
	}
	for _, name := range []string{source, target} {
		if !ft.existsLocked(name) {
			return nil, errors.Wrapf(ErrTransformUnavailable, "frame %q does not exist", name)
		}
	}
	srcChain := ft.chainLocked(source)
	dstChain := ft.chainLocked(target)

	// find the closest common ancestor
	onDst := make(map[string]int, len(dstChain))
	for i, name := range dstChain {
		onDst[name] = i
	}
	common := -1
	for i, name := range srcChain {
		if _, ok := onDst[name]; ok {
			common = i
			break
		}
	}
	if common < 0 {
		return nil, errors.Wrapf(ErrTransformUnavailable, "frames %q and %q are not connected", source, target)
	}
	ancestor := srcChain[common]

	srcToAncestor, err := ft.composeLocked(srcChain[:common], stamp)
	if err != nil {
		return nil, err
	}
	dstToAncestor, err := ft.composeLocked(dstChain[:onDst[ancestor]], stamp)
	if err != nil {
		return nil, err
	}
	return spatialmath.Compose(spatialmath.PoseInverse(dstToAncestor), srcToAncestor), nil
}

// chainLocked returns frame followed by each of its ancestors up to the root.
func (ft *FrameTree) chainLocked(frame string) []string {
	chain := []string{frame}
	for {
		e, ok := ft.edges[chain[len(chain)-1]]
		if !ok {
			return chain
		}
		chain = append(chain, e.parent)
	}
}

func (ft *FrameTree) existsLocked(frame string) bool {
	if _, ok := ft.edges[frame]; ok {
		return true
	}
	for _, e := range ft.edges {
		if e.parent == frame {
			return true
		}
	}
	return false
}

// composeLocked returns the pose of the first frame of chain in the parent of the last one.
func (ft *FrameTree) composeLocked(chain []string, stamp time.Time) (spatialmath.Pose, error) {
	q := spatialmath.NewZeroPose()
	for _, child := range chain {
		e := ft.edges[child]
		pose, err := e.at(stamp)
		if err != nil {
			return nil, errors.Wrapf(err, "%s -> %s", e.parent, child)
		}
		// parent poses are applied after child poses, so they compose on the left
		q = spatialmath.Compose(pose, q)
	}
	return q, nil
}

func (e *edge) at(stamp time.Time) (spatialmath.Pose, error) {
	if e.static {
		return e.pose, nil
	}
	if len(e.history) == 0 {
		return nil, ErrTransformUnavailable
	}
	if stamp.IsZero() {
		return e.history[len(e.history)-1].pose, nil
	}
	oldest, newest := e.history[0], e.history[len(e.history)-1]
	if stamp.Before(oldest.stamp) || stamp.After(newest.stamp) {
		return nil, errors.Wrapf(ErrTransformUnavailable,
			"requested time %s is outside the buffered range [%s, %s]",
			stamp.Format(time.RFC3339Nano), oldest.stamp.Format(time.RFC3339Nano), newest.stamp.Format(time.RFC3339Nano))
	}
	i := sort.Search(len(e.history), func(i int) bool { return !e.history[i].stamp.Before(stamp) })
	after := e.history[i]
	if after.stamp.Equal(stamp) {
		return after.pose, nil
	}
	before := e.history[i-1]
	by := float64(stamp.Sub(before.stamp)) / float64(after.stamp.Sub(before.stamp))
	return spatialmath.Interpolate(before.pose, after.pose, by), nil
}
