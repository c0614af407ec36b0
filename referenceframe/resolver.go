package referenceframe

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/obstacles/spatialmath"
)

// ErrTransformUnavailable is returned when a transform between two frames cannot be produced
// for the requested time.
var ErrTransformUnavailable = errors.New("transform unavailable")

// A Resolver produces the pose that maps points expressed in source into target at stamp. When
// timeout is positive the resolver may block up to timeout waiting for the transform to become
// available. Any failure wraps ErrTransformUnavailable unless ctx ended first.
type Resolver interface {
	Resolve(ctx context.Context, target, source string, stamp time.Time, timeout time.Duration) (spatialmath.Pose, error)
}

// Resolve implements Resolver. With a positive timeout it retries on every update to the tree
// until the transform resolves, the timeout elapses or ctx is done.
func (ft *FrameTree) Resolve(
	ctx context.Context,
	target, source string,
	stamp time.Time,
	timeout time.Duration,
) (spatialmath.Pose, error) {
	ft.mu.Lock()
	pose, err := ft.lookupLocked(target, source, stamp)
	changed := ft.changed
	ft.mu.Unlock()
	if err == nil || timeout <= 0 {
		return pose, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, errors.Wrapf(err, "timed out after %s waiting for %s -> %s", timeout, target, source)
		case <-changed:
		}
		ft.mu.Lock()
		pose, err = ft.lookupLocked(target, source, stamp)
		changed = ft.changed
		ft.mu.Unlock()
		if err == nil {
			return pose, nil
		}
	}
}
