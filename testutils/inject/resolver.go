package inject

import (
	"context"
	"time"

	"go.viam.com/obstacles/referenceframe"
	"go.viam.com/obstacles/spatialmath"
)

// Resolver is an injected transform resolver.
type Resolver struct {
	referenceframe.Resolver
	ResolveFunc func(ctx context.Context, target, source string, stamp time.Time, timeout time.Duration) (spatialmath.Pose, error)
}

// Resolve calls the injected Resolve or the real version.
func (r *Resolver) Resolve(
	ctx context.Context,
	target, source string,
	stamp time.Time,
	timeout time.Duration,
) (spatialmath.Pose, error) {
	if r.ResolveFunc == nil {
		return r.Resolver.Resolve(ctx, target, source, stamp, timeout)
	}
	return r.ResolveFunc(ctx, target, source, stamp, timeout)
}
