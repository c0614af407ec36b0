package inject

import (
	"context"
	"sync"

	"go.viam.com/obstacles/pointcloud"
)

// Publisher is an injected output channel. Without injected functions it reports one subscriber
// and records every published cloud.
type Publisher struct {
	NumSubscribersFunc func() int
	PublishFunc        func(ctx context.Context, cloud *pointcloud.PointCloud) error

	mu        sync.Mutex
	published []*pointcloud.PointCloud
}

// NumSubscribers calls the injected NumSubscribers or returns 1.
func (p *Publisher) NumSubscribers() int {
	if p.NumSubscribersFunc == nil {
		return 1
	}
	return p.NumSubscribersFunc()
}

// Publish calls the injected Publish or records the cloud.
func (p *Publisher) Publish(ctx context.Context, cloud *pointcloud.PointCloud) error {
	if p.PublishFunc != nil {
		return p.PublishFunc(ctx, cloud)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, cloud)
	return nil
}

// Published returns the clouds recorded so far.
func (p *Publisher) Published() []*pointcloud.PointCloud {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*pointcloud.PointCloud, len(p.published))
	copy(out, p.published)
	return out
}
