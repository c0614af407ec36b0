// Package pubsub provides an in-memory named topic of point clouds. It stands in for a message
// bus: publishers check NumSubscribers to skip work nobody will read, and each subscriber gets a
// bounded queue that drops its oldest message on overflow.
package pubsub

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/obstacles/pointcloud"
)

// ErrClosed is returned when publishing to a closed topic.
var ErrClosed = errors.New("topic closed")

// Topic fans published clouds out to its subscriptions.
type Topic struct {
	name string

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewTopic returns an open topic with no subscribers.
func NewTopic(name string) *Topic {
	return &Topic{name: name, subs: map[*Subscription]struct{}{}}
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.name
}

// NumSubscribers returns the number of open subscriptions.
func (t *Topic) NumSubscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Subscribe opens a subscription that buffers up to queueSize clouds. A queueSize below one is
// treated as one.
func (t *Topic) Subscribe(queueSize int) (*Subscription, error) {
	if queueSize < 1 {
		queueSize = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	sub := &Subscription{topic: t, ch: make(chan *pointcloud.PointCloud, queueSize)}
	t.subs[sub] = struct{}{}
	return sub, nil
}

// Publish delivers cloud to every subscription without blocking. A subscription whose queue is
// full loses its oldest cloud.
func (t *Topic) Publish(ctx context.Context, cloud *pointcloud.PointCloud) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.Wrapf(ErrClosed, "publishing to %q", t.name)
	}
	for sub := range t.subs {
		if sub.offer(cloud) {
			t.dropped.Inc()
		}
	}
	t.published.Inc()
	return nil
}

// Published returns how many clouds were published.
func (t *Topic) Published() uint64 {
	return t.published.Load()
}

// Dropped returns how many queued clouds were discarded across all subscriptions.
func (t *Topic) Dropped() uint64 {
	return t.dropped.Load()
}

// Close closes every subscription channel. Later publishes and subscribes fail.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for sub := range t.subs {
		close(sub.ch)
		delete(t.subs, sub)
	}
}

// Subscription receives the clouds published to a topic.
type Subscription struct {
	topic *Topic
	ch    chan *pointcloud.PointCloud
}

// C returns the channel clouds are delivered on. It is closed when the subscription or its
// topic is closed.
func (s *Subscription) C() <-chan *pointcloud.PointCloud {
	return s.ch
}

// Close removes the subscription from its topic and closes its channel.
func (s *Subscription) Close() {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	if _, ok := s.topic.subs[s]; !ok {
		return
	}
	delete(s.topic.subs, s)
	close(s.ch)
}

// offer queues cloud, evicting the oldest queued cloud if the queue is full. It reports whether
// a cloud was evicted. Callers hold the topic lock so offers to one subscription are serial.
func (s *Subscription) offer(cloud *pointcloud.PointCloud) bool {
	select {
	case s.ch <- cloud:
		return false
	default:
	}
	evicted := false
	select {
	case <-s.ch:
		evicted = true
	default:
	}
	// the topic lock makes this the only sender, so a slot is free now
	s.ch <- cloud
	return evicted
}
