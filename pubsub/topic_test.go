package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}

func cloudAt(x float64) *pointcloud.PointCloud {
	return pointcloud.New("base_link", time.Time{}, []r3.Vector{{X: x}})
}

func TestTopicSubscribers(t *testing.T) {
	topic := NewTopic("obstacles")
	test.That(t, topic.Name(), test.ShouldEqual, "obstacles")
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 0)

	// publishing with no subscribers is fine
	test.That(t, topic.Publish(context.Background(), cloudAt(0)), test.ShouldBeNil)

	a, err := topic.Subscribe(2)
	test.That(t, err, test.ShouldBeNil)
	b, err := topic.Subscribe(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 2)

	test.That(t, topic.Publish(context.Background(), cloudAt(1)), test.ShouldBeNil)
	test.That(t, (<-a.C()).At(0).X, test.ShouldEqual, 1)
	test.That(t, (<-b.C()).At(0).X, test.ShouldEqual, 1)

	b.Close()
	b.Close()
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 1)
	_, ok := <-b.C()
	test.That(t, ok, test.ShouldBeFalse)

	topic.Close()
	_, ok = <-a.C()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 0)
	err = topic.Publish(context.Background(), cloudAt(2))
	test.That(t, errors.Is(err, ErrClosed), test.ShouldBeTrue)
	_, err = topic.Subscribe(1)
	test.That(t, err, test.ShouldBeError, ErrClosed)
	a.Close()
	topic.Close()
}

func TestTopicDropsOldest(t *testing.T) {
	topic := NewTopic("ground")
	defer topic.Close()
	sub, err := topic.Subscribe(2)
	test.That(t, err, test.ShouldBeNil)

	for i := 0; i < 5; i++ {
		test.That(t, topic.Publish(context.Background(), cloudAt(float64(i))), test.ShouldBeNil)
	}
	test.That(t, topic.Published(), test.ShouldEqual, uint64(5))
	test.That(t, topic.Dropped(), test.ShouldEqual, uint64(3))
	test.That(t, (<-sub.C()).At(0).X, test.ShouldEqual, 3)
	test.That(t, (<-sub.C()).At(0).X, test.ShouldEqual, 4)
}

func TestTopicPublishCanceled(t *testing.T) {
	topic := NewTopic("ground")
	defer topic.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, topic.Publish(ctx, cloudAt(0)), test.ShouldBeError, context.Canceled)
	test.That(t, topic.Published(), test.ShouldEqual, uint64(0))
}

func TestTopicConcurrentReader(t *testing.T) {
	topic := NewTopic("obstacles")
	sub, err := topic.Subscribe(1)
	test.That(t, err, test.ShouldBeNil)

	var wg sync.WaitGroup
	received := 0
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range sub.C() {
			received++
		}
	}()
	for i := 0; i < 100; i++ {
		test.That(t, topic.Publish(context.Background(), cloudAt(float64(i))), test.ShouldBeNil)
	}
	topic.Close()
	wg.Wait()
	test.That(t, uint64(received)+topic.Dropped(), test.ShouldEqual, uint64(100))
}
