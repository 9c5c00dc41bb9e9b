package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/cinerank/internal/adapters/mq/worker"
	model "github.com/okian/cinerank/internal/domain/model"
	logging "github.com/okian/cinerank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockSource struct {
	events    chan worker.Event
	closeOnce sync.Once
}

func newMockSource() *mockSource {
	return &mockSource{events: make(chan worker.Event, 64)}
}

func (m *mockSource) Events() <-chan worker.Event { return m.events }

func (m *mockSource) Close() error {
	m.closeOnce.Do(func() { close(m.events) })
	return nil
}

func (m *mockSource) add(e worker.Event) { m.events <- e } //nolint:gocritic // test helper

type mockApplier struct {
	mu      sync.Mutex
	applied map[string]float64
	fail    map[string]error
	delay   time.Duration
}

func newMockApplier() *mockApplier {
	return &mockApplier{applied: make(map[string]float64), fail: make(map[string]error)}
}

func (m *mockApplier) ApplyRating(_ context.Context, userID, itemID string, rating float64) (bool, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[itemID]; ok {
		return false, err
	}
	key := userID + "/" + itemID
	_, existed := m.applied[key]
	m.applied[key] = rating
	return !existed, nil
}

func (m *mockApplier) get(userID, itemID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.applied[userID+"/"+itemID]
	return r, ok
}

func (m *mockApplier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func event(id, user, item string, rating float64) worker.Event {
	return model.RatingEvent{EventID: id, UserID: user, ItemID: item, Rating: rating, TS: time.Now()}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		_ = logging.Init()

		source := newMockSource()
		applier := newMockApplier()
		w := worker.NewInMemoryWorker(source, applier, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a rating arrives", func() {
			source.add(event("e1", "u1", "m1", 4.5))

			convey.Convey("Then it is applied to the store", func() {
				convey.So(waitFor(func() bool { _, ok := applier.get("u1", "m1"); return ok }), convey.ShouldBeTrue)
				r, _ := applier.get("u1", "m1")
				convey.So(r, convey.ShouldEqual, 4.5)
			})
		})

		convey.Convey("When applying fails", func() {
			applier.fail["bad"] = errors.New("boom")
			source.add(event("e2", "u1", "bad", 3))
			source.add(event("e3", "u1", "m2", 3))

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { _, ok := applier.get("u1", "m2"); return ok }), convey.ShouldBeTrue)
				_, ok := applier.get("u1", "bad")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})

		convey.Convey("When the source closes", func() {
			_ = source.Close()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		_ = logging.Init()

		source := newMockSource()
		applier := newMockApplier()
		pool := worker.NewPool(3, source, applier)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When several ratings arrive", func() {
			for i, item := range []string{"m1", "m2", "m3", "m4"} {
				source.add(event("e"+item, "u1", item, float64(i+1)))
			}

			convey.Convey("Then all are applied and counted", func() {
				convey.So(waitFor(func() bool { return applier.count() == 4 }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool { return pool.Processed() == 4 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down with buffered ratings", func() {
			applier.delay = 5 * time.Millisecond
			for _, item := range []string{"a", "b", "c", "d", "e", "f"} {
				source.add(event("e"+item, "u2", item, 2))
			}
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()

			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then the buffer is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applier.count(), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When stopped", func() {
			pool.Stop()
			pool.Stop()
			convey.So(pool.Processed(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a pool created with a zero count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockSource(), newMockApplier())

		convey.Convey("Then it sizes itself from the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
