package loadgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/cinerank/internal/adapters/http/api"
	"github.com/okian/cinerank/internal/adapters/repository"
	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerateEvents(t *testing.T) {
	Convey("Given users and a catalog", t, func() {
		ctx := context.Background()
		users := generateUsers(5)
		movies := []Movie{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		stats := &Stats{}

		Convey("When generating events without duplicates", func() {
			events, err := generateEvents(ctx, &Config{NumEvents: 200}, users, movies, stats)
			So(err, ShouldBeNil)

			Convey("Then every event is valid and unique", func() {
				So(len(events), ShouldEqual, 200)
				So(stats.EventsGenerated, ShouldEqual, 200)
				ids := map[string]struct{}{}
				for _, e := range events {
					So(e.Rating, ShouldBeBetweenOrEqual, 0.0, 5.0)
					So(e.UserID, ShouldStartWith, "loadgen-")
					So([]string{"a", "b", "c"}, ShouldContain, e.ItemID)
					_, err := time.Parse(time.RFC3339, e.TS)
					So(err, ShouldBeNil)
					ids[e.EventID] = struct{}{}
				}
				So(len(ids), ShouldEqual, 200)
			})
		})

		Convey("When every event after the first is a replay", func() {
			events, err := generateEvents(ctx, &Config{NumEvents: 20, DuplicateRatio: 1}, users, movies, stats)
			So(err, ShouldBeNil)

			Convey("Then all events share the first event id", func() {
				for _, e := range events {
					So(e, ShouldResemble, events[0])
				}
			})
		})

		Convey("When the catalog is empty", func() {
			_, err := generateEvents(ctx, &Config{NumEvents: 1}, users, nil, stats)
			So(errors.Is(err, ErrEmptyCatalog), ShouldBeTrue)
		})
	})
}

func TestCheckRecommendations(t *testing.T) {
	Convey("Given a user's rated items", t, func() {
		rated := map[string]struct{}{"seen": {}}

		Convey("A well-formed list has no violations", func() {
			recs := []Recommendation{{ItemID: "a", Score: 0.9}, {ItemID: "b", Score: 0.9}, {ItemID: "c", Score: 0.1}}
			So(checkRecommendations("u", recs, rated, 3), ShouldBeEmpty)
		})

		Convey("Each broken invariant is reported", func() {
			recs := []Recommendation{
				{ItemID: "a", Score: 0.2},
				{ItemID: "seen", Score: 0.5},
				{ItemID: "a", Score: 0.1},
			}
			v := checkRecommendations("u", recs, rated, 2)
			So(len(v), ShouldEqual, 4)
			So(v[0].Reason, ShouldContainSubstring, "limit 2")
		})
	})

	Convey("Given submitted events and their outcomes", t, func() {
		events := []Event{
			{UserID: "u1", ItemID: "a"},
			{UserID: "u1", ItemID: "b"},
			{UserID: "u2", ItemID: "a"},
			{UserID: "u2", ItemID: "c"},
		}
		outcomes := []outcome{outcomeAccepted, outcomeThrottled, outcomeDuplicate, outcomeFailed}

		Convey("Only ratings that reached the service count as rated", func() {
			rated := ratedItems(events, outcomes)
			So(rated["u1"], ShouldContainKey, "a")
			So(rated["u1"], ShouldNotContainKey, "b")
			So(rated["u2"], ShouldContainKey, "a")
			So(rated["u2"], ShouldNotContainKey, "c")
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a client against a failing server", t, func() {
		var hits atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()
		client := NewClient(ts.URL, time.Second)
		ctx := context.Background()

		Convey("When failures keep coming", func() {
			for i := 0; i < breakerFailureThreshold; i++ {
				So(client.Health(ctx), ShouldNotBeNil)
			}
			err := client.Health(ctx)

			Convey("Then the breaker opens and stops calling the server", func() {
				So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, breakerFailureThreshold)
				So(client.BreakerState(), ShouldEqual, "open")
			})
		})
	})

	Convey("Given a server answering ratings", t, func() {
		status := atomic.Int32{}
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			code := int(status.Load())
			w.WriteHeader(code)
			if code == http.StatusOK {
				_, _ = w.Write([]byte(`{"status":"duplicate","duplicate":true}`))
			}
		}))
		defer ts.Close()
		client := NewClient(ts.URL, time.Second)
		ctx := context.Background()

		Convey("Status codes map to outcomes", func() {
			cases := map[int32]outcome{
				http.StatusAccepted:        outcomeAccepted,
				http.StatusOK:              outcomeDuplicate,
				http.StatusTooManyRequests: outcomeThrottled,
				http.StatusBadRequest:      outcomeFailed,
			}
			for code, want := range cases {
				status.Store(code)
				got, _ := client.SubmitRating(ctx, Event{EventID: "e"})
				So(got, ShouldEqual, want)
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a live recommender seeded with the sample catalog", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		n, err := repository.LoadSeed(ctx, store, "../../configs/movies.yaml")
		So(err, ShouldBeNil)
		So(n, ShouldBeGreaterThan, 0)

		svc := service.New(service.WithStore(store), service.WithWorkerCount(4))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Close() }()

		server := api.NewServer(svc, svc)
		mux := http.NewServeMux()
		server.Register(mux)
		ts := httptest.NewServer(server.Handler(mux))
		defer ts.Close()

		Convey("When a small load run is executed", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:        ts.URL,
				NumEvents:      200,
				Users:          40,
				DuplicateRatio: 0.1,
				TopN:           5,
				Workers:        4,
				Timeout:        5 * time.Second,
				WaitTimeout:    5 * time.Second,
			})

			Convey("Then every event is acknowledged and recommendations verify", func() {
				So(err, ShouldBeNil)
				So(stats.MoviesLoaded, ShouldEqual, n)
				So(stats.EventsSubmitted, ShouldEqual, 200)
				So(stats.EventsAccepted+stats.EventsDuplicate, ShouldEqual, 200)
				So(stats.EventsDuplicate, ShouldBeGreaterThan, 0)
				So(stats.UsersChecked, ShouldEqual, 40)
				So(stats.Violations, ShouldEqual, 0)
			})
		})
	})
}
