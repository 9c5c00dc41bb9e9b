package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/cinerank/internal/adapters/repository"
	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/config"
	"github.com/okian/cinerank/pkg/logger"
)

const seedFile = "../configs/movies.yaml"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.SeedFile = seedFile
	cfg.WorkerCount = 2
	cfg.QueueSize = 100
	cfg.MetricsIntervalMS = 100
	cfg.ShutdownTimeoutMS = 1000
	return cfg
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a configuration with a seed file", t, func() {
		ctx := context.Background()
		cfg := testConfig()

		convey.Convey("When no data directory is set", func() {
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then an in-memory store holds the seeded catalog", func() {
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
				counts, err := store.Counts(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(counts.Items, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When a data directory is set", func() {
			cfg.DataDir = t.TempDir()
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then a Badger store is used", func() {
				_, ok := store.(*repository.BadgerStore)
				convey.So(ok, convey.ShouldBeTrue)
				counts, err := store.Counts(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(counts.Items, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the seed file is missing", func() {
			cfg.SeedFile = "does-not-exist.yaml"
			store, err := openStore(ctx, cfg)

			convey.Convey("Then opening fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(store, convey.ShouldBeNil)
			})
		})
	})
}

func TestNewRanker(t *testing.T) {
	convey.Convey("Given ranking settings", t, func() {
		cfg := testConfig()

		convey.Convey("When the settings are valid", func() {
			cfg.ClampFeatures = true
			cfg.UnresolvedPolicy = "fallback"
			r, err := newRanker(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(r, convey.ShouldNotBeNil)
		})

		convey.Convey("When the unresolved policy is unknown", func() {
			cfg.UnresolvedPolicy = "guess"
			_, err := newRanker(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestHandlerEndToEnd(t *testing.T) {
	convey.Convey("Given a started service behind the full handler", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		ranker, err := newRanker(cfg)
		convey.So(err, convey.ShouldBeNil)

		svc := service.New(service.WithStore(store), service.WithRanker(ranker), service.WithWorkerCount(2))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Close() }()

		ts := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer ts.Close()

		convey.Convey("Then the landing page, docs and health routes answer", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/health", "/dashboard"} {
				resp, err := http.Get(ts.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When a user rates a movie", func() {
			resp, err := http.Post(ts.URL+"/ratings", "application/json",
				strings.NewReader(`{"event_id":"e-1","user_id":"u1","item_id":"inception","rating":5}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				p, _ := svc.Profile(ctx, "u1")
				if len(p.Ratings) == 1 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then the rated movie is excluded from their recommendations", func() {
				resp, err := http.Get(ts.URL + "/users/u1/recommendations?limit=20")
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = resp.Body.Close() }()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				var body struct {
					Recommendations []struct {
						ItemID string `json:"item_id"`
					} `json:"recommendations"`
					Count int `json:"count"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
				convey.So(body.Count, convey.ShouldEqual, 9)
				for _, r := range body.Recommendations {
					convey.So(r.ItemID, convey.ShouldNotEqual, "inception")
				}
			})
		})

		convey.Convey("When a user saves a movie to their watchlist", func() {
			resp, err := http.Post(ts.URL+"/users/u2/watchlist", "application/json", strings.NewReader(`{"movie_id":"inception"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			convey.Convey("Then it is listed with its catalog details", func() {
				resp, err := http.Get(ts.URL + "/users/u2/watchlist")
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = resp.Body.Close() }()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				var body struct {
					Movies []struct {
						ID      string    `json:"id"`
						Title   string    `json:"title"`
						AddedAt time.Time `json:"added_at"`
					} `json:"movies"`
					Count int `json:"count"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
				convey.So(body.Count, convey.ShouldEqual, 1)
				convey.So(body.Movies[0].ID, convey.ShouldEqual, "inception")
				convey.So(body.Movies[0].Title, convey.ShouldNotBeEmpty)
				convey.So(body.Movies[0].AddedAt.IsZero(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a complete configuration", t, func() {
		cfg := testConfig()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		convey.Convey("When run is cancelled", func() {
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(200 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}
