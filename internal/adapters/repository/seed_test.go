package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/cinerank/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadSeed(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		defer store.Close()

		Convey("When loading a valid seed file", func() {
			n, err := repository.LoadSeed(ctx, store, "testdata/seed.yaml")

			Convey("Then every movie is stored with its fields", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)

				item, err := store.GetItem(ctx, "m3")
				So(err, ShouldBeNil)
				So(item.Title, ShouldEqual, "Gamma")
				So(item.Genres, ShouldResemble, []string{"action"})
				So(item.AverageRating, ShouldEqual, 5.0)
				So(item.RatingCount, ShouldEqual, 2)
				So(item.ReleaseYear, ShouldEqual, 1999)
				So(item.Cast, ShouldResemble, []string{"Someone", "Someone Else"})

				item, err = store.GetItem(ctx, "m2")
				So(err, ShouldBeNil)
				So(item.Year(), ShouldEqual, 2000)
			})
		})

		Convey("When reseeding after live ratings", func() {
			_, err := repository.LoadSeed(ctx, store, "testdata/seed.yaml")
			So(err, ShouldBeNil)
			_, err = store.ApplyRating(ctx, "u1", "m3", 2)
			So(err, ShouldBeNil)

			_, err = repository.LoadSeed(ctx, store, "testdata/seed.yaml")
			So(err, ShouldBeNil)

			Convey("Then the live aggregate survives", func() {
				item, err := store.GetItem(ctx, "m3")
				So(err, ShouldBeNil)
				So(item.RatingCount, ShouldEqual, 3)
				So(item.AverageRating, ShouldAlmostEqual, 4.0, 1e-9)
			})
		})

		Convey("When loading the bundled sample catalog", func() {
			n, err := repository.LoadSeed(ctx, store, "../../../configs/movies.yaml")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 10)
		})

		Convey("When an item has no id", func() {
			_, err := repository.LoadSeed(ctx, store, "testdata/bad_seed.yaml")
			So(errors.Is(err, repository.ErrInvalidItem), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := repository.LoadSeed(ctx, store, "testdata/missing.yaml")
			So(err, ShouldNotBeNil)
		})
	})
}
