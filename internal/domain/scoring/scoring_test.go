package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/cinerank/internal/domain/model"
	scoring "github.com/okian/cinerank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCosine(t *testing.T) {
	Convey("Given two feature vectors", t, func() {
		Convey("When they are identical", func() {
			v := model.FeatureVector{0.5, 0.8, 0.2, 0.7}

			Convey("Then similarity should be one", func() {
				So(scoring.Cosine(v, v), ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When they are orthogonal", func() {
			a := model.FeatureVector{1, 0, 0, 0}
			b := model.FeatureVector{0, 1, 0, 0}

			Convey("Then similarity should be zero", func() {
				So(scoring.Cosine(a, b), ShouldEqual, 0)
			})
		})

		Convey("When they point in opposite directions", func() {
			a := model.FeatureVector{1, 0, 0, 1}
			b := model.FeatureVector{-1, 0, 0, -1}

			Convey("Then similarity should be minus one", func() {
				So(scoring.Cosine(a, b), ShouldAlmostEqual, -1.0)
			})
		})

		Convey("When one of them is the zero vector", func() {
			a := model.FeatureVector{}
			b := model.FeatureVector{0.3, 0.4, 0, 0}

			Convey("Then similarity should be zero instead of NaN", func() {
				got := scoring.Cosine(a, b)
				So(math.IsNaN(got), ShouldBeFalse)
				So(got, ShouldEqual, 0)
				So(scoring.Cosine(b, a), ShouldEqual, 0)
			})
		})

		Convey("When they differ only in magnitude", func() {
			a := model.FeatureVector{1, 2, 3, 4}
			b := model.FeatureVector{2, 4, 6, 8}

			Convey("Then similarity should be one", func() {
				So(scoring.Cosine(a, b), ShouldAlmostEqual, 1.0)
			})
		})
	})
}

func TestCollaborativeScorer_Score(t *testing.T) {
	candidate := model.FeatureVector{1, 0, 0, 0}

	Convey("Given a scorer with the default policy", t, func() {
		s := scoring.NewCollaborativeScorer()
		So(s.Policy(), ShouldEqual, scoring.UnresolvedDrop)

		Convey("When the user has rated nothing", func() {
			Convey("Then the neutral prior should be returned", func() {
				So(s.Score(candidate, scoring.RatedVectors{}), ShouldEqual, scoring.NeutralPrior)
			})
		})

		Convey("When the user has rated items", func() {
			rated := scoring.RatedVectors{Vectors: []model.FeatureVector{
				{1, 0, 0, 0},
				{0, 1, 0, 0},
			}}

			Convey("Then the mean similarity should be returned", func() {
				So(s.Score(candidate, rated), ShouldAlmostEqual, 0.5)
			})
		})

		Convey("When some ratings could not be resolved", func() {
			rated := scoring.RatedVectors{
				Vectors:    []model.FeatureVector{{0, 1, 0, 0}},
				Unresolved: 3,
			}

			Convey("Then they should be ignored", func() {
				So(s.Score(candidate, rated), ShouldEqual, 0)
			})
		})

		Convey("When no rating could be resolved", func() {
			rated := scoring.RatedVectors{Unresolved: 2}

			Convey("Then the neutral prior should be returned", func() {
				So(s.Score(candidate, rated), ShouldEqual, scoring.NeutralPrior)
			})
		})
	})

	Convey("Given a scorer with the fallback policy", t, func() {
		s := scoring.NewCollaborativeScorer(scoring.WithUnresolvedPolicy(scoring.UnresolvedFallback))

		Convey("When some ratings could not be resolved", func() {
			rated := scoring.RatedVectors{
				Vectors:    []model.FeatureVector{{0, 1, 0, 0}},
				Unresolved: 1,
			}

			Convey("Then the candidate should stand in for each missing item", func() {
				So(s.Score(candidate, rated), ShouldAlmostEqual, 0.5)
			})
		})

		Convey("When the candidate is the zero vector", func() {
			rated := scoring.RatedVectors{Unresolved: 2}

			Convey("Then the stand-in similarity should be zero", func() {
				So(s.Score(model.FeatureVector{}, rated), ShouldEqual, 0)
			})
		})
	})
}

func TestParseUnresolvedPolicy(t *testing.T) {
	Convey("Given policy names", t, func() {
		Convey("Then known names should parse", func() {
			p, err := scoring.ParseUnresolvedPolicy("drop")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, scoring.UnresolvedDrop)

			p, err = scoring.ParseUnresolvedPolicy(" Fallback ")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, scoring.UnresolvedFallback)
			So(p.String(), ShouldEqual, "fallback")

			p, err = scoring.ParseUnresolvedPolicy("")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, scoring.UnresolvedDrop)
		})

		Convey("And unknown names should fail", func() {
			_, err := scoring.ParseUnresolvedPolicy("ignore")
			So(errors.Is(err, scoring.ErrUnknownPolicy), ShouldBeTrue)
		})
	})
}
