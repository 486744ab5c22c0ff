package selector_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/selector"
	"github.com/okian/fairness/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func results(pairs ...any) []model.ScoreResult {
	out := make([]model.ScoreResult, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.ScoreResult{ValidatorID: pairs[i].(string), Score: int64(pairs[i+1].(int))})
	}
	return out
}

func ids(entries []types.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ValidatorID
	}
	return out
}

func TestRank(t *testing.T) {
	Convey("Given a round's complete score set", t, func() {
		in := results("carol", 7000, "alice", 9000, "bob", 7000, "dave", 100, "Bob", 7000)

		Convey("When ranking", func() {
			got, err := selector.Rank(in)

			Convey("Then scores descend and ties break by byte-wise ascending id", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"alice", "Bob", "bob", "carol", "dave"})
				for i, e := range got {
					So(e.Rank, ShouldEqual, i+1)
				}
				So(got[0].Score, ShouldEqual, 9000)
			})

			Convey("Then the input is left untouched", func() {
				So(in[0].ValidatorID, ShouldEqual, "carol")
			})
		})

		Convey("When the same set arrives in any order", func() {
			want, err := selector.Rank(in)
			So(err, ShouldBeNil)
			rng := rand.New(rand.NewSource(1)) //nolint:gosec // shuffle only

			Convey("Then the ranking is identical", func() {
				for i := 0; i < 50; i++ {
					shuffled := append([]model.ScoreResult(nil), in...)
					rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
					got, err := selector.Rank(shuffled)
					So(err, ShouldBeNil)
					So(got, ShouldResemble, want)
				}
			})
		})

		Convey("When ids share a prefix", func() {
			got, err := selector.Rank(results("val-10", 5, "val-1", 5, "val-", 5))
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"val-", "val-1", "val-10"})
		})
	})

	Convey("Given an invalid score set", t, func() {
		Convey("When it is empty", func() {
			_, err := selector.Rank(nil)
			So(err, ShouldEqual, selector.ErrEmptyRound)
		})

		Convey("When a validator appears twice", func() {
			_, err := selector.Rank(results("a", 1, "b", 2, "a", 3))
			So(errors.Is(err, selector.ErrDuplicateValidator), ShouldBeTrue)
		})
	})
}

func TestTopN(t *testing.T) {
	Convey("Given a ranking", t, func() {
		ranked, err := selector.Rank(results("a", 3, "b", 2, "c", 1))
		So(err, ShouldBeNil)

		Convey("Then TopN returns the leading entries", func() {
			top, err := selector.TopN(ranked, 2)
			So(err, ShouldBeNil)
			So(ids(top), ShouldResemble, []string{"a", "b"})
			top[0].ValidatorID = "mutated"
			So(ranked[0].ValidatorID, ShouldEqual, "a")
		})

		Convey("Then invalid limits are rejected", func() {
			for _, n := range []int{0, -1, 4} {
				_, err := selector.TopN(ranked, n)
				So(errors.Is(err, selector.ErrInvalidLimit), ShouldBeTrue)
			}
		})

		Convey("Then Compare is a strict total order", func() {
			a := types.Entry{ValidatorID: "a", Score: 5}
			b := types.Entry{ValidatorID: "b", Score: 5}
			c := types.Entry{ValidatorID: "a", Score: 6}
			So(selector.Compare(a, b), ShouldBeLessThan, 0)
			So(selector.Compare(b, a), ShouldBeGreaterThan, 0)
			So(selector.Compare(c, a), ShouldBeLessThan, 0)
			So(selector.Compare(a, a), ShouldEqual, 0)
		})
	})
}
