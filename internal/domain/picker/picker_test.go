package picker_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/domain/picker"
)

var fixedNow = time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := fixedNow.Add(-d)
	return &t
}

func TestComputeWeights(t *testing.T) {
	Convey("Given a roster", t, func() {
		roster := []string{"A", "B", "C"}

		Convey("When the history is empty", func() {
			weights := picker.ComputeWeights(roster, picker.PickHistory{}, fixedNow)

			Convey("Then every student gets the same maximum weight", func() {
				want := map[string]float64{"A": 48, "B": 48, "C": 48}
				So(cmp.Diff(want, weights), ShouldBeEmpty)
			})
		})

		Convey("When the history is nil", func() {
			weights := picker.ComputeWeights(roster, nil, fixedNow)

			Convey("Then it behaves like an empty history", func() {
				So(weights["A"], ShouldEqual, weights["C"])
				So(weights["A"], ShouldEqual, picker.MaxTimeWeight*2)
			})
		})

		Convey("When A has 5 picks and B has 1, and C was never picked", func() {
			history := picker.PickHistory{
				"A": {Count: 5, LastPicked: at(2 * time.Hour)},
				"B": {Count: 1, LastPicked: at(2 * time.Hour)},
			}
			weights := picker.ComputeWeights(roster, history, fixedNow)

			Convey("Then weights rank C >= B >= A", func() {
				So(weights["C"], ShouldBeGreaterThanOrEqualTo, weights["B"])
				So(weights["B"], ShouldBeGreaterThanOrEqualTo, weights["A"])
			})

			Convey("And the exact values follow time * frequency", func() {
				So(weights["A"], ShouldAlmostEqual, 2.0, 1e-9)   // 2h * (5-5+1)
				So(weights["B"], ShouldAlmostEqual, 10.0, 1e-9)  // 2h * (5-1+1)
				So(weights["C"], ShouldAlmostEqual, 144.0, 1e-9) // 24 * (5-0+1)
			})
		})

		Convey("When a student was picked moments ago", func() {
			history := picker.PickHistory{"A": {Count: 3, LastPicked: at(time.Second)}}
			weights := picker.ComputeWeights(roster, history, fixedNow)

			Convey("Then the weight is floored at the minimum", func() {
				So(weights["A"], ShouldEqual, picker.MinWeight)
			})
		})

		Convey("When last_picked lies in the future", func() {
			future := fixedNow.Add(time.Hour)
			history := picker.PickHistory{"A": {Count: 1, LastPicked: &future}}
			weights := picker.ComputeWeights(roster, history, fixedNow)

			Convey("Then the floor keeps the weight positive", func() {
				So(weights["A"], ShouldEqual, picker.MinWeight)
			})
		})

		Convey("When the time since the last pick exceeds a day", func() {
			history := picker.PickHistory{"A": {Count: 1, LastPicked: at(72 * time.Hour)}}
			weights := picker.ComputeWeights(roster, history, fixedNow)

			Convey("Then the recency weight is capped at 24", func() {
				So(weights["A"], ShouldEqual, picker.MaxTimeWeight*1)
			})
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given a seeded random source", t, func() {
		rng := rand.New(rand.NewSource(7))

		Convey("When the roster is empty", func() {
			_, err := picker.Select(nil, map[string]float64{}, rng)

			Convey("Then it fails with ErrInvalidInput", func() {
				So(errors.Is(err, picker.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When there is a single student", func() {
			got, err := picker.Select([]string{"Solo"}, nil, rng)

			Convey("Then that student is selected", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, "Solo")
			})
		})

		Convey("When one weight dominates", func() {
			roster := []string{"A", "B"}
			weights := map[string]float64{"A": 10_000, "B": 0.1}
			hits := 0
			for i := 0; i < 1000; i++ {
				got, err := picker.Select(roster, weights, rng)
				So(err, ShouldBeNil)
				if got == "A" {
					hits++
				}
			}

			Convey("Then the heavy student is drawn almost always", func() {
				So(hits, ShouldBeGreaterThan, 990)
			})
		})

		Convey("When weights are missing or invalid", func() {
			roster := []string{"A", "B"}
			weights := map[string]float64{"A": math.NaN()}
			seen := map[string]bool{}
			for i := 0; i < 200; i++ {
				got, err := picker.Select(roster, weights, rng)
				So(err, ShouldBeNil)
				seen[got] = true
			}

			Convey("Then both students remain selectable", func() {
				So(seen["A"], ShouldBeTrue)
				So(seen["B"], ShouldBeTrue)
			})
		})
	})
}

func TestSelectionBias(t *testing.T) {
	Convey("Given two students where one was picked 100 times today", t, func() {
		roster := []string{"Picked", "Unpicked"}
		history := picker.PickHistory{"Picked": {Count: 100, LastPicked: at(24 * time.Hour)}}
		weights := picker.ComputeWeights(roster, history, fixedNow)
		rng := rand.New(rand.NewSource(42))

		Convey("When drawing 1000 times", func() {
			unpicked := 0
			for i := 0; i < 1000; i++ {
				got, err := picker.Select(roster, weights, rng)
				So(err, ShouldBeNil)
				if got == "Unpicked" {
					unpicked++
				}
			}

			Convey("Then the unpicked student wins a large majority", func() {
				So(unpicked, ShouldBeGreaterThan, 900)
			})
		})
	})
}

func TestRecordPick(t *testing.T) {
	Convey("Given an empty history", t, func() {
		history := picker.PickHistory{}

		Convey("When recording one pick", func() {
			updated := picker.RecordPick(history, "A", fixedNow)

			Convey("Then the record is created lazily", func() {
				So(updated["A"].Count, ShouldEqual, 1)
				So(updated["A"].LastPicked.Equal(fixedNow), ShouldBeTrue)
				So(updated["A"].RecentPicks, ShouldHaveLength, 1)
			})

			Convey("And the input snapshot is untouched", func() {
				So(history, ShouldBeEmpty)
			})
		})

		Convey("When recording 15 picks of the same student", func() {
			h := history
			for i := 0; i < 15; i++ {
				h = picker.RecordPick(h, "A", fixedNow.Add(time.Duration(i)*time.Minute))
			}

			Convey("Then the count grows by 15", func() {
				So(h["A"].Count, ShouldEqual, 15)
			})

			Convey("And only the newest 10 picks are kept, oldest evicted first", func() {
				So(h["A"].RecentPicks, ShouldHaveLength, picker.MaxRecentPicks)
				So(h["A"].RecentPicks[0].Equal(fixedNow.Add(5*time.Minute)), ShouldBeTrue)
				So(h["A"].RecentPicks[9].Equal(fixedNow.Add(14*time.Minute)), ShouldBeTrue)
				So(h["A"].LastPicked.Equal(fixedNow.Add(14*time.Minute)), ShouldBeTrue)
			})
		})

		Convey("When a stored count is negative", func() {
			h := picker.PickHistory{"A": {Count: -4}}
			h = picker.RecordPick(h, "A", fixedNow)

			Convey("Then it is treated as zero before incrementing", func() {
				So(h["A"].Count, ShouldEqual, 1)
			})
		})
	})
}

func TestFairnessScore(t *testing.T) {
	Convey("Given pick histories", t, func() {
		Convey("When the history is empty", func() {
			So(picker.FairnessScore(picker.PickHistory{}), ShouldEqual, 100)
			So(picker.FairnessScore(nil), ShouldEqual, 100)
		})

		Convey("When all counts are zero", func() {
			h := picker.PickHistory{"A": {}, "B": {}}
			So(picker.FairnessScore(h), ShouldEqual, 100)
		})

		Convey("When all counts are equal", func() {
			h := picker.PickHistory{"A": {Count: 3}, "B": {Count: 3}, "C": {Count: 3}}
			So(picker.FairnessScore(h), ShouldEqual, 100)
		})

		Convey("When counts are 5, 1 and 0", func() {
			h := picker.PickHistory{"A": {Count: 5}, "B": {Count: 1}, "C": {Count: 0}}

			Convey("Then variance/mean^2 exceeds 1 and the score clamps to 0", func() {
				So(picker.FairnessScore(h), ShouldEqual, 0)
			})
		})

		Convey("When only picked students are present", func() {
			h := picker.PickHistory{"A": {Count: 5}, "B": {Count: 1}}

			Convey("Then only those counts are measured", func() {
				// mean 3, variance 4 -> 100 * (1 - 4/9)
				So(picker.FairnessScore(h), ShouldAlmostEqual, 100*(1-4.0/9.0), 1e-9)
				So(picker.RoundScore(picker.FairnessScore(h)), ShouldEqual, 55.6)
			})
		})

		Convey("When scores are computed on many shapes", func() {
			shapes := []picker.PickHistory{
				{"A": {Count: 1}},
				{"A": {Count: 100}, "B": {Count: 0}},
				{"A": {Count: 2}, "B": {Count: 3}, "C": {Count: 4}},
				{"A": {Count: 1}, "B": {Count: 0}, "C": {Count: 0}, "D": {Count: 0}},
			}

			Convey("Then every score lies within [0, 100]", func() {
				for _, h := range shapes {
					s := picker.FairnessScore(h)
					So(s, ShouldBeBetweenOrEqual, 0, 100)
				}
			})
		})

		Convey("When the legacy scalings are applied", func() {
			h := picker.PickHistory{"A": {Count: 2}, "B": {Count: 4}}

			Convey("Then they subtract a constant multiple of variance", func() {
				So(picker.LegacyFairnessScore(h, 10), ShouldEqual, 90)
				So(picker.LegacyFairnessScore(h, 20), ShouldEqual, 80)
				So(picker.LegacyFairnessScore(picker.PickHistory{"A": {Count: 50}, "B": {}}, 20), ShouldEqual, 0)
			})
		})
	})
}

func TestRecordThenScoreIsDeterministic(t *testing.T) {
	Convey("Given the same starting history", t, func() {
		start := picker.PickHistory{"A": {Count: 2}, "B": {Count: 1}}

		Convey("When recording the same pick twice from the same snapshot", func() {
			first := picker.FairnessScore(picker.RecordPick(start, "B", fixedNow))
			second := picker.FairnessScore(picker.RecordPick(start, "B", fixedNow))

			Convey("Then the scores match and the snapshot is unchanged", func() {
				So(first, ShouldEqual, second)
				So(first, ShouldEqual, 100)
				So(start["B"].Count, ShouldEqual, 1)
			})
		})
	})
}

func TestSessionPicksAndLeastPicked(t *testing.T) {
	Convey("Given a history with picks across the day", t, func() {
		h := picker.PickHistory{}
		h = picker.RecordPick(h, "A", fixedNow.Add(-3*time.Hour))
		h = picker.RecordPick(h, "B", fixedNow.Add(-30*time.Minute))
		h = picker.RecordPick(h, "A", fixedNow.Add(-10*time.Minute))

		Convey("When listing the last hour", func() {
			picks := picker.SessionPicks(h, fixedNow, time.Hour)

			Convey("Then only recent picks appear, newest first", func() {
				So(picks, ShouldHaveLength, 2)
				So(picks[0].Student, ShouldEqual, "A")
				So(picks[1].Student, ShouldEqual, "B")
			})
		})

		Convey("When asking for the least picked students", func() {
			least := picker.LeastPicked([]string{"A", "B", "C"}, h, 2)

			Convey("Then unpicked students lead, ties keep roster order", func() {
				So(least, ShouldResemble, []string{"C", "B"})
			})
		})

		Convey("When summing picks", func() {
			So(h.TotalPicks(), ShouldEqual, 3)
			So(h.Counts(), ShouldResemble, []int{2, 1})
		})
	})
}
