package ctl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/ctl"
	"github.com/okian/classroom/internal/domain/picker"
)

func TestSimulate(t *testing.T) {
	Convey("Given a seeded simulation", t, func() {
		ctx := context.Background()
		cfg := ctl.SimConfig{Picks: 160, Students: 16, Interval: time.Minute, Seed: 7}

		Convey("When it runs", func() {
			res, err := ctl.Simulate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then every pick lands on a roster member", func() {
				So(res.Distribution, ShouldHaveLength, 16)
				total := 0
				for _, sc := range res.Distribution {
					total += sc.Count
				}
				So(total, ShouldEqual, 160)
			})

			Convey("Then the distribution is sorted and even", func() {
				for i := 1; i < len(res.Distribution); i++ {
					So(res.Distribution[i-1].Count, ShouldBeGreaterThanOrEqualTo, res.Distribution[i].Count)
				}
				So(res.Fairness, ShouldBeGreaterThan, 80)
				So(res.Spread, ShouldBeLessThan, 10)
			})

			Convey("Then the same seed reproduces the run", func() {
				again, err := ctl.Simulate(ctx, cfg)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When the run would cross midnight", func() {
			res, err := ctl.Simulate(ctx, ctl.SimConfig{Picks: 1000, Students: 5, Interval: time.Minute, Seed: 1})

			Convey("Then the interval is shortened to fit one day", func() {
				So(err, ShouldBeNil)
				So(res.Interval, ShouldEqual, 54*time.Second)
			})
		})

		Convey("When the roster is empty", func() {
			_, err := ctl.Simulate(ctx, ctl.SimConfig{Picks: 10})
			So(errors.Is(err, picker.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
