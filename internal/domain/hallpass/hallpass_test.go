package hallpass_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/adapters/repository"
	"github.com/okian/classroom/internal/domain/hallpass"
)

func TestNewPass(t *testing.T) {
	Convey("Given an issue request", t, func() {
		now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
		req := hallpass.IssueRequest{ClassID: "default", StudentName: " Alice ", Destination: "Library"}

		Convey("When no duration is given", func() {
			p, err := hallpass.NewPass(req, now)

			Convey("Then the default of five minutes applies", func() {
				So(err, ShouldBeNil)
				So(p.ExpectedDuration, ShouldEqual, hallpass.DefaultExpectedMinutes)
				So(p.StudentName, ShouldEqual, "Alice")
				So(p.IsActive(), ShouldBeTrue)
				So(p.ID, ShouldHaveLength, 8)
				So(regexp.MustCompile(`^[0-9A-F]{8}$`).MatchString(p.ID), ShouldBeTrue)
			})

			Convey("And the QR payload names the pass", func() {
				So(p.QRPayload(), ShouldEqual, "HALL_PASS:"+p.ID+":Alice:Library")
			})
		})

		Convey("When required fields are blank", func() {
			_, errStudent := hallpass.NewPass(hallpass.IssueRequest{Destination: "Library"}, now)
			_, errDest := hallpass.NewPass(hallpass.IssueRequest{StudentName: "Alice", Destination: "  "}, now)

			Convey("Then ErrInvalidPass is returned", func() {
				So(errors.Is(errStudent, hallpass.ErrInvalidPass), ShouldBeTrue)
				So(errors.Is(errDest, hallpass.ErrInvalidPass), ShouldBeTrue)
			})
		})

		Convey("When the duration is out of range", func() {
			req.ExpectedDuration = 61
			_, errHigh := hallpass.NewPass(req, now)
			req.ExpectedDuration = -1
			_, errLow := hallpass.NewPass(req, now)
			req.ExpectedDuration = 60
			p, errOK := hallpass.NewPass(req, now)

			Convey("Then only 1..60 is accepted", func() {
				So(errors.Is(errHigh, hallpass.ErrInvalidPass), ShouldBeTrue)
				So(errors.Is(errLow, hallpass.ErrInvalidPass), ShouldBeTrue)
				So(errOK, ShouldBeNil)
				So(p.ExpectedDuration, ShouldEqual, 60)
			})
		})
	})
}

func TestAlertLevels(t *testing.T) {
	Convey("Given an active five minute pass", t, func() {
		issued := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
		p := hallpass.Pass{ID: "P1", IssueTime: issued, ExpectedDuration: 5}
		grace := hallpass.DefaultOverdueGrace

		Convey("Then it is green while within the expected time", func() {
			So(p.Alert(issued.Add(5*time.Minute), grace), ShouldEqual, hallpass.AlertGreen)
			So(p.IsOverdue(issued.Add(5*time.Minute)), ShouldBeFalse)
		})

		Convey("Then it is yellow once past expected", func() {
			So(p.Alert(issued.Add(6*time.Minute), grace), ShouldEqual, hallpass.AlertYellow)
			So(p.IsOverdue(issued.Add(6*time.Minute)), ShouldBeTrue)
		})

		Convey("Then it is red beyond expected plus grace", func() {
			So(p.Alert(issued.Add(10*time.Minute), grace), ShouldEqual, hallpass.AlertYellow)
			So(p.Alert(issued.Add(11*time.Minute), grace), ShouldEqual, hallpass.AlertRed)
		})

		Convey("Then a returned pass is always green", func() {
			ret := issued.Add(30 * time.Minute)
			p.ReturnTime = &ret
			So(p.Alert(issued.Add(time.Hour), grace), ShouldEqual, hallpass.AlertGreen)
			So(p.DurationMinutes(issued.Add(time.Hour)), ShouldEqual, 30)
			So(p.IsOverdue(issued.Add(time.Hour)), ShouldBeFalse)
		})

		Convey("Then a clock behind the issue time counts as zero minutes", func() {
			So(p.DurationMinutes(issued.Add(-time.Minute)), ShouldEqual, 0)
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given passes from one day", t, func() {
		base := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
		now := base.Add(time.Hour)
		returned := func(id string, out, back time.Duration) hallpass.Pass {
			r := base.Add(back)
			return hallpass.Pass{ID: id, IssueTime: base.Add(out), ReturnTime: &r, ExpectedDuration: 5}
		}
		passes := []hallpass.Pass{
			{ID: "LATE", IssueTime: now.Add(-20 * time.Minute), ExpectedDuration: 5},
			{ID: "FRESH", IssueTime: now.Add(-2 * time.Minute), ExpectedDuration: 5},
			returned("R1", 0, 4*time.Minute),
			returned("R2", 10*time.Minute, 16*time.Minute),
		}

		Convey("When summarised", func() {
			s := hallpass.Summarize(passes, now, hallpass.DefaultOverdueGrace)

			Convey("Then active passes are longest out first", func() {
				So(s.Active, ShouldHaveLength, 2)
				So(s.Active[0].ID, ShouldEqual, "LATE")
				So(s.Active[0].Alert, ShouldEqual, hallpass.AlertRed)
			})

			Convey("And recent passes are newest return first", func() {
				So(s.Recent, ShouldHaveLength, 2)
				So(s.Recent[0].ID, ShouldEqual, "R2")
			})

			Convey("And statistics cover the whole day", func() {
				So(s.Statistics.TotalToday, ShouldEqual, 4)
				So(s.Statistics.ActiveCount, ShouldEqual, 2)
				So(s.Statistics.OverdueCount, ShouldEqual, 1)
				So(s.Statistics.AvgDuration, ShouldEqual, float64(20+2+4+6)/4)
				So(s.Alerts, ShouldResemble, []string{"1 pass(es) are overdue"})
			})
		})

		Convey("When there are more than ten returned passes", func() {
			var many []hallpass.Pass
			for i := 0; i < 12; i++ {
				many = append(many, returned("R", time.Duration(i)*time.Minute, time.Duration(i+1)*time.Minute))
			}
			s := hallpass.Summarize(many, now, hallpass.DefaultOverdueGrace)

			Convey("Then only ten are listed", func() {
				So(s.Recent, ShouldHaveLength, 10)
				So(s.Statistics.TotalToday, ShouldEqual, 12)
				So(s.Alerts, ShouldBeEmpty)
			})
		})

		Convey("When there are no passes", func() {
			s := hallpass.Summarize(nil, now, hallpass.DefaultOverdueGrace)

			Convey("Then the statistics are zero", func() {
				So(s.Statistics, ShouldResemble, hallpass.Statistics{})
			})
		})
	})
}

func TestManager(t *testing.T) {
	Convey("Given a manager over the memory store", t, func() {
		ctx := context.Background()
		clock := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
		m := hallpass.NewManager(
			repository.NewMemoryHallPassStore(),
			hallpass.WithClock(func() time.Time { return clock }),
			hallpass.WithLocation(time.UTC),
			hallpass.WithOverdueGrace(2*time.Minute),
		)

		Convey("When a pass is issued and returned", func() {
			st, err := m.Issue(ctx, hallpass.IssueRequest{ClassID: "default", StudentName: "Alice", Destination: "Library", ExpectedDuration: 3})
			So(err, ShouldBeNil)
			So(st.Alert, ShouldEqual, hallpass.AlertGreen)

			clock = clock.Add(6 * time.Minute)
			summary, err := m.Today(ctx, "default")
			So(err, ShouldBeNil)

			Convey("Then the listing reflects the configured grace", func() {
				So(m.Grace(), ShouldEqual, 2*time.Minute)
				So(summary.Active, ShouldHaveLength, 1)
				So(summary.Active[0].Alert, ShouldEqual, hallpass.AlertRed)
			})

			Convey("And returning moves it to recent", func() {
				ret, err := m.Return(ctx, st.ID)
				So(err, ShouldBeNil)
				So(ret.DurationMinutes, ShouldEqual, 6)
				So(ret.IsActive(), ShouldBeFalse)
				So(ret.AlreadyReturned, ShouldBeFalse)

				summary, err := m.Today(ctx, "default")
				So(err, ShouldBeNil)
				So(summary.Active, ShouldBeEmpty)
				So(summary.Recent, ShouldHaveLength, 1)
			})
		})

		Convey("When a pass is returned twice", func() {
			st, err := m.Issue(ctx, hallpass.IssueRequest{ClassID: "default", StudentName: "Cy", Destination: "Nurse"})
			So(err, ShouldBeNil)
			clock = clock.Add(2 * time.Minute)
			first, err := m.Return(ctx, st.ID)
			So(err, ShouldBeNil)
			clock = clock.Add(3 * time.Minute)
			second, err := m.Return(ctx, st.ID)

			Convey("Then the second call keeps the first return time", func() {
				So(err, ShouldBeNil)
				So(first.AlreadyReturned, ShouldBeFalse)
				So(second.AlreadyReturned, ShouldBeTrue)
				So(second.ReturnTime.Equal(*first.ReturnTime), ShouldBeTrue)
				So(second.DurationMinutes, ShouldEqual, 2)
			})
		})

		Convey("When an unknown pass is returned", func() {
			_, err := m.Return(ctx, "MISSING0")

			Convey("Then the store's not found error surfaces", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When yesterday's passes exist", func() {
			_, err := m.Issue(ctx, hallpass.IssueRequest{ClassID: "default", StudentName: "Bob", Destination: "Office"})
			So(err, ShouldBeNil)
			clock = clock.Add(24 * time.Hour)
			summary, err := m.Today(ctx, "default")

			Convey("Then today's listing is empty", func() {
				So(err, ShouldBeNil)
				So(summary.Statistics.TotalToday, ShouldEqual, 0)
			})
		})

		Convey("When the request is invalid", func() {
			_, err := m.Issue(ctx, hallpass.IssueRequest{StudentName: "Alice"})
			So(errors.Is(err, hallpass.ErrInvalidPass), ShouldBeTrue)
		})
	})
}

// collidingStore reports the first n adds as duplicate codes.
type collidingStore struct {
	hallpass.Store
	collisions int
	tried      []string
}

func (s *collidingStore) Add(ctx context.Context, p hallpass.Pass) error {
	s.tried = append(s.tried, p.ID)
	if len(s.tried) <= s.collisions {
		return fmt.Errorf("pass %s: %w", p.ID, hallpass.ErrDuplicateCode)
	}
	return s.Store.Add(ctx, p)
}

func TestManagerCodeCollisions(t *testing.T) {
	Convey("Given a store whose codes collide", t, func() {
		ctx := context.Background()
		codes := []string{"RETRY001", "RETRY002", "RETRY003"}
		next := 0
		gen := func() string {
			c := codes[next%len(codes)]
			next++
			return c
		}
		store := &collidingStore{Store: repository.NewMemoryHallPassStore()}
		m := hallpass.NewManager(store, hallpass.WithCodeGenerator(gen))
		req := hallpass.IssueRequest{ClassID: "default", StudentName: "Ada", Destination: "Office"}

		Convey("When one code collides", func() {
			store.collisions = 1
			st, err := m.Issue(ctx, req)

			Convey("Then a new code is drawn and stored", func() {
				So(err, ShouldBeNil)
				So(st.ID, ShouldEqual, "RETRY001")
				So(store.tried, ShouldHaveLength, 2)
				got, err := store.Get(ctx, "RETRY001")
				So(err, ShouldBeNil)
				So(got.StudentName, ShouldEqual, "Ada")
			})
		})

		Convey("When every attempt collides", func() {
			store.collisions = 10
			_, err := m.Issue(ctx, req)

			Convey("Then Issue gives up with the duplicate error", func() {
				So(errors.Is(err, hallpass.ErrDuplicateCode), ShouldBeTrue)
				So(store.tried, ShouldHaveLength, 3)
			})
		})

		Convey("When the store fails for another reason", func() {
			boom := errors.New("disk full")
			m := hallpass.NewManager(failingAddStore{Store: store, err: boom})
			_, err := m.Issue(ctx, req)

			Convey("Then it is not retried", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(store.tried, ShouldBeEmpty)
			})
		})
	})
}

type failingAddStore struct {
	hallpass.Store
	err error
}

func (s failingAddStore) Add(context.Context, hallpass.Pass) error { return s.err }
