package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/adapters/repository"
	service "github.com/okian/classroom/internal/app"
	"github.com/okian/classroom/internal/domain/types"
)

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service on sqlite backends", t, func() {
		cfg := testConfig()
		cfg.HistoryBackend = repository.BackendSQLite
		cfg.HallPassBackend = repository.BackendSQLite
		cfg.AuditBackend = repository.BackendSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "classroom.db")
		svc, clock := startService(t, service.WithConfig(cfg))
		ctx := context.Background()

		Convey("When picks are made", func() {
			var picked []string
			for i := 0; i < 5; i++ {
				clock.advance(time.Minute)
				resp, err := svc.Pick(ctx, "math")
				So(err, ShouldBeNil)
				picked = append(picked, resp.Selected)
			}

			Convey("Then every pick reaches the audit log in order", func() {
				var audit types.AuditResponse
				ok := eventually(func() bool {
					var err error
					audit, err = svc.Audit(ctx, "math", "")
					return err == nil && audit.Count == len(picked)
				})
				So(ok, ShouldBeTrue)
				So(audit.Day, ShouldEqual, "2026-03-09")
				for i, p := range audit.Picks {
					So(p.Student, ShouldEqual, picked[i])
					So(p.TotalStudents, ShouldEqual, 3)
					So(p.EventID, ShouldNotBeEmpty)
				}
			})

			Convey("And the history survives a restart on the same file", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				again, _ := startService(t, service.WithConfig(cfg))
				stats, err := again.Stats(ctx, "math")
				So(err, ShouldBeNil)
				total := 0
				for _, rec := range stats.PickHistory {
					total += rec.Count
				}
				So(total, ShouldEqual, 5)
			})

			Convey("And the same service reopens its stores after a restart", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
				stats, err := svc.Stats(ctx, "math")
				So(err, ShouldBeNil)
				total := 0
				for _, rec := range stats.PickHistory {
					total += rec.Count
				}
				So(total, ShouldEqual, 5)
				_, err = svc.Pick(ctx, "math")
				So(err, ShouldBeNil)
				_, err = svc.IssuePass(ctx, "math", types.IssuePassRequest{StudentName: "Ada", Destination: "Office"})
				So(err, ShouldBeNil)
			})

			Convey("And other days have no audit entries", func() {
				audit, err := svc.Audit(ctx, "math", "2026-03-08")
				So(err, ShouldBeNil)
				So(audit.Picks, ShouldBeEmpty)
			})
		})

		Convey("When a pass round trips through sqlite", func() {
			issued, err := svc.IssuePass(ctx, "math", types.IssuePassRequest{StudentName: "Cy", Destination: "Nurse", Notes: "headache"})
			So(err, ShouldBeNil)
			clock.advance(2 * time.Minute)
			_, err = svc.ReturnPass(ctx, issued.Pass.ID)
			So(err, ShouldBeNil)

			Convey("Then the listing shows it returned", func() {
				list, err := svc.ListPasses(ctx, "math")
				So(err, ShouldBeNil)
				So(list.RecentPasses, ShouldHaveLength, 1)
				So(list.RecentPasses[0].Notes, ShouldEqual, "headache")
				So(list.RecentPasses[0].DurationMinutes, ShouldEqual, 2)
				So(list.Statistics.TotalToday, ShouldEqual, 1)
			})
		})

		Convey("When the runtime stats are read", func() {
			stats := svc.GetStats()

			Convey("Then they name the backends", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["historyBackend"], ShouldEqual, repository.BackendSQLite)
				So(stats["today"], ShouldEqual, "2026-03-09")
			})
		})
	})
}
