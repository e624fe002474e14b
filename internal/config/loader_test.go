package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/classroom/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.FallbackRoster, convey.ShouldResemble, config.DefaultRoster())
				convey.So(cfg.AuditWorkerCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("CLASSROOM_ADDR", ":8080")
			t.Setenv("CLASSROOM_HISTORY_BACKEND", "redis")
			t.Setenv("CLASSROOM_REDIS_ADDR", "redis:6379")
			t.Setenv("CLASSROOM_REDIS_DB", "3")
			t.Setenv("CLASSROOM_DASHBOARD_CACHE_TTL_MS", "1500")
			t.Setenv("CLASSROOM_RANDOM_SEED", "42")
			t.Setenv("CLASSROOM_FALLBACK_ROSTER", "Ada, Grace ,Linus")
			t.Setenv("CLASSROOM_METRICS_ENABLED", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.HistoryBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
				convey.So(cfg.DashboardCacheTTLMS, convey.ShouldEqual, 1500)
				convey.So(cfg.RandomSeed, convey.ShouldEqual, 42)
				convey.So(cfg.FallbackRoster, convey.ShouldResemble, []string{"Ada", "Grace", "Linus"})
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
timezone: "UTC"
audit_backend: "sqlite"
sqlite_path: "/tmp/classroom-test.db"
rosters:
  math-101:
    - "Ada Lovelace"
    - "Alan Turing"
fallback_roster:
  - "Only One"
seating_charts:
  art-2:
    title: "Period 2 Art"
    rows: 3
    cols: 4
    students: ["Frida", "Pablo"]
    seats:
      "0,1": "Pablo"
`)
			t.Setenv("CLASSROOM_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.AuditBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.Rosters["math-101"], convey.ShouldResemble, []string{"Ada Lovelace", "Alan Turing"})
				convey.So(cfg.FallbackRoster, convey.ShouldResemble, []string{"Only One"})
				chart := cfg.SeatingCharts["art-2"]
				convey.So(chart.Title, convey.ShouldEqual, "Period 2 Art")
				convey.So(chart.Rows, convey.ShouldEqual, 3)
				convey.So(chart.Students, convey.ShouldResemble, []string{"Frida", "Pablo"})
				convey.So(chart.Seats, convey.ShouldResemble, map[string]string{"0,1": "Pablo"})
			})

			convey.Convey("And env vars take precedence over the file", func() {
				t.Setenv("CLASSROOM_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("CLASSROOM_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then ErrLoadConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is invalid", func() {
			t.Setenv("CLASSROOM_HALL_PASS_BACKEND", "redis")
			_, err := config.Load(ctx)

			convey.Convey("Then ErrInvalidConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classroom.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}
