package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/fitmeasure/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.JobStoreSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.MaxImageBytes, convey.ShouldEqual, 10<<20)
			convey.So(cfg.PoseProvider, convey.ShouldEqual, "http")
			convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
		})

		convey.Convey("Then durations should be derived from the millisecond fields", func() {
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.PoseTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 24*time.Hour)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"empty addr", func(c *config.Config) { c.Addr = " " }, "addr"},
		{"unknown level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
		{"zero queue", func(c *config.Config) { c.QueueSize = 0 }, "queue_size"},
		{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }, "worker_count"},
		{"store below queue", func(c *config.Config) { c.JobStoreSize = 10 }, "job_store_size"},
		{"zero timeout", func(c *config.Config) { c.RequestTimeoutMS = 0 }, "request_timeout_ms"},
		{"zero image bound", func(c *config.Config) { c.MaxImageBytes = 0 }, "max_image_bytes"},
		{"zero preview", func(c *config.Config) { c.PreviewMaxDim = 0 }, "preview_max_dim"},
		{"negative rate", func(c *config.Config) { c.RateLimitRPS = -1 }, "rate_limit_rps"},
		{"unknown provider", func(c *config.Config) { c.PoseProvider = "onnx" }, "pose_provider"},
		{"http without endpoint", func(c *config.Config) { c.PoseEndpoint = "" }, "pose_endpoint"},
		{"fixture without path", func(c *config.Config) { c.PoseProvider = "fixture" }, "pose_fixture_path"},
		{"negative ttl", func(c *config.Config) { c.CacheTTLSec = -1 }, "cache_ttl_sec"},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" should be rejected", func() {
				cfg := config.New(ctx)
				tc.mutate(cfg)
				err := cfg.Validate(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, tc.field)
			})
		}
	})

	convey.Convey("Given mixed-case enum values", t, func() {
		cfg := config.New(ctx)
		cfg.LogLevel = "DEBUG"
		cfg.LogFormat = "JSON"
		convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
	})

	convey.Convey("Given a zero rate limit", t, func() {
		cfg := config.New(ctx)
		cfg.RateLimitRPS = 0
		convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
	})
}
