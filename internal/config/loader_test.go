package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pixelrelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	config.EnvConfigPath,
	"PIXELRELAY_ADDR",
	"PIXELRELAY_QUEUE_SIZE",
	"PIXELRELAY_WORKER_COUNT",
	"PIXELRELAY_DEBUG",
	"PIXELRELAY_TRACK_SEARCH",
	"PIXELRELAY_AFFILIATION",
	"PIXELRELAY_COLLECTOR_URL",
	"PIXELRELAY_MEASUREMENT_ID",
	"PIXELRELAY_CONSENT_MARKETING",
	"PIXELRELAY_LOG_LEVEL",
	"PIXELRELAY_METRICS_REFRESH_MS",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pixelrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.TrackEcommerce, convey.ShouldBeTrue)
				convey.So(cfg.Affiliation, convey.ShouldEqual, "Shopify Store")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PIXELRELAY_ADDR", ":8080")
			_ = os.Setenv("PIXELRELAY_QUEUE_SIZE", "500")
			_ = os.Setenv("PIXELRELAY_DEBUG", "true")
			_ = os.Setenv("PIXELRELAY_TRACK_SEARCH", "false")
			_ = os.Setenv("PIXELRELAY_AFFILIATION", "Acme Outdoors")
			_ = os.Setenv("PIXELRELAY_CONSENT_MARKETING", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.Debug, convey.ShouldBeTrue)
				convey.So(cfg.TrackSearch, convey.ShouldBeFalse)
				convey.So(cfg.TrackPageViews, convey.ShouldBeTrue)
				convey.So(cfg.Affiliation, convey.ShouldEqual, "Acme Outdoors")
				convey.So(cfg.ConsentMarketing, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := createTempConfigFile(t, `
# relay settings
addr: ":9090"
measurement_id: "G-TEST123"
collector_url: "https://analytics.example.com"
track_form_submit: false
shop_currency: "AUD"
worker_count: 3
`)
			_ = os.Setenv(config.EnvConfigPath, path)
			_ = os.Setenv("PIXELRELAY_WORKER_COUNT", "7")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win over the file, and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MeasurementID, convey.ShouldEqual, "G-TEST123")
				convey.So(cfg.CollectorURL, convey.ShouldEqual, "https://analytics.example.com")
				convey.So(cfg.TrackFormSubmit, convey.ShouldBeFalse)
				convey.So(cfg.ShopCurrency, convey.ShouldEqual, "AUD")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 7)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv(config.EnvConfigPath, createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv(config.EnvConfigPath, "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PIXELRELAY_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PIXELRELAY_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When loading config with a non-positive metrics refresh", func() {
			_ = os.Setenv("PIXELRELAY_METRICS_REFRESH_MS", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_refresh_ms")
			})
		})

		convey.Convey("When loading config with a relative collector url", func() {
			_ = os.Setenv("PIXELRELAY_COLLECTOR_URL", "/collect")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigWatcher(t *testing.T) {
	convey.Convey("Given a watcher on a config file", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		path := createTempConfigFile(t, "log_level: info\ndebug: false\n")
		cfg, err := config.LoadFile(ctx, path)
		convey.So(err, convey.ShouldBeNil)

		w := config.NewWatcher(path, cfg)
		changes := make(chan *config.Config, 4)
		w.OnChange(func(c *config.Config) { changes <- c })

		convey.Convey("When Reload is called after the file changed", func() {
			convey.So(os.WriteFile(path, []byte("log_level: debug\ndebug: true\n"), 0o600), convey.ShouldBeNil)
			next, err := w.Reload(ctx)

			convey.Convey("Then subscribers receive the new config", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(next.Debug, convey.ShouldBeTrue)
				convey.So((<-changes).LogLevel, convey.ShouldEqual, "debug")
				convey.So(w.Config().Debug, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file becomes invalid", func() {
			convey.So(os.WriteFile(path, []byte("addr: \"\"\n"), 0o600), convey.ShouldBeNil)
			_, err := w.Reload(ctx)

			convey.Convey("Then the previous config is kept", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(w.Config(), convey.ShouldEqual, cfg)
				convey.So(len(changes), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When watching and the file is rewritten", func() {
			convey.So(w.Watch(ctx), convey.ShouldBeNil)
			convey.So(os.WriteFile(path, []byte("log_level: warn\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then a change notification arrives", func() {
				// A rewrite can surface as truncate+write, so intermediate reloads are skipped.
				deadline := time.After(2 * time.Second)
				level := ""
			wait:
				for level != "warn" {
					select {
					case c := <-changes:
						level = c.LogLevel
					case <-deadline:
						break wait
					}
				}
				convey.So(level, convey.ShouldEqual, "warn")
			})
		})
	
		convey.Convey("When the file is replaced atomically twice", func() {
			convey.So(w.Watch(ctx), convey.ShouldBeNil)
			replace := func(content string) {
				tmp := path + ".tmp"
				convey.So(os.WriteFile(tmp, []byte(content), 0o600), convey.ShouldBeNil)
				convey.So(os.Rename(tmp, path), convey.ShouldBeNil)
			}
			waitFor := func(level string) string {
				deadline := time.After(2 * time.Second)
				for {
					select {
					case c := <-changes:
						if c.LogLevel == level {
							return level
						}
					case <-deadline:
						return ""
					}
				}
			}

			convey.Convey("Then every replacement is picked up", func() {
				replace("log_level: warn\n")
				convey.So(waitFor("warn"), convey.ShouldEqual, "warn")
				replace("log_level: error\n")
				convey.So(waitFor("error"), convey.ShouldEqual, "error")
			})
		})

		convey.Convey("When a sibling file in the same directory changes", func() {
			convey.So(w.Watch(ctx), convey.ShouldBeNil)
			sibling := filepath.Join(filepath.Dir(path), "other.yaml")
			convey.So(os.WriteFile(sibling, []byte("log_level: debug\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then no reload happens", func() {
				select {
				case c := <-changes:
					convey.So(c, convey.ShouldBeNil)
				case <-time.After(200 * time.Millisecond):
				}
				convey.So(w.Config(), convey.ShouldEqual, cfg)
			})
		})
	})
}
