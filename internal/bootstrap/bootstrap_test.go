package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/config"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/screenshot"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
	"github.com/flight-search/consolidator-rebooking/test/fakeportal"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Portal: config.PortalConfig{
			URL:            "https://portal.example.com",
			Email:          "agent@example.com",
			Password:       "secret",
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
		Timeouts: config.TimeoutConfig{
			Action:      time.Second,
			Login:       time.Second,
			Results:     time.Second,
			NetworkIdle: time.Second,
			Debounce:    time.Millisecond,
			Navigation:  time.Second,
			Run:         10 * time.Second,
		},
		Screenshots: config.ScreenshotConfig{Sink: config.SinkLocal, Dir: t.TempDir()},
		Lock:        config.LockConfig{Backend: config.LockLocal, TTL: time.Minute},
	}
}

func TestNew_RunsAgainstPortal(t *testing.T) {
	cfg := testConfig(t)
	fake := fakeportal.NewConsolidator(fakeportal.UA226("$410.00"))

	app, err := New(context.Background(), cfg, nil, WithDriver(fake))
	require.NoError(t, err)
	defer app.Close()

	result := app.UseCase.Rebook(context.Background(), testutil.UA226Booking("450"))

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "AB12CD", result.PNR)
	assert.Equal(t, 1920, fake.LastOptions.ViewportWidth)
	assert.True(t, fake.LastOptions.Headless)

	// screenshots land in the configured directory
	require.NotEmpty(t, result.Screenshots)
	_, err = os.Stat(result.Screenshots[0])
	assert.NoError(t, err)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "rebooking_runs_total")
	assert.Contains(t, names, "go_goroutines")
}

func TestNew_WithOptions(t *testing.T) {
	cfg := testConfig(t)
	reg := prometheus.NewRegistry()
	store := testutil.NewMemoryStore()
	fake := fakeportal.NewConsolidator(fakeportal.UA226("$460.00"))

	app, err := New(context.Background(), cfg, nil,
		WithDriver(fake), WithStore(store), WithRegistry(reg))
	require.NoError(t, err)
	defer app.Close()

	result := app.UseCase.Rebook(context.Background(), testutil.UA226Booking("450"))

	assert.Equal(t, domain.KindPriceValidation, result.ErrorKind)
	assert.NotEmpty(t, store.Names())
	assert.Same(t, reg, app.Registry)
}

func TestNew_LocatorOverrides(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "locators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locators:\n  login.submit:\n    - kind: css\n      value: \"#sign-in\"\n"), 0o644))
	cfg.Portal.LocatorsFile = path

	app, err := New(context.Background(), cfg, nil, WithDriver(fakeportal.NewConsolidator(fakeportal.UA226("$410"))))
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "#sign-in", app.Catalog.Locator(portal.LoginSubmit).Strategies[0].Value)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{
			name:   "missing locator file",
			modify: func(c *config.Config) { c.Portal.LocatorsFile = "/nonexistent/locators.yaml" },
		},
		{
			name: "unreachable redis",
			modify: func(c *config.Config) {
				c.Lock.Backend = config.LockRedis
				c.Lock.RedisAddr = "127.0.0.1:1"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := New(ctx, cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewStore(t *testing.T) {
	local, err := newStore(context.Background(), config.ScreenshotConfig{Sink: config.SinkLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &screenshot.LocalStore{}, local)

	s3, err := newStore(context.Background(), config.ScreenshotConfig{
		Sink:        config.SinkS3,
		S3Bucket:    "audit",
		S3Region:    "auto",
		S3Endpoint:  "http://127.0.0.1:9000",
		S3AccessKey: "key",
		S3SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &screenshot.S3Store{}, s3)

	_, err = newStore(context.Background(), config.ScreenshotConfig{Sink: config.SinkS3})
	assert.Error(t, err)
}
