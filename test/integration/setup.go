// Package integration provides helpers and integration tests for the rebooking service.
// Integration tests verify that components work together correctly: the HTTP surface,
// the use case with its account lock, and the portal automation driven against the
// scripted consolidator in test/fakeportal.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/flight-search/consolidator-rebooking/internal/adapter/http"
	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/middleware"
	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/response"
	"github.com/flight-search/consolidator-rebooking/internal/bootstrap"
	"github.com/flight-search/consolidator-rebooking/internal/config"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/usecase"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

// TestServer wraps an Echo instance and provides helper methods for integration testing.
type TestServer struct {
	Echo    *echo.Echo
	Handler *httpAdapter.RebookingHandler
}

// NewTestServer creates a test server in front of the given use case.
// metrics may be nil.
func NewTestServer(uc usecase.RebookingUseCase, metrics *prometheus.Registry) *TestServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.Setup(e, logger.Nop())

	handler := httpAdapter.NewRebookingHandler(uc, nil)
	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})
	}
	httpAdapter.RegisterRoutes(e, handler, metricsHandler)

	return &TestServer{
		Echo:    e,
		Handler: handler,
	}
}

// NewAppServer wires the whole service the way cmd/server does, with opts replacing
// the real browser and sinks.
func NewAppServer(t *testing.T, cfg *config.Config, opts ...bootstrap.Option) (*TestServer, *bootstrap.App) {
	t.Helper()
	app, err := bootstrap.New(context.Background(), cfg, logger.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return NewTestServer(app.UseCase, app.Registry), app
}

// TestConfig returns a valid configuration with short timeouts and a temporary
// screenshot directory.
func TestConfig(t *testing.T) *config.Config {
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

// Request represents a test HTTP request configuration.
type Request struct {
	Method    string
	Path      string
	Body      []byte
	RequestID string
}

// Response represents a test HTTP response.
type Response struct {
	Code    int
	Body    []byte
	Headers http.Header
}

// Do executes a test request and returns the response.
func (ts *TestServer) Do(req Request) Response {
	httpReq := httptest.NewRequest(req.Method, req.Path, bytes.NewReader(req.Body))
	if req.Body != nil {
		httpReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if req.RequestID != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, req.RequestID)
	}

	rec := httptest.NewRecorder()
	ts.Echo.ServeHTTP(rec, httpReq)

	return Response{
		Code:    rec.Code,
		Body:    rec.Body.Bytes(),
		Headers: rec.Header(),
	}
}

// RebookRequest posts a site booking record to the rebooking endpoint.
func (ts *TestServer) RebookRequest(body []byte) Response {
	return ts.Do(Request{Method: http.MethodPost, Path: "/api/v1/rebookings", Body: body})
}

// PreviewRequest posts a site booking record to the preview endpoint.
func (ts *TestServer) PreviewRequest(body []byte) Response {
	return ts.Do(Request{Method: http.MethodPost, Path: "/api/v1/rebookings/preview", Body: body})
}

// HealthRequest makes a health check request.
func (ts *TestServer) HealthRequest() Response {
	return ts.Do(Request{Method: http.MethodGet, Path: "/health"})
}

// MetricsRequest scrapes the metrics endpoint.
func (ts *TestServer) MetricsRequest() Response {
	return ts.Do(Request{Method: http.MethodGet, Path: "/metrics"})
}

// Envelope is the decoded response envelope with its payload left raw.
type Envelope struct {
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
}

// ParseEnvelope parses the response body as a response envelope.
func (r *Response) ParseEnvelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ParseRebooking parses the payload of a finished run.
func (r *Response) ParseRebooking() (*httpAdapter.RebookingDTO, error) {
	env, err := r.ParseEnvelope()
	if err != nil {
		return nil, err
	}
	var dto httpAdapter.RebookingDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// ParsePreview parses the payload of a conversion preview.
func (r *Response) ParsePreview() (*httpAdapter.PreviewDTO, error) {
	env, err := r.ParseEnvelope()
	if err != nil {
		return nil, err
	}
	var dto httpAdapter.PreviewDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// UA226Record returns the raw UA226 site booking record.
func UA226Record(t *testing.T) []byte {
	return testutil.LoadTestJSON(t, "site_booking_ua226.json")
}

// FamilyRecord returns the raw round-trip family site booking record.
func FamilyRecord(t *testing.T) []byte {
	return testutil.LoadTestJSON(t, "site_booking_roundtrip_family.json")
}

// CreateUseCase creates a use case around booker with default configuration.
func CreateUseCase(booker usecase.Booker) usecase.RebookingUseCase {
	return usecase.NewRebookingUseCase(usecase.Dependencies{Booker: booker}, nil)
}

// CreateUseCaseWithConfig creates a use case with custom configuration.
func CreateUseCaseWithConfig(booker usecase.Booker, config *usecase.Config) usecase.RebookingUseCase {
	return usecase.NewRebookingUseCase(usecase.Dependencies{Booker: booker}, config)
}

// BookingFor converts a raw record the same way the HTTP surface does.
func BookingFor(t *testing.T, raw []byte) *domain.BookingData {
	t.Helper()
	var req httpAdapter.RebookRequest
	require.NoError(t, json.Unmarshal(raw, &req))
	require.NoError(t, req.Validate())
	return httpAdapter.ToBookingData(&req)
}
