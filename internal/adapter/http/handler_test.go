package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/response"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/usecase"
	"github.com/flight-search/consolidator-rebooking/test/mock"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

// mockUseCase is a mock implementation of RebookingUseCase for testing.
type mockUseCase struct {
	rebookFunc func(ctx context.Context, data *domain.BookingData) domain.BookingResult

	mu       sync.Mutex
	received []*domain.BookingData
	ctxErrs  []error
}

func (m *mockUseCase) Rebook(ctx context.Context, data *domain.BookingData) domain.BookingResult {
	m.mu.Lock()
	m.received = append(m.received, data)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.mu.Unlock()

	if m.rebookFunc != nil {
		return m.rebookFunc(ctx, data)
	}
	return mock.ConfirmedResult("AB12CD")
}

func (m *mockUseCase) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// setupTestHandler creates a test Echo instance with the rebooking routes.
func setupTestHandler(uc usecase.RebookingUseCase) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, NewRebookingHandler(uc, nil), nil)
	return e
}

// makeRequest is a helper to make test requests with a raw JSON body.
func makeRequest(e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ua226Body returns the UA226 site booking record, optionally modified.
func ua226Body(t *testing.T, modify func(r map[string]interface{})) []byte {
	t.Helper()
	raw := testutil.LoadTestJSON(t, "site_booking_ua226.json")
	if modify == nil {
		return raw
	}
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &record))
	modify(record)
	out, err := json.Marshal(record)
	require.NoError(t, err)
	return out
}

type envelope struct {
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// =====================================================
// Rebook Tests
// =====================================================

func TestRebook_Success(t *testing.T) {
	uc := &mockUseCase{}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", ua226Body(t, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var dto struct {
		BookingID        string `json:"booking_id"`
		BookingReference string `json:"booking_reference"`
		Outcome          string `json:"outcome"`
		Result           struct {
			Success    bool   `json:"success"`
			PNR        string `json:"pnr"`
			FinalState string `json:"finalState"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "bk_1001", dto.BookingID)
	assert.Equal(t, "FS-1001", dto.BookingReference)
	assert.Equal(t, "confirmed", dto.Outcome)
	assert.True(t, dto.Result.Success)
	assert.Equal(t, "AB12CD", dto.Result.PNR)
	assert.Equal(t, "confirmed", dto.Result.FinalState)

	require.Equal(t, 1, uc.calls())
	data := uc.received[0]
	assert.Equal(t, "UA226", data.TargetSegment().Designator())
	assert.True(t, decimal.RequireFromString("450").Equal(data.Pricing.CustomerPaid))
	assert.Equal(t, "USD", data.Pricing.Currency)
}

func TestRebook_FailedRunIsStillServed(t *testing.T) {
	uc := &mockUseCase{
		rebookFunc: func(ctx context.Context, data *domain.BookingData) domain.BookingResult {
			return mock.PriceRejectedResult()
		},
	}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", ua226Body(t, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success, "the request was served even though the run failed")

	var dto RebookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "failed", dto.Outcome)
	assert.False(t, dto.Result.Success)
	assert.Equal(t, domain.KindPriceValidation, dto.Result.ErrorKind)
}

func TestRebook_SessionBusy(t *testing.T) {
	uc := &mockUseCase{
		rebookFunc: func(ctx context.Context, data *domain.BookingData) domain.BookingResult {
			err := domain.NewStepError("acquire_session", domain.ErrSessionBusy, nil)
			return domain.NewFailureResult(domain.RunInfo{RunID: "run-busy"}, err, domain.StateInit, decimal.NullDecimal{}, nil, nil)
		},
	}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", ua226Body(t, nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeSessionBusy, env.Error.Code)
	assert.Equal(t, "run-busy", env.Error.RunID)
}

func TestRebook_InvalidBookingFromUseCase(t *testing.T) {
	uc := &mockUseCase{
		rebookFunc: func(ctx context.Context, data *domain.BookingData) domain.BookingResult {
			return domain.NewFailureResult(domain.RunInfo{}, domain.ErrInvalidBooking, domain.StateInit, decimal.NullDecimal{}, nil, nil)
		},
	}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", ua226Body(t, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeValidationError, env.Error.Code)
}

func TestRebook_InvalidJSON(t *testing.T) {
	uc := &mockUseCase{}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", []byte(`{"id": "bk_1", "flightOffer": [`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeInvalidRequest, env.Error.Code)
	assert.Zero(t, uc.calls())
}

func TestRebook_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(r map[string]interface{})
		wantField string
	}{
		{
			name:      "missing id",
			modify:    func(r map[string]interface{}) { delete(r, "id") },
			wantField: "id",
		},
		{
			name:      "no travelers",
			modify:    func(r map[string]interface{}) { r["travelers"] = []interface{}{} },
			wantField: "travelers",
		},
		{
			name:      "no itineraries",
			modify:    func(r map[string]interface{}) { r["flightOffer"].(map[string]interface{})["itineraries"] = []interface{}{} },
			wantField: "flightOffer.itineraries",
		},
		{
			name: "zero amount paid",
			modify: func(r map[string]interface{}) {
				r["payment"] = map[string]interface{}{"amountPaid": "0", "currency": "USD"}
			},
			wantField: "payment.amountPaid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockUseCase{}
			e := setupTestHandler(uc)

			rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings", ua226Body(t, tt.modify))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, response.CodeValidationError, env.Error.Code)
			assert.Contains(t, env.Error.Details, tt.wantField)
			assert.Zero(t, uc.calls(), "invalid requests never reach the use case")
		})
	}
}

func TestRebook_RunSurvivesClientDisconnect(t *testing.T) {
	uc := &mockUseCase{}
	h := NewRebookingHandler(uc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rebookings", bytes.NewReader(ua226Body(t, nil))).WithContext(ctx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Rebook(e.NewContext(req, rec)))

	require.Equal(t, 1, uc.calls())
	assert.NoError(t, uc.ctxErrs[0], "the use case context is detached from the request")
}

// =====================================================
// Preview Tests
// =====================================================

func TestPreview_ReturnsConvertedBooking(t *testing.T) {
	uc := &mockUseCase{}
	e := setupTestHandler(uc)

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings/preview", ua226Body(t, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "UA226", dto.TargetFlight)
	assert.Empty(t, dto.ReturnFlight)
	assert.Equal(t, "bk_1001", dto.Booking.BookingID)
	assert.Equal(t, domain.TripOneWay, dto.Booking.Flights.TripType)
	require.Len(t, dto.Booking.Passengers, 1)
	assert.Equal(t, "Mr", dto.Booking.Passengers[0].Title)

	assert.Zero(t, uc.calls(), "preview never starts a run")
}

func TestPreview_Warnings(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings/preview", ua226Body(t, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))

	joined := strings.Join(dto.Warnings, "\n")
	assert.Contains(t, joined, "expectedNetPrice not recorded")
	assert.Contains(t, joined, "passenger 0 has no passport")
}

func TestPreview_RoundTrip(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	body := testutil.LoadTestJSON(t, "site_booking_roundtrip_family.json")
	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto PreviewDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &dto))
	assert.Equal(t, "UA1500", dto.TargetFlight)
	assert.Equal(t, "UA227", dto.ReturnFlight)
	assert.NotContains(t, strings.Join(dto.Warnings, "\n"), "expectedNetPrice")
}

func TestPreview_ValidationError(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	rec := makeRequest(e, http.MethodPost, "/api/v1/rebookings/preview", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeValidationError, env.Error.Code)
}

// =====================================================
// Routing Tests
// =====================================================

func TestHealth(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	rec := makeRequest(e, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "rebooking_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	e := echo.New()
	RegisterRoutes(e, NewRebookingHandler(&mockUseCase{}, nil), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rec := makeRequest(e, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rebooking_test_total 1")
}

func TestMetricsRoute_NotRegisteredWithoutHandler(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	rec := makeRequest(e, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownMethod(t *testing.T) {
	e := setupTestHandler(&mockUseCase{})

	rec := makeRequest(e, http.MethodGet, "/api/v1/rebookings", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
