package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/publisher"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/lock"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/metrics"
	"github.com/flight-search/consolidator-rebooking/test/mock"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

// setupLocker creates a mock locker that grants the lock once and expects its release.
func setupLocker(ctrl *gomock.Controller, key string) *lock.MockLocker {
	l := lock.NewMockLocker(ctrl)
	gomock.InOrder(
		l.EXPECT().Acquire(gomock.Any(), key, gomock.Any()).Return("tok-1", nil),
		l.EXPECT().Release(gomock.Any(), key, "tok-1").Return(nil),
	)
	return l
}

func TestRebook_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	booker := mock.NewBooker()
	pub := publisher.NewMockResultPublisher(ctrl)

	var published publisher.ResultEvent
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e publisher.ResultEvent) error {
			published = e
			return nil
		})

	uc := NewRebookingUseCase(Dependencies{
		Booker:    booker,
		Locker:    setupLocker(ctrl, "agent@example.com"),
		Publisher: pub,
	}, &Config{LockKey: "agent@example.com"})

	data := testutil.UA226Booking("450")
	result := uc.Rebook(context.Background(), data)

	assert.True(t, result.Success)
	assert.Equal(t, "AB12CD", result.PNR)
	assert.Equal(t, 1, booker.CallCount())
	assert.Same(t, data, booker.Received()[0])

	assert.Equal(t, "bk_1001", published.BookingID)
	assert.Equal(t, "FS-1001", published.BookingReference)
	assert.Equal(t, "AB12CD", published.Result.PNR)
}

func TestRebook_AccountBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	booker := mock.NewBooker()

	l := lock.NewMockLocker(ctrl)
	l.EXPECT().Acquire(gomock.Any(), "default", gomock.Any()).Return("", lock.ErrHeld)

	uc := NewRebookingUseCase(Dependencies{Booker: booker, Locker: l}, nil)
	result := uc.Rebook(context.Background(), testutil.UA226Booking("450"))

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindSessionBusy, result.ErrorKind)
	assert.Equal(t, domain.StateInit, result.LastState)
	assert.False(t, result.RequiresReview)
	assert.NotEmpty(t, result.RunID)
	assert.Zero(t, booker.CallCount(), "no browser run while the account is busy")
}

func TestRebook_LockBackendDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	booker := mock.NewBooker()

	l := lock.NewMockLocker(ctrl)
	l.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("redis: connection refused"))

	uc := NewRebookingUseCase(Dependencies{Booker: booker, Locker: l}, nil)
	result := uc.Rebook(context.Background(), testutil.UA226Booking("450"))

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindSessionStart, result.ErrorKind)
	assert.Contains(t, result.Error, "connection refused")
	assert.Zero(t, booker.CallCount())
}

func TestRebook_InvalidBookingSkipsLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := lock.NewMockLocker(ctrl) // no calls expected

	rejected := domain.NewFailureResult(domain.RunInfo{RunID: "r"},
		domain.ErrInvalidBooking, domain.StateInit, decimal.NullDecimal{}, nil, nil)
	booker := mock.NewBooker().WithResult(rejected)

	uc := NewRebookingUseCase(Dependencies{Booker: booker, Locker: l}, nil)
	result := uc.Rebook(context.Background(), &domain.BookingData{BookingID: "bk_empty"})

	assert.Equal(t, domain.KindInvalidBooking, result.ErrorKind)
	assert.Equal(t, 1, booker.CallCount())
}

func TestRebook_RunBudget(t *testing.T) {
	booker := mock.NewBooker().WithDelay(time.Second)

	uc := NewRebookingUseCase(Dependencies{Booker: booker}, &Config{RunBudget: 20 * time.Millisecond})

	start := time.Now()
	result := uc.Rebook(context.Background(), testutil.UA226Booking("450"))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, result.Success)
	assert.True(t, result.Timeout)
}

func TestRebook_BookerPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	booker := mock.NewBooker().WithPanic("nil element")

	uc := NewRebookingUseCase(Dependencies{
		Booker: booker,
		Locker: setupLocker(ctrl, "default"),
	}, nil)

	var result domain.BookingResult
	require.NotPanics(t, func() {
		result = uc.Rebook(context.Background(), testutil.UA226Booking("450"))
	})

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindInternal, result.ErrorKind)
	assert.Contains(t, result.Error, "nil element")
}

func TestRebook_PublishFailureKeepsResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := publisher.NewMockResultPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	uc := NewRebookingUseCase(Dependencies{Booker: mock.NewBooker(), Publisher: pub}, nil)
	result := uc.Rebook(context.Background(), testutil.UA226Booking("450"))

	assert.True(t, result.Success)
	assert.Equal(t, "AB12CD", result.PNR)
}

func TestRebook_PublishesAfterCallerCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := publisher.NewMockResultPublisher(ctrl)

	var publishCtxErr error
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ publisher.ResultEvent) error {
			publishCtxErr = ctx.Err()
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := NewRebookingUseCase(Dependencies{Booker: mock.NewBooker(), Publisher: pub}, nil)
	result := uc.Rebook(ctx, testutil.UA226Booking("450"))

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindSessionStart, result.ErrorKind)
	assert.NoError(t, publishCtxErr, "the result is published even when the caller is gone")
}

func TestRebook_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)

	uc := NewRebookingUseCase(Dependencies{Booker: mock.NewBooker(), Metrics: collectors}, nil)
	uc.Rebook(context.Background(), testutil.UA226Booking("450"))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "rebooking_runs_total" {
			found = true
			assert.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestRebook_SerializesRunsOnOneAccount(t *testing.T) {
	booker := mock.NewBooker().WithDelay(20 * time.Millisecond)

	uc := NewRebookingUseCase(Dependencies{Booker: booker}, &Config{LockWait: 2 * time.Second})

	var wg sync.WaitGroup
	results := make([]domain.BookingResult, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = uc.Rebook(context.Background(), testutil.UA226Booking("450"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, booker.MaxConcurrent())
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestNewRebookingUseCase_Defaults(t *testing.T) {
	uc := NewRebookingUseCase(Dependencies{Booker: mock.NewBooker()}, &Config{LockTTL: time.Minute}).(*rebookingUseCase)

	assert.Equal(t, "default", uc.cfg.LockKey)
	assert.Equal(t, time.Minute, uc.cfg.LockTTL)
	assert.Equal(t, DefaultRunBudget, uc.cfg.RunBudget)
	assert.NotNil(t, uc.locker)
	assert.NotNil(t, uc.publisher)
	assert.NotNil(t, uc.clock)
	assert.NotNil(t, uc.log)
}
