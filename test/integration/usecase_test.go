package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/bootstrap"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/lock"
	"github.com/flight-search/consolidator-rebooking/test/fakeportal"
	"github.com/flight-search/consolidator-rebooking/test/mock"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

// TestUseCase_ConvertedRecordMatchesPortal runs the converted website record, rather than
// a hand-built booking, against the portal.
func TestUseCase_ConvertedRecordMatchesPortal(t *testing.T) {
	fake := fakeportal.NewConsolidator(fakeportal.UA226("$410.00"))
	store := testutil.NewMemoryStore()
	_, app := NewAppServer(t, TestConfig(t), bootstrap.WithDriver(fake), bootstrap.WithStore(store))

	data := BookingFor(t, UA226Record(t))
	result := app.UseCase.Rebook(context.Background(), data)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "AB12CD", result.PNR)
	assert.Equal(t, []string{"0162345678901"}, result.ETicketNumbers)
	assert.True(t, decimal.RequireFromString("410").Equal(result.ConsolidatorPrice.Decimal))
	assert.Equal(t, len(result.Screenshots), len(store.Names()))
	assert.Equal(t, "2025-03-10", fake.DepartDate)
}

func TestUseCase_AccountHeldElsewhere(t *testing.T) {
	fake := fakeportal.NewConsolidator(fakeportal.UA226("$410.00"))
	locker := lock.NewLocalLocker(nil)
	_, app := NewAppServer(t, TestConfig(t), bootstrap.WithDriver(fake), bootstrap.WithLocker(locker))

	// another process holds the portal account
	token, err := locker.Acquire(context.Background(), "agent@example.com", time.Minute)
	require.NoError(t, err)

	result := app.UseCase.Rebook(context.Background(), BookingFor(t, UA226Record(t)))

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindSessionBusy, result.ErrorKind)
	assert.False(t, result.RequiresReview)
	assert.Zero(t, fake.Opens(), "no browser while the account is busy")

	// once released the same booking goes through
	require.NoError(t, locker.Release(context.Background(), "agent@example.com", token))
	result = app.UseCase.Rebook(context.Background(), BookingFor(t, UA226Record(t)))
	assert.True(t, result.Success, result.Error)
}

func TestUseCase_ResultsNeverRender(t *testing.T) {
	scenario := fakeportal.UA226("$410.00")
	scenario.NoResults = true
	fake := fakeportal.NewConsolidator(scenario)
	_, app := NewAppServer(t, TestConfig(t), bootstrap.WithDriver(fake))

	result := app.UseCase.Rebook(context.Background(), BookingFor(t, UA226Record(t)))

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindSearch, result.ErrorKind)
	assert.Equal(t, domain.StateLoggedIn, result.LastState)
	assert.False(t, result.RequiresReview, "nothing was purchased")
	assert.NotEmpty(t, result.Screenshots)
	assert.Equal(t, 1, fake.Closes())
}

func TestUseCase_InvalidBookingNeverStartsBrowser(t *testing.T) {
	fake := fakeportal.NewConsolidator(fakeportal.UA226("$410.00"))
	_, app := NewAppServer(t, TestConfig(t), bootstrap.WithDriver(fake))

	data := BookingFor(t, UA226Record(t))
	data.Flights.Segments = nil

	result := app.UseCase.Rebook(context.Background(), data)

	assert.Equal(t, domain.KindInvalidBooking, result.ErrorKind)
	assert.Zero(t, fake.Opens())
}

func TestUseCase_MockBookerReceivesConvertedBooking(t *testing.T) {
	booker := mock.NewBooker()
	uc := CreateUseCase(booker)

	result := uc.Rebook(context.Background(), BookingFor(t, FamilyRecord(t)))

	require.True(t, result.Success)
	require.Equal(t, 1, booker.CallCount())

	data := booker.Received()[0]
	assert.Equal(t, domain.TripRoundTrip, data.Flights.TripType)
	require.Len(t, data.Passengers, 3)
	assert.Equal(t, domain.PassengerChild, data.Passengers[1].Type)
	assert.Equal(t, domain.PassengerInfant, data.Passengers[2].Type)
	assert.True(t, data.Pricing.ExpectedNetPrice.Valid)
}
