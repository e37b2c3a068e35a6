package sitebooking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

func loadRecord(t *testing.T, name string) Record {
	t.Helper()
	r, err := ParseRecord(testutil.LoadTestJSON(t, name))
	require.NoError(t, err)
	return r
}

func TestConvert_OneWay(t *testing.T) {
	got := Convert(loadRecord(t, "site_booking_ua226.json"))
	want := *testutil.UA226Booking("450.00")

	assert.True(t, want.Pricing.CustomerPaid.Equal(got.Pricing.CustomerPaid))
	assert.False(t, got.Pricing.ExpectedNetPrice.Valid)
	got.Pricing.CustomerPaid = want.Pricing.CustomerPaid

	assert.Equal(t, want, got)
	assert.NoError(t, got.Validate())
}

func TestConvert_Deterministic(t *testing.T) {
	r := loadRecord(t, "site_booking_roundtrip_family.json")

	first := Convert(r)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Convert(r))
	}
}

func TestConvert_RoundTripFamily(t *testing.T) {
	got := Convert(loadRecord(t, "site_booking_roundtrip_family.json"))

	t.Run("segments", func(t *testing.T) {
		assert.Equal(t, domain.TripRoundTrip, got.Flights.TripType)
		require.Len(t, got.Flights.Segments, 3)

		target := got.TargetSegment()
		assert.Equal(t, "UA1500", target.Designator())
		assert.Equal(t, "SFO", target.Origin)
		assert.Equal(t, "DEN", target.Destination)
		assert.Equal(t, "2025-06-01", target.DepartureDate)
		assert.Equal(t, "09:15", target.DepartureTime)
		assert.Equal(t, "12:40", target.ArrivalTime)

		assert.Equal(t, 0, got.Flights.Segments[1].Leg)
		ret, ok := got.ReturnSegment()
		require.True(t, ok)
		assert.Equal(t, "227", ret.FlightNumber)
		assert.Equal(t, "PREMIUM_ECONOMY", ret.Cabin)
	})

	t.Run("passengers", func(t *testing.T) {
		require.Len(t, got.Passengers, 3)

		adult := got.Passengers[0]
		assert.Equal(t, domain.PassengerAdult, adult.Type)
		assert.Equal(t, "Ms", adult.Title)
		assert.Equal(t, "Jane", adult.FirstName)
		assert.Equal(t, "Q", adult.MiddleName)
		assert.Equal(t, "GB", adult.Nationality)
		require.NotNil(t, adult.Passport)
		assert.Equal(t, "P1234567", adult.Passport.Number)
		assert.Equal(t, "GB", adult.Passport.IssuingCountry)

		child := got.Passengers[1]
		assert.Equal(t, domain.PassengerChild, child.Type)
		assert.Equal(t, "Mstr", child.Title)
		assert.Equal(t, DefaultNationality, child.Nationality)
		assert.Nil(t, child.Passport)

		infant := got.Passengers[2]
		assert.Equal(t, domain.PassengerInfant, infant.Type)
		assert.Equal(t, "Miss", infant.Title)

		adults, children, infants := got.PassengerCounts()
		assert.Equal(t, []int{1, 1, 1}, []int{adults, children, infants})
	})

	t.Run("fare and pricing", func(t *testing.T) {
		assert.Equal(t, domain.FareEconomyPlus, got.Fare.FareClass)
		assert.Equal(t, "ECOFLEX", got.Fare.BrandedFare)
		assert.True(t, got.Fare.BagsIncluded)
		assert.Equal(t, 2, got.Fare.BagCount)

		assert.Equal(t, "1290.4", got.Pricing.CustomerPaid.String())
		require.True(t, got.Pricing.ExpectedNetPrice.Valid)
		assert.Equal(t, "1180", got.Pricing.ExpectedNetPrice.Decimal.String())
	})

	t.Run("contact", func(t *testing.T) {
		email, phone := got.Contact()
		assert.Equal(t, "jane@example.com", email)
		assert.Equal(t, "+447700900123", phone)
	})
}

func TestConvert_TripType(t *testing.T) {
	tests := []struct {
		name        string
		itineraries int
		want        domain.TripType
	}{
		{name: "no itineraries", itineraries: 0, want: domain.TripOneWay},
		{name: "one", itineraries: 1, want: domain.TripOneWay},
		{name: "two", itineraries: 2, want: domain.TripRoundTrip},
		{name: "three", itineraries: 3, want: domain.TripMultiCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Offer: Offer{Itineraries: make([]Itinerary, tt.itineraries)}}
			assert.Equal(t, tt.want, Convert(r).Flights.TripType)
		})
	}
}

func TestConvert_Fare(t *testing.T) {
	tests := []struct {
		name      string
		detail    FareDetail
		wantClass string
		wantBags  bool
		wantCount int
	}{
		{
			name:      "basic economy without bags",
			detail:    FareDetail{Cabin: "ECONOMY", BrandedFare: "BASIC"},
			wantClass: domain.FareBasicEconomy,
		},
		{
			name:      "included checked bags",
			detail:    FareDetail{Cabin: "ECONOMY", IncludedCheckedBags: &CheckedBags{Quantity: 1}},
			wantClass: domain.FareEconomy,
			wantBags:  true,
			wantCount: 1,
		},
		{
			name:      "zero quantity is not included",
			detail:    FareDetail{Cabin: "BUSINESS", IncludedCheckedBags: &CheckedBags{Quantity: 0}},
			wantClass: domain.FareBusiness,
		},
		{
			name: "free baggage amenity",
			detail: FareDetail{Cabin: "FIRST", Amenities: []FareAmenity{
				{Description: "SEAT SELECTION", AmenityType: "PRE_RESERVED_SEAT", IsChargeable: false},
				{Description: "FIRST BAG", AmenityType: "BAGGAGE", IsChargeable: false},
			}},
			wantClass: domain.FareFirst,
			wantBags:  true,
			wantCount: 1,
		},
		{
			name: "chargeable baggage amenity",
			detail: FareDetail{Cabin: "ECONOMY", Amenities: []FareAmenity{
				{Description: "FIRST BAG", AmenityType: "BAGGAGE", IsChargeable: true},
			}},
			wantClass: domain.FareEconomy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Offer: Offer{TravelerPricings: []TravelerPricing{{
				TravelerID:           "1",
				FareDetailsBySegment: []FareDetail{tt.detail},
			}}}}

			fare := Convert(r).Fare

			assert.Equal(t, tt.wantClass, fare.FareClass)
			assert.Equal(t, tt.wantBags, fare.BagsIncluded)
			assert.Equal(t, tt.wantCount, fare.BagCount)
		})
	}
}

func TestConvert_Defaults(t *testing.T) {
	r := Record{
		ID: "bk_9",
		Travelers: []Traveler{
			{ID: "1", Name: TravelerName{FirstName: "Sam", LastName: "Lee"}},
			{ID: "2", Gender: "FEMALE", Documents: []Document{{DocumentType: "PASSPORT"}}},
		},
	}

	got := Convert(r)

	require.Len(t, got.Passengers, 2)
	for _, p := range got.Passengers {
		assert.Equal(t, domain.PassengerAdult, p.Type)
		assert.Equal(t, DefaultNationality, p.Nationality)
		assert.Nil(t, p.Passport)
	}
	assert.Equal(t, DefaultTitle, got.Passengers[0].Title)
	assert.Equal(t, "Ms", got.Passengers[1].Title)
	assert.Equal(t, domain.FareEconomy, got.Fare.FareClass)
	assert.Empty(t, got.Flights.Segments)
	assert.ErrorIs(t, got.Validate(), domain.ErrInvalidBooking)
}

func TestParseRecord_Invalid(t *testing.T) {
	_, err := ParseRecord([]byte(`{"id": 12`))
	assert.Error(t, err)
}
