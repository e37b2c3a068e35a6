package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
	"github.com/flight-search/consolidator-rebooking/test/fakeportal"
	"github.com/flight-search/consolidator-rebooking/test/testutil"
)

const plainDetails = `<html><body>
	<input name="firstName"><input name="lastName"><select name="title"><option>Mr</option><option>Ms</option></select>
	<input name="firstName"><input name="lastName"><select name="title"><option>Mr</option><option>Ms</option></select>
	<input name="contactEmail"><input name="contactPhone">
	</body></html>`

func twoPassengers() *domain.BookingData {
	data := testutil.UA226Booking("450")
	data.Passengers = append(data.Passengers, domain.Passenger{
		Type: domain.PassengerAdult, Title: "Ms", FirstName: "Jane", LastName: "Roe",
	})
	return data
}

func TestPassengerFiller_PageScopePicksNthForm(t *testing.T) {
	p := fakeportal.NewPage()
	p.Show("details", plainDetails)
	filler := NewPassengerFiller(portal.DefaultCatalog(), logger.Nop())

	failures, err := filler.Fill(context.Background(), p, twoPassengers())
	require.NoError(t, err)

	var firstNames, titles []string
	for _, f := range p.Fills() {
		switch f.Field {
		case "firstName":
			firstNames = append(firstNames, f.Value)
		case "title":
			titles = append(titles, f.Value)
		}
	}
	assert.Equal(t, []string{"John", "Jane"}, firstNames)
	assert.Equal(t, []string{"Mr", "Ms"}, titles)

	email, _ := p.Value("contactEmail")
	assert.Equal(t, "john.doe@example.com", email)

	// gender, date of birth and nationality are not on this form
	fields := make(map[string]bool)
	for _, f := range failures {
		fields[f.Field] = true
		assert.False(t, f.Required)
	}
	assert.True(t, fields[FieldGender])
	assert.True(t, fields[FieldDateOfBirth])
	assert.True(t, fields[FieldNationality])
	assert.False(t, fields[FieldFirstName])
}

func TestPassengerFiller_ContainerScope(t *testing.T) {
	scenario := fakeportal.UA226("$410")
	scenario.MissingFields = []string{"firstName", "lastName"}
	c := fakeportal.NewConsolidator(scenario)
	// jump straight to the details screen of a two passenger booking
	c.Adults = 2
	c.Fare = "Economy"
	c.Page().Show("fares", `<html><body><button data-action="continue">Continue</button></body></html>`)
	el, err := c.Page().Query("button")
	require.NoError(t, err)
	require.NoError(t, el[0].Click())

	data := twoPassengers()
	data.Passengers[1].Passport = &domain.Passport{Number: "P1234567", ExpiryDate: "2030-01-31"}
	filler := NewPassengerFiller(portal.DefaultCatalog(), logger.Nop())

	failures, err := filler.Fill(context.Background(), c.Page(), data)
	require.NoError(t, err)

	page := c.Page()
	passport, _ := page.Value("passportNumber-1")
	expiry, _ := page.Value("passportExpiry-1")
	gender, _ := page.Value("gender-0")
	assert.Equal(t, "P1234567", passport)
	assert.Equal(t, "01/31/2030", expiry)
	assert.Equal(t, "M", gender)
	_, touched := page.Value("passportNumber-0")
	assert.False(t, touched, "passenger without passport")

	require.Len(t, failures, 4)
	for _, f := range failures {
		assert.True(t, f.Required, "%d %s", f.Passenger, f.Field)
		assert.Contains(t, []string{FieldFirstName, FieldLastName}, f.Field)
	}
}

func TestPassengerFiller_RequiredValueMissing(t *testing.T) {
	p := fakeportal.NewPage()
	p.Show("details", plainDetails)
	data := testutil.UA226Booking("450")
	data.Passengers[0].LastName = ""
	data.ContactEmail = ""
	data.Passengers[0].Email = ""

	failures, err := NewPassengerFiller(portal.DefaultCatalog(), logger.Nop()).Fill(context.Background(), p, data)
	require.NoError(t, err)

	var last *domain.FieldFailure
	for i := range failures {
		if failures[i].Field == FieldLastName {
			last = &failures[i]
		}
		assert.NotEqual(t, FieldContactEmail, failures[i].Field, "empty optional values are skipped")
	}
	require.NotNil(t, last)
	assert.Equal(t, "no value", last.Reason)
	assert.False(t, last.Required, "first name was filled")
}

func TestPassengerFiller_CancelledContext(t *testing.T) {
	p := fakeportal.NewPage()
	p.Show("details", plainDetails)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPassengerFiller(portal.DefaultCatalog(), logger.Nop()).Fill(ctx, p, twoPassengers())

	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.Empty(t, p.Fills())
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "United States", CountryName("US"))
	assert.Equal(t, "Indonesia", CountryName(" id "))
	assert.Equal(t, "XX", CountryName("XX"))
}

func TestGenderLabel(t *testing.T) {
	assert.Equal(t, "Male", genderLabel("MALE"))
	assert.Equal(t, "Female", genderLabel("f"))
	assert.Equal(t, "UNDISCLOSED", genderLabel("UNDISCLOSED"))
}
