package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Logical field names reported in field failures.
const (
	FieldTitle          = "title"
	FieldGender         = "gender"
	FieldFirstName      = "first_name"
	FieldMiddleName     = "middle_name"
	FieldLastName       = "last_name"
	FieldDateOfBirth    = "date_of_birth"
	FieldNationality    = "nationality"
	FieldPassportNumber = "passport_number"
	FieldPassportExpiry = "passport_expiry"
	FieldContactEmail   = "email"
	FieldContactPhone   = "phone"
)

// ContactPassenger is the passenger index used for contact field failures.
const ContactPassenger = -1

var errNoValue = errors.New("no value")

type formField struct {
	name     string
	locator  string
	value    string
	choice   bool
	required bool
}

// PassengerFiller types passenger and contact details into the booking form.
type PassengerFiller struct {
	catalog *portal.Catalog
	log     *logger.Logger
}

// NewPassengerFiller creates a PassengerFiller.
func NewPassengerFiller(catalog *portal.Catalog, log *logger.Logger) *PassengerFiller {
	return &PassengerFiller{catalog: catalog, log: log}
}

// Fill fills every passenger and the contact block. A field that cannot be filled is
// recorded and skipped; only a cancelled context stops the step.
func (f *PassengerFiller) Fill(ctx context.Context, page portal.Page, data *domain.BookingData) ([]domain.FieldFailure, error) {
	var failures []domain.FieldFailure

	for i, p := range data.Passengers {
		if err := ctx.Err(); err != nil {
			return failures, domain.NewStepError(StepPassengers, domain.ErrFieldFill, err)
		}
		scope, nth := f.passengerScope(page, i)
		failures = append(failures, f.fillPassenger(scope, nth, i, p)...)
	}

	email, phone := data.Contact()
	contact := []formField{
		{name: FieldContactEmail, locator: portal.ContactEmail, value: email},
		{name: FieldContactPhone, locator: portal.ContactPhone, value: phone},
	}
	for _, field := range contact {
		if ff, failed := f.fillField(page, 0, ContactPassenger, field); failed {
			failures = append(failures, ff)
		}
	}

	if len(failures) > 0 {
		f.log.Warn().Int("field_failures", len(failures)).Msg("Some passenger fields could not be filled")
	}
	return failures, nil
}

// passengerScope narrows lookups to the form of passenger i. Without an indexed container
// or a repeated form wrapper the i-th match on the page is used.
func (f *PassengerFiller) passengerScope(page portal.Page, i int) (portal.Scope, int) {
	index := strconv.Itoa(i)
	container := f.catalog.Locator(portal.PassengerContainer).With(map[string]string{"index": index})
	if el, err := container.Resolve(page); err == nil {
		return el, 0
	}
	if el, err := f.catalog.Locator(portal.PassengerForm).ResolveNth(page, i); err == nil {
		return el, 0
	}
	return page, i
}

func (f *PassengerFiller) fillPassenger(scope portal.Scope, nth, index int, p domain.Passenger) []domain.FieldFailure {
	fields := []formField{
		{name: FieldTitle, locator: portal.PassengerTitle, value: p.Title, choice: true},
		{name: FieldGender, locator: portal.PassengerGender, value: genderLabel(p.Gender), choice: true},
		{name: FieldFirstName, locator: portal.FirstName, value: p.FirstName, required: true},
		{name: FieldMiddleName, locator: portal.MiddleName, value: p.MiddleName},
		{name: FieldLastName, locator: portal.LastName, value: p.LastName, required: true},
		{name: FieldDateOfBirth, locator: portal.DateOfBirth, value: timeutil.ToPortalDate(p.DateOfBirth)},
		{name: FieldNationality, locator: portal.Nationality, value: CountryName(p.Nationality), choice: true},
	}
	if p.Passport != nil {
		fields = append(fields,
			formField{name: FieldPassportNumber, locator: portal.PassportNumber, value: p.Passport.Number},
			formField{name: FieldPassportExpiry, locator: portal.PassportExpiry, value: timeutil.ToPortalDate(p.Passport.ExpiryDate)},
		)
	}

	var failures []domain.FieldFailure
	requiredFailed := 0
	for _, field := range fields {
		ff, failed := f.fillField(scope, nth, index, field)
		if !failed {
			continue
		}
		if field.required {
			requiredFailed++
		}
		failures = append(failures, ff)
	}

	// A passenger without any name on the form cannot be ticketed.
	if requiredFailed == 2 {
		for i := range failures {
			if failures[i].Field == FieldFirstName || failures[i].Field == FieldLastName {
				failures[i].Required = true
			}
		}
	}
	return failures
}

// fillField reports a failure when the field could not be filled. Empty optional values
// are skipped.
func (f *PassengerFiller) fillField(scope portal.Scope, nth, index int, field formField) (domain.FieldFailure, bool) {
	value := strings.TrimSpace(field.value)
	if value == "" {
		if !field.required {
			return domain.FieldFailure{}, false
		}
		return f.failure(index, field, errNoValue), true
	}

	el, err := f.catalog.Locator(field.locator).ResolveNth(scope, nth)
	if err != nil {
		return f.failure(index, field, err), true
	}

	if field.choice {
		err = f.choose(scope, el, value)
	} else {
		err = el.Fill(value)
	}
	if err != nil {
		return f.failure(index, field, err), true
	}
	return domain.FieldFailure{}, false
}

// choose sets a drop-down. Portals that render the choice as radio buttons or a
// free-text input are handled by clicking the option label or typing the value.
func (f *PassengerFiller) choose(scope portal.Scope, el portal.Element, value string) error {
	err := el.Select(value)
	if err == nil {
		return nil
	}
	if options, _ := scope.ByLabel(value, true); len(options) > 0 {
		if clickErr := options[0].Click(); clickErr == nil {
			return nil
		}
	}
	if fillErr := el.Fill(value); fillErr == nil {
		return nil
	}
	return err
}

func (f *PassengerFiller) failure(index int, field formField, err error) domain.FieldFailure {
	ff := domain.FieldFailure{
		Passenger: index,
		Field:     field.name,
		Reason:    err.Error(),
	}
	f.log.Warn().Err(ff).Int("passenger", index).Str("field", field.name).Msg("Field not filled")
	return ff
}

func genderLabel(gender string) string {
	switch strings.ToUpper(strings.TrimSpace(gender)) {
	case "MALE", "M":
		return "Male"
	case "FEMALE", "F":
		return "Female"
	default:
		return gender
	}
}

// describeFailures renders field failures for log lines.
func describeFailures(failures []domain.FieldFailure) string {
	parts := make([]string, 0, len(failures))
	for _, ff := range failures {
		parts = append(parts, fmt.Sprintf("%d:%s", ff.Passenger, ff.Field))
	}
	return strings.Join(parts, ",")
}
