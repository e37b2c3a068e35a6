package sitebooking

import (
	"strings"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
)

// Defaults applied when the record leaves a passenger field empty.
const (
	DefaultTitle       = "Mr"
	DefaultNationality = "US"
)

// Convert maps a booking record to BookingData. It never fails: missing values become
// empty strings or defaults, and BookingData.Validate decides whether a run can start.
// The same record always produces the same BookingData.
func Convert(r Record) domain.BookingData {
	fares := fareIndex(r.Offer.TravelerPricings)

	data := domain.BookingData{
		BookingID:        r.ID,
		BookingReference: r.Reference,
		Flights: domain.FlightPlan{
			TripType: tripType(len(r.Offer.Itineraries)),
			Segments: convertSegments(r.Offer.Itineraries, fares),
		},
		Passengers: convertTravelers(r.Travelers, r.Offer.TravelerPricings),
		Fare:       convertFare(r.Offer.TravelerPricings),
		Pricing: domain.Pricing{
			CustomerPaid:     r.Payment.AmountPaid,
			ExpectedNetPrice: r.Payment.ExpectedNetPrice,
			Currency:         strings.ToUpper(r.Payment.Currency),
		},
		ContactEmail: r.Contact.Email,
		ContactPhone: r.Contact.Phone,
	}
	return data
}

func tripType(itineraries int) domain.TripType {
	switch {
	case itineraries <= 1:
		return domain.TripOneWay
	case itineraries == 2:
		return domain.TripRoundTrip
	default:
		return domain.TripMultiCity
	}
}

// fareIndex returns the fare detail of each segment ID, taken from the first traveler
// that prices it.
func fareIndex(pricings []TravelerPricing) map[string]FareDetail {
	index := make(map[string]FareDetail)
	for _, tp := range pricings {
		for _, fd := range tp.FareDetailsBySegment {
			if _, ok := index[fd.SegmentID]; !ok && fd.SegmentID != "" {
				index[fd.SegmentID] = fd
			}
		}
	}
	return index
}

func convertSegments(itineraries []Itinerary, fares map[string]FareDetail) []domain.Segment {
	var out []domain.Segment
	for leg, it := range itineraries {
		for _, s := range it.Segments {
			depDate, depTime := timeutil.SplitDateTime(s.Departure.At)
			_, arrTime := timeutil.SplitDateTime(s.Arrival.At)
			out = append(out, domain.Segment{
				Leg:           leg,
				AirlineCode:   strings.ToUpper(strings.TrimSpace(s.CarrierCode)),
				FlightNumber:  strings.TrimSpace(s.Number),
				Origin:        strings.ToUpper(s.Departure.IataCode),
				Destination:   strings.ToUpper(s.Arrival.IataCode),
				DepartureDate: depDate,
				DepartureTime: depTime,
				ArrivalTime:   arrTime,
				Cabin:         strings.ToUpper(fares[s.ID].Cabin),
			})
		}
	}
	return out
}

func convertTravelers(travelers []Traveler, pricings []TravelerPricing) []domain.Passenger {
	types := make(map[string]string, len(pricings))
	for _, tp := range pricings {
		types[tp.TravelerID] = tp.TravelerType
	}

	out := make([]domain.Passenger, 0, len(travelers))
	for _, t := range travelers {
		ptype := passengerType(types[t.ID])
		gender := strings.ToUpper(strings.TrimSpace(t.Gender))
		p := domain.Passenger{
			Type:        ptype,
			Title:       title(gender, ptype),
			Gender:      gender,
			FirstName:   strings.TrimSpace(t.Name.FirstName),
			MiddleName:  strings.TrimSpace(t.Name.MiddleName),
			LastName:    strings.TrimSpace(t.Name.LastName),
			DateOfBirth: t.DateOfBirth,
			Nationality: DefaultNationality,
		}

		if doc, ok := passport(t.Documents); ok {
			if doc.Nationality != "" {
				p.Nationality = strings.ToUpper(doc.Nationality)
			}
			if doc.Number != "" {
				p.Passport = &domain.Passport{
					Number:         doc.Number,
					ExpiryDate:     doc.ExpiryDate,
					IssuingCountry: strings.ToUpper(doc.IssuanceCountry),
				}
			}
		}

		if t.Contact != nil {
			p.Email = t.Contact.EmailAddress
			if len(t.Contact.Phones) > 0 {
				p.Phone = formatPhone(t.Contact.Phones[0])
			}
		}
		out = append(out, p)
	}
	return out
}

func passengerType(travelerType string) domain.PassengerType {
	switch strings.ToUpper(travelerType) {
	case "CHILD":
		return domain.PassengerChild
	case "HELD_INFANT", "SEATED_INFANT", "INFANT":
		return domain.PassengerInfant
	default:
		return domain.PassengerAdult
	}
}

// title picks the salutation portals expect for the gender and age category.
func title(gender string, ptype domain.PassengerType) string {
	minor := ptype == domain.PassengerChild || ptype == domain.PassengerInfant
	switch {
	case gender == "FEMALE" && minor:
		return "Miss"
	case gender == "FEMALE":
		return "Ms"
	case gender == "MALE" && minor:
		return "Mstr"
	default:
		return DefaultTitle
	}
}

// passport returns the holder's passport, or the first document when none is marked.
func passport(docs []Document) (Document, bool) {
	if len(docs) == 0 {
		return Document{}, false
	}
	for _, d := range docs {
		if strings.EqualFold(d.DocumentType, "PASSPORT") && d.Holder {
			return d, true
		}
	}
	for _, d := range docs {
		if strings.EqualFold(d.DocumentType, "PASSPORT") {
			return d, true
		}
	}
	return docs[0], true
}

func formatPhone(p Phone) string {
	number := strings.TrimSpace(p.Number)
	if number == "" {
		return ""
	}
	if code := strings.TrimPrefix(strings.TrimSpace(p.CountryCallingCode), "+"); code != "" {
		return "+" + code + number
	}
	return number
}

// convertFare reads the fare of the first priced segment, which is the target segment.
func convertFare(pricings []TravelerPricing) domain.Fare {
	if len(pricings) == 0 || len(pricings[0].FareDetailsBySegment) == 0 {
		return domain.Fare{FareClass: domain.FareLabel("", "")}
	}
	fd := pricings[0].FareDetailsBySegment[0]

	fare := domain.Fare{
		Cabin:       strings.ToUpper(fd.Cabin),
		FareClass:   domain.FareLabel(fd.Cabin, fd.BrandedFare),
		BrandedFare: fd.BrandedFare,
	}
	if fd.IncludedCheckedBags != nil && fd.IncludedCheckedBags.Quantity > 0 {
		fare.BagsIncluded = true
		fare.BagCount = fd.IncludedCheckedBags.Quantity
	}
	if !fare.BagsIncluded && hasFreeBaggage(fd.Amenities) {
		fare.BagsIncluded = true
		fare.BagCount = 1
	}
	return fare
}

func hasFreeBaggage(amenities []FareAmenity) bool {
	for _, a := range amenities {
		if strings.EqualFold(a.AmenityType, "BAGGAGE") && !a.IsChargeable {
			return true
		}
	}
	return false
}
