// Package testutil provides test helper functions for unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
)

// LoadTestJSON loads a file from the test/testdata directory.
func LoadTestJSON(t *testing.T, filename string) []byte {
	t.Helper()

	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}

	// Navigate to project root (testutil is in test/testutil)
	projectRoot := filepath.Join(filepath.Dir(currentFile), "..", "..")
	testDataPath := filepath.Join(projectRoot, "test", "testdata", filename)

	data, err := os.ReadFile(testDataPath)
	if err != nil {
		t.Fatalf("Failed to load test file %s: %v", filename, err)
	}
	return data
}

// TestDataPath returns the absolute path of a file in test/testdata.
func TestDataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(currentFile), "..", "testdata", filename)
}

// MustParseDate parses a date string in YYYY-MM-DD format.
// It fails the test if parsing fails.
func MustParseDate(t *testing.T, dateStr string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		t.Fatalf("Failed to parse date %s: %v", dateStr, err)
	}
	return parsed
}

// MustDecimal parses a decimal literal, failing the test on error.
func MustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("Failed to parse decimal %s: %v", value, err)
	}
	return d
}

// Ptr returns a pointer to the given value.
// Useful for creating pointers to literals in tests.
func Ptr[T any](v T) *T {
	return &v
}

// UA226Booking returns a one-way single-adult booking of UA226 BOS-IAH departing
// 2025-03-10 07:05 in Economy.
func UA226Booking(customerPaid string) *domain.BookingData {
	return &domain.BookingData{
		BookingID:        "bk_1001",
		BookingReference: "FS-1001",
		Flights: domain.FlightPlan{
			TripType: domain.TripOneWay,
			Segments: []domain.Segment{{
				Leg:           0,
				AirlineCode:   "UA",
				FlightNumber:  "226",
				Origin:        "BOS",
				Destination:   "IAH",
				DepartureDate: "2025-03-10",
				DepartureTime: "07:05",
				ArrivalTime:   "10:24",
				Cabin:         "ECONOMY",
			}},
		},
		Passengers: []domain.Passenger{{
			Type:        domain.PassengerAdult,
			Title:       "Mr",
			Gender:      "MALE",
			FirstName:   "John",
			LastName:    "Doe",
			DateOfBirth: "1985-06-15",
			Nationality: "US",
			Email:       "john.doe@example.com",
			Phone:       "+15551234567",
		}},
		Fare: domain.Fare{
			Cabin:     "ECONOMY",
			FareClass: "Economy",
		},
		Pricing: domain.Pricing{
			CustomerPaid: decimal.RequireFromString(customerPaid),
			Currency:     "USD",
		},
		ContactEmail: "john.doe@example.com",
		ContactPhone: "+15551234567",
	}
}

// MemoryStore is an in-memory screenshot store.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
	names []string

	// Err fails every Save when set.
	Err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Save implements screenshot.Store.
func (s *MemoryStore) Save(_ context.Context, name string, png []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if _, exists := s.files[name]; exists {
		return "", fmt.Errorf("screenshot %s already stored", name)
	}
	s.files[name] = append([]byte(nil), png...)
	s.names = append(s.names, name)
	return "mem://" + name, nil
}

// Names lists stored names in save order.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// Content returns the stored bytes of name.
func (s *MemoryStore) Content(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}
