package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustParseDate(t *testing.T) {
	tests := []struct {
		name      string
		dateStr   string
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		{
			name:      "valid date",
			dateStr:   "2025-12-15",
			wantYear:  2025,
			wantMonth: time.December,
			wantDay:   15,
		},
		{
			name:      "leap year date",
			dateStr:   "2024-02-29",
			wantYear:  2024,
			wantMonth: time.February,
			wantDay:   29,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MustParseDate(t, tt.dateStr)
			assert.Equal(t, tt.wantYear, result.Year())
			assert.Equal(t, tt.wantMonth, result.Month())
			assert.Equal(t, tt.wantDay, result.Day())
		})
	}
}

func TestUA226Booking(t *testing.T) {
	data := UA226Booking("450")

	require.NoError(t, data.Validate())
	assert.Equal(t, "UA226", data.TargetSegment().Designator())
	assert.Equal(t, "450", data.Pricing.CustomerPaid.String())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	ref, err := s.Save(context.Background(), "FS-1/a.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "mem://FS-1/a.png", ref)

	_, err = s.Save(context.Background(), "FS-1/a.png", []byte("png"))
	assert.Error(t, err, "names must be unique")

	content, ok := s.Content("FS-1/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), content)
	assert.Equal(t, []string{"FS-1/a.png"}, s.Names())

	s.Err = errors.New("bucket gone")
	_, err = s.Save(context.Background(), "FS-1/b.png", nil)
	assert.Error(t, err)
}

func TestPtr(t *testing.T) {
	p := Ptr(42)
	require.NotNil(t, p)
	assert.Equal(t, 42, *p)
}
