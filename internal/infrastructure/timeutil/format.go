package timeutil

import (
	"strings"
	"time"
)

// Layouts used by the site booking record and the portal.
const (
	ISODate        = "2006-01-02"
	PortalDate     = "01/02/2006"
	ClockTime      = "15:04"
	ClockSeconds   = "15:04:05"
	localDateTime  = "2006-01-02T15:04:05"
	localDateMins  = "2006-01-02T15:04"
	screenshotTime = "20060102T150405.000"
)

// SplitDateTime splits a local ISO datetime ("2025-03-10T07:05:00") into
// its date ("2025-03-10") and clock ("07:05") parts.
// Offsets are ignored: departure times are always local to the airport.
// Unparseable input yields empty strings.
func SplitDateTime(value string) (date, clock string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	if len(value) > len(localDateTime) {
		// strip fractional seconds and offsets such as "Z" or "+07:00"
		value = value[:len(localDateTime)]
	}
	for _, layout := range []string{localDateTime, localDateMins} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ISODate), t.Format(ClockTime)
		}
	}
	if t, err := time.Parse(ISODate, value); err == nil {
		return t.Format(ISODate), ""
	}
	return "", ""
}

// ToPortalDate converts YYYY-MM-DD to the portal's MM/DD/YYYY.
// Values that are not ISO dates are returned unchanged.
func ToPortalDate(isoDate string) string {
	t, err := time.Parse(ISODate, strings.TrimSpace(isoDate))
	if err != nil {
		return isoDate
	}
	return t.Format(PortalDate)
}

// NormalizeClock reduces "07:05:00" or "7:05" to "07:05".
// Values that are not clock times are returned unchanged.
func NormalizeClock(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{ClockSeconds, ClockTime} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ClockTime)
		}
	}
	return value
}

// ScreenshotStamp formats t for use in audit file names.
func ScreenshotStamp(t time.Time) string {
	return t.UTC().Format(screenshotTime)
}
