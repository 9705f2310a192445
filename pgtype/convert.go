package pgtype

import (
	"fmt"
	"strconv"
	"time"
)

// TemporalConverter turns Go time values into the server's text
// representation and back. ISO-date/timestamp/interval string conversion
// is treated as an out-of-scope collaborator the core merely calls into;
// DefaultTemporalConverter is the default implementation the codec falls
// back to, but any caller can install its own by assigning
// pgtype.Converter before encoding or decoding.
type TemporalConverter interface {
	EncodeDate(t time.Time) string
	DecodeDate(s string) (time.Time, error)

	EncodeTimestamp(t time.Time) string
	DecodeTimestamp(s string) (time.Time, error)

	EncodeSpan(d time.Duration) string
	DecodeSpan(s string) (time.Duration, error)
}

// Converter is the TemporalConverter the codec uses. It defaults to
// DefaultTemporalConverter{} and may be swapped by a caller that wants a
// different date/timestamp/interval string representation.
var Converter TemporalConverter = DefaultTemporalConverter{}

type DefaultTemporalConverter struct{}

const pdateFormat = "2006-01-02"
const ptimestampFormat = "2006-01-02 15:04:05.999999999Z07:00"

func (DefaultTemporalConverter) EncodeDate(t time.Time) string {
	return t.UTC().Format(pdateFormat)
}

func (DefaultTemporalConverter) DecodeDate(s string) (time.Time, error) {
	return time.ParseInLocation(pdateFormat, s, time.UTC)
}

func (DefaultTemporalConverter) EncodeTimestamp(t time.Time) string {
	return t.UTC().Format(ptimestampFormat)
}

func (DefaultTemporalConverter) DecodeTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999Z07:00:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("pgtype: cannot parse timestamp %q", s)
}

// EncodeSpan renders d in Postgres's "D days HH:MM:SS.ffffff" interval
// text form. Months are never produced by a Go time.Duration, which has
// no calendar concept, so the months component is always omitted.
func (DefaultTemporalConverter) EncodeSpan(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	days := int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := float64(d) / float64(time.Second)

	sign := ""
	if neg {
		sign = "-"
	}
	if days != 0 {
		return fmt.Sprintf("%s%d days %s%02d:%02d:%09.6f", sign, days, sign, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%02d:%02d:%09.6f", sign, hours, minutes, seconds)
}

// DecodeSpan parses the "[D days] [-]HH:MM:SS[.ffffff]" interval text
// form. It does not understand a "months"/"years" component: intervals
// carrying one do not round-trip through time.Duration and decoding
// fails with DecodeRejected at the call site instead of silently
// truncating.
func (DefaultTemporalConverter) DecodeSpan(s string) (time.Duration, error) {
	days, hms, hasDays := splitDaysPrefix(s)
	if !hasDays {
		hms = s
	}

	neg := false
	if len(hms) > 0 && hms[0] == '-' {
		neg = true
		hms = hms[1:]
	}

	var h, m int
	var sec float64
	if _, err := fmt.Sscanf(hms, "%d:%d:%f", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("pgtype: cannot parse interval %q: %w", s, err)
	}

	total := time.Duration(days) * 24 * time.Hour
	total += time.Duration(h) * time.Hour
	total += time.Duration(m) * time.Minute
	total += time.Duration(sec * float64(time.Second))
	if neg {
		total = -total
	}
	return total, nil
}

func splitDaysPrefix(s string) (days int64, rest string, ok bool) {
	const marker = " days "
	for i := 0; i+len(marker) <= len(s); i++ {
		if s[i:i+len(marker)] == marker {
			d, err := strconv.ParseInt(s[:i], 10, 64)
			if err != nil {
				return 0, s, false
			}
			return d, s[i+len(marker):], true
		}
	}
	return 0, s, false
}
