// Package temporal converts between PostgreSQL's date/time wire
// representations and Go's time.Time, keeping a strict line between an
// absolute instant (timestamptz) and a local wallclock reading
// (timestamp/date/time) that only becomes an instant once paired with a
// caller-supplied zone.
package temporal

import (
	"fmt"
	"time"
)

const (
	dateFormat        = "2006-01-02"
	timeFormat        = "15:04:05.999999999"
	timeTZFormat      = "15:04:05.999999999Z07:00:00"
	timestampFormat   = "2006-01-02 15:04:05.999999999"
	timestamptzFormat = "2006-01-02 15:04:05.999999999Z07:00:00"
)

// pgEpoch is PostgreSQL's own epoch for binary timestamp encoding: midnight
// UTC, 2000-01-01, rather than the Unix epoch.
var pgEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Instant is an absolute point in time, decoded from a timestamptz column.
// It carries no notion of "which wall clock" produced it (two Instants
// representing the same moment compare equal regardless of what zone the
// server happened to render them in).
type Instant struct {
	time.Time
}

// LocalTime is a wallclock reading with no attached zone, decoded from a
// timestamp, date, or time column. It must be paired with a zone (via
// In) before it can be compared to an Instant or converted to one.
type LocalTime struct {
	time.Time
}

// In interprets l against loc, producing the Instant that wallclock reading
// denotes in that zone. loc should usually come from time.LoadLocation with
// a real IANA zone name, since a fixed numeric offset cannot reproduce the
// sub-minute historical offsets (e.g. Europe/Paris before 1911 sat at
// +00:09:21) that a real zoneinfo database records.
func (l LocalTime) In(loc *time.Location) Instant {
	t := l.Time
	return Instant{time.Date(
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		loc,
	)}
}

// Local materializes i as a wallclock reading in loc, the inverse of
// LocalTime.In. Used to render a timestamptz value for display in a
// specific zone without losing the fact that, as an Instant, it has none of
// its own.
func (i Instant) Local(loc *time.Location) LocalTime {
	t := i.Time.In(loc)
	return LocalTime{time.Date(
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.UTC,
	)}
}

// ParseInstant parses a timestamptz text value. PostgreSQL always renders
// timestamptz with an explicit zone offset, so the result is a genuine
// instant independent of any IANA lookup.
func ParseInstant(s string) (Instant, error) {
	if t, ok, err := parseSpecial(s); ok {
		return Instant{t}, err
	}
	t, err := time.Parse(timestamptzFormat, s)
	if err != nil {
		return Instant{}, fmt.Errorf("pgwire: invalid timestamptz %q: %w", s, err)
	}
	return Instant{t}, nil
}

// FormatInstant renders i in PostgreSQL's timestamptz text format, always
// in UTC (the zone a client renders an instant in for transmission doesn't
// matter, since the server reduces it back to an instant either way; UTC
// keeps the wire bytes deterministic). The offset is always written
// numerically ("+00:00:00"), never as "Z".
func FormatInstant(i Instant) string {
	return i.Time.UTC().Format("2006-01-02 15:04:05.999999999-07:00:00")
}

// ParseLocalTimestamp parses a timestamp (without time zone) text value
// into a bare wallclock reading.
func ParseLocalTimestamp(s string) (LocalTime, error) {
	if t, ok, err := parseSpecial(s); ok {
		return LocalTime{t}, err
	}
	t, err := time.ParseInLocation(timestampFormat, s, time.UTC)
	if err != nil {
		return LocalTime{}, fmt.Errorf("pgwire: invalid timestamp %q: %w", s, err)
	}
	return LocalTime{t}, nil
}

func FormatLocalTimestamp(l LocalTime) string {
	return l.Time.Format(timestampFormat)
}

// ParseDate parses a date value into a wallclock reading at midnight.
func ParseDate(s string) (LocalTime, error) {
	if t, ok, err := parseSpecial(s); ok {
		return LocalTime{t}, err
	}
	t, err := time.ParseInLocation(dateFormat, s, time.UTC)
	if err != nil {
		return LocalTime{}, fmt.Errorf("pgwire: invalid date %q: %w", s, err)
	}
	return LocalTime{t}, nil
}

func FormatDate(l LocalTime) string {
	return l.Time.Format(dateFormat)
}

// ParseLocalClockTime parses a time-of-day (without time zone) value. The
// date components are pinned to the Go zero date; only H:M:S.ns are
// meaningful.
func ParseLocalClockTime(s string) (LocalTime, error) {
	t, err := time.ParseInLocation(timeFormat, s, time.UTC)
	if err != nil {
		return LocalTime{}, fmt.Errorf("pgwire: invalid time %q: %w", s, err)
	}
	return LocalTime{t}, nil
}

func FormatLocalClockTime(l LocalTime) string {
	return l.Time.Format(timeFormat)
}

// ParseOffsetClockTime parses a timetz value: time-of-day plus a fixed UTC
// offset (timetz never carries a named zone, only an offset, per PostgreSQL).
func ParseOffsetClockTime(s string) (Instant, error) {
	t, err := time.Parse(timeTZFormat, s)
	if err != nil {
		return Instant{}, fmt.Errorf("pgwire: invalid timetz %q: %w", s, err)
	}
	return Instant{t}, nil
}

func FormatOffsetClockTime(i Instant) string {
	return i.Time.Format(timeTZFormat)
}

func parseSpecial(s string) (time.Time, bool, error) {
	switch s {
	case "infinity":
		return time.Unix(1<<62, 0), true, nil
	case "-infinity":
		return time.Unix(-(1 << 62), 0), true, nil
	case "epoch":
		return time.Unix(0, 0).UTC(), true, nil
	default:
		return time.Time{}, false, nil
	}
}

// --- binary format ---
//
// PostgreSQL's binary timestamp/timestamptz is a single int64 of
// microseconds since 2000-01-01 00:00:00 (UTC for timestamptz, local
// wallclock for timestamp). date is an int32 of days since 2000-01-01.
// time/timetz binary is an int64 of microseconds since midnight, timetz
// followed by an int32 zone offset in seconds west of UTC (UTC-05:00 is
// +18000). The timetz codec in internal/types negates that field on decode
// and on encode, so DecodeOffsetClockTimeBinary and
// EncodeOffsetClockTimeBinary work in Go's time.FixedZone(name, secEast)
// convention.

func DecodeInstantBinary(micros int64) Instant {
	return Instant{pgEpoch.Add(time.Duration(micros) * time.Microsecond)}
}

func EncodeInstantBinary(i Instant) int64 {
	return int64(i.Time.UTC().Sub(pgEpoch) / time.Microsecond)
}

func DecodeLocalTimestampBinary(micros int64) LocalTime {
	return LocalTime{pgEpoch.Add(time.Duration(micros) * time.Microsecond)}
}

func EncodeLocalTimestampBinary(l LocalTime) int64 {
	return int64(l.Time.Sub(pgEpoch) / time.Microsecond)
}

func DecodeDateBinary(days int32) LocalTime {
	return LocalTime{pgEpoch.AddDate(0, 0, int(days))}
}

func EncodeDateBinary(l LocalTime) int32 {
	return int32(l.Time.Sub(pgEpoch).Hours() / 24)
}

func DecodeClockTimeBinary(micros int64) LocalTime {
	return LocalTime{time.Unix(0, 0).UTC().Add(time.Duration(micros) * time.Microsecond)}
}

func EncodeClockTimeBinary(l LocalTime) int64 {
	midnight := time.Date(l.Time.Year(), l.Time.Month(), l.Time.Day(), 0, 0, 0, 0, l.Time.Location())
	return int64(l.Time.Sub(midnight) / time.Microsecond)
}

func DecodeOffsetClockTimeBinary(micros int64, zoneOffsetSec int32) Instant {
	loc := time.FixedZone("", int(zoneOffsetSec))
	t := time.Unix(0, 0).In(loc).Add(time.Duration(micros) * time.Microsecond)
	return Instant{t}
}

func EncodeOffsetClockTimeBinary(i Instant) (micros int64, zoneOffsetSec int32) {
	_, offset := i.Time.Zone()
	midnight := time.Date(i.Time.Year(), i.Time.Month(), i.Time.Day(), 0, 0, 0, 0, i.Time.Location())
	return int64(i.Time.Sub(midnight) / time.Microsecond), int32(offset)
}

// LoadZone looks up a real IANA zone by name (e.g. "Europe/Paris"). Driver
// callers must use this rather than a fixed-offset time.FixedZone whenever
// sub-minute historical offsets or DST transitions matter, since only the
// system (or embedded, via the time/tzdata side-effect import) zoneinfo
// database carries those.
func LoadZone(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}
