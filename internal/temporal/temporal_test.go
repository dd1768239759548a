package temporal

import (
	"testing"
)

// TestInstantInvariantAcrossZones covers §8's timestamptz invariance
// scenario: an Instant decoded from the wire and then rendered through
// different local zones must always resolve back to the same instant,
// independent of which zone the caller happens to view it in. Zone matrix
// supplemented from pgjdbc's TimezoneTest (UTC, a DST zone, and a zone with
// a historical sub-minute offset).
func TestInstantInvariantAcrossZones(t *testing.T) {
	in, err := ParseInstant("2019-07-15 12:00:00.000000+00:00:00")
	if err != nil {
		t.Fatalf("ParseInstant: %v", err)
	}

	zones := []string{"UTC", "America/New_York", "Europe/Paris"}
	for _, name := range zones {
		loc, err := LoadZone(name)
		if err != nil {
			t.Fatalf("LoadZone(%q): %v", name, err)
		}
		local := in.Local(loc)
		back := local.In(loc)
		if !back.Time.Equal(in.Time) {
			t.Errorf("zone %s: round trip %v != original %v", name, back.Time, in.Time)
		}
	}
}

// TestInstantHistoricalOffset exercises Europe/Paris before its 1911
// standardization, when the zone sat at a sub-minute offset from UTC
// (+00:09:21) that only a real zoneinfo database, not a fixed numeric
// offset, can reproduce.
func TestInstantHistoricalOffset(t *testing.T) {
	loc, err := LoadZone("Europe/Paris")
	if err != nil {
		t.Fatalf("LoadZone: %v", err)
	}

	in, err := ParseInstant("1900-01-01 00:00:00.000000+00:00:00")
	if err != nil {
		t.Fatalf("ParseInstant: %v", err)
	}

	local := in.Local(loc)
	back := local.In(loc)
	if !back.Time.Equal(in.Time) {
		t.Errorf("historical offset round trip %v != original %v", back.Time, in.Time)
	}
}

func TestInstantTextRoundTrip(t *testing.T) {
	want := "2019-07-15 12:30:45.123456+00:00:00"
	in, err := ParseInstant(want)
	if err != nil {
		t.Fatalf("ParseInstant: %v", err)
	}
	if got := FormatInstant(in); got != want {
		t.Errorf("FormatInstant round trip = %q, want %q", got, want)
	}
}

func TestInstantBinaryRoundTrip(t *testing.T) {
	in, err := ParseInstant("2019-07-15 12:30:45.123456+00:00:00")
	if err != nil {
		t.Fatalf("ParseInstant: %v", err)
	}
	micros := EncodeInstantBinary(in)
	back := DecodeInstantBinary(micros)
	if !back.Time.Equal(in.Time) {
		t.Errorf("binary round trip %v != original %v", back.Time, in.Time)
	}
}

func TestLocalTimestampRoundTrip(t *testing.T) {
	want := "2019-07-15 12:30:45.123456"
	l, err := ParseLocalTimestamp(want)
	if err != nil {
		t.Fatalf("ParseLocalTimestamp: %v", err)
	}
	if got := FormatLocalTimestamp(l); got != want {
		t.Errorf("FormatLocalTimestamp round trip = %q, want %q", got, want)
	}
}

func TestParseInstantSpecialValues(t *testing.T) {
	infinity, err := ParseInstant("infinity")
	if err != nil {
		t.Fatalf("ParseInstant(infinity): %v", err)
	}
	negInfinity, err := ParseInstant("-infinity")
	if err != nil {
		t.Fatalf("ParseInstant(-infinity): %v", err)
	}
	if !infinity.Time.After(negInfinity.Time) {
		t.Errorf("expected infinity after -infinity, got %v <= %v", infinity.Time, negInfinity.Time)
	}
}

func TestDateBinaryRoundTrip(t *testing.T) {
	l, err := ParseDate("2019-07-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	days := EncodeDateBinary(l)
	back := DecodeDateBinary(days)
	if FormatDate(back) != "2019-07-15" {
		t.Errorf("date binary round trip = %q, want 2019-07-15", FormatDate(back))
	}
}

func TestLoadZoneUnknown(t *testing.T) {
	if _, err := LoadZone("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone, got nil")
	}
}
