package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLengthBand(t *testing.T) {
	t.Run("BandOf Boundaries", func(t *testing.T) {
		tc := []struct {
			d    time.Duration
			want LengthBand
		}{
			{0, Short},
			{5*time.Minute - time.Millisecond, Short},
			{5 * time.Minute, Medium},
			{20*time.Minute - time.Millisecond, Medium},
			{20 * time.Minute, Long},
			{3 * time.Hour, Long},
		}
		for _, tt := range tc {
			if got := BandOf(tt.d); got != tt.want {
				t.Errorf("BandOf(%v) = %v, want %v", tt.d, got, tt.want)
			}
		}
	})

	t.Run("ParseLengthBand", func(t *testing.T) {
		tc := map[string]LengthBand{"": AllLengths, "all": AllLengths, "Short": Short, "MEDIUM": Medium, " long ": Long}
		for in, want := range tc {
			got, err := ParseLengthBand(in)
			if err != nil {
				t.Fatalf("ParseLengthBand(%q) error = %v", in, err)
			}
			if got != want {
				t.Errorf("ParseLengthBand(%q) = %v, want %v", in, got, want)
			}
		}

		if _, err := ParseLengthBand("tiny"); err == nil {
			t.Error("expected error for unknown band")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(Filters{Length: Long, Scope: "2023"})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `{"length":"long","scope":"2023"}` {
			t.Errorf("unexpected encoding %s", data)
		}
	})
}

func TestMonthKey(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	tc := []struct {
		name string
		at   time.Time
		want string
	}{
		{"utc", time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC), "2023-06"},
		{"offset crosses month", time.Date(2023, 12, 31, 22, 0, 0, 0, est), "2024-01"},
		{"single digit year", time.Date(987, 3, 1, 0, 0, 0, 0, time.UTC), "0987-03"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthOf(tt.at).String(); got != tt.want {
				t.Errorf("MonthOf() = %s, want %s", got, tt.want)
			}
		})
	}

	if !(MonthKey{2023, time.December}).Before(MonthKey{2024, time.January}) {
		t.Error("December 2023 should sort before January 2024")
	}
}

func TestDateInterval(t *testing.T) {
	d := DateInterval{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	if !d.Contains(d.Start) {
		t.Error("start should be included")
	}
	if d.Contains(d.End) {
		t.Error("end should be excluded")
	}

	plus2 := time.FixedZone("UTC+2", 2*60*60)
	if d.Contains(time.Date(2024, 3, 1, 1, 0, 0, 0, plus2)) != true {
		t.Error("2024-03-01T01:00+02:00 is 2024-02-29T23:00Z and should be included")
	}

	if d.Days() != 29 {
		t.Errorf("expected 29 days in February 2024, got %d", d.Days())
	}
	if d.String() != "[2024-02-01, 2024-03-01)" {
		t.Errorf("unexpected String() %s", d.String())
	}
}

func TestSyncRun(t *testing.T) {
	report := NewRunReport("run-1", Filters{}, time.Now())
	run := NewSyncRun(1, report)

	if err := run.Validate(); err != nil {
		t.Fatalf("expected valid run, got %v", err)
	}
	if run.Status() != RunRunning {
		t.Errorf("expected running, got %s", run.Status())
	}

	run.Complete(&RunReport{StartedAt: report.StartedAt, MembershipsAdded: 3})
	if run.Status() != RunCompleted || run.Report().ID != "run-1" || run.Report().MembershipsAdded != 3 {
		t.Errorf("unexpected completed run: %s %+v", run.Status(), run.Report())
	}

	run.SetStatus("bogus", "")
	if err := run.Validate(); err == nil {
		t.Error("expected validation error for unknown status")
	}
}
