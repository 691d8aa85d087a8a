package reminder

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestValidateTimes(t *testing.T) {
	tests := []struct {
		name    string
		times   []string
		wantErr bool
	}{
		{name: "valid pair", times: []string{"08:00", "20:00"}},
		{name: "midnight", times: []string{"00:00"}},
		{name: "last minute", times: []string{"23:59"}},
		{name: "empty", times: nil, wantErr: true},
		{name: "bad hour", times: []string{"24:00"}, wantErr: true},
		{name: "bad minute", times: []string{"08:60"}, wantErr: true},
		{name: "missing zero pad", times: []string{"8:00"}, wantErr: true},
		{name: "duplicate", times: []string{"08:00", "08:00"}, wantErr: true},
		{name: "garbage", times: []string{"morning"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimes(tt.times)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTimes(%v) error = %v, wantErr %v", tt.times, err, tt.wantErr)
			}
		})
	}
}

func TestDueSlots(t *testing.T) {
	times := []string{"08:00", "20:00"}

	tests := []struct {
		name      string
		tickStart time.Time
		now       time.Time
		want      []dueSlot
	}{
		{
			name:      "slot inside window",
			tickStart: date(2026, 3, 10, 7, 59),
			now:       date(2026, 3, 10, 8, 0),
			want:      []dueSlot{{Date: date(2026, 3, 10, 0, 0), Time: "08:00"}},
		},
		{
			name:      "no slot due",
			tickStart: date(2026, 3, 10, 9, 0),
			now:       date(2026, 3, 10, 9, 1),
			want:      nil,
		},
		{
			name:      "window start is exclusive",
			tickStart: date(2026, 3, 10, 8, 0),
			now:       date(2026, 3, 10, 8, 1),
			want:      nil,
		},
		{
			name:      "window end is inclusive",
			tickStart: date(2026, 3, 10, 19, 59),
			now:       date(2026, 3, 10, 20, 0),
			want:      []dueSlot{{Date: date(2026, 3, 10, 0, 0), Time: "20:00"}},
		},
		{
			name:      "wide window catches both",
			tickStart: date(2026, 3, 10, 7, 0),
			now:       date(2026, 3, 10, 21, 0),
			want: []dueSlot{
				{Date: date(2026, 3, 10, 0, 0), Time: "08:00"},
				{Date: date(2026, 3, 10, 0, 0), Time: "20:00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueSlots(times, tt.tickStart, tt.now)
			assertSlots(t, got, tt.want)
		})
	}
}

func TestDueSlots_MidnightWrap(t *testing.T) {
	// Window 23:59:00 -> 00:01:00 crosses the day boundary; a 00:00 slot
	// belongs to the new day.
	got := DueSlots([]string{"00:00", "23:59"},
		date(2026, 3, 10, 23, 58),
		date(2026, 3, 11, 0, 1))
	want := []dueSlot{
		{Date: date(2026, 3, 10, 0, 0), Time: "23:59"},
		{Date: date(2026, 3, 11, 0, 0), Time: "00:00"},
	}
	assertSlots(t, got, want)
}

func assertSlots(t *testing.T, got, want []dueSlot) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d slots %v", len(got), got, len(want), want)
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g.Time == w.Time && g.Date.Equal(w.Date) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing slot %s on %s in %v", w.Time, w.Date.Format("2006-01-02"), got)
		}
	}
}

func TestInDateRange(t *testing.T) {
	start := date(2026, 3, 1, 0, 0)
	end := date(2026, 3, 31, 0, 0)

	tests := []struct {
		name  string
		today time.Time
		want  bool
	}{
		{name: "inside", today: date(2026, 3, 15, 12, 30), want: true},
		{name: "on start date", today: date(2026, 3, 1, 0, 0), want: true},
		{name: "on end date late evening", today: date(2026, 3, 31, 23, 59), want: true},
		{name: "before", today: date(2026, 2, 28, 0, 0), want: false},
		{name: "after", today: date(2026, 4, 1, 0, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InDateRange(tt.today, start, end); got != tt.want {
				t.Errorf("InDateRange(%s) = %v, want %v", tt.today.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestSortTimes(t *testing.T) {
	in := []string{"20:00", "08:00", "12:30"}
	got := SortTimes(in)
	want := []string{"08:00", "12:30", "20:00"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortTimes() = %v, want %v", got, want)
		}
	}
	// original slice untouched
	if in[0] != "20:00" {
		t.Errorf("SortTimes mutated its input: %v", in)
	}
}
