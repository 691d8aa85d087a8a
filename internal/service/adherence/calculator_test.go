package adherence

import (
	"testing"
	"time"

	"github.com/sehatline/sehat_backend/internal/model"
)

func day(offset int) time.Time {
	base := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func records(taken, missed int) []model.AdherenceRecord {
	var out []model.AdherenceRecord
	for i := 0; i < taken; i++ {
		out = append(out, model.AdherenceRecord{TakenDate: day(-i), Taken: true})
	}
	for i := 0; i < missed; i++ {
		out = append(out, model.AdherenceRecord{TakenDate: day(-taken - i), Taken: false})
	}
	return out
}

func TestCompute_NoRecordsIsUndefined(t *testing.T) {
	if got := Compute(nil); got != nil {
		t.Errorf("Compute(nil) = %v, want nil", *got)
	}
	if got := Compute([]model.AdherenceRecord{}); got != nil {
		t.Errorf("Compute(empty) = %v, want nil", *got)
	}
}

func TestCompute_Rates(t *testing.T) {
	tests := []struct {
		name   string
		taken  int
		missed int
		want   float64
	}{
		{"all taken", 7, 0, 100},
		{"none taken", 0, 7, 0},
		{"five of seven", 5, 2, 71.43},
		{"one of three", 1, 2, 33.33},
		{"two of three", 2, 1, 66.67},
		{"half", 15, 15, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(records(tt.taken, tt.missed))
			if got == nil {
				t.Fatal("Compute returned nil for non-empty records")
			}
			if *got != tt.want {
				t.Errorf("Compute(%d taken, %d missed) = %v, want %v", tt.taken, tt.missed, *got, tt.want)
			}
		})
	}
}

func TestWindowStart_CoversTodayInclusive(t *testing.T) {
	today := time.Date(2026, 8, 31, 14, 5, 0, 0, time.UTC)
	start := WindowStart(today, 7)
	want := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("WindowStart = %v, want %v", start, want)
	}
}

func TestInWindow(t *testing.T) {
	today := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"today", day(0), true},
		{"window edge", day(-6), true},
		{"one before window", day(-7), false},
		{"tomorrow", day(1), false},
		{"timestamp within today", time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InWindow(tt.date, today, 7); got != tt.want {
				t.Errorf("InWindow(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}
