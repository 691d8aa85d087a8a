package adherence

import (
	"math"
	"time"

	"github.com/sehatline/sehat_backend/internal/model"
)

// Compute derives the adherence rate from a set of ledger rows. It returns
// nil when there are no rows: a patient with no scheduled doses has
// undefined adherence, not 0% and not 100%.
func Compute(records []model.AdherenceRecord) *float64 {
	if len(records) == 0 {
		return nil
	}
	taken := 0
	for _, r := range records {
		if r.Taken {
			taken++
		}
	}
	rate := round2(100 * float64(taken) / float64(len(records)))
	return &rate
}

// WindowStart returns the first day of a trailing window that ends today,
// so a 7-day window covers today and the 6 days before it.
func WindowStart(today time.Time, windowDays int) time.Time {
	return DateOnly(today).AddDate(0, 0, -(windowDays - 1))
}

// InWindow reports whether a taken_date falls inside the trailing window.
func InWindow(takenDate, today time.Time, windowDays int) bool {
	d := DateOnly(takenDate)
	return !d.Before(WindowStart(today, windowDays)) && !d.After(DateOnly(today))
}

// DateOnly truncates a timestamp to its calendar day in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
