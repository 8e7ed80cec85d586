package intel

import "time"

// StockRun is a maximal run of consecutive observed days sharing one
// hadStock value. Days without observations never appear in a run, so a
// run may span a calendar gap.
type StockRun struct {
	Start    time.Time
	End      time.Time
	Days     int
	HadStock bool
}

// StockRuns run-length-encodes the daily stock series. The input must be
// ascending by day, as produced by Aggregate.
func StockRuns(bests []DailyBest) []StockRun {
	runs := make([]StockRun, 0, 4)
	for _, b := range bests {
		if n := len(runs); n > 0 && runs[n-1].HadStock == b.HadStock {
			runs[n-1].End = b.Day
			runs[n-1].Days++
			continue
		}
		runs = append(runs, StockRun{Start: b.Day, End: b.Day, Days: 1, HadStock: b.HadStock})
	}
	return runs
}

// RecentlyRestocked reports whether the product came back in stock after
// an out-of-stock streak of at least minOutageDays observed days, with
// the restock landing within the last restockWindowDays. An outage that
// is still ongoing at the end of the series never qualifies; this
// detects transitions, not current state.
func RecentlyRestocked(bests []DailyBest, now time.Time, minOutageDays, restockWindowDays int) bool {
	runs := StockRuns(bests)
	restockCutoff := DayUTC(now).AddDate(0, 0, -restockWindowDays)

	for i, run := range runs {
		if run.HadStock || run.Days < minOutageDays {
			continue
		}
		// Look for an in-stock day strictly after the outage ends, inside
		// the restock window.
		for _, later := range runs[i+1:] {
			if !later.HadStock {
				continue
			}
			if later.End.After(restockCutoff) {
				return true
			}
		}
	}
	return false
}
