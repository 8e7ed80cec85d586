package intel

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// stockSeries builds one DailyBest per rune: 'o' = out of stock,
// 'i' = in stock, '.' = no observation that day (no entry).
func stockSeries(t *testing.T, start string, pattern string) []DailyBest {
	t.Helper()
	base := day(t, start)
	bests := make([]DailyBest, 0, len(pattern))
	for i, c := range pattern {
		switch c {
		case '.':
			continue
		case 'o':
			bests = append(bests, DailyBest{Day: base.AddDate(0, 0, i), HadStock: false})
		case 'i':
			bests = append(bests, DailyBest{Day: base.AddDate(0, 0, i), Price: decimal.NewFromInt(10), HadStock: true})
		default:
			t.Fatalf("unknown pattern rune %q", c)
		}
	}
	return bests
}

func TestStockRunsEncodesMaximalRuns(t *testing.T) {
	bests := stockSeries(t, "2026-08-01", "iioooii")
	runs := StockRuns(bests)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].HadStock != true || runs[0].Days != 2 {
		t.Fatalf("unexpected first run: %+v", runs[0])
	}
	if runs[1].HadStock != false || runs[1].Days != 3 {
		t.Fatalf("unexpected middle run: %+v", runs[1])
	}
	if runs[2].HadStock != true || runs[2].Days != 2 {
		t.Fatalf("unexpected last run: %+v", runs[2])
	}
}

func TestStockRunsSkipUnobservedDays(t *testing.T) {
	// Two out-of-stock days separated by an unobserved day still form
	// one run of 2 observed days, not 3.
	bests := stockSeries(t, "2026-08-01", "o.o")
	runs := StockRuns(bests)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Days != 2 {
		t.Fatalf("unobserved days must not pad runs: got %d days", runs[0].Days)
	}
}

func TestRecentlyRestockedSevenDayBoundary(t *testing.T) {
	now := day(t, "2026-08-10").Add(20 * time.Hour)

	// Exactly 6 OOS days then restock: never qualifies.
	six := stockSeries(t, "2026-08-01", "ooooooii")
	if RecentlyRestocked(six, now, 7, 7) {
		t.Fatal("a 6-day outage must not qualify")
	}

	// Exactly 7 OOS days then restock within the window: qualifies.
	seven := stockSeries(t, "2026-08-01", "oooooooii")
	if !RecentlyRestocked(seven, now, 7, 7) {
		t.Fatal("a 7-day outage with a recent restock must qualify")
	}
}

func TestRecentlyRestockedScenarioTenDayWindow(t *testing.T) {
	// OOS on days 1-8, in stock on days 9-10, evaluated at day 10.
	now := day(t, "2026-08-10").Add(20 * time.Hour)
	bests := stockSeries(t, "2026-08-01", "ooooooooii")
	if !RecentlyRestocked(bests, now, 7, 7) {
		t.Fatal("8-day outage followed by a restock within 7 days must qualify")
	}
}

func TestRecentlyRestockedOngoingOutageNeverQualifies(t *testing.T) {
	now := day(t, "2026-08-10").Add(20 * time.Hour)
	bests := stockSeries(t, "2026-08-01", "oooooooooo")
	if RecentlyRestocked(bests, now, 7, 7) {
		t.Fatal("an outage that never ends within the window must not qualify")
	}
}

func TestRecentlyRestockedStaleRestockOutsideWindow(t *testing.T) {
	// Outage and restock both long ago: the restock day falls outside
	// the last 7 days.
	now := day(t, "2026-08-30").Add(20 * time.Hour)
	bests := stockSeries(t, "2026-08-01", "oooooooi")
	if RecentlyRestocked(bests, now, 7, 7) {
		t.Fatal("a restock older than the window must not qualify")
	}
}

func TestRecentlyRestockedEmptySeries(t *testing.T) {
	if RecentlyRestocked(nil, time.Now().UTC(), 7, 7) {
		t.Fatal("empty series must not qualify")
	}
}
