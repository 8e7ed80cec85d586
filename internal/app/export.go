package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"ammowatch/internal/intel"
)

// ExportOptions hold parameters for exporting a product's price history.
type ExportOptions struct {
	ProductID string
	Days      int
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// Export renders a product's daily-best price series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.ProductID == "" {
		return errors.New("--product is required")
	}

	opts.MaxPoints = resolveMaxPoints(opts.MaxPoints, a.Config.Export.MaxDataPoints)
	days := opts.Days
	if days <= 0 {
		days = a.Config.Intel.LowestWindowDays
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	observations, err := store.ListVisibleObservations(ctx, []string{opts.ProductID}, from, now)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		a.Logger.Info().Str("product_id", opts.ProductID).Msg("no observations found for export window")
		return nil
	}

	obs := make([]intel.Observation, len(observations))
	for i, o := range observations {
		obs[i] = intel.Observation{
			ProductID:  o.ProductID,
			RetailerID: o.RetailerID,
			Price:      o.Price,
			InStock:    o.InStock,
			ObservedAt: o.ObservedAt,
		}
	}

	windows := intel.Windows{
		CurrentDays: a.Config.Intel.CurrentWindowDays,
		MedianDays:  days,
		LowestDays:  days,
	}
	stats := intel.Aggregate(opts.ProductID, obs, now, windows)
	series := downsampleBests(stats.DailyBests, opts.MaxPoints)

	a.Logger.Info().
		Str("product_id", opts.ProductID).
		Int("days_observed", len(stats.DailyBests)).
		Int("exported", len(series)).
		Msg("exporting daily best series")

	if opts.CSVPath != "" {
		if err := writeBestsCSV(opts.CSVPath, series); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBestsPNG(opts.PNGPath, opts.ProductID, series); err != nil {
			return err
		}
	}

	return nil
}

func resolveMaxPoints(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}

func downsampleBests(bests []intel.DailyBest, max int) []intel.DailyBest {
	if max <= 0 || len(bests) <= max {
		return bests
	}

	result := make([]intel.DailyBest, 0, max)
	step := float64(len(bests)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(bests) {
			idx = len(bests) - 1
		}
		result = append(result, bests[idx])
	}
	return result
}

func writeBestsCSV(path string, bests []intel.DailyBest) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"day", "best_price", "had_stock"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, best := range bests {
		price := ""
		hadStock := "false"
		if best.HadStock {
			price = best.Price.String()
			hadStock = "true"
		}
		record := []string{
			best.Day.Format("2006-01-02"),
			price,
			hadStock,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeBestsPNG(path, productID string, bests []intel.DailyBest) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(bests))
	prices := make([]float64, 0, len(bests))
	for _, best := range bests {
		if !best.HadStock {
			continue
		}
		x = append(x, best.Day)
		prices = append(prices, best.Price.InexactFloat64())
	}
	if len(x) == 0 {
		return errors.New("no in-stock days to chart")
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  "Daily best price: " + productID,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Best price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily best",
				XValues: x,
				YValues: prices,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
