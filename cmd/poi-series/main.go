// Command poi-series builds the time series of a swath product at one point of
// interest and writes it as a text report plus a PNG scatter plot.
//
// Granules come from a local directory by default. With -search they are
// looked up in CMR and downloaded into that directory first.
//
// Usage:
//
//	go run ./cmd/poi-series \
//	  -lat 38.9072 -lon -77.0369 -site DC \
//	  -start 2024-08-01 -end 2024-08-03 \
//	  -dir ./granules -out ./out -html
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/rkm/swathpoint/internal/backend"
	"github.com/rkm/swathpoint/internal/cmr"
	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/granule"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/report"
	"github.com/rkm/swathpoint/internal/stac"
	"github.com/rkm/swathpoint/internal/swath"
)

type options struct {
	lat, lon   float64
	site       string
	start, end string
	dir        string
	product    string
	search     bool
	out        string
	html       bool
}

func main() {
	var o options
	lat := flag.String("lat", "", "latitude of the point of interest, degrees north")
	lon := flag.String("lon", "", "longitude of the point of interest, degrees east")
	flag.StringVar(&o.site, "site", "POI", "site name used in report titles and file names")
	flag.StringVar(&o.start, "start", "", "first day, YYYY-MM-DD (default today)")
	flag.StringVar(&o.end, "end", "", "last day, YYYY-MM-DD (default the start day)")
	flag.StringVar(&o.dir, "dir", "", "granule directory (default GRANULE_DIR)")
	flag.StringVar(&o.product, "product", "", "product ID (default PRODUCT)")
	flag.BoolVar(&o.search, "search", false, "search CMR and download matching granules")
	flag.StringVar(&o.out, "out", ".", "output directory")
	flag.BoolVar(&o.html, "html", false, "also write an interactive HTML chart")
	flag.Parse()

	if *lat == "" || *lon == "" {
		flag.Usage()
		os.Exit(2)
	}
	if _, err := fmt.Sscan(*lat, &o.lat); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -lat %q\n", *lat)
		os.Exit(2)
	}
	if _, err := fmt.Sscan(*lon, &o.lon); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -lon %q\n", *lon)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, clockwork.NewRealClock()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, clock clockwork.Clock) error {
	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))

	if o.dir == "" {
		o.dir = cfg.Query.GranuleDir
	}
	if o.product == "" {
		o.product = cfg.Query.Product
	}

	products, err := config.ResolveProducts(cfg.Query.ProductsDir)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	product := products.Get(o.product)
	if product == nil {
		return fmt.Errorf("%w: %q", backend.ErrUnknownProduct, o.product)
	}

	start, end, err := stac.DayWindow(o.start, o.end, clock.Now())
	if err != nil {
		return err
	}

	poi := swath.Point{Lon: o.lon, Lat: o.lat}
	q := swath.Query{
		POI:        poi,
		Site:       o.site,
		Start:      start,
		NoData:     cfg.Query.NoData,
		SortByTime: cfg.Query.SortByTime,
	}
	if product.MaxQuality != nil {
		q.Quality = swath.MaxQuality(*product.MaxQuality)
	}

	loader := granule.NewLoader(o.dir, nil, product.GeoFillOverride)
	loader.Reader = granule.JSONReader{
		GeoFillOverride: product.GeoFillOverride,
		ValueVariable:   product.ValueVariable,
		QualityVariable: product.QualityVariable,
	}

	var refs []swath.GranuleRef
	if o.search {
		client := cmr.NewClient(cfg.CMR.BaseURL, cfg.CMR.Provider, cfg.CMR.Timeout).WithLogger(logger)
		catalog := cmr.NewCatalog(client, products, cfg.Server.BaseURL, cfg.Query.MaxGranules, logger)
		result, err := catalog.Search(ctx, &backend.SearchParams{
			Product: product.ID,
			Point:   &poi,
			Start:   &start,
			End:     &end,
			Limit:   cfg.Query.MaxGranules,
		})
		if err != nil {
			return fmt.Errorf("granule search: %w", err)
		}
		for _, ref := range result.Refs {
			if !loader.Supports(ref.Link) {
				return fmt.Errorf("%w %q: %s granules must be extracted to documents first", granule.ErrUnsupportedFormat, granule.Format(ref.Link), product.ID)
			}
		}
		refs = result.Refs
		loader.Fetcher = cmr.NewDownloader(cfg.Earthdata).WithLogger(logger)
	} else {
		refs, err = granule.DirRefs(o.dir)
		if err != nil {
			return err
		}
		refs = granule.InWindow(refs, start, end)
	}
	logger.Info("collecting time series",
		"product", product.ID,
		"site", o.site,
		"granules", len(refs),
		"start", start,
		"end", end,
	)

	series, err := swath.NewAccumulator().
		WithObserver(observability.NewGranuleObserver(logger, nil)).
		Stream(ctx, refs, loader, q)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	base := filepath.Join(o.out, report.FileName(product.ValueLabel, start, end, o.site, poi))

	if err := writeText(base, product.ValueLabel, series); err != nil {
		return err
	}

	chart := report.ChartOptions{
		Label:     product.ValueLabel,
		AxisLabel: product.Plot.Label,
		Start:     start,
		End:       end,
		YMin:      product.Plot.YMin,
		YMax:      product.Plot.YMax,
	}
	png := trimExt(base) + ".png"
	if err := report.SavePlot(png, series, chart); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	fmt.Println(png)

	if o.html {
		path := trimExt(base) + ".html"
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := report.RenderHTML(f, series, chart); err != nil {
			f.Close()
			return fmt.Errorf("render chart: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println(path)
	}

	summarize(series)
	return nil
}

func writeText(path, label string, s *swath.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteText(f, label, s); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// summarize prints one line per granule outcome kind.
func summarize(s *swath.Series) {
	counts := make(map[swath.Outcome]int)
	for _, out := range s.Outcomes {
		counts[out.Outcome]++
	}
	fmt.Printf("%d samples from %d granules\n", len(s.Samples), len(s.Outcomes))
	for o := swath.Recorded; o <= swath.NoUsableValue; o++ {
		if n := counts[o]; n > 0 {
			fmt.Printf("  %-20s %d\n", o, n)
		}
	}
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
