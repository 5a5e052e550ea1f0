package observability

import (
	"context"
	"log/slog"

	"github.com/rkm/swathpoint/internal/swath"
)

// GranuleObserver logs and counts the outcome of every granule a query processes.
// Skipped granules are routine and log at debug level; only unreadable
// granules are worth a warning.
type GranuleObserver struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewGranuleObserver creates a GranuleObserver. metrics may be nil.
func NewGranuleObserver(logger *slog.Logger, metrics *Metrics) *GranuleObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &GranuleObserver{logger: logger, metrics: metrics}
}

// ObserveGranule implements swath.Observer.
func (o *GranuleObserver) ObserveGranule(ctx context.Context, q swath.Query, out swath.GranuleOutcome) {
	if o.metrics != nil {
		o.metrics.GranuleOutcomes.WithLabelValues(out.Outcome.String()).Inc()
		if out.Outcome == swath.Recorded {
			o.metrics.SamplesRecorded.Inc()
		}
	}

	attrs := []any{
		slog.String("granule", out.GranuleID),
		slog.String("outcome", out.Outcome.String()),
		slog.String("site", q.Site),
	}
	if out.Cell != nil {
		attrs = append(attrs, slog.Int("row", out.Cell.Row), slog.Int("col", out.Cell.Col))
	}
	if out.Method != "" {
		attrs = append(attrs, slog.String("method", string(out.Method)))
	}

	switch out.Outcome {
	case swath.GranuleUnreadable:
		o.logger.WarnContext(ctx, "granule unreadable", append(attrs, slog.Any("error", out.Err))...)
	case swath.Recorded:
		o.logger.DebugContext(ctx, "sample recorded", attrs...)
	default:
		o.logger.DebugContext(ctx, "granule skipped", attrs...)
	}
}
