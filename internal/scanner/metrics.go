package scanner

import (
	"context"
	"fmt"
	"scanrelay/pkg/domain"
	"scanrelay/pkg/metrics"
	"scanrelay/pkg/serrors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scanMetrics groups the instruments recorded for every Scan call.
type scanMetrics struct {
	scans        metric.Int64Counter
	duration     metric.Float64Histogram
	pollAttempts metric.Int64Histogram
}

func newScanMetrics(meter metric.Meter) (*scanMetrics, error) {
	scans, err := meter.Int64Counter("scanrelay.scans",
		metric.WithDescription("Number of scan requests by outcome and result source."))
	if err != nil {
		return nil, fmt.Errorf("could not create scans counter: %w", err)
	}

	duration, err := meter.Float64Histogram("scanrelay.scan.duration",
		metric.WithDescription("Wall-clock duration of a scan including poll waits."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create scan duration histogram: %w", err)
	}

	pollAttempts, err := meter.Int64Histogram("scanrelay.scan.poll_attempts",
		metric.WithDescription("Number of analysis reads issued per scan."),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 10))
	if err != nil {
		return nil, fmt.Errorf("could not create poll attempts histogram: %w", err)
	}

	return &scanMetrics{
		scans:        scans,
		duration:     duration,
		pollAttempts: pollAttempts,
	}, nil
}

// record counts one finished scan. Failed scans are labeled with their
// semantic error kind, successful ones with the stage that produced them.
func (m *scanMetrics) record(ctx context.Context, res *domain.ScanResult, err error, took time.Duration) {
	outcome := "ok"
	source := "none"
	if err != nil {
		outcome = strings.ToLower(serrors.KindOf(err).Error())
	} else if res != nil {
		source = string(res.Source)
	}

	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	)
	m.scans.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}

func (m *scanMetrics) recordAttempts(ctx context.Context, attempts int) {
	m.pollAttempts.Record(ctx, int64(attempts))
}
