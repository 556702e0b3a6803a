package scanner

import (
	"context"
	"errors"
	"fmt"
	"scanrelay/internal/config"
	"scanrelay/pkg/domain"
	"scanrelay/pkg/logger"
	"scanrelay/pkg/serrors"
	"scanrelay/pkg/threatscan"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultPollAttempts is used when Options.PollAttempts is not positive.
	DefaultPollAttempts = 5
	// DefaultPollInterval is used when Options.PollInterval is not positive.
	DefaultPollInterval = 2 * time.Second

	tracerName = "scanrelay/internal/scanner"
)

// Messages attached to the errors returned by Scan.
const (
	MsgURLRequired       = "URL is required"
	MsgAPIKeyMissing     = "API key is not configured"
	MsgNoAnalysisResults = "Failed to get analysis results"
)

// errNotCompleted marks a poll attempt that succeeded but found the analysis
// still running. It never leaves this package.
var errNotCompleted = errors.New("analysis not completed")

// Options configure the upstream workflow. These settings are typically
// derived from application configuration.
type Options struct {
	// APIKey is only checked for presence; an empty key fails every scan
	// before any upstream call is made.
	APIKey string
	// PollAttempts is the maximum number of analysis reads.
	PollAttempts int
	// PollInterval is the fixed wait between two analysis reads.
	PollInterval time.Duration

	// MeterProvider and TracerProvider default to the otel globals.
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		APIKey:       cfg.VirusTotal.APIKey,
		PollAttempts: cfg.Scanner.PollAttempts,
		PollInterval: cfg.Scanner.PollInterval,
	}
}

// scanner is the concrete implementation of the Scanner interface.
type scanner struct {
	options Options
	client  threatscan.Client
	tracer  trace.Tracer
	metrics *scanMetrics
}

// Scan submits URL, polls the analysis until it completes or the attempts
// run out, and falls back to the cached URL report in the latter case. When
// the report is unavailable too, the last non-completed analysis is returned.
//
// ctx bounds the whole workflow: cancelling it aborts in-flight upstream
// calls and poll waits.
func (s *scanner) Scan(ctx context.Context, URL string) (res *domain.ScanResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "Scan")
	defer func() {
		s.metrics.record(ctx, res, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if URL == "" {
		return nil, serrors.With(serrors.ErrBadRequest, MsgURLRequired)
	}
	if s.options.APIKey == "" {
		return nil, serrors.With(serrors.ErrMisconfigured, MsgAPIKeyMissing)
	}

	span.SetAttributes(attribute.String("url.full", URL))
	ctx = logger.WithFields(ctx, zap.String("URL", URL))
	logger.Info(ctx, "scanning URL")

	submitted, err := s.client.SubmitURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("could not submit URL: %w", err)
	}
	span.SetAttributes(attribute.String("scanrelay.analysis_id", submitted.ID))
	ctx = logger.WithFields(ctx, zap.String("analysisID", submitted.ID))
	logger.Info(ctx, "URL submitted")

	last, attempts, err := s.poll(ctx, submitted.ID)
	if err != nil {
		return nil, err
	}

	if last.Completed() {
		logger.Info(ctx, "analysis completed", zap.Int("attempts", attempts))

		return &domain.ScanResult{
			Payload:    last.Raw,
			Source:     domain.ResultSourceCompleted,
			Attempts:   attempts,
			AnalysisID: submitted.ID,
		}, nil
	}

	res, err = s.fallback(ctx, URL, last)
	if res != nil {
		res.Attempts = attempts
		res.AnalysisID = submitted.ID
	}

	return res, err
}

// poll reads the analysis at a fixed interval until it completes or the
// attempts are used up. A failed read is retried like a non-completed one,
// except on the last attempt where its error is returned.
// The returned analysis is the last successful read, nil if there was none.
func (s *scanner) poll(ctx context.Context, analysisID string) (*threatscan.Analysis, int, error) {
	ctx, span := s.tracer.Start(ctx, "PollAnalysis")
	defer span.End()

	var (
		last     *threatscan.Analysis
		attempts int
	)

	backoff := retry.WithMaxRetries(
		uint64(s.options.PollAttempts-1), //nolint: gosec
		retry.NewConstant(s.options.PollInterval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		ctx = logger.WithFields(ctx, zap.Int("attempt", attempts))
		logger.Debug(ctx, "fetching analysis")

		a, err := s.client.Analysis(ctx, analysisID)
		if err != nil {
			logger.Warn(ctx, "could not fetch analysis", zap.Error(err))

			return retry.RetryableError(err)
		}
		if a == nil {
			return retry.RetryableError(errNotCompleted)
		}

		last = a
		logger.Info(ctx, "analysis status", zap.String("status", string(a.Status)))
		if a.Completed() {
			return nil
		}

		return retry.RetryableError(errNotCompleted)
	})
	span.SetAttributes(attribute.Int("scanrelay.poll_attempts", attempts))
	s.metrics.recordAttempts(ctx, attempts)

	switch {
	case err == nil, errors.Is(err, errNotCompleted):
		return last, attempts, nil
	case ctx.Err() != nil:
		return nil, attempts, serrors.Wrap(serrors.ErrTimeout, err, "polling analysis aborted")
	default:
		span.RecordError(err)

		return nil, attempts, fmt.Errorf("could not poll analysis: %w", err)
	}
}

// fallback looks up the cached URL report once polling gave up. The last
// non-completed analysis, when there is one, is kept as a degraded result.
func (s *scanner) fallback(ctx context.Context, URL string, last *threatscan.Analysis) (*domain.ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "URLReport")
	defer span.End()

	logger.Info(ctx, "analysis did not complete in time, trying direct URL lookup")

	report, err := s.client.URLReport(ctx, URL)
	if err == nil {
		return &domain.ScanResult{Payload: report, Source: domain.ResultSourceFallback}, nil
	}

	span.RecordError(err)
	logger.Error(ctx, "could not get URL report", zap.Error(err))

	if last != nil {
		logger.Warn(ctx, "returning last non-completed analysis", zap.String("status", string(last.Status)))

		return &domain.ScanResult{Payload: last.Raw, Source: domain.ResultSourceStale}, nil
	}

	return nil, serrors.With(serrors.ErrUnavailable, MsgNoAnalysisResults)
}

// New constructs a Scanner backed by the given threat scanning client.
func New(client threatscan.Client, options Options) (Scanner, error) {
	if options.PollAttempts < 1 {
		options.PollAttempts = DefaultPollAttempts
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.MeterProvider == nil {
		options.MeterProvider = otel.GetMeterProvider()
	}
	if options.TracerProvider == nil {
		options.TracerProvider = otel.GetTracerProvider()
	}

	m, err := newScanMetrics(options.MeterProvider.Meter(tracerName))
	if err != nil {
		return nil, err
	}

	return &scanner{
		options: options,
		client:  client,
		tracer:  options.TracerProvider.Tracer(tracerName),
		metrics: m,
	}, nil
}
