package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "scanrelay/pkg/metrics"

// Transport is an http.RoundTripper recording the count and latency of
// outbound requests by method and response status class.
type Transport struct {
	next     http.RoundTripper
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTransport wraps next, http.DefaultTransport when nil. A nil mp uses the
// global meter provider.
func NewTransport(next http.RoundTripper, mp metric.MeterProvider) (*Transport, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter("scanrelay.upstream.requests",
		metric.WithDescription("Number of upstream HTTP requests by method and status class."))
	if err != nil {
		return nil, fmt.Errorf("could not create upstream requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("scanrelay.upstream.duration",
		metric.WithDescription("Latency of upstream HTTP requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create upstream duration histogram: %w", err)
	}

	return &Transport{next: next, requests: requests, duration: duration}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := t.next.RoundTrip(r)

	class := "error"
	if err == nil {
		class = StatusClass(res.StatusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("status_class", class),
	)
	t.requests.Add(r.Context(), 1, attrs)
	t.duration.Record(r.Context(), time.Since(start).Seconds(), attrs)

	return res, err //nolint: wrapcheck
}

// StatusClass buckets a status code as "1xx" to "5xx".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}

	return strconv.Itoa(code/100) + "xx"
}
