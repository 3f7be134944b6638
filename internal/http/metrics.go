package http

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("algomint.http")

var (
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	rateLimited     metric.Int64Counter
)

func init() {
	var err error

	requestCounter, err = meter.Int64Counter(
		"algomint_http_requests_total",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		panic(err)
	}

	requestDuration, err = meter.Float64Histogram(
		"algomint_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(err)
	}

	rateLimited, err = meter.Int64Counter(
		"algomint_http_rate_limited_total",
		metric.WithDescription("Requests rejected by the per-client rate limit"),
	)
	if err != nil {
		panic(err)
	}
}

func recordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	requestCounter.Add(ctx, 1, attrs)
	requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}
