package assets

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/algomintai/algomint/internal/apperr"
)

var meter = otel.Meter("algomint.assets")

var (
	listingSize  metric.Int64Histogram
	destroyTotal metric.Int64Counter
)

func init() {
	var err error

	listingSize, err = meter.Int64Histogram(
		"algomint_assets_listing_size",
		metric.WithDescription("Assets returned per inventory listing"),
		metric.WithUnit("{asset}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		panic(err)
	}

	destroyTotal, err = meter.Int64Counter(
		"algomint_assets_destroy_total",
		metric.WithDescription("Destroy attempts by outcome"),
		metric.WithUnit("{destroy}"),
	)
	if err != nil {
		panic(err)
	}
}

func recordListing(ctx context.Context, n int, err error) {
	listingSize.Record(ctx, int64(n), metric.WithAttributes(attribute.Bool("success", err == nil)))
}

func recordDestroy(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if k := apperr.Kind(err); k != nil {
			outcome = k.Error()
		}
	}
	destroyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
