package pinning

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("algomint.pinning")

var uploadBytes metric.Int64Histogram

func init() {
	var err error

	uploadBytes, err = meter.Int64Histogram(
		"algomint_pinning_upload_bytes",
		metric.WithDescription("Size of payloads sent to the pinning service"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 16<<10, 128<<10, 1<<20, 4<<20, 16<<20),
	)
	if err != nil {
		panic(err)
	}
}

func recordUpload(ctx context.Context, size int, mimeType string, err error) {
	uploadBytes.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("mimetype", mimeType),
		attribute.Bool("success", err == nil),
	))
}
