package mint

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/algomintai/algomint/internal/apperr"
)

var meter = otel.Meter("algomint.mint")

var mintTotal metric.Int64Counter

func init() {
	var err error

	mintTotal, err = meter.Int64Counter(
		"algomint_mint_total",
		metric.WithDescription("Mint attempts by outcome"),
		metric.WithUnit("{mint}"),
	)
	if err != nil {
		panic(err)
	}
}

func recordMint(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if k := apperr.Kind(err); k != nil {
			outcome = k.Error()
		}
	}
	mintTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
