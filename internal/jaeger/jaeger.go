package jaeger

import (
	"context"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

// MustInit wires the global tracer provider to a jaeger collector and
// returns a shutdown func that flushes buffered spans.
func MustInit() func(ctx context.Context) error {
	endpoint := viper.GetString("jaeger.endpoint")
	if endpoint == "" {
		endpoint = "http://jaeger:14268/api/traces"
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		panic(err)
	}

	tp := tracesdk.NewTracerProvider(tracesdk.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	return tp.Shutdown
}
