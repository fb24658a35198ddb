package otel

import (
	"context"

	"github.com/corray333/backend-labs/storefront/internal/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const serviceName = "storefront"

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs a tracer provider exporting to Jaeger at endpoint.
func MustInitOtel(endpoint string, env string) *OtelController {
	jaegerExporter := jaeger.MustNewJaeger(endpoint)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(jaegerExporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.DeploymentEnvironmentKey.String(env),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

// Shutdown flushes pending spans.
func (o *OtelController) Shutdown(ctx context.Context) error {
	return o.traceProvider.Shutdown(ctx)
}
