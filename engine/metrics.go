package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cwbudde/algo-rack/engine"

type metrics struct {
	transitions  metric.Int64Counter
	unitLoads    metric.Int64Counter
	paramMisses  metric.Int64Counter
	resumeDenied metric.Int64Counter
	notes        metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	var (
		m   metrics
		err error
	)

	if m.transitions, err = meter.Int64Counter("rack.engine.transitions",
		metric.WithDescription("Graph state transitions")); err != nil {
		return nil, err
	}
	if m.unitLoads, err = meter.Int64Counter("rack.engine.unit_loads",
		metric.WithDescription("Unit instantiations by result")); err != nil {
		return nil, err
	}
	if m.paramMisses, err = meter.Int64Counter("rack.engine.param_misses",
		metric.WithDescription("Parameter updates for unknown ids")); err != nil {
		return nil, err
	}
	if m.resumeDenied, err = meter.Int64Counter("rack.engine.resume_denied",
		metric.WithDescription("Device resume attempts refused")); err != nil {
		return nil, err
	}
	if m.notes, err = meter.Int64Counter("rack.engine.notes",
		metric.WithDescription("Note triggers sent to instruments")); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metrics) transition(from, to State) {
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String())))
}

func (m *metrics) unitLoad(runtime string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.unitLoads.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("runtime", runtime),
		attribute.String("result", result)))
}
