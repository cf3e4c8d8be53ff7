package handler

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/order-management/internal/handler"

type metrics struct {
	ordersCreated    metric.Int64Counter
	invoicesComputed metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	var (
		m   metrics
		err error
	)
	if m.ordersCreated, err = meter.Int64Counter("oms.orders.created",
		metric.WithDescription("Number of orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	if m.invoicesComputed, err = meter.Int64Counter("oms.invoices.computed",
		metric.WithDescription("Number of invoices computed"),
	); err != nil {
		return nil, errors.Wrap(err, "invoices computed counter")
	}
	return &m, nil
}
