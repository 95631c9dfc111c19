package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReceiptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "po_receipts_total",
		Help: "Total number of successful purchase-order receipts",
	})

	ReceiptsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_receipts_failed_total",
		Help: "Total number of failed purchase-order receipts",
	}, []string{"reason"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_orders_created_total",
		Help: "Total number of purchase orders created",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_orders_cancelled_total",
		Help: "Total number of purchase orders cancelled",
	})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_orders_delivered_total",
		Help: "Total number of purchase orders fully received",
	})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Total number of stock quantity movements",
	}, []string{"type"})

	StockMovementsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_failed_total",
		Help: "Total number of rejected stock quantity movements",
	}, []string{"reason"})

	UnitsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialized_units_created_total",
		Help: "Total number of serialized units created",
	})

	UnitTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serialized_unit_transitions_total",
		Help: "Total number of serialized unit status transitions",
	}, []string{"to"})

	TransactionCodesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transaction_codes_issued_total",
		Help: "Total number of inventory transaction codes issued",
	})

	ReceiveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "po_receive_latency_seconds",
		Help:    "Latency of ReceiveItems units of work",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
