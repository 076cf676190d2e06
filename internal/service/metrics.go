package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodine_orders_submitted_total",
		Help: "Order submissions accepted into the store, by mode (new, append).",
	}, []string{"mode"})

	orderDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodine_order_decisions_total",
		Help: "Kitchen decisions applied to orders.",
	}, []string{"decision"})

	billsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autodine_bills_generated_total",
		Help: "Bills generated for tables.",
	})

	paymentsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autodine_payments_verified_total",
		Help: "Payments verified and tables reset.",
	})

	storeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodine_store_rejections_total",
		Help: "Store operations rejected, by operation and reason.",
	}, []string{"operation", "reason"})

	activeOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autodine_active_orders",
		Help: "Order slots currently in use.",
	})

	sinkQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autodine_sink_queue_depth",
		Help: "Changes waiting in an asynchronous sink queue.",
	}, []string{"sink"})

	sinkDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodine_sink_dropped_total",
		Help: "Changes an asynchronous sink dropped because its queue was full or its worker had stopped.",
	}, []string{"sink"})
)
