package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records counters for the order and refund pipelines.
type CommerceMetrics struct {
	ordersPaid      *prometheus.CounterVec
	refundsPaid     prometheus.Counter
	stockRejections prometheus.Counter
	paymentWei      prometheus.Histogram
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersPaid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Successfully settled orders by sale mode.",
	}, []string{"mode"})
	refundsPaid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_paid_total",
		Help: "Refund payouts disbursed.",
	})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "buy_stock_rejections_total",
		Help: "Buy attempts rejected for insufficient stock.",
	})
	paymentWei := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_payment_wei",
		Help:    "Distribution of settled payment amounts in wei.",
		Buckets: prometheus.ExponentialBuckets(1_000, 10, 10),
	})
	reg.MustRegister(ordersPaid, refundsPaid, stockRejections, paymentWei)
	return &CommerceMetrics{
		ordersPaid:      ordersPaid,
		refundsPaid:     refundsPaid,
		stockRejections: stockRejections,
		paymentWei:      paymentWei,
	}
}

// ObserveOrderPaid records a settled order for the given sale mode.
func (c *CommerceMetrics) ObserveOrderPaid(mode string, paidWei int64) {
	if c == nil || c.ordersPaid == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	c.ordersPaid.WithLabelValues(mode).Inc()
	c.paymentWei.Observe(float64(paidWei))
}

// IncRefundPaid increments the refund payout counter.
func (c *CommerceMetrics) IncRefundPaid() {
	if c == nil || c.refundsPaid == nil {
		return
	}
	c.refundsPaid.Inc()
}

// IncStockRejection increments the insufficient-stock rejection counter.
func (c *CommerceMetrics) IncStockRejection() {
	if c == nil || c.stockRejections == nil {
		return
	}
	c.stockRejections.Inc()
}
