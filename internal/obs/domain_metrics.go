package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSessionTotal counts checkout session creation outcomes.
	CheckoutSessionTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts recorded orders.
	OrdersCreatedTotal prometheus.Counter
	// PricingDegradedLines counts cart lines priced to zero because the
	// referenced product was missing from the catalog.
	PricingDegradedLines prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of checkout session creation outcomes.",
		}, []string{"provider", "result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})
		OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders recorded from completed payments.",
		})
		PricingDegradedLines = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_degraded_lines_total",
			Help:      "Cart lines priced to zero because the product was not found.",
		})

		mustRegisterCollector(reg, CheckoutSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSessionTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, PricingDegradedLines, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingDegradedLines = v
			}
		})
	})
}
