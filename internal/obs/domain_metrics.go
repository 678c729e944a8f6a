package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout submissions by payment method and result.
	CheckoutTotal *prometheus.CounterVec
	// CheckoutGrandTotal records grand totals of completed sales in minor units.
	CheckoutGrandTotal prometheus.Histogram
	// ReceiptFallbackTotal counts receipt totals recomputed because the stored value was unusable.
	ReceiptFallbackTotal *prometheus.CounterVec
	// CacheLookups counts Redis cache hits and misses per cache.
	CacheLookups *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout submissions by payment method and outcome.",
		}, []string{"method", "result"})
		CheckoutGrandTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_grand_total_minor",
			Help:      "Grand total of completed sales in minor currency units.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		})
		ReceiptFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_fallback_total",
			Help:      "Receipt totals derived from line items instead of the stored value.",
		}, []string{"field"})
		CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Redis cache lookups by cache and outcome.",
		}, []string{"cache", "result"})

		CheckoutTotal = register(reg, CheckoutTotal)
		CheckoutGrandTotal = register(reg, CheckoutGrandTotal)
		ReceiptFallbackTotal = register(reg, ReceiptFallbackTotal)
		CacheLookups = register(reg, CacheLookups)
	})
}

// ObserveCheckout records one checkout outcome. It is a no-op until the
// domain metrics are registered.
func ObserveCheckout(method, result string, grandTotalMinor int64) {
	if CheckoutTotal == nil {
		return
	}
	CheckoutTotal.WithLabelValues(method, result).Inc()
	if result == "success" && CheckoutGrandTotal != nil {
		CheckoutGrandTotal.Observe(float64(grandTotalMinor))
	}
}

// ObserveReceiptFallbacks counts each derived receipt field.
func ObserveReceiptFallbacks(fields []string) {
	if ReceiptFallbackTotal == nil {
		return
	}
	for _, f := range fields {
		ReceiptFallbackTotal.WithLabelValues(f).Inc()
	}
}

// ObserveCache records a cache hit or miss.
func ObserveCache(cache string, hit bool) {
	if CacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
