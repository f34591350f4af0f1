package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts landed-cost quote outcomes.
	QuoteTotal *prometheus.CounterVec
	// RuleSearchTotal counts tariff rule searches by outcome.
	RuleSearchTotal *prometheus.CounterVec
	// InvoiceBuildTotal counts invoice batch builds by outcome.
	InvoiceBuildTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of landed-cost quote calculations by result.",
		}, []string{"result"})
		RuleSearchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_search_total",
			Help:      "Count of tariff rule searches by result.",
		}, []string{"result"})
		InvoiceBuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_build_total",
			Help:      "Count of invoice batch builds by result.",
		}, []string{"result"})
		for _, c := range []*prometheus.CounterVec{QuoteTotal, RuleSearchTotal, InvoiceBuildTotal} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(fmt.Errorf("register domain metric: %w", err))
				}
			}
		}
	})
}

// CountQuote records one quote outcome when metrics are registered.
func CountQuote(result string) {
	if QuoteTotal != nil {
		QuoteTotal.WithLabelValues(result).Inc()
	}
}

// CountRuleSearch records one rule search outcome when metrics are registered.
func CountRuleSearch(result string) {
	if RuleSearchTotal != nil {
		RuleSearchTotal.WithLabelValues(result).Inc()
	}
}

// CountInvoiceBuild records one invoice build outcome when metrics are registered.
func CountInvoiceBuild(result string) {
	if InvoiceBuildTotal != nil {
		InvoiceBuildTotal.WithLabelValues(result).Inc()
	}
}
