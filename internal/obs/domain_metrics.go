package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// EntriesComputedTotal counts pricing outcomes at entry save time,
	// labelled by milk type and whether a rate rule matched.
	EntriesComputedTotal *prometheus.CounterVec
	// RateActivationsTotal counts rate config activations by method.
	RateActivationsTotal *prometheus.CounterVec
	// ReportRequestsTotal counts report generations by kind and cache outcome.
	ReportRequestsTotal *prometheus.CounterVec
	// AbsenceNotificationsTotal counts "no milk today" notifications created
	// by the absence scan.
	AbsenceNotificationsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		EntriesComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_computed_total",
			Help:      "Count of entry pricing computations by milk type and match outcome.",
		}, []string{"milk_type", "matched"})
		RateActivationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_activations_total",
			Help:      "Count of rate configuration activations by pricing method.",
		}, []string{"method"})
		ReportRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_requests_total",
			Help:      "Count of report generations by kind and cache outcome.",
		}, []string{"kind", "cache"})
		AbsenceNotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "absence_notifications_total",
			Help:      "Number of no-milk notifications created by the absence scan.",
		})

		mustRegisterCollector(reg, EntriesComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EntriesComputedTotal = v
			}
		})
		mustRegisterCollector(reg, RateActivationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateActivationsTotal = v
			}
		})
		mustRegisterCollector(reg, ReportRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, AbsenceNotificationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				AbsenceNotificationsTotal = v
			}
		})
	})
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
