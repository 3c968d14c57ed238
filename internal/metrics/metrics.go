package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dance_studio"

var (
	// Посчитанные предложения цены по типу абонемента.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "quotes_total",
		Help:      "Group booking quotes computed, by abonement type.",
	}, []string{"abonement_type"})

	// Откуда взята цена multi-абонемента на одну группу.
	PriceFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "single_group_price_source_total",
		Help:      "Single-group multi prices resolved, by price source.",
	}, []string{"source"})

	QuoteRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "quote_rejections_total",
		Help:      "Quote requests rejected by validation.",
	})

	DebitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "debits_total",
		Help:      "Attendance debit attempts, by outcome.",
	}, []string{"outcome"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "sick_leave_refunds_total",
		Help:      "Credits refunded by sick leave.",
	})

	ExtensionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "extensions_total",
		Help:      "Abonement validity extensions, by kind.",
	}, []string{"kind"})

	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "activations_total",
		Help:      "Abonements created from quotes, by initial status.",
	}, []string{"status"})

	ExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "expired_total",
		Help:      "Abonements moved to expired.",
	})

	SettingUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settings",
		Name:      "updates_total",
		Help:      "Setting updates that changed the stored value, by key.",
	}, []string{"key"})
)
