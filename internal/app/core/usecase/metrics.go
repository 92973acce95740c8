package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JoeShih716/go-accountant/internal/app/core/domain"
)

var (
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountant_transactions_total",
		Help: "Posted transactions by type and outcome.",
	}, []string{"type", "outcome"})

	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountant_event_publish_failures_total",
		Help: "BalanceChanged events that could not be published.",
	})
)

func recordTransaction(t domain.TransactionType, outcome string) {
	transactionsTotal.WithLabelValues(t.String(), outcome).Inc()
}

// outcomeOf 將結果歸類為 metrics label
func outcomeOf(receipt *domain.Receipt, err error) string {
	switch {
	case err != nil || receipt == nil:
		return "error"
	case receipt.Replayed:
		return "replayed"
	case !receipt.Applied:
		return "rejected"
	default:
		return "applied"
	}
}
