package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	CustomersCreatedTotal prometheus.Counter
	TransactionsTotal     *prometheus.CounterVec
	LoanDecisionsTotal    *prometheus.CounterVec
	AccountsMarkedDormant prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corebank_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		CustomersCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "corebank_customers_created_total",
				Help: "Total number of customer profiles created.",
			},
		),
		TransactionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebank_account_transactions_total",
				Help: "Total number of ledger transactions recorded.",
			},
			[]string{"type"},
		),
		LoanDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebank_loan_decisions_total",
				Help: "Total number of loan review decisions.",
			},
			[]string{"action"},
		),
		AccountsMarkedDormant: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "corebank_accounts_marked_dormant_total",
				Help: "Total number of accounts flagged dormant by the batch job.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordCustomerCreated() {
	Business.CustomersCreatedTotal.Inc()
}

func RecordTransaction(txType string) {
	Business.TransactionsTotal.WithLabelValues(txType).Inc()
}

func RecordLoanDecision(action string) {
	Business.LoanDecisionsTotal.WithLabelValues(action).Inc()
}

func RecordAccountMarkedDormant() {
	Business.AccountsMarkedDormant.Inc()
}
