package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LibraryMetrics counts circulation and point-of-sale events.
type LibraryMetrics struct {
	loansIssued      prometheus.Counter
	loansReturned    *prometheus.CounterVec
	customersBlocked *prometheus.CounterVec
	sales            *prometheus.CounterVec
	salesAmount      prometheus.Counter
}

// NewLibraryMetrics registers the domain counters on the provided registerer.
func NewLibraryMetrics(reg prometheus.Registerer) *LibraryMetrics {
	if reg == nil {
		return &LibraryMetrics{}
	}
	m := &LibraryMetrics{
		loansIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_issued_total",
			Help:      "Loans issued.",
		}),
		loansReturned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_returned_total",
			Help:      "Loans returned, labelled by lateness.",
		}, []string{"late"}),
		customersBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customers_blocked_total",
			Help:      "Customer blocks applied, by block kind.",
		}, []string{"kind"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Sales registered, by payment method.",
		}, []string{"payment_method"}),
		salesAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_amount_total",
			Help:      "Sum of sale totals.",
		}),
	}
	reg.MustRegister(m.loansIssued, m.loansReturned, m.customersBlocked, m.sales, m.salesAmount)
	return m
}

func (m *LibraryMetrics) LoanIssued() {
	if m == nil || m.loansIssued == nil {
		return
	}
	m.loansIssued.Inc()
}

func (m *LibraryMetrics) LoanReturned(late bool) {
	if m == nil || m.loansReturned == nil {
		return
	}
	m.loansReturned.WithLabelValues(strconv.FormatBool(late)).Inc()
}

func (m *LibraryMetrics) CustomerBlocked(kind string) {
	if m == nil || m.customersBlocked == nil {
		return
	}
	m.customersBlocked.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LibraryMetrics) SaleRegistered(paymentMethod string, total decimal.Decimal) {
	if m == nil || m.sales == nil {
		return
	}
	m.sales.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
	m.salesAmount.Add(total.InexactFloat64())
}
