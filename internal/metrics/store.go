package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leavedesk/leavedesk/store"
)

// StatsSource is implemented by *store.DB.
type StatsSource interface {
	Stats() (store.Stats, error)
}

var (
	storeSizeDesc = prometheus.NewDesc(namespace+"_store_size_bytes",
		"Size of the database as reported by the storage backend.", []string{"backend"}, nil)
	storeRowsDesc = prometheus.NewDesc(namespace+"_store_rows",
		"Number of records per table.", []string{"table"}, nil)
	storeTxDesc = prometheus.NewDesc(namespace+"_store_transactions_total",
		"Store transactions started since open.", []string{"mode"}, nil)
)

// storeCollector reads database statistics at scrape time.
type storeCollector struct {
	src StatsSource
}

func (c storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storeSizeDesc
	ch <- storeRowsDesc
	ch <- storeTxDesc
}

func (c storeCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.src.Stats()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(storeRowsDesc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(storeSizeDesc, prometheus.GaugeValue, float64(st.Size), st.Backend.String())
	for _, t := range st.Tables {
		ch <- prometheus.MustNewConstMetric(storeRowsDesc, prometheus.GaugeValue, float64(t.Rows), t.Name)
	}
	ch <- prometheus.MustNewConstMetric(storeTxDesc, prometheus.CounterValue, float64(st.Reads), "read")
	ch <- prometheus.MustNewConstMetric(storeTxDesc, prometheus.CounterValue, float64(st.Writes), "write")
}

// WatchStore exports table sizes and transaction counts of src.
func (r *Recorder) WatchStore(src StatsSource) {
	r.registry.MustRegister(storeCollector{src})
}
