package admin

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	capacityDesc = prometheus.NewDesc(
		"leapstore_pool_capacity",
		"Maximum number of sessions the repository pool hands out at once.",
		[]string{"repository"}, nil)
	activeDesc = prometheus.NewDesc(
		"leapstore_pool_active_sessions",
		"Sessions currently borrowed from the repository pool.",
		[]string{"repository"}, nil)
	idleDesc = prometheus.NewDesc(
		"leapstore_pool_idle_sessions",
		"Sessions waiting in the repository pool.",
		[]string{"repository"}, nil)
	borrowedDesc = prometheus.NewDesc(
		"leapstore_pool_borrowed_total",
		"Sessions handed out by the repository pool.",
		[]string{"repository"}, nil)
	timeoutsDesc = prometheus.NewDesc(
		"leapstore_pool_borrow_timeouts_total",
		"Borrows that gave up waiting for capacity.",
		[]string{"repository"}, nil)
	destroyedDesc = prometheus.NewDesc(
		"leapstore_pool_destroyed_total",
		"Sessions whose connection was discarded.",
		[]string{"repository"}, nil)
)

// poolCollector reads pool statistics at scrape time.
type poolCollector struct {
	stats StatsSource
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- capacityDesc
	ch <- activeDesc
	ch <- idleDesc
	ch <- borrowedDesc
	ch <- timeoutsDesc
	ch <- destroyedDesc
}

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats.AllStats() {
		ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(s.Capacity), s.Repository)
		ch <- prometheus.MustNewConstMetric(activeDesc, prometheus.GaugeValue, float64(s.Active), s.Repository)
		ch <- prometheus.MustNewConstMetric(idleDesc, prometheus.GaugeValue, float64(s.Idle), s.Repository)
		ch <- prometheus.MustNewConstMetric(borrowedDesc, prometheus.CounterValue, float64(s.Borrowed), s.Repository)
		ch <- prometheus.MustNewConstMetric(timeoutsDesc, prometheus.CounterValue, float64(s.BorrowTimeouts), s.Repository)
		ch <- prometheus.MustNewConstMetric(destroyedDesc, prometheus.CounterValue, float64(s.Destroyed), s.Repository)
	}
}

// newRegistry builds the registry served on /metrics.
func newRegistry(stats StatsSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(poolCollector{stats: stats})
	return reg
}
