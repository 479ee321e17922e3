package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolStats exposes speech engine slot usage.
type PoolStats interface {
	Size() int
	InUse() int
}

// poolCollector reads engine pool gauges at scrape time.
type poolCollector struct {
	pool     PoolStats
	size     *prometheus.Desc
	occupied *prometheus.Desc
}

func newPoolCollector(pool PoolStats) *poolCollector {
	return &poolCollector{
		pool: pool,
		size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "engine_pool", "slots"),
			"Configured speech engine slots.",
			nil, nil,
		),
		occupied: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "engine_pool", "slots_in_use"),
			"Speech engine slots currently held.",
			nil, nil,
		),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.occupied
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(c.pool.Size()))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(c.pool.InUse()))
}
