package connpool

import "github.com/prometheus/client_golang/prometheus"

type collector struct {
	pool *Pool

	idle    *prometheus.Desc
	inUse   *prometheus.Desc
	pending *prometheus.Desc
	max     *prometheus.Desc
	opened  *prometheus.Desc
	failed  *prometheus.Desc
	closed  *prometheus.Desc
}

// NewCollector returns a prometheus.Collector reporting the stats of p with
// a constant pool label set to name.
func NewCollector(name string, p *Pool) prometheus.Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("connpool", "", metric), help, variable, labels)
	}
	return &collector{
		pool:    p,
		idle:    desc("idle_connections", "Number of idle connections."),
		inUse:   desc("in_use_connections", "Number of checked out connections."),
		pending: desc("pending_connections", "Number of connections being opened or released."),
		max:     desc("max_connections", "Maximum number of connections."),
		opened:  desc("opened_total", "Total number of connections opened."),
		failed:  desc("open_failures_total", "Total number of failed connection attempts."),
		closed:  desc("closed_total", "Total number of connections closed by the pool.", "reason"),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.idle, c.inUse, c.pending, c.max, c.opened, c.failed, c.closed} {
		ch <- d
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxTotal))
	ch <- prometheus.MustNewConstMetric(c.opened, prometheus.CounterValue, float64(s.Opened))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.OpenFailures))
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(s.DeadClosed), "dead")
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(s.MaxLifetimeClosed), "max_active_age")
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(s.ReleaseClosed), "release")
}
