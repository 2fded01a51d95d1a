package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// BreakerSource exposes sink breaker states. repository.MultiSink satisfies it.
type BreakerSource interface {
	Names() []string
	State(name string) (gobreaker.State, bool)
}

// ClientCounter exposes connected live-feed clients. repository.LiveHub satisfies it.
type ClientCounter interface {
	Clients() int
}

// RuntimeCollector reads sink and live-feed state at scrape time.
type RuntimeCollector struct {
	breakers BreakerSource
	clients  ClientCounter

	breakerDesc *prometheus.Desc
	clientsDesc *prometheus.Desc
}

// NewRuntimeCollector creates a collector. Either source may be nil.
func NewRuntimeCollector(breakers BreakerSource, clients ClientCounter) *RuntimeCollector {
	return &RuntimeCollector{
		breakers: breakers,
		clients:  clients,
		breakerDesc: prometheus.NewDesc(
			"levrecon_sink_breaker_state",
			"Sink circuit breaker state (0 closed, 1 half-open, 2 open)",
			[]string{"sink"}, nil,
		),
		clientsDesc: prometheus.NewDesc(
			"levrecon_live_clients",
			"Connected live-feed clients",
			nil, nil,
		),
	}
}

// Register adds the collector to reg, or to the default registerer when reg is nil.
func (c *RuntimeCollector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(c)
}

func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.breakerDesc
	ch <- c.clientsDesc
}

func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	if c.breakers != nil {
		for _, name := range c.breakers.Names() {
			st, ok := c.breakers.State(name)
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(c.breakerDesc, prometheus.GaugeValue, float64(st), name)
		}
	}
	if c.clients != nil {
		ch <- prometheus.MustNewConstMetric(c.clientsDesc, prometheus.GaugeValue, float64(c.clients.Clients()))
	}
}
