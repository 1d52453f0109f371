// internal/metrics/collector.go
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/program"
	"github.com/rovshanmuradov/launchpad/internal/types"
)

const namespace = "launchpad"

// MetricType names one registered metric.
type MetricType string

const (
	OperationCounterType  MetricType = "operation_counter"
	OperationDurationType MetricType = "operation_duration"
	TradeCounterType      MetricType = "trade_counter"
	TradeVolumeType       MetricType = "trade_volume"
	FeesType              MetricType = "fees"
	CurveReservesType     MetricType = "curve_reserves"
	LifecycleType         MetricType = "lifecycle"
	BusType               MetricType = "bus"
)

// Collector owns the launchpad metrics and feeds them from program
// operations and bus events.
type Collector struct {
	metrics sync.Map
}

// NewCollector registers every metric with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{}
	metricsMap := map[MetricType]prometheus.Collector{
		OperationCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Program operations by outcome and error code",
		}, []string{"operation", "status", "code"}),
		OperationDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Program operation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"operation"}),
		TradeCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed swaps by side",
		}, []string{"side"}),
		TradeVolumeType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_volume_sol",
			Help:      "SOL moved by swaps, excluding fees",
		}, []string{"side"}),
		FeesType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_sol_total",
			Help:      "Trading fees collected in SOL",
		}),
		CurveReservesType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "curve_real_reserves",
			Help:      "Real reserves held by a curve after its last trade",
		}, []string{"mint", "asset"}),
		LifecycleType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Curve launches, completions and migrations",
		}, []string{"event"}),
		BusType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_bus",
			Help:      "Event bus counters sampled on update",
		}, []string{"field"}),
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		reg.MustRegister(metric)
	}
	return c
}

// Reset clears every vector (useful for testing).
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func (c *Collector) counterVec(t MetricType) *prometheus.CounterVec {
	if m, ok := c.metrics.Load(t); ok {
		if v, ok := m.(*prometheus.CounterVec); ok {
			return v
		}
	}
	return nil
}

func (c *Collector) gaugeVec(t MetricType) *prometheus.GaugeVec {
	if m, ok := c.metrics.Load(t); ok {
		if v, ok := m.(*prometheus.GaugeVec); ok {
			return v
		}
	}
	return nil
}

// ObserveOperation records one program operation. Failures carrying a
// program error code are "rejected"; anything else is "failed".
func (c *Collector) ObserveOperation(operation string, err error, elapsed time.Duration) {
	status, code := "success", ""
	if err != nil {
		status = "failed"
		if e, ok := program.CodeOf(err); ok {
			status = "rejected"
			if pe, found := program.ErrorByCode(e); found {
				code = pe.Name
			}
		}
	}
	if v := c.counterVec(OperationCounterType); v != nil {
		v.WithLabelValues(operation, status, code).Inc()
	}
	if m, ok := c.metrics.Load(OperationDurationType); ok {
		if h, ok := m.(*prometheus.HistogramVec); ok {
			h.WithLabelValues(operation).Observe(elapsed.Seconds())
		}
	}
}

// Handle consumes bus events.
func (c *Collector) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.TradeEvent:
		side := "sell"
		if e.IsBuy {
			side = "buy"
		}
		if v := c.counterVec(TradeCounterType); v != nil {
			v.WithLabelValues(side).Inc()
		}
		if v := c.counterVec(TradeVolumeType); v != nil {
			v.WithLabelValues(side).Add(lamportsToSOL(e.SolAmount))
		}
		if m, ok := c.metrics.Load(FeesType); ok {
			if fees, ok := m.(prometheus.Counter); ok {
				fees.Add(lamportsToSOL(e.FeeLamports))
			}
		}
		c.setReserves(e.Mint.String(), e.RealSol, e.RealToken)
	case *events.CreateEvent:
		c.lifecycle("created")
		c.setReserves(e.Mint.String(), e.RealSol, e.RealToken)
	case *events.CompleteEvent:
		c.lifecycle("completed")
	case *events.PoolCreatedEvent:
		c.lifecycle("pool_created")
		c.setReserves(e.Mint.String(), 0, 0)
	case *events.PoolLockedEvent:
		c.lifecycle("pool_locked")
	}
	return nil
}

// UpdateBusStats samples the event bus.
func (c *Collector) UpdateBusStats(stats events.Stats) {
	v := c.gaugeVec(BusType)
	if v == nil {
		return
	}
	v.WithLabelValues("pending").Set(float64(stats.PendingEvents))
	v.WithLabelValues("published").Set(float64(stats.Published))
	v.WithLabelValues("dropped").Set(float64(stats.Dropped))
}

func (c *Collector) lifecycle(event string) {
	if v := c.counterVec(LifecycleType); v != nil {
		v.WithLabelValues(event).Inc()
	}
}

func (c *Collector) setReserves(mint string, sol, token uint64) {
	v := c.gaugeVec(CurveReservesType)
	if v == nil {
		return
	}
	v.WithLabelValues(mint, "sol").Set(lamportsToSOL(sol))
	v.WithLabelValues(mint, "token").Set(float64(token))
}

func lamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(types.LamportsPerSOL)
}
