// metrics.go - Metrics collection for the staking ledger daemon.
package main

import (
	"fmt"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string     `json:"name"`
	Type      MetricType `json:"type"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// MetricsCollector manages metrics collection
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.gauges[name] = value
}

// RecordHistogram records a value in a histogram, keeping only the last
// 1000 observations.
func (mc *MetricsCollector) RecordHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.histograms[name] = append(mc.histograms[name], value)
	if len(mc.histograms[name]) > 1000 {
		mc.histograms[name] = mc.histograms[name][len(mc.histograms[name])-1000:]
	}
}

// Summary returns a snapshot of all metrics for the /metrics endpoint.
func (mc *MetricsCollector) Summary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]interface{})

	counters := make(map[string]int64, len(mc.counters))
	for name, v := range mc.counters {
		counters[name] = v
	}
	summary["counters"] = counters

	gauges := make(map[string]float64, len(mc.gauges))
	for name, v := range mc.gauges {
		gauges[name] = v
	}
	summary["gauges"] = gauges

	histograms := make(map[string]map[string]float64, len(mc.histograms))
	for name, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[name] = h
	}
	summary["histograms"] = histograms

	return summary
}

// timeCommand records the duration of one command into its histogram.
func (mc *MetricsCollector) timeCommand(name string, start time.Time) {
	mc.RecordHistogram(fmt.Sprintf("%s_duration_ms", name), float64(time.Since(start).Milliseconds()))
}

// Predefined metric names
const (
	MetricCreateCount         = "create_property_count"
	MetricStakeCount          = "stake_count"
	MetricUnstakeCount        = "unstake_count"
	MetricCloseCount          = "close_property_count"
	MetricAuthorizedReadCount = "authorized_read_count"
	MetricRejectedCount       = "rejected_command_count"
	MetricRateLimitedCount    = "rate_limited_count"
	MetricProofVerifyTime     = "proof_verify_time_ms"
)
