package interfaces

import "github.com/prometheus/client_golang/prometheus"

type Metrics interface {
	GetRegistry() *prometheus.Registry
	IncCounter(name string)
	SetGauge(name string, value float64)
	IncCounterVec(name string, labels ...string)
	ObserveHistogramVec(name string, value float64, labels ...string)
	// RegisterCounter registers a new counter metric.
	RegisterCounter(name, help string)
	// RegisterCounterVec registers a new counter metric with labels.
	RegisterCounterVec(name, help string, labels []string)
	// RegisterHistogramVec registers a new histogram metric with labels.
	RegisterHistogramVec(name, help string, buckets []float64, labels []string)
	// RegisterGauge registers a new gauge metric.
	RegisterGauge(name, help string)
}
