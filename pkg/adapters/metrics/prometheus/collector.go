package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aescanero/irrigation/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	registry *prometheus.Registry

	sensorReports   prometheus.Counter
	rejected        *prometheus.CounterVec
	safetyTrips     *prometheus.CounterVec
	pumpCommands    *prometheus.CounterVec
	sensorValue     *prometheus.GaugeVec
	pumpOn          prometheus.Gauge
	pumpModeManual  prometheus.Gauge
	safetyActive    prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector backed by its own registry, so every
// instance can be registered without clashing with another.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		sensorReports: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "irrigation_sensor_reports_total",
				Help: "Total number of accepted sensor node reports",
			},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irrigation_rejected_requests_total",
				Help: "Total number of requests rejected by validation",
			},
			[]string{"reason"},
		),
		safetyTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irrigation_safety_trips_total",
				Help: "Total number of times safety switched from inactive to active",
			},
			[]string{"source"},
		),
		pumpCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irrigation_pump_commands_total",
				Help: "Total number of pump commands by outcome",
			},
			[]string{"result"},
		),
		sensorValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "irrigation_sensor_value",
				Help: "Latest sensor or override value by field",
			},
			[]string{"field"},
		),
		pumpOn: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "irrigation_pump_on",
				Help: "1 when the effective pump state is ON",
			},
		),
		pumpModeManual: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "irrigation_pump_mode_manual",
				Help: "1 when the pump is in MANUAL mode",
			},
		),
		safetyActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "irrigation_safety_active",
				Help: "1 when the safety override is active",
			},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "irrigation_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSensorReport records an accepted sensor node reading
func (c *Collector) RecordSensorReport(temperature, humidity, moisture float64) {
	c.sensorReports.Inc()
	c.sensorValue.WithLabelValues("temperature").Set(temperature)
	c.sensorValue.WithLabelValues("humidity").Set(humidity)
	c.sensorValue.WithLabelValues("moisture").Set(moisture)
}

// RecordManualUpdate records the current operator overrides
func (c *Collector) RecordManualUpdate(ph, weather float64) {
	c.sensorValue.WithLabelValues("ph").Set(ph)
	c.sensorValue.WithLabelValues("weather").Set(weather)
}

// RecordRejected increments the count of rejected requests
func (c *Collector) RecordRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

// RecordSafetyTrip increments the count of safety activations
func (c *Collector) RecordSafetyTrip(source string) {
	c.safetyTrips.WithLabelValues(source).Inc()
}

// RecordPumpCommand increments the count of pump commands by outcome
func (c *Collector) RecordPumpCommand(result string) {
	c.pumpCommands.WithLabelValues(result).Inc()
}

// RecordPumpStatus sets the pump and safety gauges
func (c *Collector) RecordPumpStatus(state domain.PumpState, mode domain.PumpMode, safetyActive bool) {
	c.pumpOn.Set(boolGauge(domain.EffectivePumpState(state, safetyActive) == domain.PumpOn))
	c.pumpModeManual.Set(boolGauge(mode == domain.PumpModeManual))
	c.safetyActive.Set(boolGauge(safetyActive))
}

// ObserveHTTPRequest records the duration of a served request
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
