// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GermanBionicSystems/dioxide/refresh"
	"github.com/GermanBionicSystems/dioxide/scd30"
)

// Metrics exposes the monitor state to Prometheus.
type Metrics struct {
	co2          prometheus.Gauge
	temperature  prometheus.Gauge
	humidity     prometheus.Gauge
	historyLen   prometheus.Gauge
	sensorErrors *prometheus.CounterVec
	panelErrors  prometheus.Counter
	refreshes    *prometheus.CounterVec
}

func newGauge(name string, help string) prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dioxide",
			Name:      name,
			Help:      help,
		},
	)
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		co2:         newGauge("co2_ppm", "Carbon dioxide concentration (units: ppm)"),
		temperature: newGauge("temperature_celsius", "Air temperature (units: degrees Celsius)"),
		humidity:    newGauge("humidity_percent", "Relative humidity (units: %rH)"),
		historyLen:  newGauge("history_length", "Number of measurements in the chart history"),
		sensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dioxide",
			Name:      "sensor_errors_total",
			Help:      "Failed sensor cycles by kind (checksum, transport, other)",
		}, []string{"kind"}),
		panelErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dioxide",
			Name:      "panel_errors_total",
			Help:      "Failed panel updates",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dioxide",
			Name:      "refreshes_total",
			Help:      "Completed panel updates by refresh mode",
		}, []string{"mode"}),
	}
	for _, k := range []string{kindChecksum, kindTransport, kindOther} {
		m.sensorErrors.WithLabelValues(k)
	}
	for _, mode := range []refresh.Mode{refresh.Full, refresh.Quick} {
		m.refreshes.WithLabelValues(mode.String())
	}
	if reg != nil {
		reg.MustRegister(m.co2, m.temperature, m.humidity, m.historyLen, m.sensorErrors, m.panelErrors, m.refreshes)
	}
	return m
}

func (m *Metrics) observe(meas scd30.Measurement, historyLen int) {
	if m == nil {
		return
	}
	m.co2.Set(float64(meas.CO2))
	m.temperature.Set(float64(meas.Temperature))
	m.humidity.Set(float64(meas.Humidity))
	m.historyLen.Set(float64(historyLen))
}

func (m *Metrics) sensorError(kind string) {
	if m == nil {
		return
	}
	m.sensorErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) panelError() {
	if m == nil {
		return
	}
	m.panelErrors.Inc()
}

func (m *Metrics) refreshed(mode refresh.Mode) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(mode.String()).Inc()
}
