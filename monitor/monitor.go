// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor runs the measure and display cycle of a CO2 monitor.
//
// Each cycle polls the sensor. When a measurement is ready it is read,
// appended to the history and drawn, and the frame is sent to the panel with
// the refresh mode chosen by the scheduler. Sensor and panel errors abandon
// the cycle; the next cycle starts from the same state.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/dioxide/history"
	"github.com/GermanBionicSystems/dioxide/refresh"
	"github.com/GermanBionicSystems/dioxide/render"
	"github.com/GermanBionicSystems/dioxide/scd30"
)

// Sensor is the part of *scd30.Dev used by the monitor.
type Sensor interface {
	MeasurementReady() (bool, error)
	ReadMeasurement() (scd30.Measurement, error)
}

// Panel displays frames.
type Panel interface {
	Update(img image.Image, mode refresh.Mode) error
}

// Sleeper is implemented by panels that can be put to sleep between updates.
type Sleeper interface {
	Sleep() error
}

// Drawer composes frames.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(dst draw.Image, f *render.Frame)
}

const (
	kindChecksum  = "checksum"
	kindTransport = "transport"
	kindOther     = "other"
)

// errorKind classifies sensor errors for logs and metrics.
func errorKind(err error) string {
	var te *scd30.TransportError
	switch {
	case errors.Is(err, scd30.ErrChecksum):
		return kindChecksum
	case errors.As(err, &te):
		return kindTransport
	default:
		return kindOther
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

// WithMetrics sets the metrics updated by the monitor.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// Monitor owns the measurement history, the refresh scheduler and the frame
// buffer. It is not safe for concurrent use.
type Monitor struct {
	sensor  Sensor
	panel   Panel
	drawer  Drawer
	cfg     Config
	log     logrus.FieldLogger
	metrics *Metrics

	history   *history.Ring[scd30.Measurement]
	scheduler *refresh.Scheduler
	frame     *image1bit.VerticalLSB
}

// New returns a Monitor. Nothing is sent to the sensor or the panel.
func New(sensor Sensor, panel Panel, drawer Drawer, cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := history.New[scd30.Measurement](cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	s, err := refresh.New(cfg.FullEvery)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	m := &Monitor{
		sensor:    sensor,
		panel:     panel,
		drawer:    drawer,
		cfg:       cfg,
		log:       discard,
		history:   h,
		scheduler: s,
		frame:     image1bit.NewVerticalLSB(drawer.Bounds()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// History returns the measurements kept so far, oldest first.
func (m *Monitor) History() *history.Ring[scd30.Measurement] {
	return m.history
}

// Updates returns the number of completed panel updates.
func (m *Monitor) Updates() uint {
	return m.scheduler.Count()
}

// Step runs one cycle. It returns true when the panel was updated. A cycle
// with no measurement ready does nothing and returns false with no error.
func (m *Monitor) Step() (bool, error) {
	ready, err := m.sensor.MeasurementReady()
	if err != nil {
		return false, m.sensorError("data ready poll", err)
	}
	if !ready {
		return false, nil
	}
	meas, err := m.sensor.ReadMeasurement()
	if err != nil {
		return false, m.sensorError("measurement read", err)
	}

	m.history.Push(meas)
	m.metrics.observe(meas, m.history.Len())

	mode := m.scheduler.Mode()
	updates := m.scheduler.Count()
	log := m.log.WithFields(logrus.Fields{
		"co2":         meas.CO2,
		"temperature": meas.Temperature,
		"humidity":    meas.Humidity,
		"mode":        mode.String(),
		"updates":     updates,
	})

	m.drawer.Draw(m.frame, &render.Frame{Measurement: meas, History: m.history, Updates: updates})
	if err := m.panel.Update(m.frame, mode); err != nil {
		m.scheduler.Invalidate()
		m.metrics.panelError()
		log.WithError(err).Error("panel update failed")
		return false, fmt.Errorf("monitor: %s update: %w", mode, err)
	}
	if s, ok := m.panel.(Sleeper); ok {
		if err := s.Sleep(); err != nil {
			log.WithError(err).Warn("panel sleep failed")
		}
	}
	m.scheduler.Advance()
	m.metrics.refreshed(mode)
	log.Info("display updated")
	return true, nil
}

func (m *Monitor) sensorError(op string, err error) error {
	kind := errorKind(err)
	m.metrics.sensorError(kind)
	m.log.WithError(err).WithField("kind", kind).Errorf("%s failed", op)
	return fmt.Errorf("monitor: %s: %w", op, err)
}

// Run calls Step every poll interval until ctx is done. Errors are logged
// and do not stop the loop. A ctx that is already done causes no step.
func (m *Monitor) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		_, _ = m.Step()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
