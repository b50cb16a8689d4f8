// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// dioxide reads an SCD30 CO2 sensor and shows the latest measurement and its
// history on an e-paper panel, a terminal or a web page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/dioxide/monitor"
	"github.com/GermanBionicSystems/dioxide/render"
	"github.com/GermanBionicSystems/dioxide/scd30"
	"github.com/GermanBionicSystems/dioxide/screen"
	"github.com/GermanBionicSystems/dioxide/waveshare2in13v2"
	"github.com/GermanBionicSystems/dioxide/webview"
)

var defaults = monitor.DefaultConfig()

// CLI args
var (
	i2cName         = flag.String("i2c", "", "I²C bus to use")
	spiName         = flag.String("spi", "", "SPI port to use for the e-paper panel")
	displayKind     = flag.String("display", "epd", "where to show frames: epd, term or web")
	layoutName      = flag.String("layout", "2in13", "screen layout: 2in13 or 2in9")
	listenAddr      = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	pollInterval    = flag.Duration("poll", defaults.PollInterval, "time interval between data ready polls")
	measureInterval = flag.Duration("measure", 2*time.Second, "sensor measurement interval")
	pressure        = flag.Uint("pressure", uint(defaults.Pressure), "ambient pressure in mbar, 0 disables compensation")
	historySize     = flag.Int("history", defaults.HistorySize, "number of measurements in the chart")
	fullEvery       = flag.Uint("full-every", defaults.FullEvery, "panel updates per full refresh")
	logLevel        = flag.String("log-level", "info", "log level")
)

func layoutFor(name string) (render.Layout, error) {
	switch name {
	case "2in13":
		return render.Layout2in13, nil
	case "2in9":
		return render.Layout2in9, nil
	}
	return render.Layout{}, fmt.Errorf("unknown layout %q", name)
}

// openPanel returns the panel and a function releasing it.
func openPanel(layout render.Layout, mux *http.ServeMux) (monitor.Panel, func() error, error) {
	w, h := layout.Bounds.Dx(), layout.Bounds.Dy()
	switch *displayKind {
	case "epd":
		p, err := spireg.Open(*spiName)
		if err != nil {
			return nil, nil, err
		}
		dev, err := waveshare2in13v2.NewHat(p, &waveshare2in13v2.EPD2in13v2)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		if dev.Bounds() != layout.Bounds {
			p.Close()
			return nil, nil, fmt.Errorf("layout %s does not fit %s", *layoutName, dev)
		}
		return dev, func() error {
			err := dev.Halt()
			if err2 := p.Close(); err == nil {
				err = err2
			}
			return err
		}, nil
	case "term":
		dev, err := screen.New(&screen.Opts{Width: w, Height: h})
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Halt, nil
	case "web":
		dev, err := webview.New(&webview.Options{Width: w, Height: h})
		if err != nil {
			return nil, nil, err
		}
		mux.Handle("/frame", dev)
		return dev, dev.Halt, nil
	}
	return nil, nil, fmt.Errorf("unknown display %q", *displayKind)
}

func mainImpl() error {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if *pressure > 0xFFFF {
		return fmt.Errorf("invalid pressure %d", *pressure)
	}
	cfg := monitor.Config{
		HistorySize:  *historySize,
		FullEvery:    *fullEvery,
		PollInterval: *pollInterval,
		Pressure:     uint16(*pressure),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	layout, err := layoutFor(*layoutName)
	if err != nil {
		return err
	}
	renderer, err := render.New(layout, cfg.HistorySize)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}

	bus, err := i2creg.Open(*i2cName)
	if err != nil {
		return err
	}
	defer bus.Close()

	sensor, err := scd30.NewI2C(bus, scd30.SensorAddress, nil)
	if err != nil {
		return err
	}
	fw, err := sensor.FirmwareVersion()
	if err != nil {
		return err
	}
	log.WithField("firmware", fw).Infof("found %s", sensor)
	if err := sensor.SetMeasurementInterval(*measureInterval); err != nil {
		return err
	}
	if err := sensor.StartContinuousMeasurement(cfg.Pressure); err != nil {
		return err
	}
	defer func() {
		if err := sensor.StopContinuousMeasurement(); err != nil {
			log.WithError(err).Warn("stopping measurements failed")
		}
	}()

	mux := http.NewServeMux()
	panel, closePanel, err := openPanel(layout, mux)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePanel(); err != nil {
			log.WithError(err).Warn("closing panel failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		// Add Go module build info.
		collectors.NewBuildInfoCollector(),
	)
	metrics := monitor.NewMetrics(reg)
	mux.Handle("/metrics", promhttp.HandlerFor(
		reg,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	))

	m, err := monitor.New(sensor, panel, renderer, cfg,
		monitor.WithLogger(log.StandardLogger()),
		monitor.WithMetrics(metrics))
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: *listenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}()
	log.WithField("address", *listenAddr).Info("serving metrics")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = m.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown failed")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "dioxide: %s.\n", err)
		os.Exit(1)
	}
}
