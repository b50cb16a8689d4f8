// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/dioxide/refresh"
)

// Config holds the monitor settings.
type Config struct {
	// HistorySize is the number of measurements kept for the chart.
	HistorySize int
	// FullEvery is the number of panel updates per full refresh.
	FullEvery uint
	// PollInterval is the period of the data ready poll.
	PollInterval time.Duration
	// Pressure is the ambient pressure in mbar used for compensation when
	// starting measurements. Zero disables compensation.
	Pressure uint16
}

// DefaultConfig returns the settings of the original 2.9" monitor.
func DefaultConfig() Config {
	return Config{
		HistorySize:  108,
		FullEvery:    refresh.DefaultFullEvery,
		PollInterval: 10 * time.Second,
		Pressure:     1020,
	}
}

// Validate checks the values are usable.
func (c *Config) Validate() error {
	if c.HistorySize < 1 {
		return fmt.Errorf("monitor: history size must be at least 1, got %d", c.HistorySize)
	}
	if c.FullEvery < 1 {
		return fmt.Errorf("monitor: full refresh period must be at least 1, got %d", c.FullEvery)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("monitor: invalid poll interval %s", c.PollInterval)
	}
	if c.Pressure != 0 && (c.Pressure < 700 || c.Pressure > 1400) {
		return fmt.Errorf("monitor: pressure %d mbar outside of 700..1400", c.Pressure)
	}
	return nil
}
