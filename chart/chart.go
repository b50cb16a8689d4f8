// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chart computes the geometry of a bar chart of bounded history.
//
// The chart has one slot per history entry. Values are scaled linearly from
// zero to a fixed domain maximum and clipped at the plot height, so the
// scale never changes with the data. Drawing is left to the caller.
package chart

import (
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	// DefaultDomainMax is the CO2 concentration drawn at full plot height.
	DefaultDomainMax = 2500
	// DefaultTickStep is the distance between axis ticks, in domain units.
	DefaultTickStep = 500

	// TickMargin is the gap between the plot and its tick marks.
	TickMargin = 1
	// TickSize is the length of a tick mark.
	TickSize = 2
)

// Plot describes the bar chart area.
type Plot struct {
	// Width and Height of the plot area in pixels.
	Width, Height int
	// Capacity is the number of bar slots.
	Capacity int
	// DomainMax is the value drawn at full height.
	DomainMax float64
	// TickStep is the distance between ticks in domain units.
	TickStep float64
}

// New returns a Plot with the default domain and ticks.
func New(width, height, capacity int) (*Plot, error) {
	p := &Plot{
		Width:     width,
		Height:    height,
		Capacity:  capacity,
		DomainMax: DefaultDomainMax,
		TickStep:  DefaultTickStep,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Inside returns a Plot filling r less the room needed for tick marks on
// both sides.
func Inside(r image.Rectangle, capacity int) (*Plot, error) {
	in := r.Inset(TickMargin + TickSize)
	return New(in.Dx(), in.Dy(), capacity)
}

// Validate checks that all dimensions are usable.
func (p *Plot) Validate() error {
	if p.Capacity < 1 {
		return fmt.Errorf("chart: capacity must be at least 1, got %d", p.Capacity)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("chart: invalid plot size %dx%d", p.Width, p.Height)
	}
	if !(p.DomainMax > 0) {
		return errors.New("chart: domain maximum must be positive")
	}
	if !(p.TickStep > 0) {
		return errors.New("chart: tick step must be positive")
	}
	return nil
}

// BarWidth returns the width of each slot. The remainder of the integer
// division is left empty on the right side.
func (p *Plot) BarWidth() int {
	return p.Width / p.Capacity
}

// BarHeight returns the height in pixels of a bar for value v. Negative
// values and NaN draw no bar; values above the domain maximum are clipped.
func (p *Plot) BarHeight(v float64) int {
	if !(v > 0) {
		return 0
	}
	h := math.Round(v * float64(p.Height) / p.DomainMax)
	if h >= float64(p.Height) {
		return p.Height
	}
	return int(h)
}

// Bars returns one rectangle per value in plot coordinates, oldest first,
// anchored to the bottom edge. Only the first Capacity values are placed.
// A zero height bar is an empty rectangle.
func (p *Plot) Bars(values []float64) []image.Rectangle {
	if len(values) > p.Capacity {
		values = values[:p.Capacity]
	}
	bw := p.BarWidth()
	out := make([]image.Rectangle, len(values))
	for i, v := range values {
		x := i * bw
		out[i] = image.Rect(x, p.Height-p.BarHeight(v), x+bw, p.Height)
	}
	return out
}

// Ticks returns the y offsets in plot coordinates of the ticks at 0,
// TickStep, 2*TickStep and so on up to DomainMax.
func (p *Plot) Ticks() []int {
	var out []int
	for i := 0; ; i++ {
		v := float64(i) * p.TickStep
		if v > p.DomainMax {
			break
		}
		out = append(out, p.Height-p.BarHeight(v))
	}
	return out
}
