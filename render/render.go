// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render composes the monitor screen: the latest measurement, a bar
// chart of the CO2 history and a statistics line.
//
// Rendering is deterministic. The same Frame drawn twice produces the same
// pixels, which quick refreshes of bistable panels rely on.
package render

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/dioxide/chart"
	"github.com/GermanBionicSystems/dioxide/history"
	"github.com/GermanBionicSystems/dioxide/scd30"
)

// Frame is the data shown on one screen.
type Frame struct {
	Measurement scd30.Measurement
	// History may be nil.
	History *history.Ring[scd30.Measurement]
	// Updates is the number of completed panel updates.
	Updates uint
}

// Renderer draws frames with a fixed layout.
type Renderer struct {
	layout Layout
	plot   *chart.Plot
	label  font.Face
	value  font.Face
	stats  font.Face
}

// New returns a Renderer for layout and a history of capacity entries.
func New(layout Layout, capacity int) (*Renderer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	plot, err := chart.Inside(layout.History, capacity)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parsing font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parsing font: %w", err)
	}
	return &Renderer{
		layout: layout,
		plot:   plot,
		label:  newFace(regular, layout.LabelSize),
		value:  newFace(bold, layout.ValueSize),
		stats:  newFace(regular, layout.StatsSize),
	}, nil
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Bounds returns the size of the frames drawn.
func (r *Renderer) Bounds() image.Rectangle {
	return r.layout.Bounds
}

// Plot returns the geometry of the history chart.
func (r *Renderer) Plot() *chart.Plot {
	return r.plot
}

// Draw clears dst and draws f on it. Pixels of dst outside of Bounds are
// left untouched.
func (r *Renderer) Draw(dst draw.Image, f *Frame) {
	l := &r.layout
	dc := gg.NewContext(l.Bounds.Dx(), l.Bounds.Dy())
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	m := f.Measurement
	r.row(dc, l.Rows[0], "CO2 [ppm]", m.CO2)
	r.row(dc, l.Rows[1], "Temperature [°C]", m.Temperature)
	r.row(dc, l.Rows[2], "Humidity [%]", m.Humidity)

	r.history(dc, f.History)

	queue := 0
	if f.History != nil {
		queue = f.History.Len()
	}
	dc.SetFontFace(r.stats)
	dc.DrawString(fmt.Sprintf("updates: %d, queue: %d", f.Updates, queue), float64(l.Stats.X), float64(l.Stats.Y))

	draw.Draw(dst, l.Bounds, dc.Image(), image.Point{}, draw.Src)
}

func (r *Renderer) row(dc *gg.Context, row Row, label string, v float32) {
	dc.SetFontFace(r.label)
	dc.DrawString(label, float64(r.layout.LabelX), float64(row.Label))
	dc.SetFontFace(r.value)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), float64(r.layout.ValueX), float64(row.Value), 1, 0)
}

// history draws the tick marks on both sides of the plot and one bar per
// entry, oldest on the left.
func (r *Renderer) history(dc *gg.Context, h *history.Ring[scd30.Measurement]) {
	origin := r.layout.History.Min.Add(image.Pt(chart.TickMargin+chart.TickSize, chart.TickMargin+chart.TickSize))
	left := origin.X - chart.TickMargin - chart.TickSize
	right := origin.X + r.plot.Width + chart.TickMargin
	for _, y := range r.plot.Ticks() {
		fill(dc, image.Rect(left, origin.Y+y, left+chart.TickSize, origin.Y+y+1))
		fill(dc, image.Rect(right, origin.Y+y, right+chart.TickSize, origin.Y+y+1))
	}
	if h == nil {
		return
	}
	values := make([]float64, 0, h.Len())
	for _, m := range h.All() {
		values = append(values, float64(m.CO2))
	}
	for _, b := range r.plot.Bars(values) {
		if !b.Empty() {
			fill(dc, b.Add(origin))
		}
	}
}

func fill(dc *gg.Context, b image.Rectangle) {
	dc.DrawRectangle(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
	dc.Fill()
}
