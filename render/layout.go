// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"errors"
	"fmt"
	"image"
)

// Row holds the baselines of one label and its value.
type Row struct {
	Label, Value int
}

// Layout places the elements of a frame on a panel.
type Layout struct {
	// Bounds of the whole frame.
	Bounds image.Rectangle
	// LabelX is the left edge of the labels.
	LabelX int
	// ValueX is the right edge of the values.
	ValueX int
	// Rows for CO2, temperature and humidity, top to bottom.
	Rows [3]Row
	// History is the area of the history chart, including its ticks.
	History image.Rectangle
	// Stats is the baseline origin of the statistics line.
	Stats image.Point
	// Font sizes in points.
	LabelSize, ValueSize, StatsSize float64
}

// Layout2in9 fits a 128x296 panel in portrait orientation.
var Layout2in9 = Layout{
	Bounds:    image.Rect(0, 0, 128, 296),
	LabelX:    0,
	ValueX:    128,
	Rows:      [3]Row{{13, 40}, {63, 90}, {113, 140}},
	History:   image.Rect(7, 175, 7+114, 175+56),
	Stats:     image.Pt(5, 294),
	LabelSize: 8,
	ValueSize: 24,
	StatsSize: 7,
}

// Layout2in13 fits a 122x250 panel in portrait orientation.
var Layout2in13 = Layout{
	Bounds:    image.Rect(0, 0, 122, 250),
	LabelX:    0,
	ValueX:    122,
	Rows:      [3]Row{{11, 36}, {56, 81}, {101, 126}},
	History:   image.Rect(4, 150, 4+114, 150+56),
	Stats:     image.Pt(4, 246),
	LabelSize: 8,
	ValueSize: 22,
	StatsSize: 7,
}

// Validate checks that every element is inside the frame.
func (l *Layout) Validate() error {
	if l.Bounds.Empty() {
		return errors.New("render: empty layout bounds")
	}
	if !l.History.In(l.Bounds) {
		return fmt.Errorf("render: history area %v is outside of %v", l.History, l.Bounds)
	}
	if !l.Stats.In(l.Bounds) {
		return fmt.Errorf("render: stats origin %v is outside of %v", l.Stats, l.Bounds)
	}
	if l.LabelSize <= 0 || l.ValueSize <= 0 || l.StatsSize <= 0 {
		return errors.New("render: font sizes must be positive")
	}
	return nil
}
