// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen shows monochrome frames on a terminal using ANSI color
// codes.
//
// Each character cell covers two pixel rows, which roughly matches the
// aspect ratio of terminal fonts. A cell whose two pixels differ is drawn
// in gray. Useful to work on the screen layout without an e-paper panel.
package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/dioxide/refresh"
)

// Opts represents the options available for this display.
type Opts struct {
	Width, Height int
	Palette       *ansi256.Palette
	// W receives the output. Defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is an e-paper panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	bounds  image.Rectangle
	palette ansi256.Palette

	mu      sync.Mutex
	frame   *image1bit.VerticalLSB
	buf     bytes.Buffer
	updates int
}

var (
	white = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	gray  = color.NRGBA{0x80, 0x80, 0x80, 0xff}
	black = color.NRGBA{0x00, 0x00, 0x00, 0xff}
)

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("screen: invalid size %dx%d", opts.Width, opts.Height)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	bounds := image.Rect(0, 0, opts.Width, opts.Height)
	return &Dev{
		w:       w,
		bounds:  bounds,
		palette: *p,
		frame:   image1bit.NewVerticalLSB(bounds),
	}, nil
}

func (d *Dev) String() string {
	return "Screen"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Bounds returns the size of the emulated panel.
func (d *Dev) Bounds() image.Rectangle {
	return d.bounds
}

// Update shows img. A full update clears the terminal first, a quick update
// overwrites the previous frame in place.
func (d *Dev) Update(img image.Image, mode refresh.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.frame, d.bounds, img, img.Bounds().Min)

	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if mode == refresh.Full {
		_, _ = d.buf.WriteString("\033[2J")
	}
	_, _ = d.buf.WriteString("\033[H\033[0m")
	for y := 0; y < d.bounds.Dy(); y += 2 {
		for x := 0; x < d.bounds.Dx(); x++ {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.cell(x, y)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.updates++
	_, _ = fmt.Fprintf(&d.buf, "%s refresh #%d\n", mode, d.updates)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// cell returns the color for the pixels (x, y) and (x, y+1).
func (d *Dev) cell(x, y int) color.NRGBA {
	top := d.frame.BitAt(x, y)
	bottom := top
	if y+1 < d.bounds.Dy() {
		bottom = d.frame.BitAt(x, y+1)
	}
	switch {
	case bool(top && bottom):
		return white
	case bool(top || bottom):
		return gray
	default:
		return black
	}
}

var _ fmt.Stringer = &Dev{}
