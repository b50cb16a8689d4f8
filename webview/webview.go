// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package webview provides a panel implementing an HTTP request handler.
// Every request gets a snapshot of the last frame displayed.
//
// The primary use case is the development of the screen layout on a host
// machine. Devices with network connectivity can use it to provide a copy of
// their e-paper display via a web interface. PNG is used by default; JPEG can
// be selected via Options.Format or using the "format" URL parameter.
package webview

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"net/http"
	"strconv"
	"sync"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/dioxide/refresh"
)

// Options for webview displays.
type Options struct {
	// Width and height of the frame.
	Width, Height int

	// Format specifies the default image format sent to clients.
	Format ImageFormat
}

// Display keeps the last frame and serves it over HTTP.
type Display struct {
	defaultFormat ImageFormat

	mu       sync.Mutex
	frame    *image1bit.VerticalLSB
	mode     refresh.Mode
	updates  int
	snapshot map[ImageFormat][]byte
}

var _ http.Handler = (*Display)(nil)

// New creates a new webview display showing a white frame.
func New(opt *Options) (*Display, error) {
	if opt.Width <= 0 || opt.Height <= 0 {
		return nil, fmt.Errorf("webview: invalid size %dx%d", opt.Width, opt.Height)
	}
	frame := image1bit.NewVerticalLSB(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)
	return &Display{
		defaultFormat: opt.Format,
		frame:         frame,
		snapshot:      map[ImageFormat][]byte{},
	}, nil
}

// String returns the name of the device.
func (d *Display) String() string {
	return "WebView"
}

// Halt implements conn.Resource.
func (d *Display) Halt() error {
	return nil
}

// Bounds returns the frame size.
func (d *Display) Bounds() image.Rectangle {
	return d.frame.Bounds()
}

// Update replaces the frame served to clients.
func (d *Display) Update(img image.Image, mode refresh.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.frame, d.frame.Bounds(), img, img.Bounds().Min)
	d.mode = mode
	d.updates++
	clear(d.snapshot)
	return nil
}

func (d *Display) encodeLocked(format ImageFormat) ([]byte, error) {
	if b, ok := d.snapshot[format]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	if err := format.encode(&buf, d.frame); err != nil {
		return nil, err
	}
	d.snapshot[format] = buf.Bytes()
	return buf.Bytes(), nil
}

// ServeHTTP handles HTTP GET requests and sends the current frame in
// response. Clients can explicitly request PNG or JPEG images using the
// "format" parameter ("?format=png", "?format=jpeg"). The X-Refresh-Mode and
// X-Refresh-Count headers describe the last update.
func (d *Display) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	format := d.defaultFormat
	if value := r.URL.Query().Get("format"); value != "" {
		f, err := ImageFormatFromString(value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}

	d.mu.Lock()
	payload, err := d.encodeLocked(format)
	mode, updates := d.mode, d.updates
	d.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", format.mimeType())
	h.Set("Content-Length", strconv.Itoa(len(payload)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Refresh-Mode", mode.String())
	h.Set("X-Refresh-Count", strconv.Itoa(updates))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(payload)
}
