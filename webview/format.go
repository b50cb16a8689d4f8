// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package webview

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"slices"
)

// ImageFormat selects the encoding of a frame snapshot.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG

	// DefaultFormat is the format used when not set explicitly in options or
	// as a URL parameter.
	DefaultFormat = PNG
)

var (
	pngEncoder  = png.Encoder{CompressionLevel: png.BestSpeed}
	jpegOptions = jpeg.Options{Quality: 95}
)

// codec describes how snapshots in one format are named, labeled and
// encoded.
type codec struct {
	name     string
	mimeType string
	params   []string
	encode   func(w io.Writer, img image.Image) error
}

var codecs = [...]codec{
	PNG: {
		name:     "PNG",
		mimeType: "image/png",
		params:   []string{"png"},
		encode:   pngEncoder.Encode,
	},
	JPEG: {
		name:     "JPEG",
		mimeType: "image/jpeg",
		params:   []string{"jpg", "jpeg"},
		encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpegOptions)
		},
	},
}

func (f ImageFormat) codec() (codec, bool) {
	if f < 0 || int(f) >= len(codecs) {
		return codec{}, false
	}
	return codecs[f], true
}

func (f ImageFormat) String() string {
	if c, ok := f.codec(); ok {
		return c.name
	}
	return fmt.Sprint(int(f))
}

func (f ImageFormat) mimeType() string {
	if c, ok := f.codec(); ok {
		return c.mimeType
	}
	return "application/octet-stream"
}

// encode writes img to w in format f.
func (f ImageFormat) encode(w io.Writer, img image.Image) error {
	c, ok := f.codec()
	if !ok {
		return fmt.Errorf("unhandled image format %s", f)
	}
	return c.encode(w, img)
}

// ImageFormatFromString returns the ImageFormat value for the given "format"
// URL parameter.
func ImageFormatFromString(value string) (ImageFormat, error) {
	for f, c := range codecs {
		if slices.Contains(c.params, value) {
			return ImageFormat(f), nil
		}
	}
	return DefaultFormat, fmt.Errorf("unrecognized image format %q", value)
}
