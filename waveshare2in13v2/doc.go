// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in13v2 controls the Waveshare 2.13" v2 e-paper display.
//
// The controller holds two frame buffers. A full update drives every pixel
// through the full waveform. A quick update uses the partial waveform, which
// only moves pixels that differ between the old frame buffer and the new
// one, so the driver keeps a copy of the last frame it displayed.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/d/d5/2.13inch_e-Paper_Specification.pdf
//
// Product page:
//
// 2.13 Inch version 2: https://www.waveshare.com/wiki/2.13inch_e-Paper_HAT
package waveshare2in13v2
