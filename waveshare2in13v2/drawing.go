// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"encoding/binary"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// dataDimensions returns the size in terms of bytes needed to fill the
// display.
func dataDimensions(opts *Opts) (int, int) {
	return opts.Height, (opts.Width + 7) / 8
}

// setMemoryArea configures the target drawing area (horizontal is in bytes,
// vertical in pixels).
func setMemoryArea(ctrl controller, area image.Rectangle) {
	startX, endX := uint8(area.Min.X), uint8(area.Max.X-1)
	startY, endY := uint16(area.Min.Y), uint16(area.Max.Y-1)

	startEndY := [4]byte{}
	binary.LittleEndian.PutUint16(startEndY[0:], startY)
	binary.LittleEndian.PutUint16(startEndY[2:], endY)

	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendData([]byte{
		// Y increment, X increment; update address counter in X direction
		0b011,
	})

	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{startX, endX})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData(startEndY[:4])

	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{startX})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData(startEndY[:2])
}

// packRow returns row y of buf, 8 pixels per byte with the leftmost pixel in
// the most significant bit. A set bit is white.
func packRow(buf *image1bit.VerticalLSB, y, cols int) []byte {
	data := make([]byte, cols)
	for x := range data {
		for bit := 0; bit < 8; bit++ {
			if buf.BitAt(x*8+bit, y) {
				data[x] |= 0x80 >> bit
			}
		}
	}
	return data
}

// writeRAM uploads the whole of buf into the frame buffer selected by cmd.
func writeRAM(ctrl controller, cmd byte, buf *image1bit.VerticalLSB, opts *Opts) {
	rows, cols := dataDimensions(opts)
	setMemoryArea(ctrl, image.Rect(0, 0, cols, rows))
	ctrl.sendCommand(cmd)
	for y := 0; y < rows; y++ {
		ctrl.sendData(packRow(buf, y, cols))
	}
}
