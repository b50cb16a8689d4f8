// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the checksum and framing helpers shared by the
// Sensirion style I²C protocols in this module.
package common

import "github.com/sigurn/crc8"

// sensirion is the CRC-8 variant documented in the SCD30 interface
// description, section 1.1.3: polynomial 0x31, init 0xff, no reflection and
// no final xor.
var sensirion = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xff,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xf7,
	Name:   "CRC-8/NRSC-5",
})

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Every recorded device response depends on these exact
// parameters.
func CRC8(bytes []byte) byte {
	return crc8.Checksum(bytes, sensirion)
}

// AppendWord appends w in big-endian order followed by its CRC byte, which is
// how command arguments are framed on the wire.
func AppendWord(dst []byte, w uint16) []byte {
	hi, lo := byte(w>>8), byte(w)
	return append(dst, hi, lo, CRC8([]byte{hi, lo}))
}
