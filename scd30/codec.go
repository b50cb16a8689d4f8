// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GermanBionicSystems/dioxide/common"
)

// Each word on the wire is two data bytes followed by a CRC byte.
const wordSize = 3

// decodeWords verifies the CRC of every word in the response and returns the
// words. It fails if any embedded CRC is wrong.
func decodeWords(r []byte) ([]uint16, error) {
	if len(r)%wordSize != 0 {
		return nil, fmt.Errorf("scd30: response length %d is not a multiple of %d", len(r), wordSize)
	}
	words := make([]uint16, len(r)/wordSize)
	for ix := range words {
		chunk := r[ix*wordSize : (ix+1)*wordSize]
		if crc := common.CRC8(chunk[:2]); crc != chunk[2] {
			return nil, fmt.Errorf("%w in word %d (0x%02x != 0x%02x)", ErrChecksum, ix, chunk[2], crc)
		}
		words[ix] = binary.BigEndian.Uint16(chunk)
	}
	return words, nil
}

// wordsToFloat joins two words in wire order, most significant word first,
// and reinterprets the result as a big-endian float.
func wordsToFloat(msw, lsw uint16) float32 {
	return math.Float32frombits(uint32(msw)<<16 | uint32(lsw))
}

// decodeMeasurement converts the six words of a read measurement response.
// The order on the wire is CO2, temperature, humidity.
func decodeMeasurement(words []uint16) Measurement {
	return Measurement{
		CO2:         wordsToFloat(words[0], words[1]),
		Temperature: wordsToFloat(words[2], words[3]),
		Humidity:    wordsToFloat(words[4], words[5]),
	}
}
