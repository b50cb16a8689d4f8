// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 CO2, temperature
// and humidity sensor module.
//
// The sensor speaks a command/response protocol over I²C. Commands are 16-bit
// words, optionally followed by argument words. Every 16-bit word sent as an
// argument or returned in a response is followed by a CRC-8 byte. Measurement
// values are IEEE-754 floats transmitted as two such words, most significant
// word first.
//
// The interface description requires a pause of at least 3 ms between the
// end of a command write and the start of the response read. Dev enforces it
// through Opts.ReadDelay.
//
// # Datasheet
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
