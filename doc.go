// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dioxide is a CO2 monitor built on periph: an SCD30 sensor driver,
// a bounded measurement history, e-paper refresh scheduling and a trend
// chart. See cmd/dioxide for the executable.
package dioxide
