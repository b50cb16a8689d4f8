// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package refresh decides how a bistable display is redrawn.
//
// A full redraw is slow and flashes the panel but clears ghosting. A quick
// redraw only drives the pixels that differ from the previous frame. The
// Scheduler performs a full redraw on the first update and every N-th update
// after that, and quick redraws in between.
package refresh

import "fmt"

// Mode is a redraw mode.
type Mode uint8

const (
	// Full redraws every pixel and resets the panel's previous frame.
	Full Mode = iota
	// Quick redraws relative to the previously displayed frame.
	Quick
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Quick:
		return "quick"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// DefaultFullEvery is the number of updates per full redraw.
const DefaultFullEvery = 10

// ModeFor returns the mode of update number count when one in every updates
// is a full redraw.
func ModeFor(count, every uint) Mode {
	if count%every == 0 {
		return Full
	}
	return Quick
}

// Scheduler counts completed updates and selects the mode of the next one.
//
// ModeFor is the periodic rule on the update count alone. Mode applies it
// only while the panel holds a frame from a completed update; before the
// first update and after Invalidate it returns Full regardless of Count, so
// the mode is then not a function of Count() % Every().
//
// The zero value is not usable; use New.
type Scheduler struct {
	every uint
	count uint
	// previous is true when the panel holds a frame drawn by a completed
	// update, which a quick redraw can be relative to.
	previous bool
}

// New returns a Scheduler doing a full redraw once every updates.
func New(every uint) (*Scheduler, error) {
	if every < 1 {
		return nil, fmt.Errorf("refresh: full redraw period must be at least 1, got %d", every)
	}
	return &Scheduler{every: every}, nil
}

// Mode returns the mode for the next update. It is Full for update count 0
// and every multiple of the period, and whenever no previous frame is
// authoritative.
func (s *Scheduler) Mode() Mode {
	if !s.previous {
		return Full
	}
	return ModeFor(s.count, s.every)
}

// Advance records a completed update. The counter wraps around; only its
// value modulo the period matters.
func (s *Scheduler) Advance() {
	s.count++
	s.previous = true
}

// Invalidate forgets the previous frame, forcing the next update to be a
// full redraw. Use it when a panel update failed half way.
func (s *Scheduler) Invalidate() {
	s.previous = false
}

// Count returns the number of completed updates.
func (s *Scheduler) Count() uint {
	return s.count
}

// HasPrevious reports whether a previous frame is authoritative.
func (s *Scheduler) HasPrevious() bool {
	return s.previous
}

// Every returns the full redraw period.
func (s *Scheduler) Every() uint {
	return s.every
}
