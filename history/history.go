// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package history keeps a bounded, insertion ordered record of measurements.
//
// A Ring has a fixed capacity chosen at construction. Pushing into a full
// Ring evicts the single oldest entry first, so the Ring always holds the
// most recent Cap() values, oldest first.
package history

import (
	"errors"
	"iter"
)

// ErrCapacity is returned by New for a capacity below one.
var ErrCapacity = errors.New("history: capacity must be at least 1")

// Ring is a fixed capacity FIFO that evicts its oldest entry on overflow. It
// is not safe for concurrent use.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// New returns an empty Ring holding at most capacity values.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	return &Ring[T]{buf: make([]T, capacity)}, nil
}

// Push appends v, evicting the oldest value when the Ring is full.
func (r *Ring[T]) Push(v T) {
	if r.n == len(r.buf) {
		r.buf[r.start] = v
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.n)%len(r.buf)] = v
	r.n++
}

// Len returns the number of values held.
func (r *Ring[T]) Len() int {
	return r.n
}

// Cap returns the capacity given to New.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// IsFull reports whether the next Push evicts a value.
func (r *Ring[T]) IsFull() bool {
	return r.n == len(r.buf)
}

// At returns the i-th value, 0 being the oldest. It panics if i is out of
// range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("history: index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the most recently pushed value.
func (r *Ring[T]) Last() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.n - 1), true
}

// All iterates over the values, oldest first, with their index. The Ring is
// not consumed and can be iterated any number of times.
func (r *Ring[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range r.n {
			if !yield(i, r.buf[(r.start+i)%len(r.buf)]) {
				return
			}
		}
	}
}

// Values returns a copy of the values, oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.n)
	for _, v := range r.All() {
		out = append(out, v)
	}
	return out
}
