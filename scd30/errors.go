// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
)

// ErrChecksum is returned, wrapped, when a CRC byte in a response does not
// match the CRC computed over the word preceding it.
var ErrChecksum = errors.New("invalid crc")

// TransportError reports a failure of the underlying bus. The bus error is
// available through errors.Unwrap.
type TransportError struct {
	// Cmd is the command word of the failed transaction.
	Cmd uint16
	// Op is either "write" or "read".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scd30 cmd 0x%04x: %s: %v", e.Cmd, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
