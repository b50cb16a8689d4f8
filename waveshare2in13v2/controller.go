// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/dioxide/refresh"
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.waitUntilIdle()
	ctrl.sendCommand(swReset)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(setAnalogBlockControl)
	ctrl.sendData([]byte{0x54})

	ctrl.sendCommand(setDigitalBlockControl)
	ctrl.sendData([]byte{0x3B})

	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{
		byte((opts.Height - 1) & 0xFF),
		byte((opts.Height - 1) >> 8),
		0x00,
	})
}

// setLUT programs the waveform and the driving voltages stored after it.
func setLUT(ctrl controller, lut LUT) {
	ctrl.sendCommand(writeLutRegister)
	ctrl.sendData(lut[:lutSize])

	ctrl.sendCommand(gateDrivingVoltageControl)
	ctrl.sendData([]byte{lut[lutSize]})

	ctrl.sendCommand(sourceDrivingVoltageControl)
	ctrl.sendData(lut[lutSize+1 : lutSize+4])

	ctrl.sendCommand(setDummyLinePeriod)
	ctrl.sendData([]byte{lut[lutSize+4]})

	ctrl.sendCommand(setGateTime)
	ctrl.sendData([]byte{lut[lutSize+5]})
}

func configFull(ctrl controller, opts *Opts) {
	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{0x03})

	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{0x55})

	setLUT(ctrl, opts.FullUpdate)
}

func configPartial(ctrl controller, opts *Opts) {
	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{0x26})

	ctrl.waitUntilIdle()

	setLUT(ctrl, opts.PartialUpdate)

	// Undocumented command used in vendor example code.
	ctrl.sendCommand(writeRegisterForDisplayOption)
	ctrl.sendData([]byte{0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00})

	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{0xC0})

	ctrl.sendCommand(masterActivation)

	ctrl.waitUntilIdle()

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{0x01})
}

func activate(ctrl controller, sequence byte) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{sequence})
	ctrl.sendCommand(masterActivation)
	ctrl.waitUntilIdle()
}

// updateFrame displays next. A full update loads next into both frame
// buffers. A quick update loads prev as the old frame so only the pixels
// that differ are driven.
func updateFrame(ctrl controller, opts *Opts, next, prev *image1bit.VerticalLSB, mode refresh.Mode) {
	if mode == refresh.Quick && prev != nil {
		configPartial(ctrl, opts)
		writeRAM(ctrl, writeRAMRed, prev, opts)
		writeRAM(ctrl, writeRAMBW, next, opts)
		activate(ctrl, activatePartial)
		return
	}
	configFull(ctrl, opts)
	writeRAM(ctrl, writeRAMRed, next, opts)
	writeRAM(ctrl, writeRAMBW, next, opts)
	activate(ctrl, activateFull)
}

func deepSleep(ctrl controller) {
	// Turn off DC/DC converter, clock, output load and MCU. RAM content is
	// retained.
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{0x01})
}
