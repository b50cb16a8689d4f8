// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/dioxide/refresh"
)

// Commands
const (
	driverOutputControl            byte = 0x01
	gateDrivingVoltageControl      byte = 0x03
	sourceDrivingVoltageControl    byte = 0x04
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	masterActivation               byte = 0x20
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeRAMRed                    byte = 0x26
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	writeRegisterForDisplayOption  byte = 0x37
	setDummyLinePeriod             byte = 0x3A
	setGateTime                    byte = 0x3B
	borderWaveformControl          byte = 0x3C
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
	setAnalogBlockControl          byte = 0x74
	setDigitalBlockControl         byte = 0x7E
)

// Display update sequences for displayUpdateControl2.
const (
	activateFull    byte = 0xC7
	activatePartial byte = 0x0C
)

const (
	// Number of waveform bytes at the start of a LUT. The driving voltages
	// follow.
	lutSize = 70

	busyPollPeriod = 100 * time.Millisecond
	busyPolls      = 100
)

// LUT contains the waveform that is used to program the display, followed by
// the gate voltage, the three source voltages, the dummy line period and the
// gate time.
type LUT []byte

// Opts definies the structure of the display configuration.
type Opts struct {
	Width         int
	Height        int
	FullUpdate    LUT
	PartialUpdate LUT
}

// EPD2in13v2 contains the display configuration for the Waveshare 2in13v2.
var EPD2in13v2 = Opts{
	Width:  122,
	Height: 250,
	FullUpdate: LUT{
		0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
		0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

		0x03, 0x03, 0x00, 0x00, 0x02,
		0x09, 0x09, 0x00, 0x00, 0x02,
		0x03, 0x03, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,

		0x15, 0x41, 0xA8, 0x32, 0x30, 0x0A,
	},
	PartialUpdate: LUT{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

		0x0A, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,

		0x15, 0x41, 0xA8, 0x32, 0x30, 0x0A,
	},
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	opts  *Opts
	sleep func(time.Duration)

	mu sync.Mutex
	// previous is the frame last displayed, nil when the panel content is
	// unknown.
	previous *image1bit.VerticalLSB
	asleep   bool
}

// New creates new handler which is used to access the display. Init is
// called on the first update.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if len(opts.FullUpdate) < lutSize+6 || len(opts.PartialUpdate) < lutSize+6 {
		return nil, fmt.Errorf("waveshare2in13v2: LUTs must be %d bytes long", lutSize+6)
	}
	c, err := p.Connect(5*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, err
	}

	d := &Dev{
		c:      c,
		dc:     dc,
		cs:     cs,
		rst:    rst,
		busy:   busy,
		opts:   opts,
		sleep:  time.Sleep,
		asleep: true,
	}

	return d, nil
}

// NewHat creates new handler which is used to access the display. Default Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// Init resets the controller and configures it. The panel content becomes
// unknown, so the next quick update is performed as a full one.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.init()
}

func (d *Dev) init() error {
	eh := errorHandler{d: d}
	d.reset(&eh)
	initDisplay(&eh, d.opts)
	if eh.err != nil {
		return fmt.Errorf("waveshare2in13v2: init: %w", eh.err)
	}
	d.asleep = false
	return nil
}

// Update displays img with the given refresh mode. The controller is woken up
// first if needed. A quick update without a previously displayed frame is
// performed as a full update. On failure the previous frame is forgotten.
func (d *Dev) Update(img image.Image, mode refresh.Mode) error {
	next := image1bit.NewVerticalLSB(d.Bounds())
	draw.Src.Draw(next, next.Bounds(), img, img.Bounds().Min)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.asleep {
		if err := d.init(); err != nil {
			d.previous = nil
			return err
		}
	}
	eh := errorHandler{d: d}
	updateFrame(&eh, d.opts, next, d.previous, mode)
	if eh.err != nil {
		d.previous = nil
		return fmt.Errorf("waveshare2in13v2: %s update: %w", mode, eh.err)
	}
	d.previous = next
	return nil
}

// Clear fills the display with c using a full update.
func (d *Dev) Clear(c color.Color) error {
	return d.Update(&image.Uniform{C: image1bit.BitModel.Convert(c)}, refresh.Full)
}

// ColorModel returns a 1Bit color model.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the bounds for the configurated display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Sleep makes the controller enter deep sleep mode. The next update wakes it
// up.
func (d *Dev) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.asleep {
		return nil
	}
	eh := errorHandler{d: d}
	deepSleep(&eh)
	if eh.err != nil {
		return fmt.Errorf("waveshare2in13v2: sleep: %w", eh.err)
	}
	d.asleep = true
	return nil
}

// Halt clears the display and puts the controller to sleep.
func (d *Dev) Halt() error {
	if err := d.Clear(image1bit.On); err != nil {
		return err
	}
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.opts.Width, d.opts.Height)
}

// reset pulses the hardware reset line.
func (d *Dev) reset(eh *errorHandler) {
	eh.rstOut(gpio.High)
	d.sleep(200 * time.Millisecond)
	eh.rstOut(gpio.Low)
	d.sleep(200 * time.Millisecond)
	eh.rstOut(gpio.High)
	d.sleep(200 * time.Millisecond)
}

var _ conn.Resource = &Dev{}
