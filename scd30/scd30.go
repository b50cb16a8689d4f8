// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/dioxide/common"
)

const (
	// The device only supports this i2c address.
	SensorAddress i2c.Addr = 0x61

	// MinReadDelay is the minimum pause between writing a command and reading
	// its response.
	MinReadDelay = 3 * time.Millisecond

	minInterval = 2 * time.Second
	maxInterval = 1800 * time.Second

	// Used by Sense while waiting for the data ready flag.
	readyPollPeriod = 100 * time.Millisecond
	readyPolls      = 30
)

type cmd uint16

// Structure to simplify sending commands to the device.
type command struct {
	cmdWord cmd
	// The expected number of bytes returned. 0, 3, or 18.
	responseSize int
}

var cmdStartContinuousMeasurement = command{
	cmdWord: 0x0010,
}

var cmdStopContinuousMeasurement = command{
	cmdWord: 0x0104,
}

var cmdGetDataReadyStatus = command{
	cmdWord:      0x0202,
	responseSize: 3,
}

var cmdReadMeasurement = command{
	cmdWord:      0x0300,
	responseSize: 18,
}

var cmdSetMeasurementInterval = command{
	cmdWord: 0x4600,
}

var cmdReadFirmwareVersion = command{
	cmdWord:      0xd100,
	responseSize: 3,
}

var cmdSoftReset = command{
	cmdWord: 0xd304,
}

// Measurement is one decoded reading.
type Measurement struct {
	// CO2 concentration in parts per million.
	CO2 float32
	// Temperature in degrees Celsius.
	Temperature float32
	// Relative humidity in percent.
	Humidity float32
}

func (m Measurement) String() string {
	return fmt.Sprintf("CO2: %.2f PPM Temperature: %.2f°C Humidity: %.2f%%rH", m.CO2, m.Temperature, m.Humidity)
}

// Env converts the temperature and humidity into periph units. The CO2
// concentration has no equivalent in physic.Env.
func (m Measurement) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(m.Temperature)*float64(physic.Celsius)),
		Humidity:    physic.RelativeHumidity(float64(m.Humidity) * float64(physic.PercentRH)),
	}
}

// FirmwareVersion is the version reported by the sensor.
type FirmwareVersion struct {
	Major uint8
	Minor uint8
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Opts holds the timing configuration of the driver.
type Opts struct {
	// ReadDelay is the pause between a command write and the response read.
	// Zero selects MinReadDelay.
	ReadDelay time.Duration
	// Sleep performs the pauses. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// OnError receives the errors of readings skipped by SenseContinuous.
	OnError func(error)
}

// DefaultOpts is used when nil is passed to NewI2C.
var DefaultOpts = Opts{
	ReadDelay: MinReadDelay,
}

// Dev represents an SCD30 device.
type Dev struct {
	// The i2c bus device.
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex
	// closed to stop SenseContinuous.
	shutdown chan struct{}
}

// NewI2C returns a driver for the SCD30 on the supplied bus. The constant
// SensorAddress should be supplied as the value for addr. No bus traffic is
// generated.
func NewI2C(b i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.ReadDelay == 0 {
		o.ReadDelay = MinReadDelay
	}
	if o.ReadDelay < MinReadDelay {
		return nil, fmt.Errorf("scd30: read delay %s is below the %s minimum", o.ReadDelay, MinReadDelay)
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return &Dev{d: &i2c.Dev{Bus: b, Addr: uint16(addr)}, opts: o}, nil
}

// FirmwareVersion reads the firmware version of the sensor.
func (d *Dev) FirmwareVersion() (FirmwareVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdReadFirmwareVersion)
	if err != nil {
		return FirmwareVersion{}, err
	}
	return FirmwareVersion{Major: uint8(words[0] >> 8), Minor: uint8(words[0])}, nil
}

// MeasurementReady reports whether a new measurement can be read. Only the
// status value 1 means ready; every other value is treated as not ready.
func (d *Dev) MeasurementReady() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.measurementReady()
}

func (d *Dev) measurementReady() (bool, error) {
	words, err := d.sendCommand(cmdGetDataReadyStatus)
	if err != nil {
		return false, err
	}
	return words[0] == 1, nil
}

// StartContinuousMeasurement starts periodic measurements. pressureMbar is the
// ambient pressure used for compensation, in millibar. Zero disables pressure
// compensation.
func (d *Dev) StartContinuousMeasurement(pressureMbar uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdStartContinuousMeasurement, pressureMbar)
	return err
}

// StopContinuousMeasurement stops periodic measurements.
func (d *Dev) StopContinuousMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdStopContinuousMeasurement)
	return err
}

// SetMeasurementInterval sets the period of continuous measurements. The
// device accepts whole seconds between 2 s and 1800 s.
func (d *Dev) SetMeasurementInterval(interval time.Duration) error {
	if interval < minInterval || interval > maxInterval {
		return fmt.Errorf("scd30: invalid measurement interval %s. must be between %s and %s", interval, minInterval, maxInterval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetMeasurementInterval, uint16(interval/time.Second))
	return err
}

// SoftReset restarts the sensor. Settings stored in the sensor survive.
func (d *Dev) SoftReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSoftReset)
	return err
}

// ReadMeasurement reads the most recent measurement. Call MeasurementReady
// first; reading while no new data is available returns stale values.
func (d *Dev) ReadMeasurement() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readMeasurement()
}

func (d *Dev) readMeasurement() (Measurement, error) {
	words, err := d.sendCommand(cmdReadMeasurement)
	if err != nil {
		return Measurement{}, err
	}
	return decodeMeasurement(words), nil
}

// Sense waits for the next measurement and returns its temperature and
// humidity. Continuous measurement must have been started.
func (d *Dev) Sense(e *physic.Env) error {
	e.Temperature = 0
	e.Humidity = 0
	e.Pressure = 0

	d.mu.Lock()
	defer d.mu.Unlock()
	for range readyPolls {
		ready, err := d.measurementReady()
		if err != nil {
			return err
		}
		if ready {
			m, err := d.readMeasurement()
			if err != nil {
				return err
			}
			*e = m.Env()
			return nil
		}
		d.opts.Sleep(readyPollPeriod)
	}
	return errors.New("scd30: timeout waiting for data ready status")
}

// SenseContinuous reads the sensor every interval and writes the readings to
// the returned channel. A failed reading is skipped and passed to
// Opts.OnError. To terminate, call Halt(); the channel is closed once the
// loop exits.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("scd30: SenseContinuous() running already")
	}
	if interval < minInterval {
		return nil, fmt.Errorf("scd30: sample interval %s is shorter than the device minimum %s", interval, minInterval)
	}
	shutdown := make(chan struct{})
	d.shutdown = shutdown
	ch := make(chan physic.Env, 16)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := d.Sense(&e); err != nil {
					if d.opts.OnError != nil {
						d.opts.OnError(err)
					}
					continue
				}
				if len(ch) < cap(ch) {
					ch <- e
				}
			}
		}
	}()
	return ch, nil
}

// Precision returns the resolution of the converted readings. The sensor
// reports floats; the values are rounded to hundredths for display.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Halt terminates a running SenseContinuous. Continuous measurement on the
// device keeps running; use StopContinuousMeasurement for that.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		close(d.shutdown)
		d.shutdown = nil
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.d.String())
}

// All commands to the sensor go through this function. Callers hold d.mu.
//
// Once the command write succeeds the response is always read, so the bus is
// never left in the middle of a transaction.
func (d *Dev) sendCommand(cmd command, args ...uint16) ([]uint16, error) {
	w := make([]byte, 2, 2+len(args)*wordSize)
	w[0] = byte(cmd.cmdWord >> 8)
	w[1] = byte(cmd.cmdWord)
	for _, arg := range args {
		w = common.AppendWord(w, arg)
	}

	if err := d.d.Tx(w, nil); err != nil {
		return nil, &TransportError{Cmd: uint16(cmd.cmdWord), Op: "write", Err: err}
	}
	if cmd.responseSize == 0 {
		return nil, nil
	}

	d.opts.Sleep(d.opts.ReadDelay)

	r := make([]byte, cmd.responseSize)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, &TransportError{Cmd: uint16(cmd.cmdWord), Op: "read", Err: err}
	}
	words, err := decodeWords(r)
	if err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: %w", cmd.cmdWord, err)
	}
	return words, nil
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
