// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Unit tests for the package. Note that this supports running on a live
// sensor, or using playback mode to simulate a live device.
//
// To use a live device, define the environment variable SCD30 and run go test.

package scd30

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const addr = uint16(SensorAddress)

// Measurement response from the interface description: 439.1 PPM, 27.2°C,
// 48.8%rH.
var measurementResponse = []uint8{
	0x43, 0xdb, 0xcb, 0x8c, 0x2e, 0x8f,
	0x41, 0xd9, 0x70, 0xe7, 0xff, 0xf5,
	0x42, 0x43, 0xbf, 0x3a, 0x1e, 0x81,
}

var firmwarePlayback = []i2ctest.IO{
	{Addr: addr, W: []uint8{0xd1, 0x00}},
	{Addr: addr, R: []uint8{0x03, 0x47, 0x06}},
}

var startPlayback = []i2ctest.IO{
	{Addr: addr, W: []uint8{0x00, 0x10, 0x03, 0xfc, 0x53}},
}

var measurementPlayback = []i2ctest.IO{
	{Addr: addr, W: []uint8{0x03, 0x00}},
	{Addr: addr, R: measurementResponse},
}

var sensePlayback = []i2ctest.IO{
	{Addr: addr, W: []uint8{0x02, 0x02}},
	{Addr: addr, R: []uint8{0x00, 0x00, 0x81}},
	{Addr: addr, W: []uint8{0x02, 0x02}},
	{Addr: addr, R: []uint8{0x00, 0x01, 0xb0}},
	{Addr: addr, W: []uint8{0x03, 0x00}},
	{Addr: addr, R: measurementResponse},
}

var liveDevice = os.Getenv("SCD30") != ""

// sleepRecorder replaces time.Sleep so tests run instantly and can verify the
// pauses the driver asked for.
type sleepRecorder []time.Duration

func (s *sleepRecorder) sleep(d time.Duration) {
	*s = append(*s, d)
}

// getDev returns a device on a playback bus loaded with ops, or on the
// default bus when a live device is present.
func getDev(t *testing.T, ops []i2ctest.IO) (*Dev, *i2ctest.Playback, *sleepRecorder) {
	t.Helper()
	var bus i2c.Bus
	var pb *i2ctest.Playback
	if liveDevice {
		if _, err := host.Init(); err != nil {
			t.Fatal(err)
		}
		b, err := i2creg.Open("")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = b.Close() })
		bus = b
	} else {
		pb = &i2ctest.Playback{Ops: ops, DontPanic: true}
		bus = pb
	}
	rec := &sleepRecorder{}
	opts := &Opts{Sleep: rec.sleep}
	if liveDevice {
		opts.Sleep = time.Sleep
	}
	dev, err := NewI2C(bus, SensorAddress, opts)
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb, rec
}

// done fails the test if the playback has unconsumed operations.
func done(t *testing.T, pb *i2ctest.Playback) {
	t.Helper()
	if pb == nil {
		return
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestNewI2C(t *testing.T) {
	if _, err := NewI2C(&i2ctest.Playback{}, SensorAddress, &Opts{ReadDelay: time.Millisecond}); err == nil {
		t.Error("expected error for read delay below minimum")
	}
	dev, err := NewI2C(&i2ctest.Playback{}, SensorAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dev.opts.ReadDelay != MinReadDelay {
		t.Errorf("default read delay %s, expected %s", dev.opts.ReadDelay, MinReadDelay)
	}
	if s := dev.String(); s == "" {
		t.Error("Dev.String() returned empty value.")
	}
}

func TestFirmwareVersion(t *testing.T) {
	dev, pb, rec := getDev(t, firmwarePlayback)
	defer done(t, pb)

	v, err := dev.FirmwareVersion()
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("firmware version %s", v)
	if liveDevice {
		return
	}
	if diff := cmp.Diff(v, FirmwareVersion{Major: 3, Minor: 71}); diff != "" {
		t.Errorf("FirmwareVersion() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration(*rec), []time.Duration{MinReadDelay}); diff != "" {
		t.Errorf("read delay difference (-got +want):\n%s", diff)
	}
}

func TestFirmwareVersionChecksum(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	dev, pb, _ := getDev(t, []i2ctest.IO{
		{Addr: addr, W: []uint8{0xd1, 0x00}},
		{Addr: addr, R: []uint8{0x03, 0x47, 0x07}},
	})
	defer done(t, pb)

	_, err := dev.FirmwareVersion()
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestMeasurementReady(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	for _, tc := range []struct {
		name string
		resp []uint8
		want bool
	}{
		{name: "ready", resp: []uint8{0x00, 0x01, 0xb0}, want: true},
		{name: "not ready", resp: []uint8{0x00, 0x00, 0x81}, want: false},
		{name: "unexpected value", resp: []uint8{0x00, 0x02, 0xe3}, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, pb, rec := getDev(t, []i2ctest.IO{
				{Addr: addr, W: []uint8{0x02, 0x02}},
				{Addr: addr, R: tc.resp},
			})
			defer done(t, pb)

			got, err := dev.MeasurementReady()
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("MeasurementReady()=%t expected %t", got, tc.want)
			}
			if len(*rec) != 1 {
				t.Errorf("expected one read delay, got %v", *rec)
			}
		})
	}
}

func TestMeasurementReadyChecksum(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	dev, pb, _ := getDev(t, []i2ctest.IO{
		{Addr: addr, W: []uint8{0x02, 0x02}},
		{Addr: addr, R: []uint8{0x00, 0x01, 0x81}},
	})
	defer done(t, pb)

	if _, err := dev.MeasurementReady(); !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestStartContinuousMeasurement(t *testing.T) {
	dev, pb, rec := getDev(t, startPlayback)
	defer done(t, pb)

	if err := dev.StartContinuousMeasurement(1020); err != nil {
		t.Fatal(err)
	}
	if !liveDevice && len(*rec) != 0 {
		t.Errorf("write-only command slept %v", *rec)
	}
}

func TestReadMeasurement(t *testing.T) {
	dev, pb, rec := getDev(t, measurementPlayback)
	defer done(t, pb)

	m, err := dev.ReadMeasurement()
	if err != nil {
		t.Fatal(err)
	}
	t.Log(m.String())
	if liveDevice {
		return
	}
	want := Measurement{
		CO2:         math.Float32frombits(0x43db8c2e),
		Temperature: math.Float32frombits(0x41d9e7ff),
		Humidity:    math.Float32frombits(0x42433a1e),
	}
	if diff := cmp.Diff(m, want); diff != "" {
		t.Errorf("ReadMeasurement() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration(*rec), []time.Duration{MinReadDelay}); diff != "" {
		t.Errorf("read delay difference (-got +want):\n%s", diff)
	}
}

func TestReadMeasurementChecksum(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	// Corrupt each CRC byte in turn.
	for word := 0; word < 6; word++ {
		resp := append([]uint8(nil), measurementResponse...)
		resp[word*3+2] ^= 0xff
		dev, pb, _ := getDev(t, []i2ctest.IO{
			{Addr: addr, W: []uint8{0x03, 0x00}},
			{Addr: addr, R: resp},
		})
		if _, err := dev.ReadMeasurement(); !errors.Is(err, ErrChecksum) {
			t.Errorf("word %d: expected ErrChecksum, got %v", word, err)
		}
		done(t, pb)
	}
}

func TestOtherCommands(t *testing.T) {
	if liveDevice {
		t.Skip("playback only")
	}
	dev, pb, _ := getDev(t, []i2ctest.IO{
		{Addr: addr, W: []uint8{0x46, 0x00, 0x00, 0x02, 0xe3}},
		{Addr: addr, W: []uint8{0x01, 0x04}},
		{Addr: addr, W: []uint8{0xd3, 0x04}},
	})
	defer done(t, pb)

	if err := dev.SetMeasurementInterval(2 * time.Second); err != nil {
		t.Error(err)
	}
	if err := dev.SetMeasurementInterval(time.Second); err == nil {
		t.Error("expected error for interval below 2s")
	}
	if err := dev.SetMeasurementInterval(time.Hour); err == nil {
		t.Error("expected error for interval above 1800s")
	}
	if err := dev.StopContinuousMeasurement(); err != nil {
		t.Error(err)
	}
	if err := dev.SoftReset(); err != nil {
		t.Error(err)
	}
}

var errBus = errors.New("bus fault")

// brokenBus fails reads, and writes when failWrite is set.
type brokenBus struct {
	failWrite bool
	writes    int
	reads     int
}

func (b *brokenBus) String() string { return "broken" }

func (b *brokenBus) SetSpeed(physic.Frequency) error { return nil }

func (b *brokenBus) Tx(addr uint16, w, r []byte) error {
	if len(r) == 0 {
		b.writes++
		if b.failWrite {
			return errBus
		}
		return nil
	}
	b.reads++
	return errBus
}

func TestTransportError(t *testing.T) {
	for _, tc := range []struct {
		name      string
		failWrite bool
		wantOp    string
		wantReads int
	}{
		{name: "write", failWrite: true, wantOp: "write", wantReads: 0},
		{name: "read", failWrite: false, wantOp: "read", wantReads: 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := &brokenBus{failWrite: tc.failWrite}
			dev, err := NewI2C(b, SensorAddress, &Opts{Sleep: func(time.Duration) {}})
			if err != nil {
				t.Fatal(err)
			}
			_, err = dev.ReadMeasurement()
			if !errors.Is(err, errBus) {
				t.Errorf("expected wrapped bus error, got %v", err)
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TransportError, got %T", err)
			}
			if te.Op != tc.wantOp || te.Cmd != 0x0300 {
				t.Errorf("unexpected transport error %#v", te)
			}
			if errors.Is(err, ErrChecksum) {
				t.Error("transport error reported as checksum error")
			}
			if b.reads != tc.wantReads {
				t.Errorf("reads=%d expected %d", b.reads, tc.wantReads)
			}
		})
	}
}

func TestSense(t *testing.T) {
	dev, pb, rec := getDev(t, sensePlayback)
	defer done(t, pb)

	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	t.Logf("Temperature: %s Humidity: %s", e.Temperature, e.Humidity)
	if liveDevice {
		return
	}
	// round to 2 sig figs for the floating point comparison.
	temp := e.Temperature - e.Temperature%(10*physic.MilliKelvin)
	if want := physic.ZeroCelsius + 27230*physic.MilliKelvin; temp != want {
		t.Errorf("temperature %s expected %s", temp, want)
	}
	hum := e.Humidity - e.Humidity%physic.MilliRH
	if want := 488 * physic.MilliRH; hum != want {
		t.Errorf("humidity %s expected %s", hum, want)
	}
	// Two reads, one poll wait.
	want := []time.Duration{MinReadDelay, readyPollPeriod, MinReadDelay, MinReadDelay}
	if diff := cmp.Diff([]time.Duration(*rec), want); diff != "" {
		t.Errorf("sleep difference (-got +want):\n%s", diff)
	}
}

func TestPrecisionHalt(t *testing.T) {
	dev, _, _ := getDev(t, nil)
	e := physic.Env{}
	dev.Precision(&e)
	if e.Temperature != 10*physic.MilliKelvin || e.Humidity != 100*physic.MicroRH {
		t.Errorf("incorrect value for Precision(): %#v", e)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if _, err := dev.SenseContinuous(time.Second); err == nil {
		t.Error("expected error for interval below device minimum")
	}
}

func TestSenseContinuous(t *testing.T) {
	dev, pb, _ := getDev(t, sensePlayback)
	defer done(t, pb)

	ch, err := dev.SenseContinuous(minInterval)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(minInterval); err == nil {
		t.Error("expected an error for concurrent SenseContinuous")
	}
	select {
	case e := <-ch:
		t.Logf("Temperature: %s Humidity: %s", e.Temperature, e.Humidity)
		if e.Temperature == 0 {
			t.Errorf("unexpected reading %#v", e)
		}
	case <-time.After(3 * minInterval):
		t.Fatal("no reading received")
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	select {
	case e, ok := <-ch:
		if ok {
			t.Errorf("reading %#v after Halt()", e)
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Halt()")
	}
}

func TestSenseContinuousError(t *testing.T) {
	if liveDevice {
		t.Skip("requires playback")
	}
	dev, pb, _ := getDev(t, nil)
	defer done(t, pb)
	errs := make(chan error, 1)
	dev.opts.OnError = func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	ch, err := dev.SenseContinuous(minInterval)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if err == nil {
			t.Error("nil error reported")
		}
	case e := <-ch:
		t.Fatalf("reading %#v from an empty bus", e)
	case <-time.After(3 * minInterval):
		t.Fatal("error not reported")
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	for e := range ch {
		t.Errorf("reading %#v from an empty bus", e)
	}
}
