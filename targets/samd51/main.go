//go:build samd51

package main

import (
	"context"
	_ "embed"
	"machine"
	"runtime/interrupt"
	"time"

	"device/sam"

	"sensorcam/capture"
	"sensorcam/config"
	"sensorcam/core"
	"sensorcam/wallclock"
)

//go:embed config.json
var configJSON []byte

const (
	// InitTimer sets TC0 to DIV64.
	tcPrescaler  = 64
	shutterPulse = 200 * time.Millisecond
)

var (
	rtcDriver   SAMRTC
	timerDriver SAMTimer

	// dispatcher is reached from the interrupt handlers, which can't
	// capture locals.
	dispatcher core.Dispatcher
)

func main() {
	core.SetDebugWriter(func(s string) { println(s) })

	cfg, clk, err := config.LoadConfig(configJSON)
	if err != nil {
		println("[CONFIG] " + err.Error() + ", using defaults")
		cfg = config.DefaultConfig()
		clk = core.MustClocks(cfg.Clock)
	}
	if cfg.Clock.TimerPrescaler != tcPrescaler {
		panic("samd51: TC0 runs at the crystal / 64")
	}
	core.SetDebugEnabled(cfg.Debug)
	core.InitAsyncDebug()

	InitTimer()

	exec := Executor{}
	tracker := core.NewRTC(clk, rtcDriver, BackupRAM{}, exec)
	alarm := core.NewAlarm(tracker, timerDriver)
	dispatcher = core.Dispatcher{RTC: tracker, Alarm: alarm, Timer: timerDriver}

	rtcIRQ := interrupt.New(sam.IRQ_RTC, handleRTC)
	timerIRQ := interrupt.New(sam.IRQ_TC0, handleTimer)

	tracker.Init(seedWallClock(clk))
	rtcDriver.enableInterrupt()
	rtcIRQ.Enable()
	timerIRQ.Enable()

	core.SetGPIODriver(NewSAMGPIODriver())
	shutter, err := capture.NewShutter(capture.ShutterConfig{
		Shutter: core.GPIOPin(machine.D5),
		Ready:   core.GPIOPin(machine.D6),
		Pulse:   shutterPulse,
	}, core.MustGPIO(), exec)
	if err != nil {
		panic("samd51: " + err.Error())
	}

	svc, err := capture.NewService(capture.Config{
		Interval:    cfg.Capture.Interval(),
		FirstOffset: cfg.Capture.FirstOffset(),
	}, tracker, alarm, exec, shutter)
	if err != nil {
		panic("samd51: " + err.Error())
	}

	// Run only returns when its context is done, which never happens here.
	svc.Run(context.Background())
	core.DumpEventRing()
}

func handleRTC(interrupt.Interrupt) {
	rtcDriver.clearOverflow()
	dispatcher.OnRTCOverflow()
}

func handleTimer(interrupt.Interrupt) {
	timerDriver.clearOverflow()
	dispatcher.OnTimerOverflow()
}

// seedWallClock reads the DS3231. Without a valid time the tracker keeps
// relative time.
func seedWallClock(clk *core.Clocks) *core.Instant {
	bus := machine.I2C0
	err := bus.Configure(machine.I2CConfig{Frequency: 100 * machine.KHz})
	if err != nil {
		println("[WALLCLOCK] i2c: " + err.Error())
		return nil
	}

	at, err := wallclock.Seed(clk, wallclock.NewDS3231(bus))
	if err != nil {
		println("[WALLCLOCK] " + err.Error())
		return nil
	}
	return at
}
