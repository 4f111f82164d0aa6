package capture

import (
	"errors"
	"time"

	"sensorcam/core"
)

// ErrCameraBusy is returned when the camera signals it is still busy with
// the previous frame.
var ErrCameraBusy = errors.New("camera_busy")

// ShutterConfig names the pins of the camera's remote port.
type ShutterConfig struct {
	Shutter core.GPIOPin  // Output, high releases the shutter
	Ready   core.GPIOPin  // Input with pull-up, low while the camera is busy
	Pulse   time.Duration // How long the shutter is held
}

// Shutter is a Trigger that pulses the camera's shutter line.
type Shutter struct {
	cfg  ShutterConfig
	gpio core.GPIODriver
	exec core.Executor
}

// NewShutter configures the remote port pins. The shutter line is left low.
func NewShutter(cfg ShutterConfig, gpio core.GPIODriver, exec core.Executor) (*Shutter, error) {
	if err := gpio.ConfigureOutput(cfg.Shutter); err != nil {
		return nil, err
	}
	if err := gpio.ConfigureInputPullUp(cfg.Ready); err != nil {
		return nil, err
	}
	if err := gpio.SetPin(cfg.Shutter, false); err != nil {
		return nil, err
	}
	return &Shutter{cfg: cfg, gpio: gpio, exec: exec}, nil
}

// Capture implements Trigger
func (s *Shutter) Capture(at core.Instant) error {
	ready, err := s.gpio.GetPin(s.cfg.Ready)
	if err != nil {
		return err
	}
	if !ready {
		return ErrCameraBusy
	}

	if err := s.gpio.SetPin(s.cfg.Shutter, true); err != nil {
		return err
	}
	s.exec.Sleep(s.cfg.Pulse)
	return s.gpio.SetPin(s.cfg.Shutter, false)
}
