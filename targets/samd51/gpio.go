//go:build samd51

package main

import (
	"errors"
	"machine"

	"sensorcam/core"
)

// SAMGPIODriver implements the GPIODriver interface for the SAMD51
type SAMGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
	outputs        map[core.GPIOPin]bool
}

// NewSAMGPIODriver creates a new SAMD51 GPIO driver
func NewSAMGPIODriver() *SAMGPIODriver {
	return &SAMGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
		outputs:        make(map[core.GPIOPin]bool),
	}
}

// ConfigureOutput configures a pin as a digital output, driven low
func (d *SAMGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		if !d.outputs[pin] {
			return errors.New("pin already configured as input")
		}
		return nil
	}

	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machinePin.Low()

	d.configuredPins[pin] = machinePin
	d.outputs[pin] = true
	return nil
}

// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
func (d *SAMGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		if d.outputs[pin] {
			return errors.New("pin already configured as output")
		}
		return nil
	}

	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *SAMGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if !d.outputs[pin] {
		return errors.New("pin not configured as output")
	}
	d.configuredPins[pin].Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *SAMGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, errors.New("pin not configured")
	}
	return machinePin.Get(), nil
}
