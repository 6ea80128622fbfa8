package flash

import (
	"time"

	"github.com/piotrjaromin/gpio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Hold times of the reset strap. EN must stay low long enough for the
// chip to reset, and IO0 must still be low when EN is released.
const (
	resetHoldTime = 100 * time.Millisecond
	bootHoldTime  = 50 * time.Millisecond
	strapSettle   = 200 * time.Millisecond
)

// enterBootloader runs the classic auto-download strap over the port's
// control lines: DTR drives IO0, RTS drives EN, both active low.
func enterBootloader(lines ControlLines) error {
	if err := lines.SetDTR(true); err != nil { // IO0 low
		return errors.Wrap(err, "strap IO0")
	}
	if err := lines.SetRTS(false); err != nil { // EN high
		return errors.Wrap(err, "release EN")
	}
	time.Sleep(10 * time.Millisecond)

	if err := lines.SetRTS(true); err != nil { // EN low, reset
		return errors.Wrap(err, "assert EN")
	}
	time.Sleep(resetHoldTime)

	if err := lines.SetRTS(false); err != nil { // EN high, boot
		return errors.Wrap(err, "release EN")
	}
	time.Sleep(bootHoldTime)

	if err := lines.SetDTR(false); err != nil { // IO0 high
		return errors.Wrap(err, "release IO0")
	}
	time.Sleep(strapSettle)

	logrus.Debug("bootloader strap done")
	return nil
}

// hardReset reboots the target into the application.
func hardReset(lines ControlLines) error {
	if err := lines.SetDTR(false); err != nil { // IO0 high, normal boot
		return errors.Wrap(err, "release IO0")
	}
	if err := lines.SetRTS(true); err != nil { // EN low
		return errors.Wrap(err, "assert EN")
	}
	time.Sleep(resetHoldTime)
	return errors.Wrap(lines.SetRTS(false), "release EN")
}

// bootPins straps the target through host GPIO lines wired straight to
// EN and IO0, for boards without the USB serial reset circuit.
type bootPins struct {
	en   gpio.Pin
	boot gpio.Pin
}

func newBootPins(enGPIO, bootGPIO int) (*bootPins, error) {
	en, err := gpio.NewOutput(uint(enGPIO), true)
	if err != nil {
		return nil, errors.Wrap(err, "could not setup EN pin")
	}
	boot, err := gpio.NewOutput(uint(bootGPIO), true)
	if err != nil {
		en.Cleanup()
		return nil, errors.Wrap(err, "could not setup boot pin")
	}

	return &bootPins{en: en, boot: boot}, nil
}

// enterBootloader pulls IO0 low across an EN pulse.
func (p *bootPins) enterBootloader() {
	p.boot.Low()
	p.en.Low()
	time.Sleep(resetHoldTime)
	p.en.High()
	time.Sleep(bootHoldTime)
	p.boot.High()
	time.Sleep(strapSettle)
}

// release frees the host pins. Both lines are left high so the chip
// stays in the bootloader it was just strapped into.
func (p *bootPins) release() {
	p.en.Cleanup()
	p.boot.Cleanup()
}
