package oled

import (
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const (
	resetHold  = 1 * time.Millisecond
	resetPulse = 10 * time.Millisecond
)

// Reset pulses panel RST line: high, low, high. Same timing as Adafruit SSD1306::begin.
func Reset(chipName string, pin string) error {
	line, err := strconv.ParseUint(pin, 10, 32)
	if err != nil {
		return errors.NotValidf("oled reset_pin=%q", pin)
	}
	chip, err := gpio.Open(chipName, "oled")
	if err != nil {
		return errors.Annotatef(err, "oled reset chip=%s", chipName)
	}
	defer chip.Close()
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, "oled-reset", uint32(line))
	if err != nil {
		return errors.Annotatef(err, "oled reset chip=%s pin=%s", chipName, pin)
	}
	defer lines.Close()

	return pulseReset(lines.SetFunc(uint32(line)), lines.Flush, time.Sleep)
}

func pulseReset(set gpio.LineSetFunc, flush func() error, sleep func(time.Duration)) error {
	steps := []struct {
		value byte
		hold  time.Duration
	}{
		{1, resetHold},
		{0, resetPulse},
		{1, 0},
	}
	for _, step := range steps {
		set(step.value)
		if err := flush(); err != nil {
			return errors.Annotate(err, "oled reset")
		}
		if step.hold != 0 {
			sleep(step.hold)
		}
	}
	return nil
}
