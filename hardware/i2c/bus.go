package i2c

import (
	"fmt"

	"github.com/juju/errors"
	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	DriverPeriph = "periph"
	DriverDev    = "i2c-dev"
)

// Opener is called once per device init, so a missing bus is reported
// as device init failure, not at program start.
type Opener func() (pi2c.BusCloser, error)

// PeriphOpener finds bus by name in periph registry, "" means first available.
func PeriphOpener(name string) Opener {
	return func() (pi2c.BusCloser, error) {
		if _, err := host.Init(); err != nil {
			return nil, errors.Annotate(err, "periph host init")
		}
		b, err := i2creg.Open(name)
		if err != nil {
			return nil, errors.Annotatef(err, "i2c bus=%q", name)
		}
		return b, nil
	}
}

func DevOpener(busNo byte) Opener {
	return func() (pi2c.BusCloser, error) {
		b := NewI2CBus(busNo)
		if err := b.Init(); err != nil {
			return nil, err
		}
		return b, nil
	}
}

func NewOpener(driver string, name string, busNo int) (Opener, error) {
	switch driver {
	case "", DriverPeriph:
		return PeriphOpener(name), nil
	case DriverDev:
		if busNo < 0 || busNo > 0xff {
			return nil, errors.NotValidf("i2c bus_number=%d", busNo)
		}
		return DevOpener(byte(busNo)), nil
	}
	return nil, errors.NotValidf("i2c bus_driver=%q valid: %s, %s", driver, DriverPeriph, DriverDev)
}

// AddrBus sends every transaction to Addr, whatever address the device driver asked for.
// periph ssd1306 is hardwired to 0x3c, panels strapped to 0x3d need this.
type AddrBus struct {
	pi2c.Bus
	Addr uint16
}

func (self *AddrBus) Tx(_ uint16, w, r []byte) error {
	return self.Bus.Tx(self.Addr, w, r)
}

func (self *AddrBus) String() string {
	return fmt.Sprintf("%s@%#02x", self.Bus.String(), self.Addr)
}
