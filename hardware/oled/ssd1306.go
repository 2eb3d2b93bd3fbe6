package oled

import (
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/oledlog/hardware/i2c"
	"github.com/temoto/oledlog/log2"
	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
)

var ErrNotOpen = errors.New("ssd1306 not initialized")

const (
	i2cCmd  = 0x00 // control byte: command stream follows
	i2cData = 0x40 // control byte: display RAM data follows

	cmdColumnAddr = 0x21
	cmdPageAddr   = 0x22
)

// SSD1306 is Driver for SSD1306 panel on I2C bus.
// Buffer and text state live in embedded GFX; Init and Display talk to hardware.
// periph Dev runs init and halt sequences. Display sends whole panel RAM itself,
// Dev.Draw skips unchanged pixels and would not repaint a glitched panel.
type SSD1306 struct {
	*GFX
	config Config
	open   i2c.Opener
	reset  func(chip, pin string) error
	log    *log2.Log

	mu   sync.Mutex
	bus  pi2c.BusCloser
	conn *i2c.AddrBus
	dev  *ssd1306.Dev
}

var _ Driver = &SSD1306{}
var _ ImageDrawer = &SSD1306{}

func NewSSD1306(config Config, open i2c.Opener, log *log2.Log) *SSD1306 {
	return &SSD1306{
		GFX:    NewGFX(config.Width, config.Height),
		config: config,
		open:   open,
		reset:  Reset,
		log:    log,
	}
}

// Init opens bus, resets panel if reset line is configured
// and runs panel init sequence. Second call after success is no-op.
func (self *SSD1306) Init() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.dev != nil {
		return nil
	}
	if err := self.config.Validate(); err != nil {
		return err
	}
	if self.config.ResetPinChip != "" {
		if err := self.reset(self.config.ResetPinChip, self.config.ResetPin); err != nil {
			return err
		}
	}

	bus, err := self.open()
	if err != nil {
		return errors.Annotate(err, "ssd1306 bus")
	}
	opts := ssd1306.Opts{
		W:          self.config.Width,
		H:          self.config.Height,
		Rotated:    self.config.Rotated,
		Sequential: self.config.Sequential,
	}
	conn := &i2c.AddrBus{Bus: bus, Addr: self.config.Address}
	dev, err := ssd1306.NewI2C(conn, &opts)
	if err != nil {
		if closeErr := bus.Close(); closeErr != nil {
			self.log.Errorf("ssd1306 bus close after failed init: %v", closeErr)
		}
		return errors.Annotatef(err, "ssd1306 init bus=%s addr=%#02x", bus.String(), self.config.Address)
	}
	self.bus, self.conn, self.dev = bus, conn, dev
	self.log.Debugf("ssd1306 init %s", dev.String())
	return nil
}

func (self *SSD1306) Display() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.dev == nil {
		return ErrNotOpen
	}
	return errors.Annotate(self.sendFrame(), "ssd1306 display")
}

// sendFrame writes every page, changed or not.
// image1bit.VerticalLSB is panel RAM layout in horizontal addressing mode.
func (self *SSD1306) sendFrame() error {
	w, pages := self.config.Width, self.config.Height/8
	if err := self.conn.Tx(0, []byte{i2cCmd,
		cmdColumnAddr, 0, byte(w - 1),
		cmdPageAddr, 0, byte(pages - 1),
	}, nil); err != nil {
		return err
	}
	pix := self.Image().Pix
	chunk := make([]byte, 1+w)
	chunk[0] = i2cData
	for page := 0; page < pages; page++ {
		copy(chunk[1:], pix[page*w:(page+1)*w])
		if err := self.conn.Tx(0, chunk, nil); err != nil {
			return errors.Annotatef(err, "page=%d", page)
		}
	}
	return nil
}

// Halt turns panel off and releases the bus. Init may be called again.
func (self *SSD1306) Halt() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.dev == nil {
		return nil
	}
	err := self.dev.Halt()
	if closeErr := self.bus.Close(); err == nil {
		err = closeErr
	}
	self.bus, self.conn, self.dev = nil, nil, nil
	return errors.Annotate(err, "ssd1306 halt")
}
