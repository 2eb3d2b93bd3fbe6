package i2c

// Thanks to
// https://github.com/kidoman/embd and https://bitbucket.org/gmcbay/i2c

import (
	"fmt"
	"math"
	"os"
	"sync"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// as defined in /usr/include/linux/i2c-dev.h
	I2C_RDWR = 0x0707 /* Combined R/W transfer (one STOP only) */

	// i2c_msg flags
	// as defined in /usr/include/linux/i2c.h
	I2C_M_RD = 0x0001 /* read data, from slave to master */
)

type i2c_msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2c_rdwr_ioctl_data struct {
	msgs uintptr
	nmsg uint32
}

// DevBus talks to /dev/i2c-N directly with I2C_RDWR ioctl.
// Implements periph i2c.BusCloser, so periph device drivers run on top of it
// on boards where periph host drivers don't detect the bus.
type DevBus struct {
	busNo       byte
	file        *os.File
	lk          sync.Mutex
	initialized bool
}

var _ pi2c.BusCloser = &DevBus{}

func NewI2CBus(busNo byte) *DevBus {
	return &DevBus{busNo: busNo}
}

func (self *DevBus) String() string { return fmt.Sprintf("i2c-dev/%d", self.busNo) }

func (self *DevBus) Init() error {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.init()
}

func (self *DevBus) init() error {
	if self.initialized {
		return nil
	}

	var err error
	path := fmt.Sprintf("/dev/i2c-%d", self.busNo)
	if self.file, err = os.OpenFile(path, os.O_RDWR, os.ModeExclusive); err != nil {
		return errors.Annotatef(err, "i2c open %s", path)
	}
	self.initialized = true

	return nil
}

// Kernel adapter decides bus clock, see i2c-dev dtoverlay parameters.
func (self *DevBus) SetSpeed(f physic.Frequency) error {
	return errors.NotSupportedf("%s SetSpeed(%s)", self.String(), f.String())
}

func (self *DevBus) Tx(addr uint16, w, r []byte) error {
	// i2c_msg.len is 16 bit
	if len(w) > math.MaxUint16 || len(r) > math.MaxUint16 {
		return errors.NotValidf("%s Tx addr=%#02x len(w)=%d len(r)=%d max=%d", self.String(), addr, len(w), len(r), math.MaxUint16)
	}
	nmsg := uint32(0)
	msgs := [2]i2c_msg{}
	if len(w) != 0 {
		msgs[nmsg] = i2c_msg{
			addr: addr, flags: 0,
			buf: uintptr(unsafe.Pointer(&w[0])), len: uint16(len(w)),
		}
		nmsg++
	}
	if len(r) != 0 {
		msgs[nmsg] = i2c_msg{
			addr: addr, flags: I2C_M_RD,
			buf: uintptr(unsafe.Pointer(&r[0])), len: uint16(len(r)),
		}
		nmsg++
	}
	if nmsg == 0 {
		return errors.Errorf("%s Tx addr=%#02x both w=r=empty nothing to do", self.String(), addr)
	}

	self.lk.Lock()
	defer self.lk.Unlock()
	if err := self.init(); err != nil {
		return err
	}

	rdwr_data := i2c_rdwr_ioctl_data{
		msgs: uintptr(unsafe.Pointer(&msgs[0])),
		nmsg: nmsg,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		self.file.Fd(), uintptr(I2C_RDWR), uintptr(unsafe.Pointer(&rdwr_data)))
	if errno != 0 {
		return errors.Annotatef(errno, "%s Tx addr=%#02x", self.String(), addr)
	}
	return nil
}

func (self *DevBus) Close() error {
	self.lk.Lock()
	defer self.lk.Unlock()

	if !self.initialized {
		return nil
	}
	self.initialized = false
	return self.file.Close()
}
