package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/oledlog/hardware/i2c"
	"github.com/temoto/oledlog/hardware/oled"
	"github.com/temoto/oledlog/helpers"
	"github.com/temoto/oledlog/log2"
)

const (
	DriverSSD1306 = "ssd1306"
	DriverMock    = "mock"

	HaltForever = "forever"
	HaltExit    = "exit"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Display DisplayConfig `hcl:"display"`
	Log     struct {
		Debug bool `hcl:"debug"`
	} `hcl:"log"`
	Mqtt MqttConfig `hcl:"mqtt"`

	_copy_guard sync.Mutex //nolint:unused
}

type DisplayConfig struct { //nolint:maligned
	Driver       string `hcl:"driver"`
	BusDriver    string `hcl:"bus_driver"`
	Bus          string `hcl:"bus"`
	BusNumber    int    `hcl:"bus_number"`
	Address      int    `hcl:"address"`
	Width        int    `hcl:"width"`
	Height       int    `hcl:"height"`
	Vcc          string `hcl:"vcc"`
	ResetPinChip string `hcl:"reset_pin_chip"`
	ResetPin     string `hcl:"reset_pin"`
	Rotated      bool   `hcl:"rotated"`
	Sequential   bool   `hcl:"sequential"`
	Halt         string `hcl:"halt"`
	LogDebug     bool   `hcl:"log_debug"`
}

type MqttConfig struct {
	Broker       string `hcl:"broker"`
	Topic        string `hcl:"topic"`
	ClientID     string `hcl:"client_id"`
	Username     string `hcl:"username"`
	Password     string `hcl:"password"`
	QoS          int    `hcl:"qos"`
	KeepaliveSec int    `hcl:"keepalive_sec"`
	LogDebug     bool   `hcl:"log_debug"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Oled converts display section to driver config. Call after ApplyDefaults.
func (c *DisplayConfig) Oled() oled.Config {
	return oled.Config{
		Address:      uint16(c.Address),
		Width:        c.Width,
		Height:       c.Height,
		Vcc:          c.Vcc,
		ResetPinChip: c.ResetPinChip,
		ResetPin:     c.ResetPin,
		Rotated:      c.Rotated,
		Sequential:   c.Sequential,
	}
}

func (c *DisplayConfig) Opener() (i2c.Opener, error) {
	return i2c.NewOpener(c.BusDriver, c.Bus, c.BusNumber)
}

func (c *Config) ApplyDefaults() {
	d := &c.Display
	def := oled.DefaultConfig()
	if d.Driver == "" {
		d.Driver = DriverSSD1306
	}
	if d.BusDriver == "" {
		d.BusDriver = i2c.DriverPeriph
	}
	if d.Address == 0 {
		d.Address = int(def.Address)
	}
	if d.Width == 0 {
		d.Width = def.Width
	}
	if d.Height == 0 {
		d.Height = def.Height
	}
	if d.Vcc == "" {
		d.Vcc = def.Vcc
	}
	if d.ResetPinChip != "" && d.ResetPin == "" {
		d.ResetPin = oled.DefaultResetPin
	}
	if d.Halt == "" {
		d.Halt = HaltForever
	}

	m := &c.Mqtt
	if m.Topic == "" {
		m.Topic = "oledlog/display"
	}
	if m.ClientID == "" {
		m.ClientID = "oledlog"
	}
}

// Validate reports all problems at once.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	d := &c.Display
	switch d.Driver {
	case DriverSSD1306:
		oc := d.Oled()
		if d.Address < 0 || d.Address > 0xffff {
			errs = append(errs, errors.NotValidf("config: display.address=%d", d.Address))
		} else if err := oc.Validate(); err != nil {
			errs = append(errs, errors.Annotate(err, "config: display"))
		}
		if _, err := d.Opener(); err != nil {
			errs = append(errs, errors.Annotate(err, "config: display"))
		}
	case DriverMock:
		if d.Width <= 0 || d.Height <= 0 {
			errs = append(errs, errors.NotValidf("config: display size=%dx%d", d.Width, d.Height))
		}
	default:
		errs = append(errs, errors.NotValidf("config: display.driver=%s valid: %s, %s", d.Driver, DriverSSD1306, DriverMock))
	}
	switch d.Halt {
	case HaltForever, HaltExit:
	default:
		errs = append(errs, errors.NotValidf("config: display.halt=%s valid: %s, %s", d.Halt, HaltForever, HaltExit))
	}
	if c.Mqtt.QoS < 0 || c.Mqtt.QoS > 2 {
		errs = append(errs, errors.NotValidf("config: mqtt.qos=%d valid: 0, 1, 2", c.Mqtt.QoS))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads names in order, later values overwrite earlier.
// Defaults are applied and result is validated.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) == 0 {
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
