package serial

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	goserial "go.bug.st/serial"

	"github.com/robotalks/rd03d/pkg/sim"
)

// SimPort is the port name opening a simulated sensor.
const SimPort = "sim"

// Config defines the UART the sensor is attached to.
type Config struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	// Parity is one of none, odd or even.
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
	// ReadTimeout makes reads return periodically so the reader can be
	// cancelled. 0 blocks until data arrives.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

var defaultConfig = Config{
	Port:        "/dev/ttyUSB0",
	BaudRate:    115200,
	DataBits:    8,
	Parity:      "none",
	StopBits:    1,
	ReadTimeout: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("RD03D_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the sensor, or \"sim\" for a simulated one.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate.")
	flag.IntVar(&defaultConfig.DataBits, "data-bits", defaultConfig.DataBits, "Data bits.")
	flag.StringVar(&defaultConfig.Parity, "parity", defaultConfig.Parity, "Parity: none, odd or even.")
	flag.IntVar(&defaultConfig.StopBits, "stop-bits", defaultConfig.StopBits, "Stop bits: 1 or 2.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout, 0 to block.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Mode converts the config into serial port settings.
func (c *Config) Mode() (*goserial.Mode, error) {
	parity, err := mapParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := mapStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	return &goserial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

// Port is an opened sensor connection.
type Port struct {
	io.ReadWriteCloser
	// ReadTimeout tells reads return periodically without data.
	ReadTimeout bool
	// Sim is set when the port is simulated.
	Sim *sim.Device
}

// Open opens the serial port.
func (c *Config) Open() (*Port, error) {
	if c.Port == SimPort {
		glog.Info("using simulated sensor")
		dev := sim.NewDevice()
		return &Port{ReadWriteCloser: dev, Sim: dev}, nil
	}
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	port, err := goserial.Open(c.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Port, err)
	}
	p := &Port{ReadWriteCloser: port}
	if c.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", c.Port, err)
		}
		p.ReadTimeout = true
	}
	glog.Infof("opened %s at %d baud", c.Port, c.BaudRate)
	return p, nil
}

// Ports lists the serial ports on the system.
func Ports() ([]string, error) {
	return goserial.GetPortsList()
}

func mapParity(p string) (goserial.Parity, error) {
	switch strings.ToLower(p) {
	case "", "none", "n":
		return goserial.NoParity, nil
	case "odd", "o":
		return goserial.OddParity, nil
	case "even", "e":
		return goserial.EvenParity, nil
	}
	return goserial.NoParity, fmt.Errorf("unknown parity %q", p)
}

func mapStopBits(s int) (goserial.StopBits, error) {
	switch s {
	case 0, 1:
		return goserial.OneStopBit, nil
	case 2:
		return goserial.TwoStopBits, nil
	}
	return goserial.OneStopBit, fmt.Errorf("invalid stop bits %d", s)
}
