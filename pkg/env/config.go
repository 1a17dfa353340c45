// Package env holds process wide settings shared by the binaries.
package env

import (
	"flag"
	"os"
)

// Config identifies the sensor and where it's published.
type Config struct {
	// ID names the sensor in MQTT topics.
	ID string `yaml:"id"`
	// MQTTURL specifies the MQTT broker, e.g. mqtt://host:port/topic-prefix.
	// Empty disables MQTT.
	MQTTURL string `yaml:"mqtt_url"`
	// HTTPAddr is the listen address of websocket and metrics endpoints.
	// Empty disables HTTP.
	HTTPAddr string `yaml:"http_addr"`
	// Description is published in the meta.
	Description string `yaml:"description"`
}

var defaultConfig = Config{
	MQTTURL:  "mqtt://localhost:1883/rd03d/",
	HTTPAddr: ":8030",
}

func init() {
	defaultConfig.ID = os.Getenv("RD03D_ID")
	if val := os.Getenv("RD03D_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("RD03D_HTTP_ADDR"); val != "" {
		defaultConfig.HTTPAddr = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Sensor ID, defaults to one derived from the machine ID.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "HTTP listen address, empty to disable.")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Sensor description.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// SensorID returns the configured ID or the machine derived one.
func (c *Config) SensorID() string {
	if c.ID == "" {
		c.ID = MachineID("rd03d")
	}
	return c.ID
}
