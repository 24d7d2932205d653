// Package config loads the daemon's startup configuration: listen
// address, optional serial maintenance port, and the sensor-amplifier
// roster to seed onto the bus at boot.
package config

import (
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
)

// SensorSpec describes one amplifier to add to the bus at startup.
type SensorSpec struct {
	Type      string                 `koanf:"type"`
	Overrides map[string]interface{} `koanf:"overrides"`
}

// Config is the daemon's effective configuration, unmarshaled from JSON.
type Config struct {
	Host         string       `koanf:"host"`
	Port         int          `koanf:"port"`
	SerialDevice string       `koanf:"serial_device"`
	Sensors      []SensorSpec `koanf:"sensors"`
}

// Default returns the configuration used when no file is present: one
// bus, no sensors, listening on every interface on the documented IL
// series maintenance port.
func Default() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 64121,
	}
}

// Addr returns the host:port pair for net.Listen.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads path, overlaying it on Default(); a missing file is not an
// error, the way cmd/multiserver treats "no such file" as "use
// defaults" rather than failing startup.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "loading default configuration")
	}
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "no such") {
			return Config{}, errors.Wrapf(err, "loading configuration from %s", path)
		}
	}
	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, errors.Wrap(err, "unmarshaling configuration")
	}
	return c, nil
}
