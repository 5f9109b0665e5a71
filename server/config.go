package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/isoterra/sculpt/message"
	"github.com/isoterra/sculpt/sculpt"
)

const (
	// DefaultWebAddress is the default address of the host-UI bridge.
	DefaultWebAddress = "localhost:8000"

	// DefaultChunkSize is the chunk side length used when none is configured.
	DefaultChunkSize = 32

	// DefaultShutdownDelay is the seconds given to in-flight requests on shutdown.
	DefaultShutdownDelay = 5
)

// DefaultExtent is the grid extent in chunks used when none is configured.
var DefaultExtent = sculpt.ChunkPoint3d{8, 4, 8}

// Config is the parsed TOML configuration of a sculpting server.
type Config struct {
	Server  serverConfig
	Auth    authConfig
	Logging sculpt.LogConfig
	Grid    gridConfig
	Compute computeConfig
	Brushes brushesConfig
	Kafka   message.KafkaConfig
	Events  eventsConfig

	location string
}

type serverConfig struct {
	HTTPAddress   string   `toml:"httpAddress"`
	CorsDomains   []string `toml:"corsDomains"`
	Note          string   `toml:"note"`
	BlockListFile string   `toml:"blocklist"`
	ShutdownDelay int      `toml:"shutdownDelay"` // seconds
}

type gridConfig struct {
	Extent      []int32 `toml:"extent"` // in chunks
	ChunkSize   int32   `toml:"chunkSize"`
	GroundLevel float32 `toml:"groundLevel"` // seed surface height in voxels, 0 leaves the grid empty
}

type computeConfig struct {
	Workers int `toml:"workers"`
}

type brushesConfig struct {
	Library string `toml:"library"` // brush library file, built-in library if empty
}

type eventsConfig struct {
	LocalBuffer int    `toml:"localBuffer"` // in-process event queue, disabled if 0
	Compression string `toml:"compression"` // payload compression for published chunks
}

// DefaultConfig returns the configuration used for anything a TOML file leaves unset.
func DefaultConfig() *Config {
	return &Config{
		Server: serverConfig{
			HTTPAddress:   DefaultWebAddress,
			ShutdownDelay: DefaultShutdownDelay,
		},
		Grid: gridConfig{
			Extent:    DefaultExtent[:],
			ChunkSize: DefaultChunkSize,
		},
	}
}

// LoadConfig loads server configuration from a TOML file on top of the defaults.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no server TOML configuration file provided")
	}
	c := DefaultConfig()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sculpt.Infof("Loaded server configuration from %s\n", filename)
	return c, nil
}

// ParseConfig decodes TOML configuration held in memory.  Relative paths are kept as is.
func ParseConfig(contents string) (*Config, error) {
	c := DefaultConfig()
	if _, err := toml.Decode(contents, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = sculpt.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting logfile setting to absolute path")
		}
	}

	// [brushes].library
	if c.Brushes.Library != "" {
		c.Brushes.Library, err = sculpt.ConvertToAbsolute(c.Brushes.Library, configDir)
		if err != nil {
			return fmt.Errorf("Error converting brush library setting to absolute path")
		}
	}

	// [auth].auth_file
	if c.Auth.AuthFile != "" {
		c.Auth.AuthFile, err = sculpt.ConvertToAbsolute(c.Auth.AuthFile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting auth_file setting to absolute path")
		}
	}

	// [server].blocklist
	if c.Server.BlockListFile != "" {
		c.Server.BlockListFile, err = sculpt.ConvertToAbsolute(c.Server.BlockListFile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting blocklist setting to absolute path")
		}
	}
	return nil
}

// Validate checks settings that can't be defaulted.
func (c *Config) Validate() error {
	if _, err := c.Extent(); err != nil {
		return err
	}
	if c.Grid.ChunkSize <= 0 {
		return sculpt.NewConfigError("grid", "chunk size must be positive, got %d", c.Grid.ChunkSize)
	}
	if c.Compute.Workers < 0 {
		return sculpt.NewConfigError("compute", "negative worker count %d", c.Compute.Workers)
	}
	if c.Events.LocalBuffer < 0 {
		return sculpt.NewConfigError("events", "negative local buffer %d", c.Events.LocalBuffer)
	}
	if _, err := c.PayloadCompression(); err != nil {
		return err
	}
	return nil
}

// Extent returns the configured grid extent in chunks.
func (c *Config) Extent() (sculpt.ChunkPoint3d, error) {
	if len(c.Grid.Extent) != 3 {
		return sculpt.ChunkPoint3d{}, sculpt.NewConfigError("grid", "extent needs 3 values, got %v", c.Grid.Extent)
	}
	return sculpt.ChunkPoint3d{c.Grid.Extent[0], c.Grid.Extent[1], c.Grid.Extent[2]}, nil
}

// PayloadCompression returns the compression applied to event payloads.  The [events]
// setting wins over the [kafka] one.
func (c *Config) PayloadCompression() (sculpt.Compression, error) {
	name := c.Events.Compression
	if name == "" {
		name = c.Kafka.Compression
	}
	if name == "" {
		return sculpt.Snappy, nil
	}
	compress, err := sculpt.ParseCompression(name)
	if err != nil {
		return sculpt.Uncompressed, sculpt.NewConfigError("events", "%v", err)
	}
	return compress, nil
}

// ShutdownDelay is how long in-flight requests get when the server stops.
func (c *Config) ShutdownDelay() time.Duration {
	return time.Duration(c.Server.ShutdownDelay) * time.Second
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}
