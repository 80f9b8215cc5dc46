// Package server exposes the trial simulator over HTTP.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/adaptive-trial/internal/config"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server. MaxReplications
// bounds replications per scenario; MaxTotalReplications bounds replications
// times active scenarios for one request.
type Config struct {
	Address              string               `yaml:"address"`
	MaxUploadSize        string               `yaml:"maxUploadSize"`
	MaxReplications      int                  `yaml:"maxReplications"`
	MaxTotalReplications int                  `yaml:"maxTotalReplications"`
	Logging              config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes      int64
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Address:              constants.DefaultServerAddress,
		MaxUploadSize:        fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		MaxReplications:      constants.DefaultMaxReplications,
		MaxTotalReplications: constants.DefaultMaxTotalReplications,
		Logging:              config.LoggingConfig{},
		uploadSizeBytes:      constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = fmt.Sprintf("%d", size)
	}
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	var err error
	if c.MaxReplications, err = replicationLimit("maxReplications", c.MaxReplications, constants.DefaultMaxReplications); err != nil {
		return err
	}
	if c.MaxTotalReplications, err = replicationLimit("maxTotalReplications", c.MaxTotalReplications, constants.DefaultMaxTotalReplications); err != nil {
		return err
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)
	return nil
}

// replicationLimit maps an unset limit to its default and rejects negatives.
func replicationLimit(key string, value, fallback int) (int, error) {
	switch {
	case value < 0:
		return 0, fmt.Errorf("%s cannot be negative: %d", key, value)
	case value == 0:
		return fallback, nil
	}
	return value, nil
}

// sizeUnits maps accepted suffixes to their multiplier, longest suffixes first.
var sizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
	{"B", 1},
}

// ParseSize converts a byte count with an optional B, K(B), M(B) or G(B)
// suffix into bytes. An empty value yields the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	number, multiplier := trimmed, int64(1)
	for _, unit := range sizeUnits {
		if rest, ok := strings.CutSuffix(trimmed, unit.suffix); ok {
			number, multiplier = strings.TrimSpace(rest), unit.multiplier
			break
		}
	}
	if number == "" || !unicode.IsDigit(rune(number[len(number)-1])) {
		if strings.IndexFunc(number, unicode.IsDigit) >= 0 {
			return 0, fmt.Errorf("unsupported size unit in %q", value)
		}
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
