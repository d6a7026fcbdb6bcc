package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SCENE_PROJECT_"

type Config struct {
	Addr             string `yaml:"addr" toml:"addr"`
	ProjectsDir      string `yaml:"projects_dir" toml:"projects_dir"`
	Project          string `yaml:"project" toml:"project"`
	Encoding         string `yaml:"encoding" toml:"encoding"`
	Strict           bool   `yaml:"strict" toml:"strict"`
	TextureCacheSize int    `yaml:"texture_cache_size" toml:"texture_cache_size"`
	Watch            bool   `yaml:"watch" toml:"watch"`
}

func Default() *Config {
	return &Config{
		Addr:             ":8000",
		ProjectsDir:      "projects",
		Encoding:         UTF8,
		TextureCacheSize: 256,
	}
}

// Load reads optional .env and config files. Empty path skips the config
// file, environment always overrides file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "Failed to load .env")
	}

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read config %q", path)
		}
		if err := c.Unmarshal(filepath.Ext(path), data); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse config %q", path)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// Unmarshal decodes data by config file extension
func (c *Config) Unmarshal(ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Wrapf(err, "Failed to unmarshal yaml")
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return errors.Wrapf(err, "Failed to unmarshal toml")
		}
	default:
		return errors.Errorf("Unknown config format %q", ext)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup(envPrefix + "DIR"); ok {
		c.ProjectsDir = v
	}
	if v, ok := lookup(envPrefix + "PROJECT"); ok {
		c.Project = v
	}
	if v, ok := lookup(envPrefix + "ENCODING"); ok {
		c.Encoding = v
	}
	if v, ok := lookup(envPrefix + "STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "Invalid %sSTRICT", envPrefix)
		}
		c.Strict = b
	}
	if v, ok := lookup(envPrefix + "WATCH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "Invalid %sWATCH", envPrefix)
		}
		c.Watch = b
	}
	if v, ok := lookup(envPrefix + "TEXTURE_CACHE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "Invalid %sTEXTURE_CACHE", envPrefix)
		}
		c.TextureCacheSize = n
	}
	return nil
}

// Apply activates process wide settings
func (c *Config) Apply() error {
	return SetEncoding(c.Encoding)
}
