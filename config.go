package pgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/andreyvit/pgraph/native"
)

const (
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the file form of a graph's configuration.
//
//	backend: bolt
//	path: data/graph.db
//	check_elements_in_transaction: true
//	log:
//	  level: debug
//	  format: json
//	bolt:
//	  no_sync: false
//	  timeout: 5s
type Config struct {
	Backend                    string     `yaml:"backend"`
	Path                       string     `yaml:"path"`
	CheckElementsInTransaction bool       `yaml:"check_elements_in_transaction"`
	Verbose                    bool       `yaml:"verbose"`
	Log                        LogConfig  `yaml:"log"`
	Bolt                       BoltConfig `yaml:"bolt"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type BoltConfig struct {
	NoSync   bool          `yaml:"no_sync"`
	MmapSize int           `yaml:"mmap_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendBolt,
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBolt:
		if c.Path == "" {
			return errors.New("bolt backend requires path")
		}
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the logger described by c.Log, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	hopt := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopt))
	}
	return slog.New(slog.NewTextHandler(w, hopt))
}

// Open opens the configured graph. Badger without a path runs in memory.
func (c *Config) Open(logger *slog.Logger, reg prometheus.Registerer) (*Graph, error) {
	opt := Options{
		Logger:                     logger,
		Verbose:                    c.Verbose,
		CheckElementsInTransaction: c.CheckElementsInTransaction,
		Registerer:                 reg,
		Bolt: native.BoltOptions{
			NoSync:   c.Bolt.NoSync,
			MmapSize: c.Bolt.MmapSize,
			Timeout:  c.Bolt.Timeout,
		},
	}
	var st native.Storage
	var err error
	switch c.Backend {
	case BackendBolt:
		return Open(c.Path, opt)
	case BackendBadger:
		st, err = native.OpenBadger(native.BadgerOptions{Dir: c.Path, InMemory: c.Path == "", Logger: logger})
	case BackendMemory:
		st = native.NewMemStorage()
	default:
		err = fmt.Errorf("unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("pgraph: %w", err)
	}
	g, err := OpenStorage(st, opt)
	if err != nil {
		return nil, err
	}
	if c.Backend == BackendMemory || (c.Backend == BackendBadger && c.Path == "") {
		g.features.IsPersistent = false
	}
	return g, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
