package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tomz197/balls/internal/physics"
	"github.com/tomz197/balls/internal/spawn"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// SSH holds the ssh server settings.
type SSH struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	HostKey string `yaml:"host_key"`
}

// Config is the full set of runtime settings.
type Config struct {
	PhysicsRate int     `yaml:"physics_rate"` // Hz, independent of the render rate
	Seed        uint64  `yaml:"seed"`
	Restitution float64 `yaml:"restitution"`
	Balls       int     `yaml:"balls"`
	Scenario    string  `yaml:"scenario"`
	BroadPhase  string  `yaml:"broad_phase"`
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	LogLevel    string  `yaml:"log_level"`
	SSH         SSH     `yaml:"ssh"`

	// Path is the file the config was loaded from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		PhysicsRate: 64,
		Seed:        0,
		Restitution: physics.DefaultRestitution,
		Balls:       1000,
		Scenario:    "many",
		BroadPhase:  physics.KindCached.String(),
		Width:       600,
		Height:      600,
		LogLevel:    "info",
		SSH: SSH{
			Host:    "::",
			Port:    "2222",
			HostKey: "/app/keys/host_key",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.PhysicsRate <= 0 {
		invalid("physics_rate must be positive (got %d)", c.PhysicsRate)
	}
	if c.Balls < 0 {
		invalid("balls must not be negative (got %d)", c.Balls)
	}
	if err := c.Bounds().Validate(); err != nil {
		invalid("width and height: %v", err)
	}
	if err := physics.ValidateRestitution(c.Restitution); err != nil {
		invalid("restitution: %v", err)
	}
	if _, err := spawn.Scenario(c.Scenario); err != nil {
		invalid("scenario: %v", err)
	}
	if _, err := physics.ParseKind(c.BroadPhase); err != nil {
		invalid("broad_phase: %v", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level: %v", err)
	}
	return errors.Join(errs...)
}

// Bounds returns the simulation bounds for Width x Height.
func (c *Config) Bounds() physics.Bounds {
	return physics.BoundsFromSize(c.Width, c.Height)
}

// Kind returns the configured broad phase, or the cached sweep if invalid.
func (c *Config) Kind() physics.Kind {
	k, err := physics.ParseKind(c.BroadPhase)
	if err != nil {
		return physics.KindCached
	}
	return k
}

// Level returns the configured log level, or info if invalid.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}

// Logger builds a stderr logger at the configured level.
func (c *Config) Logger(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           c.Level(),
		Prefix:          prefix,
		ReportTimestamp: true,
	})
}

// RegisterFlags binds flags for every field to c, using c's current values as
// defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.PhysicsRate, "rate", c.PhysicsRate, "physics tick rate in Hz")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.Float64Var(&c.Restitution, "restitution", c.Restitution, "coefficient of restitution in [0,1]")
	fs.IntVar(&c.Balls, "n", c.Balls, "number of balls")
	fs.StringVar(&c.Scenario, "scenario", c.Scenario, "spawn scenario: many, smash or collide")
	fs.StringVar(&c.BroadPhase, "broad-phase", c.BroadPhase, "broad phase: naive, sweep, cached or grid")
	fs.Float64Var(&c.Width, "width", c.Width, "world width")
	fs.Float64Var(&c.Height, "height", c.Height, "world height")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&c.SSH.Host, "host", c.SSH.Host, "ssh listen host")
	fs.StringVar(&c.SSH.Port, "port", c.SSH.Port, "ssh listen port")
	fs.StringVar(&c.SSH.HostKey, "host-key", c.SSH.HostKey, "ssh host key path")
}

// Parse resolves the layered configuration for a command: defaults, the file
// named by -config, BALLS_* environment variables, then the flags in args.
// The returned FlagSet holds the remaining positional arguments.
func Parse(name string, args []string) (Config, *flag.FlagSet, error) {
	// First pass only finds -config and rejects unknown flags.
	scratch := Default()
	var path string
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.StringVar(&path, "config", "", "YAML config file")
	scratch.RegisterFlags(pre)
	if err := pre.Parse(args); err != nil {
		return Config{}, nil, err
	}

	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return c, nil, err
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return c, nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.Path, "config", c.Path, "YAML config file")
	c.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return c, nil, err
	}
	if err := c.Validate(); err != nil {
		return c, fs, err
	}
	return c, fs, nil
}
