// Package config loads simulation settings from defaults, a YAML file,
// environment variables and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "BALLS_"

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ApplyEnv overrides fields from BALLS_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Scenario = GetEnv(EnvPrefix+"SCENARIO", c.Scenario)
	c.BroadPhase = GetEnv(EnvPrefix+"BROAD_PHASE", c.BroadPhase)
	c.LogLevel = GetEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.SSH.Host = GetEnv(EnvPrefix+"SSH_HOST", c.SSH.Host)
	c.SSH.Port = GetEnv(EnvPrefix+"SSH_PORT", c.SSH.Port)
	c.SSH.HostKey = GetEnv(EnvPrefix+"SSH_HOST_KEY", c.SSH.HostKey)

	ints := []struct {
		key string
		dst *int
	}{
		{"PHYSICS_RATE", &c.PhysicsRate},
		{"BALLS", &c.Balls},
	}
	for _, e := range ints {
		if err := envParse(e.key, e.dst, strconv.Atoi); err != nil {
			return err
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"RESTITUTION", &c.Restitution},
		{"WIDTH", &c.Width},
		{"HEIGHT", &c.Height},
	}
	for _, e := range floats {
		if err := envParse(e.key, e.dst, parseFloat); err != nil {
			return err
		}
	}

	return envParse("SEED", &c.Seed, parseUint)
}

func envParse[T any](key string, dst *T, parse func(string) (T, error)) error {
	raw, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		return fmt.Errorf("config: env %s%s: %w", EnvPrefix, key, err)
	}
	*dst = v
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
