package env

import (
	"fmt"
	"os"
	"sort"
)

// DefaultFlagVar is the variable name the token is published under.
const DefaultFlagVar = "FLAG"

// DefaultPassthrough lists host variables test programs inherit so that
// interpreters can start normally.
var DefaultPassthrough = []string{
	"PATH",
	"HOME",
	"USER",
	"LANG",
	"LC_ALL",
	"TERM",
	"TMPDIR",
	"TMP",
	"TEMP",
	"SYSTEMROOT",
}

// Builder produces child environments. It snapshots inherited values when
// constructed, so Build is safe for concurrent use.
type Builder struct {
	flagVar string
	base    map[string]string
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig) error

type builderConfig struct {
	passthrough []string
	extra       map[string]string
}

// WithPassthrough inherits additional host variables by name.
func WithPassthrough(names ...string) BuilderOption {
	return func(c *builderConfig) error {
		c.passthrough = append(c.passthrough, names...)
		return nil
	}
}

// WithVariables sets fixed variables for every test program.
func WithVariables(vars map[string]string) BuilderOption {
	return func(c *builderConfig) error {
		for k, v := range vars {
			c.extra[k] = v
		}
		return nil
	}
}

// WithEnvFile adds the entries of a .env file. An empty path is a no-op.
func WithEnvFile(path string) BuilderOption {
	return func(c *builderConfig) error {
		if path == "" {
			return nil
		}
		vars, err := LoadDotEnv(path)
		if err != nil {
			return err
		}
		for k, v := range vars {
			c.extra[k] = v
		}
		return nil
	}
}

// NewBuilder creates a Builder publishing tokens under flagVar.
func NewBuilder(flagVar string, opts ...BuilderOption) (*Builder, error) {
	if flagVar == "" {
		flagVar = DefaultFlagVar
	}
	if !validName(flagVar) {
		return nil, fmt.Errorf("invalid flag variable name %q", flagVar)
	}

	cfg := &builderConfig{
		passthrough: append([]string(nil), DefaultPassthrough...),
		extra:       make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	base := make(map[string]string)
	for _, name := range cfg.passthrough {
		if value, ok := os.LookupEnv(name); ok {
			base[name] = value
		}
	}
	for k, v := range cfg.extra {
		base[k] = v
	}
	delete(base, flagVar)

	return &Builder{flagVar: flagVar, base: base}, nil
}

// FlagVar returns the name of the token variable.
func (b *Builder) FlagVar() string {
	return b.flagVar
}

// Build returns a sorted KEY=value list carrying token under the flag variable.
func (b *Builder) Build(token string) []string {
	out := make([]string, 0, len(b.base)+1)
	for k, v := range b.base {
		out = append(out, k+"="+v)
	}
	out = append(out, b.flagVar+"="+token)
	sort.Strings(out)
	return out
}
