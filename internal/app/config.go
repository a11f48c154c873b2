package app

import (
	"errors"
	"fmt"

	"github.com/vk/depsgraph/internal/recalc"
)

// Tag is one element tag applied after the initial evaluation.
type Tag struct {
	Element string
	Mask    recalc.Flag
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePaths []string // hcl files, directories or globs

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	// Tags are applied after the first pass, followed by a second pass.
	Tags []Tag
	// Frames steps the scene through frames 1..Frames after tagging.
	Frames int
	// Render adds a render instance next to the viewport one.
	Render bool
	// NotifyURL streams editor updates to a socket.io server when set.
	NotifyURL string
	// Trace logs every evaluated node and records OpenTelemetry spans.
	Trace      bool
	Timestamps bool
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ScenePaths) == 0 {
		return nil, errors.New("ScenePaths is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.Frames < 0 {
		return nil, fmt.Errorf("frames must not be negative, got %d", cfg.Frames)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	for _, t := range cfg.Tags {
		if t.Element == "" {
			return nil, errors.New("tag without element")
		}
	}
	return &cfg, nil
}
