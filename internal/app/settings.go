package app

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/vk/depsgraph/internal/recalc"
	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML settings file. Explicit command-line flags
// take precedence over it.
type Settings struct {
	Scenes          []string `yaml:"scenes"`
	LogFormat       string   `yaml:"log_format"`
	LogLevel        string   `yaml:"log_level"`
	HealthcheckPort *int     `yaml:"healthcheck_port"`
	Workers         *int     `yaml:"workers"`
	Frames          *int     `yaml:"frames"`
	Render          *bool    `yaml:"render"`
	NotifyURL       string   `yaml:"notify_url"`
	Trace           *bool    `yaml:"trace"`
	Timestamps      *bool    `yaml:"timestamps"`
	// Tags maps element IDs to reason lists such as "transform,geometry".
	Tags map[string]string `yaml:"tags"`
}

// LoadSettings reads a settings file. Unknown keys are rejected.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return &s, nil
}

// Apply fills the fields of cfg whose flag was not set explicitly. explicit
// holds flag names as given on the command line.
func (s *Settings) Apply(cfg *Config, explicit map[string]bool) error {
	if len(cfg.ScenePaths) == 0 {
		cfg.ScenePaths = append(cfg.ScenePaths, s.Scenes...)
	}
	if s.LogFormat != "" && !explicit["log-format"] {
		cfg.LogFormat = s.LogFormat
	}
	if s.LogLevel != "" && !explicit["log-level"] {
		cfg.LogLevel = s.LogLevel
	}
	if s.HealthcheckPort != nil && !explicit["healthcheck-port"] {
		cfg.HealthcheckPort = *s.HealthcheckPort
	}
	if s.Workers != nil && !explicit["workers"] {
		cfg.WorkerCount = *s.Workers
	}
	if s.Frames != nil && !explicit["frames"] {
		cfg.Frames = *s.Frames
	}
	if s.Render != nil && !explicit["render"] {
		cfg.Render = *s.Render
	}
	if s.NotifyURL != "" && !explicit["notify-url"] {
		cfg.NotifyURL = s.NotifyURL
	}
	if s.Trace != nil && !explicit["trace"] {
		cfg.Trace = *s.Trace
	}
	if s.Timestamps != nil && !explicit["timestamps"] {
		cfg.Timestamps = *s.Timestamps
	}
	if !explicit["tag"] {
		for el, reasons := range s.Tags {
			mask, err := recalc.Parse(reasons)
			if err != nil {
				return fmt.Errorf("settings tag %s: %w", el, err)
			}
			cfg.Tags = append(cfg.Tags, Tag{Element: el, Mask: mask})
		}
		sortTags(cfg.Tags)
	}
	return nil
}

func sortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Element < tags[j].Element })
}
