package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/depsgraph/internal/app"
	"github.com/vk/depsgraph/internal/recalc"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// tagList collects repeated --tag flags.
type tagList []app.Tag

func (l *tagList) String() string {
	parts := make([]string, len(*l))
	for i, t := range *l {
		parts[i] = fmt.Sprintf("%s=%s", t.Element, t.Mask)
	}
	return strings.Join(parts, " ")
}

// Set parses "element" or "element=reason,reason".
func (l *tagList) Set(v string) error {
	el, reasons, _ := strings.Cut(v, "=")
	el = strings.TrimSpace(el)
	if el == "" {
		return fmt.Errorf("tag %q: missing element", v)
	}
	mask, err := recalc.Parse(reasons)
	if err != nil {
		return fmt.Errorf("tag %q: %w", v, err)
	}
	*l = append(*l, app.Tag{Element: el, Mask: mask})
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("depsgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
depsgraph - An incremental dependency-graph evaluation engine.

Usage:
  depsgraph [options] SCENE_PATH...

Arguments:
  SCENE_PATH
    Path to a .hcl file, a directory containing .hcl files, or a glob such
    as 'scenes/**/*.hcl'.

Recalc reasons for --tag:
  %s

Options:
`, strings.Join(recalc.Names(), ", "))
		flagSet.PrintDefaults()
	}

	var tags tagList
	configFlag := flagSet.String("config", "", "Path to a YAML settings file. Explicit flags take precedence.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 10, "Number of evaluation workers per pass. Values below 2 evaluate serially.")
	framesFlag := flagSet.Int("frames", 0, "Step through frames 1..N after the initial evaluation.")
	renderFlag := flagSet.Bool("render", false, "Also evaluate a render-mode instance.")
	notifyFlag := flagSet.String("notify-url", "", "Stream editor updates to this socket.io server.")
	traceFlag := flagSet.Bool("trace", false, "Log every evaluated operation and record trace spans.")
	timestampsFlag := flagSet.Bool("timestamps", false, "Add wall-clock timestamps to trace records.")
	flagSet.Var(&tags, "tag", "Tag an element after the first pass, as 'element=reason,reason'. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg := app.Config{
		ScenePaths:      flagSet.Args(),
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		WorkerCount:     *workersFlag,
		Tags:            tags,
		Frames:          *framesFlag,
		Render:          *renderFlag,
		NotifyURL:       *notifyFlag,
		Trace:           *traceFlag,
		Timestamps:      *timestampsFlag,
	}

	if *configFlag != "" {
		settings, err := app.LoadSettings(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if err := settings.Apply(&cfg, explicit); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		slog.Debug("Settings file applied.", "path", *configFlag)
	}

	if len(cfg.ScenePaths) == 0 {
		slog.Debug("No scene path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
