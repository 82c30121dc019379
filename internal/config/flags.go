package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

var (
	// ErrHelp is returned when -h/--help was requested.
	ErrHelp = errors.New("help requested")
	// ErrMissingConfig is returned when --config was not given.
	ErrMissingConfig = errors.New("--config is required")
)

// Flags is the command line: a single required path to the routes document.
type Flags struct {
	ConfigPath string
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("nginxlb", flag.ContinueOnError)
	usage := new(strings.Builder)
	fs.SetOutput(usage)

	path := fs.String("config", "", "Path to the config file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Flags{}, fmt.Errorf("%w\n%s", ErrHelp, usage.String())
		}
		return Flags{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if strings.TrimSpace(*path) == "" {
		return Flags{}, ErrMissingConfig
	}

	return Flags{ConfigPath: *path}, nil
}
