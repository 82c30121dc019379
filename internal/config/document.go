package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
)

var (
	// ErrDuplicateHost is returned when two routes share a host.
	ErrDuplicateHost = errors.New("all hosts must be unique")
	// ErrMissingField is returned for every required field left empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidHost is returned for a host that is not a plain DNS name.
	ErrInvalidHost = errors.New("invalid host")
)

// hostPattern accepts DNS names with an optional leading wildcard label. The
// host becomes a file name under routesDir and a server_name directive, so
// separators, whitespace and nginx syntax must never get through.
var hostPattern = regexp.MustCompile(`^(\*\.)?[A-Za-z0-9_]([A-Za-z0-9_-]*[A-Za-z0-9_])?(\.[A-Za-z0-9_]([A-Za-z0-9_-]*[A-Za-z0-9_])?)*$`)

// routeEntry mirrors one item of the routes list. Pointers tell "absent"
// apart from the zero value.
type routeEntry struct {
	Host     string `yaml:"host"`
	Upstream string `yaml:"upstream"`
	TLS      *bool  `yaml:"tls"`
}

type documentFile struct {
	Email     string        `yaml:"email"`
	RoutesDir string        `yaml:"routesDir"`
	Routes    *[]routeEntry `yaml:"routes"`
}

// Document is the validated routes document. It is built once at startup and
// only read afterwards.
type Document struct {
	Email     string
	RoutesDir string
	Routes    []domain.Route
}

// LoadDocument reads, parses and validates the YAML routes document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses and validates a routes document.
func ParseDocument(data []byte) (*Document, error) {
	var raw documentFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	var errs error
	if raw.Email == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: email", ErrMissingField))
	}
	if raw.RoutesDir == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: routesDir", ErrMissingField))
	}
	if raw.Routes == nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: routes", ErrMissingField))
	}

	doc := &Document{Email: raw.Email, RoutesDir: raw.RoutesDir}
	if raw.Routes != nil {
		doc.Routes = make([]domain.Route, 0, len(*raw.Routes))
		for i, entry := range *raw.Routes {
			route, err := entry.toRoute(i)
			errs = multierr.Append(errs, err)
			doc.Routes = append(doc.Routes, route)
		}
	}

	errs = multierr.Append(errs, doc.Validate())
	if errs != nil {
		return nil, fmt.Errorf("invalid config: %w", errs)
	}
	return doc, nil
}

func (e routeEntry) toRoute(i int) (domain.Route, error) {
	var errs error
	if e.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: routes[%d].host", ErrMissingField, i))
	} else if !hostPattern.MatchString(e.Host) {
		errs = multierr.Append(errs, fmt.Errorf("%w: routes[%d].host %q", ErrInvalidHost, i, e.Host))
	}
	if e.Upstream == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: routes[%d].upstream", ErrMissingField, i))
	}
	if e.TLS == nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: routes[%d].tls", ErrMissingField, i))
	}

	route := domain.Route{Host: e.Host, Upstream: e.Upstream}
	if e.TLS != nil {
		route.TLSEnabled = *e.TLS
	}
	return route, errs
}

// Validate checks the invariants that hold across routes.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Routes))
	var errs error
	for _, r := range d.Routes {
		if r.Host == "" {
			continue
		}
		if seen[r.Host] {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrDuplicateHost, r.Host))
			continue
		}
		seen[r.Host] = true
	}
	return errs
}

// Hosts returns the route hosts in configuration order.
func (d *Document) Hosts() []string {
	hosts := make([]string, 0, len(d.Routes))
	for _, r := range d.Routes {
		hosts = append(hosts, r.Host)
	}
	return hosts
}

// TLSRoutes counts routes under certificate management.
func (d *Document) TLSRoutes() int {
	n := 0
	for _, r := range d.Routes {
		if r.TLSEnabled {
			n++
		}
	}
	return n
}
