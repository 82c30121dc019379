package nginx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

var routeTemplate = template.Must(template.New("route").Parse(`
server {

    server_name {{ .Host }};
    charset     utf-8;
    # max upload size
    client_max_body_size 75M;

    location / {
        proxy_pass {{ .Upstream }};
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
`))

// DirectoryError means the fragment directory is missing or not a directory.
// It is fatal: nothing can be materialized.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("routes dir %s does not exist or is not a directory: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// Materializer writes one server block per route into the routes directory.
// A fragment is created once and never rewritten, even if the route's
// upstream changes later.
type Materializer struct {
	dir    string
	logger logger.Logger
}

// NewMaterializer creates a materializer writing into dir.
func NewMaterializer(dir string, log logger.Logger) *Materializer {
	return &Materializer{dir: dir, logger: log}
}

// Materialize ensures a fragment exists for every route. The first failure
// aborts, since a missing fragment leaves the proxy unaware of a host.
func (m *Materializer) Materialize(routes []domain.Route) error {
	if err := checkDir(m.dir); err != nil {
		return err
	}

	created := 0
	for _, route := range routes {
		ok, err := m.materialize(route)
		if err != nil {
			m.logger.Error("failed to write route config",
				logger.Host(route.Host),
				logger.Error(err))
			return err
		}
		if ok {
			created++
		}
	}

	m.logger.Info("route configs materialized",
		logger.Int("routes", len(routes)),
		logger.Int("created", created))
	return nil
}

// Path returns where the fragment for route lives.
func (m *Materializer) Path(route domain.Route) string {
	return filepath.Join(m.dir, route.FragmentName())
}

func (m *Materializer) materialize(route domain.Route) (bool, error) {
	path := m.Path(route)

	// O_EXCL makes the existence check and the creation one step.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		m.logger.Info("route config already exists", logger.String("file", path))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := routeTemplate.Execute(f, route); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}

	m.logger.Info("route config created",
		logger.String("file", path),
		logger.String("upstream", route.Upstream))
	return true, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &DirectoryError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &DirectoryError{Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}
