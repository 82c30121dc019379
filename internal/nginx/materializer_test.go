package nginx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

func TestMaterializeCreatesFragments(t *testing.T) {
	dir := t.TempDir()
	m := NewMaterializer(dir, logger.New("error", false))

	routes := []domain.Route{
		{Host: "a.example", Upstream: "http://10.0.0.1:8080", TLSEnabled: true},
		{Host: "b.example", Upstream: "http://10.0.0.2:9000", TLSEnabled: false},
	}
	if err := m.Materialize(routes); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.example.conf"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	body := string(data)
	for _, want := range []string{
		"server_name a.example;",
		"client_max_body_size 75M;",
		"proxy_pass http://10.0.0.1:8080;",
		"proxy_set_header Host $host;",
		"proxy_set_header X-Real-IP $remote_addr;",
		"proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;",
		"proxy_set_header X-Forwarded-Proto $scheme;",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q:\n%s", want, body)
		}
	}
}

func TestMaterializeFirstWriteWins(t *testing.T) {
	dir := t.TempDir()
	m := NewMaterializer(dir, logger.New("error", false))

	first := []domain.Route{{Host: "a.example", Upstream: "http://old:8080", TLSEnabled: true}}
	if err := m.Materialize(first); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	path := m.Path(first[0])
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	second := []domain.Route{{Host: "a.example", Upstream: "http://new:9090", TLSEnabled: true}}
	if err := m.Materialize(second); err != nil {
		t.Fatalf("second Materialize() error = %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(before) != string(after) {
		t.Error("existing fragment was rewritten")
	}
	if !strings.Contains(string(after), "http://old:8080") {
		t.Error("fragment should keep the first upstream")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 fragment, got %d", len(entries))
	}
}

func TestMaterializeKeepsHandEditedFragment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.example.conf")
	if err := os.WriteFile(path, []byte("# managed by hand\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m := NewMaterializer(dir, logger.New("error", false))
	if err := m.Materialize([]domain.Route{{Host: "a.example", Upstream: "http://x"}}); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "# managed by hand\n" {
		t.Errorf("fragment content changed: %q", data)
	}
}

func TestMaterializeDirectoryErrors(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		dir  string
	}{
		{name: "missing directory", dir: filepath.Join(base, "missing")},
		{name: "path is a file", dir: file},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMaterializer(tt.dir, logger.New("error", false))
			err := m.Materialize([]domain.Route{{Host: "a.example", Upstream: "http://x"}})

			var dirErr *DirectoryError
			if !errors.As(err, &dirErr) {
				t.Fatalf("Materialize() error = %v, want *DirectoryError", err)
			}
			if dirErr.Path != tt.dir {
				t.Errorf("DirectoryError.Path = %q, want %q", dirErr.Path, tt.dir)
			}
		})
	}
}

func TestMaterializeWriteFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	m := NewMaterializer(dir, logger.New("error", false))

	// A host containing a path separator points into a directory that does not exist.
	routes := []domain.Route{
		{Host: "a.example", Upstream: "http://x"},
		{Host: "missing/b.example", Upstream: "http://y"},
	}
	err := m.Materialize(routes)
	if err == nil {
		t.Fatal("Materialize() should fail when a fragment cannot be created")
	}
	var dirErr *DirectoryError
	if errors.As(err, &dirErr) {
		t.Errorf("write failure should not be reported as a DirectoryError: %v", err)
	}
}
