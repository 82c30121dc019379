package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/command"
	"github.com/MrSnakeDoc/nginxlb/internal/command/commandtest"
	"github.com/MrSnakeDoc/nginxlb/internal/config"
	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
	"github.com/MrSnakeDoc/nginxlb/internal/nginx"
)

const document = `
email: ops@example.com
routesDir: %s
routes:
  - host: a.example
    upstream: http://127.0.0.1:8080
    tls: true
  - host: b.example
    upstream: http://127.0.0.1:8081
    tls: false
`

func writeDocument(t *testing.T, routesDir, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := strings.Replace(body, "%s", routesDir, 1)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func testConfig(path string) *config.Config {
	return &config.Config{
		ConfigPath:      path,
		LogLevel:        "error",
		CertbotBin:      "certbot",
		NginxBin:        "nginx",
		CycleInterval:   time.Hour,
		ShutdownTimeout: time.Second,
	}
}

func waitCycles(t *testing.T, a *App, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, cycles := a.Status().LastCycle(); cycles >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cycle %d never completed", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunContextSupervises(t *testing.T) {
	routesDir := t.TempDir()
	exec := commandtest.New()
	exec.On("certbot certificates -d a.example", command.Result{Stdout: "No certificates found.\n"})

	a, err := build(testConfig(writeDocument(t, routesDir, document)), logger.Nop(), exec)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunContext(ctx) }()

	waitCycles(t, a, 1)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunContext() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunContext() did not return after cancel")
	}

	for _, host := range []string{"a.example", "b.example"} {
		if _, err := os.Stat(filepath.Join(routesDir, host+".conf")); err != nil {
			t.Errorf("fragment for %s missing: %v", host, err)
		}
	}
	if started := exec.Started(); len(started) != 1 {
		t.Fatalf("proxy started %d times, want 1", len(started))
	}
	if n := exec.Count("certbot --nginx --agree-tos --non-interactive -m ops@example.com -d a.example"); n != 1 {
		t.Errorf("obtain calls = %d, want 1", n)
	}
	if n := exec.Count("nginx -s reload"); n != 1 {
		t.Errorf("reload calls = %d, want 1", n)
	}

	a1, _ := a.Status().Get("a.example")
	if a1.Final != domain.StateIssued {
		t.Errorf("a.example final = %s, want %s", a1.Final, domain.StateIssued)
	}
	b1, _ := a.Status().Get("b.example")
	if b1.Final != domain.StateNotApplicable {
		t.Errorf("b.example final = %s, want %s", b1.Final, domain.StateNotApplicable)
	}
}

func TestTriggerRunsAnotherCycle(t *testing.T) {
	exec := commandtest.New()
	a, err := build(testConfig(writeDocument(t, t.TempDir(), document)), logger.Nop(), exec)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.RunContext(ctx) }()

	waitCycles(t, a, 1)
	a.Trigger()
	a.Trigger() // coalesced
	waitCycles(t, a, 2)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunContext() error = %v", err)
	}
	if n := exec.Count("certbot certificates -d a.example"); n < 2 {
		t.Errorf("inspections = %d, want at least 2", n)
	}
}

func TestBuildRejectsInvalidDocument(t *testing.T) {
	dup := `
email: ops@example.com
routesDir: /srv
routes:
  - host: a.example
    upstream: http://127.0.0.1:8080
    tls: true
  - host: a.example
    upstream: http://127.0.0.1:8081
    tls: false
`
	_, err := build(testConfig(writeDocument(t, "", dup)), logger.Nop(), commandtest.New())
	if !errors.Is(err, config.ErrDuplicateHost) {
		t.Fatalf("build() error = %v, want ErrDuplicateHost", err)
	}
}

func TestRunContextMissingRoutesDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	exec := commandtest.New()
	a, err := build(testConfig(writeDocument(t, missing, document)), logger.Nop(), exec)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	err = a.RunContext(context.Background())
	var dirErr *nginx.DirectoryError
	if !errors.As(err, &dirErr) {
		t.Fatalf("RunContext() error = %v, want DirectoryError", err)
	}
	if len(exec.Started()) != 0 {
		t.Error("proxy must not start when fragments cannot be written")
	}
	if len(exec.Calls()) != 0 {
		t.Errorf("no certificate commands expected, got %v", exec.Calls())
	}
}

func TestRunContextProxyStartFailure(t *testing.T) {
	exec := commandtest.New()
	exec.StartErr = errors.New("executable file not found")
	a, err := build(testConfig(writeDocument(t, t.TempDir(), document)), logger.Nop(), exec)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	if err := a.RunContext(context.Background()); err == nil {
		t.Fatal("RunContext() should fail when the proxy cannot start")
	}
	if exec.Count("certbot") != 0 {
		t.Errorf("no cycle expected after a failed start, got %v", exec.Calls())
	}
}
