package nginx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/command"
	"github.com/MrSnakeDoc/nginxlb/internal/command/commandtest"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

func TestControllerStart(t *testing.T) {
	exec := commandtest.New()
	c := NewController(exec, "", logger.New("error", false))

	exited, err := c.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := exec.Count("nginx -g daemon off;"); n != 1 {
		t.Fatalf("expected one foreground start, got calls %v", exec.Calls())
	}

	procs := exec.Started()
	if len(procs) != 1 {
		t.Fatalf("expected 1 started process, got %d", len(procs))
	}

	select {
	case <-exited:
		t.Fatal("exit reported before the process exited")
	default:
	}

	boom := errors.New("signal: killed")
	procs[0].Exit(boom)

	select {
	case got := <-exited:
		if !errors.Is(got, boom) {
			t.Errorf("exit error = %v, want %v", got, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("exit was not reported")
	}
}

func TestControllerStartFailure(t *testing.T) {
	exec := commandtest.New()
	exec.StartErr = errors.New("exec: \"nginx\": executable file not found in $PATH")
	c := NewController(exec, "", logger.New("error", false))

	if _, err := c.Start(); err == nil {
		t.Error("Start() should fail when the proxy cannot be launched")
	}
}

func TestControllerReload(t *testing.T) {
	tests := []struct {
		name    string
		script  func(e *commandtest.Executor)
		wantErr bool
	}{
		{
			name:    "success",
			script:  func(e *commandtest.Executor) {},
			wantErr: false,
		},
		{
			name: "non-zero exit",
			script: func(e *commandtest.Executor) {
				e.On("nginx -s reload", command.Result{ExitCode: 1, Stderr: "invalid PID number"})
			},
			wantErr: true,
		},
		{
			name: "launch failure",
			script: func(e *commandtest.Executor) {
				e.OnError("nginx", errors.New("not found"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := commandtest.New()
			tt.script(exec)
			c := NewController(exec, "", logger.New("error", false))

			err := c.Reload(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrReloadFailed) {
				t.Errorf("Reload() error should match ErrReloadFailed, got %v", err)
			}
			if n := exec.Count("nginx -s reload"); n != 1 {
				t.Errorf("expected one reload call, got %d", n)
			}
		})
	}
}
