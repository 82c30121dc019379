// Package nginx owns the reverse proxy side: per-route config fragments and
// the nginx process itself.
package nginx

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/nginxlb/internal/command"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "nginx"

// ErrReloadFailed wraps every reload failure. The previous configuration stays live.
var ErrReloadFailed = errors.New("nginx reload failed")

var (
	startArgs  = []string{"-g", "daemon off;"}
	reloadArgs = []string{"-s", "reload"}
)

// Controller starts and reloads the proxy.
type Controller struct {
	exec   command.Executor
	bin    string
	logger logger.Logger
}

// NewController creates a controller for bin (DefaultBinary when empty).
func NewController(exec command.Executor, bin string, log logger.Logger) *Controller {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Controller{exec: exec, bin: bin, logger: log}
}

// Start launches the proxy in the foreground as a long-lived child and
// returns once it is running. The returned channel receives the child's exit
// error (nil on clean exit) and is then closed.
func (c *Controller) Start() (<-chan error, error) {
	proc, err := c.exec.Start(c.bin, startArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to start proxy: %w", err)
	}
	c.logger.Info("proxy started",
		logger.Command(command.Line(c.bin, startArgs...)),
		logger.Int("pid", proc.Pid()))

	exited := make(chan error, 1)
	go func() {
		defer close(exited)
		exited <- proc.Wait()
	}()
	return exited, nil
}

// Reload asks the running proxy to re-read its configuration.
func (c *Controller) Reload(ctx context.Context) error {
	res, err := c.exec.Run(ctx, c.bin, reloadArgs...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	if err := res.Check(c.bin, reloadArgs...); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	c.logger.Debug("proxy reloaded")
	return nil
}
