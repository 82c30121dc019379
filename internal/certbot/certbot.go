// Package certbot drives the external certificate authority client: it
// inspects the certificate currently held for a host and requests issuance or
// renewal. All calls are synchronous.
package certbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/nginxlb/internal/command"
	"github.com/MrSnakeDoc/nginxlb/internal/domain"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "certbot"

// ErrCommandFailed wraps every obtain/renew failure.
var ErrCommandFailed = errors.New("certbot command failed")

// Inspector reads the authority client's view of a host's certificate.
type Inspector struct {
	exec   command.Executor
	bin    string
	logger logger.Logger
}

// NewInspector creates an inspector using bin (DefaultBinary when empty).
func NewInspector(exec command.Executor, bin string, log logger.Logger) *Inspector {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Inspector{exec: exec, bin: bin, logger: log}
}

// InspectArgs is the read-only listing command for host.
func InspectArgs(host string) []string {
	return []string{"certificates", "-d", host}
}

// Inspect lists the certificate for host and parses the report.
// Every failure mode yields an Inspection without a record; the miss reason
// is only there to tell the cases apart in logs.
func (i *Inspector) Inspect(ctx context.Context, host string) domain.Inspection {
	args := InspectArgs(host)
	log := i.logger.With(logger.Host(host))

	res, err := i.exec.Run(ctx, i.bin, args...)
	if err != nil {
		log.Error("failed to run certificate listing", logger.Error(err))
		return domain.Inspection{Miss: domain.MissExecError}
	}
	if !res.OK() {
		log.Error("certificate listing exited with failure",
			logger.Int("exit_code", res.ExitCode),
			logger.String("stderr", res.Stderr))
		return domain.Inspection{Miss: domain.MissCommandFailed}
	}

	record, miss := ParseReport(res.Stdout)
	switch miss {
	case domain.MissNoFields:
		log.Error("no certificates found")
		return domain.Inspection{Miss: miss}
	case domain.MissBadExpiry:
		log.Error("failed to parse expiry date")
		return domain.Inspection{Miss: miss}
	}

	log.Info("certificate found",
		logger.String("name", record.Name),
		logger.Strings("domains", record.DomainList()),
		logger.Time("expiry", record.Expiry),
		logger.String("path", record.Path))
	return domain.Inspection{Record: record}
}

// Client requests certificates from the authority.
type Client struct {
	exec   command.Executor
	bin    string
	email  string
	logger logger.Logger
}

// NewClient creates a client registering new certificates under email.
func NewClient(exec command.Executor, bin, email string, log logger.Logger) *Client {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Client{exec: exec, bin: bin, email: email, logger: log}
}

// ObtainArgs is the non-interactive issuance command for host.
func ObtainArgs(host, email string) []string {
	return []string{"--nginx", "--agree-tos", "--non-interactive", "-m", email, "-d", host}
}

// RenewArgs is the quiet renewal command scoped to host.
func RenewArgs(host string) []string {
	return []string{"--nginx", "-q", "renew", "-d", host}
}

// Obtain issues a first certificate for host. It must only be called when no
// certificate exists, since issuance consumes rate-limited quota.
func (c *Client) Obtain(ctx context.Context, host string) error {
	return c.run(ctx, "obtain", host, ObtainArgs(host, c.email))
}

// Renew renews the existing certificate for host.
func (c *Client) Renew(ctx context.Context, host string) error {
	return c.run(ctx, "renew", host, RenewArgs(host))
}

func (c *Client) run(ctx context.Context, op, host string, args []string) error {
	c.logger.Debug("running certbot",
		logger.String("op", op),
		logger.Host(host),
		logger.Command(command.Line(c.bin, args...)))

	res, err := c.exec.Run(ctx, c.bin, args...)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrCommandFailed, op, host, err)
	}
	if err := res.Check(c.bin, args...); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrCommandFailed, op, host, err)
	}
	return nil
}
