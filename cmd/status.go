package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Status reports the remote service health.
//
// A degraded service is printed before its error is returned.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.logger.Debug("checking service health", "url", r.api.BaseURL())

	health, err := r.api.Health(ctx)
	if health == nil {
		return err
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(health, false); werr != nil {
			return werr
		}
		return err
	}

	r.writePlain("Service:  %s\n", health.Status)
	if health.Mode != "" {
		r.writePlain("Mode:     %s\n", health.Mode)
	}
	r.writePlain("Endpoint: %s\n", r.config.ScrapeURL())

	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
