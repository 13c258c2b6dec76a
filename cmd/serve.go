package main

import (
	"context"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/server"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve plays the stored feed under remote control until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.Config().Server

	source := func(context.Context) ([]models.AuthorGroup, error) {
		groups, _, err := r.loadGroups(nil)
		return groups, err
	}

	groups, err := source(ctx)
	if err != nil {
		return err
	}

	seq := r.newSequencer()
	defer seq.Close()
	seq.OpenGroups(groups, 0, 0)
	if len(groups) == 0 {
		r.logger.Warn("feed is empty; POST /session/open once stories are imported")
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Addr()
	}

	router := server.NewRouter(seq, source, cfg, shared.WithLogger(r.logger, "component", "server"))
	r.writePlain("Remote control on http://%s (Ctrl+C to stop)\n", addr)
	return server.NewServer(addr, router, r.logger).Run(ctx)
}
