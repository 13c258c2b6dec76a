package main

import (
	"context"

	"github.com/desertthunder/storyx/internal/services"
	"github.com/urfave/cli/v3"
)

func (r *Runner) remoteClient(cmd *cli.Command) *services.RemoteClient {
	url := cmd.String("url")
	if url == "" {
		url = "http://" + r.Config().Server.Addr()
	}
	return services.NewRemoteClient(url, r.httpClient)
}

// RemoteState prints the server's current snapshot.
func (r *Runner) RemoteState(ctx context.Context, cmd *cli.Command) error {
	state, err := r.remoteClient(cmd).State(ctx)
	if err != nil {
		return err
	}
	return r.printRemoteState(state)
}

// RemoteCommand sends the command named by the invoked subcommand.
func (r *Runner) RemoteCommand(ctx context.Context, cmd *cli.Command) error {
	state, err := r.remoteClient(cmd).Command(ctx, cmd.Name)
	if err != nil {
		return err
	}
	return r.printRemoteState(state)
}

// RemoteJump seeks the server's session.
func (r *Runner) RemoteJump(ctx context.Context, cmd *cli.Command) error {
	state, err := r.remoteClient(cmd).Jump(ctx, int(cmd.Int("author-index")), int(cmd.Int("item-index")))
	if err != nil {
		return err
	}
	return r.printRemoteState(state)
}

// RemoteDuration reports a story's natural length to the server.
func (r *Runner) RemoteDuration(ctx context.Context, cmd *cli.Command) error {
	state, err := r.remoteClient(cmd).ReportDuration(ctx, cmd.String("item"), cmd.Duration("length"))
	if err != nil {
		return err
	}
	return r.printRemoteState(state)
}

func (r *Runner) printRemoteState(state *services.RemoteState) error {
	if state.Closed {
		return r.writePlain("■ %s\n", state.Status)
	}
	return r.writePlain("%s author %d story %d (%s/%s) %.0f%%\n",
		state.Status, state.AuthorIndex+1, state.ItemIndex+1, state.AuthorID, state.ItemID, state.ElapsedRatio*100)
}
