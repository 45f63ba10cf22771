package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/config"
	"github.com/mealsub/mealsub-cli/internal/logging"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedsync"
	"github.com/mealsub/mealsub-cli/internal/session"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

// runtime is what every command needs: settings, a logger and a client.
type runtime struct {
	cfg      config.Config
	log      *slog.Logger
	client   *api.Client
	closeLog func() error
}

func openRuntime(opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogPath(), opts.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open log file", err)
	}
	apiOpts := cfg.APIOptions()
	apiOpts.Logger = logger
	return &runtime{cfg: cfg, log: logger, client: api.New(apiOpts), closeLog: closeLog}, nil
}

func (r *runtime) Close() error {
	return r.closeLog()
}

func (r *runtime) userID(opts *RootOptions) (models.ID, error) {
	if opts.UserID != "" {
		return models.ID(opts.UserID), nil
	}
	if r.cfg.UserID != "" {
		return r.cfg.UserID, nil
	}
	return "", NewExitError(ExitCommandError, "no user: pass --user, set "+config.EnvUserID+", or log in through the interactive view")
}

func (r *runtime) newSync() *schedsync.Sync {
	return schedsync.New(r.client, r.cfg.Weeks, r.log)
}

// subscriber is a loaded user with their schedule.
type subscriber struct {
	id      models.ID
	session session.Session
	sched   *models.Schedule
	sync    *schedsync.Sync
}

func (r *runtime) loadSubscriber(ctx context.Context, opts *RootOptions) (*subscriber, error) {
	id, err := r.userID(opts)
	if err != nil {
		return nil, err
	}
	sync := r.newSync()
	sess, sched, err := sync.LoadSubscriber(ctx, r.client, id)
	if err != nil {
		return nil, classify("load subscriber", err)
	}
	return &subscriber{id: id, session: sess, sched: sched, sync: sync}, nil
}

// classify maps errors from the core to exit codes. Rejected swap input is
// the caller's mistake; everything else is a failed request.
func classify(message string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if errors.Is(err, swap.ErrValidation) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
