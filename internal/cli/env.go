package cli

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/jacquard/internal/config"
	"github.com/roach88/jacquard/internal/draft"
	"github.com/roach88/jacquard/internal/hierarchy"
	"github.com/roach88/jacquard/internal/logging"
	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/service"
	"github.com/roach88/jacquard/internal/store"
)

// env is what a command runs against: the resolved config, the logger,
// the open store and the service over it.
type env struct {
	cfg   config.Config
	log   *logging.Logger
	store *store.Store
	svc   *service.Service
	out   *OutputFormatter
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// openEnv resolves the config, builds the logger and opens the store.
// extra store options are applied after the defaults.
func openEnv(cmd *cobra.Command, opts *RootOptions, extra ...store.Option) (*env, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	build := logging.New().
		ToWriter(cmd.ErrOrStderr()).
		Level(cfg.Log.Level).
		Format(cfg.Log.Format)
	if cfg.Log.File != "" {
		build = build.ToFile(cfg.Log.File)
	}
	logger, err := build.Make()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	storeOpts := append([]store.Option{
		store.WithLogger(logger.Logger),
		store.WithTargetVersion(cfg.SchemaVersion),
	}, extra...)

	logger.Debug().Str("path", cfg.Database).Msg("opening database")
	st, err := store.Open(cmd.Context(), cfg.Database, storeOpts...)
	if err != nil {
		logger.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &env{
		cfg:   cfg,
		log:   logger,
		store: st,
		svc: service.New(st,
			service.WithLogger(logger.Logger),
			service.WithCopySuffix(cfg.CopySuffix)),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// Close dumps the store metrics when configured, then closes the store and
// the logger.
func (e *env) Close() error {
	var errs []error
	if e.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(e.cfg.MetricsFile, e.store.Metrics()); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	errs = append(errs, e.store.Close(), e.log.Close())
	return errors.Join(errs...)
}

// run opens an env, calls fn and closes the env. Errors without an exit
// code are mapped through commandError.
func run(cmd *cobra.Command, opts *RootOptions, fn func(e *env) error, extra ...store.Option) (err error) {
	e, err := openEnv(cmd, opts, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close store", cerr)
		}
	}()
	if err := fn(e); err != nil {
		if e.out.Format == "json" {
			_ = e.out.Error(ErrorCode(err), err.Error(), errorDetails(err))
		}
		return commandError(err)
	}
	return nil
}

// commandError attaches an exit code to err based on its kind.
func commandError(err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case draft.IsValidationError(err):
		return WrapExitError(ExitFailure, "save rejected", err)
	case store.IsNotFound(err):
		return WrapExitError(ExitFailure, "not found", err)
	case store.IsWriteFailed(err), store.IsOpenFailed(err), store.IsReadFailed(err):
		return WrapExitError(ExitCommandError, "storage error", err)
	default:
		return WrapExitError(ExitFailure, "command failed", err)
	}
}

// errorDetails returns structured context for err, if it has any.
func errorDetails(err error) any {
	var verr *draft.ValidationError
	if errors.As(err, &verr) {
		return map[string][]int{"pages": verr.Indices}
	}
	var cerr *hierarchy.CascadeError
	if errors.As(err, &cerr) {
		return map[string]any{"project": cerr.ProjectID, "deleted": cerr.Deleted, "total": cerr.Total}
	}
	return nil
}

// parseID parses a positional ID argument.
func parseID(s string) (model.ID, error) {
	id, err := model.ParseID(s)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s), err)
	}
	return id, nil
}

// projectFlag parses an optional --project value; empty means ungrouped.
func projectFlag(s string) (*model.ID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return model.Ref(id), nil
}
