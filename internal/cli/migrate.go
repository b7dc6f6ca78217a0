package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jacquard/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	To int // 0 means the configured schema_version
}

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	Database string              `json:"database"`
	Version  int                 `json:"version"`
	Indexes  map[string][]string `json:"indexes"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Open the database, creating it if needed, and bring its schema up to
the configured version. Running it again on an up-to-date database
changes nothing.

Examples:
  jacquard migrate --db ./jacquard.db
  jacquard migrate --db ./old.db --to 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []store.Option
			if opts.To != 0 {
				extra = append(extra, store.WithTargetVersion(opts.To))
			}
			return run(cmd, opts.RootOptions, func(e *env) error {
				return runMigrate(cmd, e)
			}, extra...)
		},
	}

	cmd.Flags().IntVar(&opts.To, "to", 0, "target schema version (default from config)")

	return cmd
}

func runMigrate(cmd *cobra.Command, e *env) error {
	indexes, err := e.store.Indexes(cmd.Context())
	if err != nil {
		return err
	}
	result := MigrateResult{
		Database: e.cfg.Database,
		Version:  e.store.Version(),
		Indexes:  indexes,
	}
	return e.out.Result(result, func(w io.Writer) {
		fmt.Fprintf(w, "Database %s at schema version %d\n", result.Database, result.Version)
		for _, table := range []string{"projects", "records", "media"} {
			fmt.Fprintf(w, "  %-8s %d indexes\n", table, len(result.Indexes[table]))
		}
	})
}
