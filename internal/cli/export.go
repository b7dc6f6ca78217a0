package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jacquard/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output   string
	Encoding string
	Filter   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export record summaries as JSON or YAML",
		Long: `Write a summary of every record: its project, save time and, per page,
yarn counts, density and media counts. Media payloads are not exported.

--filter takes a boolean expression over the record summary fields
(id, name, project, project_id, date, page_count, legacy_media, pages).

Examples:
  jacquard export > records.json
  jacquard export --as yaml -o records.yaml
  jacquard export --filter 'project == "Spring" && page_count > 1'
  jacquard export --filter 'any(pages, .problems > 0)'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.Encoding, "as", "json", "document encoding (json|yaml)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only export records matching this expression")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	format, err := export.ParseFormat(opts.Encoding)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --as", err)
	}

	return run(cmd, opts.RootOptions, func(e *env) (err error) {
		var w io.Writer = cmd.OutOrStdout()
		if opts.Output != "" {
			f, cerr := os.Create(opts.Output)
			if cerr != nil {
				return WrapExitError(ExitCommandError, "failed to create output file", cerr)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			w = f
		}

		n, err := e.svc.Export(cmd.Context(), w, format, opts.Filter)
		if err != nil {
			return err
		}
		if opts.Output != "" {
			return e.out.Result(map[string]any{"records": n, "output": opts.Output}, func(w io.Writer) {
				fmt.Fprintf(w, "Exported %d records to %s\n", n, opts.Output)
			})
		}
		e.out.Verbosef("Exported %d records", n)
		return nil
	})
}
