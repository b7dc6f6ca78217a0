package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jacquard/internal/export"
	"github.com/roach88/jacquard/internal/model"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List and manage records",
		Long: `List, inspect, save, copy, move, rename and delete records.

Records without a project are listed as ungrouped.

Examples:
  jacquard records list --project 3
  jacquard records list --date 2024-03-01
  jacquard records show 12
  jacquard records save --draft damask.yaml --project 3
  jacquard records save --draft damask.yaml --edit 12
  jacquard records copy 12 --into 4
  jacquard records move 12 --project 4
  jacquard records search damask`,
	}

	cmd.AddCommand(newRecordsListCommand(rootOpts))
	cmd.AddCommand(newRecordsShowCommand(rootOpts))
	cmd.AddCommand(newRecordsSaveCommand(rootOpts))
	cmd.AddCommand(newRecordsCopyCommand(rootOpts))
	cmd.AddCommand(newRecordsMoveCommand(rootOpts))
	cmd.AddCommand(newRecordsRenameCommand(rootOpts))
	cmd.AddCommand(newRecordsDeleteCommand(rootOpts))
	cmd.AddCommand(newRecordsSearchCommand(rootOpts))

	return cmd
}

// RecordRow is one line of a record listing.
type RecordRow struct {
	ID        model.ID  `json:"id"`
	Name      string    `json:"name"`
	ProjectID *model.ID `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
	Pages     int       `json:"pages"`
}

func recordRows(records []model.Record) []RecordRow {
	rows := make([]RecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, RecordRow{
			ID:        r.ID,
			Name:      r.Name,
			ProjectID: r.ProjectID,
			Timestamp: r.Timestamp,
			Pages:     len(r.Pages),
		})
	}
	return rows
}

func outputRecords(e *env, records []model.Record) error {
	rows := recordRows(records)
	return e.out.Result(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No records found")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%-6d %-32s %s  %d pages\n",
				r.ID, r.Name, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Pages)
		}
	})
}

func outputRecord(e *env, verb string, r model.Record) error {
	return e.out.Result(recordRows([]model.Record{r})[0], func(w io.Writer) {
		where := ungroupedLabel
		if r.ProjectID != nil {
			where = "project " + r.ProjectID.String()
		}
		fmt.Fprintf(w, "%s record %d: %s (%s)\n", verb, r.ID, r.Name, where)
	})
}

// RecordsListOptions holds flags for records list.
type RecordsListOptions struct {
	*RootOptions
	Project string
	Date    string
}

func newRecordsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of a project, newest first",
		Long: `List the records of a project, newest first. Without --project the
ungrouped records are listed. --date lists every record last saved on
that day instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectFlag(opts.Project)
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				var records []model.Record
				if opts.Date != "" {
					records, err = e.svc.RecordsOnDate(cmd.Context(), opts.Date)
				} else {
					records, err = e.svc.ListRecordsInProject(cmd.Context(), project)
				}
				if err != nil {
					return err
				}
				return outputRecords(e, records)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "project ID (default: ungrouped records)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "list records saved on this day (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("project", "date")

	return cmd
}

func newRecordsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show ID",
		Short:         "Show a record page by page",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				summary, err := e.svc.RecordSummary(cmd.Context(), id)
				if err != nil {
					return err
				}
				return e.out.Result(summary, func(w io.Writer) {
					writeRecordSummary(w, summary)
				})
			})
		},
	}
}

func writeRecordSummary(w io.Writer, s export.RecordSummary) {
	project := ungroupedLabel
	if s.ProjectID != nil {
		project = fmt.Sprintf("%s (%d)", s.Project, *s.ProjectID)
	}
	fmt.Fprintf(w, "Record %d: %s\n", s.ID, s.Name)
	fmt.Fprintf(w, "  Project:  %s\n", project)
	fmt.Fprintf(w, "  Saved:    %s\n", s.RecordedAt.Local().Format(time.RFC3339))
	if s.LegacyMedia > 0 {
		fmt.Fprintf(w, "  Legacy media: %d\n", s.LegacyMedia)
	}
	for _, p := range s.Pages {
		fmt.Fprintf(w, "  Page %d: warp %d, weft %d, density %s, problems %d, products %d\n",
			p.Page, p.WarpYarns, p.WeftYarns, p.ActualDensity, p.Problems, p.Products)
	}
}

// RecordsSaveOptions holds flags for records save.
type RecordsSaveOptions struct {
	*RootOptions
	Draft   string
	Edit    string
	Project string
}

func newRecordsSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsSaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a record from a draft file",
		Long: `Compose a record from a YAML draft file and save it.

With --edit the draft is applied on top of the stored record and replaces
it. Every page must carry an EP image; otherwise nothing is written and
the offending pages are reported.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordsSave(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Draft, "draft", "", "path to draft YAML file (required)")
	_ = cmd.MarkFlagRequired("draft")
	cmd.Flags().StringVar(&opts.Edit, "edit", "", "ID of the record to replace")
	cmd.Flags().StringVar(&opts.Project, "project", "", "file the record under this project")

	return cmd
}

func runRecordsSave(cmd *cobra.Command, opts *RecordsSaveOptions) error {
	file, err := loadDraft(opts.Draft)
	if err != nil {
		return err
	}
	project, err := projectFlag(opts.Project)
	if err != nil {
		return err
	}
	var editID model.ID
	if opts.Edit != "" {
		if editID, err = parseID(opts.Edit); err != nil {
			return err
		}
	}

	return run(cmd, opts.RootOptions, func(e *env) error {
		ctx := cmd.Context()
		sess := e.svc.NewSession(nil)
		if editID != 0 {
			if err := sess.BeginEditRecord(ctx, editID); err != nil {
				return err
			}
		}
		if err := file.Apply(sess); err != nil {
			return WrapExitError(ExitCommandError, "failed to apply draft", err)
		}
		if project != nil {
			sess.SetProject(project)
		}

		e.out.Verbosef("Saving %d pages from %s", sess.Len(), opts.Draft)
		res, err := sess.Save(ctx)
		if err != nil {
			return err
		}
		return e.out.Result(res, func(w io.Writer) {
			verb := "Updated"
			if res.Inserted {
				verb = "Saved new"
			}
			fmt.Fprintf(w, "%s record %d (%d pages)\n", verb, res.ID, res.Pages)
		})
	})
}

// RecordsCopyOptions holds flags for records copy.
type RecordsCopyOptions struct {
	*RootOptions
	Into      string
	Ungrouped bool
}

func newRecordsCopyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsCopyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "copy ID",
		Short: "Copy a record",
		Long: `Copy a record with all of its pages. The copy stays in the same project
unless --into or --ungrouped names another destination.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			into, err := projectFlag(opts.Into)
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				var c model.Record
				if into != nil || opts.Ungrouped {
					c, err = e.svc.DuplicateRecordInto(cmd.Context(), id, into)
				} else {
					c, err = e.svc.DuplicateRecord(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				return outputRecord(e, "Copied to", c)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Into, "into", "", "project ID to paste the copy into")
	cmd.Flags().BoolVar(&opts.Ungrouped, "ungrouped", false, "paste the copy outside any project")
	cmd.MarkFlagsMutuallyExclusive("into", "ungrouped")

	return cmd
}

func newRecordsMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:           "move ID",
		Short:         "File a record under another project (or none)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			project, err := projectFlag(target)
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				r, err := e.svc.MoveRecord(cmd.Context(), id, project)
				if err != nil {
					return err
				}
				return outputRecord(e, "Moved", r)
			})
		},
	}

	cmd.Flags().StringVar(&target, "project", "", "destination project ID (default: ungrouped)")

	return cmd
}

func newRecordsRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rename ID NAME",
		Short:         "Rename a record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				r, err := e.svc.RenameRecord(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				return outputRecord(e, "Renamed", r)
			})
		},
	}
}

func newRecordsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete a record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				if err := e.svc.DeleteRecord(cmd.Context(), id); err != nil {
					return err
				}
				return e.out.Result(map[string]model.ID{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted record %d\n", id)
				})
			})
		},
	}
}

func newRecordsSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "search TERM",
		Short:         "Find records whose name contains TERM",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(e *env) error {
				records, err := e.svc.SearchRecords(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return outputRecords(e, records)
			})
		},
	}
}
