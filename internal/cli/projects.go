package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jacquard/internal/hierarchy"
	"github.com/roach88/jacquard/internal/model"
)

// NewProjectsCommand creates the projects command group.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and manage projects",
		Long: `List, create, rename, copy and delete projects.

Deleting a project deletes every record filed under it.

Examples:
  jacquard projects list
  jacquard projects create "Spring collection"
  jacquard projects rename 3 "Spring 2025"
  jacquard projects copy 3
  jacquard projects delete 3`,
	}

	cmd.AddCommand(newProjectsListCommand(rootOpts))
	cmd.AddCommand(newProjectsCreateCommand(rootOpts))
	cmd.AddCommand(newProjectsRenameCommand(rootOpts))
	cmd.AddCommand(newProjectsCopyCommand(rootOpts))
	cmd.AddCommand(newProjectsDeleteCommand(rootOpts))

	return cmd
}

// ProjectRow is one line of the project listing.
type ProjectRow struct {
	ID      *model.ID `json:"id"` // nil for the ungrouped bucket
	Name    string    `json:"name"`
	Records int       `json:"records"`
	Latest  time.Time `json:"latest"`
}

const ungroupedLabel = "(ungrouped)"

func projectRows(summaries []hierarchy.ProjectSummary) []ProjectRow {
	rows := make([]ProjectRow, 0, len(summaries))
	for _, s := range summaries {
		row := ProjectRow{Name: ungroupedLabel, Records: s.Records, Latest: s.Latest}
		if s.Project != nil {
			row.ID = model.Ref(s.Project.ID)
			row.Name = s.Project.Name
		}
		rows = append(rows, row)
	}
	return rows
}

func newProjectsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List projects, newest first, with record counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(e *env) error {
				summaries, err := e.svc.ProjectSummaries(cmd.Context())
				if err != nil {
					return err
				}
				rows := projectRows(summaries)
				return e.out.Result(rows, func(w io.Writer) {
					for _, r := range rows {
						id := "-"
						if r.ID != nil {
							id = r.ID.String()
						}
						fmt.Fprintf(w, "%-6s %-32s %d records\n", id, r.Name, r.Records)
					}
				})
			})
		},
	}
}

func newProjectsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create NAME",
		Short:         "Create a project",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(e *env) error {
				p, err := e.svc.CreateProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return outputProject(e, "Created", p)
			})
		},
	}
}

func newProjectsRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rename ID NAME",
		Short:         "Rename a project",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				p, err := e.svc.RenameProject(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				return outputProject(e, "Renamed", p)
			})
		},
	}
}

func newProjectsCopyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "copy ID",
		Short:         "Copy a project (its records are not copied)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				p, err := e.svc.DuplicateProject(cmd.Context(), id)
				if err != nil {
					return err
				}
				return outputProject(e, "Copied to", p)
			})
		},
	}
}

func newProjectsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete a project and all of its records",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, func(e *env) error {
				report, err := e.svc.DeleteProjectCascade(cmd.Context(), id)
				if err != nil {
					return err
				}
				return e.out.Result(report, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted project %d and %d records\n", report.ProjectID, report.RecordsDeleted)
				})
			})
		},
	}
}

func outputProject(e *env, verb string, p model.Project) error {
	return e.out.Result(p, func(w io.Writer) {
		fmt.Fprintf(w, "%s project %d: %s\n", verb, p.ID, p.Name)
	})
}
