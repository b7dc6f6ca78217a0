package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/jacquard/internal/draft"
	"github.com/roach88/jacquard/internal/hierarchy"
	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
	"github.com/roach88/jacquard/internal/testutil"
)

// Output cases reported for flow steps.
const (
	CaseOK                = "ok"
	CaseEmptyName         = "EMPTY_NAME"
	CaseCascadeIncomplete = "CASCADE_INCOMPLETE"
	CaseError             = "ERROR"
)

// action runs one scenario step against the harness service.
type action func(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error)

// actions maps scenario action names to implementations.
var actions = map[string]action{
	"create_project": createProject,
	"rename_project": renameProject,
	"copy_project":   copyProject,
	"delete_project": deleteProject,
	"save_record":    saveRecord,
	"rename_record":  renameRecord,
	"move_record":    moveRecord,
	"copy_record":    copyRecord,
	"delete_record":  deleteRecord,
	"list_records":   listRecords,
	"search_records": searchRecords,
}

// outputCase maps an operation error to the case reported in the trace.
func outputCase(err error) string {
	var storeErr *store.Error
	switch {
	case err == nil:
		return CaseOK
	case hierarchy.IsCascadeError(err):
		return CaseCascadeIncomplete
	case errors.As(err, &storeErr):
		return string(storeErr.Code)
	case draft.IsValidationError(err):
		return draft.ErrCodeValidationFailed
	case errors.Is(err, hierarchy.ErrEmptyName):
		return CaseEmptyName
	default:
		return CaseError
	}
}

func createProject(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return projectResult(p), nil
}

func renameProject(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.RenameProject(ctx, id, name)
	if err != nil {
		return nil, err
	}
	return projectResult(p), nil
}

func copyProject(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.svc.DuplicateProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return projectResult(p), nil
}

func deleteProject(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	report, err := h.svc.DeleteProjectCascade(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"records_deleted": int64(report.RecordsDeleted)}, nil
}

// saveRecord composes and saves a record through a draft session.
//
// Args: name, project (nullable), edit (ID of a record to reopen), pages
// (page count, default 1 for new records; every page gets an EP image) and
// missing_ep (indices whose EP image is cleared before saving).
func saveRecord(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	sess := h.svc.NewSession(nil)

	pages := 1
	if _, ok := args["edit"]; ok {
		id, err := argID(args, "edit")
		if err != nil {
			return nil, err
		}
		if err := sess.BeginEditRecord(ctx, id); err != nil {
			return nil, err
		}
		pages = 0
	}
	if name, ok := args["name"]; ok {
		sess.SetName(fmt.Sprint(name))
	}
	if _, ok := args["project"]; ok {
		project, err := argOptID(args, "project")
		if err != nil {
			return nil, err
		}
		sess.SetProject(project)
	}

	if _, ok := args["pages"]; ok {
		n, err := argInt(args, "pages")
		if err != nil {
			return nil, err
		}
		pages = n
	}
	if pages > 0 {
		for sess.Len() > 1 {
			if err := sess.RemovePage(sess.Len() - 1); err != nil {
				return nil, err
			}
		}
		if err := sess.SetEPImage(0, testutil.Image("ep")); err != nil {
			return nil, err
		}
		for i := 1; i < pages; i++ {
			sess.AddPage()
		}
	}

	missing, err := argInts(args, "missing_ep")
	if err != nil {
		return nil, err
	}
	for _, i := range missing {
		if err := sess.SetEPImage(i, nil); err != nil {
			return nil, err
		}
	}

	res, err := sess.Save(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":       int64(res.ID),
		"inserted": res.Inserted,
		"pages":    int64(res.Pages),
	}, nil
}

func renameRecord(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}
	r, err := h.svc.RenameRecord(ctx, id, name)
	if err != nil {
		return nil, err
	}
	return recordResult(r), nil
}

func moveRecord(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	project, err := argOptID(args, "project")
	if err != nil {
		return nil, err
	}
	r, err := h.svc.MoveRecord(ctx, id, project)
	if err != nil {
		return nil, err
	}
	return recordResult(r), nil
}

// copyRecord copies a record into its own project, or into "into" when the
// key is present (null pastes it ungrouped).
func copyRecord(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	var r model.Record
	if _, ok := args["into"]; ok {
		into, err := argOptID(args, "into")
		if err != nil {
			return nil, err
		}
		r, err = h.svc.DuplicateRecordInto(ctx, id, into)
		if err != nil {
			return nil, err
		}
	} else {
		r, err = h.svc.DuplicateRecord(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return recordResult(r), nil
}

func deleteRecord(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := argID(args, "id")
	if err != nil {
		return nil, err
	}
	return nil, h.svc.DeleteRecord(ctx, id)
}

func listRecords(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	project, err := argOptID(args, "project")
	if err != nil {
		return nil, err
	}
	records, err := h.svc.ListRecordsInProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ids": recordIDs(records)}, nil
}

func searchRecords(h *Harness, ctx context.Context, args map[string]any) (map[string]any, error) {
	term, err := argString(args, "term")
	if err != nil {
		return nil, err
	}
	records, err := h.svc.SearchRecords(ctx, term)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ids": recordIDs(records)}, nil
}

func projectResult(p model.Project) map[string]any {
	return map[string]any{"id": int64(p.ID), "name": p.Name}
}

func recordResult(r model.Record) map[string]any {
	return map[string]any{"id": int64(r.ID), "name": r.Name, "project_id": refValue(r.ProjectID)}
}

func recordIDs(records []model.Record) []any {
	ids := make([]any, len(records))
	for i, r := range records {
		ids[i] = int64(r.ID)
	}
	return ids
}

// refValue turns a nullable reference into nil or an int64.
func refValue(id *model.ID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: want string, got %T", key, v)
	}
	return s, nil
}

func argInt(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("arg %q: want integer, got %T", key, v)
	}
	return n, nil
}

func argID(args map[string]any, key string) (model.ID, error) {
	n, err := argInt(args, key)
	return model.ID(n), err
}

// argOptID reads a nullable ID. A missing or null arg is nil.
func argOptID(args map[string]any, key string) (*model.ID, error) {
	if v, ok := args[key]; !ok || v == nil {
		return nil, nil
	}
	id, err := argID(args, key)
	if err != nil {
		return nil, err
	}
	return model.Ref(id), nil
}

func argInts(args map[string]any, key string) ([]int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %q: want list, got %T", key, v)
	}
	out := make([]int, len(list))
	for i, item := range list {
		n, ok := item.(int)
		if !ok {
			return nil, fmt.Errorf("arg %q[%d]: want integer, got %T", key, i, item)
		}
		out[i] = n
	}
	return out, nil
}
