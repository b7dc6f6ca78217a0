package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/jacquard/internal/store"
)

// AssertionError is a failed assertion. Trace assertions attach the trace
// so the failure can be read without rerunning.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assertion failed: %s\n  Expected: %s\n  Actual: %s\n", e.Type, e.Expected, e.Actual)
	if len(e.Trace) == 0 {
		return b.String()
	}
	b.WriteString("\nFull trace:\n")
	for i, ev := range e.Trace {
		if ev.Type == EventInvocation {
			fmt.Fprintf(&b, "  [%d] %s %v\n", i+1, ev.Action, ev.Args)
		}
	}
	return b.String()
}

// invocations returns the positions (1-based, over the whole trace) of the
// invocations of action.
func invocations(trace []TraceEvent, action string) []int {
	var pos []int
	for i, ev := range trace {
		if ev.Type == EventInvocation && ev.Action == action {
			pos = append(pos, i+1)
		}
	}
	return pos
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, p := range invocations(trace, a.Action) {
		if matchFields(trace[p-1].Args, a.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s invoked with args %v", a.Action, a.Args),
		Actual:   "no such invocation in trace",
		Trace:    trace,
	}
}

// assertTraceOrder compares the first invocation of each listed action.
// Other steps may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	first := make([]int, len(a.Actions))
	for i, action := range a.Actions {
		pos := invocations(trace, action)
		if len(pos) == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("every action of %v invoked", a.Actions),
				Actual:   "missing action: " + action,
				Trace:    trace,
			}
		}
		first[i] = pos[0]
	}
	for i := 1; i < len(first); i++ {
		if first[i-1] >= first[i] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("first invocations in order %v", a.Actions),
				Actual: fmt.Sprintf("%s (at %d) should be before %s (at %d)",
					a.Actions[i-1], first[i-1], a.Actions[i], first[i]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	if n := len(invocations(trace, a.Action)); n != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s invoked %d times", a.Action, a.Count),
			Actual:   fmt.Sprintf("%d occurrences", n),
			Trace:    trace,
		}
	}
	return nil
}

// tableRows reads a state table into field maps shaped like action
// results.
func tableRows(ctx context.Context, st *store.Store, table string) ([]map[string]any, error) {
	switch table {
	case "projects":
		projects, err := st.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(projects))
		for i, p := range projects {
			rows[i] = projectResult(p)
		}
		return rows, nil
	case "records":
		records, err := st.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, r := range records {
			row := recordResult(r)
			row["pages"] = int64(len(r.Pages))
			row["date"] = r.Date
			rows[i] = row
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

// matchingRows returns the rows of a.Table matching a.Where.
func matchingRows(ctx context.Context, st *store.Store, a Assertion) ([]map[string]any, error) {
	rows, err := tableRows(ctx, st, a.Table)
	if err != nil {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: "readable table " + a.Table,
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}
	var out []map[string]any
	for _, row := range rows {
		if matchFields(row, a.Where) {
			out = append(out, row)
		}
	}
	return out, nil
}

// assertFinalState requires exactly one row matching Where and checks the
// Expect fields on it.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	rows, err := matchingRows(ctx, st, a)
	if err != nil {
		return err
	}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertFinalState, Expected: expected, Actual: actual}
	}

	where := formatFields(a.Where)
	switch {
	case len(rows) == 0:
		return fail(fmt.Sprintf("row in %s where %s", a.Table, where), "row not found")
	case len(rows) > 1:
		return fail(fmt.Sprintf("exactly one row in %s where %s", a.Table, where),
			fmt.Sprintf("multiple rows matched (%d)", len(rows)))
	}

	row := rows[0]
	for _, key := range sortedKeys(a.Expect) {
		got, ok := row[key]
		if !ok {
			return fail(fmt.Sprintf("field %q", key), fmt.Sprintf("field %q not present in row %v", key, row))
		}
		if !valuesEqual(got, a.Expect[key]) {
			return fail(fmt.Sprintf("field %q = %v", key, a.Expect[key]), fmt.Sprintf("field %q = %v", key, got))
		}
	}
	return nil
}

func assertRowCount(ctx context.Context, st *store.Store, a Assertion) error {
	rows, err := matchingRows(ctx, st, a)
	if err != nil {
		return err
	}
	if len(rows) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", a.Count, a.Table, formatFields(a.Where)),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
		}
	}
	return nil
}

// formatFields renders conditions as "k=v AND ..." in key order.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// matchFields reports whether every key of want is in got with an equal
// value. Extra keys in got are ignored.
func matchFields(got, want map[string]any) bool {
	for k, w := range want {
		g, ok := got[k]
		if !ok || !valuesEqual(g, w) {
			return false
		}
	}
	return true
}

// valuesEqual compares after normalize, so YAML-decoded expectations equal
// action results.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

// normalize converts every integer to int64, every slice to []any and every
// string-keyed map to map[string]any, recursively.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}

// normalizeMap normalizes the values of a result map.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return normalize(m).(map[string]any)
}

// AssertionContext gives state assertions access to the store.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in assertion order. State assertions fail without actx.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertFinalState, AssertRowCount:
		if actx == nil || actx.Store == nil {
			return fmt.Errorf("%s requires store context", a.Type)
		}
		if a.Type == AssertFinalState {
			return assertFinalState(actx.Ctx, actx.Store, a)
		}
		return assertRowCount(actx.Ctx, actx.Store, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
