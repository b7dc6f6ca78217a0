package export

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression over a RecordSummary, for
// example
//
//	project == "Spring" && any(pages, .problems > 0)
//
// Field names are the JSON names of RecordSummary and PageSummary.
type Filter struct {
	source  string
	program *vm.Program
}

// NewFilter compiles expression. An empty expression matches every record.
func NewFilter(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(expression, expr.Env(RecordSummary{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return &Filter{source: expression, program: program}, nil
}

// String returns the expression the filter was compiled from.
func (f *Filter) String() string {
	return f.source
}

// Match reports whether r satisfies the filter.
func (f *Filter) Match(r RecordSummary) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, r)
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on record %d: %w", f.source, r.ID, err)
	}
	return out.(bool), nil
}

// Apply returns the records that match, in order.
func (f *Filter) Apply(records []RecordSummary) ([]RecordSummary, error) {
	if f.program == nil {
		return records, nil
	}
	out := []RecordSummary{}
	for _, r := range records {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
