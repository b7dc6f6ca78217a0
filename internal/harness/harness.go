package harness

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/jacquard/internal/service"
	"github.com/roach88/jacquard/internal/store"
	"github.com/roach88/jacquard/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a service over a fresh in-memory store, with a
// deterministic clock shared by the store and the service.
type Harness struct {
	store *store.Store
	svc   *service.Service
	clock *testutil.DeterministicClock
	log   zerolog.Logger
	seq   int64
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for step logs and the stack under test.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) { h.log = l }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database at the scenario's schema version
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the trace and the store
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock: testutil.NewDeterministicClock(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	storeOpts := []store.Option{store.WithClock(h.clock.Now), store.WithLogger(h.log)}
	if scenario.SchemaVersion != 0 {
		storeOpts = append(storeOpts, store.WithTargetVersion(scenario.SchemaVersion))
	}
	st, err := store.Open(ctx, ":memory:", storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h.store = st
	h.svc = service.New(st, service.WithClock(h.clock.Now), service.WithLogger(h.log))

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	h.executeFlow(ctx, scenario.Flow, result)

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// invoke runs one action, recording its invocation and completion.
func (h *Harness) invoke(ctx context.Context, name string, args map[string]any, result *Result) (string, map[string]any, error) {
	act, ok := actions[name]
	if !ok {
		return "", nil, fmt.Errorf("unknown action %q", name)
	}

	result.AddInvocationTrace(name, args, h.nextSeq())
	out, err := act(h, ctx, args)
	outcome := outputCase(err)
	out = normalizeMap(out)
	result.AddCompletionTrace(outcome, out, h.nextSeq())

	h.log.Debug().Str("action", name).Str("output_case", outcome).Err(err).Msg("step completed")
	return outcome, out, err
}

// executeSetup runs all setup steps. Setup steps must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		if _, _, err := h.invoke(ctx, step.Action, step.Args, result); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}

// executeFlow runs the flow steps and checks each expect clause. A step
// without an expect clause must succeed.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		outcome, out, err := h.invoke(ctx, step.Invoke, step.Args, result)

		want := CaseOK
		if step.Expect != nil {
			want = step.Expect.Case
		}
		if outcome != want {
			msg := fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Invoke, want, outcome)
			if err != nil {
				msg += fmt.Sprintf(" (%v)", err)
			}
			result.AddError(msg)
			continue
		}

		if step.Expect == nil {
			continue
		}
		for key, expected := range step.Expect.Result {
			actual, exists := out[key]
			if !exists {
				result.AddError(fmt.Sprintf("flow[%d] %s: result has no field %q", i, step.Invoke, key))
				continue
			}
			if !valuesEqual(actual, expected) {
				result.AddError(fmt.Sprintf("flow[%d] %s: result %q = %v, expected %v",
					i, step.Invoke, key, actual, expected))
			}
		}
	}
}
