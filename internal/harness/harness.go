package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cellsim/internal/compiler"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/sim"
	"github.com/roach88/cellsim/internal/store"
	"github.com/roach88/cellsim/internal/testutil"
)

var eventTypes = []engine.EventType{
	engine.EventTypeClampRelease,
	engine.EventTypeRelease,
	engine.EventTypeCount,
	engine.EventTypeDiffuseReact,
}

// Harness is the scenario execution engine. Each scenario runs against a
// fresh in-memory store with the scenario name as its run id.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load, compile and validate the model; apply overrides
// 2. Create fresh in-memory database
// 3. Run the model to its final iteration (or first fatal error)
// 4. Read the recorded count trace back from the store
// 5. Check the expected outcome and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// a run that ends differently than expected is a failed Result.
func Run(scenario *Scenario) (*Result, error) {
	m, err := compiler.LoadModelDir(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if scenario.Seed != nil {
		m.Config.Seed = *scenario.Seed
	}
	if scenario.Iterations != nil {
		m.Config.Iterations = *scenario.Iterations
	}
	if errs := compiler.Validate(m); len(errs) > 0 {
		return nil, fmt.Errorf("invalid model: %w", errs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, logger: testutil.DiscardLogger()}
	return h.run(context.Background(), scenario, m)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, m *ir.Model) (*Result, error) {
	runner := &sim.Runner{
		Store:  h.store,
		Logger: h.logger,
		IDs:    testutil.NewFixedRunIDGenerator(scenario.Name),
	}
	res, s, runErr := runner.Run(ctx, m)
	if s == nil {
		return nil, fmt.Errorf("failed to build model: %w", runErr)
	}

	result := NewResult()
	result.RunID = res.RunID
	result.Status = res.Status
	result.Iteration = res.Iteration
	result.LiveMolecules = res.LiveMolecules
	if runErr != nil {
		result.ErrorCode = string(engine.CodeOf(runErr))
	}
	for _, t := range eventTypes {
		result.Fired[t.String()] = s.Engine.Fired(t)
	}

	trace, err := h.store.ReadCounts(ctx, res.RunID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read count trace: %w", err)
	}
	result.Trace = trace

	checkExpectation(scenario.Expect, result, runErr)
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// checkExpectation compares how the run ended with how it should have.
func checkExpectation(want Expectation, result *Result, runErr error) {
	if result.Status != want.WantStatus() {
		msg := fmt.Sprintf("expected status %s, got %s", want.WantStatus(), result.Status)
		if runErr != nil {
			msg += fmt.Sprintf(" (%v)", runErr)
		}
		result.AddError(msg)
		return
	}
	if want.ErrorCode != "" && result.ErrorCode != want.ErrorCode {
		result.AddError(fmt.Sprintf("expected error code %s, got %q", want.ErrorCode, result.ErrorCode))
	}
}
