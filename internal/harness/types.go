package harness

import "github.com/roach88/cellsim/internal/count"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expectation and every assertion hold.
	Pass bool `json:"pass"`

	RunID         string  `json:"run_id"`
	Status        string  `json:"status"`
	ErrorCode     string  `json:"error_code,omitempty"`
	Iteration     float64 `json:"iteration"`
	LiveMolecules int     `json:"live_molecules"`

	// Fired counts firings by event type name.
	Fired map[string]int `json:"fired"`

	// Trace contains every count row the run appended, in append order.
	Trace []count.Row `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Fired:  make(map[string]int),
		Trace:  []count.Row{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Series returns the trace rows of one buffer, optionally narrowed to one
// column.
func (r *Result) Series(buffer, column string) []count.Row {
	var out []count.Row
	for _, row := range r.Trace {
		if row.Buffer == buffer && (column == "" || row.Column == column) {
			out = append(out, row)
		}
	}
	return out
}
