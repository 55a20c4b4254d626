package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/cellsim/internal/count"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []count.Row // Relevant rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, row := range e.Trace {
			fmt.Fprintf(&buf, "  %s/%s @%g = %g\n", row.Buffer, row.Column, row.Iteration, row.Value)
		}
	}

	return buf.String()
}

// assertCountValue checks the value of one buffer column at one iteration.
func assertCountValue(r *Result, a Assertion) error {
	series := r.Series(a.Buffer, a.Column)
	for _, row := range series {
		if row.Iteration != *a.Iteration {
			continue
		}
		if math.Abs(row.Value-*a.Value) <= a.Tolerance {
			return nil
		}
		return &AssertionError{
			Type:     AssertCountValue,
			Expected: fmt.Sprintf("%s/%s = %g at iteration %g", a.Buffer, a.Column, *a.Value, *a.Iteration),
			Actual:   fmt.Sprintf("%g", row.Value),
			Trace:    series,
		}
	}

	return &AssertionError{
		Type:     AssertCountValue,
		Expected: fmt.Sprintf("a %s/%s row at iteration %g", a.Buffer, a.Column, *a.Iteration),
		Actual:   "no row at that iteration",
		Trace:    series,
	}
}

// assertCountRows checks the number of rows of a buffer.
func assertCountRows(r *Result, a Assertion) error {
	n := len(r.Series(a.Buffer, a.Column))
	if n == *a.Count {
		return nil
	}

	what := a.Buffer
	if a.Column != "" {
		what += "/" + a.Column
	}
	return &AssertionError{
		Type:     AssertCountRows,
		Expected: fmt.Sprintf("%s has %d rows", what, *a.Count),
		Actual:   fmt.Sprintf("%d rows", n),
	}
}

// assertEventsFired checks how often an event type fired.
func assertEventsFired(r *Result, a Assertion) error {
	if n := r.Fired[a.Event]; n != *a.Count {
		return &AssertionError{
			Type:     AssertEventsFired,
			Expected: fmt.Sprintf("%s fired %d times", a.Event, *a.Count),
			Actual:   fmt.Sprintf("%d times", n),
		}
	}
	return nil
}

// assertLiveMolecules checks the live molecule count at the end of the run.
func assertLiveMolecules(r *Result, a Assertion) error {
	if r.LiveMolecules != *a.Count {
		return &AssertionError{
			Type:     AssertLiveMolecules,
			Expected: fmt.Sprintf("%d live molecules", *a.Count),
			Actual:   fmt.Sprintf("%d", r.LiveMolecules),
		}
	}
	return nil
}

// assertMonotonic checks that a column never moves against direction.
func assertMonotonic(r *Result, a Assertion) error {
	series := r.Series(a.Buffer, a.Column)
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1].Value, series[i].Value
		if (a.Direction == DirectionIncreasing && curr < prev) ||
			(a.Direction == DirectionDecreasing && curr > prev) {
			return &AssertionError{
				Type:     AssertMonotonic,
				Expected: fmt.Sprintf("%s/%s %s", a.Buffer, a.Column, a.Direction),
				Actual: fmt.Sprintf("%g at iteration %g followed by %g at iteration %g",
					prev, series[i-1].Iteration, curr, series[i].Iteration),
				Trace: series,
			}
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions against a result and returns the
// messages of the ones that failed.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCountValue:
			err = assertCountValue(r, a)
		case AssertCountRows:
			err = assertCountRows(r, a)
		case AssertEventsFired:
			err = assertEventsFired(r, a)
		case AssertLiveMolecules:
			err = assertLiveMolecules(r, a)
		case AssertMonotonic:
			err = assertMonotonic(r, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
