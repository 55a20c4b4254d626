// Package harness provides scenario testing for cellsim models.
//
// The harness loads a model, runs it against a fresh in-memory store and
// checks the recorded count trace and run outcome against a scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../models/fill_and_drain   # relative to the scenario file
//	seed: 7                           # optional override
//	iterations: 4                     # optional override
//	expect:
//	  status: failed                  # default completed
//	  error_code: PLACEMENT_FAILED
//	assertions:
//	  - type: count_value
//	    buffer: out
//	    column: A
//	    iteration: 6
//	    value: 70
//	  - type: events_fired
//	    event: release
//	    count: 2
//
// # Assertion Types
//
//   - count_value: the row of a buffer column at an iteration has a value
//   - count_rows: a buffer (or one of its columns) has exactly N rows
//   - events_fired: an event type fired exactly N times
//   - live_molecules: the run ended with exactly N live molecules
//   - monotonic: a buffer column never decreases (or never increases)
//
// # Deterministic Testing
//
// The run id is the scenario name and the seed comes from the model (or
// the scenario override), so the count trace of a scenario is identical
// across runs. Traces are compared against golden files as canonical JSON.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fill_and_drain.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
