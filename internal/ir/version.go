package ir

// Version constants for the model schema and engine.
const (
	// ModelVersion is the model schema version.
	ModelVersion = "1"

	// EngineVersion is the cellsim engine version.
	EngineVersion = "0.1.0"
)
