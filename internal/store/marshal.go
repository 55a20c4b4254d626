package store

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
)

var (
	// ErrEmptyRunID is returned when a run or checkpoint carries no run id.
	ErrEmptyRunID = errors.New("run id must not be empty")

	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")

	// ErrCheckpointNotFound is returned when a run has no checkpoints.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrInvalidCheckpointJSON is returned when a stored payload is malformed.
	ErrInvalidCheckpointJSON = errors.New("checkpoint json is not valid")
)

// payloadJSON keeps uint64 seeds exact and sorts map keys.
var payloadJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// marshalSnapshot returns the stored payload and content hash of a snapshot.
func marshalSnapshot(snap engine.Snapshot) (string, string, error) {
	data, err := payloadJSON.Marshal(snap)
	if err != nil {
		return "", "", fmt.Errorf("marshal snapshot: %w", err)
	}
	hash, err := ir.CheckpointHash(snap)
	if err != nil {
		return "", "", fmt.Errorf("hash snapshot: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalSnapshot parses a stored payload.
func unmarshalSnapshot(payload string) (engine.Snapshot, error) {
	data := []byte(payload)
	if !jsoniter.ConfigFastest.Valid(data) {
		return engine.Snapshot{}, ErrInvalidCheckpointJSON
	}
	var snap engine.Snapshot
	if err := payloadJSON.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, errors.Join(ErrInvalidCheckpointJSON, err)
	}
	return snap, nil
}
