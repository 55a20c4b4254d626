package world

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Policy controls how recoverable placement failures are reported.
type Policy int

const (
	// PolicyIgnore logs the failure at info level and continues.
	PolicyIgnore Policy = iota
	// PolicyWarning logs a warning and continues.
	PolicyWarning
	// PolicyError logs an error and terminates the run.
	PolicyError
)

func (p Policy) String() string {
	switch p {
	case PolicyIgnore:
		return "ignore"
	case PolicyWarning:
		return "warning"
	case PolicyError:
		return "error"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses ignore, warning or error.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return PolicyIgnore, nil
	case "", "warning", "warn":
		return PolicyWarning, nil
	case "error":
		return PolicyError, nil
	}
	return PolicyWarning, fmt.Errorf("unknown placement failure policy %q (want ignore|warning|error)", s)
}

// PlacementError is returned when a placement failure is reported under
// PolicyError.
type PlacementError struct {
	Message string
}

func (e *PlacementError) Error() string { return "placement failed: " + e.Message }

// ReportPlacementFailure applies the configured policy to a recoverable
// placement failure. It returns a *PlacementError only under PolicyError.
func (w *World) ReportPlacementFailure(msg string, attrs ...any) error {
	w.placementFailures++
	level := slog.LevelInfo
	switch w.cfg.FailurePolicy {
	case PolicyWarning:
		level = slog.LevelWarn
	case PolicyError:
		level = slog.LevelError
	}
	w.logger.Log(context.Background(), level, msg, attrs...)
	if w.cfg.FailurePolicy == PolicyError {
		return &PlacementError{Message: msg}
	}
	return nil
}
