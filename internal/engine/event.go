package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cellsim/internal/rng"
	"github.com/roach88/cellsim/internal/world"
)

// EventType tags event kinds. The numeric value is the ordering priority
// among events sharing an event time: lower fires first.
type EventType int

const (
	EventTypeClampRelease EventType = 190
	EventTypeRelease      EventType = 200
	EventTypeCount        EventType = 300
	EventTypeDiffuseReact EventType = 500
)

func (t EventType) String() string {
	switch t {
	case EventTypeClampRelease:
		return "clamp_release"
	case EventTypeRelease:
		return "release"
	case EventTypeCount:
		return "count"
	case EventTypeDiffuseReact:
		return "diffuse_react"
	default:
		return fmt.Sprintf("event_type(%d)", int(t))
	}
}

// Env is everything an event may touch while it steps. Randomness is drawn
// only from RNG so that the same seed and call sequence reproduce a run.
type Env struct {
	World     *world.World
	RNG       *rng.RNG
	Scheduler *Scheduler
	Logger    *slog.Logger
}

// TimeStep returns the iteration length in seconds.
func (env *Env) TimeStep() float64 { return env.World.Config().TimeStep }

// Event is the closed set of schedulable things: ClampReleaseEvent,
// ReleaseEvent, MolOrRxnCountEvent and DiffuseReactEvent.
//
// Step runs the event to completion. Reschedule advances event_time to the
// next occurrence and reports whether there is one; it must never move
// event_time backwards.
type Event interface {
	Type() EventType
	Name() string
	EventTime() float64
	PeriodicityInterval() float64
	Step(ctx context.Context, env *Env) error
	Reschedule() bool

	// NeedsSecondaryOrdering reports whether ties on event time and type
	// are broken by SecondaryOrderingValue.
	NeedsSecondaryOrdering() bool
	SecondaryOrderingValue() float64

	// IsBarrier reports whether diffusion must stop at this event.
	IsBarrier() bool

	Dump(w io.Writer, indent string)
	ToCheckpoint(timeStep float64) Checkpoint
}

// Checkpoint is the serializable state of one event. Times are in seconds.
type Checkpoint struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	EventTime   float64        `json:"event_time"`
	Periodicity float64        `json:"periodicity_interval"`
	State       map[string]any `json:"state,omitempty"`
}

// BaseEvent carries the fields shared by every event and the default
// periodic rescheduling. Concrete events embed it.
type BaseEvent struct {
	Kind        EventType
	Label       string
	Time        float64
	Periodicity float64
}

func (b *BaseEvent) Type() EventType                 { return b.Kind }
func (b *BaseEvent) Name() string                    { return b.Label }
func (b *BaseEvent) EventTime() float64              { return b.Time }
func (b *BaseEvent) PeriodicityInterval() float64    { return b.Periodicity }
func (b *BaseEvent) NeedsSecondaryOrdering() bool    { return false }
func (b *BaseEvent) SecondaryOrderingValue() float64 { return 0 }
func (b *BaseEvent) IsBarrier() bool                 { return false }

// Reschedule advances a periodic event by its interval. One-shot events
// (periodicity 0) have no further occurrence.
func (b *BaseEvent) Reschedule() bool {
	if b.Periodicity <= 0 {
		return false
	}
	b.Time += b.Periodicity
	return true
}

// DumpBase writes the shared fields.
func (b *BaseEvent) DumpBase(w io.Writer, indent string) {
	fmt.Fprintf(w, "%s%s %q\n", indent, b.Kind, b.Label)
	fmt.Fprintf(w, "%s  event_time: %g\n", indent, b.Time)
	fmt.Fprintf(w, "%s  periodicity_interval: %g\n", indent, b.Periodicity)
}

// BaseCheckpoint returns the shared fields with times scaled to seconds.
func (b *BaseEvent) BaseCheckpoint(timeStep float64) Checkpoint {
	return Checkpoint{
		Type:        b.Kind.String(),
		Name:        b.Label,
		EventTime:   b.Time * timeStep,
		Periodicity: b.Periodicity * timeStep,
		State:       map[string]any{},
	}
}
