package engine

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/roach88/cellsim/internal/world"
)

// Kernel is the external diffusion/reaction stepping collaborator.
//
// Advance moves and reacts molecules over [from, to). Molecules created
// synchronously during Advance (for example by a release triggered from a
// reaction callback) are not visible to the scheduler; they arrive through
// Adopt once Advance returns.
type Kernel interface {
	Advance(ctx context.Context, env *Env, from, to float64) error
	Adopt(env *Env, actions []world.PendingAction) error
}

// NopKernel leaves molecules where they are. Adopted molecules get their
// diffusion clock set to their creation time.
type NopKernel struct{}

func (NopKernel) Advance(context.Context, *Env, float64, float64) error { return nil }

func (NopKernel) Adopt(env *Env, actions []world.PendingAction) error {
	for _, a := range actions {
		m := env.World.Molecule(a.Molecule)
		if m == nil {
			return fmt.Errorf("pending action for unknown molecule %d", a.Molecule)
		}
		if m.DiffusionTime < a.Time {
			m.DiffusionTime = a.Time
		}
	}
	return nil
}

// DiffuseReactEvent advances the kernel one iteration at a time. It owns
// the world's pending-action list for the duration of each step.
type DiffuseReactEvent struct {
	BaseEvent
	Kernel Kernel

	lastEnd  float64
	lastSize int
}

// NewDiffuseReactEvent creates a per-iteration diffusion event starting at
// iteration start.
func NewDiffuseReactEvent(k Kernel, start float64) *DiffuseReactEvent {
	if k == nil {
		k = NopKernel{}
	}
	return &DiffuseReactEvent{
		BaseEvent: BaseEvent{
			Kind:        EventTypeDiffuseReact,
			Label:       "diffuse_react",
			Time:        start,
			Periodicity: 1,
		},
		Kernel: k,
	}
}

// Step advances molecules up to the end of the iteration, stopping early
// at the next scheduled barrier.
func (d *DiffuseReactEvent) Step(ctx context.Context, env *Env) error {
	from := d.Time
	to := math.Floor(from) + 1
	if b, ok := env.Scheduler.NextBarrierTime(from); ok && b < to {
		to = b
	}

	if _, err := env.World.BeginDiffusion(d.Label); err != nil {
		return NewRuntimeError(ErrCodeInvalidState, "%v", err)
	}
	err := d.Kernel.Advance(ctx, env, from, to)
	actions := env.World.EndDiffusion()
	if err != nil {
		return fmt.Errorf("advance kernel [%g, %g): %w", from, to, err)
	}
	if len(actions) > 0 {
		env.Logger.Debug("adopting pending molecules", "iteration", from, "count", len(actions))
		if err := d.Kernel.Adopt(env, actions); err != nil {
			return fmt.Errorf("adopt pending molecules: %w", err)
		}
	}
	d.lastEnd, d.lastSize = to, len(actions)
	return nil
}

// Reschedule resumes where the last step stopped, which is the next
// iteration boundary unless a barrier cut the step short.
func (d *DiffuseReactEvent) Reschedule() bool {
	if d.lastEnd <= d.Time {
		d.Time += d.Periodicity
		return true
	}
	d.Time = d.lastEnd
	return true
}

// LastAdopted returns how many pending molecules the last step adopted.
func (d *DiffuseReactEvent) LastAdopted() int { return d.lastSize }

func (d *DiffuseReactEvent) Dump(w io.Writer, indent string) {
	d.DumpBase(w, indent)
	fmt.Fprintf(w, "%s  kernel: %T\n", indent, d.Kernel)
}

func (d *DiffuseReactEvent) ToCheckpoint(timeStep float64) Checkpoint {
	cp := d.BaseCheckpoint(timeStep)
	cp.State["kernel"] = fmt.Sprintf("%T", d.Kernel)
	cp.State["last_end"] = d.lastEnd * timeStep
	return cp
}
