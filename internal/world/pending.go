package world

import "fmt"

// PendingAction registers a molecule created while a diffusion step is in
// flight. The diffusion event consumes the list when the step ends so the
// molecule starts diffusing no earlier than its creation time.
type PendingAction struct {
	Molecule MoleculeID
	Time     float64
}

// PendingActions is owned by the in-flight diffusion event.
type PendingActions struct {
	owner   string
	actions []PendingAction
}

// Owner names the diffusion event that owns the list.
func (p *PendingActions) Owner() string { return p.owner }

// Add appends a molecule to be picked up at the end of the step.
func (p *PendingActions) Add(id MoleculeID, t float64) {
	p.actions = append(p.actions, PendingAction{Molecule: id, Time: t})
}

// Len returns the number of queued actions.
func (p *PendingActions) Len() int { return len(p.actions) }

// BeginDiffusion opens a pending-action list for the named diffusion event.
func (w *World) BeginDiffusion(owner string) (*PendingActions, error) {
	if w.pending != nil {
		return nil, fmt.Errorf("diffusion step %q already in flight", w.pending.owner)
	}
	w.pending = &PendingActions{owner: owner}
	return w.pending, nil
}

// Pending returns the in-flight list, or nil outside diffusion.
func (w *World) Pending() *PendingActions { return w.pending }

// EndDiffusion closes the list and returns its actions in creation order.
func (w *World) EndDiffusion() []PendingAction {
	if w.pending == nil {
		return nil
	}
	actions := w.pending.actions
	w.pending = nil
	return actions
}
