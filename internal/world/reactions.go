package world

import (
	"fmt"

	"github.com/roach88/cellsim/internal/geom"
)

// ReactionID identifies a reaction rule.
type ReactionID int

// Reaction is a registered reaction rule. Only Counted rules accumulate
// occurrence maps.
type Reaction struct {
	ID      ReactionID
	Name    string
	Counted bool
}

// Occurrences accumulates how often a reaction fired, split by where.
type Occurrences struct {
	Total    float64
	ByVolume map[CountedVolumeID]float64
	ByWall   map[geom.WallID]float64
}

// AddReaction registers a reaction rule.
func (w *World) AddReaction(r Reaction) (ReactionID, error) {
	if r.Name == "" {
		return -1, fmt.Errorf("reaction name is required")
	}
	if _, dup := w.reactionByName[r.Name]; dup {
		return -1, fmt.Errorf("duplicate reaction %q", r.Name)
	}
	r.ID = ReactionID(len(w.reactions))
	w.reactions = append(w.reactions, r)
	w.reactionByName[r.Name] = r.ID
	return r.ID, nil
}

// Reaction returns the rule or nil.
func (w *World) Reaction(id ReactionID) *Reaction {
	if id < 0 || int(id) >= len(w.reactions) {
		return nil
	}
	return &w.reactions[id]
}

// ReactionByName resolves a rule name.
func (w *World) ReactionByName(name string) (ReactionID, bool) {
	id, ok := w.reactionByName[name]
	return id, ok
}

// MarkReactionCounted flags a rule so its occurrences are tracked.
func (w *World) MarkReactionCounted(id ReactionID) error {
	r := w.Reaction(id)
	if r == nil {
		return fmt.Errorf("unknown reaction %d", id)
	}
	r.Counted = true
	return nil
}

// RecordReaction is called by the reaction kernel each time a rule fires.
// Surface reactions pass the wall they happened on; volume reactions pass
// geom.NoWall and the reaction position.
func (w *World) RecordReaction(id ReactionID, wall geom.WallID, pos geom.Vec3) {
	r := w.Reaction(id)
	if r == nil || !r.Counted {
		return
	}
	occ := w.occurrences[id]
	if occ == nil {
		occ = &Occurrences{
			ByVolume: make(map[CountedVolumeID]float64),
			ByWall:   make(map[geom.WallID]float64),
		}
		w.occurrences[id] = occ
	}
	occ.Total++
	if wall != geom.NoWall {
		occ.ByWall[wall]++
		return
	}
	occ.ByVolume[w.CountedVolumeAt(pos)]++
}

// ReactionOccurrences returns the occurrence maps, nil if never fired.
func (w *World) ReactionOccurrences(id ReactionID) *Occurrences {
	return w.occurrences[id]
}
