// Package count implements observables: periodic events that count
// molecules and reaction occurrences, optionally scoped to a region, and
// append the running totals to count buffers.
package count

import (
	"fmt"

	"github.com/roach88/cellsim/internal/regionexpr"
	"github.com/roach88/cellsim/internal/world"
)

// Scope restricts where a term counts.
type Scope int

const (
	// EnclosedInWorld counts everywhere.
	EnclosedInWorld Scope = iota
	// EnclosedInVolumeRegion counts volume molecules, or volume reactions,
	// whose counted volume satisfies a volume expression.
	EnclosedInVolumeRegion
	// PresentOnSurfaceRegion counts surface molecules, or surface
	// reactions, on the walls of a surface expression.
	PresentOnSurfaceRegion
)

func (s Scope) String() string {
	switch s {
	case EnclosedInWorld:
		return "world"
	case EnclosedInVolumeRegion:
		return "volume_region"
	case PresentOnSurfaceRegion:
		return "surface_region"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Term is one signed addend of an item. It counts either molecules of a
// species (or pseudo-species) or occurrences of a reaction rule.
type Term struct {
	Sign int

	Species  world.SpeciesID
	Reaction world.ReactionID
	// CountsReaction selects Reaction instead of Species.
	CountsReaction bool

	// Orientation filters surface molecules; 0 matches both.
	Orientation int

	Scope  Scope
	Region regionexpr.Expr
}

// Molecules returns a +1 term counting a species everywhere.
func Molecules(species world.SpeciesID) Term {
	return Term{Sign: 1, Species: species, Reaction: -1}
}

// Reactions returns a +1 term counting a reaction rule everywhere.
func Reactions(rxn world.ReactionID) Term {
	return Term{Sign: 1, Species: world.NoSpecies, Reaction: rxn, CountsReaction: true}
}

// In scopes the term to a volume expression.
func (t Term) In(region regionexpr.Expr) Term {
	t.Scope, t.Region = EnclosedInVolumeRegion, region
	return t
}

// On scopes the term to a surface expression.
func (t Term) On(region regionexpr.Expr) Term {
	t.Scope, t.Region = PresentOnSurfaceRegion, region
	return t
}

// Negated flips the term's sign.
func (t Term) Negated() Term {
	t.Sign = -t.Sign
	return t
}

func (t Term) describe(w *world.World) string {
	var what string
	if t.CountsReaction {
		if r := w.Reaction(t.Reaction); r != nil {
			what = "rxn " + r.Name
		} else {
			what = fmt.Sprintf("rxn %d", t.Reaction)
		}
	} else {
		what = w.SpeciesName(t.Species)
	}
	sign := "+"
	if t.Sign < 0 {
		sign = "-"
	}
	switch t.Scope {
	case EnclosedInVolumeRegion:
		return fmt.Sprintf("%s%s in %s", sign, what, t.Region)
	case PresentOnSurfaceRegion:
		return fmt.Sprintf("%s%s on %s", sign, what, t.Region)
	}
	return sign + what
}

// Item is one output column: signed terms, summed, then scaled.
//
// The accumulated total is cumulative across firings and never reset;
// Multiplier applies only to the value written out.
type Item struct {
	Buffer     string
	Column     string
	Terms      []Term
	Multiplier float64

	total float64
	last  []float64
}

// Total returns the accumulated unscaled total.
func (it *Item) Total() float64 { return it.total }

// Value returns the scaled total written to the buffer.
func (it *Item) Value() float64 { return it.total * it.Multiplier }
