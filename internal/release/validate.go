package release

import (
	"fmt"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/world"
)

func unsupported(format string, args ...any) error {
	return engine.NewRuntimeError(engine.ErrCodeUnsupportedConfig, format, args...)
}

func (r *Event) validate(w *world.World) error {
	if err := r.Pattern.Validate(); err != nil {
		return unsupported("release %q: %v", r.Label, err)
	}
	if r.ReleaseProbability < 0 || r.ReleaseProbability > 1 {
		return unsupported("release %q: release_probability %g outside [0, 1]", r.Label, r.ReleaseProbability)
	}
	if r.Orientation < -1 || r.Orientation > 1 {
		return unsupported("release %q: orientation must be -1, 0 or 1", r.Label)
	}

	switch r.Shape {
	case ShapeSpherical, ShapeSphericalShell:
		s, err := r.species(w, r.Species)
		if err != nil {
			return err
		}
		if !s.IsVolume() {
			return unsupported("release %q: %s release of surface species %s", r.Label, r.Shape, s.Name)
		}
		if r.Diameter.X < 0 || r.Diameter.Y < 0 || r.Diameter.Z < 0 {
			return unsupported("release %q: negative diameter", r.Label)
		}
		switch r.Method {
		case ConcentrationNum:
			if r.Shape == ShapeSphericalShell {
				return unsupported("release %q: concentration cannot be used with a spherical shell", r.Label)
			}
		case DensityNum:
			return unsupported("release %q: density requires a surface region", r.Label)
		}

	case ShapeRegion:
		if r.Region.IsEmpty() {
			return unsupported("release %q: region shape without a region expression", r.Label)
		}
		s, err := r.species(w, r.Species)
		if err != nil {
			return err
		}
		switch {
		case r.Region.IsSurface():
			if !s.Surface {
				return unsupported("release %q: volume species %s released onto surface region %s", r.Label, s.Name, r.Region)
			}
			if r.Method == ConcentrationNum || r.Method == VolNum {
				return unsupported("release %q: %s cannot be used for a surface release", r.Label, r.Method)
			}
		case r.Region.IsVolume():
			if s.Surface {
				return unsupported("release %q: surface species %s released inside volume %s", r.Label, s.Name, r.Region)
			}
			if r.Method == DensityNum {
				return unsupported("release %q: density cannot be used for a volume release", r.Label)
			}
		default:
			return regionError(fmt.Errorf("release %q: %s mixes surface regions and object volumes", r.Label, r.Region))
		}

	case ShapeList:
		if len(r.List) == 0 {
			return unsupported("release %q: list release without molecules", r.Label)
		}
		for i, it := range r.List {
			if _, err := r.species(w, it.Species); err != nil {
				return fmt.Errorf("list item %d: %w", i, err)
			}
			if it.Orientation < -1 || it.Orientation > 1 {
				return unsupported("release %q: list item %d orientation must be -1, 0 or 1", r.Label, i)
			}
		}

	case ShapeInitialSurfaceRegion:
		if !r.Region.IsSurface() {
			return unsupported("release %q: initial surface release needs a surface region, got %q", r.Label, r.Region)
		}
		for i, it := range r.Initial {
			s, err := r.species(w, it.Species)
			if err != nil {
				return fmt.Errorf("initial item %d: %w", i, err)
			}
			if !s.Surface {
				return unsupported("release %q: initial item %d species %s is not a surface species", r.Label, i, s.Name)
			}
			if it.Number < 0 || it.Density < 0 {
				return unsupported("release %q: initial item %d has a negative amount", r.Label, i)
			}
		}

	default:
		return unsupported("release %q: unknown shape %s", r.Label, r.Shape)
	}
	return nil
}

func (r *Event) species(w *world.World, id world.SpeciesID) (*world.Species, error) {
	s := w.Species(id)
	if s == nil {
		return nil, unsupported("release %q: unknown species %d", r.Label, id)
	}
	if s.SurfaceClass {
		return nil, unsupported("release %q: surface class %s cannot be released", r.Label, s.Name)
	}
	return s, nil
}
