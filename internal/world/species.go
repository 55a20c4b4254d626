package world

import "fmt"

// SpeciesID identifies a species. Negative ids are pseudo-species that
// only appear in count terms.
type SpeciesID int

// Pseudo-species accepted by count terms.
const (
	NoSpecies                  SpeciesID = -1
	AllMoleculesSpecies        SpeciesID = -2
	AllVolumeMoleculesSpecies  SpeciesID = -3
	AllSurfaceMoleculesSpecies SpeciesID = -4
)

// Species describes one molecular species.
//
// SpaceStep and TimeStep are in internal units (length units, iterations).
// A surface class is a species that only marks regions; it never becomes
// a molecule.
type Species struct {
	ID           SpeciesID
	Name         string
	D            float64
	SpaceStep    float64
	TimeStep     float64
	Surface      bool
	SurfaceClass bool
}

// IsVolume reports whether molecules of this species diffuse in 3D.
func (s *Species) IsVolume() bool { return !s.Surface && !s.SurfaceClass }

// AddSpecies registers a species and returns its id.
func (w *World) AddSpecies(s Species) (SpeciesID, error) {
	if s.Name == "" {
		return NoSpecies, fmt.Errorf("species name is required")
	}
	if _, dup := w.speciesByName[s.Name]; dup {
		return NoSpecies, fmt.Errorf("duplicate species %q", s.Name)
	}
	if s.Surface && s.SurfaceClass {
		return NoSpecies, fmt.Errorf("species %q cannot be both a surface molecule and a surface class", s.Name)
	}
	if s.TimeStep <= 0 {
		s.TimeStep = 1
	}
	s.ID = SpeciesID(len(w.species))
	w.species = append(w.species, s)
	w.speciesByName[s.Name] = s.ID
	return s.ID, nil
}

// Species returns the species or nil. Pseudo-species have no entry.
func (w *World) Species(id SpeciesID) *Species {
	if id < 0 || int(id) >= len(w.species) {
		return nil
	}
	return &w.species[id]
}

// SpeciesByName resolves a species name, including the pseudo-species
// names used by counts.
func (w *World) SpeciesByName(name string) (SpeciesID, bool) {
	switch name {
	case "ALL_MOLECULES":
		return AllMoleculesSpecies, true
	case "ALL_VOLUME_MOLECULES":
		return AllVolumeMoleculesSpecies, true
	case "ALL_SURFACE_MOLECULES":
		return AllSurfaceMoleculesSpecies, true
	}
	id, ok := w.speciesByName[name]
	return id, ok
}

// SpeciesName renders a species id, including pseudo-species.
func (w *World) SpeciesName(id SpeciesID) string {
	switch id {
	case AllMoleculesSpecies:
		return "ALL_MOLECULES"
	case AllVolumeMoleculesSpecies:
		return "ALL_VOLUME_MOLECULES"
	case AllSurfaceMoleculesSpecies:
		return "ALL_SURFACE_MOLECULES"
	}
	if s := w.Species(id); s != nil {
		return s.Name
	}
	return fmt.Sprintf("species#%d", id)
}

// SpeciesMatches reports whether a molecule of species actual satisfies a
// count criterion, which may be a pseudo-species.
func (w *World) SpeciesMatches(criterion, actual SpeciesID) bool {
	switch criterion {
	case AllMoleculesSpecies:
		return true
	case AllVolumeMoleculesSpecies:
		s := w.Species(actual)
		return s != nil && s.IsVolume()
	case AllSurfaceMoleculesSpecies:
		s := w.Species(actual)
		return s != nil && s.Surface
	}
	return criterion == actual
}
