package world

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/cellsim/internal/geom"
)

// Avogadro's number.
const NAvogadro = 6.0221417930e23

// Config holds run-wide physical constants.
type Config struct {
	// GridDensity is the surface tile density in tiles per µm².
	GridDensity float64
	// TimeStep is the duration of one iteration in seconds.
	TimeStep float64
	// FailurePolicy decides how recoverable placement failures surface.
	FailurePolicy Policy
}

// DefaultConfig mirrors the conventional defaults of particle simulators.
func DefaultConfig() Config {
	return Config{
		GridDensity:   10000,
		TimeStep:      1e-6,
		FailurePolicy: PolicyWarning,
	}
}

// LengthUnit returns the internal length unit in µm.
func (c Config) LengthUnit() float64 {
	return 1 / math.Sqrt(c.GridDensity)
}

// World is the partition collaborator: it owns the molecule table, the
// species and reaction registries, counted-volume caches and reaction
// occurrence maps. It is mutated only by the event currently executing.
type World struct {
	cfg    Config
	geom   *geom.Geometry
	logger *slog.Logger

	species       []Species
	speciesByName map[string]SpeciesID

	reactions      []Reaction
	reactionByName map[string]ReactionID
	occurrences    map[ReactionID]*Occurrences

	mols []Molecule
	live int

	volumes countedVolumes
	pending *PendingActions

	placementFailures int
}

// New creates an empty world over the given geometry.
func New(cfg Config, g *geom.Geometry, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	if g == nil {
		g = geom.New()
	}
	return &World{
		cfg:            cfg,
		geom:           g,
		logger:         logger,
		speciesByName:  make(map[string]SpeciesID),
		reactionByName: make(map[string]ReactionID),
		occurrences:    make(map[ReactionID]*Occurrences),
		volumes:        newCountedVolumes(),
	}
}

// Config returns the run configuration.
func (w *World) Config() Config { return w.cfg }

// Geometry returns the geometry collaborator.
func (w *World) Geometry() *geom.Geometry { return w.geom }

// Logger returns the world's logger.
func (w *World) Logger() *slog.Logger { return w.logger }

// AddVolumeMolecule inserts a volume molecule at pos.
func (w *World) AddVolumeMolecule(species SpeciesID, pos geom.Vec3, birth float64, flags MoleculeFlags) (MoleculeID, error) {
	s := w.Species(species)
	if s == nil || !s.IsVolume() {
		return 0, fmt.Errorf("species %s is not a volume species", w.SpeciesName(species))
	}
	id := MoleculeID(len(w.mols) + 1)
	w.mols = append(w.mols, Molecule{
		ID:            id,
		Species:       species,
		Pos:           pos,
		Wall:          geom.NoWall,
		Tile:          -1,
		Flags:         flags &^ FlagDefunct,
		BirthTime:     birth,
		DiffusionTime: birth,
		countedVolume: unknownCountedVolume,
	})
	w.live++
	return id, nil
}

// AddSurfaceMolecule places a surface molecule on a free tile.
func (w *World) AddSurfaceMolecule(species SpeciesID, wall geom.WallID, tile, orientation int, birth float64, flags MoleculeFlags) (MoleculeID, error) {
	s := w.Species(species)
	if s == nil || !s.Surface {
		return 0, fmt.Errorf("species %s is not a surface species", w.SpeciesName(species))
	}
	if orientation != 1 && orientation != -1 {
		return 0, fmt.Errorf("surface molecule orientation must be +1 or -1, got %d", orientation)
	}
	wl := w.geom.Wall(wall)
	if wl == nil {
		return 0, fmt.Errorf("unknown wall %d", wall)
	}
	id := MoleculeID(len(w.mols) + 1)
	if err := wl.Grid.Occupy(tile, int64(id)); err != nil {
		return 0, fmt.Errorf("wall %d: %w", wall, err)
	}
	w.mols = append(w.mols, Molecule{
		ID:            id,
		Species:       species,
		Pos:           wl.TilePosition(tile),
		Wall:          wall,
		Tile:          tile,
		Orientation:   orientation,
		Flags:         flags &^ FlagDefunct,
		BirthTime:     birth,
		DiffusionTime: birth,
		countedVolume: unknownCountedVolume,
	})
	w.live++
	return id, nil
}

// RemoveMolecule marks a molecule defunct and frees its tile.
func (w *World) RemoveMolecule(id MoleculeID) error {
	m := w.Molecule(id)
	if m == nil {
		return fmt.Errorf("unknown molecule %d", id)
	}
	if m.IsDefunct() {
		return fmt.Errorf("molecule %d already removed", id)
	}
	if m.IsSurface() {
		w.geom.Wall(m.Wall).Grid.Vacate(m.Tile)
	}
	m.Flags |= FlagDefunct
	w.live--
	return nil
}

// MoveVolumeMolecule relocates a volume molecule and drops its cached
// counted volume.
func (w *World) MoveVolumeMolecule(id MoleculeID, pos geom.Vec3) error {
	m := w.Molecule(id)
	if m == nil || m.IsDefunct() {
		return fmt.Errorf("unknown molecule %d", id)
	}
	if m.IsSurface() {
		return fmt.Errorf("molecule %d is a surface molecule", id)
	}
	m.Pos = pos
	m.countedVolume = unknownCountedVolume
	return nil
}

// Molecule returns the molecule slot, including defunct ones, or nil.
func (w *World) Molecule(id MoleculeID) *Molecule {
	if id <= 0 || int(id) > len(w.mols) {
		return nil
	}
	return &w.mols[id-1]
}

// NumLive returns the number of live molecules.
func (w *World) NumLive() int { return w.live }

// Each calls fn for live molecules in creation order until fn returns false.
func (w *World) Each(fn func(m *Molecule) bool) {
	for i := range w.mols {
		m := &w.mols[i]
		if m.IsDefunct() {
			continue
		}
		if !fn(m) {
			return
		}
	}
}

// Matching returns live molecules of a species, optionally filtered.
func (w *World) Matching(species SpeciesID, keep func(m *Molecule) bool) []MoleculeID {
	var out []MoleculeID
	w.Each(func(m *Molecule) bool {
		if m.Species == species && (keep == nil || keep(m)) {
			out = append(out, m.ID)
		}
		return true
	})
	return out
}

// PlacementFailures returns the number of reported placement failures.
func (w *World) PlacementFailures() int { return w.placementFailures }
