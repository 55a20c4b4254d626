package world

import "github.com/roach88/cellsim/internal/geom"

// MoleculeID identifies a molecule for the lifetime of a world. Ids start
// at 1 so that 0 can mark an empty grid tile.
type MoleculeID int64

// MoleculeFlags carries per-molecule state bits.
type MoleculeFlags uint8

const (
	// FlagDefunct marks a removed molecule; its slot is never reused.
	FlagDefunct MoleculeFlags = 1 << iota
	// FlagClamped marks a molecule injected by a concentration clamp.
	FlagClamped
	// FlagScheduleUnimol asks the kernel to schedule a unimolecular
	// reaction time before the molecule first diffuses.
	FlagScheduleUnimol
)

// unknownCountedVolume marks a stale counted-volume cache entry.
const unknownCountedVolume CountedVolumeID = -1

// Molecule is one simulated particle. Surface molecules sit on a tile of a
// wall grid; volume molecules have Wall == geom.NoWall.
type Molecule struct {
	ID            MoleculeID
	Species       SpeciesID
	Pos           geom.Vec3
	Wall          geom.WallID
	Tile          int
	Orientation   int
	Flags         MoleculeFlags
	BirthTime     float64
	DiffusionTime float64

	countedVolume CountedVolumeID
}

// IsSurface reports whether the molecule occupies a wall tile.
func (m *Molecule) IsSurface() bool { return m.Wall != geom.NoWall }

// IsDefunct reports whether the molecule has been removed.
func (m *Molecule) IsDefunct() bool { return m.Flags&FlagDefunct != 0 }

// Has reports whether all bits of f are set.
func (m *Molecule) Has(f MoleculeFlags) bool { return m.Flags&f == f }
