package world

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/geom"
)

func newTestWorld(t *testing.T, policy Policy, logBuf *bytes.Buffer) (*World, *geom.Object) {
	t.Helper()
	g := geom.New()
	box, err := g.AddBox("cell", geom.Vec3{}, geom.Vec3{X: 2, Y: 2, Z: 2})
	require.NoError(t, err)

	var logger *slog.Logger
	if logBuf != nil {
		logger = slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	cfg := DefaultConfig()
	cfg.FailurePolicy = policy
	return New(cfg, g, logger), box
}

func TestAddSpecies(t *testing.T) {
	w, _ := newTestWorld(t, PolicyWarning, nil)

	a, err := w.AddSpecies(Species{Name: "A", D: 1e-6})
	require.NoError(t, err)
	assert.Equal(t, SpeciesID(0), a)
	assert.Equal(t, 1.0, w.Species(a).TimeStep, "time step defaults to one iteration")

	_, err = w.AddSpecies(Species{Name: "A"})
	assert.Error(t, err)
	_, err = w.AddSpecies(Species{Name: "X", Surface: true, SurfaceClass: true})
	assert.Error(t, err)

	id, ok := w.SpeciesByName("ALL_MOLECULES")
	require.True(t, ok)
	assert.Equal(t, AllMoleculesSpecies, id)
	assert.Equal(t, "ALL_VOLUME_MOLECULES", w.SpeciesName(AllVolumeMoleculesSpecies))
}

func TestSpeciesMatches(t *testing.T) {
	w, _ := newTestWorld(t, PolicyWarning, nil)
	vol, _ := w.AddSpecies(Species{Name: "V"})
	surf, _ := w.AddSpecies(Species{Name: "S", Surface: true})

	tests := []struct {
		criterion SpeciesID
		actual    SpeciesID
		want      bool
	}{
		{AllMoleculesSpecies, vol, true},
		{AllMoleculesSpecies, surf, true},
		{AllVolumeMoleculesSpecies, vol, true},
		{AllVolumeMoleculesSpecies, surf, false},
		{AllSurfaceMoleculesSpecies, surf, true},
		{AllSurfaceMoleculesSpecies, vol, false},
		{vol, vol, true},
		{vol, surf, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.SpeciesMatches(tt.criterion, tt.actual),
			"%s vs %s", w.SpeciesName(tt.criterion), w.SpeciesName(tt.actual))
	}
}

func TestMolecules_AddRemove(t *testing.T) {
	w, box := newTestWorld(t, PolicyWarning, nil)
	vol, _ := w.AddSpecies(Species{Name: "V"})
	surf, _ := w.AddSpecies(Species{Name: "S", Surface: true})

	id1, err := w.AddVolumeMolecule(vol, geom.Vec3{X: 1, Y: 1, Z: 1}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, MoleculeID(1), id1)

	_, err = w.AddVolumeMolecule(surf, geom.Vec3{}, 0, 0)
	assert.Error(t, err, "surface species cannot be placed in volume")

	wall := box.Walls[0]
	id2, err := w.AddSurfaceMolecule(surf, wall, 0, 1, 3, FlagClamped)
	require.NoError(t, err)
	assert.Equal(t, int64(id2), w.Geometry().Wall(wall).Grid.MoleculeAt(0))
	assert.True(t, w.Molecule(id2).Has(FlagClamped))
	assert.Equal(t, 3.0, w.Molecule(id2).BirthTime)

	_, err = w.AddSurfaceMolecule(surf, wall, 0, 1, 0, 0)
	assert.Error(t, err, "tile already taken")
	_, err = w.AddSurfaceMolecule(surf, wall, 1, 0, 0, 0)
	assert.Error(t, err, "orientation must be signed")

	assert.Equal(t, 2, w.NumLive())

	require.NoError(t, w.RemoveMolecule(id2))
	assert.True(t, w.Geometry().Wall(wall).Grid.IsFree(0))
	assert.True(t, w.Molecule(id2).IsDefunct())
	assert.Error(t, w.RemoveMolecule(id2))
	assert.Equal(t, 1, w.NumLive())

	var seen []MoleculeID
	w.Each(func(m *Molecule) bool {
		seen = append(seen, m.ID)
		return true
	})
	assert.Equal(t, []MoleculeID{id1}, seen)
}

func TestMatching(t *testing.T) {
	w, _ := newTestWorld(t, PolicyWarning, nil)
	a, _ := w.AddSpecies(Species{Name: "A"})
	b, _ := w.AddSpecies(Species{Name: "B"})
	for i := 0; i < 4; i++ {
		_, err := w.AddVolumeMolecule(a, geom.Vec3{X: float64(i)}, 0, 0)
		require.NoError(t, err)
	}
	_, err := w.AddVolumeMolecule(b, geom.Vec3{}, 0, 0)
	require.NoError(t, err)

	assert.Len(t, w.Matching(a, nil), 4)
	assert.Equal(t, []MoleculeID{3, 4}, w.Matching(a, func(m *Molecule) bool { return m.Pos.X >= 2 }))
}

func TestCountedVolumes(t *testing.T) {
	w, box := newTestWorld(t, PolicyWarning, nil)
	a, _ := w.AddSpecies(Species{Name: "A"})

	inside := w.CountedVolumeAt(geom.Vec3{X: 1, Y: 1, Z: 1})
	outside := w.CountedVolumeAt(geom.Vec3{X: 5, Y: 5, Z: 5})
	assert.NotEqual(t, inside, outside)
	assert.Equal(t, inside, w.CountedVolumeAt(geom.Vec3{X: 0.5, Y: 1.5, Z: 0.3}), "same enclosing set interns to same id")
	assert.True(t, w.CountedVolumeContains(inside, box.ID))
	assert.False(t, w.CountedVolumeContains(outside, box.ID))

	id, err := w.AddVolumeMolecule(a, geom.Vec3{X: 1, Y: 1, Z: 1}, 0, 0)
	require.NoError(t, err)
	m := w.Molecule(id)
	assert.Equal(t, inside, w.MoleculeCountedVolume(m))

	require.NoError(t, w.MoveVolumeMolecule(id, geom.Vec3{X: 5, Y: 5, Z: 5}))
	assert.Equal(t, outside, w.MoleculeCountedVolume(m))
}

func TestRecordReaction(t *testing.T) {
	w, box := newTestWorld(t, PolicyWarning, nil)
	counted, err := w.AddReaction(Reaction{Name: "bind"})
	require.NoError(t, err)
	silent, err := w.AddReaction(Reaction{Name: "decay"})
	require.NoError(t, err)
	require.NoError(t, w.MarkReactionCounted(counted))

	w.RecordReaction(counted, geom.NoWall, geom.Vec3{X: 1, Y: 1, Z: 1})
	w.RecordReaction(counted, geom.NoWall, geom.Vec3{X: 1, Y: 1, Z: 1})
	w.RecordReaction(counted, box.Walls[3], geom.Vec3{})
	w.RecordReaction(silent, geom.NoWall, geom.Vec3{})

	occ := w.ReactionOccurrences(counted)
	require.NotNil(t, occ)
	assert.Equal(t, 3.0, occ.Total)
	assert.Equal(t, 2.0, occ.ByVolume[w.CountedVolumeAt(geom.Vec3{X: 1, Y: 1, Z: 1})])
	assert.Equal(t, 1.0, occ.ByWall[box.Walls[3]])
	assert.Nil(t, w.ReactionOccurrences(silent))

	_, err = w.AddReaction(Reaction{Name: "bind"})
	assert.Error(t, err)
}

func TestPendingActions(t *testing.T) {
	w, _ := newTestWorld(t, PolicyWarning, nil)
	assert.Nil(t, w.Pending())

	p, err := w.BeginDiffusion("diffuse_react")
	require.NoError(t, err)
	_, err = w.BeginDiffusion("other")
	assert.Error(t, err)

	p.Add(7, 1.5)
	p.Add(9, 1.75)
	assert.Same(t, p, w.Pending())

	got := w.EndDiffusion()
	assert.Equal(t, []PendingAction{{Molecule: 7, Time: 1.5}, {Molecule: 9, Time: 1.75}}, got)
	assert.Nil(t, w.Pending())
	assert.Nil(t, w.EndDiffusion())
}

func TestReportPlacementFailure(t *testing.T) {
	tests := []struct {
		policy  Policy
		level   string
		wantErr bool
	}{
		{PolicyIgnore, "level=INFO", false},
		{PolicyWarning, "level=WARN", false},
		{PolicyError, "level=ERROR", true},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, _ := newTestWorld(t, tt.policy, &buf)

			err := w.ReportPlacementFailure("could not place molecule", "species", "A")
			if tt.wantErr {
				var pe *PlacementError
				require.True(t, errors.As(err, &pe))
				assert.Contains(t, pe.Error(), "could not place molecule")
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, strings.Contains(buf.String(), tt.level), buf.String())
			assert.Equal(t, 1, w.PlacementFailures())
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("ERROR")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyWarning, p)

	_, err = ParsePolicy("panic")
	assert.Error(t, err)
}

func TestLengthUnit(t *testing.T) {
	cfg := Config{GridDensity: 10000}
	assert.InDelta(t, 0.01, cfg.LengthUnit(), 1e-15)
}
