package world

import (
	"strconv"
	"strings"

	"github.com/roach88/cellsim/internal/geom"
)

// CountedVolumeID identifies a distinct set of enclosing objects.
type CountedVolumeID int

type countedVolumes struct {
	sets  [][]geom.ObjectID
	index map[string]CountedVolumeID
}

func newCountedVolumes() countedVolumes {
	return countedVolumes{index: make(map[string]CountedVolumeID)}
}

func (c *countedVolumes) intern(objs []geom.ObjectID) CountedVolumeID {
	var b strings.Builder
	for i, o := range objs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(o)))
	}
	key := b.String()
	if id, ok := c.index[key]; ok {
		return id
	}
	id := CountedVolumeID(len(c.sets))
	c.sets = append(c.sets, objs)
	c.index[key] = id
	return id
}

// CountedVolumeAt returns the id of the set of closed objects enclosing pos.
func (w *World) CountedVolumeAt(pos geom.Vec3) CountedVolumeID {
	return w.volumes.intern(w.geom.EnclosingObjects(pos))
}

// MoleculeCountedVolume returns the cached counted-volume id of a molecule,
// computing it on first use after creation or a move.
func (w *World) MoleculeCountedVolume(m *Molecule) CountedVolumeID {
	if m.countedVolume == unknownCountedVolume {
		m.countedVolume = w.CountedVolumeAt(m.Pos)
	}
	return m.countedVolume
}

// CountedVolumeObjects returns the enclosing objects of a counted volume.
func (w *World) CountedVolumeObjects(id CountedVolumeID) []geom.ObjectID {
	if id < 0 || int(id) >= len(w.volumes.sets) {
		return nil
	}
	return w.volumes.sets[id]
}

// CountedVolumeContains reports whether obj is in the counted volume's set.
func (w *World) CountedVolumeContains(id CountedVolumeID, obj geom.ObjectID) bool {
	for _, o := range w.CountedVolumeObjects(id) {
		if o == obj {
			return true
		}
	}
	return false
}
