package release

import (
	"math"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/world"
)

// CalculateNumberToRelease returns the signed count for one firing.
// Negative counts remove molecules. A count outside the int32 range is
// fatal.
func (r *Event) CalculateNumberToRelease(env *engine.Env) (int, error) {
	cfg := env.World.Config()
	lu := cfg.LengthUnit()

	var n float64
	switch r.Method {
	case ConstNum:
		n = r.ReleaseNumber

	case GaussNum:
		n = r.ReleaseNumber
		if r.NumberStd > 0 {
			n = env.RNG.Gauss()*r.NumberStd + r.ReleaseNumber
			if r.ReleaseNumber >= 0 && n < 0 {
				n = 0
			}
		}

	case VolNum:
		d := r.Diameter.X
		if r.DiameterStd > 0 {
			d += env.RNG.Gauss() * r.DiameterStd
		}
		dum := d * lu
		vol := math.Pi / 6 * dum * dum * dum
		n = world.NAvogadro*1e-15*r.Concentration*vol + 0.5

	case ConcentrationNum:
		var vol float64
		switch r.Shape {
		case ShapeSpherical:
			vol = math.Pi / 6 * r.Diameter.X * r.Diameter.Y * r.Diameter.Z
		case ShapeRegion:
			vol = r.volume
		default:
			return 0, unsupported("release %q: concentration with %s shape", r.Label, r.Shape)
		}
		n = world.NAvogadro*1e-15*r.Concentration*vol*lu*lu*lu + 0.5

	case DensityNum:
		if r.Shape != ShapeRegion || !r.Region.IsSurface() {
			return 0, unsupported("release %q: density with %s shape", r.Label, r.Shape)
		}
		n = r.Concentration * r.TotalArea() / cfg.GridDensity

	default:
		return 0, unsupported("release %q: unknown number method %s", r.Label, r.Method)
	}

	n = math.Trunc(n)
	if math.IsNaN(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, engine.NewRuntimeError(engine.ErrCodeCountOverflow,
			"release %q: computed count %g is outside the representable range", r.Label, n)
	}
	return int(n), nil
}

// approximateVolume reports whether a volume release counts every draw
// against the target, which is the behavior for concentration releases
// into a region whose volume is only known from its bounding box.
func (r *Event) approximateVolume() bool {
	return r.Method == ConcentrationNum && !r.exactVolume
}
