package ir

// Model is a complete simulation description.
type Model struct {
	Name      string        `json:"name"`
	Config    Config        `json:"config"`
	Species   []Species     `json:"species"`
	Reactions []Reaction    `json:"reactions,omitempty"`
	Objects   []Object      `json:"objects,omitempty"`
	Releases  []ReleaseSite `json:"releases,omitempty"`
	Clamps    []Clamp       `json:"clamps,omitempty"`
	Counts    []Count       `json:"counts,omitempty"`
}

// Config holds run-wide settings.
type Config struct {
	Seed       uint64 `json:"seed"`
	Iterations int64  `json:"iterations"`
	// TimeStep is the duration of one iteration in seconds.
	TimeStep float64 `json:"time_step"`
	// GridDensity is the surface tile density in tiles per µm².
	GridDensity float64 `json:"grid_density"`
	// PlacementFailurePolicy is "ignore", "warning" or "error".
	PlacementFailurePolicy string `json:"placement_failure_policy"`
}

// Species is a molecular species or, with SurfaceClass set, a surface
// class that only marks regions.
type Species struct {
	Name string `json:"name"`
	// DiffusionConstant is in cm²/s.
	DiffusionConstant float64 `json:"diffusion_constant"`
	// TimeStep is the species time step in iterations; 0 means 1.
	TimeStep     float64 `json:"time_step,omitempty"`
	Surface      bool    `json:"surface,omitempty"`
	SurfaceClass bool    `json:"surface_class,omitempty"`
}

// Reaction names a reaction rule that count terms may observe.
type Reaction struct {
	Name string `json:"name"`
}

// Vec is a point or extent in µm.
type Vec [3]float64

// Object is a closed axis-aligned box with its six face regions
// ("left", "right", "front", "back", "bottom", "top") and "ALL".
type Object struct {
	Name    string   `json:"name"`
	Min     Vec      `json:"min"`
	Max     Vec      `json:"max"`
	Regions []Region `json:"regions,omitempty"`
}

// Region either assigns a surface class to an existing face region (no
// Faces) or defines a new region over the walls of the named faces.
type Region struct {
	Name         string   `json:"name"`
	Faces        []string `json:"faces,omitempty"`
	SurfaceClass string   `json:"surface_class,omitempty"`
}

// Pattern is release timing in seconds. NumberOfTrains -1 repeats forever.
type Pattern struct {
	Delay           float64 `json:"delay"`
	NumberOfTrains  int     `json:"number_of_trains"`
	TrainInterval   float64 `json:"train_interval"`
	TrainDuration   float64 `json:"train_duration"`
	ReleaseInterval float64 `json:"release_interval"`
}

// ListItem places one molecule of a list release.
type ListItem struct {
	Species     string `json:"species"`
	Orientation int    `json:"orientation,omitempty"`
	Position    Vec    `json:"position"`
}

// InitialItem seeds one species onto an initial surface region, by
// Density (molecules per µm²) or, when Number is set, by count.
type InitialItem struct {
	Species     string  `json:"species"`
	Orientation int     `json:"orientation,omitempty"`
	Density     float64 `json:"density,omitempty"`
	Number      *int    `json:"number,omitempty"`
}

// ReleaseSite is a release event.
//
// Shape is one of spherical, spherical_shell, region, list,
// initial_surface_region. Method is one of const_num, gauss_num, vol_num,
// concentration_num, density_num.
type ReleaseSite struct {
	Name        string `json:"name"`
	Species     string `json:"species,omitempty"`
	Orientation int    `json:"orientation,omitempty"`
	Shape       string `json:"shape"`
	Method      string `json:"method,omitempty"`

	Number        float64 `json:"number,omitempty"`
	NumberStd     float64 `json:"number_std,omitempty"`
	Concentration float64 `json:"concentration,omitempty"`
	Location      Vec     `json:"location"`
	Diameter      Vec     `json:"diameter"`
	DiameterStd   float64 `json:"diameter_std,omitempty"`

	Region  string        `json:"region,omitempty"`
	List    []ListItem    `json:"list,omitempty"`
	Initial []InitialItem `json:"initial,omitempty"`

	Probability float64  `json:"probability"`
	Pattern     *Pattern `json:"pattern,omitempty"`
}

// Clamp holds a volume species concentration fixed at the walls of a
// surface class.
type Clamp struct {
	Name          string  `json:"name"`
	Species       string  `json:"species"`
	SurfaceClass  string  `json:"surface_class"`
	Concentration float64 `json:"concentration"`
	Orientation   int     `json:"orientation,omitempty"`
}

// Count is a periodic observable. Every is in iterations; 0 counts once.
type Count struct {
	Name  string      `json:"name"`
	Every int64       `json:"every"`
	Items []CountItem `json:"items"`
}

// CountItem is one output column.
type CountItem struct {
	Buffer     string      `json:"buffer"`
	Column     string      `json:"column"`
	Multiplier float64     `json:"multiplier,omitempty"`
	Terms      []CountTerm `json:"terms"`
}

// CountTerm counts a species (or ALL_MOLECULES, ALL_VOLUME_MOLECULES,
// ALL_SURFACE_MOLECULES) or a reaction, optionally scoped In a volume
// expression or On a surface expression. Sign 0 means +1.
type CountTerm struct {
	Species     string `json:"species,omitempty"`
	Reaction    string `json:"reaction,omitempty"`
	Sign        int    `json:"sign,omitempty"`
	Orientation int    `json:"orientation,omitempty"`
	In          string `json:"in,omitempty"`
	On          string `json:"on,omitempty"`
}

// Pseudo-species names accepted by count terms.
const (
	AllMolecules        = "ALL_MOLECULES"
	AllVolumeMolecules  = "ALL_VOLUME_MOLECULES"
	AllSurfaceMolecules = "ALL_SURFACE_MOLECULES"
)

// FindSpecies returns the species with the given name.
func (m *Model) FindSpecies(name string) (*Species, bool) {
	for i := range m.Species {
		if m.Species[i].Name == name {
			return &m.Species[i], true
		}
	}
	return nil, false
}

// FindObject returns the object with the given name.
func (m *Model) FindObject(name string) (*Object, bool) {
	for i := range m.Objects {
		if m.Objects[i].Name == name {
			return &m.Objects[i], true
		}
	}
	return nil, false
}

// Buffers returns the distinct count buffer names in declaration order.
func (m *Model) Buffers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range m.Counts {
		for _, it := range c.Items {
			if !seen[it.Buffer] {
				seen[it.Buffer] = true
				out = append(out, it.Buffer)
			}
		}
	}
	return out
}
