package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/release"
	"github.com/roach88/cellsim/internal/world"
)

// Validation error codes (E200-E299)
const (
	ErrInvalidConfig     = "E201" // bad run config
	ErrDuplicateName     = "E202" // duplicate name within a section
	ErrUnknownSpecies    = "E203" // reference to an undeclared species
	ErrUnknownReference  = "E204" // unknown object, region, reaction or surface class
	ErrInvalidKind       = "E205" // species used where its kind is not allowed
	ErrInvalidShape      = "E206" // unknown shape or number method
	ErrInvalidPattern    = "E207" // release pattern cannot produce ordered times
	ErrInvalidRegionExpr = "E208" // malformed region expression
	ErrInvalidOrient     = "E209" // orientation outside -1..1
	ErrInvalidCountTerm  = "E210" // count term names nothing or too much
	ErrInvalidGeometry   = "E211" // degenerate box or unknown face
	ErrInvalidNumber     = "E212" // negative or non-finite quantity where not allowed
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks cross-references and value ranges of a compiled model.
// Returns all errors found (does not fail-fast).
func Validate(m *ir.Model) []ValidationError {
	v := &validator{m: m}
	v.config()
	v.names()
	v.objects()
	for i := range m.Releases {
		v.release(&m.Releases[i])
	}
	for i := range m.Clamps {
		v.clamp(&m.Clamps[i])
	}
	for i := range m.Counts {
		v.count(&m.Counts[i])
	}
	return v.errs
}

type validator struct {
	m    *ir.Model
	errs []ValidationError
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *validator) config() {
	c := v.m.Config
	if c.Iterations < 0 {
		v.add(ErrInvalidConfig, "config.iterations", "must not be negative, got %d", c.Iterations)
	}
	if !(c.TimeStep > 0) {
		v.add(ErrInvalidConfig, "config.time_step", "must be positive, got %g", c.TimeStep)
	}
	if !(c.GridDensity > 0) {
		v.add(ErrInvalidConfig, "config.grid_density", "must be positive, got %g", c.GridDensity)
	}
	if _, err := world.ParsePolicy(c.PlacementFailurePolicy); err != nil {
		v.add(ErrInvalidConfig, "config.placement_failure_policy", "%v", err)
	}
}

func (v *validator) names() {
	check := func(section string, names []string) {
		seen := make(map[string]bool, len(names))
		for i, n := range names {
			if strings.TrimSpace(n) == "" {
				v.add(ErrDuplicateName, fmt.Sprintf("%s[%d].name", section, i), "name is required")
				continue
			}
			if seen[n] {
				v.add(ErrDuplicateName, fmt.Sprintf("%s[%d].name", section, i), "duplicate name: %q", n)
			}
			seen[n] = true
		}
	}
	var species, reactions, objects, releases, clamps, counts []string
	for _, s := range v.m.Species {
		species = append(species, s.Name)
		switch s.Name {
		case ir.AllMolecules, ir.AllVolumeMolecules, ir.AllSurfaceMolecules:
			v.add(ErrDuplicateName, "species."+s.Name, "name is reserved")
		}
		if s.DiffusionConstant < 0 {
			v.add(ErrInvalidNumber, "species."+s.Name+".diffusion_constant", "must not be negative")
		}
		if s.Surface && s.SurfaceClass {
			v.add(ErrInvalidKind, "species."+s.Name, "cannot be both a surface species and a surface class")
		}
	}
	for _, r := range v.m.Reactions {
		reactions = append(reactions, r.Name)
	}
	for _, o := range v.m.Objects {
		objects = append(objects, o.Name)
	}
	for _, r := range v.m.Releases {
		releases = append(releases, r.Name)
	}
	for _, c := range v.m.Clamps {
		clamps = append(clamps, c.Name)
	}
	for _, c := range v.m.Counts {
		counts = append(counts, c.Name)
	}
	check("species", species)
	check("reactions", reactions)
	check("objects", objects)
	check("releases", releases)
	check("clamps", clamps)
	check("counts", counts)
}

func (v *validator) objects() {
	for _, o := range v.m.Objects {
		field := "objects." + o.Name
		if !(o.Min[0] < o.Max[0] && o.Min[1] < o.Max[1] && o.Min[2] < o.Max[2]) {
			v.add(ErrInvalidGeometry, field, "min %v must be below max %v on every axis", o.Min, o.Max)
		}
		for _, r := range o.Regions {
			rf := field + ".regions." + r.Name
			if len(r.Faces) == 0 && !isFace(r.Name) && r.Name != geom.AllRegionName {
				v.add(ErrInvalidGeometry, rf, "%q is not a face; list its faces", r.Name)
			}
			for _, f := range r.Faces {
				if !isFace(f) {
					v.add(ErrInvalidGeometry, rf+".faces", "unknown face %q", f)
				}
			}
			if r.SurfaceClass != "" {
				v.surfaceClass(rf+".surface_class", r.SurfaceClass)
			}
		}
	}
}

func isFace(name string) bool {
	for _, f := range geom.BoxFaces {
		if f == name {
			return true
		}
	}
	return false
}

func (v *validator) species(field, name string) (*ir.Species, bool) {
	s, ok := v.m.FindSpecies(name)
	if !ok {
		v.add(ErrUnknownSpecies, field, "unknown species %q", name)
		return nil, false
	}
	return s, true
}

func (v *validator) surfaceClass(field, name string) {
	s, ok := v.m.FindSpecies(name)
	if !ok {
		v.add(ErrUnknownReference, field, "unknown surface class %q", name)
		return
	}
	if !s.SurfaceClass {
		v.add(ErrInvalidKind, field, "%q is not a surface class", name)
	}
}

func (v *validator) orientation(field string, o int) {
	if o < -1 || o > 1 {
		v.add(ErrInvalidOrient, field, "must be -1, 0 or 1, got %d", o)
	}
}

func (v *validator) release(r *ir.ReleaseSite) {
	field := "releases." + r.Name
	shape, err := release.ParseShape(r.Shape)
	if err != nil {
		v.add(ErrInvalidShape, field+".shape", "%v", err)
	}
	if _, err := release.ParseNumberMethod(r.Method); err != nil && shape != release.ShapeList && shape != release.ShapeInitialSurfaceRegion {
		v.add(ErrInvalidShape, field+".method", "%v", err)
	}
	v.orientation(field+".orientation", r.Orientation)
	if r.Probability < 0 || r.Probability > 1 {
		v.add(ErrInvalidNumber, field+".probability", "must be within [0, 1], got %g", r.Probability)
	}

	switch shape {
	case release.ShapeList:
		if len(r.List) == 0 {
			v.add(ErrInvalidShape, field+".list", "list release needs at least one item")
		}
		for j, it := range r.List {
			v.species(fmt.Sprintf("%s.list[%d].species", field, j), it.Species)
			v.orientation(fmt.Sprintf("%s.list[%d].orientation", field, j), it.Orientation)
		}
	case release.ShapeInitialSurfaceRegion:
		v.regionExpr(field+".region", r.Region)
		if len(r.Initial) == 0 {
			v.add(ErrInvalidShape, field+".initial", "initial surface release needs at least one item")
		}
		for j, it := range r.Initial {
			itf := fmt.Sprintf("%s.initial[%d]", field, j)
			if s, ok := v.species(itf+".species", it.Species); ok && !s.Surface {
				v.add(ErrInvalidKind, itf+".species", "%q is not a surface species", it.Species)
			}
			v.orientation(itf+".orientation", it.Orientation)
			if (it.Number != nil && *it.Number < 0) || it.Density < 0 {
				v.add(ErrInvalidNumber, itf, "density and number must not be negative")
			}
		}
	default:
		if r.Species == "" {
			v.add(ErrUnknownSpecies, field+".species", "species is required")
		} else if s, ok := v.species(field+".species", r.Species); ok && s.SurfaceClass {
			v.add(ErrInvalidKind, field+".species", "%q is a surface class and cannot be released", r.Species)
		}
		if shape == release.ShapeRegion {
			v.regionExpr(field+".region", r.Region)
		}
	}

	if r.Pattern != nil {
		dt := v.m.Config.TimeStep
		if dt > 0 {
			if err := patternInIterations(*r.Pattern, dt).Validate(); err != nil {
				v.add(ErrInvalidPattern, field+".pattern", "%v", err)
			}
		}
	}
}

// patternInIterations converts a pattern from seconds to iterations.
func patternInIterations(p ir.Pattern, dt float64) release.Pattern {
	return release.Pattern{
		Delay:           p.Delay / dt,
		NumberOfTrains:  p.NumberOfTrains,
		TrainInterval:   p.TrainInterval / dt,
		TrainDuration:   p.TrainDuration / dt,
		ReleaseInterval: p.ReleaseInterval / dt,
	}
}

func (v *validator) clamp(c *ir.Clamp) {
	field := "clamps." + c.Name
	if s, ok := v.species(field+".species", c.Species); ok && (s.Surface || s.SurfaceClass) {
		v.add(ErrInvalidKind, field+".species", "%q is not a volume species", c.Species)
	}
	v.surfaceClass(field+".surface_class", c.SurfaceClass)
	v.orientation(field+".orientation", c.Orientation)
	if c.Concentration < 0 {
		v.add(ErrInvalidNumber, field+".concentration", "must not be negative")
	}
}

func (v *validator) count(c *ir.Count) {
	field := "counts." + c.Name
	if c.Every < 0 {
		v.add(ErrInvalidNumber, field+".every", "must not be negative, got %d", c.Every)
	}
	for j, it := range c.Items {
		itf := fmt.Sprintf("%s.items[%d]", field, j)
		if it.Buffer == "" {
			v.add(ErrInvalidCountTerm, itf+".buffer", "buffer is required")
		}
		if len(it.Terms) == 0 {
			v.add(ErrInvalidCountTerm, itf+".terms", "at least one term is required")
		}
		for k, t := range it.Terms {
			tf := fmt.Sprintf("%s.terms[%d]", itf, k)
			v.countTerm(tf, t)
		}
	}
}

func (v *validator) countTerm(field string, t ir.CountTerm) {
	if (t.Species == "") == (t.Reaction == "") {
		v.add(ErrInvalidCountTerm, field, "exactly one of species and reaction is required")
	}
	if t.In != "" && t.On != "" {
		v.add(ErrInvalidCountTerm, field, "in and on are mutually exclusive")
	}
	if t.Sign < -1 || t.Sign > 1 {
		v.add(ErrInvalidCountTerm, field+".sign", "must be -1 or 1, got %d", t.Sign)
	}
	v.orientation(field+".orientation", t.Orientation)

	switch t.Species {
	case "", ir.AllMolecules, ir.AllVolumeMolecules, ir.AllSurfaceMolecules:
	default:
		if s, ok := v.species(field+".species", t.Species); ok && s.SurfaceClass {
			v.add(ErrInvalidKind, field+".species", "surface class %q cannot be counted", t.Species)
		}
	}
	if t.Reaction != "" && !v.hasReaction(t.Reaction) {
		v.add(ErrUnknownReference, field+".reaction", "unknown reaction %q", t.Reaction)
	}
	if t.In != "" {
		v.regionExpr(field+".in", t.In)
	}
	if t.On != "" {
		v.regionExpr(field+".on", t.On)
	}
}

func (v *validator) hasReaction(name string) bool {
	for _, r := range v.m.Reactions {
		if r.Name == name {
			return true
		}
	}
	return false
}

// operandPattern matches region expression operands: obj or obj[region].
var operandPattern = regexp.MustCompile(`([\p{L}\p{N}_.]+)(\[([\p{L}\p{N}_.]*)\])?`)

// exprPattern is the lexical shape of a region expression.
var exprPattern = regexp.MustCompile(`^[\p{L}\p{N}_.\[\]()+*\- \t]+$`)

// regionExpr checks that an expression is lexically well formed, that its
// parentheses balance and that every operand names a declared object and
// region. Full parsing happens when the model is built.
func (v *validator) regionExpr(field, src string) {
	if strings.TrimSpace(src) == "" {
		v.add(ErrInvalidRegionExpr, field, "region expression is required")
		return
	}
	if !exprPattern.MatchString(src) {
		v.add(ErrInvalidRegionExpr, field, "invalid characters in %q", src)
		return
	}
	depth := 0
	for _, c := range src {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			break
		}
	}
	if depth != 0 {
		v.add(ErrInvalidRegionExpr, field, "unbalanced parentheses in %q", src)
		return
	}
	for _, m := range operandPattern.FindAllStringSubmatch(src, -1) {
		obj, ok := v.m.FindObject(m[1])
		if !ok {
			v.add(ErrUnknownReference, field, "unknown object %q in %q", m[1], src)
			continue
		}
		if m[2] == "" {
			continue
		}
		if !objectHasRegion(obj, m[3]) {
			v.add(ErrUnknownReference, field, "unknown region %s[%s] in %q", m[1], m[3], src)
		}
	}
}

func objectHasRegion(o *ir.Object, name string) bool {
	if name == geom.AllRegionName || isFace(name) {
		return true
	}
	for _, r := range o.Regions {
		if r.Name == name {
			return true
		}
	}
	return false
}
