package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cellsim/internal/ir"
)

// Defaults applied when a model leaves a setting out.
const (
	DefaultTimeStep    = 1e-6
	DefaultGridDensity = 10000.0
	DefaultPolicy      = "warning"
	DefaultColumn      = "value"
)

// CompileModel parses a CUE value into a Model.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the model root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`config: iterations: 10, species: A: diffusion_constant: 1e-6`)
//	model, err := CompileModel(v)
//
// Keyed sections (species, reactions, objects, releases, clamps, counts)
// compile in declaration order, and every name is NFC-normalized.
func CompileModel(v cue.Value) (*ir.Model, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.Model{}
	var err error
	if m.Name, err = optString(v, "name", ""); err != nil {
		return nil, err
	}

	cfgVal := v.LookupPath(cue.ParsePath("config"))
	if !cfgVal.Exists() {
		return nil, &CompileError{
			Field:   "config",
			Message: "config is required",
			Pos:     v.Pos(),
		}
	}
	if m.Config, err = parseConfig(cfgVal); err != nil {
		return nil, err
	}

	if err := eachField(v, "species", func(name string, sv cue.Value) error {
		s, err := parseSpecies(name, sv)
		if err != nil {
			return err
		}
		m.Species = append(m.Species, s)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(m.Species) == 0 {
		return nil, &CompileError{
			Field:   "species",
			Message: "at least one species is required",
			Pos:     v.Pos(),
		}
	}

	if err := eachField(v, "reactions", func(name string, _ cue.Value) error {
		m.Reactions = append(m.Reactions, ir.Reaction{Name: name})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "objects", func(name string, ov cue.Value) error {
		o, err := parseObject(name, ov)
		if err != nil {
			return err
		}
		m.Objects = append(m.Objects, o)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "releases", func(name string, rv cue.Value) error {
		r, err := parseRelease(name, rv)
		if err != nil {
			return err
		}
		m.Releases = append(m.Releases, r)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "clamps", func(name string, cv cue.Value) error {
		c, err := parseClamp(name, cv)
		if err != nil {
			return err
		}
		m.Clamps = append(m.Clamps, c)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "counts", func(name string, cv cue.Value) error {
		c, err := parseCount(name, cv)
		if err != nil {
			return err
		}
		m.Counts = append(m.Counts, c)
		return nil
	}); err != nil {
		return nil, err
	}

	return m, nil
}

func parseConfig(v cue.Value) (ir.Config, error) {
	var cfg ir.Config
	seed, err := optInt(v, "seed", 1)
	if err != nil {
		return cfg, err
	}
	if seed < 0 {
		return cfg, fieldError(v, "seed", "must not be negative")
	}
	cfg.Seed = uint64(seed)

	itVal := v.LookupPath(cue.ParsePath("iterations"))
	if !itVal.Exists() {
		return cfg, &CompileError{Field: "config.iterations", Message: "iterations is required", Pos: v.Pos()}
	}
	if cfg.Iterations, err = optInt(v, "iterations", 0); err != nil {
		return cfg, err
	}
	if cfg.TimeStep, err = optFloat(v, "time_step", DefaultTimeStep); err != nil {
		return cfg, err
	}
	if cfg.GridDensity, err = optFloat(v, "grid_density", DefaultGridDensity); err != nil {
		return cfg, err
	}
	if cfg.PlacementFailurePolicy, err = optString(v, "placement_failure_policy", DefaultPolicy); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseSpecies(name string, v cue.Value) (ir.Species, error) {
	s := ir.Species{Name: name}
	var err error
	if s.DiffusionConstant, err = optFloat(v, "diffusion_constant", 0); err != nil {
		return s, err
	}
	if s.TimeStep, err = optFloat(v, "time_step", 0); err != nil {
		return s, err
	}
	if s.Surface, err = optBool(v, "surface", false); err != nil {
		return s, err
	}
	if s.SurfaceClass, err = optBool(v, "surface_class", false); err != nil {
		return s, err
	}
	return s, nil
}

func parseObject(name string, v cue.Value) (ir.Object, error) {
	o := ir.Object{Name: name}
	var err error
	if o.Min, err = reqVec(v, "min"); err != nil {
		return o, err
	}
	if o.Max, err = reqVec(v, "max"); err != nil {
		return o, err
	}
	err = eachField(v, "regions", func(rname string, rv cue.Value) error {
		r := ir.Region{Name: rname}
		var err error
		if r.SurfaceClass, err = optString(rv, "surface_class", ""); err != nil {
			return err
		}
		if r.Faces, err = optStrings(rv, "faces"); err != nil {
			return err
		}
		o.Regions = append(o.Regions, r)
		return nil
	})
	return o, err
}

func parseRelease(name string, v cue.Value) (ir.ReleaseSite, error) {
	r := ir.ReleaseSite{Name: name}
	var err error
	if r.Species, err = optString(v, "species", ""); err != nil {
		return r, err
	}
	if r.Orientation, err = optSmallInt(v, "orientation"); err != nil {
		return r, err
	}
	if r.Shape, err = reqString(v, "shape"); err != nil {
		return r, err
	}
	if r.Method, err = optString(v, "method", "const_num"); err != nil {
		return r, err
	}
	if r.Number, err = optFloat(v, "number", 0); err != nil {
		return r, err
	}
	if r.NumberStd, err = optFloat(v, "number_std", 0); err != nil {
		return r, err
	}
	if r.Concentration, err = optFloat(v, "concentration", 0); err != nil {
		return r, err
	}
	if r.Location, err = optVec(v, "location"); err != nil {
		return r, err
	}
	if r.Diameter, err = optVec(v, "diameter"); err != nil {
		return r, err
	}
	if r.DiameterStd, err = optFloat(v, "diameter_std", 0); err != nil {
		return r, err
	}
	if r.Region, err = optString(v, "region", ""); err != nil {
		return r, err
	}
	if r.Probability, err = optFloat(v, "probability", 1); err != nil {
		return r, err
	}

	if pv := v.LookupPath(cue.ParsePath("pattern")); pv.Exists() {
		p, err := parsePattern(pv)
		if err != nil {
			return r, err
		}
		r.Pattern = &p
	}

	err = eachElem(v, "list", func(ev cue.Value) error {
		var it ir.ListItem
		var err error
		if it.Species, err = reqString(ev, "species"); err != nil {
			return err
		}
		if it.Orientation, err = optSmallInt(ev, "orientation"); err != nil {
			return err
		}
		if it.Position, err = reqVec(ev, "position"); err != nil {
			return err
		}
		r.List = append(r.List, it)
		return nil
	})
	if err != nil {
		return r, err
	}

	err = eachElem(v, "initial", func(ev cue.Value) error {
		var it ir.InitialItem
		var err error
		if it.Species, err = reqString(ev, "species"); err != nil {
			return err
		}
		if it.Orientation, err = optSmallInt(ev, "orientation"); err != nil {
			return err
		}
		if it.Density, err = optFloat(ev, "density", 0); err != nil {
			return err
		}
		if nv := ev.LookupPath(cue.ParsePath("number")); nv.Exists() {
			n, err := nv.Int64()
			if err != nil {
				return fieldError(ev, "number", "must be an integer")
			}
			k := int(n)
			it.Number = &k
		}
		r.Initial = append(r.Initial, it)
		return nil
	})
	return r, err
}

func parsePattern(v cue.Value) (ir.Pattern, error) {
	p := ir.Pattern{}
	var err error
	if p.Delay, err = optFloat(v, "delay", 0); err != nil {
		return p, err
	}
	trains, err := optInt(v, "number_of_trains", 1)
	if err != nil {
		return p, err
	}
	p.NumberOfTrains = int(trains)
	if p.TrainInterval, err = optFloat(v, "train_interval", 0); err != nil {
		return p, err
	}
	if p.TrainDuration, err = optFloat(v, "train_duration", 0); err != nil {
		return p, err
	}
	if p.ReleaseInterval, err = reqFloat(v, "release_interval"); err != nil {
		return p, err
	}
	return p, nil
}

func parseClamp(name string, v cue.Value) (ir.Clamp, error) {
	c := ir.Clamp{Name: name}
	var err error
	if c.Species, err = reqString(v, "species"); err != nil {
		return c, err
	}
	if c.SurfaceClass, err = reqString(v, "surface_class"); err != nil {
		return c, err
	}
	if c.Concentration, err = reqFloat(v, "concentration"); err != nil {
		return c, err
	}
	if c.Orientation, err = optSmallInt(v, "orientation"); err != nil {
		return c, err
	}
	return c, nil
}

func parseCount(name string, v cue.Value) (ir.Count, error) {
	c := ir.Count{Name: name}
	var err error
	if c.Every, err = optInt(v, "every", 0); err != nil {
		return c, err
	}
	err = eachElem(v, "items", func(iv cue.Value) error {
		var it ir.CountItem
		var err error
		if it.Buffer, err = optString(iv, "buffer", name); err != nil {
			return err
		}
		if it.Column, err = optString(iv, "column", DefaultColumn); err != nil {
			return err
		}
		if it.Multiplier, err = optFloat(iv, "multiplier", 1); err != nil {
			return err
		}
		err = eachElem(iv, "terms", func(tv cue.Value) error {
			var t ir.CountTerm
			var err error
			if t.Species, err = optString(tv, "species", ""); err != nil {
				return err
			}
			if t.Reaction, err = optString(tv, "reaction", ""); err != nil {
				return err
			}
			if t.Sign, err = optSmallInt(tv, "sign"); err != nil {
				return err
			}
			if t.Orientation, err = optSmallInt(tv, "orientation"); err != nil {
				return err
			}
			if t.In, err = optString(tv, "in", ""); err != nil {
				return err
			}
			if t.On, err = optString(tv, "on", ""); err != nil {
				return err
			}
			it.Terms = append(it.Terms, t)
			return nil
		})
		if err != nil {
			return err
		}
		c.Items = append(c.Items, it)
		return nil
	})
	if err != nil {
		return c, err
	}
	if len(c.Items) == 0 {
		return c, &CompileError{
			Field:   "counts." + name + ".items",
			Message: "at least one item is required",
			Pos:     v.Pos(),
		}
	}
	return c, nil
}

// eachField calls fn for each field of the struct at v.field, in
// declaration order. A missing struct is not an error.
func eachField(v cue.Value, field string, fn func(name string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(field))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return fieldError(v, field, "must be a struct keyed by name")
	}
	for iter.Next() {
		if err := fn(norm.NFC.String(iter.Selector().Unquoted()), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// eachElem calls fn for each element of the list at v.field.
func eachElem(v cue.Value, field string, fn func(ev cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return fieldError(v, field, "must be a list")
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", fieldError(v, field, "must be a string")
	}
	return norm.NFC.String(s), nil
}

func reqString(v cue.Value, field string) (string, error) {
	if !v.LookupPath(cue.ParsePath(field)).Exists() {
		return "", fieldError(v, field, "is required")
	}
	return optString(v, field, "")
}

func optStrings(v cue.Value, field string) ([]string, error) {
	var out []string
	err := eachElem(v, field, func(ev cue.Value) error {
		s, err := ev.String()
		if err != nil {
			return fieldError(v, field, "must be a list of strings")
		}
		out = append(out, norm.NFC.String(s))
		return nil
	})
	return out, err
}

func optFloat(v cue.Value, field string, def float64) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, fieldError(v, field, "must be a number")
	}
	return f, nil
}

func reqFloat(v cue.Value, field string) (float64, error) {
	if !v.LookupPath(cue.ParsePath(field)).Exists() {
		return 0, fieldError(v, field, "is required")
	}
	return optFloat(v, field, 0)
}

func optInt(v cue.Value, field string, def int64) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, fieldError(v, field, "must be an integer")
	}
	return n, nil
}

func optSmallInt(v cue.Value, field string) (int, error) {
	n, err := optInt(v, field, 0)
	return int(n), err
}

func optBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, fieldError(v, field, "must be a bool")
	}
	return b, nil
}

func optVec(v cue.Value, field string) (ir.Vec, error) {
	var out ir.Vec
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return out, nil
	}
	iter, err := fv.List()
	if err != nil {
		return out, fieldError(v, field, "must be a list of 3 numbers")
	}
	i := 0
	for iter.Next() {
		if i == 3 {
			return out, fieldError(v, field, "must be a list of 3 numbers")
		}
		f, err := iter.Value().Float64()
		if err != nil {
			return out, fieldError(v, field, "must be a list of 3 numbers")
		}
		out[i] = f
		i++
	}
	if i != 3 {
		return out, fieldError(v, field, "must be a list of 3 numbers")
	}
	return out, nil
}

func reqVec(v cue.Value, field string) (ir.Vec, error) {
	if !v.LookupPath(cue.ParsePath(field)).Exists() {
		return ir.Vec{}, fieldError(v, field, "is required")
	}
	return optVec(v, field)
}

// fieldError reports a problem with v.field, positioned at the field when
// it exists and at v otherwise.
func fieldError(v cue.Value, field, msg string) *CompileError {
	path := v.Path().String()
	if path != "" {
		path += "."
	}
	pos := v.Pos()
	if fv := v.LookupPath(cue.ParsePath(field)); fv.Exists() {
		pos = fv.Pos()
	}
	return &CompileError{
		Field:   path + field,
		Message: field + " " + msg,
		Pos:     pos,
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
