package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cellsim/internal/ir"
)

// Sentinel errors for LoadDir stages.
var (
	// ErrLoad is returned when the CUE files of a directory cannot be loaded.
	ErrLoad = errors.New("cue load failed")

	// ErrBuild is returned when the loaded files do not build into a value.
	ErrBuild = errors.New("cue build failed")
)

// LoadDir builds the CUE package in dir into a value.
func LoadDir(dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("%w: no CUE instances loaded", ErrLoad)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("%w: %v", ErrLoad, inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	return value, nil
}

// LoadModelDir loads dir and compiles it into a model.
func LoadModelDir(dir string) (*ir.Model, error) {
	v, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileModel(v)
}
