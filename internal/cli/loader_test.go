package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/compiler"
)

func TestLoadModel(t *testing.T) {
	res, err := LoadModel(fillAndDrainDir)
	require.NoError(t, err)
	require.NotNil(t, res.Model)

	m := res.Model
	assert.Equal(t, 1, res.FileCount)
	assert.Equal(t, "fill_and_drain", m.Name)
	assert.Equal(t, int64(10), m.Config.Iterations)
	assert.Equal(t, 1e-6, m.Config.TimeStep)
	require.Len(t, m.Releases, 2)
	assert.Equal(t, "fill", m.Releases[0].Name)
	assert.Equal(t, -30.0, m.Releases[1].Number)
	require.NotNil(t, m.Releases[1].Pattern)
	assert.Equal(t, 5e-6, m.Releases[1].Pattern.Delay)
	require.Len(t, m.Counts, 1)
	assert.Equal(t, int64(2), m.Counts[0].Every)
}

func TestLoadModel_NameDefaultsToDirectory(t *testing.T) {
	dir := writeModel(t, "package model\n\nconfig: iterations: 1\nspecies: A: {}\n")
	res, err := LoadModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "model", res.Model.Name)
}

func TestLoadModel_Errors(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(notADir, []byte("package model\n"), 0644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing directory", "/nonexistent/model", ErrCodeNotFound},
		{"not a directory", notADir, ErrCodeNotFound},
		{"no cue files", t.TempDir(), ErrCodeNoFiles},
		{"compile error", missingConfigDir, compiler.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.dir)
			require.Error(t, err)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadError_Position(t *testing.T) {
	dir := writeModel(t, "package model\n\nconfig: {iterations: 1, time_step: \"fast\"}\nspecies: A: {}\n")
	_, err := LoadModel(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, compiler.ErrInvalidConfig, loadErr.Code)
	assert.Equal(t, "config.time_step", loadErr.Field)
	assert.Equal(t, 3, loadErr.Line())
	assert.Contains(t, loadErr.Error(), "model.cue:3:")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"config.iterations":       compiler.ErrInvalidConfig,
		"species":                 compiler.ErrUnknownSpecies,
		"objects.c.min":           compiler.ErrInvalidGeometry,
		"releases.r.shape":        compiler.ErrInvalidShape,
		"clamps.c.species":        compiler.ErrInvalidKind,
		"counts.c.items":          compiler.ErrInvalidCountTerm,
		"cue":                     ErrCodeBuildFailed,
		"something.else.entirely": ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte(""), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), []byte(""), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
