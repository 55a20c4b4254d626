package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(src), 0644))
	return dir
}

func TestLoadModelDir(t *testing.T) {
	m, err := LoadModelDir(filepath.Join("..", "..", "testdata", "models", "fill_and_drain"))
	require.NoError(t, err)
	assert.Equal(t, "fill_and_drain", m.Name)
	assert.Len(t, m.Releases, 2)
	assert.Empty(t, Validate(m))
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(writeDir(t, "package model\n\nconfig: {\n"))
	assert.True(t, errors.Is(err, ErrLoad), "syntax errors fail the load: %v", err)

	_, err = LoadDir(writeDir(t, "package model\n\na: undefined_ref\n"))
	assert.True(t, errors.Is(err, ErrBuild), "unresolved references fail the build: %v", err)
}

func TestLoadModelDir_CompileError(t *testing.T) {
	_, err := LoadModelDir(writeDir(t, "package model\n\nspecies: A: {}\n"))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "config", ce.Field)
}
