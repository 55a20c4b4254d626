package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSpeciesAndObject(t *testing.T) {
	m := sampleModel()

	s, ok := m.FindSpecies("A")
	require.True(t, ok)
	s.TimeStep = 2
	assert.Equal(t, 2.0, m.Species[0].TimeStep, "FindSpecies returns a pointer into the model")

	_, ok = m.FindSpecies("missing")
	assert.False(t, ok)

	obj, ok := m.FindObject("cell")
	require.True(t, ok)
	assert.Equal(t, Vec{0.1, 0.1, 0.1}, obj.Max)
}

func TestBuffersInDeclarationOrder(t *testing.T) {
	m := &Model{Counts: []Count{
		{Name: "c1", Items: []CountItem{{Buffer: "b2"}, {Buffer: "b1"}}},
		{Name: "c2", Items: []CountItem{{Buffer: "b2"}, {Buffer: "b3"}}},
	}}
	assert.Equal(t, []string{"b2", "b1", "b3"}, m.Buffers())
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, 0, compareKeysRFC8785("a", "a"))
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
	assert.Equal(t, 1, compareKeysRFC8785("b", "ab"))
	assert.Equal(t, -1, compareKeysRFC8785("\U0001F600", "\uFFFD"))
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]any{"c": 1, "a": 2, "b": 3}))
}
