package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() *Model {
	return &Model{
		Name: "sample",
		Config: Config{
			Seed:                   1,
			Iterations:             10,
			TimeStep:               1e-6,
			GridDensity:            10000,
			PlacementFailurePolicy: "warning",
		},
		Species: []Species{{Name: "A", DiffusionConstant: 1e-6}},
		Objects: []Object{{Name: "cell", Max: Vec{0.1, 0.1, 0.1}}},
		Releases: []ReleaseSite{{
			Name: "site", Species: "A", Shape: "region", Method: "const_num",
			Number: 100, Region: "cell", Probability: 1,
		}},
	}
}

func TestModelHashDeterminism(t *testing.T) {
	h1, err := ModelHash(sampleModel())
	require.NoError(t, err)
	h2, err := ModelHash(sampleModel())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "ModelHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestModelHashChangesWithInput(t *testing.T) {
	base := MustModelHash(sampleModel())

	seed := sampleModel()
	seed.Config.Seed = 2

	number := sampleModel()
	number.Releases[0].Number = 101

	name := sampleModel()
	name.Species[0].Name = "B"

	assert.NotEqual(t, base, MustModelHash(seed), "different seed")
	assert.NotEqual(t, base, MustModelHash(number), "different release number")
	assert.NotEqual(t, base, MustModelHash(name), "different species name")
}

func TestModelHashNFCInsensitive(t *testing.T) {
	composed := sampleModel()
	composed.Name = "caf\u00e9"
	decomposed := sampleModel()
	decomposed.Name = "cafe\u0301"

	assert.Equal(t, MustModelHash(composed), MustModelHash(decomposed))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainModel, data), hashWithDomain(DomainCheckpoint, data))
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")),
		"separator must split domain from data")
}

func TestCanonicalizeStruct(t *testing.T) {
	out, err := Canonicalize(Pattern{Delay: 5e-6, NumberOfTrains: 2, TrainInterval: 1e-5, ReleaseInterval: 1e-6})
	require.NoError(t, err)
	assert.Equal(t,
		`{"delay":0.000005,"number_of_trains":2,"release_interval":0.000001,"train_duration":0,"train_interval":0.00001}`,
		string(out))
}

func TestCheckpointHash(t *testing.T) {
	payload := map[string]any{"iteration": 4.0, "events": []any{"a"}}
	h1, err := CheckpointHash(payload)
	require.NoError(t, err)
	h2, err := CheckpointHash(map[string]any{"events": []any{"a"}, "iteration": 4})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "float 4.0 and int 4 canonicalize identically")
}
