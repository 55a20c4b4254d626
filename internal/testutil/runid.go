package testutil

// FixedRunIDGenerator returns the same run id every time, so repeated
// scenario runs write identical rows.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence, this one
// never runs out.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
