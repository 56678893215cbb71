package testutil

// FixedIDGenerator hands out the same loop id every time, so a scenario
// run journals and logs under a stable id and golden output stays
// byte-identical between runs.
//
// Thread-safety: FixedIDGenerator is immutable and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id becomes
// "test-loop".
func NewFixedIDGenerator(id string) FixedIDGenerator {
	if id == "" {
		id = "test-loop"
	}
	return FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g FixedIDGenerator) Generate() string {
	return g.id
}
