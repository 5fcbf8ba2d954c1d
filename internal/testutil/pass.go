package testutil

// FixedPassGenerator returns the same pass id every time.
//
// This enables deterministic reports and golden snapshot comparison: the
// same scenario run with the same generator produces byte-identical output.
//
// Thread-safety: FixedPassGenerator is stateless and safe for concurrent use.
type FixedPassGenerator struct {
	id string
}

// NewFixedPassGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-pass-default".
func NewFixedPassGenerator(id string) *FixedPassGenerator {
	if id == "" {
		id = "test-pass-default"
	}
	return &FixedPassGenerator{id: id}
}

// Generate returns the fixed pass id.
//
// Implements engine.PassIDGenerator.
func (g *FixedPassGenerator) Generate() string {
	return g.id
}
