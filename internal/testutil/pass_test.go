package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPassGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedPassGenerator("pass-123")

	assert.Equal(t, "pass-123", gen.Generate())
	assert.Equal(t, "pass-123", gen.Generate())
}

func TestFixedPassGenerator_EmptyIDDefault(t *testing.T) {
	gen := NewFixedPassGenerator("")
	assert.Equal(t, "test-pass-default", gen.Generate())
}
