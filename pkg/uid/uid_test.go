package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	id := New()
	assert.True(t, IsValid(id))
	assert.NotEqual(t, id, New())
}

func TestNewToken(t *testing.T) {
	tok := NewToken()
	assert.Len(t, tok, 32)
	assert.NotContains(t, tok, "-")
	assert.True(t, IsValid(tok))
}
