package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStream(t *testing.T) {
	s := Default()
	assert.Equal(t, 0, s.ID())
	assert.NotPanics(t, func() { s.Sync() })
}
