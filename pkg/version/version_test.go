package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "1.4.0"
	assert.Equal(t, "1.4.0", Get())

	Version = ""
	assert.NotEmpty(t, Get())
}
