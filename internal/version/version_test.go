package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	s := String()
	assert.Contains(t, s, "hianime v"+Version)
	assert.Contains(t, s, "SQLite library")
}
