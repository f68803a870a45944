package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIsStable(t *testing.T) {
	a := Get()
	b := Get()
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Platform)
	assert.Positive(t, a.Cores)
}
