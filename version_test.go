package vecdelta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
	assert.Contains(t, Version(), "vecdelta")
}
