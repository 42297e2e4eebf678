package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_GetReturnsFixedSize(t *testing.T) {
	p := NewPool(128)
	buf := p.Get()
	defer buf.Release()

	assert.Len(t, buf.Data, 128)
	assert.Equal(t, 128, p.Size())
}

func TestPoolFor_SharedPerSize(t *testing.T) {
	assert.Same(t, poolFor(DefaultBufferSize), poolFor(DefaultBufferSize))
	assert.NotSame(t, poolFor(1024), poolFor(2048))
}

func TestProgressAt(t *testing.T) {
	assert.False(t, progressAt(10, 0).Known)
	assert.False(t, progressAt(10, -1).Known)

	p := progressAt(25, 100)
	assert.True(t, p.Known)
	assert.InDelta(t, 0.25, p.Fraction, 1e-9)

	assert.Equal(t, 1.0, progressAt(200, 100).Fraction)
}
