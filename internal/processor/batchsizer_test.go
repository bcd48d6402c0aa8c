package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchSizer_ClampsInitial(t *testing.T) {
	s := NewBatchSizer(5, 10, 100, 0)
	assert.Equal(t, 10, s.Current())

	s = NewBatchSizer(500, 10, 100, 0)
	assert.Equal(t, 100, s.Current())
}

func TestBatchSizer_GrowsAboveTarget(t *testing.T) {
	s := NewBatchSizer(10, 1, 100, 50)
	s.Observe(100) // well above 1.1x target
	assert.Greater(t, s.Current(), 10)
}

func TestBatchSizer_ShrinksBelowTarget(t *testing.T) {
	s := NewBatchSizer(50, 1, 100, 50)
	s.Observe(1) // well below 0.9x target
	assert.Less(t, s.Current(), 50)
}

func TestBatchSizer_StaysWithinBandUnchanged(t *testing.T) {
	s := NewBatchSizer(50, 1, 100, 50)
	s.Observe(50) // exactly at target
	assert.Equal(t, 50, s.Current())
}

func TestBatchSizer_NeverExceedsMax(t *testing.T) {
	s := NewBatchSizer(95, 1, 100, 10)
	for i := 0; i < 10; i++ {
		s.Observe(1000)
	}
	assert.LessOrEqual(t, s.Current(), 100)
}

func TestBatchSizer_NeverBelowMin(t *testing.T) {
	s := NewBatchSizer(5, 1, 100, 1000)
	for i := 0; i < 10; i++ {
		s.Observe(0.01)
	}
	assert.GreaterOrEqual(t, s.Current(), 1)
}
