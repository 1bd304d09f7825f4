package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrendPercent(t *testing.T) {
	assert.Equal(t, 0, TrendPercent(0, 0))
	assert.Equal(t, 100, TrendPercent(5, 0))
	assert.Equal(t, 50, TrendPercent(150, 100))
	assert.Equal(t, -50, TrendPercent(50, 100))

	// Rounded to nearest integer
	assert.Equal(t, -67, TrendPercent(1, 3))
	assert.Equal(t, 33, TrendPercent(4, 3))
	assert.Equal(t, -100, TrendPercent(0, 100))
}
