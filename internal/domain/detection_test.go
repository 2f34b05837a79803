package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox(t *testing.T) {
	t.Parallel()

	t.Run("dimensions", func(t *testing.T) {
		t.Parallel()
		b := Box{X1: 10, Y1: 20, X2: 40, Y2: 60}
		assert.Equal(t, 30.0, b.Width())
		assert.Equal(t, 40.0, b.Height())
		assert.Equal(t, 1200.0, b.Area())

		cx, cy := b.Center()
		assert.Equal(t, 25.0, cx)
		assert.Equal(t, 40.0, cy)
	})

	t.Run("inverted coordinates clamp to zero", func(t *testing.T) {
		t.Parallel()
		b := Box{X1: 40, Y1: 60, X2: 10, Y2: 20}
		assert.Zero(t, b.Width())
		assert.Zero(t, b.Height())
		assert.Zero(t, b.Area())
	})

	t.Run("degenerate point box", func(t *testing.T) {
		t.Parallel()
		b := Box{X1: 5, Y1: 5, X2: 5, Y2: 5}
		assert.Zero(t, b.Area())
		cx, cy := b.Center()
		assert.Equal(t, 5.0, cx)
		assert.Equal(t, 5.0, cy)
	})
}

func TestUnknownWeather(t *testing.T) {
	t.Parallel()
	w := UnknownWeather()
	assert.Equal(t, "unknown", w.Description)
	assert.Zero(t, w.Temperature)
	assert.True(t, w.IsFallback)
	assert.False(t, w.Timestamp.IsZero())
}
