package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomWalkGenerate(t *testing.T) {
	rw := NewRandomWalk(DefaultFallbackPrice, 60, 42)
	end := int64(1_700_000_030)

	cs := rw.Generate(DefaultFallbackCandles, end)
	require.Len(t, cs, DefaultFallbackCandles)

	assert.Equal(t, floor(end, 60), cs[len(cs)-1].Time)
	assert.Equal(t, DefaultFallbackPrice, cs[0].Open)

	for i, c := range cs {
		require.NoError(t, c.Validate())
		if i == 0 {
			continue
		}
		assert.Equal(t, int64(60), c.Time-cs[i-1].Time)
		assert.Equal(t, cs[i-1].Close, c.Open)

		move := math.Abs(c.Close/c.Open - 1)
		assert.LessOrEqual(t, move, 0.01+1e-12)
	}

	// interchangeable with real data at the window boundary
	w := NewWindow(DefaultCap, 60)
	require.NoError(t, w.Ingest(cs))
	assert.Equal(t, DefaultFallbackCandles, w.Len())
}

func TestRandomWalkDeterministic(t *testing.T) {
	a := NewRandomWalk(100, 60, 7).Generate(20, 6000)
	b := NewRandomWalk(100, 60, 7).Generate(20, 6000)
	assert.Equal(t, a, b)

	assert.Nil(t, NewRandomWalk(100, 60, 7).Generate(0, 6000))
}
