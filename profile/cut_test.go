package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCutHorizontal(t *testing.T) {
	c, err := NewCut(5, 0.05, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.StartX)
	assert.Equal(t, 2.0, c.StartY)
	assert.Equal(t, 4.0, c.EndX)
	assert.Equal(t, 2.0, c.EndY)
	require.Len(t, c.Samples, 5)
	assert.InDelta(t, -2*0.01, c.position(c.Samples[0]), 1e-15)
	assert.InDelta(t, 0, c.position(c.Samples[2]), 1e-15)
}

func TestNewCutDirection(t *testing.T) {
	// 180 degrees runs the same row backwards
	c, err := NewCut(5, 1, 180, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4, c.StartX, 1e-9)
	assert.InDelta(t, 0, c.EndX, 1e-9)

	// 90 degrees runs down the middle column toward larger rows
	c, err = NewCut(5, 1, 90, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2, c.StartX, 1e-9)
	assert.InDelta(t, 0, c.StartY, 1e-9)
	assert.InDelta(t, 4, c.EndY, 1e-9)

	// Diagonal from corner to corner
	c, err = NewCut(101, 1, 45, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, c.StartX, 1e-9)
	assert.InDelta(t, 0, c.StartY, 1e-9)
	assert.Len(t, c.Samples, int(math.Floor(100*math.Sqrt2))+1)
}

func TestNewCutOffset(t *testing.T) {
	c, err := NewCut(11, 1, 0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 8, c.StartY, 1e-9)
	assert.InDelta(t, 8, c.EndY, 1e-9)

	_, err = NewCut(11, 1, 0, 50)
	assert.ErrorIs(t, err, ErrNoIntersection)

	_, err = NewCut(1, 1, 0, 0)
	assert.Error(t, err)
}

func TestInterpolate(t *testing.T) {
	m := [][]float64{
		{0, 1},
		{2, 3},
	}
	assert.InDelta(t, 1.5, interpolate(m, 0.5, 0.5), 1e-9)
	assert.InDelta(t, 0.5, interpolate(m, 0.5, 0), 1e-9)
	assert.InDelta(t, 0, interpolate(m, -3, -3), 1e-9)
	assert.InDelta(t, 3, interpolate(m, 10, 10), 1e-6)
	assert.Equal(t, 0.0, interpolate(nil, 0, 0))
}

func TestExtractGaussian(t *testing.T) {
	const size = 201
	sigma := 10.0
	m := make([][]float64, size)
	for i := range m {
		m[i] = make([]float64, size)
		for j := range m[i] {
			dx, dy := float64(j-100), float64(i-100)
			m[i][j] = math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
		}
	}

	pitch := 1e-5
	for _, angle := range []float64{0, 30, 90, 137} {
		c, err := NewCut(size, size*pitch, angle, 0)
		require.NoError(t, err)
		points, err := Extract(m, c)
		require.NoError(t, err)

		s := Summarize(points)
		assert.InDelta(t, 1, s.Peak, 0.02, "angle %g", angle)
		assert.InDelta(t, 0, s.PeakPosition, pitch, "angle %g", angle)
		fwhm := 2 * math.Sqrt(2*math.Ln2) * sigma * pitch
		assert.InEpsilon(t, fwhm, s.FWHM, 0.03, "angle %g", angle)
	}

	c, err := NewCut(size+1, 1, 0, 0)
	require.NoError(t, err)
	_, err = Extract(m, c)
	assert.Error(t, err)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestStepTicks(t *testing.T) {
	ticks := StepTicks{Step: 0.5, Format: "%.1f"}.Ticks(-0.7, 1.2)
	require.Len(t, ticks, 4)
	assert.Equal(t, -0.5, ticks[0].Value)
	assert.Equal(t, "1.0", ticks[3].Label)
	assert.Nil(t, StepTicks{}.Ticks(0, 1))
}

func TestNiceStep(t *testing.T) {
	assert.Equal(t, 1.0, niceStep(1.2))
	assert.Equal(t, 0.2, niceStep(0.25))
	assert.Equal(t, 50.0, niceStep(48))
	assert.Equal(t, 1.0, niceStep(0))
}
