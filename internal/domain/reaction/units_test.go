package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_Stride(t *testing.T) {
	s := NewSeries(Runs(250), UnitPercent)
	got := s.Stride(50, 100)
	assert.Equal(t, []float64{50, 150}, got.Values)
	assert.Equal(t, UnitPercent, got.Unit)

	assert.Empty(t, NewSeries(Runs(10), "").Stride(50, 100).Values)
	assert.Nil(t, (*Series)(nil).Stride(0, 1))
}

func TestSeries_Conversions(t *testing.T) {
	k := KelvinFromCelsius([]float64{0, 100})
	assert.Equal(t, UnitKelvin, k.Unit)
	assert.InDeltaSlice(t, []float64{273.15, 373.15}, k.Values, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 100}, k.Celsius(), 1e-9)

	sec := NewSeries([]float64{0, 1800, 7200}, UnitSecond)
	assert.Equal(t, []float64{0, 0.5, 2}, sec.Hours())
	assert.Equal(t, []float64{1}, NewSeries([]float64{1}, UnitHour).Hours())
}

func TestSeries_NilSafe(t *testing.T) {
	var s *Series
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Empty())
	assert.Nil(t, s.Clone())
	assert.Nil(t, s.Celsius())
	assert.Nil(t, s.Hours())
}

func TestSeries_CloneIsDeep(t *testing.T) {
	s := NewSeries([]float64{1, 2}, UnitBar)
	c := s.Clone()
	c.Values[0] = 9
	assert.Equal(t, 1.0, s.Values[0])
}

func TestScalar_Mass(t *testing.T) {
	g, ok := (&Scalar{Value: 250, Unit: UnitMilligram}).Grams()
	require.True(t, ok)
	assert.Equal(t, 0.25, g)

	mg, ok := (&Scalar{Value: 7, Unit: UnitMilligram}).Milligrams()
	require.True(t, ok)
	assert.Equal(t, 7.0, mg)

	mg, ok = (&Scalar{Value: 0.5, Unit: UnitGram}).Milligrams()
	require.True(t, ok)
	assert.Equal(t, 500.0, mg)

	_, ok = (&Scalar{Value: 1, Unit: UnitBar}).Grams()
	assert.False(t, ok)

	var nilMass *Scalar
	_, ok = nilMass.Grams()
	assert.False(t, ok)
}

func TestRuns(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2}, Runs(3))
	assert.Empty(t, Runs(0))
}
