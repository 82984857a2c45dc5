package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
)

func figureByLabel(figs []reaction.Figure, label string) (reaction.Figure, bool) {
	for _, f := range figs {
		if f.Label == label {
			return f, true
		}
	}
	return reaction.Figure{}, false
}

func tabularRecord() *reaction.ReactionRecord {
	co := reaction.NewSpecies(reaction.RoleReactant, "CO")
	co.Conversion = reaction.NewSeries([]float64{10, 20}, reaction.UnitPercent)
	co2 := reaction.NewSpecies(reaction.RoleProduct, "CO2")
	co2.Selectivity = reaction.NewSeries([]float64{90, 95}, reaction.UnitPercent)
	h2o := reaction.NewSpecies(reaction.RoleProduct, "H2O")
	h2o.GasConcentrationOut = reaction.NewSeries([]float64{1, 2}, reaction.UnitPercent)

	return &reaction.ReactionRecord{
		Conditions: &reaction.ReactionConditions{
			SetTemperature: reaction.NewSeries([]float64{473.15, 573.15}, reaction.UnitKelvin),
			SetPressure:    reaction.NewSeries([]float64{1, 1}, reaction.UnitBar),
		},
		Results: []*reaction.ReactionData{{
			Runs:         []float64{0, 1},
			TimeOnStream: reaction.NewSeries([]float64{0.5, 1.5}, reaction.UnitHour),
			Reactants:    []*reaction.Species{co},
			Products:     []*reaction.Species{co2, h2o},
			Rates:        []*reaction.Rate{{Name: "CO", ReactionRate: reaction.NewSeries([]float64{3, 4}, reaction.UnitRate)}},
		}},
	}
}

func TestBuildFigures(t *testing.T) {
	figs := BuildFigures(tabularRecord())

	temp, ok := figureByLabel(figs, "figure Temperature")
	require.True(t, ok)
	assert.Equal(t, axisTimeHours, temp.XAxis)
	assert.Equal(t, []float64{0.5, 1.5}, temp.Traces[0].X)
	assert.InDeltaSlice(t, []float64{200, 300}, temp.Traces[0].Y, 1e-9)

	pressure, ok := figureByLabel(figs, "figure Pressure")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1}, pressure.Traces[0].Y)

	sel, ok := figureByLabel(figs, "figure Selectivity")
	require.True(t, ok)
	require.Len(t, sel.Traces, 2)
	assert.Equal(t, []float64{90, 95}, sel.Traces[0].Y)
	assert.Equal(t, "H2O", sel.Traces[1].Name)
	assert.Equal(t, []float64{1, 2}, sel.Traces[1].Y)

	conv, ok := figureByLabel(figs, "figure Conversion")
	require.True(t, ok)
	require.Len(t, conv.Traces, 1)
	assert.Equal(t, "CO", conv.Traces[0].Name)

	rates, ok := figureByLabel(figs, "Rates")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, rates.Traces[0].Y)

	sx, ok := figureByLabel(figs, "S-X plot CO Conversion")
	require.True(t, ok)
	assert.Equal(t, "Conversion CO", sx.XAxis)
	assert.Equal(t, ModeMarkers, sx.Traces[0].Mode)
	assert.Equal(t, []float64{10, 20}, sx.Traces[0].X)
	assert.Equal(t, []float64{}, sx.Traces[1].Y)
}

func TestBuildFigures_RunAxis(t *testing.T) {
	rec := tabularRecord()
	rec.Results[0].TimeOnStream = nil
	rec.Results[0].Rates = nil
	rec.Results[0].Products[0].Selectivity = nil

	figs := BuildFigures(rec)
	temp, ok := figureByLabel(figs, "figure Temperature")
	require.True(t, ok)
	assert.Equal(t, axisSteps, temp.XAxis)
	assert.Equal(t, []float64{0, 1}, temp.Traces[0].X)

	_, ok = figureByLabel(figs, "Rates")
	assert.False(t, ok)
	_, ok = figureByLabel(figs, "S-X plot CO Conversion")
	assert.False(t, ok)
}

func TestBuildFigures_NoResults(t *testing.T) {
	assert.Nil(t, BuildFigures(&reaction.ReactionRecord{}))
	assert.Nil(t, BuildNH3Figures(&reaction.ReactionRecord{}))
}

func TestBuildNH3Figures(t *testing.T) {
	rec, err := BuildNH3(newNH3Container(4), nil)
	require.NoError(t, err)

	figs := BuildNH3Figures(rec)
	labels := make([]string, len(figs))
	for i, f := range figs {
		labels[i] = f.Label
	}
	assert.Equal(t, []string{"figure Temp", "figure Conversion", "figure rates", "Pretreatment Temperature", "Temperature"}, labels)

	temp := figs[0]
	assert.InDeltaSlice(t, []float64{0, 10.0 / 3600, 20.0 / 3600, 30.0 / 3600}, temp.Traces[0].X, 1e-12)
	assert.InDeltaSlice(t, []float64{300, 301, 302, 303}, temp.Traces[0].Y, 1e-9)

	rates := figs[2]
	assert.Equal(t, axisTempC, rates.XAxis)
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, rates.Traces[0].Y)

	pre := figs[3]
	assert.Equal(t, ModeMarkers, pre.Traces[0].Mode)
	assert.Equal(t, []float64{0, 1, 2}, pre.Traces[0].X)
	assert.InDeltaSlice(t, []float64{25, 200, 400}, pre.Traces[0].Y, 1e-9)
}

//Personal.AI order the ending
