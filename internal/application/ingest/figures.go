package ingest

import (
	"strconv"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
)

// Trace modes.
const (
	ModeLines        = "lines"
	ModeMarkers      = "markers"
	ModeLinesMarkers = "lines+markers"
)

const (
	axisTimeHours  = "time (h)"
	axisSteps      = "steps"
	axisTempC      = "Temperature (°C)"
	axisPressure   = "Pressure (bar)"
	axisSelect     = "Selectivity (%)"
	axisConversion = "Conversion (%)"
)

// BuildFigures returns the diagnostic plots of a tabular measurement.  The
// x axis is time on stream in hours when present, otherwise the run index.
func BuildFigures(rec *reaction.ReactionRecord) []reaction.Figure {
	data := rec.PrimaryResults(nil)
	if data == nil {
		return nil
	}
	cond := rec.Conditions
	if cond == nil {
		cond = &reaction.ReactionConditions{}
	}

	x, xLabel := figureAxis(data, cond)
	var figs []reaction.Figure

	switch {
	case !data.Temperature.Empty():
		figs = append(figs, single("figure Temperature", "", xLabel, axisTempC, x, data.Temperature.Celsius(), ModeLinesMarkers))
	case !cond.SetTemperature.Empty():
		figs = append(figs, single("figure Temperature", "", xLabel, axisTempC, x, cond.SetTemperature.Celsius(), ModeLinesMarkers))
	}
	switch {
	case !data.Pressure.Empty():
		figs = append(figs, single("figure Pressure", "", xLabel, axisPressure, x, data.Pressure.Values, ModeLinesMarkers))
	case !cond.SetPressure.Empty():
		figs = append(figs, single("figure Pressure", "", xLabel, axisPressure, x, cond.SetPressure.Values, ModeLinesMarkers))
	}

	sel := reaction.Figure{Label: "figure Selectivity", Title: "Selectivity", XAxis: xLabel, YAxis: axisSelect}
	for _, p := range data.Products {
		y := p.Selectivity
		if y.Empty() {
			y = p.GasConcentrationOut
		}
		sel.Traces = append(sel.Traces, trace(p.Name, x, valuesOf(y), ModeLines))
	}
	figs = append(figs, sel)

	conv := reaction.Figure{Label: "figure Conversion", Title: "Conversion", XAxis: xLabel, YAxis: axisConversion}
	for _, r := range data.Reactants {
		conv.Traces = append(conv.Traces, trace(r.Name, x, valuesOf(r.Conversion), ModeLines))
	}
	figs = append(figs, conv)

	if len(data.Rates) > 0 {
		rates := reaction.Figure{Label: "Rates", Title: "Rates", XAxis: xLabel, YAxis: "rates (" + reaction.UnitRate + ")"}
		for _, r := range data.Rates {
			rates.Traces = append(rates.Traces, trace(r.Name, x, valuesOf(r.ReactionRate), ModeLines))
		}
		figs = append(figs, rates)
	}

	if hasSelectivity(data.Products) {
		for i, r := range data.Reactants {
			sx := reaction.Figure{
				Label: "S-X plot " + r.Name + " Conversion",
				Title: "S-X plot " + strconv.Itoa(i),
				XAxis: "Conversion " + r.Name,
				YAxis: axisSelect,
			}
			for _, p := range data.Products {
				sx.Traces = append(sx.Traces, trace(p.Name, valuesOf(r.Conversion), valuesOf(p.Selectivity), ModeMarkers))
			}
			figs = append(figs, sx)
		}
	}
	return figs
}

// BuildNH3Figures returns the plots of an ammonia decomposition record:
// temperature and conversion over time, rate over temperature and the
// temperature programs of pretreatment and reaction.
func BuildNH3Figures(rec *reaction.ReactionRecord) []reaction.Figure {
	data := rec.PrimaryResults(nil)
	if data == nil {
		return nil
	}
	hours := data.TimeOnStream.Hours()
	temp := data.Temperature.Celsius()

	figs := []reaction.Figure{
		single("figure Temp", "", axisTimeHours, axisTempC, hours, temp, ModeLines),
	}
	for _, r := range data.Reactants {
		figs = append(figs, single("figure Conversion", "Conversion", axisTimeHours, axisConversion, hours, valuesOf(r.Conversion), ModeLines))
	}
	if len(data.Rates) > 0 {
		figs = append(figs, single("figure rates", "", axisTempC, "reaction rate (mmol(H2)/gcat/min)", temp, valuesOf(data.Rates[0].ReactionRate), ModeLines))
	}
	if p := rec.Pretreatment; p != nil && !p.SetTemperature.Empty() {
		figs = append(figs, single("Pretreatment Temperature", "Pretreatment Temperature Program", "measurement points", axisTempC, p.Runs, p.SetTemperature.Celsius(), ModeMarkers))
	}
	if c := rec.Conditions; c != nil && !c.SetTemperature.Empty() {
		figs = append(figs, single("Temperature", "Temperature Program", "measurement points", axisTempC, c.Runs, c.SetTemperature.Celsius(), ModeMarkers))
	}
	return figs
}

func figureAxis(data *reaction.ReactionData, cond *reaction.ReactionConditions) ([]float64, string) {
	switch {
	case !data.TimeOnStream.Empty():
		return data.TimeOnStream.Hours(), axisTimeHours
	case len(data.Runs) > 0:
		return append([]float64(nil), data.Runs...), axisSteps
	default:
		n := cond.SetTemperature.Len()
		x := make([]float64, n)
		for i := range x {
			x[i] = float64(i + 1)
		}
		return x, axisSteps
	}
}

func single(label, title, xAxis, yAxis string, x, y []float64, mode string) reaction.Figure {
	return reaction.Figure{
		Label:  label,
		Title:  title,
		XAxis:  xAxis,
		YAxis:  yAxis,
		Traces: []reaction.Trace{trace("", x, y, mode)},
	}
}

func trace(name string, x, y []float64, mode string) reaction.Trace {
	if x == nil {
		x = []float64{}
	}
	if y == nil {
		y = []float64{}
	}
	return reaction.Trace{Name: name, X: x, Y: y, Mode: mode}
}

func valuesOf(s *reaction.Series) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s.Values...)
}

func hasSelectivity(products []*reaction.Species) bool {
	for _, p := range products {
		if !p.Selectivity.Empty() {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
