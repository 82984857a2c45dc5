package reaction

// Unit symbols used by Series and Scalar values.
const (
	UnitKelvin        = "K"
	UnitCelsius       = "°C"
	UnitBar           = "bar"
	UnitHour          = "h"
	UnitSecond        = "s"
	UnitMilligram     = "mg"
	UnitGram          = "g"
	UnitMlPerMin      = "mL/min"
	UnitPerHour       = "1/h"
	UnitWHSV          = "mL/(g*h)"
	UnitRate          = "mmol/(g*h)"
	UnitRatePerMinute = "mmol/(g*min)"
	UnitPercent       = "%"
	UnitHertz         = "Hz"
	UnitMillimeter    = "mm"
	UnitSquareMM      = "mm^2"
	UnitMilliliter    = "mL"
	UnitMicrometer    = "um"
	UnitGramPerML     = "g/mL"
)

const celsiusOffset = 273.15

// Series is a per-run sequence of values sharing one unit.
type Series struct {
	Values []float64 `json:"values"`
	Unit   string    `json:"unit,omitempty"`
}

// NewSeries wraps values with a unit.
func NewSeries(values []float64, unit string) *Series {
	return &Series{Values: values, Unit: unit}
}

// Len returns the number of values; nil series have length 0.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Values)
}

// Empty reports whether the series carries no values.
func (s *Series) Empty() bool { return s.Len() == 0 }

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	return &Series{Values: append([]float64(nil), s.Values...), Unit: s.Unit}
}

// Celsius returns the values expressed in °C.  Only temperature series are
// meaningful here; other units are returned unchanged.
func (s *Series) Celsius() []float64 {
	if s == nil {
		return nil
	}
	out := append([]float64(nil), s.Values...)
	if s.Unit == UnitKelvin {
		for i := range out {
			out[i] -= celsiusOffset
		}
	}
	return out
}

// Hours returns time values expressed in hours.
func (s *Series) Hours() []float64 {
	if s == nil {
		return nil
	}
	out := append([]float64(nil), s.Values...)
	if s.Unit == UnitSecond {
		for i := range out {
			out[i] /= 3600
		}
	}
	return out
}

// Stride returns every step-th value starting at offset, mirroring a
// values[offset::step] slice.  A nil series yields nil.
func (s *Series) Stride(offset, step int) *Series {
	if s == nil {
		return nil
	}
	if step < 1 {
		step = 1
	}
	out := &Series{Unit: s.Unit, Values: []float64{}}
	for i := offset; i < len(s.Values); i += step {
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// KelvinFromCelsius converts °C values to a Kelvin series.
func KelvinFromCelsius(values []float64) *Series {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + celsiusOffset
	}
	return NewSeries(out, UnitKelvin)
}

// Scalar is a single value with a unit.
type Scalar struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Grams returns a mass scalar in grams.  ok is false for non-mass units.
func (m *Scalar) Grams() (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch m.Unit {
	case UnitGram:
		return m.Value, true
	case UnitMilligram:
		return m.Value / 1000, true
	default:
		return 0, false
	}
}

// Milligrams returns a mass scalar in milligrams.
func (m *Scalar) Milligrams() (float64, bool) {
	if m != nil && m.Unit == UnitMilligram {
		return m.Value, true
	}
	g, ok := m.Grams()
	return g * 1000, ok
}

// Runs returns the index sequence 0..n-1.
func Runs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
