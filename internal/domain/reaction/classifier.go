package reaction

import "strings"

// ColumnKind is the closed set of column prefixes the builder understands.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindStep
	KindInletFraction
	KindMass
	KindSetTemperature
	KindTemperature
	KindTimeOnStream
	KindCarbonBalance
	KindGHSV
	KindFlow
	KindSetPressure
	KindPressure
	KindRate
	KindConversionProduct
	KindConversionReactant
	KindOutletConcentration
	KindSelectivity
)

var kindNames = [...]string{
	KindUnknown:             "unknown",
	KindStep:                "step",
	KindInletFraction:       "inlet_fraction",
	KindMass:                "mass",
	KindSetTemperature:      "set_temperature",
	KindTemperature:         "temperature",
	KindTimeOnStream:        "time_on_stream",
	KindCarbonBalance:       "carbon_balance",
	KindGHSV:                "ghsv",
	KindFlow:                "flow",
	KindSetPressure:         "set_pressure",
	KindPressure:            "pressure",
	KindRate:                "rate",
	KindConversionProduct:   "conversion_product",
	KindConversionReactant:  "conversion_reactant",
	KindOutletConcentration: "outlet_concentration",
	KindSelectivity:         "selectivity",
}

func (k ColumnKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// PercentMarker is the unit token that enables the percent-based kinds.
const PercentMarker = "(%)"

// prefixKinds maps a header prefix to its kind.
var prefixKinds = map[string]ColumnKind{
	"step":            KindStep,
	"x":               KindInletFraction,
	"mass":            KindMass,
	"set_temperature": KindSetTemperature,
	"temperature":     KindTemperature,
	"TOS":             KindTimeOnStream,
	"C-balance":       KindCarbonBalance,
	"GHSV":            KindGHSV,
	"Vflow":           KindFlow,
	"set_pressure":    KindSetPressure,
	"pressure":        KindPressure,
	"r":               KindRate,
}

// percentKinds only apply when the third token is PercentMarker.
var percentKinds = map[string]ColumnKind{
	"x_p": KindConversionProduct,
	"x_r": KindConversionReactant,
	"y":   KindOutletConcentration,
	"S_p": KindSelectivity,
}

// Header is a parsed column name.
type Header struct {
	Raw    string
	Tokens []string
	Kind   ColumnKind
}

// Prefix returns the first token.
func (h Header) Prefix() string { return h.token(0) }

// Species returns the second token, which names the species or carries the
// unit for single-quantity columns such as `temperature K`.
func (h Header) Species() string { return h.token(1) }

// Unit returns the last token when the header has at least two.
func (h Header) Unit() string {
	if len(h.Tokens) < 2 {
		return ""
	}
	return h.Tokens[len(h.Tokens)-1]
}

func (h Header) token(i int) string {
	if i < len(h.Tokens) {
		return h.Tokens[i]
	}
	return ""
}

// Usable reports whether the header has enough tokens to be classified.
func (h Header) Usable() bool { return len(h.Tokens) >= 2 }

// Classify splits a header on single spaces and resolves its kind.  Headers
// with fewer than two tokens, unknown prefixes, and percent prefixes without
// a literal "(%)" third token are KindUnknown.
func Classify(name string) Header {
	h := Header{Raw: name, Tokens: strings.Split(name, " ")}
	if !h.Usable() {
		return h
	}
	prefix := h.Tokens[0]
	if k, ok := prefixKinds[prefix]; ok {
		h.Kind = k
		return h
	}
	if k, ok := percentKinds[prefix]; ok && len(h.Tokens) >= 3 && h.Tokens[2] == PercentMarker {
		h.Kind = k
	}
	return h
}

// MassUnit infers the unit of a `mass` column from its unit token.  "mg" is
// checked first since "g" is a substring of it.  ok is false when neither
// matches.
func MassUnit(token string) (unit string, ok bool) {
	switch {
	case strings.Contains(token, "mg"):
		return UnitMilligram, true
	case strings.Contains(token, "g"):
		return UnitGram, true
	default:
		return "", false
	}
}

// TemperatureUnit returns Kelvin when the token contains "K", else Celsius.
func TemperatureUnit(token string) string {
	if strings.Contains(token, "K") {
		return UnitKelvin
	}
	return UnitCelsius
}
