package reaction

import (
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
)

// Columns carrying sample identity.  They have a single token and are read by
// name rather than classified.
const (
	ColumnFHIID    = "FHI-ID"
	ColumnSampleID = "sample_id"
	ColumnCatalyst = "catalyst"
)

// ColumnObserver is notified once per column.  accepted is false for columns
// that were skipped.
type ColumnObserver interface {
	ObserveColumn(kind ColumnKind, accepted bool)
}

type buildOptions struct {
	log      logging.Logger
	observer ColumnObserver
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l logging.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver registers a per-column observer.
func WithObserver(obs ColumnObserver) BuildOption {
	return func(o *buildOptions) { o.observer = obs }
}

type columnHandler func(b *builder, h Header, col Column)

var handlers = map[ColumnKind]columnHandler{
	KindStep:                (*builder).onStep,
	KindInletFraction:       (*builder).onInletFraction,
	KindMass:                (*builder).onMass,
	KindSetTemperature:      (*builder).onSetTemperature,
	KindTemperature:         (*builder).onTemperature,
	KindTimeOnStream:        (*builder).onTimeOnStream,
	KindCarbonBalance:       (*builder).onCarbonBalance,
	KindGHSV:                (*builder).onGHSV,
	KindFlow:                (*builder).onFlow,
	KindSetPressure:         (*builder).onSetPressure,
	KindPressure:            (*builder).onPressure,
	KindRate:                (*builder).onRate,
	KindConversionProduct:   (*builder).onConversionProduct,
	KindConversionReactant:  (*builder).onConversionReactant,
	KindOutletConcentration: (*builder).onOutletConcentration,
	KindSelectivity:         (*builder).onSelectivity,
}

type builder struct {
	table RawTable
	log   logging.Logger

	conditions *ReactionConditions
	data       *ReactionData
	filling    *ReactorFilling

	reagents   *speciesSet
	reactants  *speciesSet
	products   *speciesSet
	rates      []*Rate
	inletNames map[string]struct{}

	runs    int
	sawStep bool
}

// Build scans table once and reconstructs the reaction it describes.  Data
// problems are logged and the affected column is skipped or coerced; a table
// without columns, such as a header-only file, yields an empty record.
func Build(table RawTable, opts ...BuildOption) (*ReactionRecord, error) {
	o := buildOptions{log: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(table.Columns) == 0 {
		o.log.Warn("data file has no data columns; record is empty")
	}

	b := &builder{
		table:      table,
		log:        o.log,
		conditions: &ReactionConditions{},
		data:       &ReactionData{},
		filling:    &ReactorFilling{},
		reagents:   newSpeciesSet(RoleReagent),
		reactants:  newSpeciesSet(RoleReactant),
		products:   newSpeciesSet(RoleProduct),
		inletNames: make(map[string]struct{}),
	}

	for _, col := range table.Columns {
		h := Classify(col.Name)
		if col.Len() < 1 || !h.Usable() {
			observe(o.observer, KindUnknown, false)
			continue
		}
		if col.Len() > b.runs {
			b.runs = col.Len()
		}
		handle, ok := handlers[h.Kind]
		if !ok {
			b.log.Debug("column not recognized, skipped", logging.String("column", col.Name))
			observe(o.observer, KindUnknown, false)
			continue
		}
		handle(b, h, col)
		observe(o.observer, h.Kind, true)
	}

	return b.finish(), nil
}

func observe(obs ColumnObserver, kind ColumnKind, accepted bool) {
	if obs != nil {
		obs.ObserveColumn(kind, accepted)
	}
}

// floats returns the coerced values of col, warning about non-numeric cells.
func (b *builder) floats(col Column) []float64 {
	vals, bad := col.Floats()
	if bad > 0 {
		b.log.Warn("non-numeric cells coerced to zero",
			logging.String("column", col.Name), logging.Int("cells", bad))
	}
	return vals
}

func (b *builder) series(col Column, unit string) *Series {
	return NewSeries(b.floats(col), unit)
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

func (b *builder) onStep(_ Header, col Column) {
	runs := b.floats(col)
	b.conditions.Runs = runs
	b.data.Runs = append([]float64(nil), runs...)
	b.sawStep = true
}

func (b *builder) onInletFraction(h Header, col Column) {
	name := h.Species()
	unit := ""
	if len(h.Tokens) >= 3 && h.Tokens[2] == PercentMarker {
		unit = UnitPercent
	}
	sp, _ := b.reagents.upsert(name)
	sp.GasConcentrationIn = b.series(col, unit)
	b.inletNames[name] = struct{}{}
}

func (b *builder) onMass(h Header, col Column) {
	unit, ok := MassUnit(h.Unit())
	if !ok {
		b.log.Warn("catalyst mass column has no recognizable unit", logging.String("column", col.Name))
		return
	}
	vals := b.floats(col)
	b.filling.CatalystMass = &Scalar{Value: vals[0], Unit: unit}
}

func temperatureSeries(vals []float64, h Header) *Series {
	if TemperatureUnit(h.Species()) == UnitKelvin {
		return NewSeries(vals, UnitKelvin)
	}
	return KelvinFromCelsius(vals)
}

func (b *builder) onSetTemperature(h Header, col Column) {
	b.conditions.SetTemperature = temperatureSeries(b.floats(col), h)
}

func (b *builder) onTemperature(h Header, col Column) {
	b.data.Temperature = temperatureSeries(b.floats(col), h)
}

func (b *builder) onTimeOnStream(_ Header, col Column) {
	tos := b.series(col, UnitHour)
	b.data.TimeOnStream = tos
	b.conditions.TimeOnStream = tos.Clone()
}

func (b *builder) onCarbonBalance(_ Header, col Column) {
	b.data.CBalance = b.series(col, "")
}

func (b *builder) onGHSV(_ Header, col Column) {
	b.conditions.GasHourlySpaceVelocity = b.series(col, UnitPerHour)
}

func (b *builder) onFlow(_ Header, col Column) {
	b.conditions.SetTotalFlowRate = b.series(col, UnitMlPerMin)
}

func (b *builder) onSetPressure(_ Header, col Column) {
	b.conditions.SetPressure = b.series(col, UnitBar)
}

func (b *builder) onPressure(_ Header, col Column) {
	b.data.Pressure = b.series(col, UnitBar)
}

func (b *builder) onRate(h Header, col Column) {
	b.rates = append(b.rates, &Rate{Name: h.Species(), ReactionRate: b.series(col, UnitRate)})
}

func (b *builder) onConversionProduct(h Header, col Column) {
	sp, _ := b.reactants.upsert(h.Species())
	vals := b.floats(col)
	sp.ConversionProductBased = NewSeries(vals, UnitPercent)
	sp.Conversion = NewSeries(append([]float64(nil), vals...), UnitPercent)
	sp.ConversionType = ConversionProductBased
}

func (b *builder) onConversionReactant(h Header, col Column) {
	name := h.Species()
	vals := b.floats(col)
	sp, created := b.reactants.upsert(name)
	sp.ConversionReactantBased = NewSeries(vals, UnitPercent)
	if created {
		sp.Conversion = NewSeries(append([]float64(nil), vals...), UnitPercent)
		sp.ConversionType = ConversionReactantBased
	}
	if sp.GasConcentrationIn.Empty() {
		if in, ok := b.inletPercent(name, col.Name); ok {
			sp.GasConcentrationIn = NewSeries(CoerceAll(in), UnitPercent)
		}
	}
}

func (b *builder) onOutletConcentration(h Header, col Column) {
	name := h.Species()
	out := b.floats(col)

	if _, isReagent := b.inletNames[name]; !isReagent {
		p, _ := b.products.upsert(name)
		p.GasConcentrationOut = NewSeries(out, UnitPercent)
		return
	}

	sp, _ := b.reactants.upsert(name)
	sp.GasConcentrationOut = NewSeries(out, UnitPercent)
	if sp.ConversionType == "" {
		sp.ConversionType = ConversionUnknown
	}
	in, ok := b.inletPercent(name, col.Name)
	if !ok {
		return
	}
	rawOut := col.Raw()
	n := len(in)
	if len(rawOut) < n {
		n = len(rawOut)
	}
	conv := make([]float64, n)
	for i := 0; i < n; i++ {
		conv[i] = Coerce((1 - rawOut[i]/in[i]) * 100)
	}
	sp.Conversion = NewSeries(conv, UnitPercent)
	sp.GasConcentrationIn = NewSeries(CoerceAll(in), UnitPercent)
}

func (b *builder) onSelectivity(h Header, col Column) {
	p, _ := b.products.upsert(h.Species())
	p.Selectivity = b.series(col, UnitPercent)
}

// inletPercent finds the inlet fraction paired with a species, in percent and
// not yet coerced.  `x <name> (%)` is preferred; `x <name>` is taken as a
// fraction and scaled by 100.  A warning is logged when neither exists.
func (b *builder) inletPercent(name, from string) ([]float64, bool) {
	if col, ok := b.table.Column("x " + name + " " + PercentMarker); ok {
		return col.Raw(), true
	}
	if col, ok := b.table.Column("x " + name); ok {
		raw := col.Raw()
		for i := range raw {
			raw[i] *= 100
		}
		return raw, true
	}
	b.log.Warn("no inlet fraction column for species; continuing without inlet data",
		logging.String("column", from), logging.String("species", name))
	return nil, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Finalization
// ─────────────────────────────────────────────────────────────────────────────

func (b *builder) finish() *ReactionRecord {
	rec := &ReactionRecord{
		Conditions: b.conditions,
		Filling:    b.filling,
	}

	if s := b.sampleFromTable(); !s.IsZero() {
		rec.Samples = []SampleRef{s}
	}

	b.conditions.Reagents = b.reagents.list()

	if flow := b.conditions.SetTotalFlowRate; flow != nil {
		if g, ok := b.filling.CatalystMass.Grams(); ok {
			whsv := make([]float64, len(flow.Values))
			for i, v := range flow.Values {
				whsv[i] = Coerce(v * 60 / g)
			}
			b.conditions.WeightHourlySpaceVelocity = NewSeries(whsv, UnitWHSV)
		}
	}

	if !b.sawStep {
		b.data.Runs = Runs(b.runs)
	}
	b.data.Products = b.products.list()
	b.data.Reactants = b.reactants.list()
	b.data.Rates = b.rates

	rec.Results = []*ReactionData{b.data}
	return rec
}

func (b *builder) sampleFromTable() SampleRef {
	var s SampleRef
	if col, ok := b.table.Column(ColumnFHIID); ok {
		s.LabID = col.First()
	} else if col, ok := b.table.Column(ColumnSampleID); ok {
		s.LabID = col.First()
	}
	if col, ok := b.table.Column(ColumnCatalyst); ok {
		s.Name = col.First()
	}
	return s
}
