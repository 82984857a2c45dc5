package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Container layout
// ─────────────────────────────────────────────────────────────────────────────

const (
	groupSortedData = "Sorted Data"
	groupHeader     = "Header"

	datasetPretreatment = "H2 Reduction"
	datasetReaction     = "NH3 Decomposition"
	datasetSampleHeader = "Header/Header"

	fieldCatalystMass   = "Catalyst Mass [mg]"
	fieldTemporalRes    = "Temporal resolution [Hz]"
	fieldBulkVolume     = "Bulk volume [mln]"
	fieldInnerDiameter  = "Inner diameter of reactor (D) [mm]"
	fieldDiluent        = "Diluent material"
	fieldDiluentHigh    = "Diluent Sieve fraction high [um]"
	fieldDiluentLow     = "Diluent Sieve fraction low [um]"
	fieldSieveHigh      = "Sieve fraction high [um]"
	fieldSieveLow       = "Sieve fraction low [um]"
	fieldParticleSize   = "Particle size (Dp) [mm]"
	fieldUser           = "User"
	fieldSampleID       = "SampleID"
	fieldCatalystTemp   = "Catalyst Temperature [C°]"
	fieldRelativeTime   = "Relative Time [Seconds]"
	fieldDate           = "Date"
	fieldTotalFlow      = "Target Total Gas (After Reactor) [mln|min]"
	fieldH2Flow         = "Massflow3 (H2) Target Calculated Realtime Value [mln|min]"
	fieldArFlow         = "Massflow5 (Ar) Target Calculated Realtime Value [mln|min]"
	fieldNH3Conversion  = "NH3 Conversion [%]"
	fieldSpaceTimeYield = "Space Time Yield [mmolH2 gcat-1 min-1]"

	targetFlowSuffix = "Target Calculated Realtime Value [mln|min]"
)

// Fixed metadata of the ammonia decomposition setup.
const (
	NH3SetupName       = "Haber"
	NH3ReactorType     = "plug flow reactor"
	NH3ReactionName    = "ammonia decomposition"
	NH3ReactionClass   = "cracking"
	NH3SampleName      = "catalyst"
	NH3Reactant        = "ammonia"
	NH3RateName        = "molecular hydrogen"
	NH3InletPercent    = 100.0
	NH3DefaultPressure = 1.0
)

// NH3Products are the products listed in the results of every ammonia
// decomposition measurement.
var NH3Products = []string{"molecular nitrogen", "molecular hydrogen"}

// Downsample reduces long result arrays: when a series is longer than
// Threshold only values[Offset::Stride] are kept.
type Downsample struct {
	Threshold int
	Offset    int
	Stride    int
}

// DefaultDownsample keeps values[50::100] of series longer than 50.
var DefaultDownsample = Downsample{Threshold: 50, Offset: 50, Stride: 100}

func (d Downsample) apply(s *reaction.Series) *reaction.Series {
	if s.Len() <= d.Threshold {
		return s.Clone()
	}
	return s.Stride(d.Offset, d.Stride)
}

// ─────────────────────────────────────────────────────────────────────────────
// Record
// ─────────────────────────────────────────────────────────────────────────────

// BuildNH3 reads an ammonia decomposition container.  The measurement method
// is the last group under "Sorted Data".
func BuildNH3(src tabular.H5Source, log logging.Logger) (*reaction.ReactionRecord, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	methods, err := src.Keys(groupSortedData)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, errors.New(errors.ErrCodeHDF5Layout, "no measurement method under "+groupSortedData)
	}
	method := methods[len(methods)-1]

	header, err := src.Dataset(groupHeader + "/" + method + "/" + groupHeader)
	if err != nil {
		return nil, err
	}
	pre, err := src.Dataset(groupSortedData + "/" + method + "/" + datasetPretreatment)
	if err != nil {
		return nil, err
	}
	analysed, err := src.Dataset(groupSortedData + "/" + method + "/" + datasetReaction)
	if err != nil {
		return nil, err
	}

	rec := &reaction.ReactionRecord{
		Method:       method,
		Experimenter: firstText(header, fieldUser),
		Datetime:     firstText(pre, fieldDate),
		Setup:        nh3Setup(header),
		Filling:      nh3Filling(header),
	}

	if rec.Pretreatment, err = nh3Pretreatment(pre); err != nil {
		return nil, err
	}
	cond, data, err := nh3Reaction(analysed, log)
	if err != nil {
		return nil, err
	}
	if hz, ok := firstFloat(header, fieldTemporalRes); ok {
		cond.SamplingFrequency = &reaction.Scalar{Value: hz, Unit: reaction.UnitHertz}
	}
	rec.Conditions = cond
	rec.Results = []*reaction.ReactionData{data}

	sample := reaction.SampleRef{Name: NH3SampleName}
	if ids, err := src.Dataset(datasetSampleHeader); err == nil {
		sample.LabID = firstValue(ids, fieldSampleID)
	} else {
		log.Warn("sample header not found; lab id left empty", logging.Err(err))
	}
	rec.Samples = []reaction.SampleRef{sample}
	return rec, nil
}

func nh3Setup(h *tabular.Dataset) *reaction.ReactorSetup {
	setup := &reaction.ReactorSetup{Name: NH3SetupName, ReactorType: NH3ReactorType}
	if v, ok := firstFloat(h, fieldBulkVolume); ok {
		setup.Volume = &reaction.Scalar{Value: v, Unit: reaction.UnitMilliliter}
	}
	if d, ok := firstFloat(h, fieldInnerDiameter); ok {
		setup.Diameter = &reaction.Scalar{Value: d, Unit: reaction.UnitMillimeter}
		setup.CrossSectionArea = &reaction.Scalar{Value: (d / 2) * (d / 2) * math.Pi, Unit: reaction.UnitSquareMM}
	}
	return setup
}

func nh3Filling(h *tabular.Dataset) *reaction.ReactorFilling {
	f := &reaction.ReactorFilling{Diluent: firstText(h, fieldDiluent)}
	scalar := func(field, unit string) *reaction.Scalar {
		if v, ok := firstFloat(h, field); ok {
			return &reaction.Scalar{Value: v, Unit: unit}
		}
		return nil
	}
	f.CatalystMass = scalar(fieldCatalystMass, reaction.UnitMilligram)
	f.DiluentSieveUpperLimit = scalar(fieldDiluentHigh, reaction.UnitMicrometer)
	f.DiluentSieveLowerLimit = scalar(fieldDiluentLow, reaction.UnitMicrometer)
	f.CatalystSieveUpperLimit = scalar(fieldSieveHigh, reaction.UnitMicrometer)
	f.CatalystSieveLowerLimit = scalar(fieldSieveLow, reaction.UnitMicrometer)
	f.ParticleSize = scalar(fieldParticleSize, reaction.UnitMillimeter)
	return f
}

func nh3Pretreatment(pre *tabular.Dataset) (*reaction.ReactionConditions, error) {
	temp, ok := pre.Float(fieldCatalystTemp)
	if !ok {
		return nil, missingField(datasetPretreatment, fieldCatalystTemp)
	}
	c := &reaction.ReactionConditions{
		SetTemperature: reaction.KelvinFromCelsius(reaction.CoerceAll(append([]float64(nil), temp...))),
		Runs:           reaction.Runs(len(temp)),
	}
	for _, g := range []struct{ field, name string }{{fieldH2Flow, "hydrogen"}, {fieldArFlow, "argon"}} {
		if flow, ok := pre.Float(g.field); ok {
			sp := reaction.NewSpecies(reaction.RoleReagent, g.name)
			sp.FlowRate = reaction.NewSeries(reaction.CoerceAll(append([]float64(nil), flow...)), reaction.UnitMlPerMin)
			c.Reagents = append(c.Reagents, sp)
		}
	}
	if total, ok := pre.Float(fieldTotalFlow); ok {
		c.SetTotalFlowRate = reaction.NewSeries(reaction.CoerceAll(append([]float64(nil), total...)), reaction.UnitMlPerMin)
	}
	if tos, ok := relativeTime(pre); ok {
		c.TimeOnStream = tos
	}
	return c, nil
}

func nh3Reaction(ds *tabular.Dataset, log logging.Logger) (*reaction.ReactionConditions, *reaction.ReactionData, error) {
	conv, ok := ds.Float(fieldNH3Conversion)
	if !ok {
		return nil, nil, missingField(datasetReaction, fieldNH3Conversion)
	}
	temp, ok := ds.Float(fieldCatalystTemp)
	if !ok {
		return nil, nil, missingField(datasetReaction, fieldCatalystTemp)
	}

	cond := &reaction.ReactionConditions{Runs: reaction.Runs(len(conv))}
	for _, field := range ds.Fields {
		if !strings.HasSuffix(field, targetFlowSuffix) {
			continue
		}
		flow, ok := ds.Float(field)
		if !ok {
			continue
		}
		name := gasName(field)
		if name == "" {
			log.Warn("flow column without gas name skipped", logging.String("column", field))
			continue
		}
		sp := reaction.NewSpecies(reaction.RoleReagent, name)
		sp.FlowRate = reaction.NewSeries(reaction.CoerceAll(append([]float64(nil), flow...)), reaction.UnitMlPerMin)
		cond.Reagents = append(cond.Reagents, sp)
	}
	celsius := reaction.CoerceAll(append([]float64(nil), temp...))
	cond.SetTemperature = reaction.KelvinFromCelsius(celsius)

	data := &reaction.ReactionData{
		Runs:        reaction.Runs(len(conv)),
		Temperature: reaction.KelvinFromCelsius(celsius),
	}
	ammonia := reaction.NewSpecies(reaction.RoleReactant, NH3Reactant)
	ammonia.Conversion = reaction.NewSeries(reaction.CoerceAll(append([]float64(nil), conv...)), reaction.UnitPercent)
	data.Reactants = []*reaction.Species{ammonia}

	if sty, ok := ds.Float(fieldSpaceTimeYield); ok {
		data.Rates = []*reaction.Rate{{
			Name:         NH3RateName,
			ReactionRate: reaction.NewSeries(reaction.CoerceAll(append([]float64(nil), sty...)), reaction.UnitRatePerMinute),
		}}
	} else {
		log.Warn("space time yield column missing; no rate recorded", logging.String("column", fieldSpaceTimeYield))
	}
	if tos, ok := relativeTime(ds); ok {
		data.TimeOnStream = tos
	}
	return cond, data, nil
}

// gasName extracts the gas between the first pair of parentheses.  Any name
// containing NH3 is reported as NH3.
func gasName(field string) string {
	open := strings.Index(field, "(")
	if open < 0 {
		return ""
	}
	rest := field[open+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return ""
	}
	name := strings.TrimSpace(rest[:end])
	if strings.Contains(name, "NH3") {
		return "NH3"
	}
	return name
}

// relativeTime returns the relative time column shifted to start at zero, in
// seconds.  The column may be stored as text or numbers.
func relativeTime(ds *tabular.Dataset) (*reaction.Series, bool) {
	var raw []float64
	if v, ok := ds.Float(fieldRelativeTime); ok {
		raw = v
	} else if txt, ok := ds.Text(fieldRelativeTime); ok {
		raw = make([]float64, len(txt))
		for i, s := range txt {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				f = math.NaN()
			}
			raw[i] = f
		}
	} else {
		return nil, false
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = reaction.Coerce(v - raw[0])
	}
	return reaction.NewSeries(out, reaction.UnitSecond), true
}

func missingField(dataset, field string) error {
	return errors.New(errors.ErrCodeMissingColumn, "expected field missing").
		WithDetail(dataset + ": " + field)
}

func firstFloat(ds *tabular.Dataset, field string) (float64, bool) {
	v, ok := ds.Float(field)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func firstText(ds *tabular.Dataset, field string) string {
	v, ok := ds.Text(field)
	if !ok || len(v) == 0 {
		return ""
	}
	return v[0]
}

// firstValue returns the first cell as text whether the field is text or
// numeric.
func firstValue(ds *tabular.Dataset, field string) string {
	if s := firstText(ds, field); s != "" {
		return s
	}
	if v, ok := firstFloat(ds, field); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Results
// ─────────────────────────────────────────────────────────────────────────────

// ProjectNH3 builds the results tree of an ammonia decomposition record.
// Long conversion and temperature arrays are downsampled.  The reaction name
// and class default to ammonia decomposition and cracking.
func ProjectNH3(rec *reaction.ReactionRecord, ds Downsample, log logging.Logger) *reaction.ResultsTree {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if rec.ReactionName == "" {
		rec.ReactionName = NH3ReactionName
		rec.ReactionClass = NH3ReactionClass
	}

	tree := &reaction.ResultsTree{}
	r := tree.Reaction()
	r.Name = rec.ReactionName
	r.Type = rec.ReactionClass

	data := rec.PrimaryResults(log)
	if data == nil {
		return tree
	}

	for _, sp := range data.Reactants {
		conv := ds.apply(sp.Conversion)
		in := make([]float64, conv.Len())
		for i := range in {
			in[i] = NH3InletPercent
		}
		r.Reactants = append(r.Reactants, reaction.ReactantResult{
			Name:               sp.Name,
			Conversion:         conv,
			GasConcentrationIn: reaction.NewSeries(in, reaction.UnitPercent),
		})
	}
	for _, name := range NH3Products {
		r.Products = append(r.Products, reaction.ProductResult{Name: name})
	}
	r.Rates = reaction.CloneRates(data.Rates)

	if !data.Temperature.Empty() {
		tree.Conditions().Temperature = ds.apply(data.Temperature)
	}
	switch {
	case !data.Pressure.Empty():
		tree.Conditions().Pressure = data.Pressure.Clone()
	case rec.Conditions == nil || rec.Conditions.SetPressure.Empty():
		tree.Conditions().Pressure = reaction.NewSeries([]float64{NH3DefaultPressure}, reaction.UnitBar)
	}
	return tree
}

//Personal.AI order the ending
