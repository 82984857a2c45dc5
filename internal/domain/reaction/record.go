package reaction

import (
	"time"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Conditions and measured data
// ─────────────────────────────────────────────────────────────────────────────

// ReactionConditions holds the set points of a measurement, one value per run.
type ReactionConditions struct {
	Runs                      []float64  `json:"runs,omitempty"`
	SetTemperature            *Series    `json:"set_temperature,omitempty"`
	SetPressure               *Series    `json:"set_pressure,omitempty"`
	SetTotalFlowRate          *Series    `json:"set_total_flow_rate,omitempty"`
	GasHourlySpaceVelocity    *Series    `json:"gas_hourly_space_velocity,omitempty"`
	WeightHourlySpaceVelocity *Series    `json:"weight_hourly_space_velocity,omitempty"`
	TimeOnStream              *Series    `json:"time_on_stream,omitempty"`
	SamplingFrequency         *Scalar    `json:"sampling_frequency,omitempty"`
	Reagents                  []*Species `json:"reagents,omitempty"`
}

// ReactionData holds what was measured during a run sequence.
type ReactionData struct {
	Runs         []float64  `json:"runs,omitempty"`
	Temperature  *Series    `json:"temperature,omitempty"`
	Pressure     *Series    `json:"pressure,omitempty"`
	TimeOnStream *Series    `json:"time_on_stream,omitempty"`
	CBalance     *Series    `json:"c_balance,omitempty"`
	Reactants    []*Species `json:"reactants_conversions,omitempty"`
	Products     []*Species `json:"products,omitempty"`
	Rates        []*Rate    `json:"rates,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Reactor
// ─────────────────────────────────────────────────────────────────────────────

// ReactorFilling describes the catalyst bed.
type ReactorFilling struct {
	CatalystName            string  `json:"catalyst_name,omitempty"`
	CatalystMass            *Scalar `json:"catalyst_mass,omitempty"`
	CatalystDensity         *Scalar `json:"catalyst_density,omitempty"`
	ApparentCatalystVolume  *Scalar `json:"apparent_catalyst_volume,omitempty"`
	CatalystSieveUpperLimit *Scalar `json:"catalyst_sievefraction_upper_limit,omitempty"`
	CatalystSieveLowerLimit *Scalar `json:"catalyst_sievefraction_lower_limit,omitempty"`
	ParticleSize            *Scalar `json:"particle_size,omitempty"`
	Diluent                 string  `json:"diluent,omitempty"`
	DiluentSieveUpperLimit  *Scalar `json:"diluent_sievefraction_upper_limit,omitempty"`
	DiluentSieveLowerLimit  *Scalar `json:"diluent_sievefraction_lower_limit,omitempty"`
}

// Normalize fills the catalyst name from the sample and derives the apparent
// volume from mass and density when both are known.
func (f *ReactorFilling) Normalize(sample *SampleRef) {
	if f == nil {
		return
	}
	if f.CatalystName == "" && sample != nil {
		f.CatalystName = sample.Name
	}
	if f.ApparentCatalystVolume != nil || f.CatalystDensity == nil || f.CatalystDensity.Value == 0 {
		return
	}
	if g, ok := f.CatalystMass.Grams(); ok {
		f.ApparentCatalystVolume = &Scalar{Value: g / f.CatalystDensity.Value, Unit: UnitMilliliter}
	}
}

// ReactorSetup describes the reactor itself.
type ReactorSetup struct {
	Name             string  `json:"name,omitempty"`
	ReactorType      string  `json:"reactor_type,omitempty"`
	BedLength        *Scalar `json:"bed_length,omitempty"`
	CrossSectionArea *Scalar `json:"reactor_cross_section_area,omitempty"`
	Diameter         *Scalar `json:"reactor_diameter,omitempty"`
	Volume           *Scalar `json:"reactor_volume,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Samples
// ─────────────────────────────────────────────────────────────────────────────

// ElementFraction is one row of a sample's elemental composition.
type ElementFraction struct {
	Element      string  `json:"element"`
	AtomFraction float64 `json:"atom_fraction,omitempty"`
	MassFraction float64 `json:"mass_fraction,omitempty"`
}

// CatalystSample is the referenced sample entry, as far as the results tree
// needs it.
type CatalystSample struct {
	EntryID              string            `json:"entry_id,omitempty"`
	Name                 string            `json:"name,omitempty"`
	CatalystType         []string          `json:"catalyst_type,omitempty"`
	PreparationMethod    string            `json:"preparation_method,omitempty"`
	SurfaceArea          *Scalar           `json:"surface_area,omitempty"`
	ElementalComposition []ElementFraction `json:"elemental_composition,omitempty"`
}

// SampleRef links a measurement to the catalyst sample it was run on.
type SampleRef struct {
	LabID     string          `json:"lab_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reference *CatalystSample `json:"reference,omitempty"`
}

// IsZero reports whether no sample information is present.
func (s SampleRef) IsZero() bool {
	return s.LabID == "" && s.Name == "" && s.Reference == nil
}

// MergeSample adds s to samples.  A sample with the same lab id as the first
// existing sample replaces the whole list; otherwise s is appended and a
// warning is logged because only the first sample feeds the results tree.
func MergeSample(samples []SampleRef, s SampleRef, log logging.Logger) []SampleRef {
	if s.IsZero() {
		return samples
	}
	if len(samples) == 0 {
		return []SampleRef{s}
	}
	if samples[0].LabID == s.LabID {
		if s.Reference == nil {
			s.Reference = samples[0].Reference
		}
		return []SampleRef{s}
	}
	log.Warn("measurement already has a sample; the sample from the data file is added but not written to the results",
		logging.String("existing_lab_id", samples[0].LabID),
		logging.String("lab_id", s.LabID))
	return append(samples, s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Figures
// ─────────────────────────────────────────────────────────────────────────────

// Trace is one plotted line or marker set.
type Trace struct {
	Name string    `json:"name,omitempty"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	Mode string    `json:"mode"` // lines, markers or lines+markers
}

// Figure is a JSON-serializable diagnostic plot.
type Figure struct {
	Label  string  `json:"label"`
	Title  string  `json:"title,omitempty"`
	XAxis  string  `json:"x_axis"`
	YAxis  string  `json:"y_axis"`
	Traces []Trace `json:"traces"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregate
// ─────────────────────────────────────────────────────────────────────────────

// ReactionRecord is the normalized result of one ingestion call.
type ReactionRecord struct {
	ID            string              `json:"id,omitempty"`
	DataFile      string              `json:"data_file,omitempty"`
	ReactionName  string              `json:"reaction_name,omitempty"`
	ReactionClass string              `json:"reaction_class,omitempty"`
	Method        string              `json:"method,omitempty"`
	Experimenter  string              `json:"experimenter,omitempty"`
	Datetime      string              `json:"datetime,omitempty"`
	Conditions    *ReactionConditions `json:"reaction_conditions,omitempty"`
	Pretreatment  *ReactionConditions `json:"pretreatment,omitempty"`
	Filling       *ReactorFilling     `json:"reactor_filling,omitempty"`
	Setup         *ReactorSetup       `json:"reactor_setup,omitempty"`
	Results       []*ReactionData     `json:"results,omitempty"`
	Samples       []SampleRef         `json:"samples,omitempty"`
	Figures       []Figure            `json:"figures,omitempty"`
	CreatedAt     time.Time           `json:"created_at,omitempty"`
}

// PrimaryResults returns the first results section, warning when there are
// several.  It returns nil when the record has none.
func (r *ReactionRecord) PrimaryResults(log logging.Logger) *ReactionData {
	if r == nil || len(r.Results) == 0 {
		return nil
	}
	if len(r.Results) > 1 && log != nil {
		log.Warn("several results sections found; only the first is used",
			logging.Int("count", len(r.Results)))
	}
	return r.Results[0]
}

// PrimarySample returns the first sample, or nil.
func (r *ReactionRecord) PrimarySample() *SampleRef {
	if r == nil || len(r.Samples) == 0 {
		return nil
	}
	return &r.Samples[0]
}
