package reaction

import (
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Results tree
// ─────────────────────────────────────────────────────────────────────────────

// ResultsTree is the searchable summary of a measurement.  Intermediate nodes
// are created on demand by the accessor methods.
type ResultsTree struct {
	Properties *ResultsProperties `json:"properties,omitempty"`
	Material   *Material          `json:"material,omitempty"`
}

// ResultsProperties groups property families; only catalysis is populated.
type ResultsProperties struct {
	Catalytic *CatalyticProperties `json:"catalytic,omitempty"`
}

// CatalyticProperties holds the reaction summary and catalyst summary.
type CatalyticProperties struct {
	Reaction *ReactionSummary `json:"reaction,omitempty"`
	Catalyst *CatalystSummary `json:"catalyst,omitempty"`
}

// ReactionSummary is the reaction node of the results tree.
type ReactionSummary struct {
	Name       string             `json:"name,omitempty"`
	Type       string             `json:"type,omitempty"`
	Conditions *ConditionsSummary `json:"reaction_conditions,omitempty"`
	Reactants  []ReactantResult   `json:"reactants,omitempty"`
	Products   []ProductResult    `json:"products,omitempty"`
	Rates      []*Rate            `json:"rates,omitempty"`
}

// ConditionsSummary is the reaction-conditions node.
type ConditionsSummary struct {
	Temperature               *Series `json:"temperature,omitempty"`
	Pressure                  *Series `json:"pressure,omitempty"`
	WeightHourlySpaceVelocity *Series `json:"weight_hourly_space_velocity,omitempty"`
	GasHourlySpaceVelocity    *Series `json:"gas_hourly_space_velocity,omitempty"`
}

// ReactantResult is a reactant as shown in search results.
type ReactantResult struct {
	Name                string  `json:"name"`
	Conversion          *Series `json:"conversion,omitempty"`
	GasConcentrationIn  *Series `json:"gas_concentration_in,omitempty"`
	GasConcentrationOut *Series `json:"gas_concentration_out,omitempty"`
}

// ProductResult is a product as shown in search results.
type ProductResult struct {
	Name                string  `json:"name"`
	Selectivity         *Series `json:"selectivity,omitempty"`
	GasConcentrationOut *Series `json:"gas_concentration_out,omitempty"`
}

// CatalystSummary is the catalyst node.
type CatalystSummary struct {
	CatalystName            string   `json:"catalyst_name,omitempty"`
	CatalystType            []string `json:"catalyst_type,omitempty"`
	PreparationMethod       string   `json:"preparation_method,omitempty"`
	SurfaceArea             *Scalar  `json:"surface_area,omitempty"`
	CharacterizationMethods []string `json:"characterization_methods,omitempty"`
}

// Material is the material node.
type Material struct {
	MaterialName         string            `json:"material_name,omitempty"`
	Elements             []string          `json:"elements,omitempty"`
	ElementalComposition []ElementFraction `json:"elemental_composition,omitempty"`
}

// Catalytic returns the catalytic properties node, creating it if needed.
func (t *ResultsTree) Catalytic() *CatalyticProperties {
	if t.Properties == nil {
		t.Properties = &ResultsProperties{}
	}
	if t.Properties.Catalytic == nil {
		t.Properties.Catalytic = &CatalyticProperties{}
	}
	return t.Properties.Catalytic
}

// Reaction returns the reaction node, creating it if needed.
func (t *ResultsTree) Reaction() *ReactionSummary {
	c := t.Catalytic()
	if c.Reaction == nil {
		c.Reaction = &ReactionSummary{}
	}
	return c.Reaction
}

// Conditions returns the reaction-conditions node, creating it if needed.
func (t *ResultsTree) Conditions() *ConditionsSummary {
	r := t.Reaction()
	if r.Conditions == nil {
		r.Conditions = &ConditionsSummary{}
	}
	return r.Conditions
}

// Catalyst returns the catalyst node, creating it if needed.
func (t *ResultsTree) Catalyst() *CatalystSummary {
	c := t.Catalytic()
	if c.Catalyst == nil {
		c.Catalyst = &CatalystSummary{}
	}
	return c.Catalyst
}

// MaterialNode returns the material node, creating it if needed.
func (t *ResultsTree) MaterialNode() *Material {
	if t.Material == nil {
		t.Material = &Material{}
	}
	return t.Material
}

// ─────────────────────────────────────────────────────────────────────────────
// Projection
// ─────────────────────────────────────────────────────────────────────────────

// Project mirrors a built record into a fresh results tree.
//
// Reactants are kept only when they match an inlet reagent and are not inert;
// they take the reagent's IUPAC name when it resolved.  Products take their own
// IUPAC name.  Measured temperature and pressure win over set points.
func Project(rec *ReactionRecord, log logging.Logger) *ResultsTree {
	if log == nil {
		log = logging.NewNopLogger()
	}
	tree := &ResultsTree{}
	data := rec.PrimaryResults(log)
	if data == nil {
		return tree
	}
	cond := rec.Conditions
	if cond == nil {
		cond = &ReactionConditions{}
	}

	reaction := tree.Reaction()
	reaction.Reactants = projectReactants(data.Reactants, cond.Reagents)
	reaction.Products = projectProducts(data.Products)
	reaction.Rates = CloneRates(data.Rates)

	switch {
	case !data.Temperature.Empty():
		tree.Conditions().Temperature = data.Temperature.Clone()
	case !cond.SetTemperature.Empty():
		tree.Conditions().Temperature = cond.SetTemperature.Clone()
	}
	switch {
	case !data.Pressure.Empty():
		tree.Conditions().Pressure = data.Pressure.Clone()
	case !cond.SetPressure.Empty():
		tree.Conditions().Pressure = cond.SetPressure.Clone()
	}
	if !cond.WeightHourlySpaceVelocity.Empty() {
		tree.Conditions().WeightHourlySpaceVelocity = cond.WeightHourlySpaceVelocity.Clone()
	}
	if !cond.GasHourlySpaceVelocity.Empty() {
		tree.Conditions().GasHourlySpaceVelocity = cond.GasHourlySpaceVelocity.Clone()
	}

	if rec.ReactionName != "" {
		reaction.Name = rec.ReactionName
		reaction.Type = rec.ReactionClass
	}
	return tree
}

func projectReactants(reactants, reagents []*Species) []ReactantResult {
	var out []ReactantResult
	for _, r := range reactants {
		if IsInert(r.Name) {
			continue
		}
		for _, g := range reagents {
			if r.Name != g.Name && r.Name != g.SourceName {
				continue
			}
			name := r.Name
			if iupac := g.IUPACName(); iupac != "" {
				name = iupac
			}
			out = append(out, ReactantResult{
				Name:                name,
				Conversion:          r.Conversion.Clone(),
				GasConcentrationIn:  r.GasConcentrationIn.Clone(),
				GasConcentrationOut: r.GasConcentrationOut.Clone(),
			})
		}
	}
	return out
}

func projectProducts(products []*Species) []ProductResult {
	if len(products) == 0 {
		return nil
	}
	out := make([]ProductResult, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResult{
			Name:                p.DisplayName(),
			Selectivity:         p.Selectivity.Clone(),
			GasConcentrationOut: p.GasConcentrationOut.Clone(),
		})
	}
	return out
}
