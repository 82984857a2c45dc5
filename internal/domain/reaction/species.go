package reaction

// Role tags what a Species contributes to a reaction.
type Role string

const (
	RoleReagent  Role = "reagent"
	RoleReactant Role = "reactant"
	RoleProduct  Role = "product"
)

// ConversionType classifies how a reactant conversion was measured.
type ConversionType string

const (
	ConversionProductBased  ConversionType = "product-based conversion"
	ConversionReactantBased ConversionType = "reactant-based conversion"
	ConversionUnknown       ConversionType = "unknown"
)

// PureSubstance is the resolved identity of a chemical species.
type PureSubstance struct {
	Name             string  `json:"name,omitempty"`
	IUPACName        string  `json:"iupac_name,omitempty"`
	MolecularFormula string  `json:"molecular_formula,omitempty"`
	MolecularMass    float64 `json:"molecular_mass,omitempty"`
	InChI            string  `json:"inchi,omitempty"`
	InChIKey         string  `json:"inchi_key,omitempty"`
	CASNumber        string  `json:"cas_number,omitempty"`
	SMILES           string  `json:"smiles,omitempty"`
	PubChemCID       int64   `json:"pub_chem_cid,omitempty"`
}

// Clone returns a copy of p.
func (p *PureSubstance) Clone() *PureSubstance {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Species is a reagent, reactant or product.  Which optional fields are
// populated depends on Role.
type Species struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
	// SourceName is the species token exactly as it appeared in the column
	// header, before alias normalization.
	SourceName string `json:"source_name,omitempty"`

	GasConcentrationIn  *Series `json:"gas_concentration_in,omitempty"`
	GasConcentrationOut *Series `json:"gas_concentration_out,omitempty"`
	FlowRate            *Series `json:"flow_rate,omitempty"`

	Conversion              *Series        `json:"conversion,omitempty"`
	ConversionType          ConversionType `json:"conversion_type,omitempty"`
	ConversionProductBased  *Series        `json:"conversion_product_based,omitempty"`
	ConversionReactantBased *Series        `json:"conversion_reactant_based,omitempty"`

	Selectivity *Series `json:"selectivity,omitempty"`
	Yield       *Series `json:"product_yield,omitempty"`

	PureComponent *PureSubstance `json:"pure_component,omitempty"`
}

// NewSpecies returns a species with the given role and name.
func NewSpecies(role Role, name string) *Species {
	return &Species{Role: role, Name: name, SourceName: name}
}

// IUPACName returns the resolved IUPAC name, or "" when unresolved.
func (s *Species) IUPACName() string {
	if s == nil || s.PureComponent == nil {
		return ""
	}
	return s.PureComponent.IUPACName
}

// DisplayName returns the IUPAC name when resolved, else Name.
func (s *Species) DisplayName() string {
	if n := s.IUPACName(); n != "" {
		return n
	}
	return s.Name
}

// Rate is a named kinetic quantity associated with a species by name.
type Rate struct {
	Name              string  `json:"name"`
	ReactionRate      *Series `json:"reaction_rate,omitempty"`
	SpecificRate      *Series `json:"specific_mass_rate,omitempty"`
	TurnoverFrequency *Series `json:"turn_over_frequency,omitempty"`
}

// CloneRates deep-copies rates, series included.  A nil or empty slice
// yields nil.
func CloneRates(rates []*Rate) []*Rate {
	if len(rates) == 0 {
		return nil
	}
	out := make([]*Rate, 0, len(rates))
	for _, r := range rates {
		if r == nil {
			continue
		}
		out = append(out, &Rate{
			Name:              r.Name,
			ReactionRate:      r.ReactionRate.Clone(),
			SpecificRate:      r.SpecificRate.Clone(),
			TurnoverFrequency: r.TurnoverFrequency.Clone(),
		})
	}
	return out
}

// speciesSet is a name-keyed accumulator that remembers first-insertion order.
type speciesSet struct {
	role  Role
	byKey map[string]*Species
	order []string
}

func newSpeciesSet(role Role) *speciesSet {
	return &speciesSet{role: role, byKey: make(map[string]*Species)}
}

func (s *speciesSet) get(name string) (*Species, bool) {
	sp, ok := s.byKey[name]
	return sp, ok
}

// upsert returns the existing species named name or inserts a new one.
func (s *speciesSet) upsert(name string) (sp *Species, created bool) {
	if sp, ok := s.byKey[name]; ok {
		return sp, false
	}
	sp = NewSpecies(s.role, name)
	s.byKey[name] = sp
	s.order = append(s.order, name)
	return sp, true
}

func (s *speciesSet) list() []*Species {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]*Species, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

func (s *speciesSet) has(name string) bool {
	_, ok := s.byKey[name]
	return ok
}
