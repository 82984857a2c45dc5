package reaction

import (
	"context"
	"strings"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
)

// unresolvable species tokens are lumped fractions or placeholders that no
// substance database knows.
var unresolvable = map[string]struct{}{
	"C5-1":    {},
	"C6-1":    {},
	"nC5":     {},
	"nC6":     {},
	"Unknown": {},
	"inert":   {},
	"P>=5C":   {},
}

var aliases = map[string]string{
	"n-Butene": "1-butene",
	"MAN":      "maleic anhydride",
}

var inerts = map[string]struct{}{
	"He":     {},
	"helium": {},
	"Ar":     {},
	"argon":  {},
	"inert":  {},
}

// carbonMonoxide is attached to CO regardless of what the lookup returned.
var carbonMonoxide = PureSubstance{
	IUPACName:        "carbon monoxide",
	MolecularFormula: "CO",
	MolecularMass:    28.01,
	InChI:            "InChI=1S/CO/c1-2",
	InChIKey:         "UGFAIRIUMAVXCW-UHFFFAOYSA-N",
	CASNumber:        "630-08-0",
}

// CanonicalName applies the alias table to a species token.  resolvable is
// false for tokens on the skip list, which are returned unchanged.
func CanonicalName(name string) (canonical string, resolvable bool) {
	if _, skip := unresolvable[name]; skip {
		return name, false
	}
	if a, ok := aliases[name]; ok {
		return a, true
	}
	if strings.Contains(name, "_") {
		return strings.ReplaceAll(name, "_", " "), true
	}
	return name, true
}

// IsInert reports whether name denotes a carrier or inert gas.
func IsInert(name string) bool {
	_, ok := inerts[name]
	return ok
}

// SubstanceResolver looks up the identity of a species by name.  Implementations
// return an error when the name is unknown or the lookup failed.
type SubstanceResolver interface {
	Resolve(ctx context.Context, name string) (*PureSubstance, error)
}

// NormalizeSpecies canonicalizes s.Name and, unless the species already carries
// a pure component, resolves it through r.  Lookup failures are logged at
// debug level and leave the species unresolved.  r may be nil.
func NormalizeSpecies(ctx context.Context, s *Species, r SubstanceResolver, log logging.Logger) {
	if s == nil || s.Name == "" {
		return
	}
	name, resolvable := CanonicalName(s.Name)
	if !resolvable {
		return
	}
	s.Name = name

	if s.PureComponent == nil && r != nil {
		sub, err := r.Resolve(ctx, name)
		if err != nil {
			log.Debug("substance lookup failed", logging.String("name", name), logging.Err(err))
		} else if sub != nil {
			s.PureComponent = sub.Clone()
		}
	}

	if s.PureComponent != nil && s.PureComponent.IUPACName == "" && s.PureComponent.MolecularFormula == "CO2" {
		s.PureComponent.IUPACName = "carbon dioxide"
	}

	if name == "CO" || name == "carbon monoxide" {
		if s.PureComponent == nil {
			s.PureComponent = &PureSubstance{Name: name}
		}
		s.PureComponent.IUPACName = carbonMonoxide.IUPACName
		s.PureComponent.MolecularFormula = carbonMonoxide.MolecularFormula
		s.PureComponent.MolecularMass = carbonMonoxide.MolecularMass
		s.PureComponent.InChI = carbonMonoxide.InChI
		s.PureComponent.InChIKey = carbonMonoxide.InChIKey
		s.PureComponent.CASNumber = carbonMonoxide.CASNumber
	}
}

// ResolveSubstances normalizes every reagent of the record's conditions and
// every product of its results that has no pure component yet.
func ResolveSubstances(ctx context.Context, rec *ReactionRecord, r SubstanceResolver, log logging.Logger) {
	if rec == nil {
		return
	}
	if rec.Conditions != nil {
		for _, s := range rec.Conditions.Reagents {
			NormalizeSpecies(ctx, s, r, log)
		}
	}
	for _, data := range rec.Results {
		for _, p := range data.Products {
			if p.PureComponent == nil {
				NormalizeSpecies(ctx, p, r, log)
			}
		}
	}
}
