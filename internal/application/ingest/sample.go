package ingest

import (
	"context"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/search/opensearch"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// SampleDirectory finds catalyst sample entries and the entries that
// reference them.
type SampleDirectory interface {
	SampleByLabID(ctx context.Context, labID string) (*reaction.CatalystSample, error)
	ReferencingEntries(ctx context.Context, entryID string, pageSize int) (*opensearch.ReferencePage, error)
}

// Entry types found among the entries that reference a sample.
const (
	EntryTypeXRD                = "ELNXRayDiffraction"
	EntryTypeCatalystCollection = "CatalystCollection"
	EntryTypeSampleCollection   = "CatalystSampleCollection"

	MethodXRD = "XRD"
)

const defaultReferencePageSize = 10

// enrichSample attaches the referenced sample entry to the primary sample and
// copies its catalyst information into the results tree.
func (s *serviceImpl) enrichSample(ctx context.Context, rec *reaction.ReactionRecord, tree *reaction.ResultsTree, log logging.Logger) {
	sample := rec.PrimarySample()
	if sample == nil {
		return
	}
	if sample.Reference == nil && sample.LabID != "" && s.deps.Samples != nil {
		ref, err := s.deps.Samples.SampleByLabID(ctx, sample.LabID)
		switch {
		case errors.IsNotFound(err):
			log.Warn("no sample entry found for lab id", logging.String("lab_id", sample.LabID))
		case err != nil:
			log.Warn("sample lookup failed", logging.String("lab_id", sample.LabID), logging.Err(err))
		default:
			sample.Reference = ref
		}
	}
	if sample.Reference == nil {
		return
	}

	PopulateCatalyst(tree, sample.Reference, log)
	if s.deps.Samples != nil && sample.Reference.EntryID != "" {
		s.addCharacterizationMethods(ctx, tree, sample.Reference.EntryID, log)
	}
}

// PopulateCatalyst copies a referenced sample's catalyst information into the
// results tree.  The elemental composition is copied as is; only valid
// element symbols are listed in the material's elements.
func PopulateCatalyst(tree *reaction.ResultsTree, ref *reaction.CatalystSample, log logging.Logger) {
	if ref == nil {
		return
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	cat := tree.Catalyst()
	if ref.Name != "" {
		cat.CatalystName = ref.Name
	}
	if len(ref.CatalystType) > 0 {
		cat.CatalystType = append([]string(nil), ref.CatalystType...)
	}
	if ref.PreparationMethod != "" {
		cat.PreparationMethod = ref.PreparationMethod
	}
	if ref.SurfaceArea != nil {
		area := *ref.SurfaceArea
		cat.SurfaceArea = &area
	}

	if ref.Name != "" {
		tree.MaterialNode().MaterialName = ref.Name
	}
	if len(ref.ElementalComposition) == 0 {
		return
	}
	mat := tree.MaterialNode()
	mat.ElementalComposition = append([]reaction.ElementFraction(nil), ref.ElementalComposition...)
	for _, ef := range ref.ElementalComposition {
		if !reaction.IsElement(ef.Element) {
			log.Warn("not a valid element symbol; elemental composition row ignored",
				logging.String("element", ef.Element))
			continue
		}
		if !contains(mat.Elements, ef.Element) {
			mat.Elements = append(mat.Elements, ef.Element)
		}
	}
}

// addCharacterizationMethods inspects the first page of entries referencing
// the sample and records the first characterization method found.
func (s *serviceImpl) addCharacterizationMethods(ctx context.Context, tree *reaction.ResultsTree, entryID string, log logging.Logger) {
	pageSize := s.opts.ReferencePageSize
	if pageSize <= 0 {
		pageSize = defaultReferencePageSize
	}
	page, err := s.deps.Samples.ReferencingEntries(ctx, entryID, pageSize)
	if err != nil {
		log.Warn("reference search failed; no characterization methods added",
			logging.String("entry_id", entryID), logging.Err(err))
		return
	}
	if s.deps.Metrics != nil {
		prometheus.RecordReferences(s.deps.Metrics, int(page.Total))
	}
	if page.Total == 0 {
		log.Warn("found no entries referencing the sample", logging.String("entry_id", entryID))
		return
	}

	methods := CharacterizationMethods(page.Entries)
	if page.Total > int64(pageSize) {
		log.Warn("more referencing entries than inspected; only the first page is checked for methods",
			logging.String("entry_id", entryID),
			logging.Int64("total", page.Total),
			logging.Int("inspected", pageSize))
	}
	if len(methods) > 0 {
		cat := tree.Catalyst()
		cat.CharacterizationMethods = append(cat.CharacterizationMethods, methods[0])
	}
}

// CharacterizationMethods maps referencing entries to characterization
// methods.  Collections and unknown entry types contribute nothing.
func CharacterizationMethods(entries []opensearch.EntryHit) []string {
	var methods []string
	for _, e := range entries {
		switch e.EntryType {
		case EntryTypeXRD:
			methods = append(methods, MethodXRD)
		case EntryTypeCatalystCollection, EntryTypeSampleCollection:
		}
	}
	return methods
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
