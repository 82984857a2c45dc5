package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/search/opensearch"
	"github.com/turtacn/Catalysis-Ingest/internal/testutil"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

type mockSampleDirectory struct {
	mock.Mock
}

func (m *mockSampleDirectory) SampleByLabID(ctx context.Context, labID string) (*reaction.CatalystSample, error) {
	args := m.Called(ctx, labID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reaction.CatalystSample), args.Error(1)
}

func (m *mockSampleDirectory) ReferencingEntries(ctx context.Context, entryID string, pageSize int) (*opensearch.ReferencePage, error) {
	args := m.Called(ctx, entryID, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*opensearch.ReferencePage), args.Error(1)
}

func newSampleService(dir SampleDirectory, pageSize int) *serviceImpl {
	return NewService(Dependencies{Samples: dir}, Options{ReferencePageSize: pageSize}, nil).(*serviceImpl)
}

func refSample() *reaction.CatalystSample {
	return &reaction.CatalystSample{
		EntryID:           "entry-1",
		Name:              "Pt/Al2O3",
		CatalystType:      []string{"supported catalyst"},
		PreparationMethod: "impregnation",
		SurfaceArea:       &reaction.Scalar{Value: 120, Unit: "m^2/g"},
		ElementalComposition: []reaction.ElementFraction{
			{Element: "Pt", MassFraction: 0.01},
			{Element: "Al", AtomFraction: 0.4},
			{Element: "Xx", AtomFraction: 0.1},
			{Element: "Pt", AtomFraction: 0.005},
		},
	}
}

func TestPopulateCatalyst(t *testing.T) {
	log := testutil.NewMockLogger()
	tree := &reaction.ResultsTree{}
	ref := refSample()

	PopulateCatalyst(tree, ref, log)

	cat := tree.Catalyst()
	assert.Equal(t, "Pt/Al2O3", cat.CatalystName)
	assert.Equal(t, []string{"supported catalyst"}, cat.CatalystType)
	assert.Equal(t, "impregnation", cat.PreparationMethod)
	assert.Equal(t, 120.0, cat.SurfaceArea.Value)
	assert.NotSame(t, ref.SurfaceArea, cat.SurfaceArea)

	mat := tree.MaterialNode()
	assert.Equal(t, "Pt/Al2O3", mat.MaterialName)
	assert.Equal(t, []string{"Pt", "Al"}, mat.Elements)
	assert.Len(t, mat.ElementalComposition, 4)
	assert.True(t, log.HasMessageContaining("warn", "not a valid element symbol"))
	assert.Equal(t, 1, log.Count("warn"))
}

func TestPopulateCatalyst_Nil(t *testing.T) {
	tree := &reaction.ResultsTree{}
	PopulateCatalyst(tree, nil, nil)
	assert.Nil(t, tree.Properties)
	assert.Nil(t, tree.Material)
}

func TestCharacterizationMethods(t *testing.T) {
	entries := []opensearch.EntryHit{
		{EntryID: "a", EntryType: EntryTypeCatalystCollection},
		{EntryID: "b", EntryType: EntryTypeXRD},
		{EntryID: "c", EntryType: "ELNMeasurement"},
		{EntryID: "d", EntryType: EntryTypeXRD},
		{EntryID: "e", EntryType: EntryTypeSampleCollection},
	}
	assert.Equal(t, []string{MethodXRD, MethodXRD}, CharacterizationMethods(entries))
	assert.Empty(t, CharacterizationMethods(nil))
}

func TestEnrichSample_LooksUpByLabID(t *testing.T) {
	dir := new(mockSampleDirectory)
	dir.On("SampleByLabID", mock.Anything, "FHI-42").Return(refSample(), nil)
	dir.On("ReferencingEntries", mock.Anything, "entry-1", 2).Return(&opensearch.ReferencePage{
		Total:   2,
		Entries: []opensearch.EntryHit{{EntryID: "x", EntryType: EntryTypeXRD}, {EntryID: "y", EntryType: EntryTypeXRD}},
	}, nil)

	svc := newSampleService(dir, 2)
	log := testutil.NewMockLogger()
	rec := &reaction.ReactionRecord{Samples: []reaction.SampleRef{{LabID: "FHI-42"}}}
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), rec, tree, log)

	require.NotNil(t, rec.Samples[0].Reference)
	assert.Equal(t, "entry-1", rec.Samples[0].Reference.EntryID)
	assert.Equal(t, "Pt/Al2O3", tree.Catalyst().CatalystName)
	assert.Equal(t, []string{MethodXRD}, tree.Catalyst().CharacterizationMethods)
	assert.False(t, log.HasMessageContaining("warn", "more referencing entries"))
	dir.AssertExpectations(t)
}

func TestEnrichSample_MoreReferencesThanPage(t *testing.T) {
	dir := new(mockSampleDirectory)
	dir.On("ReferencingEntries", mock.Anything, "entry-1", defaultReferencePageSize).Return(&opensearch.ReferencePage{
		Total:   25,
		Entries: []opensearch.EntryHit{{EntryID: "x", EntryType: EntryTypeXRD}},
	}, nil)

	svc := newSampleService(dir, 0)
	log := testutil.NewMockLogger()
	rec := &reaction.ReactionRecord{Samples: []reaction.SampleRef{{LabID: "FHI-42", Reference: refSample()}}}
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), rec, tree, log)

	assert.Equal(t, []string{MethodXRD}, tree.Catalyst().CharacterizationMethods)
	assert.True(t, log.HasMessageContaining("warn", "more referencing entries than inspected"))
	dir.AssertNotCalled(t, "SampleByLabID", mock.Anything, mock.Anything)
}

func TestEnrichSample_NoReferences(t *testing.T) {
	dir := new(mockSampleDirectory)
	dir.On("ReferencingEntries", mock.Anything, "entry-1", 10).Return(&opensearch.ReferencePage{}, nil)

	svc := newSampleService(dir, 10)
	log := testutil.NewMockLogger()
	rec := &reaction.ReactionRecord{Samples: []reaction.SampleRef{{Reference: refSample()}}}
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), rec, tree, log)

	assert.Empty(t, tree.Catalyst().CharacterizationMethods)
	assert.True(t, log.HasMessage("warn", "found no entries referencing the sample"))
}

func TestEnrichSample_SearchError(t *testing.T) {
	dir := new(mockSampleDirectory)
	dir.On("ReferencingEntries", mock.Anything, "entry-1", 10).
		Return(nil, errors.New(errors.ErrCodeSearchError, "cluster down"))

	svc := newSampleService(dir, 10)
	log := testutil.NewMockLogger()
	rec := &reaction.ReactionRecord{Samples: []reaction.SampleRef{{Reference: refSample()}}}
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), rec, tree, log)

	assert.Equal(t, "Pt/Al2O3", tree.Catalyst().CatalystName)
	assert.Empty(t, tree.Catalyst().CharacterizationMethods)
	assert.True(t, log.HasMessageContaining("warn", "reference search failed"))
}

func TestEnrichSample_LabIDNotFound(t *testing.T) {
	dir := new(mockSampleDirectory)
	dir.On("SampleByLabID", mock.Anything, "unknown").Return(nil, errors.NotFound("sample not found"))

	svc := newSampleService(dir, 10)
	log := testutil.NewMockLogger()
	rec := &reaction.ReactionRecord{Samples: []reaction.SampleRef{{LabID: "unknown"}}}
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), rec, tree, log)

	assert.Nil(t, rec.Samples[0].Reference)
	assert.Nil(t, tree.Properties)
	assert.True(t, log.HasMessage("warn", "no sample entry found for lab id"))
	dir.AssertNotCalled(t, "ReferencingEntries", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrichSample_NoSample(t *testing.T) {
	dir := new(mockSampleDirectory)
	svc := newSampleService(dir, 10)
	tree := &reaction.ResultsTree{}

	svc.enrichSample(context.Background(), &reaction.ReactionRecord{}, tree, testutil.NewMockLogger())

	assert.Nil(t, tree.Properties)
	dir.AssertExpectations(t)
}

//Personal.AI order the ending
