package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/internal/testutil"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

const coOxidationCSV = "FHI-ID,x CO (%),temperature K,x_r CO (%),S_p CO2 (%)\n" +
	"FHI-7,1,500,10,90\n" +
	",1,600,20,95\n"

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, in *repositories.Ingestion) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockStore) GetByID(ctx context.Context, id uuid.UUID) (*repositories.Ingestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.Ingestion), args.Error(1)
}

func (m *mockStore) ListRecent(ctx context.Context, limit, offset int) ([]*repositories.Ingestion, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*repositories.Ingestion), args.Get(1).(int64), args.Error(2)
}

type mockIndexer struct{ mock.Mock }

func (m *mockIndexer) IndexDocument(ctx context.Context, indexName, docID string, document interface{}) error {
	return m.Called(ctx, indexName, docID, document).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishEvent(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error {
	return m.Called(ctx, topic, key, env).Error(0)
}

type mockFiles struct{ mock.Mock }

func (m *mockFiles) Fetch(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockFiles) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

type stubResolver map[string]string

func (r stubResolver) Resolve(_ context.Context, name string) (*reaction.PureSubstance, error) {
	if iupac, ok := r[name]; ok {
		return &reaction.PureSubstance{Name: name, IUPACName: iupac}, nil
	}
	return nil, errors.NotFound("unknown substance")
}

func payloadOf(t *testing.T, env *kafka.EventEnvelope) kafka.IngestionPayload {
	t.Helper()
	var p kafka.IngestionPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

// ─────────────────────────────────────────────────────────────────────────────
// Suite
// ─────────────────────────────────────────────────────────────────────────────

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *mockStore
	index   *mockIndexer
	events  *mockPublisher
	files   *mockFiles
	log     *testutil.MockLogger
	service Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = new(mockStore)
	s.index = new(mockIndexer)
	s.events = new(mockPublisher)
	s.files = new(mockFiles)
	s.log = testutil.NewMockLogger()
	s.service = NewService(Dependencies{
		Files:  s.files,
		Store:  s.store,
		Index:  s.index,
		Events: s.events,
	}, Options{
		ResultsIndex:   "catalysis-results",
		Topic:          "catalysis.ingestions",
		ArchiveUploads: true,
	}, s.log)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestIngest_CSVUpload() {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.files.On("Archive", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, "/run.csv")
	}), []byte(coOxidationCSV), "text/csv").Return("s3://raw/uploads/run.csv", nil)
	s.store.On("Save", mock.Anything, mock.MatchedBy(func(in *repositories.Ingestion) bool {
		return in.Status == repositories.StatusSucceeded && in.Format == "csv" &&
			in.LabID == "FHI-7" && len(in.Record) > 0 && len(in.Results) > 0
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repositories.Ingestion).CreatedAt = created
	}).Return(nil)
	s.index.On("IndexDocument", mock.Anything, "catalysis-results", mock.Anything, mock.AnythingOfType("ingest.resultsDocument")).Return(nil)
	s.events.On("PublishEvent", mock.Anything, "catalysis.ingestions", mock.Anything, mock.MatchedBy(func(env *kafka.EventEnvelope) bool {
		return env.EventType == kafka.EventIngestionCompleted
	})).Return(nil)

	result, err := s.service.Ingest(s.ctx, &IngestInput{Source: "run.csv", Data: []byte(coOxidationCSV)})
	s.Require().NoError(err)

	s.Equal("csv", result.Format)
	s.Equal("s3://raw/uploads/run.csv", result.Archived)
	s.Equal(0, result.Warnings)
	s.Equal(created, result.CreatedAt)
	s.Equal(result.ID, result.Record.ID)
	s.Equal("run.csv", result.Record.DataFile)
	s.Require().Len(result.Record.Samples, 1)
	s.Equal("FHI-7", result.Record.Samples[0].LabID)
	s.NotEmpty(result.Record.Figures)

	r := result.Results.Reaction()
	s.Require().Len(r.Reactants, 1)
	s.Equal("CO", r.Reactants[0].Name)
	s.Equal([]float64{10, 20}, r.Reactants[0].Conversion.Values)
	s.Require().Len(r.Products, 1)
	s.Equal("CO2", r.Products[0].Name)
	s.Equal([]float64{500, 600}, result.Results.Conditions().Temperature.Values)

	s.store.AssertExpectations(s.T())
	s.index.AssertExpectations(s.T())
	s.files.AssertExpectations(s.T())

	env := s.events.Calls[0].Arguments.Get(3).(*kafka.EventEnvelope)
	p := payloadOf(s.T(), env)
	s.Equal(result.ID, p.IngestionID)
	s.Equal([]string{"CO"}, p.Reactants)
	s.Equal([]string{"CO2"}, p.Products)
	s.Equal(result.ID, s.events.Calls[0].Arguments.String(2))

	doc := s.index.Calls[0].Arguments.Get(3).(resultsDocument)
	s.Equal(result.ID, doc.IngestionID)
	s.Same(result.Results, doc.Results)
}

func (s *ServiceTestSuite) TestIngest_ReactionNameAndSamples() {
	s.files.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("s3://raw/x", nil)
	s.store.On("Save", mock.Anything, mock.Anything).Return(nil)
	s.index.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := s.service.Ingest(s.ctx, &IngestInput{
		Source:        "run.csv",
		Data:          []byte(coOxidationCSV),
		ReactionName:  "CO oxidation",
		ReactionClass: "oxidation",
		Samples:       []reaction.SampleRef{{LabID: "FHI-1", Name: "Pt foil"}},
	})
	s.Require().NoError(err)

	s.Equal("CO oxidation", result.Results.Reaction().Name)
	s.Equal("oxidation", result.Results.Reaction().Type)
	s.Len(result.Record.Samples, 2)
	s.Equal("Pt foil", result.Record.Filling.CatalystName)
	s.Equal(1, result.Warnings)
	s.True(s.log.HasMessageContaining("warn", "measurement already has a sample"))
}

func (s *ServiceTestSuite) TestIngest_UnsupportedFormat() {
	s.store.On("Save", mock.Anything, mock.MatchedBy(func(in *repositories.Ingestion) bool {
		return in.Status == repositories.StatusFailed && in.Error != "" && in.Record == nil
	})).Return(nil)
	s.events.On("PublishEvent", mock.Anything, "catalysis.ingestions", mock.Anything, mock.MatchedBy(func(env *kafka.EventEnvelope) bool {
		return env.EventType == kafka.EventIngestionFailed
	})).Return(nil)

	result, err := s.service.Ingest(s.ctx, &IngestInput{Source: "notes.txt", Data: []byte("hello")})
	s.Nil(result)
	s.True(errors.IsCode(err, errors.ErrCodeUnsupportedFormat))

	s.store.AssertExpectations(s.T())
	s.events.AssertExpectations(s.T())
	s.index.AssertNotCalled(s.T(), "IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.files.AssertNotCalled(s.T(), "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.True(s.log.HasMessage("error", "ingestion failed"))
}

func (s *ServiceTestSuite) TestIngest_SinkFailuresAreLogged() {
	s.files.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New(errors.ErrCodeStorageError, "bucket gone"))
	s.store.On("Save", mock.Anything, mock.Anything).Return(errors.New(errors.ErrCodeDatabaseError, "db down"))
	s.index.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeSearchError, "cluster red"))
	s.events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeMessageQueueError, "broker down"))

	result, err := s.service.Ingest(s.ctx, &IngestInput{Source: "run.csv", Data: []byte(coOxidationCSV)})
	s.Require().NoError(err)
	s.Empty(result.Archived)
	s.Equal(1, result.Warnings)
	s.True(s.log.HasMessage("error", "failed to persist ingestion"))
	s.True(s.log.HasMessage("error", "failed to index results"))
	s.True(s.log.HasMessage("error", "failed to publish ingestion event"))
}

func (s *ServiceTestSuite) TestIngest_ObjectURI() {
	s.files.On("Fetch", mock.Anything, "s3://raw/lab/run.csv").Return([]byte(coOxidationCSV), nil)
	s.store.On("Save", mock.Anything, mock.Anything).Return(nil)
	s.index.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := s.service.Ingest(s.ctx, &IngestInput{Source: "s3://raw/lab/run.csv"})
	s.Require().NoError(err)
	s.Equal("run.csv", result.Record.DataFile)
	s.Empty(result.Archived)
	s.files.AssertNotCalled(s.T(), "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestIngest_Validation() {
	_, err := s.service.Ingest(s.ctx, nil)
	s.True(errors.IsCode(err, errors.ErrCodeValidation))

	_, err = s.service.Ingest(s.ctx, &IngestInput{})
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
	s.store.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestGet() {
	id := uuid.New()
	s.store.On("GetByID", mock.Anything, id).Return(&repositories.Ingestion{
		ID:           id,
		Source:       "run.csv",
		Format:       "csv",
		Status:       repositories.StatusSucceeded,
		ReactionName: "CO oxidation",
		Results:      json.RawMessage(`{}`),
	}, nil)

	got, err := s.service.Get(s.ctx, id.String())
	s.Require().NoError(err)
	s.Equal(id.String(), got.ID)
	s.Equal("CO oxidation", got.ReactionName)
	s.JSONEq(`{}`, string(got.Results))
}

func (s *ServiceTestSuite) TestGet_InvalidID() {
	_, err := s.service.Get(s.ctx, "not-a-uuid")
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
	s.store.AssertNotCalled(s.T(), "GetByID", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestGet_NotFound() {
	id := uuid.New()
	s.store.On("GetByID", mock.Anything, id).Return(nil, errors.NotFound("ingestion not found"))

	_, err := s.service.Get(s.ctx, id.String())
	s.True(errors.IsNotFound(err))
}

func (s *ServiceTestSuite) TestList() {
	rows := []*repositories.Ingestion{{ID: uuid.New(), Source: "a.csv"}, {ID: uuid.New(), Source: "b.xlsx"}}
	s.store.On("ListRecent", mock.Anything, 20, 20).Return(rows, int64(45), nil)

	res, err := s.service.List(s.ctx, &ListInput{Page: 2})
	s.Require().NoError(err)
	s.Len(res.Ingestions, 2)
	s.Equal(int64(45), res.Total)
	s.Equal(2, res.Page)
	s.Equal(20, res.PageSize)
	s.Equal(3, res.TotalPages)
}

func (s *ServiceTestSuite) TestList_ClampsPageSize() {
	s.store.On("ListRecent", mock.Anything, 100, 0).Return([]*repositories.Ingestion{}, int64(0), nil)

	res, err := s.service.List(s.ctx, &ListInput{PageSize: 500})
	s.Require().NoError(err)
	s.Equal(100, res.PageSize)
	s.Equal(0, res.TotalPages)
}

func (s *ServiceTestSuite) TestIngestAll() {
	s.files.On("Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("s3://raw/x", nil)
	s.store.On("Save", mock.Anything, mock.Anything).Return(nil)
	s.index.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	inputs := []*IngestInput{
		{Source: "a.csv", Data: []byte(coOxidationCSV)},
		{Source: "b.doc", Data: []byte("x")},
		{Source: "c.csv", Data: []byte(coOxidationCSV)},
	}
	items := s.service.IngestAll(s.ctx, inputs)
	s.Require().Len(items, 3)
	for i, item := range items {
		s.Same(inputs[i], item.Input)
	}
	s.NoError(items[0].Err)
	s.Equal("a.csv", items[0].Result.Source)
	s.True(errors.IsCode(items[1].Err, errors.ErrCodeUnsupportedFormat))
	s.Nil(items[1].Result)
	s.NoError(items[2].Err)
	s.Equal("c.csv", items[2].Result.Source)
}

// ─────────────────────────────────────────────────────────────────────────────
// Without sinks
// ─────────────────────────────────────────────────────────────────────────────

func TestIngest_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.csv")
	require.NoError(t, os.WriteFile(path, []byte(coOxidationCSV), 0o600))

	svc := NewService(Dependencies{}, Options{}, nil)
	result, err := svc.Ingest(context.Background(), &IngestInput{Source: path})
	require.NoError(t, err)
	assert.Equal(t, "run.csv", result.Record.DataFile)
	assert.NotEmpty(t, result.ID)
}

func TestIngest_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.csv")
	require.NoError(t, os.WriteFile(path, []byte(coOxidationCSV), 0o600))

	svc := NewService(Dependencies{}, Options{MaxFileBytes: 16}, nil)
	_, err := svc.Ingest(context.Background(), &IngestInput{Source: path})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceRead))

	_, err = svc.Ingest(context.Background(), &IngestInput{Source: "run.csv", Data: []byte(coOxidationCSV)})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceRead))
}

func TestIngest_MissingFile(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	_, err := svc.Ingest(context.Background(), &IngestInput{Source: filepath.Join(t.TempDir(), "absent.csv")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceRead))
}

func TestIngest_ObjectURIWithoutStore(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	_, err := svc.Ingest(context.Background(), &IngestInput{Source: "s3://raw/run.csv"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

func TestIngest_EmptyTable(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	_, err := svc.Ingest(context.Background(), &IngestInput{Source: "run.csv", Data: []byte{}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyTable))
}

func TestIngest_HeaderOnlyCSV(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	result, err := svc.Ingest(context.Background(), &IngestInput{
		Source: "run.csv",
		Data:   []byte("step,x CO (%),x_r CO (%)\n"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Empty(t, result.Record.Results[0].Reactants)
	assert.Positive(t, result.Warnings)
	require.NotNil(t, result.Results)
	assert.Empty(t, result.Results.Reaction().Products)
}

func TestIngest_ResolveNames(t *testing.T) {
	svc := NewService(Dependencies{
		Resolver: stubResolver{"CO2": "carbon dioxide"},
	}, Options{ResolveNames: true}, nil)

	result, err := svc.Ingest(context.Background(), &IngestInput{Source: "run.csv", Data: []byte(coOxidationCSV)})
	require.NoError(t, err)

	r := result.Results.Reaction()
	require.Len(t, r.Reactants, 1)
	assert.Equal(t, "carbon monoxide", r.Reactants[0].Name)
	require.Len(t, r.Products, 1)
	assert.Equal(t, "carbon dioxide", r.Products[0].Name)
}

func TestIngest_HDF5Upload(t *testing.T) {
	var opened string
	src := newNH3Container(260)
	svc := NewService(Dependencies{
		OpenH5: func(path string) (tabular.H5Source, error) {
			opened = path
			_, err := os.Stat(path)
			require.NoError(t, err)
			return src, nil
		},
	}, Options{}, nil)

	result, err := svc.Ingest(context.Background(), &IngestInput{Source: "nh3.h5", Data: []byte("\x89HDF\r\n")})
	require.NoError(t, err)

	assert.Equal(t, "h5", result.Format)
	assert.True(t, src.closed)
	assert.True(t, strings.HasSuffix(opened, ".h5"))
	_, statErr := os.Stat(opened)
	assert.True(t, os.IsNotExist(statErr))

	r := result.Results.Reaction()
	assert.Equal(t, NH3ReactionName, r.Name)
	assert.Equal(t, []float64{50, 150, 250}, r.Reactants[0].Conversion.Values)
	assert.Equal(t, "nh3.h5", result.Record.DataFile)
	assert.Equal(t, "4711", result.Record.Samples[0].LabID)
	assert.Equal(t, "figure Temp", result.Record.Figures[0].Label)
}

func TestIngest_HDF5LocalPathOpenedInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nh3.h5")
	require.NoError(t, os.WriteFile(path, []byte("h5"), 0o600))

	var opened string
	svc := NewService(Dependencies{
		OpenH5: func(p string) (tabular.H5Source, error) {
			opened = p
			return newNH3Container(3), nil
		},
	}, Options{}, nil)

	_, err := svc.Ingest(context.Background(), &IngestInput{Source: path})
	require.NoError(t, err)
	assert.Equal(t, path, opened)
}

func TestIngest_HDF5Disabled(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	_, err := svc.Ingest(context.Background(), &IngestInput{Source: "nh3.h5", Data: []byte("x")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

func TestIngestAll_Cancelled(t *testing.T) {
	svc := NewService(Dependencies{}, Options{Workers: 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := svc.IngestAll(ctx, []*IngestInput{
		{Source: "a.csv", Data: []byte(coOxidationCSV)},
		{Source: "b.csv", Data: []byte(coOxidationCSV)},
	})
	require.Len(t, items, 2)
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
		assert.Nil(t, item.Result)
	}
}

func TestQueries_WithoutStore(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil)
	_, err := svc.Get(context.Background(), uuid.NewString())
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
	_, err = svc.List(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

func TestOptionsFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.Ingest = config.IngestConfig{
		ResolveNames:        true,
		ReferencePageSize:   5,
		DownsampleThreshold: 10,
		DownsampleOffset:    1,
		DownsampleStride:    2,
		MaxFileBytes:        1024,
		Workers:             4,
	}
	cfg.OpenSearch.ResultsIndex = "results"
	cfg.Kafka.Topic = "events"
	cfg.MinIO.Enabled = true

	opts := OptionsFrom(cfg)
	assert.True(t, opts.ResolveNames)
	assert.Equal(t, 5, opts.ReferencePageSize)
	assert.Equal(t, Downsample{Threshold: 10, Offset: 1, Stride: 2}, opts.Downsample)
	assert.Equal(t, int64(1024), opts.MaxFileBytes)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, "results", opts.ResultsIndex)
	assert.Equal(t, "events", opts.Topic)
	assert.True(t, opts.ArchiveUploads)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Dependencies{}, Options{}, nil).(*serviceImpl)
	assert.Equal(t, DefaultDownsample, svc.opts.Downsample)
	assert.Equal(t, 1, svc.opts.Workers)
}

//Personal.AI order the ending
