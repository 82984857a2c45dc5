// Package ingest provides the application-level service that turns a lab-data
// file into a normalized reaction record and its searchable results summary.
// It sits between the CLI/HTTP interfaces and the domain logic, and fans the
// outcome out to the configured sinks.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/storage/minio"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/internal/intelligence/chem_resolver"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// Service defines the interface for ingestion operations.
type Service interface {
	Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error)
	IngestAll(ctx context.Context, inputs []*IngestInput) []BatchItem
	Get(ctx context.Context, id string) (*Ingestion, error)
	List(ctx context.Context, input *ListInput) (*ListResult, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// FileStore fetches raw files addressed by s3:// URIs and archives uploads.
type FileStore interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// IngestionStore persists ingestion runs.
type IngestionStore interface {
	Save(ctx context.Context, in *repositories.Ingestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*repositories.Ingestion, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*repositories.Ingestion, int64, error)
}

// ResultsIndexer indexes results documents for search.
type ResultsIndexer interface {
	IndexDocument(ctx context.Context, indexName, docID string, document interface{}) error
}

// EventPublisher publishes ingestion events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
}

// H5Opener opens a local HDF5 container.
type H5Opener func(path string) (tabular.H5Source, error)

// Dependencies are the collaborators of the service.  Every field is
// optional; a nil collaborator disables the step it serves.
type Dependencies struct {
	Files    FileStore
	Resolver reaction.SubstanceResolver
	Samples  SampleDirectory
	Store    IngestionStore
	Index    ResultsIndexer
	Events   EventPublisher
	Metrics  *prometheus.IngestMetrics
	OpenH5   H5Opener
}

// Options tune the service.
type Options struct {
	ResolveNames      bool
	ReferencePageSize int
	Downsample        Downsample
	MaxFileBytes      int64
	Workers           int
	ResultsIndex      string
	Topic             string
	ArchiveUploads    bool
}

// OptionsFrom maps the service configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		ResolveNames:      cfg.Ingest.ResolveNames,
		ReferencePageSize: cfg.Ingest.ReferencePageSize,
		Downsample: Downsample{
			Threshold: cfg.Ingest.DownsampleThreshold,
			Offset:    cfg.Ingest.DownsampleOffset,
			Stride:    cfg.Ingest.DownsampleStride,
		},
		MaxFileBytes:   cfg.Ingest.MaxFileBytes,
		Workers:        cfg.Ingest.Workers,
		ResultsIndex:   cfg.OpenSearch.ResultsIndex,
		Topic:          cfg.Kafka.Topic,
		ArchiveUploads: cfg.MinIO.Enabled,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// IngestInput names the file to ingest.  Source is a local path or an
// s3://bucket/key URI; when Data is set it holds the file body and Source
// only supplies the file name.
type IngestInput struct {
	Source        string
	Data          []byte
	ReactionName  string
	ReactionClass string
	// Samples already attached to the measurement.  The sample found in the
	// data file is merged into them.
	Samples []reaction.SampleRef
}

// IngestResult is the outcome of one ingestion.
type IngestResult struct {
	ID        string                   `json:"id"`
	Source    string                   `json:"source"`
	Format    string                   `json:"format"`
	Archived  string                   `json:"archived,omitempty"`
	Warnings  int                      `json:"warnings"`
	Record    *reaction.ReactionRecord `json:"record"`
	Results   *reaction.ResultsTree    `json:"results"`
	CreatedAt time.Time                `json:"created_at"`
}

// BatchItem pairs a batch input with its outcome.
type BatchItem struct {
	Input  *IngestInput
	Result *IngestResult
	Err    error
}

// Ingestion is an archived ingestion run.
type Ingestion struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	Format       string          `json:"format"`
	Status       string          `json:"status"`
	ReactionName string          `json:"reaction_name,omitempty"`
	LabID        string          `json:"lab_id,omitempty"`
	Warnings     int             `json:"warnings"`
	Error        string          `json:"error,omitempty"`
	Record       json.RawMessage `json:"record,omitempty"`
	Results      json.RawMessage `json:"results,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListInput contains input for listing ingestions.
type ListInput struct {
	Page     int
	PageSize int
}

// ListResult represents a paginated list of ingestions.
type ListResult struct {
	Ingestions []*Ingestion `json:"ingestions"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// resultsDocument is the shape of a results index document.
type resultsDocument struct {
	IngestionID string                `json:"ingestion_id"`
	EntryID     string                `json:"entry_id,omitempty"`
	Source      string                `json:"source"`
	IngestedAt  time.Time             `json:"ingested_at"`
	Results     *reaction.ResultsTree `json:"results"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

type serviceImpl struct {
	deps   Dependencies
	opts   Options
	logger logging.Logger
	now    func() time.Time
}

// NewService creates a new ingestion service.
func NewService(deps Dependencies, opts Options, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Downsample == (Downsample{}) {
		opts.Downsample = DefaultDownsample
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &serviceImpl{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Ingest runs one file through the pipeline.  Format errors abort the call;
// data-quality problems are logged and counted as warnings.  Sink failures are
// logged and do not fail the call.
func (s *serviceImpl) Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error) {
	if input == nil || input.Source == "" {
		return nil, errors.NewValidationError("source", "source is required")
	}
	id := uuid.New()
	warnings := &atomic.Int64{}
	log := &countingLogger{
		Logger: s.logger.With(logging.String("ingestion_id", id.String()), logging.String("source", input.Source)),
		warns:  warnings,
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ActiveIngestions.WithLabelValues().Inc()
		defer s.deps.Metrics.ActiveIngestions.WithLabelValues().Dec()
	}
	start := s.now()
	format, _ := tabular.DetectFormat(input.Source)

	result := &IngestResult{
		ID:        id.String(),
		Source:    input.Source,
		Format:    strings.TrimPrefix(string(format), "."),
		CreatedAt: start.UTC(),
	}
	rec, tree, err := s.run(ctx, input, format, result, log)
	result.Warnings = int(warnings.Load())
	if s.deps.Metrics != nil {
		prometheus.RecordIngestion(s.deps.Metrics, result.Format, err, s.now().Sub(start))
	}
	if err != nil {
		log.Error("ingestion failed", logging.Err(err))
		s.persist(ctx, result, nil, nil, err, log)
		s.publish(ctx, result, nil, err, log)
		return nil, err
	}

	rec.ID = result.ID
	rec.CreatedAt = result.CreatedAt
	result.Record = rec
	result.Results = tree
	s.persist(ctx, result, rec, tree, nil, log)
	s.index(ctx, result, rec, tree, log)
	s.publish(ctx, result, rec, nil, log)

	log.Info("ingestion completed",
		logging.String("format", result.Format),
		logging.Int("warnings", result.Warnings),
		logging.Duration("elapsed", s.now().Sub(start)))
	return result, nil
}

func (s *serviceImpl) run(ctx context.Context, input *IngestInput, format tabular.Format, result *IngestResult, log logging.Logger) (*reaction.ReactionRecord, *reaction.ResultsTree, error) {
	if format == "" {
		return nil, nil, errors.UnsupportedFormat(input.Source,
			string(tabular.FormatCSV), string(tabular.FormatXLSX), string(tabular.FormatHDF5))
	}
	data, err := s.load(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	if input.Data != nil && s.opts.ArchiveUploads && s.deps.Files != nil {
		key := "uploads/" + result.ID + "/" + filepath.Base(input.Source)
		uri, err := s.deps.Files.Archive(ctx, key, data, contentType(format))
		if err != nil {
			log.Warn("failed to archive upload", logging.Err(err))
			s.sinkError("minio")
		} else {
			result.Archived = uri
		}
	}

	var rec *reaction.ReactionRecord
	if format == tabular.FormatHDF5 {
		rec, err = s.readNH3(input, data, log)
	} else {
		rec, err = s.readTable(ctx, input.Source, data, log)
	}
	if err != nil {
		return nil, nil, err
	}

	rec.DataFile = filepath.Base(input.Source)
	if input.ReactionName != "" {
		rec.ReactionName = input.ReactionName
		rec.ReactionClass = input.ReactionClass
	}
	rec.Samples = mergeSamples(input.Samples, rec.Samples, log)
	rec.Filling.Normalize(rec.PrimarySample())

	if s.opts.ResolveNames && s.deps.Resolver != nil {
		reaction.ResolveSubstances(ctx, rec, s.session(), log)
	}

	var tree *reaction.ResultsTree
	if format == tabular.FormatHDF5 {
		tree = ProjectNH3(rec, s.opts.Downsample, log)
		s.enrichSample(ctx, rec, tree, log)
		rec.Figures = BuildNH3Figures(rec)
	} else {
		tree = reaction.Project(rec, log)
		s.enrichSample(ctx, rec, tree, log)
		rec.Figures = BuildFigures(rec)
	}
	return rec, tree, nil
}

// load materializes the file body.
func (s *serviceImpl) load(ctx context.Context, input *IngestInput) ([]byte, error) {
	if input.Data != nil {
		if err := s.checkSize(int64(len(input.Data)), input.Source); err != nil {
			return nil, err
		}
		return input.Data, nil
	}
	if minio.IsObjectURI(input.Source) {
		if s.deps.Files == nil {
			return nil, errors.New(errors.ErrCodeFeatureDisabled, "object storage is not configured").WithDetail(input.Source)
		}
		return s.deps.Files.Fetch(ctx, input.Source)
	}

	f, err := os.Open(input.Source)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "open %s", input.Source)
	}
	defer f.Close()
	var r io.Reader = f
	if s.opts.MaxFileBytes > 0 {
		r = io.LimitReader(f, s.opts.MaxFileBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "read %s", input.Source)
	}
	if err := s.checkSize(int64(len(data)), input.Source); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *serviceImpl) checkSize(n int64, source string) error {
	if s.opts.MaxFileBytes > 0 && n > s.opts.MaxFileBytes {
		return errors.New(errors.ErrCodeDataSourceRead, "file exceeds the size limit").WithDetail(source)
	}
	return nil
}

func (s *serviceImpl) readTable(ctx context.Context, source string, data []byte, log logging.Logger) (*reaction.ReactionRecord, error) {
	rd, err := tabular.ReaderFor(source)
	if err != nil {
		return nil, err
	}
	table, err := rd.Read(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	opts := []reaction.BuildOption{reaction.WithLogger(log)}
	if s.deps.Metrics != nil {
		opts = append(opts, reaction.WithObserver(s.deps.Metrics))
	}
	return reaction.Build(table, opts...)
}

// readNH3 opens the container in place when it is a local file, otherwise
// through a temporary copy.
func (s *serviceImpl) readNH3(input *IngestInput, data []byte, log logging.Logger) (*reaction.ReactionRecord, error) {
	if s.deps.OpenH5 == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "HDF5 support is not configured")
	}
	path := input.Source
	if input.Data != nil || minio.IsObjectURI(input.Source) {
		tmp, err := os.CreateTemp("", "catalysis-*.h5")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceRead, "failed to create temporary file")
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceRead, "failed to write temporary file")
		}
		if err := tmp.Close(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceRead, "failed to write temporary file")
		}
		path = tmp.Name()
	}

	src, err := s.deps.OpenH5(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return BuildNH3(src, log.Named("nh3"))
}

func (s *serviceImpl) session() reaction.SubstanceResolver {
	if r, ok := s.deps.Resolver.(*chem_resolver.Resolver); ok {
		return r.NewSession()
	}
	return chem_resolver.NewSessionOver(s.deps.Resolver)
}

func mergeSamples(existing, fromFile []reaction.SampleRef, log logging.Logger) []reaction.SampleRef {
	out := append([]reaction.SampleRef(nil), existing...)
	for _, smp := range fromFile {
		out = reaction.MergeSample(out, smp, log)
	}
	return out
}

func contentType(f tabular.Format) string {
	switch f {
	case tabular.FormatCSV:
		return "text/csv"
	case tabular.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/x-hdf5"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sinks
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) persist(ctx context.Context, result *IngestResult, rec *reaction.ReactionRecord, tree *reaction.ResultsTree, cause error, log logging.Logger) {
	if s.deps.Store == nil {
		return
	}
	row := &repositories.Ingestion{
		ID:       uuid.MustParse(result.ID),
		Source:   result.Source,
		Format:   result.Format,
		Status:   repositories.StatusSucceeded,
		Warnings: result.Warnings,
	}
	if cause != nil {
		row.Status = repositories.StatusFailed
		row.Error = cause.Error()
	}
	if rec != nil {
		row.ReactionName = rec.ReactionName
		if smp := rec.PrimarySample(); smp != nil {
			row.LabID = smp.LabID
		}
		row.Record = marshalOrNil(rec, log)
		row.Results = marshalOrNil(tree, log)
	}
	if err := s.deps.Store.Save(ctx, row); err != nil {
		log.Error("failed to persist ingestion", logging.Err(err))
		s.sinkError("postgres")
		return
	}
	if !row.CreatedAt.IsZero() {
		result.CreatedAt = row.CreatedAt
	}
}

func (s *serviceImpl) index(ctx context.Context, result *IngestResult, rec *reaction.ReactionRecord, tree *reaction.ResultsTree, log logging.Logger) {
	if s.deps.Index == nil || s.opts.ResultsIndex == "" {
		return
	}
	doc := resultsDocument{
		IngestionID: result.ID,
		Source:      result.Source,
		IngestedAt:  result.CreatedAt,
		Results:     tree,
	}
	if smp := rec.PrimarySample(); smp != nil && smp.Reference != nil {
		doc.EntryID = smp.Reference.EntryID
	}
	if err := s.deps.Index.IndexDocument(ctx, s.opts.ResultsIndex, result.ID, doc); err != nil {
		log.Error("failed to index results", logging.Err(err))
		s.sinkError("opensearch")
	}
}

func (s *serviceImpl) publish(ctx context.Context, result *IngestResult, rec *reaction.ReactionRecord, cause error, log logging.Logger) {
	if s.deps.Events == nil || s.opts.Topic == "" {
		return
	}
	payload := kafka.IngestionPayload{
		IngestionID: result.ID,
		Source:      result.Source,
		Format:      result.Format,
		Warnings:    result.Warnings,
		IngestedAt:  result.CreatedAt,
	}
	eventType := kafka.EventIngestionCompleted
	if cause != nil {
		eventType = kafka.EventIngestionFailed
		payload.Error = cause.Error()
	}
	if rec != nil {
		payload.ReactionName = rec.ReactionName
		if data := rec.PrimaryResults(nil); data != nil {
			for _, r := range data.Reactants {
				payload.Reactants = append(payload.Reactants, r.Name)
			}
			for _, p := range data.Products {
				payload.Products = append(payload.Products, p.DisplayName())
			}
		}
	}

	env, err := kafka.NewEventEnvelope(eventType, kafka.EventSource, payload)
	if err == nil {
		err = s.deps.Events.PublishEvent(ctx, s.opts.Topic, result.ID, env)
	}
	if err != nil {
		log.Error("failed to publish ingestion event", logging.Err(err))
		s.sinkError("kafka")
	}
}

func (s *serviceImpl) sinkError(sink string) {
	if s.deps.Metrics != nil {
		prometheus.RecordSinkError(s.deps.Metrics, sink)
	}
}

func marshalOrNil(v interface{}, log logging.Logger) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn("failed to serialize for archive", logging.Err(err))
		return nil
	}
	return b
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Get(ctx context.Context, id string) (*Ingestion, error) {
	if s.deps.Store == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "ingestion archive is not configured")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.InvalidParam("invalid ingestion id").WithDetail(id)
	}
	row, err := s.deps.Store.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return rowToDTO(row), nil
}

func (s *serviceImpl) List(ctx context.Context, input *ListInput) (*ListResult, error) {
	if s.deps.Store == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "ingestion archive is not configured")
	}
	if input == nil {
		input = &ListInput{}
	}
	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PageSize <= 0 {
		input.PageSize = 20
	}
	if input.PageSize > 100 {
		input.PageSize = 100
	}

	rows, total, err := s.deps.Store.ListRecent(ctx, input.PageSize, (input.Page-1)*input.PageSize)
	if err != nil {
		return nil, err
	}
	dtos := make([]*Ingestion, len(rows))
	for i, row := range rows {
		dtos[i] = rowToDTO(row)
	}

	totalPages := int(total) / input.PageSize
	if int(total)%input.PageSize > 0 {
		totalPages++
	}
	return &ListResult{
		Ingestions: dtos,
		Total:      total,
		Page:       input.Page,
		PageSize:   input.PageSize,
		TotalPages: totalPages,
	}, nil
}

func rowToDTO(row *repositories.Ingestion) *Ingestion {
	return &Ingestion{
		ID:           row.ID.String(),
		Source:       row.Source,
		Format:       row.Format,
		Status:       row.Status,
		ReactionName: row.ReactionName,
		LabID:        row.LabID,
		Warnings:     row.Warnings,
		Error:        row.Error,
		Record:       row.Record,
		Results:      row.Results,
		CreatedAt:    row.CreatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Warning accounting
// ─────────────────────────────────────────────────────────────────────────────

// countingLogger counts warnings across itself and its children.
type countingLogger struct {
	logging.Logger
	warns *atomic.Int64
}

func (l *countingLogger) Warn(msg string, fields ...logging.Field) {
	l.warns.Add(1)
	l.Logger.Warn(msg, fields...)
}

func (l *countingLogger) With(fields ...logging.Field) logging.Logger {
	return &countingLogger{Logger: l.Logger.With(fields...), warns: l.warns}
}

func (l *countingLogger) Named(name string) logging.Logger {
	return &countingLogger{Logger: l.Logger.Named(name), warns: l.warns}
}

//Personal.AI order the ending
