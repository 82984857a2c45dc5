package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// FieldTargetEntryID is the entry-references field holding the referenced
// entry's id.
const FieldTargetEntryID = "entry_references.target_entry_id"

// FieldLabID holds the lab id of ELN sample entries.
const FieldLabID = "data.lab_id"

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	EntriesIndex    string
	DefaultPageSize int
	MaxPageSize     int
	SearchTimeout   time.Duration
}

// SearchRequest is a filter-only query: every term must match.
type SearchRequest struct {
	IndexName      string
	Terms          map[string]interface{}
	Offset         int
	Limit          int
	SourceIncludes []string
}

// SearchResult holds the search response.
type SearchResult struct {
	Total  int64
	Hits   []SearchHit
	TookMs int64
}

// SearchHit represents a single search hit.
type SearchHit struct {
	ID     string
	Source json.RawMessage
}

// EntryHit is an entry that references another entry.
type EntryHit struct {
	EntryID   string `json:"entry_id"`
	EntryType string `json:"entry_type"`
}

// ReferencePage is one page of referencing entries.  Total counts every
// match, not only the returned ones.
type ReferencePage struct {
	Total   int64
	Entries []EntryHit
}

// Searcher performs search operations.
type Searcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *Searcher {
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Searcher{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// ReferencingEntries returns the first pageSize entries whose references
// point at entryID, with the total number of matches.
func (s *Searcher) ReferencingEntries(ctx context.Context, entryID string, pageSize int) (*ReferencePage, error) {
	if entryID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "entry id is required")
	}
	res, err := s.Search(ctx, SearchRequest{
		IndexName:      s.config.EntriesIndex,
		Terms:          map[string]interface{}{FieldTargetEntryID: entryID},
		Limit:          pageSize,
		SourceIncludes: []string{"entry_id", "entry_type"},
	})
	if err != nil {
		return nil, err
	}

	page := &ReferencePage{Total: res.Total, Entries: make([]EntryHit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		var e EntryHit
		if err := json.Unmarshal(h.Source, &e); err != nil {
			s.logger.Warn("Skipping undecodable entry", logging.String("id", h.ID), logging.Error(err))
			continue
		}
		if e.EntryID == "" {
			e.EntryID = h.ID
		}
		page.Entries = append(page.Entries, e)
	}
	return page, nil
}

// sampleSource is the part of a sample entry document the results tree uses.
type sampleSource struct {
	EntryID string `json:"entry_id"`
	Data    struct {
		Name               string   `json:"name"`
		CatalystType       []string `json:"catalyst_type"`
		PreparationDetails struct {
			PreparationMethod string `json:"preparation_method"`
		} `json:"preparation_details"`
		Surface struct {
			SurfaceArea *reaction.Scalar `json:"surface_area"`
		} `json:"surface"`
		ElementalComposition []reaction.ElementFraction `json:"elemental_composition"`
	} `json:"data"`
}

// SampleByLabID returns the catalyst sample entry with the given lab id.  It
// returns a NotFound error when there is none; with several matches the first
// is used and a warning logged.
func (s *Searcher) SampleByLabID(ctx context.Context, labID string) (*reaction.CatalystSample, error) {
	if labID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "lab id is required")
	}
	res, err := s.Search(ctx, SearchRequest{
		IndexName: s.config.EntriesIndex,
		Terms:     map[string]interface{}{FieldLabID: labID},
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, errors.NotFound("no sample entry with lab id").WithDetail(labID)
	}
	if res.Total > 1 {
		s.logger.Warn("Several sample entries share a lab id; using the first",
			logging.String("lab_id", labID), logging.Int64("total", res.Total))
	}

	hit := res.Hits[0]
	var src sampleSource
	if err := json.Unmarshal(hit.Source, &src); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode sample entry")
	}
	if src.EntryID == "" {
		src.EntryID = hit.ID
	}
	return &reaction.CatalystSample{
		EntryID:              src.EntryID,
		Name:                 src.Data.Name,
		CatalystType:         src.Data.CatalystType,
		PreparationMethod:    src.Data.PreparationDetails.PreparationMethod,
		SurfaceArea:          src.Data.Surface.SurfaceArea,
		ElementalComposition: src.Data.ElementalComposition,
	}, nil
}

// Search executes a search request.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.IndexName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "IndexName is required")
	}
	if req.Limit <= 0 {
		req.Limit = s.config.DefaultPageSize
	}
	if req.Limit > s.config.MaxPageSize {
		req.Limit = s.config.MaxPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	body, err := json.Marshal(s.buildQueryDSL(req))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal query DSL")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	osReq := opensearchapi.SearchRequest{
		Index: []string{req.IndexName},
		Body:  bytes.NewReader(body),
	}

	start := time.Now()
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeTimeout, "search request timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "search request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, decodeErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "search error"))
	}

	result, err := parseSearchResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Search executed",
		logging.String("index", req.IndexName),
		logging.Int64("took_ms", time.Since(start).Milliseconds()),
		logging.Int64("hits", result.Total))
	return result, nil
}

func (s *Searcher) buildQueryDSL(req SearchRequest) map[string]interface{} {
	filters := make([]interface{}, 0, len(req.Terms))
	for field, value := range req.Terms {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}
	dsl := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"from":             req.Offset,
		"size":             req.Limit,
		"track_total_hits": true,
	}
	if len(req.SourceIncludes) > 0 {
		dsl["_source"] = req.SourceIncludes
	}
	return dsl
}

func parseSearchResponse(body io.Reader) (*SearchResult, error) {
	var resp struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	result := &SearchResult{
		Total:  resp.Hits.Total.Value,
		TookMs: resp.Took,
		Hits:   make([]SearchHit, 0, len(resp.Hits.Hits)),
	}
	for _, h := range resp.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{ID: h.ID, Source: h.Source})
	}
	return result, nil
}

//Personal.AI order the ending
