package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

var (
	ErrIndexAlreadyExists  = errors.New(errors.ErrCodeConflict, "index already exists")
	ErrIndexCreationFailed = errors.New(errors.ErrCodeSearchError, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeSearchError, "document index failed")
	ErrDocumentNotFound    = errors.New(errors.ErrCodeNotFound, "document not found")
)

// IndexMapping is the body of an index creation request.
type IndexMapping struct {
	Settings map[string]interface{} `json:"settings,omitempty"`
	Mappings map[string]interface{} `json:"mappings,omitempty"`
}

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	RefreshPolicy string
}

// Indexer manages index operations and document ingestion.
type Indexer struct {
	client *Client
	config IndexerConfig
	logger logging.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *Indexer {
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = "false"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Indexer{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// CreateIndex creates a new index with the given mapping.
func (i *Indexer) CreateIndex(ctx context.Context, indexName string, mapping IndexMapping) error {
	exists, err := i.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		return ErrIndexAlreadyExists
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to create index request")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrIndexCreationFailed)
	}

	i.logger.Info("Index created", logging.String("index", indexName))
	return nil
}

// EnsureIndex creates the index when it does not exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context, indexName string, mapping IndexMapping) error {
	err := i.CreateIndex(ctx, indexName, mapping)
	if errors.IsCode(err, errors.ErrCodeConflict) {
		return nil
	}
	return err
}

// IndexExists checks if an index exists.
func (i *Indexer) IndexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchError, "failed to check index existence")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, i.handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "check index existence failed"))
}

// IndexDocument indexes a single document, replacing any previous version
// with the same id.
func (i *Indexer) IndexDocument(ctx context.Context, indexName string, docID string, document interface{}) error {
	body, err := json.Marshal(document)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal document")
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to index document request")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return i.handleErrorResponse(resp, ErrDocumentIndexFailed)
	}

	i.logger.Debug("Document indexed", logging.String("index", indexName), logging.String("id", docID))
	return nil
}

// DeleteDocument deletes a document.
func (i *Indexer) DeleteDocument(ctx context.Context, indexName string, docID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      indexName,
		DocumentID: docID,
		Refresh:    i.config.RefreshPolicy,
	}

	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to delete document request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrDocumentNotFound.WithDetail(docID)
	}
	if resp.IsError() {
		return i.handleErrorResponse(resp, errors.New(errors.ErrCodeSearchError, "delete document failed"))
	}
	return nil
}

func (i *Indexer) handleErrorResponse(resp *opensearchapi.Response, defaultErr error) error {
	return decodeErrorResponse(resp, defaultErr)
}

func decodeErrorResponse(resp *opensearchapi.Response, defaultErr error) error {
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	bodyBytes, _ := io.ReadAll(resp.Body)

	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Reason != "" {
		return errors.Wrapf(defaultErr, errors.ErrCodeSearchError, "OpenSearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return errors.Wrapf(defaultErr, errors.ErrCodeSearchError, "OpenSearch error status: %d", resp.StatusCode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Mappings
// ─────────────────────────────────────────────────────────────────────────────

func series() map[string]interface{} {
	return map[string]interface{}{
		"properties": map[string]interface{}{
			"values": map[string]interface{}{"type": "double"},
			"unit":   map[string]interface{}{"type": "keyword"},
		},
	}
}

// ResultsIndexMapping is the mapping of the results index.  Species names and
// reaction identity are keywords so that they can be faceted.
func ResultsIndexMapping() IndexMapping {
	speciesName := map[string]interface{}{"type": "keyword"}
	return IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"properties": map[string]interface{}{
				"ingestion_id": map[string]interface{}{"type": "keyword"},
				"entry_id":     map[string]interface{}{"type": "keyword"},
				"source":       map[string]interface{}{"type": "keyword"},
				"ingested_at":  map[string]interface{}{"type": "date"},
				"results": map[string]interface{}{
					"properties": map[string]interface{}{
						"properties": map[string]interface{}{
							"properties": map[string]interface{}{
								"catalytic": map[string]interface{}{
									"properties": map[string]interface{}{
										"reaction": map[string]interface{}{
											"properties": map[string]interface{}{
												"name": map[string]interface{}{"type": "keyword"},
												"type": map[string]interface{}{"type": "keyword"},
												"reaction_conditions": map[string]interface{}{
													"properties": map[string]interface{}{
														"temperature":                  series(),
														"pressure":                     series(),
														"weight_hourly_space_velocity": series(),
														"gas_hourly_space_velocity":    series(),
													},
												},
												"reactants": map[string]interface{}{
													"type": "nested",
													"properties": map[string]interface{}{
														"name":                  speciesName,
														"conversion":            series(),
														"gas_concentration_in":  series(),
														"gas_concentration_out": series(),
													},
												},
												"products": map[string]interface{}{
													"type": "nested",
													"properties": map[string]interface{}{
														"name":                  speciesName,
														"selectivity":           series(),
														"gas_concentration_out": series(),
													},
												},
											},
										},
										"catalyst": map[string]interface{}{
											"properties": map[string]interface{}{
												"catalyst_name":            map[string]interface{}{"type": "keyword"},
												"catalyst_type":            map[string]interface{}{"type": "keyword"},
												"preparation_method":       map[string]interface{}{"type": "keyword"},
												"characterization_methods": map[string]interface{}{"type": "keyword"},
											},
										},
									},
								},
							},
						},
						"material": map[string]interface{}{
							"properties": map[string]interface{}{
								"material_name": map[string]interface{}{"type": "keyword"},
								"elements":      map[string]interface{}{"type": "keyword"},
							},
						},
					},
				},
			},
		},
	}
}

//Personal.AI order the ending
