package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

func newTestIndexer(t *testing.T, serverURL string) *Indexer {
	return NewIndexer(newWrappedClient(t, serverURL), IndexerConfig{}, nil)
}

func TestCreateIndex_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPut && strings.Contains(r.URL.Path, "catalysis-results") {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"reactants"`)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := newTestIndexer(t, server.URL).CreateIndex(context.Background(), "catalysis-results", ResultsIndexMapping())
	assert.NoError(t, err)
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	indexer := newTestIndexer(t, server.URL)
	err := indexer.CreateIndex(context.Background(), "catalysis-results", IndexMapping{})
	assert.Equal(t, ErrIndexAlreadyExists, err)

	assert.NoError(t, indexer.EnsureIndex(context.Background(), "catalysis-results", IndexMapping{}))
}

func TestCreateIndex_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception","reason":"bad mapping"}}`))
	}))
	defer server.Close()

	err := newTestIndexer(t, server.URL).EnsureIndex(context.Background(), "idx", IndexMapping{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad mapping")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchError))
}

func TestIndexExists_UnexpectedStatus(t *testing.T) {
	server := newTestServer(http.StatusForbidden)
	defer server.Close()

	_, err := newTestIndexer(t, server.URL).IndexExists(context.Background(), "idx")
	require.Error(t, err)
}

func TestIndexDocument_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/_doc/ing-1") {
			var doc map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			assert.Equal(t, "CO oxidation", doc["name"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"_id": "ing-1", "result": "created"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := newTestIndexer(t, server.URL).IndexDocument(context.Background(), "catalysis-results", "ing-1",
		map[string]string{"name": "CO oxidation"})
	assert.NoError(t, err)
}

func TestIndexDocument_Failure(t *testing.T) {
	server := newTestServer(http.StatusInternalServerError)
	defer server.Close()

	err := newTestIndexer(t, server.URL).IndexDocument(context.Background(), "idx", "1", map[string]int{"a": 1})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchError))
}

func TestIndexDocument_Unmarshalable(t *testing.T) {
	server := newTestServer(http.StatusOK)
	defer server.Close()

	err := newTestIndexer(t, server.URL).IndexDocument(context.Background(), "idx", "1", func() {})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestDeleteDocument(t *testing.T) {
	server := newTestServer(http.StatusNotFound)
	defer server.Close()

	err := newTestIndexer(t, server.URL).DeleteDocument(context.Background(), "idx", "gone")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestResultsIndexMapping(t *testing.T) {
	m := ResultsIndexMapping()
	require.NotNil(t, m.Mappings)
	props := m.Mappings["properties"].(map[string]interface{})
	assert.Contains(t, props, "ingestion_id")
	assert.Contains(t, props, "results")
}

//Personal.AI order the ending
