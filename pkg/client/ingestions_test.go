package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ingestResultJSON = `{
	"id": "6f1c",
	"source": "co_oxidation.csv",
	"format": "csv",
	"warnings": 1,
	"record": {"reaction_name": "CO oxidation"},
	"results": {"properties": {"catalytic": {}}},
	"created_at": "2026-10-19T08:00:00Z"
}`

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/ingest", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "co_oxidation.csv", fh.Filename)
		assert.Equal(t, "step,x CO\n1,0.01\n", string(content))

		assert.Equal(t, "CO oxidation", r.FormValue("reaction_name"))
		assert.Equal(t, "FHI-7", r.FormValue("lab_id"))
		assert.Empty(t, r.FormValue("reaction_class"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(ingestResultJSON))
	})

	res, err := c.Ingestions().Upload(context.Background(), "co_oxidation.csv",
		strings.NewReader("step,x CO\n1,0.01\n"),
		&UploadOptions{ReactionName: "CO oxidation", Sample: &Sample{LabID: "FHI-7"}})
	require.NoError(t, err)
	assert.Equal(t, "6f1c", res.ID)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, 1, res.Warnings)
	assert.Equal(t, 2026, res.CreatedAt.Year())

	var rec struct {
		ReactionName string `json:"reaction_name"`
	}
	require.NoError(t, json.Unmarshal(res.Record, &rec))
	assert.Equal(t, "CO oxidation", rec.ReactionName)
}

func TestUpload_Validation(t *testing.T) {
	c, err := NewClient("http://localhost")
	require.NoError(t, err)
	_, err = c.Ingestions().Upload(context.Background(), "", strings.NewReader("x"), nil)
	assert.Error(t, err)
	_, err = c.Ingestions().Upload(context.Background(), "a.csv", nil, nil)
	assert.Error(t, err)
}

func TestIngest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req IngestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s3://lab-data/run.xlsx", req.Source)
		require.Len(t, req.Samples, 1)
		assert.Equal(t, "FHI-9", req.Samples[0].LabID)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(ingestResultJSON))
	})

	res, err := c.Ingestions().Ingest(context.Background(), &IngestRequest{
		Source:  "s3://lab-data/run.xlsx",
		Samples: []Sample{{LabID: "FHI-9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "6f1c", res.ID)

	_, err = c.Ingestions().Ingest(context.Background(), &IngestRequest{})
	assert.Error(t, err)
}

func TestIngestBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ingest/batch", r.URL.Path)
		var body struct {
			Items []IngestRequest `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Items, 2)
		w.Write([]byte(`{"items":[
			{"source":"s3://b/a.csv","result":{"id":"1","format":"csv"}},
			{"source":"s3://b/b.txt","error":{"code":"ING_001","message":"unsupported file format"}}
		]}`))
	})

	items, err := c.Ingestions().IngestBatch(context.Background(), []IngestRequest{
		{Source: "s3://b/a.csv"}, {Source: "s3://b/b.txt"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Result.ID)
	assert.Nil(t, items[0].Error)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, "ING_001: unsupported file format", items[1].Error.Error())

	_, err = c.Ingestions().IngestBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/ingestions/missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"COMMON_005","message":"ingestion not found"}`))
			return
		}
		assert.Equal(t, "/api/v1/ingestions/6f1c", r.URL.Path)
		w.Write([]byte(`{"id":"6f1c","status":"succeeded","lab_id":"FHI-7","warnings":0}`))
	})

	got, err := c.Ingestions().Get(context.Background(), "6f1c")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.Status)
	assert.Equal(t, "FHI-7", got.LabID)

	_, err = c.Ingestions().Get(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())

	_, err = c.Ingestions().Get(context.Background(), "")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Write([]byte(`{"ingestions":[{"id":"a"},{"id":"b"}],"total":12,"page":2,"page_size":2,"total_pages":6}`))
	})

	res, err := c.Ingestions().List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, res.Ingestions, 2)
	assert.Equal(t, int64(12), res.Total)
	assert.Equal(t, 6, res.TotalPages)

	_, err = c.Ingestions().List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"page=2&page_size=2", ""}, queries)
}

//Personal.AI order the ending
