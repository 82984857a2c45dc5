package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

// Sample identifies the catalyst sample a measurement was taken on.
type Sample struct {
	LabID string `json:"lab_id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// UploadOptions carries the form fields sent along with an uploaded file.
type UploadOptions struct {
	// Source overrides the file name as the recorded source.
	Source        string
	ReactionName  string
	ReactionClass string
	Sample        *Sample
}

// IngestRequest ingests a file already stored in object storage.  Source must
// be an s3:// URI.
type IngestRequest struct {
	Source        string   `json:"source"`
	ReactionName  string   `json:"reaction_name,omitempty"`
	ReactionClass string   `json:"reaction_class,omitempty"`
	Samples       []Sample `json:"samples,omitempty"`
}

// IngestResult is the outcome of one ingestion.  Record and Results are left
// raw; callers decode the parts they need.
type IngestResult struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Format    string          `json:"format"`
	Archived  string          `json:"archived,omitempty"`
	Warnings  int             `json:"warnings"`
	Record    json.RawMessage `json:"record"`
	Results   json.RawMessage `json:"results"`
	CreatedAt time.Time       `json:"created_at"`
}

// BatchItem is one entry of a batch response.  Exactly one of Result and
// Error is set.
type BatchItem struct {
	Source string        `json:"source"`
	Result *IngestResult `json:"result,omitempty"`
	Error  *ItemError    `json:"error,omitempty"`
}

// ItemError is the failure of a single batch entry.
type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *ItemError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
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

// IngestionList is one page of archived ingestions.
type IngestionList struct {
	Ingestions []*Ingestion `json:"ingestions"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// ─────────────────────────────────────────────────────────────────────────────
// IngestionsClient
// ─────────────────────────────────────────────────────────────────────────────

// IngestionsClient wraps the /api/v1 ingestion endpoints.
type IngestionsClient struct {
	client *Client
}

// Upload sends a local data file as multipart form data.  The reader is
// consumed fully before the first attempt so the body can be replayed on
// retry.
func (ic *IngestionsClient) Upload(ctx context.Context, filename string, r io.Reader, opts *UploadOptions) (*IngestResult, error) {
	if filename == "" {
		return nil, errors.InvalidParam("filename is required")
	}
	if r == nil {
		return nil, errors.InvalidParam("file content is required")
	}
	body, err := multipartBody(filename, r, opts)
	if err != nil {
		return nil, err
	}
	var out IngestResult
	if err := ic.client.do(ctx, http.MethodPost, "/api/v1/ingest", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest asks the server to fetch and ingest an object-storage file.
func (ic *IngestionsClient) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if req == nil || req.Source == "" {
		return nil, errors.InvalidParam("source is required")
	}
	var out IngestResult
	if err := ic.client.post(ctx, "/api/v1/ingest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestBatch ingests several object-storage files in one call.  Per-item
// failures are reported in the returned items, not as an error.
func (ic *IngestionsClient) IngestBatch(ctx context.Context, reqs []IngestRequest) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, errors.InvalidParam("at least one item is required")
	}
	var out struct {
		Items []BatchItem `json:"items"`
	}
	if err := ic.client.post(ctx, "/api/v1/ingest/batch", map[string]interface{}{"items": reqs}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Get fetches an archived ingestion by ID.
func (ic *IngestionsClient) Get(ctx context.Context, id string) (*Ingestion, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	var out Ingestion
	if err := ic.client.get(ctx, "/api/v1/ingestions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of archived ingestions, newest first.  Zero values
// leave the server defaults in place.
func (ic *IngestionsClient) List(ctx context.Context, page, pageSize int) (*IngestionList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := "/api/v1/ingestions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out IngestionList
	if err := ic.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func multipartBody(filename string, r io.Reader, opts *UploadOptions) (*requestBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	if opts != nil {
		fields := map[string]string{
			"source":         opts.Source,
			"reaction_name":  opts.ReactionName,
			"reaction_class": opts.ReactionClass,
		}
		if opts.Sample != nil {
			fields["lab_id"] = opts.Sample.LabID
			fields["sample_name"] = opts.Sample.Name
		}
		for k, v := range fields {
			if v == "" {
				continue
			}
			if err := w.WriteField(k, v); err != nil {
				return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &requestBody{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

//Personal.AI order the ending
