// Package e2e drives the HTTP API end to end through the Go SDK: router,
// handlers and ingestion service run in-process against an in-memory
// archive.
package e2e

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/internal/application/ingest"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	apihttp "github.com/turtacn/Catalysis-Ingest/internal/interfaces/http"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/handlers"
	"github.com/turtacn/Catalysis-Ingest/pkg/client"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

const coOxidation = "FHI-ID,x CO (%),x O2 (%),x_r CO (%),S_p CO2 (%),temperature K\n" +
	"FHI-7,1,20,10,90,500\n" +
	",1,20,30,95,550\n"

// ─────────────────────────────────────────────────────────────────────────────
// In-memory archive
// ─────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repositories.Ingestion
	tick time.Time
}

func newMemStore() *memStore {
	return &memStore{
		rows: make(map[uuid.UUID]*repositories.Ingestion),
		tick: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) Save(_ context.Context, in *repositories.Ingestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	s.tick = s.tick.Add(time.Second)
	in.CreatedAt = s.tick
	cp := *in
	s.rows[in.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*repositories.Ingestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.NotFound("ingestion not found").WithDetail(id.String())
	}
	cp := *row
	return &cp, nil
}

func (s *memStore) ListRecent(_ context.Context, limit, offset int) ([]*repositories.Ingestion, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*repositories.Ingestion, 0, len(s.rows))
	for _, r := range s.rows {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Harness
// ─────────────────────────────────────────────────────────────────────────────

func startAPI(t *testing.T) *client.Client {
	t.Helper()
	logger := logging.NewNopLogger()
	svc := ingest.NewService(ingest.Dependencies{Store: newMemStore()}, ingest.Options{Workers: 2}, logger)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		IngestHandler: handlers.NewIngestHandler(svc, logger, 1<<20),
		HealthHandler: handlers.NewHealthHandler("e2e"),
		Logger:        logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := client.NewClient(srv.URL, client.WithRetryMax(0))
	require.NoError(t, err)
	return c
}

type resultsTree struct {
	Properties struct {
		Catalytic struct {
			Reaction struct {
				Name      string `json:"name"`
				Reactants []struct {
					Name string `json:"name"`
				} `json:"reactants"`
				Products []struct {
					Name string `json:"name"`
				} `json:"products"`
				Conditions struct {
					Temperature struct {
						Values []float64 `json:"values"`
					} `json:"temperature"`
				} `json:"reaction_conditions"`
			} `json:"reaction"`
		} `json:"catalytic"`
	} `json:"properties"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenarios
// ─────────────────────────────────────────────────────────────────────────────

func TestE2E_UploadGetList(t *testing.T) {
	c := startAPI(t)
	ctx := context.Background()

	res, err := c.Ingestions().Upload(ctx, "co_oxidation.csv", strings.NewReader(coOxidation),
		&client.UploadOptions{ReactionName: "CO oxidation", ReactionClass: "oxidation"})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Equal(t, "co_oxidation.csv", res.Source)
	require.NotEmpty(t, res.ID)

	var tree resultsTree
	require.NoError(t, json.Unmarshal(res.Results, &tree))
	rx := tree.Properties.Catalytic.Reaction
	assert.Equal(t, "CO oxidation", rx.Name)
	require.Len(t, rx.Reactants, 1)
	assert.Equal(t, "CO", rx.Reactants[0].Name)
	require.Len(t, rx.Products, 1)
	assert.Equal(t, "CO2", rx.Products[0].Name)
	assert.Equal(t, []float64{500, 550}, rx.Conditions.Temperature.Values)

	got, err := c.Ingestions().Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.Status)
	assert.Equal(t, "FHI-7", got.LabID)
	assert.Equal(t, "CO oxidation", got.ReactionName)

	_, err = c.Ingestions().Upload(ctx, "second.csv", strings.NewReader(coOxidation), nil)
	require.NoError(t, err)

	page, err := c.Ingestions().List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Ingestions, 1)
	assert.Equal(t, "second.csv", page.Ingestions[0].Source)
}

func TestE2E_Errors(t *testing.T) {
	c := startAPI(t)
	ctx := context.Background()

	_, err := c.Ingestions().Upload(ctx, "notes.txt", strings.NewReader("hello"), nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 415, apiErr.StatusCode)

	_, err = c.Ingestions().Get(ctx, uuid.NewString())
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())

	_, err = c.Ingestions().Ingest(ctx, &client.IngestRequest{Source: "/etc/passwd"})
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsValidation())
}

func TestE2E_BatchWithoutObjectStorage(t *testing.T) {
	c := startAPI(t)

	items, err := c.Ingestions().IngestBatch(context.Background(), []client.IngestRequest{
		{Source: "s3://lab-data/a.csv"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Result)
	require.NotNil(t, items[0].Error)
}

//Personal.AI order the ending
