package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// Ingestion statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Ingestion is one archived run of the pipeline over a lab-data file.
type Ingestion struct {
	ID           uuid.UUID
	Source       string
	Format       string
	Status       string
	ReactionName string
	LabID        string
	Warnings     int
	Error        string
	Record       json.RawMessage
	Results      json.RawMessage
	CreatedAt    time.Time
}

// IngestionRepository persists ingestion runs.
type IngestionRepository struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

func NewIngestionRepository(conn *postgres.Connection, log logging.Logger) *IngestionRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &IngestionRepository{conn: conn, log: log}
}

// WithTx returns a repository bound to tx.
func (r *IngestionRepository) WithTx(tx *sql.Tx) *IngestionRepository {
	return &IngestionRepository{conn: r.conn, tx: tx, log: r.log}
}

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *IngestionRepository) executor() sqlExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

const ingestionColumns = `id, source, format, status, reaction_name, lab_id, warnings, error, record, results, created_at`

// Save inserts the ingestion or overwrites an earlier row with the same id.
// CreatedAt is filled from the database.
func (r *IngestionRepository) Save(ctx context.Context, in *Ingestion) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	query := `
		INSERT INTO ingestions (
			id, source, format, status, reaction_name, lab_id, warnings, error, record, results
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			reaction_name = EXCLUDED.reaction_name,
			lab_id = EXCLUDED.lab_id,
			warnings = EXCLUDED.warnings,
			error = EXCLUDED.error,
			record = EXCLUDED.record,
			results = EXCLUDED.results
		RETURNING created_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		in.ID, in.Source, in.Format, in.Status,
		nullString(in.ReactionName), nullString(in.LabID), in.Warnings, nullString(in.Error),
		nullJSON(in.Record), nullJSON(in.Results),
	).Scan(&in.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save ingestion")
	}
	r.log.Debug("Ingestion saved", logging.String("id", in.ID.String()), logging.String("status", in.Status))
	return nil
}

// GetByID returns the ingestion with the given id.
func (r *IngestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Ingestion, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+ingestionColumns+` FROM ingestions WHERE id = $1`, id)
	in, err := scanIngestion(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("ingestion not found").WithDetail(id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get ingestion")
	}
	return in, nil
}

// ListRecent returns ingestions newest first together with the total count.
func (r *IngestionRepository) ListRecent(ctx context.Context, limit, offset int) ([]*Ingestion, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.executor().QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestions`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count ingestions")
	}

	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+ingestionColumns+` FROM ingestions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list ingestions")
	}
	defer rows.Close()

	var out []*Ingestion
	for rows.Next() {
		in, err := scanIngestion(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan ingestion")
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate ingestions")
	}
	return out, total, nil
}

func scanIngestion(s interface{ Scan(dest ...any) error }) (*Ingestion, error) {
	var (
		in                         Ingestion
		reactionName, labID, cause sql.NullString
		record, results            []byte
	)
	err := s.Scan(&in.ID, &in.Source, &in.Format, &in.Status, &reactionName, &labID,
		&in.Warnings, &cause, &record, &results, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	in.ReactionName = reactionName.String
	in.LabID = labID.String
	in.Error = cause.String
	if len(record) > 0 {
		in.Record = json.RawMessage(record)
	}
	if len(results) > 0 {
		in.Results = json.RawMessage(results)
	}
	return &in, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b json.RawMessage) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

//Personal.AI order the ending
