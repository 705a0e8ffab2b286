package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/database"
	"github.com/tably-inc/tably-engine/pkg/models"
)

// RecordRepository defines the interface for CRM record access.
type RecordRepository interface {
	InsertRecords(ctx context.Context, records []*models.Record) error
	Get(ctx context.Context, orgID, recordID uuid.UUID) (*models.Record, error)
	GetByIDs(ctx context.Context, orgID uuid.UUID, recordIDs []uuid.UUID) ([]*models.Record, error)
	Update(ctx context.Context, record *models.Record) error
}

// recordRepository implements RecordRepository using PostgreSQL.
type recordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *database.DB) RecordRepository {
	return &recordRepository{db: db}
}

const recordColumns = `id, organization_id, table_id, name, email, phone, company, attributes, metadata, created_at, updated_at`

// InsertRecords inserts a batch of records in a single transaction. All
// records must belong to the same organization and table.
func (r *recordRepository) InsertRecords(ctx context.Context, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO engine_records (id, organization_id, table_id, name, email, phone, company, attributes, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now

		attrs, err := marshalDoc(rec.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal attributes: %w", err)
		}
		meta, err := marshalDoc(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		if _, err := tx.Exec(ctx, query,
			rec.ID, rec.OrganizationID, rec.TableID,
			rec.Name, rec.Email, rec.Phone, rec.Company,
			attrs, meta,
		); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	return nil
}

// Get retrieves a single record scoped to the organization.
func (r *recordRepository) Get(ctx context.Context, orgID, recordID uuid.UUID) (*models.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM engine_records
		WHERE id = $1 AND organization_id = $2`, recordColumns)

	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, query, recordID, orgID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// GetByIDs retrieves multiple records scoped to the organization.
// Missing IDs are silently omitted from the result.
func (r *recordRepository) GetByIDs(ctx context.Context, orgID uuid.UUID, recordIDs []uuid.UUID) ([]*models.Record, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM engine_records
		WHERE organization_id = $1 AND id = ANY($2)`, recordColumns)

	rows, err := r.db.Pool.Query(ctx, query, orgID, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// Update rewrites a record's fields, attributes, and metadata.
func (r *recordRepository) Update(ctx context.Context, record *models.Record) error {
	attrs, err := marshalDoc(record.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	meta, err := marshalDoc(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		UPDATE engine_records
		SET name = $1, email = $2, phone = $3, company = $4,
		    attributes = $5, metadata = $6, updated_at = NOW()
		WHERE id = $7 AND organization_id = $8`

	tag, err := r.db.Pool.Exec(ctx, query,
		record.Name, record.Email, record.Phone, record.Company,
		attrs, meta,
		record.ID, record.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var attrs, meta []byte

	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &rec.TableID,
		&rec.Name, &rec.Email, &rec.Phone, &rec.Company,
		&attrs, &meta,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &rec, nil
}

func marshalDoc(doc map[string]any) ([]byte, error) {
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}
