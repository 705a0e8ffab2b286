// Package repositories provides PostgreSQL data access for tables and
// records. All queries are scoped by organization ID.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/database"
	"github.com/tably-inc/tably-engine/pkg/models"
)

// TableRepository defines the interface for table definition access.
type TableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	Get(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error)
}

// tableRepository implements TableRepository using PostgreSQL.
type tableRepository struct {
	db *database.DB
}

// NewTableRepository creates a new table repository.
func NewTableRepository(db *database.DB) TableRepository {
	return &tableRepository{db: db}
}

// Create inserts a new table definition.
func (r *tableRepository) Create(ctx context.Context, table *models.Table) error {
	if table.ID == uuid.Nil {
		table.ID = uuid.New()
	}

	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	query := `
		INSERT INTO engine_tables (id, organization_id, name, columns)
		VALUES ($1, $2, $3, $4)`

	_, err = r.db.Pool.Exec(ctx, query, table.ID, table.OrganizationID, table.Name, columns)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// Get retrieves a table definition scoped to the organization.
func (r *tableRepository) Get(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error) {
	query := `
		SELECT id, organization_id, name, columns, created_at
		FROM engine_tables
		WHERE id = $1 AND organization_id = $2`

	var table models.Table
	var columns []byte

	err := r.db.Pool.QueryRow(ctx, query, tableID, orgID).Scan(
		&table.ID,
		&table.OrganizationID,
		&table.Name,
		&columns,
		&table.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}

	if err := json.Unmarshal(columns, &table.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}

	return &table, nil
}
