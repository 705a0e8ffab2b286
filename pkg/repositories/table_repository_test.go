package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/testhelpers"
)

func testColumns() []models.Column {
	return []models.Column{
		{Name: "name", Label: "Name", Type: "text"},
		{Name: "email", Label: "Email", Type: "text"},
		{Name: "industry", Label: "Industry", Type: "text"},
	}
}

// seedTable inserts a table for a fresh organization and returns it.
func seedTable(t *testing.T, repo TableRepository) *models.Table {
	t.Helper()

	table := &models.Table{
		OrganizationID: uuid.New(),
		Name:           "Companies",
		Columns:        testColumns(),
	}
	require.NoError(t, repo.Create(context.Background(), table))
	return table
}

func TestTableRepositoryCreateAndGet(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewTableRepository(db.DB)

	table := seedTable(t, repo)

	got, err := repo.Get(context.Background(), table.OrganizationID, table.ID)
	require.NoError(t, err)

	assert.Equal(t, table.ID, got.ID)
	assert.Equal(t, "Companies", got.Name)
	assert.Equal(t, testColumns(), got.Columns)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTableRepositoryGetScopedByOrganization(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewTableRepository(db.DB)

	table := seedTable(t, repo)

	_, err := repo.Get(context.Background(), uuid.New(), table.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTableRepositoryGetUnknownID(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewTableRepository(db.DB)

	_, err := repo.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
