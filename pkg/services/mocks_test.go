package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/repositories"
)

// mockTableRepo is a function-field mock for TableRepository.
type mockTableRepo struct {
	CreateFunc func(ctx context.Context, table *models.Table) error
	GetFunc    func(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error)
}

var _ repositories.TableRepository = (*mockTableRepo)(nil)

func (m *mockTableRepo) Create(ctx context.Context, table *models.Table) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, table)
	}
	return nil
}

func (m *mockTableRepo) Get(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, orgID, tableID)
	}
	return nil, apperrors.ErrNotFound
}

// mockRecordRepo is an in-memory stand-in for RecordRepository.
type mockRecordRepo struct {
	records  map[uuid.UUID]*models.Record
	inserted [][]*models.Record
	updated  []*models.Record

	InsertErr error
	UpdateErr error
	GetErr    error
}

var _ repositories.RecordRepository = (*mockRecordRepo)(nil)

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[uuid.UUID]*models.Record)}
}

func (m *mockRecordRepo) InsertRecords(ctx context.Context, records []*models.Record) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		m.records[rec.ID] = rec
	}
	m.inserted = append(m.inserted, records)
	return nil
}

func (m *mockRecordRepo) Get(ctx context.Context, orgID, recordID uuid.UUID) (*models.Record, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	rec, ok := m.records[recordID]
	if !ok || rec.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return rec, nil
}

func (m *mockRecordRepo) GetByIDs(ctx context.Context, orgID uuid.UUID, recordIDs []uuid.UUID) ([]*models.Record, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var out []*models.Record
	for _, id := range recordIDs {
		if rec, ok := m.records[id]; ok && rec.OrganizationID == orgID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Update(ctx context.Context, record *models.Record) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.records[record.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.records[record.ID] = record
	m.updated = append(m.updated, record)
	return nil
}

// mockIntentParser returns canned intents for conversation tests.
type mockIntentParser struct {
	ParseFunc func(ctx context.Context, message string, transcript []models.TranscriptEntry, columns []models.Column, selectedCount int) (*models.GenerationIntent, error)
}

var _ IntentParser = (*mockIntentParser)(nil)

func (m *mockIntentParser) Parse(ctx context.Context, message string, transcript []models.TranscriptEntry, columns []models.Column, selectedCount int) (*models.GenerationIntent, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, message, transcript, columns, selectedCount)
	}
	return &models.GenerationIntent{}, nil
}
