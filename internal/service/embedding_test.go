package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cairoware/tourbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingRecordRepo is a mock implementation of EmbeddingRecordRepository
type MockEmbeddingRecordRepo struct {
	mock.Mock
}

func (m *MockEmbeddingRecordRepo) ListMissingEmbeddings(ctx context.Context, table string, batch int) ([]*domain.Record, error) {
	args := m.Called(ctx, table, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Record), args.Error(1)
}

func (m *MockEmbeddingRecordRepo) UpdateEmbedding(ctx context.Context, table string, id int64, embedding []float32) error {
	args := m.Called(ctx, table, id, embedding)
	return args.Error(0)
}

func backfillRecord(id int64, nameEN string) *domain.Record {
	return &domain.Record{
		ID:    id,
		Table: "attractions",
		Data: map[string]any{
			"name":        map[string]any{"en": nameEN},
			"description": map[string]any{"en": "worth a visit"},
		},
	}
}

func TestEmbeddingService_BackfillTable(t *testing.T) {
	repo := new(MockEmbeddingRecordRepo)
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, repo)

	records := []*domain.Record{
		backfillRecord(1, "Egyptian Museum"),
		backfillRecord(2, "Citadel"),
	}
	embedding := []float32{0.1, 0.2, 0.3}

	repo.On("ListMissingEmbeddings", mock.Anything, "attractions", 50).Return(records, nil)
	client.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(embedding, nil)
	repo.On("UpdateEmbedding", mock.Anything, "attractions", int64(1), embedding).Return(nil)
	repo.On("UpdateEmbedding", mock.Anything, "attractions", int64(2), embedding).Return(nil)

	n, err := svc.BackfillTable(context.Background(), "attractions", 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertExpectations(t)
}

func TestEmbeddingService_BackfillTable_SkipsEmptyText(t *testing.T) {
	repo := new(MockEmbeddingRecordRepo)
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, repo)

	empty := &domain.Record{ID: 1, Table: "attractions", Data: map[string]any{}}
	repo.On("ListMissingEmbeddings", mock.Anything, "attractions", 50).
		Return([]*domain.Record{empty}, nil)

	n, err := svc.BackfillTable(context.Background(), "attractions", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestEmbeddingService_BackfillTable_StopsOnClientError(t *testing.T) {
	repo := new(MockEmbeddingRecordRepo)
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, repo)

	records := []*domain.Record{
		backfillRecord(1, "Egyptian Museum"),
		backfillRecord(2, "Citadel"),
	}
	embedding := []float32{0.1, 0.2, 0.3}

	repo.On("ListMissingEmbeddings", mock.Anything, "attractions", 50).Return(records, nil)
	client.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).
		Return(embedding, nil).Once()
	repo.On("UpdateEmbedding", mock.Anything, "attractions", int64(1), embedding).Return(nil)
	client.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, errors.New("rate limited"))

	n, err := svc.BackfillTable(context.Background(), "attractions", 50)
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddingService_BackfillTable_NonEmbeddingTableIsNoop(t *testing.T) {
	repo := new(MockEmbeddingRecordRepo)
	svc := NewEmbeddingService(new(MockEmbeddingClient), repo)

	n, err := svc.BackfillTable(context.Background(), "users", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	repo.AssertNotCalled(t, "ListMissingEmbeddings", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmbeddingService_BackfillTable_UnknownTable(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingRecordRepo))

	_, err := svc.BackfillTable(context.Background(), "nonexistent", 50)
	assert.ErrorIs(t, err, domain.ErrInvalidTable)
}

func TestEmbeddingService_BackfillAll(t *testing.T) {
	repo := new(MockEmbeddingRecordRepo)
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, repo)

	// Every embedding-capable table gets one batch; only attractions has work.
	repo.On("ListMissingEmbeddings", mock.Anything, "attractions", 10).
		Return([]*domain.Record{backfillRecord(1, "Museum")}, nil)
	repo.On("ListMissingEmbeddings", mock.Anything, mock.AnythingOfType("string"), 10).
		Return([]*domain.Record{}, nil)

	embedding := []float32{0.1}
	client.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(embedding, nil)
	repo.On("UpdateEmbedding", mock.Anything, "attractions", int64(1), embedding).Return(nil)

	n, err := svc.BackfillAll(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
