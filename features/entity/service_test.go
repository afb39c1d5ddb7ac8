package entity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notebase/features/entity"
	"notebase/features/retryqueue"
	"notebase/internal/chunk"
	"notebase/internal/ingest"
)

// MockRepo implements entity.Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, ent *entity.Entity) error {
	args := m.Called(ctx, ent)
	return args.Error(0)
}
func (m *MockRepo) Get(ctx context.Context, id string) (*entity.Entity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Entity), args.Error(1)
}
func (m *MockRepo) List(ctx context.Context, scope chunk.Scope) ([]entity.Entity, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Entity), args.Error(1)
}
func (m *MockRepo) Update(ctx context.Context, ent *entity.Entity) error {
	args := m.Called(ctx, ent)
	return args.Error(0)
}
func (m *MockRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockIndexer records pipeline notifications.
type MockIndexer struct {
	Upserted []ingest.IndexableEntity
	Ops      []retryqueue.Operation
	Deleted  []string
}

func (m *MockIndexer) EntityUpserted(ctx context.Context, ent ingest.IndexableEntity, op retryqueue.Operation) {
	m.Upserted = append(m.Upserted, ent)
	m.Ops = append(m.Ops, op)
}

func (m *MockIndexer) EntityDeleted(ctx context.Context, entityID string) {
	m.Deleted = append(m.Deleted, entityID)
}

func TestService_Create(t *testing.T) {
	repo := new(MockRepo)
	indexer := &MockIndexer{}
	svc := entity.NewService(repo, indexer)

	ent := &entity.Entity{Scope: chunk.ScopeWork, Title: "Standup notes", Content: "Discussed launch."}
	repo.On("Save", mock.Anything, ent).Return(nil)

	err := svc.Create(context.Background(), ent)
	require.NoError(t, err)
	require.Len(t, indexer.Upserted, 1)
	assert.Equal(t, retryqueue.OpCreate, indexer.Ops[0])
	assert.Equal(t, "Standup notes", indexer.Upserted[0].Title)
	assert.Equal(t, chunk.ScopeWork, indexer.Upserted[0].Meta.Scope)
}

func TestService_Create_InvalidScope(t *testing.T) {
	repo := new(MockRepo)
	indexer := &MockIndexer{}
	svc := entity.NewService(repo, indexer)

	ent := &entity.Entity{Scope: "BOGUS", Title: "x"}
	err := svc.Create(context.Background(), ent)
	assert.ErrorIs(t, err, entity.ErrInvalidScope)
	assert.Empty(t, indexer.Upserted)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Update_PreservesScope(t *testing.T) {
	repo := new(MockRepo)
	indexer := &MockIndexer{}
	svc := entity.NewService(repo, indexer)

	stored := &entity.Entity{ID: "e1", Scope: chunk.ScopePerson, Title: "Jamie", Content: "old"}
	repo.On("Get", mock.Anything, "e1").Return(stored, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	ent := &entity.Entity{ID: "e1", Scope: chunk.ScopeWork, Title: "Jamie", Content: "new"}
	err := svc.Update(context.Background(), ent)
	require.NoError(t, err)

	assert.Equal(t, chunk.ScopePerson, ent.Scope)
	require.Len(t, indexer.Ops, 1)
	assert.Equal(t, retryqueue.OpUpdate, indexer.Ops[0])
}

func TestService_Update_NotFound(t *testing.T) {
	repo := new(MockRepo)
	indexer := &MockIndexer{}
	svc := entity.NewService(repo, indexer)

	repo.On("Get", mock.Anything, "missing").Return(nil, entity.ErrNotFound)

	err := svc.Update(context.Background(), &entity.Entity{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Empty(t, indexer.Upserted)
}

func TestService_Delete(t *testing.T) {
	repo := new(MockRepo)
	indexer := &MockIndexer{}
	svc := entity.NewService(repo, indexer)

	repo.On("SoftDelete", mock.Anything, "e1").Return(nil)

	err := svc.Delete(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, indexer.Deleted)
}

func TestService_List_InvalidScope(t *testing.T) {
	repo := new(MockRepo)
	svc := entity.NewService(repo, &MockIndexer{})

	_, err := svc.List(context.Background(), "NOPE")
	assert.ErrorIs(t, err, entity.ErrInvalidScope)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestService_GetForIndexing(t *testing.T) {
	repo := new(MockRepo)
	svc := entity.NewService(repo, &MockIndexer{})

	stored := &entity.Entity{ID: "e1", Scope: chunk.ScopeProject, Title: "Roadmap", Content: "Q4 plan", ProjectID: "p1"}
	repo.On("Get", mock.Anything, "e1").Return(stored, nil)

	idx, err := svc.GetForIndexing(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", idx.Title)
	assert.Equal(t, "p1", idx.Meta.ProjectID)
}

func TestService_GetForIndexing_Deleted(t *testing.T) {
	repo := new(MockRepo)
	svc := entity.NewService(repo, &MockIndexer{})

	repo.On("Get", mock.Anything, "gone").Return(nil, entity.ErrNotFound)

	_, err := svc.GetForIndexing(context.Background(), "gone")
	assert.ErrorIs(t, err, ingest.ErrEntityNotFound)
}
