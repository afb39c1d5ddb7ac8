package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"notebase/internal/chunk"
	"notebase/internal/config"
	"notebase/internal/retrieval"
)

type stubVectorStore struct{}

func (s *stubVectorStore) Upsert(ctx context.Context, c chunk.Chunk, vector []float32) error {
	return nil
}
func (s *stubVectorStore) DeleteByIDs(ctx context.Context, chunkIDs []string) error { return nil }
func (s *stubVectorStore) ChunkIDsByEntity(ctx context.Context, entityID string) ([]string, error) {
	return nil, nil
}
func (s *stubVectorStore) SearchBM25(ctx context.Context, query string, limit int, f retrieval.Filter) ([]retrieval.Hit, error) {
	return nil, nil
}
func (s *stubVectorStore) SearchVector(ctx context.Context, vector []float32, limit int, f retrieval.Filter) ([]retrieval.Hit, error) {
	return nil, nil
}
func (s *stubVectorStore) CountChunks(ctx context.Context) (int, error) { return 0, nil }

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{
		RetryMaxAttempts:     3,
		EmbedTimeoutSeconds:  5,
		SweepIntervalSeconds: 60,
		SweepBatchSize:       10,
		SweepConcurrency:     2,
		ServerPort:           8081,
		QueryLogPath:         filepath.Join(t.TempDir(), "query.log"),
	}

	a, err := New(cfg, db, &stubVectorStore{}, &stubEmbedder{})
	assert.NoError(t, err)
	assert.NotNil(t, a)
	assert.NotNil(t, a.Handler)
	assert.NotNil(t, a.Sweeper)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_RoutesRegistered(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{
		RetryMaxAttempts:     3,
		EmbedTimeoutSeconds:  5,
		SweepIntervalSeconds: 60,
		SweepBatchSize:       10,
		SweepConcurrency:     2,
		ServerPort:           8081,
		QueryLogPath:         filepath.Join(t.TempDir(), "query.log"),
	}

	a, err := New(cfg, db, &stubVectorStore{}, &stubEmbedder{})
	assert.NoError(t, err)

	// A request with a missing query parameter exercises the search route
	// without touching any backend.
	req := httptest.NewRequest("GET", "/search", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown routes fall through to the mux 404.
	req = httptest.NewRequest("GET", "/nope", nil)
	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
