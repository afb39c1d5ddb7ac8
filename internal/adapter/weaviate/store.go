// Package weaviate adapts the Weaviate client to the pipeline's index
// contracts: the vector index written by ingestion and the two ranked
// lookups (BM25, nearVector) consumed by retrieval.
package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"notebase/internal/chunk"
	"notebase/internal/retrieval"
	"notebase/internal/vector"
)

// chunkNamespace makes object UUIDs a pure function of the chunk id, so an
// upsert always lands on the same object.
var chunkNamespace = uuid.MustParse("8a6e0804-2bd0-4672-b79d-d97027f9071a")

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes one chunk vector under its stable chunk id, replacing any
// previous object for that id.
func (s *Store) Upsert(ctx context.Context, c chunk.Chunk, vec []float32) error {
	// Weaviate has no create-or-replace, so clear the slot first. The
	// batch deleter is a no-op when the chunk does not exist yet.
	if err := s.deleteWhere(ctx, whereChunkIDs([]string{c.ChunkID})); err != nil {
		return fmt.Errorf("clear chunk %s: %w", c.ChunkID, err)
	}

	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithID(objectID(c.ChunkID)).
		WithProperties(map[string]interface{}{
			"chunkId":    c.ChunkID,
			"entityId":   c.EntityID,
			"chunkIndex": c.Index,
			"content":    c.Text,
			"title":      firstLine(c.Text),
			"scope":      string(c.Metadata.Scope),
			"projectId":  c.Metadata.ProjectID,
		}).
		WithVector(vec).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("create chunk %s: %w", c.ChunkID, err)
	}
	return nil
}

// DeleteByIDs removes the given chunk ids in one batch.
func (s *Store) DeleteByIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	return s.deleteWhere(ctx, whereChunkIDs(chunkIDs))
}

// ChunkIDsByEntity lists the chunk ids currently indexed for an entity.
// This stands in for prefix deletion, which the index does not support.
func (s *Store) ChunkIDsByEntity(ctx context.Context, entityID string) ([]string, error) {
	where := filters.Where().
		WithPath([]string{"entityId"}).
		WithOperator(filters.Equal).
		WithValueString(entityID)

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(1000).
		WithFields(graphql.Field{Name: "chunkId"}).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, graphqlError(res.Errors)
	}

	var ids []string
	for _, props := range objects(res.Data) {
		if id, ok := props["chunkId"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SearchBM25 runs a keyword query and returns hits ranked by the index's
// own ordering.
func (s *Store) SearchBM25(ctx context.Context, query string, limit int, f retrieval.Filter) ([]retrieval.Hit, error) {
	bm25 := s.client.GraphQL().Bm25ArgBuilder().
		WithQuery(query).
		WithProperties("content", "title")

	builder := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithBM25(bm25).
		WithLimit(limit).
		WithFields(hitFields()...)
	if where := whereFilter(f); where != nil {
		builder = builder.WithWhere(where)
	}

	res, err := builder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, graphqlError(res.Errors)
	}
	return toHits(res.Data), nil
}

// SearchVector runs a nearVector query against the same class.
func (s *Store) SearchVector(ctx context.Context, vec []float32, limit int, f retrieval.Filter) ([]retrieval.Hit, error) {
	near := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	builder := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(near).
		WithLimit(limit).
		WithFields(hitFields()...)
	if where := whereFilter(f); where != nil {
		builder = builder.WithWhere(where)
	}

	res, err := builder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, graphqlError(res.Errors)
	}
	return toHits(res.Data), nil
}

// CountChunks reports the number of indexed chunk objects.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, graphqlError(res.Errors)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := agg[vector.ClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, ok := meta["count"].(float64)
	if !ok {
		return 0, nil
	}
	return int(count), nil
}

func (s *Store) deleteWhere(ctx context.Context, where *filters.WhereBuilder) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	return err
}

func objectID(chunkID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String()
}

func whereChunkIDs(chunkIDs []string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"chunkId"}).
		WithOperator(filters.ContainsAny).
		WithValueString(chunkIDs...)
}

func whereFilter(f retrieval.Filter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	if f.Scope != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"scope"}).
			WithOperator(filters.Equal).
			WithValueString(f.Scope))
	}
	if f.ProjectID != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"projectId"}).
			WithOperator(filters.Equal).
			WithValueString(f.ProjectID))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

func hitFields() []graphql.Field {
	return []graphql.Field{
		{Name: "chunkId"},
		{Name: "entityId"},
		{Name: "content"},
		{Name: "title"},
		{Name: "scope"},
		{Name: "projectId"},
	}
}

// objects unwraps the Get response down to the property maps.
func objects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return nil
	}

	var out []map[string]interface{}
	for _, o := range raw {
		if props, ok := o.(map[string]interface{}); ok {
			out = append(out, props)
		}
	}
	return out
}

// toHits converts a ranked GraphQL response, assigning 1-based ranks by
// response position.
func toHits(data map[string]models.JSONObject) []retrieval.Hit {
	var hits []retrieval.Hit
	for i, props := range objects(data) {
		hit := retrieval.Hit{Rank: i + 1}
		if v, ok := props["chunkId"].(string); ok {
			hit.ChunkID = v
		}
		if v, ok := props["entityId"].(string); ok {
			hit.EntityID = v
		}
		if v, ok := props["content"].(string); ok {
			hit.Content = v
		}
		if v, ok := props["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := props["scope"].(string); ok {
			hit.Scope = v
		}
		if v, ok := props["projectId"].(string); ok {
			hit.ProjectID = v
		}
		hits = append(hits, hit)
	}
	return hits
}

func graphqlError(errs interface{}) error {
	return fmt.Errorf("graphql error: %v", errs)
}

// firstLine extracts a display title from chunk text; the entity title is
// the first line of the first chunk and carries over well enough for the
// rest.
func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}
