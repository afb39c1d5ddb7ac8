// Package vector manages the Weaviate schema backing both the vector and
// the keyword index: a single EntityChunk class queried with nearVector and
// BM25 respectively.
package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the Weaviate class holding one object per chunk.
const ClassName = "EntityChunk"

// SchemaClient is the slice of the Weaviate schema API we use.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema creates the EntityChunk class if missing, or adds any
// properties a newer release introduced. Vectors are supplied by the app
// (vectorizer "none").
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "chunkId",
			DataType: []string{"string"}, // "{entityId}#chunk{index}", exact match
		},
		{
			Name:     "entityId",
			DataType: []string{"string"},
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
		{
			Name:     "content",
			DataType: []string{"text"}, // BM25-searchable chunk text
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "scope",
			DataType: []string{"string"}, // WORK | PROJECT | PERSON | DEPARTMENT
		},
		{
			Name:     "projectId",
			DataType: []string{"string"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "An embeddable chunk of a knowledge entity",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range properties {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}
	return nil
}
