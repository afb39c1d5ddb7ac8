package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_RoundTrip(t *testing.T) {
	cases := []struct {
		entityID string
		index    int
	}{
		{"550e8400-e29b-41d4-a716-446655440000", 0},
		{"ent-1", 7},
		{"weird#chunky-id", 12},
		{"a", 999},
	}

	for _, tc := range cases {
		id := GenerateChunkID(tc.entityID, tc.index)
		entityID, index, err := ParseChunkID(id)
		require.NoError(t, err, id)
		assert.Equal(t, tc.entityID, entityID)
		assert.Equal(t, tc.index, index)
	}
}

func TestParseChunkID_SplitsOnLastMarker(t *testing.T) {
	// Entity ids may themselves contain the marker text.
	entityID, index, err := ParseChunkID("note#chunk5#chunk2")
	require.NoError(t, err)
	assert.Equal(t, "note#chunk5", entityID)
	assert.Equal(t, 2, index)
}

func TestParseChunkID_Invalid(t *testing.T) {
	cases := []string{
		"",
		"no-separator",
		"ent-1#chunk",
		"ent-1#chunk-3",
		"ent-1#chunkabc",
		"ent-1#chunk+2",
		"#chunk3",
	}

	for _, id := range cases {
		_, _, err := ParseChunkID(id)
		assert.ErrorIs(t, err, ErrInvalidChunkID, id)
	}
}
