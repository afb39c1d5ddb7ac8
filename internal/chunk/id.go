package chunk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChunkID is returned when a chunk id does not follow the
// "{entityId}#chunk{index}" format. This indicates a programming error or
// corrupted index data, never a retryable condition.
var ErrInvalidChunkID = errors.New("invalid chunk id")

const idSeparator = "#chunk"

// GenerateChunkID encodes an entity id and chunk index as a stable vector
// store key: "{entityId}#chunk{index}".
func GenerateChunkID(entityID string, index int) string {
	return fmt.Sprintf("%s%s%d", entityID, idSeparator, index)
}

// ParseChunkID decodes a chunk id back into its entity id and index.
// Entity ids may contain '-' and '#', so the id is split on the last
// "#chunk" marker rather than on generic delimiters.
func ParseChunkID(chunkID string) (string, int, error) {
	pos := strings.LastIndex(chunkID, idSeparator)
	if pos <= 0 {
		return "", 0, fmt.Errorf("%w: missing %q separator in %q", ErrInvalidChunkID, idSeparator, chunkID)
	}

	entityID := chunkID[:pos]
	suffix := chunkID[pos+len(idSeparator):]
	if suffix == "" || !isDigits(suffix) {
		return "", 0, fmt.Errorf("%w: non-numeric index %q in %q", ErrInvalidChunkID, suffix, chunkID)
	}

	index, err := strconv.Atoi(suffix)
	if err != nil {
		return "", 0, fmt.Errorf("%w: index %q in %q", ErrInvalidChunkID, suffix, chunkID)
	}
	return entityID, index, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
