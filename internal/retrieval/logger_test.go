package retrieval

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogger_WritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	logger := NewQueryLogger(&buf)

	logger.Log(QueryLogEntry{Query: "first", NumResults: 2, Duration: 42 * time.Millisecond, CorrelationID: "corr-1"})
	logger.Log(QueryLogEntry{Query: "second", NumResults: 0, Duration: time.Millisecond})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first QueryLogEntry
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "first", first.Query)
	assert.Equal(t, int64(42), first.LatencyMs)
	assert.Equal(t, "corr-1", first.CorrelationID)
}

func TestNewFileQueryLogger_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "query.log")

	logger, err := NewFileQueryLogger(path)
	require.NoError(t, err)

	logger.Log(QueryLogEntry{Query: "hello"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"query":"hello"`)
}
