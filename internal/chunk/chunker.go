package chunk

import (
	"strings"
	"unicode/utf8"
)

// Sliding-window parameters. Token counts are estimated at ~4 chars per
// token, so the window is expressed in characters internally.
const (
	MaxChunkTokens = 512
	CharsPerToken  = 4
	OverlapRatio   = 0.2

	// MaxDisplayChars bounds reconstructed chunk text shown to operators.
	MaxDisplayChars = 500
)

const (
	maxChunkChars = MaxChunkTokens * CharsPerToken
	overlapChars  = maxChunkChars / 5 // OverlapRatio of the window, in integer arithmetic
	windowStep    = maxChunkChars - overlapChars
)

// Scope is the entity category a chunk belongs to. It is stored alongside
// the vector so retrieval can filter by category.
type Scope string

const (
	ScopeWork       Scope = "WORK"
	ScopeProject    Scope = "PROJECT"
	ScopePerson     Scope = "PERSON"
	ScopeDepartment Scope = "DEPARTMENT"
)

// Metadata is the bounded set of filter keys carried by every chunk.
type Metadata struct {
	Scope     Scope
	ProjectID string
}

// Chunk is one embeddable segment of an entity's content. Chunks are
// transient: they only persist as vectors keyed by ChunkID.
type Chunk struct {
	ChunkID         string
	EntityID        string
	Index           int
	Text            string
	EstimatedTokens int
	Metadata        Metadata
}

// EstimateTokens returns ceil(len/4). A deliberate cheap approximation,
// not a real tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// Combine builds the full indexable text for an entity: the title followed
// by the body. Chunk boundaries and display reconstruction both operate on
// this combined string, so callers must use it consistently.
func Combine(title, text string) string {
	title = strings.TrimSpace(title)
	text = strings.TrimSpace(text)
	if text == "" {
		return title
	}
	if title == "" {
		return text
	}
	return title + "\n\n" + text
}

// Split cuts the entity's content into ordered, overlapping chunks. It never
// returns an empty list: empty content still yields a single chunk carrying
// the title. Indexes are contiguous from 0 and every chunk carries the same
// metadata.
func Split(entityID, title, text string, meta Metadata) []Chunk {
	full := Combine(title, text)

	if EstimateTokens(full) <= MaxChunkTokens {
		return []Chunk{{
			ChunkID:         GenerateChunkID(entityID, 0),
			EntityID:        entityID,
			Index:           0,
			Text:            full,
			EstimatedTokens: EstimateTokens(full),
			Metadata:        meta,
		}}
	}

	var chunks []Chunk
	for index := 0; ; index++ {
		start, end := windowBounds(full, index)
		if start >= len(full) {
			break
		}
		segment := full[start:end]
		chunks = append(chunks, Chunk{
			ChunkID:         GenerateChunkID(entityID, index),
			EntityID:        entityID,
			Index:           index,
			Text:            segment,
			EstimatedTokens: EstimateTokens(segment),
			Metadata:        meta,
		})
		if end >= len(full) {
			break
		}
	}
	return chunks
}

// Text reconstructs the approximate content of chunk `index` from the
// sliding-window parameters, truncated for display.
func Text(fullText string, index int) string {
	if index < 0 {
		return ""
	}
	start, end := windowBounds(fullText, index)
	if start >= len(fullText) {
		return ""
	}
	return Truncate(fullText[start:end])
}

// Truncate caps text at MaxDisplayChars without cutting a multi-byte rune,
// appending an ellipsis when anything was dropped.
func Truncate(text string) string {
	if len(text) <= MaxDisplayChars {
		return text
	}
	return text[:runeStart(text, MaxDisplayChars)] + "..."
}

// Window offsets are byte counts, so both edges are snapped back to the
// nearest rune boundary before slicing.
func windowBounds(s string, index int) (int, int) {
	start := index * windowStep
	if start >= len(s) {
		return len(s), len(s)
	}
	end := start + maxChunkChars
	if end > len(s) {
		end = len(s)
	}
	return runeStart(s, start), runeStart(s, end)
}

func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
