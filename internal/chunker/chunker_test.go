package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestNewSplitter(t *testing.T) {
	t.Run("defaults on non-positive size", func(t *testing.T) {
		s := NewSplitter(0, -1)
		assert.Equal(t, DefaultChunkSize, s.chunkSize)
		assert.Equal(t, 0, s.overlap)
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		s := NewSplitter(100, 150)
		assert.Less(t, s.overlap, s.chunkSize)
	})
}

func TestSplit_Empty(t *testing.T) {
	s := NewSplitter(500, 75)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\t  "))
}

func TestSplit_FitsInOneChunk(t *testing.T) {
	s := NewSplitter(500, 75)
	text := "A short page that fits."
	pieces := s.Split(text)
	require.Len(t, pieces, 1)
	assert.Equal(t, text, pieces[0])
}

func TestSplit_HardCutStride(t *testing.T) {
	// 1200 unbreakable runes with size 500 and overlap 75 cut at stride 425,
	// giving exactly three pieces.
	s := NewSplitter(500, 75)
	text := strings.Repeat("a", 1200)

	pieces := s.Split(text)
	require.Len(t, pieces, 3)
	assert.Equal(t, 500, len([]rune(pieces[0])))
	assert.Equal(t, 500, len([]rune(pieces[1])))
	assert.Equal(t, 350, len([]rune(pieces[2])))
}

func TestSplit_RespectsSentenceBoundaries(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog near the river bank. "
	text := strings.TrimSpace(strings.Repeat(sentence, 20))

	s := NewSplitter(200, 30)
	pieces := s.Split(text)
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len([]rune(p)), 200)
	}
	// Sentences stay whole: every piece ends on a sentence boundary.
	for _, p := range pieces {
		assert.True(t, strings.HasSuffix(strings.TrimRight(p, " "), "."),
			"piece should end at a sentence boundary: %q", p)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s := NewSplitter(120, 20)
	text := strings.Repeat("Retrieval systems index documents as chunks. ", 30)
	first := s.Split(text)
	second := s.Split(text)
	assert.Equal(t, first, second)
}

func TestSplit_OverlapSharedAcrossHardCuts(t *testing.T) {
	s := NewSplitter(500, 75)
	text := strings.Repeat("0123456789", 120) // 1200 runes, no separators

	pieces := s.Split(text)
	require.Len(t, pieces, 3)
	// Each piece starts 425 runes after the previous one, so the last 75
	// runes of one piece open the next.
	assert.Equal(t, pieces[0][425:], pieces[1][:75])
	assert.Equal(t, pieces[1][425:], pieces[2][:75])
}

func TestAssignIDs(t *testing.T) {
	chunks := []domain.Chunk{
		{Document: "doc.pdf", Page: 1, Text: "a"},
		{Document: "doc.pdf", Page: 1, Text: "b"},
		{Document: "doc.pdf", Page: 1, Text: "c"},
		{Document: "doc.pdf", Page: 2, Text: "d"},
	}

	got := AssignIDs(chunks)
	require.Len(t, got, 4)
	assert.Equal(t, "doc.pdf:1:0", got[0].ID)
	assert.Equal(t, "doc.pdf:1:1", got[1].ID)
	assert.Equal(t, "doc.pdf:1:2", got[2].ID)
	assert.Equal(t, "doc.pdf:2:0", got[3].ID)
}

func TestAssignIDs_Reproducible(t *testing.T) {
	build := func() []domain.Chunk {
		return AssignIDs([]domain.Chunk{
			{Document: "report.pdf", Page: 3, Text: "x"},
			{Document: "report.pdf", Page: 3, Text: "y"},
		})
	}
	assert.Equal(t, build(), build())
}

func TestAssignIDs_SeqResetsAcrossDocuments(t *testing.T) {
	got := AssignIDs([]domain.Chunk{
		{Document: "a.pdf", Page: 1, Text: "a"},
		{Document: "b.pdf", Page: 1, Text: "b"},
	})
	assert.Equal(t, "a.pdf:1:0", got[0].ID)
	assert.Equal(t, "b.pdf:1:0", got[1].ID)
}
