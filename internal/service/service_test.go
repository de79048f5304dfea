package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/extract"
	"ragchat/internal/rerank"
	"ragchat/internal/vectorstore/memory"
)

// hashProvider embeds text as lowercase token counts hashed into a few
// buckets, enough for similarity ordering in tests.
type hashProvider struct{}

func (hashProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedTokens(t)
	}
	return out, nil
}

func (hashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedTokens(text), nil
}

func (hashProvider) Model() string  { return "test-hash" }
func (hashProvider) Dimension() int { return 16 }

func embedTokens(text string) []float32 {
	vec := make([]float32, 16)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		sum := 0
		for _, r := range tok {
			sum += int(r)
		}
		vec[sum%16]++
	}
	return vec
}

type fakeLexical struct {
	pages       map[string][]int
	failOnPage  int
	deleteCalls []string
	results     []domain.SearchResult
	gotMin      float64
}

func newFakeLexical() *fakeLexical {
	return &fakeLexical{pages: make(map[string][]int)}
}

func (f *fakeLexical) Index(_ context.Context, document string, page int, _ string) error {
	if f.failOnPage != 0 && page == f.failOnPage {
		return fmt.Errorf("%w: page %d", domain.ErrIndexUnavailable, page)
	}
	f.pages[document] = append(f.pages[document], page)
	return nil
}

func (f *fakeLexical) Exists(_ context.Context, document string) bool {
	return len(f.pages[document]) > 0
}

func (f *fakeLexical) Delete(_ context.Context, document string) bool {
	f.deleteCalls = append(f.deleteCalls, document)
	_, ok := f.pages[document]
	delete(f.pages, document)
	return ok
}

func (f *fakeLexical) Search(_ context.Context, _ string, minRelevance float64) []domain.SearchResult {
	f.gotMin = minRelevance
	return f.results
}

type fakeCompleter struct {
	messages []domain.Message
	reply    string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []domain.Message) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func writeDoc(t *testing.T, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644))
	return path
}

func newService(lex LexicalIndex, store *memory.Store, completer *fakeCompleter) *Service {
	return New(
		extract.NewFileExtractor(),
		chunker.NewSplitter(500, 75),
		lex,
		store,
		rerank.New(nil, rerank.Config{MinRelevance: 0.1}),
		completer,
		Config{SearchMinRelevance: 0.5},
	)
}

func TestPopulate_Idempotent(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	ctx := context.Background()
	path := writeDoc(t, "guide.pdf", "first page text", "second page text")

	changed, err := svc.Populate(ctx, []string{path})
	require.NoError(t, err)
	assert.True(t, changed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	assert.Equal(t, []int{1, 2}, lex.pages["guide.pdf"])

	changed, err = svc.Populate(ctx, []string{path})
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, count, after)
	assert.Equal(t, []int{1, 2}, lex.pages["guide.pdf"], "pages must not be re-indexed")
}

func TestPopulate_SkipsEmptyPages(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	path := writeDoc(t, "gaps.pdf", "usable text", "   \n  ", "more text")

	changed, err := svc.Populate(context.Background(), []string{path})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []int{1, 3}, lex.pages["gaps.pdf"])
}

func TestPopulate_AllPagesEmpty(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	path := writeDoc(t, "blank.pdf", "  ", "\n\n")

	changed, err := svc.Populate(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, lex.pages)
}

func TestPopulate_RollsBackOnIndexFailure(t *testing.T) {
	lex := newFakeLexical()
	lex.failOnPage = 2
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	path := writeDoc(t, "broken.pdf", "page one", "page two")

	_, err := svc.Populate(context.Background(), []string{path})
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Contains(t, lex.deleteCalls, "broken.pdf")
	assert.Empty(t, lex.pages["broken.pdf"], "partial pages must be rolled back")
}

func TestPopulate_ChunkIDs(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	path := writeDoc(t, "ids.pdf", "short page")

	_, err := svc.Populate(context.Background(), []string{path})
	require.NoError(t, err)

	hits, err := store.Search(context.Background(), "short page", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ids.pdf:1:0", hits[0].Chunk.ID)
}

func TestChunkPages_TwoPageDocument(t *testing.T) {
	svc := newService(newFakeLexical(), memory.New(hashProvider{}), &fakeCompleter{})
	pages := []domain.Page{
		{Number: 1, Text: strings.Repeat("a", 1200)},
		{Number: 2, Text: strings.Repeat("b", 100)},
	}

	chunks := svc.chunkPages("doc.pdf", pages)
	require.Len(t, chunks, 4)
	assert.Equal(t, "doc.pdf:1:0", chunks[0].ID)
	assert.Equal(t, "doc.pdf:1:1", chunks[1].ID)
	assert.Equal(t, "doc.pdf:1:2", chunks[2].ID)
	assert.Equal(t, "doc.pdf:2:0", chunks[3].ID)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	svc := newService(lex, store, &fakeCompleter{})
	ctx := context.Background()
	path := writeDoc(t, "gone.pdf", "some text")

	_, err := svc.Populate(ctx, []string{path})
	require.NoError(t, err)

	removed, err := svc.DeleteDocument(ctx, "gone.pdf")
	require.NoError(t, err)
	assert.True(t, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.False(t, lex.Exists(ctx, "gone.pdf"))

	removed, err = svc.DeleteDocument(ctx, "gone.pdf")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSearchDocuments_PassesMinRelevance(t *testing.T) {
	lex := newFakeLexical()
	lex.results = []domain.SearchResult{{Filename: "a.pdf", Page: 1, Score: 0.9}}
	svc := newService(lex, memory.New(hashProvider{}), &fakeCompleter{})

	results := svc.SearchDocuments(context.Background(), "query")
	assert.Len(t, results, 1)
	assert.Equal(t, 0.5, lex.gotMin)
}

func TestAssemble_FallbackOnEmptyStore(t *testing.T) {
	svc := newService(newFakeLexical(), memory.New(hashProvider{}), &fakeCompleter{})

	contextText, sources, err := svc.Assemble(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, rerank.FallbackContext, contextText)
	assert.Empty(t, sources)
}

func TestAnswer_SourcesMatchContextOrder(t *testing.T) {
	lex := newFakeLexical()
	store := memory.New(hashProvider{})
	completer := &fakeCompleter{reply: "the answer"}
	svc := newService(lex, store, completer)
	ctx := context.Background()
	path := writeDoc(t, "facts.pdf", "alpha beta gamma", "delta epsilon zeta")

	_, err := svc.Populate(ctx, []string{path})
	require.NoError(t, err)

	answer, err := svc.Answer(ctx, "alpha beta gamma", nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer.Text)
	require.NotEmpty(t, answer.Sources)

	require.NotEmpty(t, completer.messages)
	system := completer.messages[0]
	assert.Equal(t, domain.RoleSystem, system.Role)

	// The n-th source names the chunk whose text sits n-th in the context.
	parts := strings.Split(extractContext(t, system.Content), contextSeparator)
	require.Len(t, parts, len(answer.Sources))
	hits, err := store.Search(ctx, "alpha beta gamma", 10)
	require.NoError(t, err)
	textByID := map[string]string{}
	for _, h := range hits {
		textByID[h.Chunk.ID] = h.Chunk.Text
	}
	for i, src := range answer.Sources {
		assert.Equal(t, textByID[src], parts[i])
	}
}

func TestAnswer_CarriesHistory(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	svc := newService(newFakeLexical(), memory.New(hashProvider{}), completer)

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}
	_, err := svc.Answer(context.Background(), "next question", history)
	require.NoError(t, err)

	require.Len(t, completer.messages, 4)
	assert.Equal(t, domain.RoleSystem, completer.messages[0].Role)
	assert.Equal(t, "earlier question", completer.messages[1].Content)
	assert.Equal(t, "earlier answer", completer.messages[2].Content)
	assert.Equal(t, "next question", completer.messages[3].Content)
}

func TestAnswer_FallbackContextWhenNothingFound(t *testing.T) {
	completer := &fakeCompleter{reply: "nothing found"}
	svc := newService(newFakeLexical(), memory.New(hashProvider{}), completer)

	answer, err := svc.Answer(context.Background(), "unknown topic", nil)
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	require.NotEmpty(t, completer.messages)
	assert.Contains(t, completer.messages[0].Content, rerank.FallbackContext)
}

func TestAnswer_CompletionErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("%w: model offline", domain.ErrCompletionFailure)
	completer := &fakeCompleter{err: boom}
	svc := newService(newFakeLexical(), memory.New(hashProvider{}), completer)

	_, err := svc.Answer(context.Background(), "question", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompletionFailure))
}

// extractContext pulls the context block out of the instruction template.
func extractContext(t *testing.T, systemContent string) string {
	t.Helper()
	header := "Answer the question based only on the following context:\n\n"
	rest, found := strings.CutPrefix(systemContent, header)
	require.True(t, found)
	idx := strings.LastIndex(rest, "\n\n---\n\nAnswer the question")
	require.GreaterOrEqual(t, idx, 0)
	return rest[:idx]
}
