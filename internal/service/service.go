// Package service wires extraction, chunking, indexing, retrieval and
// completion into the operations the interfaces expose.
package service

import (
	"context"
	"fmt"
	"strings"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/extract"
	"ragchat/internal/llm"
	"ragchat/internal/logger"
	"ragchat/internal/rerank"
	"ragchat/internal/vectorstore"
)

// answerInstructions confines the model to the retrieved context.
const answerInstructions = "Answer the question based only on the following context:\n\n%s\n\n---\n\nAnswer the question based on the above context."

// contextSeparator joins chunk texts in the assembled prompt context.
const contextSeparator = "\n\n---\n\n"

// LexicalIndex is the keyword index the service ingests into and searches.
// Exists and Delete degrade instead of failing, Index fails loudly.
type LexicalIndex interface {
	Index(ctx context.Context, document string, page int, content string) error
	Exists(ctx context.Context, document string) bool
	Delete(ctx context.Context, document string) bool
	Search(ctx context.Context, query string, minRelevance float64) []domain.SearchResult
}

type Config struct {
	// SearchMinRelevance filters keyword search results by normalized score.
	SearchMinRelevance float64
}

type Service struct {
	extractor extract.Extractor
	splitter  *chunker.Splitter
	lexical   LexicalIndex
	store     vectorstore.Store
	reranker  *rerank.Reranker
	completer llm.Completer

	searchMinRelevance float64
}

func New(
	extractor extract.Extractor,
	splitter *chunker.Splitter,
	lexical LexicalIndex,
	store vectorstore.Store,
	reranker *rerank.Reranker,
	completer llm.Completer,
	cfg Config,
) *Service {
	if cfg.SearchMinRelevance == 0 {
		cfg.SearchMinRelevance = 0.5
	}
	return &Service{
		extractor:          extractor,
		splitter:           splitter,
		lexical:            lexical,
		store:              store,
		reranker:           reranker,
		completer:          completer,
		searchMinRelevance: cfg.SearchMinRelevance,
	}
}

// Populate ingests the documents at the given paths into both indexes and
// reports whether anything new was stored. Re-running it on the same files
// changes nothing.
func (s *Service) Populate(ctx context.Context, paths []string) (bool, error) {
	changed := false
	for _, path := range paths {
		name, pages, err := s.extractor.Extract(path)
		if err != nil {
			return changed, fmt.Errorf("extract %s: %w", path, err)
		}

		clean := pages[:0]
		for _, page := range pages {
			page.Text = extract.Normalize(page.Text)
			if page.Text == "" {
				logger.Warn("skipping empty page %d of %s", page.Number, name)
				continue
			}
			clean = append(clean, page)
		}
		if len(clean) == 0 {
			logger.Warn("document %s has no usable pages", name)
			continue
		}

		if !s.lexical.Exists(ctx, name) {
			if err := s.indexPages(ctx, name, clean); err != nil {
				return changed, err
			}
			changed = true
		} else {
			logger.Debug("document %s already in keyword index", name)
		}

		added, err := s.store.Upsert(ctx, s.chunkPages(name, clean))
		if err != nil {
			return changed, fmt.Errorf("embed %s: %w", name, err)
		}
		if added > 0 {
			logger.Info("stored %d new chunks for %s", added, name)
			changed = true
		}
	}
	return changed, nil
}

// indexPages writes every page or none: a failure mid-document rolls back
// the pages already written so the next run retries the whole document.
func (s *Service) indexPages(ctx context.Context, name string, pages []domain.Page) error {
	for _, page := range pages {
		if err := s.lexical.Index(ctx, name, page.Number, page.Text); err != nil {
			s.lexical.Delete(ctx, name)
			return err
		}
	}
	return nil
}

func (s *Service) chunkPages(name string, pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range pages {
		for _, text := range s.splitter.Split(page.Text) {
			chunks = append(chunks, domain.Chunk{
				Document: name,
				Page:     page.Number,
				Text:     text,
			})
		}
	}
	return chunker.AssignIDs(chunks)
}

// DeleteDocument removes a document from both indexes and reports whether it
// existed in either.
func (s *Service) DeleteDocument(ctx context.Context, name string) (bool, error) {
	removedLexical := s.lexical.Delete(ctx, name)
	removedVectors, err := s.store.DeleteByDocument(ctx, name)
	if err != nil {
		return removedLexical, fmt.Errorf("delete %s from vector store: %w", name, err)
	}
	return removedLexical || removedVectors, nil
}

// SearchDocuments runs a keyword search and returns scored page results.
func (s *Service) SearchDocuments(ctx context.Context, query string) []domain.SearchResult {
	return s.lexical.Search(ctx, query, s.searchMinRelevance)
}

// Assemble retrieves, re-ranks and joins the context for a question. When
// nothing relevant is found it returns the refusal context and no sources.
func (s *Service) Assemble(ctx context.Context, query string) (string, []string, error) {
	hits, err := s.store.Search(ctx, query, s.reranker.CandidateK())
	if err != nil {
		return "", nil, err
	}
	ranked, err := s.reranker.Rerank(ctx, query, hits)
	if err != nil {
		return "", nil, err
	}
	if len(ranked) == 0 {
		return rerank.FallbackContext, nil, nil
	}
	texts := make([]string, len(ranked))
	sources := make([]string, len(ranked))
	for i, rc := range ranked {
		texts[i] = rc.Chunk.Text
		sources[i] = rc.Chunk.ID
	}
	return strings.Join(texts, contextSeparator), sources, nil
}

// Answer assembles context for the question and asks the model once,
// carrying the prior conversation along.
func (s *Service) Answer(ctx context.Context, query string, history []domain.Message) (domain.Answer, error) {
	contextText, sources, err := s.Assemble(ctx, query)
	if err != nil {
		return domain.Answer{}, err
	}
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: fmt.Sprintf(answerInstructions, contextText),
	})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: query})

	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: text, Sources: sources}, nil
}
