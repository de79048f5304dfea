// Package qdrant implements the vector store on a Qdrant server, talked to
// over its gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/logger"
	"ragchat/internal/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

// Config holds connection settings for a Qdrant server.
type Config struct {
	Host       string
	Port       int
	Collection string
	Timeout    time.Duration
}

// Store is a vector store backed by a Qdrant collection. Point IDs are
// derived deterministically from chunk IDs, so re-ingesting the same
// document never duplicates points.
type Store struct {
	cfg         Config
	provider    embedding.Provider
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

// New creates a store for the given collection. Call Open before use.
func New(cfg Config, provider embedding.Provider) *Store {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "ragchat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Store{cfg: cfg, provider: provider}
}

// Open connects to the server and creates the collection if it does not
// exist. An existing collection must have the provider's vector dimension.
func (s *Store) Open(ctx context.Context) error {
	conn, err := grpc.Dial(
		fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("connect to qdrant: %w", err)
	}
	s.conn = conn
	s.collections = qdrantclient.NewCollectionsClient(conn)
	s.points = qdrantclient.NewPointsClient(conn)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	list, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range list.GetCollections() {
		if col.GetName() == s.cfg.Collection {
			return s.checkDimension(ctx)
		}
	}

	logger.Debug("creating qdrant collection %q", s.cfg.Collection)
	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(s.provider.Dimension()),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

func (s *Store) checkDimension(ctx context.Context) error {
	info, err := s.collections.Get(ctx, &qdrantclient.GetCollectionInfoRequest{
		CollectionName: s.cfg.Collection,
	})
	if err != nil {
		return fmt.Errorf("inspect collection %q: %w", s.cfg.Collection, err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != uint64(s.provider.Dimension()) {
		return fmt.Errorf("collection %q has dimension %d, embedder produces %d",
			s.cfg.Collection, size, s.provider.Dimension())
	}
	return nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// pointID maps a chunk ID onto a stable UUID, since Qdrant point IDs must be
// integers or UUIDs.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// Upsert embeds and stores chunks that are not already present, returning
// the number of newly added points.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	ids := make([]*qdrantclient.PointId, len(chunks))
	for i, c := range chunks {
		ids[i] = &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: pointID(c.ID)},
		}
	}
	got, err := s.points.Get(ctx, &qdrantclient.GetPoints{
		CollectionName: s.cfg.Collection,
		Ids:            ids,
	})
	if err != nil {
		return 0, fmt.Errorf("fetch existing points: %w", err)
	}
	existing := make(map[string]bool, len(got.GetResult()))
	for _, p := range got.GetResult() {
		existing[p.GetId().GetUuid()] = true
	}

	var missing []domain.Chunk
	for _, c := range chunks {
		if !existing[pointID(c.ID)] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	texts := make([]string, len(missing))
	for i, c := range missing {
		texts[i] = c.Text
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}

	points := make([]*qdrantclient.PointStruct, len(missing))
	for i, c := range missing {
		points[i] = &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: pointID(c.ID)},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: vectors[i]},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"id":     {Kind: &qdrantclient.Value_StringValue{StringValue: c.ID}},
				"source": {Kind: &qdrantclient.Value_StringValue{StringValue: c.Document}},
				"page":   {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(c.Page)}},
				"text":   {Kind: &qdrantclient.Value_StringValue{StringValue: c.Text}},
				"model":  {Kind: &qdrantclient.Value_StringValue{StringValue: s.provider.Model()}},
			},
		}
	}

	wait := true
	_, err = s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	logger.Debug("upserted %d points into %q", len(points), s.cfg.Collection)
	return len(missing), nil
}

func documentFilter(document string) *qdrantclient.Filter {
	return &qdrantclient.Filter{
		Must: []*qdrantclient.Condition{{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key: "source",
					Match: &qdrantclient.Match{
						MatchValue: &qdrantclient.Match_Keyword{Keyword: document},
					},
				},
			},
		}},
	}
}

// DeleteByDocument removes every point belonging to the given document and
// reports whether any existed.
func (s *Store) DeleteByDocument(ctx context.Context, document string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	exact := true
	count, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.cfg.Collection,
		Filter:         documentFilter(document),
		Exact:          &exact,
	})
	if err != nil {
		return false, fmt.Errorf("count points for %q: %w", document, err)
	}
	if count.GetResult().GetCount() == 0 {
		return false, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: documentFilter(document),
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return false, fmt.Errorf("delete points for %q: %w", document, err)
	}
	return true, nil
}

// Search embeds the query and returns the k nearest chunks by cosine
// distance, ascending. Points written under a different embedding model make
// the search fail with domain.ErrModelMismatch.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	vec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.cfg.Collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"id", "source", "page", "text", "model"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search collection %q: %w", s.cfg.Collection, err)
	}

	hits := make([]domain.Hit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		if model := payload["model"].GetStringValue(); model != s.provider.Model() {
			return nil, fmt.Errorf("%w: stored %q, active %q",
				domain.ErrModelMismatch, model, s.provider.Model())
		}
		hits = append(hits, domain.Hit{
			Chunk: domain.Chunk{
				ID:       payload["id"].GetStringValue(),
				Document: payload["source"].GetStringValue(),
				Page:     int(payload["page"].GetIntegerValue()),
				Text:     payload["text"].GetStringValue(),
			},
			// Qdrant reports cosine similarity; the store contract wants
			// distance, smaller meaning closer.
			Distance: 1 - float64(point.GetScore()),
		})
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	exact := true
	resp, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count collection %q: %w", s.cfg.Collection, err)
	}
	return int(resp.GetResult().GetCount()), nil
}
