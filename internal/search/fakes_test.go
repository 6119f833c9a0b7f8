package search

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/contextd/internal/reranker"
	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
)

// fakeStore is a minimal vectorstore.Store fake keyed by collection name,
// used to exercise fan-out, timeout, and degradation behavior without a
// live Qdrant backend.
type fakeStore struct {
	byCollection map[string][]vectorstore.SearchResult
	errFor       map[string]error
	delayFor     map[string]chan struct{} // collections that block until closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byCollection: make(map[string][]vectorstore.SearchResult),
		errFor:       make(map[string]error),
		delayFor:     make(map[string]chan struct{}),
	}
}

func (f *fakeStore) SearchVectorInCollection(ctx context.Context, collection string, vector []float32, k int, filters map[string]interface{}) ([]vectorstore.SearchResult, error) {
	if ch, ok := f.delayFor[collection]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errFor[collection]; ok {
		return nil, err
	}
	results := f.byCollection[collection]
	if k < len(results) {
		results = results[:k]
	}
	out := make([]vectorstore.SearchResult, len(results))
	copy(out, results)
	for i := range out {
		out[i].SourceCollection = collection
	}
	return out, nil
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) SearchWithFilters(ctx context.Context, query string, k int, filters map[string]interface{}) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) DeleteDocuments(ctx context.Context, ids []string) error { return nil }
func (f *fakeStore) DeleteDocumentsFromCollection(ctx context.Context, collectionName string, ids []string) error {
	return nil
}
func (f *fakeStore) CreateCollection(ctx context.Context, collectionName string, vectorSize int) error {
	return nil
}
func (f *fakeStore) DeleteCollection(ctx context.Context, collectionName string) error { return nil }
func (f *fakeStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return true, nil
}
func (f *fakeStore) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) GetCollectionInfo(ctx context.Context, collectionName string) (*vectorstore.CollectionInfo, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) ExactSearch(ctx context.Context, collectionName string, query string, k int) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) Close() error { return nil }

// fakeEmbedder returns a fixed-length zero vector regardless of input. When
// failUntilCall is non-zero, EmbedQuery returns failWith for the first N
// calls before succeeding, so tests can exercise the Search Service's retry
// behavior on transient Embedding Gateway errors.
type fakeEmbedder struct {
	dimension     int
	failUntilCall int
	failWith      error
	calls         int
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, e.dimension)
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls <= e.failUntilCall {
		return nil, e.failWith
	}
	return make([]float32, e.dimension), nil
}

// fakeReranker reverses candidate order and assigns descending scores, so
// tests can distinguish reranked output from vector-score output.
type fakeReranker struct {
	err error
}

func (r *fakeReranker) Rerank(ctx context.Context, query string, docs []reranker.Document, topK int) ([]reranker.ScoredDocument, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]reranker.ScoredDocument, 0, len(docs))
	for i := len(docs) - 1; i >= 0 && len(out) < topK; i-- {
		out = append(out, reranker.ScoredDocument{
			Document:      docs[i],
			RerankerScore: float32(len(docs)-len(out)) / float32(len(docs)+1),
			OriginalRank:  i,
		})
	}
	return out, nil
}

func (r *fakeReranker) Close() error { return nil }
