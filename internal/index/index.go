package index

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/pri-23-03/Gptrader/internal/embed"
	"github.com/viant/afs"
)

// Search defaults.
const (
	DefaultK     = 5
	DefaultAlpha = 0.7
)

// Doc is one indexed document.
type Doc struct {
	ID   string         `json:"id"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
}

// Result is a scored search hit.
type Result struct {
	Doc   Doc     `json:"doc"`
	Score float64 `json:"score"`
}

// HybridIndex holds documents, their vectors and their token sets in
// insertion order.
type HybridIndex struct {
	base     string
	embedder embed.Embedder
	fs       afs.Service
	logger   *slog.Logger

	docs   []Doc
	vecs   [][]float64
	tokens []map[string]struct{}
}

// Option configures a HybridIndex.
type Option func(*HybridIndex)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(x *HybridIndex) {
		x.logger = l
	}
}

// WithFS sets the storage service used for the sidecars.
func WithFS(fs afs.Service) Option {
	return func(x *HybridIndex) {
		x.fs = fs
	}
}

// New returns an empty index whose sidecars live under base. Nothing is read
// until Load.
func New(base string, embedder embed.Embedder, opts ...Option) *HybridIndex {
	x := &HybridIndex{
		base:     base,
		embedder: embedder,
		fs:       afs.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Base returns the sidecar location.
func (x *HybridIndex) Base() string {
	return x.base
}

// Add embeds doc and appends it.
func (x *HybridIndex) Add(doc Doc) {
	x.append(doc, x.embedder.Embed(doc.Text))
}

// Upsert adds every doc in order. Documents are not de-duplicated by ID.
func (x *HybridIndex) Upsert(docs []Doc) {
	for _, d := range docs {
		x.Add(d)
	}
}

func (x *HybridIndex) append(doc Doc, vec []float64) {
	x.docs = append(x.docs, doc)
	x.vecs = append(x.vecs, vec)
	x.tokens = append(x.tokens, embed.TokenSet(doc.Text))
}

func (x *HybridIndex) reset() {
	x.docs, x.vecs, x.tokens = nil, nil, nil
}

// Len returns the number of documents.
func (x *HybridIndex) Len() int {
	return len(x.docs)
}

// Docs returns a copy of the documents in insertion order.
func (x *HybridIndex) Docs() []Doc {
	return slices.Clone(x.docs)
}

// Search returns the k best documents for query, best first. k <= 0 returns
// nothing; k larger than the index returns every document.
func (x *HybridIndex) Search(query string, k int, alpha float64) []Result {
	if k <= 0 || len(x.docs) == 0 {
		return nil
	}
	qv := x.embedder.Embed(query)
	qt := embed.TokenSet(query)

	results := make([]Result, len(x.docs))
	for i, d := range x.docs {
		results[i] = Result{
			Doc:   d,
			Score: alpha*embed.Cosine(qv, x.vecs[i]) + (1-alpha)*overlap(x.tokens[i], qt),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// overlap is |doc ∩ query| / |query|, or 0 for a query without tokens.
func overlap(doc, query map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var n int
	for t := range query {
		if _, ok := doc[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}
