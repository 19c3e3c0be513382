// Package semanticindex provides a PostgreSQL/pgvector-backed
// [slidematch.SlideIndex] for presentations too large to hold their
// embedding matrix in process memory, delegating nearest-neighbour search
// to the database via the pgvector `<=>` cosine-distance operator.
package semanticindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/slidestream/sessioncore/internal/slidematch"
)

// Embedder computes an embedding vector for arbitrary query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is a [slidematch.SlideIndex] whose exact/fuzzy keyword tables are
// cached in memory (loaded once per presentation via Load) but whose
// semantic search runs as a query against PostgreSQL, so it scales to
// presentations with far more slides than fit comfortably in an in-memory
// embedding matrix.
//
// All methods are safe for concurrent use.
type Index struct {
	pool           *pgxpool.Pool
	embedder       Embedder
	presentationID string

	mu         sync.RWMutex
	keywords   map[string][]slidematch.KeywordHit
	flat       []slidematch.KeywordRef
	meta       map[int]slidematch.SlideMetadata
	embedCache map[string][]float32
}

// New returns an Index for presentationID backed by pool. Call Load before
// first use to populate its in-memory keyword tables.
func New(pool *pgxpool.Pool, embedder Embedder, presentationID string) *Index {
	return &Index{
		pool:           pool,
		embedder:       embedder,
		presentationID: presentationID,
		keywords:       make(map[string][]slidematch.KeywordHit),
		meta:           make(map[int]slidematch.SlideMetadata),
		embedCache:     make(map[string][]float32),
	}
}

// slideRow is one row of the slides table.
type slideRow struct {
	slideID    int
	title      string
	body       string
	keywords   []string
	textLength int
}

// Load (re)populates the in-memory keyword and metadata tables from the
// slides table. Call it once after construction and again whenever the
// presentation's slide deck changes.
func (idx *Index) Load(ctx context.Context) error {
	const q = `
		SELECT slide_id, title, body, keywords
		FROM   slides
		WHERE  presentation_id = $1
		ORDER  BY slide_id`

	rows, err := idx.pool.Query(ctx, q, idx.presentationID)
	if err != nil {
		return fmt.Errorf("semantic index: load slides: %w", err)
	}

	slideRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (slideRow, error) {
		var r slideRow
		if err := row.Scan(&r.slideID, &r.title, &r.body, &r.keywords); err != nil {
			return slideRow{}, err
		}
		r.textLength = len(r.title) + len(r.body)
		return r, nil
	})
	if err != nil {
		return fmt.Errorf("semantic index: scan slides: %w", err)
	}

	keywords := make(map[string][]slidematch.KeywordHit)
	var flat []slidematch.KeywordRef
	meta := make(map[int]slidematch.SlideMetadata)

	for _, r := range slideRows {
		titleKeywords := toKeywordSet(strings.Fields(strings.ToLower(r.title)))
		seen := make(map[string]bool)
		for _, kw := range r.keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			isTitle := titleKeywords[kw]
			keywords[kw] = append(keywords[kw], slidematch.KeywordHit{
				SlideID: r.slideID, Keyword: kw, IsTitle: isTitle,
			})
			flat = append(flat, slidematch.KeywordRef{SlideID: r.slideID, Keyword: kw})
		}
		meta[r.slideID] = slidematch.SlideMetadata{
			SlideID:       r.slideID,
			TextLength:    r.textLength,
			TitleKeywords: titleKeywords,
		}
	}

	idx.mu.Lock()
	idx.keywords = keywords
	idx.flat = flat
	idx.meta = meta
	idx.mu.Unlock()
	return nil
}

func toKeywordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func (idx *Index) Lookup(keyword string) []slidematch.KeywordHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.keywords[strings.ToLower(keyword)]
}

func (idx *Index) AllKeywordsFlat() []slidematch.KeywordRef {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.flat
}

func (idx *Index) AllPhoneticFlat() []slidematch.KeywordRef {
	return idx.AllKeywordsFlat()
}

func (idx *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	idx.mu.RLock()
	if v, ok := idx.embedCache[text]; ok {
		idx.mu.RUnlock()
		return v, nil
	}
	idx.mu.RUnlock()

	v, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idx.embedCache[text] = v
	idx.mu.Unlock()
	return v, nil
}

// Embeddings reports ok=false: this index always delegates nearest-neighbour
// search to SearchSimilar instead of exposing a full matrix.
func (idx *Index) Embeddings() (matrix [][]float32, slideIDs []int, ok bool) {
	return nil, nil, false
}

func (idx *Index) Metadata(slideID int) (slidematch.SlideMetadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := idx.meta[slideID]
	return m, ok
}

// SearchSimilar implements [slidematch.VectorSearcher] using pgvector's
// cosine-distance operator, scoped to this index's presentation.
func (idx *Index) SearchSimilar(ctx context.Context, vec []float32, topK int) ([]slidematch.ScoredSlide, error) {
	queryVec := pgvector.NewVector(vec)

	const q = `
		SELECT slide_id, 1 - (embedding <=> $1) AS similarity
		FROM   slides
		WHERE  presentation_id = $2
		ORDER  BY embedding <=> $1
		LIMIT  $3`

	rows, err := idx.pool.Query(ctx, q, queryVec, idx.presentationID, topK)
	if err != nil {
		return nil, fmt.Errorf("semantic index: search similar: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (slidematch.ScoredSlide, error) {
		var s slidematch.ScoredSlide
		if err := row.Scan(&s.SlideID, &s.Similarity); err != nil {
			return slidematch.ScoredSlide{}, err
		}
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("semantic index: scan similar: %w", err)
	}
	return results, nil
}
