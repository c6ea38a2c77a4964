// Package retrieval picks the passages that ground a generated question.
// Harder levels draw on exception and contraindication passages; easier
// levels stay with standard guidance.
package retrieval

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/store"
)

const (
	DefaultTopK = 3

	// candidateFactor times topK candidates are fetched before sampling.
	candidateFactor = 3
)

// ChunkSource queries a document's chunks. An empty kinds slice means any
// kind. SearchChunks additionally requires the text to contain one of terms,
// case-insensitively.
type ChunkSource interface {
	QueryChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, limit int) ([]store.Chunk, error)
	SearchChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, terms []string, limit int) ([]store.Chunk, error)
}

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Selection is the outcome of one retrieval.
type Selection struct {
	Chunks []store.Chunk
	// Kinds are the kinds the level allowed.
	Kinds []store.ChunkKind
	// Fallback is set when no chunk of an allowed kind existed and the
	// sample was drawn from any kind.
	Fallback bool
}

// Policy implements level-conditioned retrieval.
type Policy struct {
	src  ChunkSource
	topK int

	mu  sync.Mutex // guards rng
	rng Shuffler
}

type Option func(*Policy)

// WithTopK sets the sample size. Values below 1 are ignored.
func WithTopK(k int) Option {
	return func(p *Policy) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithShuffler injects the random source, typically a seeded *rand.Rand.
func WithShuffler(s Shuffler) Option {
	return func(p *Policy) {
		if s != nil {
			p.rng = s
		}
	}
}

func New(src ChunkSource, opts ...Option) *Policy {
	p := &Policy{src: src, topK: DefaultTopK, rng: globalShuffler{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TopK returns the configured sample size.
func (p *Policy) TopK() int { return p.topK }

// AllowedKinds maps a difficulty level to the chunk kinds that may ground it.
func AllowedKinds(level int) []store.ChunkKind {
	switch {
	case level >= 4:
		return []store.ChunkKind{store.KindException, store.KindContraindication}
	case level == 3:
		return []store.ChunkKind{store.KindStandard, store.KindSpecialPopulation}
	default:
		return []store.ChunkKind{store.KindStandard}
	}
}

// Select returns at most topK chunks of the document suited to level. When
// topic is non-empty, chunks mentioning it anywhere in the document are
// sampled first. It fails with a NotFoundError wrapping
// apperr.ErrInsufficientMaterial only when the document has no chunks at all.
func (p *Policy) Select(ctx context.Context, documentID string, level int, topic string) (Selection, error) {
	if level < 1 || level > 5 {
		return Selection{}, apperr.Invalid("level", fmt.Errorf("%d is outside 1..5", level))
	}

	sel := Selection{Kinds: AllowedKinds(level)}
	limit := candidateFactor * p.topK
	candidates, err := p.src.QueryChunks(ctx, documentID, sel.Kinds, limit)
	if err != nil {
		return Selection{}, fmt.Errorf("query chunks: %w", err)
	}
	kinds := sel.Kinds

	if len(candidates) == 0 {
		limit = p.topK
		candidates, err = p.src.QueryChunks(ctx, documentID, nil, limit)
		if err != nil {
			return Selection{}, fmt.Errorf("query fallback chunks: %w", err)
		}
		sel.Fallback = true
		kinds = nil
	}
	if len(candidates) == 0 {
		return Selection{}, &apperr.NotFoundError{Resource: "chunks", ID: documentID, Err: apperr.ErrInsufficientMaterial}
	}

	var matched []store.Chunk
	if words := topicWords(topic); len(words) > 0 {
		matched, err = p.src.SearchChunks(ctx, documentID, kinds, words, limit)
		if err != nil {
			return Selection{}, fmt.Errorf("search chunks: %w", err)
		}
	}

	sel.Chunks = p.sample(matched, candidates)
	return sel, nil
}

// sample draws topK chunks without replacement, taking from preferred
// first and filling up from candidates.
func (p *Policy) sample(preferred, candidates []store.Chunk) []store.Chunk {
	seen := make(map[string]struct{}, len(preferred))
	for _, c := range preferred {
		seen[c.ID] = struct{}{}
	}
	preferred = slices.Clone(preferred)
	var rest []store.Chunk
	for _, c := range candidates {
		if _, ok := seen[c.ID]; !ok {
			rest = append(rest, c)
		}
	}

	p.mu.Lock()
	p.shuffle(preferred)
	p.shuffle(rest)
	p.mu.Unlock()

	k := min(p.topK, len(preferred)+len(rest))
	out := make([]store.Chunk, 0, k)
	out = append(out, preferred[:min(k, len(preferred))]...)
	return append(out, rest[:k-len(out)]...)
}

func (p *Policy) shuffle(chunks []store.Chunk) {
	if len(chunks) < 2 {
		return
	}
	p.rng.Shuffle(len(chunks), func(i, j int) {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	})
}

// topicWords lowercases the hint and keeps words of at least three letters.
func topicWords(topic string) []string {
	fields := strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			words = append(words, f)
		}
	}
	return words
}
