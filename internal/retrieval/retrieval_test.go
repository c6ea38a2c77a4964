package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/store"
)

type query struct {
	kinds []store.ChunkKind
	limit int
}

// fakeSource serves chunks from memory with the same filter and limit
// semantics as the SQL store.
type fakeSource struct {
	chunks   []store.Chunk
	queries  []query
	searches []query
	err      error
}

func (f *fakeSource) QueryChunks(_ context.Context, documentID string, kinds []store.ChunkKind, limit int) ([]store.Chunk, error) {
	f.queries = append(f.queries, query{kinds: kinds, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Chunk
	for _, c := range f.chunks {
		if c.DocumentID != documentID {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, c.Kind) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) SearchChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, terms []string, limit int) ([]store.Chunk, error) {
	f.searches = append(f.searches, query{kinds: kinds, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	all, _ := (&fakeSource{chunks: f.chunks}).QueryChunks(ctx, documentID, kinds, 0)
	var out []store.Chunk
	for _, c := range all {
		if !slices.ContainsFunc(terms, func(t string) bool {
			return strings.Contains(strings.ToLower(c.Text), t)
		}) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func corpus(counts map[store.ChunkKind]int) []store.Chunk {
	var chunks []store.Chunk
	for _, kind := range store.AllChunkKinds {
		for i := range counts[kind] {
			chunks = append(chunks, store.Chunk{
				ID:         fmt.Sprintf("%s-%d", kind, i),
				DocumentID: "doc",
				Text:       fmt.Sprintf("%s passage %d", kind, i),
				Kind:       kind,
			})
		}
	}
	return chunks
}

func seeded(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestAllowedKinds(t *testing.T) {
	tests := []struct {
		level int
		want  []store.ChunkKind
	}{
		{1, []store.ChunkKind{store.KindStandard}},
		{2, []store.ChunkKind{store.KindStandard}},
		{3, []store.ChunkKind{store.KindStandard, store.KindSpecialPopulation}},
		{4, []store.ChunkKind{store.KindException, store.KindContraindication}},
		{5, []store.ChunkKind{store.KindException, store.KindContraindication}},
	}
	for _, tt := range tests {
		if got := AllowedKinds(tt.level); !slices.Equal(got, tt.want) {
			t.Errorf("AllowedKinds(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSelect_RespectsKindFilterAndBound(t *testing.T) {
	src := &fakeSource{chunks: corpus(map[store.ChunkKind]int{
		store.KindStandard:          10,
		store.KindException:         4,
		store.KindContraindication:  4,
		store.KindSpecialPopulation: 4,
	})}

	for level := 1; level <= 5; level++ {
		for seed := range uint64(20) {
			p := New(src, WithShuffler(seeded(seed)))
			sel, err := p.Select(context.Background(), "doc", level, "")
			if err != nil {
				t.Fatalf("level %d: %v", level, err)
			}
			if sel.Fallback {
				t.Errorf("level %d: unexpected fallback", level)
			}
			if len(sel.Chunks) != DefaultTopK {
				t.Errorf("level %d: got %d chunks, want %d", level, len(sel.Chunks), DefaultTopK)
			}
			seen := map[string]bool{}
			for _, c := range sel.Chunks {
				if !slices.Contains(AllowedKinds(level), c.Kind) {
					t.Errorf("level %d: chunk kind %s outside allowed set", level, c.Kind)
				}
				if seen[c.ID] {
					t.Errorf("level %d: chunk %s sampled twice", level, c.ID)
				}
				seen[c.ID] = true
			}
		}
	}

	first := src.queries[0]
	if first.limit != candidateFactor*DefaultTopK {
		t.Errorf("candidate limit = %d, want %d", first.limit, candidateFactor*DefaultTopK)
	}
}

func TestSelect_FallbackWhenAllowedKindsEmpty(t *testing.T) {
	// Only standard passages: level 5 wants exceptions and contraindications.
	src := &fakeSource{chunks: corpus(map[store.ChunkKind]int{store.KindStandard: 5})}
	p := New(src, WithShuffler(seeded(7)))

	sel, err := p.Select(context.Background(), "doc", 5, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !sel.Fallback {
		t.Fatal("expected fallback path")
	}
	if len(sel.Chunks) != DefaultTopK {
		t.Errorf("got %d chunks, want %d", len(sel.Chunks), DefaultTopK)
	}
	for _, c := range sel.Chunks {
		if c.Kind != store.KindStandard {
			t.Errorf("fallback chunk kind = %s", c.Kind)
		}
	}

	if len(src.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(src.queries))
	}
	if fb := src.queries[1]; len(fb.kinds) != 0 || fb.limit != DefaultTopK {
		t.Errorf("fallback query = %+v, want unrestricted with limit %d", fb, DefaultTopK)
	}
}

func TestSelect_FewerCandidatesThanTopK(t *testing.T) {
	src := &fakeSource{chunks: corpus(map[store.ChunkKind]int{store.KindException: 1, store.KindStandard: 9})}
	p := New(src, WithTopK(5))

	sel, err := p.Select(context.Background(), "doc", 4, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Fallback || len(sel.Chunks) != 1 || sel.Chunks[0].Kind != store.KindException {
		t.Errorf("selection = %+v", sel)
	}
}

func TestSelect_NoChunksAtAll(t *testing.T) {
	p := New(&fakeSource{})
	_, err := p.Select(context.Background(), "doc", 2, "")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, apperr.ErrInsufficientMaterial) {
		t.Errorf("expected insufficient material, got %v", err)
	}
}

func TestSelect_InvalidLevel(t *testing.T) {
	p := New(&fakeSource{chunks: corpus(map[store.ChunkKind]int{store.KindStandard: 1})})
	for _, level := range []int{0, 6, -1} {
		if _, err := p.Select(context.Background(), "doc", level, ""); !apperr.IsValidation(err) {
			t.Errorf("level %d: expected ValidationError, got %v", level, err)
		}
	}
}

func TestSelect_StoreErrorPropagates(t *testing.T) {
	boom := apperr.Transient("query chunks", errors.New("locked"))
	p := New(&fakeSource{err: boom})
	if _, err := p.Select(context.Background(), "doc", 1, ""); !apperr.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestSelect_DeterministicWithSeed(t *testing.T) {
	src := &fakeSource{chunks: corpus(map[store.ChunkKind]int{store.KindStandard: 9})}
	ids := func(seed uint64) []string {
		sel, err := New(src, WithShuffler(seeded(seed))).Select(context.Background(), "doc", 1, "")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		var out []string
		for _, c := range sel.Chunks {
			out = append(out, c.ID)
		}
		return out
	}
	if a, b := ids(42), ids(42); !slices.Equal(a, b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestSelect_TopicPreferred(t *testing.T) {
	chunks := corpus(map[store.ChunkKind]int{store.KindStandard: 8})
	chunks[6].Text = "Heparin dosing for pulmonary embolism"
	src := &fakeSource{chunks: chunks}

	for seed := range uint64(10) {
		sel, err := New(src, WithShuffler(seeded(seed))).Select(context.Background(), "doc", 1, "Pulmonary EMBOLISM in pregnancy")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if sel.Chunks[0].ID != chunks[6].ID {
			t.Errorf("seed %d: topic match not sampled first: %v", seed, sel.Chunks[0].ID)
		}
		if len(sel.Chunks) != DefaultTopK {
			t.Errorf("seed %d: got %d chunks", seed, len(sel.Chunks))
		}
	}
}

func TestSelect_TopicBeyondCandidateWindow(t *testing.T) {
	chunks := corpus(map[store.ChunkKind]int{store.KindStandard: 20})
	chunks[15].Text = "Bridge with heparin until the INR is therapeutic."
	src := &fakeSource{chunks: chunks}

	for seed := range uint64(50) {
		sel, err := New(src, WithShuffler(seeded(seed))).Select(context.Background(), "doc", 1, "heparin")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if !slices.ContainsFunc(sel.Chunks, func(c store.Chunk) bool { return c.ID == chunks[15].ID }) {
			t.Fatalf("seed %d: topic chunk outside the first %d never selected", seed, candidateFactor*DefaultTopK)
		}
		if len(sel.Chunks) != DefaultTopK {
			t.Errorf("seed %d: got %d chunks", seed, len(sel.Chunks))
		}
	}

	if s := src.searches[0]; !slices.Equal(s.kinds, AllowedKinds(1)) {
		t.Errorf("topic search kinds = %v, want %v", s.kinds, AllowedKinds(1))
	}
}

func TestSelect_TopicSearchKeepsKindFilter(t *testing.T) {
	chunks := corpus(map[store.ChunkKind]int{store.KindStandard: 4, store.KindException: 4})
	chunks[0].Text = "Heparin loading dose."
	src := &fakeSource{chunks: chunks}

	sel, err := New(src, WithShuffler(seeded(3))).Select(context.Background(), "doc", 4, "heparin")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, c := range sel.Chunks {
		if c.Kind == store.KindStandard {
			t.Errorf("standard chunk %s selected at level 4", c.ID)
		}
	}
}

func TestSelect_NoTopicSkipsSearch(t *testing.T) {
	src := &fakeSource{chunks: corpus(map[store.ChunkKind]int{store.KindStandard: 4})}
	if _, err := New(src).Select(context.Background(), "doc", 1, "a, b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(src.searches) != 0 {
		t.Errorf("searches = %d, want 0 for a hint with no usable words", len(src.searches))
	}
}

func TestTopicWords(t *testing.T) {
	got := topicWords("AF in a 70-yo: rate vs rhythm?")
	want := []string{"rate", "rhythm"}
	if !slices.Equal(got, want) {
		t.Errorf("topicWords = %v, want %v", got, want)
	}
}
