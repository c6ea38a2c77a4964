package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want store.ChunkKind
	}{
		{"Administer 30 mL/kg crystalloid within 3 hours.", store.KindStandard},
		{"Beta blockers are CONTRAINDICATED in cocaine chest pain.", store.KindContraindication},
		{"However, patients on warfarin need reversal first.", store.KindException},
		{"Reduce the dose in renal impairment.", store.KindSpecialPopulation},
		{"Dose pediatric patients by weight.", store.KindSpecialPopulation},
		// Precedence: contraindication beats exception beats special population.
		{"However, avoid NSAIDs in pregnancy.", store.KindContraindication},
		{"In contrast, elderly patients tolerate less fluid.", store.KindException},
		// Substring semantics: "but" inside "distribute" still matches.
		{"Distribute doses evenly.", store.KindException},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestSplit_PagesAndKinds(t *testing.T) {
	pages := []string{
		"## Initial management\nGive aspirin 325 mg on arrival.",
		"",
		"## Special cases\nDo not use nitrates after phosphodiesterase inhibitors.",
	}
	chunks, err := NewSplitter().Split(pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1, "short input fits in one chunk")
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, store.KindContraindication, chunks[0].Kind)
	assert.Equal(t, "Initial management", chunks[0].Section)
}

func TestSplit_LongTextAttributesPages(t *testing.T) {
	para := func(topic string) string {
		return strings.Repeat(topic+" protocol step documented here. ", 20)
	}
	pages := []string{para("alpha"), para("bravo"), para("charlie")}

	chunks, err := NewSplitter().Split(pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), ChunkSize)
	}
	assert.Equal(t, 1, chunks[0].Page)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.Page)
	assert.Contains(t, last.Text, "charlie")
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := NewSplitter().Split([]string{"", "  \n"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPageOf_DefaultsToFirstPage(t *testing.T) {
	assert.Equal(t, 1, pageOf("text that appears nowhere", []string{"a", "b"}))
	assert.Equal(t, 2, pageOf("needle", []string{"hay", "a needle here"}))
}

type fakeStore struct {
	doc    store.Document
	chunks []store.Chunk
}

func (f *fakeStore) CreateDocument(_ context.Context, doc store.Document, chunks []store.Chunk) (store.Document, error) {
	doc.ID = "doc-1"
	doc.ChunkCount = len(chunks)
	f.doc, f.chunks = doc, chunks
	return doc, nil
}

func TestIngester(t *testing.T) {
	fs := &fakeStore{}
	in := NewIngester(fs, nil)

	doc, err := in.Ingest(context.Background(), IngestRequest{
		Title: "  ACS Pathway ",
		Pages: []string{"Give aspirin on arrival."},
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "ACS Pathway", fs.doc.Title)
	assert.Equal(t, store.DocumentGuideline, fs.doc.Type)
	assert.Equal(t, store.SpecialtyHospitalist, fs.doc.Specialty)
	assert.Len(t, fs.chunks, 1)
}

func TestIngester_Rejects(t *testing.T) {
	in := NewIngester(&fakeStore{}, nil)
	tests := []IngestRequest{
		{Title: "", Pages: []string{"x"}},
		{Title: "t", Type: "memo", Pages: []string{"x"}},
		{Title: "t", Specialty: "dermatology", Pages: []string{"x"}},
		{Title: "t", Pages: []string{"   "}},
	}
	for _, req := range tests {
		_, err := in.Ingest(context.Background(), req)
		assert.True(t, apperr.IsValidation(err), "request %+v: got %v", req, err)
	}
}
