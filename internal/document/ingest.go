package document

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/store"
)

// Store is the persistence the ingester needs.
type Store interface {
	CreateDocument(ctx context.Context, doc store.Document, chunks []store.Chunk) (store.Document, error)
}

// IngestRequest carries already-extracted page text.
type IngestRequest struct {
	Title      string
	Type       store.DocumentType
	Specialty  store.Specialty
	UploadedBy string
	Pages      []string
}

var (
	documentTypes = []store.DocumentType{store.DocumentGuideline, store.DocumentProtocol, store.DocumentTextbook}
	specialties   = []store.Specialty{store.SpecialtyHospitalist, store.SpecialtyCardiology, store.SpecialtyICU}
)

// Validate fills defaults (guideline, hospitalist) and checks the request.
func (r *IngestRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apperr.Invalid("title", errors.New("must not be empty"))
	}
	if r.Type == "" {
		r.Type = store.DocumentGuideline
	}
	if !slices.Contains(documentTypes, r.Type) {
		return apperr.Invalid("document_type", fmt.Errorf("unknown type %q", r.Type))
	}
	if r.Specialty == "" {
		r.Specialty = store.SpecialtyHospitalist
	}
	if !slices.Contains(specialties, r.Specialty) {
		return apperr.Invalid("specialty", fmt.Errorf("unknown specialty %q", r.Specialty))
	}
	return nil
}

// Ingester splits, classifies and stores documents.
type Ingester struct {
	store    Store
	splitter *Splitter
	log      *logger.Logger
}

func NewIngester(s Store, log *logger.Logger) *Ingester {
	if log == nil {
		log = logger.Nop()
	}
	return &Ingester{store: s, splitter: NewSplitter(), log: log}
}

// Ingest stores the document and its chunks. A document that yields no
// text is rejected.
func (in *Ingester) Ingest(ctx context.Context, req IngestRequest) (store.Document, error) {
	if err := req.Validate(); err != nil {
		return store.Document{}, err
	}

	chunks, err := in.splitter.Split(req.Pages)
	if err != nil {
		return store.Document{}, err
	}
	if len(chunks) == 0 {
		return store.Document{}, apperr.Invalid("pages", errors.New("no text could be extracted"))
	}

	doc, err := in.store.CreateDocument(ctx, store.Document{
		Title:      req.Title,
		Type:       req.Type,
		Specialty:  req.Specialty,
		UploadedBy: req.UploadedBy,
	}, chunks)
	if err != nil {
		return store.Document{}, fmt.Errorf("store document: %w", err)
	}

	in.log.Info("document ingested",
		"document_id", doc.ID,
		"pages", len(req.Pages),
		"chunks", len(chunks),
		"user_id", req.UploadedBy,
	)
	return doc, nil
}
