package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/rounds/internal/apperr"
)

// chunkBatchSize bounds the rows per multi-row insert.
const chunkBatchSize = 500

var documentColumns = []string{"id", "title", "document_type", "specialty", "uploaded_by", "chunk_count", "created_at"}

// CreateDocument inserts doc and its chunks in one transaction. Missing ids
// and timestamps are filled in; chunk ordinals follow slice order.
func (s *Store) CreateDocument(ctx context.Context, doc Document, chunks []Chunk) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	}
	doc.ChunkCount = len(chunks)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query, args := s.builder().Insert("documents").
			Columns(documentColumns...).
			Values(doc.ID, doc.Title, string(doc.Type), string(doc.Specialty), doc.UploadedBy, doc.ChunkCount, doc.CreatedAt).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return s.insertChunks(ctx, tx, doc.ID, chunks)
	})
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Store) insertChunks(ctx context.Context, tx *sql.Tx, documentID string, chunks []Chunk) error {
	for i, batch := range lo.Chunk(chunks, chunkBatchSize) {
		ins := s.builder().Insert("chunks").
			Columns("id", "document_id", "ordinal", "content", "page", "section", "kind")
		for j, c := range batch {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if c.Page < 1 {
				c.Page = 1
			}
			ins.Values(c.ID, documentID, i*chunkBatchSize+j, c.Text, c.Page, c.Section, string(c.Kind))
		}
		query, args := ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert chunk batch %d: %w", i, err)
		}
	}
	return nil
}

// GetDocument returns the document with the given id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	query, args := s.builder().Select(documentColumns...).
		From(s.table("documents")).
		Where(entsql.EQ("id", id)).
		Query()

	var doc Document
	err := withRetry(ctx, "get document", func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, query, args...)
		return scanDocument(row, &doc)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperr.NotFound("document", id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	query, args := s.builder().Select(documentColumns...).
		From(s.table("documents")).
		OrderBy(entsql.Desc("created_at")).
		Query()

	var docs []Document
	err := withRetry(ctx, "list documents", func(ctx context.Context) error {
		docs = docs[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d Document
			if err := scanDocument(rows, &d); err != nil {
				return err
			}
			docs = append(docs, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row scanner, d *Document) error {
	var typ, specialty string
	if err := row.Scan(&d.ID, &d.Title, &typ, &specialty, &d.UploadedBy, &d.ChunkCount, &d.CreatedAt); err != nil {
		return err
	}
	d.Type = DocumentType(typ)
	d.Specialty = Specialty(specialty)
	return nil
}
