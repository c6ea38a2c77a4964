package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

var chunkColumns = []string{"id", "document_id", "ordinal", "content", "page", "section", "kind"}

// QueryChunks returns up to limit chunks of the document in ordinal order.
// An empty kinds slice means any kind.
func (s *Store) QueryChunks(ctx context.Context, documentID string, kinds []ChunkKind, limit int) ([]Chunk, error) {
	chunks, err := s.selectChunks(ctx, "query chunks", kindPredicate(documentID, kinds), limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	return chunks, nil
}

// SearchChunks is QueryChunks restricted to chunks whose text contains at
// least one of terms, compared case-insensitively. No terms means no match.
func (s *Store) SearchChunks(ctx context.Context, documentID string, kinds []ChunkKind, terms []string, limit int) ([]Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	match := lo.Map(terms, func(t string, _ int) *entsql.Predicate {
		return entsql.ContainsFold("content", t)
	})
	pred := entsql.And(kindPredicate(documentID, kinds), entsql.Or(match...))

	chunks, err := s.selectChunks(ctx, "search chunks", pred, limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}

func kindPredicate(documentID string, kinds []ChunkKind) *entsql.Predicate {
	pred := entsql.EQ("document_id", documentID)
	if len(kinds) > 0 {
		pred = entsql.And(pred, entsql.In("kind", lo.ToAnySlice(lo.Map(kinds, func(k ChunkKind, _ int) string {
			return string(k)
		}))...))
	}
	return pred
}

func (s *Store) selectChunks(ctx context.Context, op string, pred *entsql.Predicate, limit int) ([]Chunk, error) {
	sel := s.builder().Select(chunkColumns...).
		From(s.table("chunks")).
		Where(pred).
		OrderBy("ordinal")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()
	return s.queryChunks(ctx, op, query, args)
}

// ChunksByID returns the chunks with the given ids, in the order requested.
// Unknown ids are skipped.
func (s *Store) ChunksByID(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args := s.builder().Select(chunkColumns...).
		From(s.table("chunks")).
		Where(entsql.In("id", lo.ToAnySlice(ids)...)).
		Query()

	found, err := s.queryChunks(ctx, "chunks by id", query, args)
	if err != nil {
		return nil, fmt.Errorf("chunks by id: %w", err)
	}
	byID := lo.KeyBy(found, func(c Chunk) string { return c.ID })
	return lo.FilterMap(ids, func(id string, _ int) (Chunk, bool) {
		c, ok := byID[id]
		return c, ok
	}), nil
}

// CountChunks returns the number of chunks per kind for a document.
func (s *Store) CountChunks(ctx context.Context, documentID string) (map[ChunkKind]int, error) {
	query, args := s.builder().Select("kind", entsql.As(entsql.Count("*"), "n")).
		From(s.table("chunks")).
		Where(entsql.EQ("document_id", documentID)).
		GroupBy("kind").
		Query()

	counts := make(map[ChunkKind]int)
	err := withRetry(ctx, "count chunks", func(ctx context.Context) error {
		clear(counts)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var kind string
			var n int
			if err := rows.Scan(&kind, &n); err != nil {
				return err
			}
			counts[ChunkKind(kind)] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return counts, nil
}

func (s *Store) queryChunks(ctx context.Context, op, query string, args []any) ([]Chunk, error) {
	var chunks []Chunk
	err := withRetry(ctx, op, func(ctx context.Context) error {
		chunks = chunks[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Chunk
			var kind string
			if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.Page, &c.Section, &kind); err != nil {
				return err
			}
			c.Kind = ChunkKind(kind)
			chunks = append(chunks, c)
		}
		return rows.Err()
	})
	return chunks, err
}
