package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rounds/internal/apperr"
)

var llmEventColumns = []string{
	"timestamp", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

// AppendLLMRequest records an LLM API call event.
func (s *Store) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := s.builder().Insert("llm_request_events").
		Columns(llmEventColumns...).
		Values(now(), data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody).
		Query()

	err := withRetry(ctx, "append llm request", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// ListLLMRequests returns the most recent events, newest first. Bodies are
// omitted; use GetLLMRequest for the full record.
func (s *Store) ListLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	preds := []*entsql.Predicate{}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To))
	}

	sel := s.builder().Select("id", "timestamp", "provider", "model", "purpose",
		"input_tokens", "output_tokens", "latency_ms", "success", "error_message").
		From(s.table("llm_request_events")).
		OrderBy(entsql.Desc("id"))
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	var events []LLMRequestEvent
	err := withRetry(ctx, "list llm requests", func(ctx context.Context) error {
		events = events[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e LLMRequestEvent
			if err := rows.Scan(&e.ID, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose,
				&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage); err != nil {
				return err
			}
			events = append(events, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list llm requests: %w", err)
	}
	return events, nil
}

// GetLLMRequest returns one event including request and response bodies.
func (s *Store) GetLLMRequest(ctx context.Context, id int64) (LLMRequestEvent, error) {
	query, args := s.builder().Select(append([]string{"id"}, llmEventColumns...)...).
		From(s.table("llm_request_events")).
		Where(entsql.EQ("id", id)).
		Query()

	var e LLMRequestEvent
	err := withRetry(ctx, "get llm request", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Timestamp, &e.Provider, &e.Model,
			&e.Purpose, &e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage,
			&e.RequestBody, &e.ResponseBody)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return LLMRequestEvent{}, apperr.NotFound("llm request", fmt.Sprint(id))
	}
	if err != nil {
		return LLMRequestEvent{}, fmt.Errorf("get llm request: %w", err)
	}
	return e, nil
}

// LLMUsageBy aggregates events grouped by "purpose" or "model".
func (s *Store) LLMUsageBy(ctx context.Context, column string) ([]LLMUsage, error) {
	if column != "purpose" && column != "model" {
		return nil, apperr.Invalid("group", fmt.Errorf("cannot group by %q", column))
	}

	failures := "SUM(CASE WHEN success THEN 0 ELSE 1 END)"
	query, args := s.builder().Select(
		column,
		entsql.As(entsql.Count("*"), "requests"),
		entsql.As(failures, "failures"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As(entsql.Avg("latency_ms"), "avg_latency_ms"),
	).
		From(s.table("llm_request_events")).
		GroupBy(column).
		OrderBy(column).
		Query()

	var usage []LLMUsage
	err := withRetry(ctx, "llm usage", func(ctx context.Context) error {
		usage = usage[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var u LLMUsage
			if err := rows.Scan(&u.Key, &u.Requests, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
				return err
			}
			usage = append(usage, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("llm usage: %w", err)
	}
	return usage, nil
}
