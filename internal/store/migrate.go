package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	documentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "title", Type: field.TypeString},
		{Name: "document_type", Type: field.TypeString, Size: 32},
		{Name: "specialty", Type: field.TypeString, Size: 32},
		{Name: "uploaded_by", Type: field.TypeString, Default: ""},
		{Name: "chunk_count", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
	}
	documentsTable = &schema.Table{
		Name:       "documents",
		Columns:    documentsColumns,
		PrimaryKey: []*schema.Column{documentsColumns[0]},
	}

	chunksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "document_id", Type: field.TypeString, Size: 36},
		{Name: "ordinal", Type: field.TypeInt},
		{Name: "content", Type: field.TypeString, Size: 1 << 20},
		{Name: "page", Type: field.TypeInt, Default: 1},
		{Name: "section", Type: field.TypeString, Default: ""},
		{Name: "kind", Type: field.TypeString, Size: 32},
	}
	chunksTable = &schema.Table{
		Name:       "chunks",
		Columns:    chunksColumns,
		PrimaryKey: []*schema.Column{chunksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{{
			Symbol:     "chunks_documents_chunks",
			Columns:    []*schema.Column{chunksColumns[1]},
			RefColumns: []*schema.Column{documentsColumns[0]},
			OnDelete:   schema.Cascade,
		}},
		Indexes: []*schema.Index{{
			Name:    "chunk_document_id_kind_ordinal",
			Columns: []*schema.Column{chunksColumns[1], chunksColumns[6], chunksColumns[2]},
		}},
	}

	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "document_id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString},
		{Name: "level", Type: field.TypeInt},
		{Name: "topic", Type: field.TypeString, Default: ""},
		{Name: "prompt_text", Type: field.TypeString, Size: 1 << 20},
		{Name: "options", Type: field.TypeJSON},
		{Name: "answer_key", Type: field.TypeString, Size: 1 << 20},
		{Name: "explanation", Type: field.TypeString, Size: 1 << 20},
		{Name: "source_chunk_ids", Type: field.TypeJSON},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "answered", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
	}
	questionsTable = &schema.Table{
		Name:       "questions",
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{{
			Symbol:     "questions_documents_questions",
			Columns:    []*schema.Column{questionsColumns[1]},
			RefColumns: []*schema.Column{documentsColumns[0]},
			OnDelete:   schema.NoAction,
		}},
		Indexes: []*schema.Index{{
			Name:    "question_user_id_document_id",
			Columns: []*schema.Column{questionsColumns[2], questionsColumns[1]},
		}},
	}

	answersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString},
		{Name: "document_id", Type: field.TypeString, Size: 36},
		{Name: "answer_text", Type: field.TypeString, Size: 1 << 20},
		{Name: "clinical_accuracy", Type: field.TypeFloat64},
		{Name: "risk_assessment", Type: field.TypeFloat64},
		{Name: "communication", Type: field.TypeFloat64},
		{Name: "efficiency", Type: field.TypeFloat64},
		{Name: "total_score", Type: field.TypeFloat64},
		{Name: "level_before", Type: field.TypeInt},
		{Name: "level_after", Type: field.TypeInt},
		{Name: "level_delta", Type: field.TypeInt},
		{Name: "reason", Type: field.TypeString, Default: ""},
		{Name: "feedback", Type: field.TypeString, Size: 1 << 20},
		{Name: "strengths", Type: field.TypeJSON},
		{Name: "areas_for_improvement", Type: field.TypeJSON},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	answersTable = &schema.Table{
		Name:       "answers",
		Columns:    answersColumns,
		PrimaryKey: []*schema.Column{answersColumns[0]},
		ForeignKeys: []*schema.ForeignKey{{
			Symbol:     "answers_questions_answers",
			Columns:    []*schema.Column{answersColumns[1]},
			RefColumns: []*schema.Column{questionsColumns[0]},
			OnDelete:   schema.NoAction,
		}},
		Indexes: []*schema.Index{{
			Name:    "answer_user_id_document_id",
			Columns: []*schema.Column{answersColumns[2], answersColumns[3]},
		}},
	}

	snapshotsColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "document_id", Type: field.TypeString, Size: 36},
		{Name: "current_level", Type: field.TypeInt, Default: 1},
		{Name: "questions_answered", Type: field.TypeInt, Default: 0},
		{Name: "questions_correct", Type: field.TypeInt, Default: 0},
		{Name: "avg_score", Type: field.TypeFloat64, Default: 0},
		{Name: "level_streak", Type: field.TypeInt, Default: 0},
		{Name: "last_active", Type: field.TypeTime},
		{Name: "version", Type: field.TypeInt64, Default: 0},
	}
	snapshotsTable = &schema.Table{
		Name:       "mastery_snapshots",
		Columns:    snapshotsColumns,
		PrimaryKey: []*schema.Column{snapshotsColumns[0], snapshotsColumns[1]},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 1 << 20, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 1 << 24, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 1 << 24, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{{
			Name:    "llmrequestevent_timestamp",
			Columns: []*schema.Column{llmEventsColumns[1]},
		}},
	}

	tables = []*schema.Table{
		documentsTable,
		chunksTable,
		questionsTable,
		answersTable,
		snapshotsTable,
		llmEventsTable,
	}
)

func init() {
	chunksTable.ForeignKeys[0].RefTable = documentsTable
	questionsTable.ForeignKeys[0].RefTable = documentsTable
	answersTable.ForeignKeys[0].RefTable = questionsTable
}

// migrate creates missing tables, columns and indexes. It never drops.
func (s *Store) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("create migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
