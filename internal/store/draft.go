package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type draftRepo struct {
	drv *entsql.Driver
}

func (r *draftRepo) SaveDraft(ctx context.Context, d Draft) error {
	raw, err := json.Marshal(d.Value)
	if err != nil {
		return fmt.Errorf("encode draft value: %w", err)
	}
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	err = execStmt(ctx, r.drv, builder.Insert(tableDrafts).
		Columns("evaluation_id", "question_id", "value", "revision", "acked", "updated_at").
		Values(d.EvaluationID, d.QuestionID, string(raw), d.Revision, false, updated.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("evaluation_id", "question_id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *draftRepo) AckDraft(ctx context.Context, evaluationID, questionID string, revision int64) error {
	err := execStmt(ctx, r.drv, builder.Update(tableDrafts).
		Set("acked", true).
		Where(entsql.And(
			entsql.EQ("evaluation_id", evaluationID),
			entsql.EQ("question_id", questionID),
			entsql.EQ("revision", revision),
		)))
	if err != nil {
		return fmt.Errorf("ack draft: %w", err)
	}
	return nil
}

func (r *draftRepo) Drafts(ctx context.Context, evaluationID string) ([]Draft, error) {
	rows, err := queryStmt(ctx, r.drv, builder.
		Select("question_id", "value", "revision", "acked", "updated_at").
		From(entsql.Table(tableDrafts)).
		Where(entsql.EQ("evaluation_id", evaluationID)).
		OrderBy("revision"))
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		var (
			d       Draft
			raw     string
			updated int64
		)
		if err := rows.Scan(&d.QuestionID, &raw, &d.Revision, &d.Acked, &updated); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &d.Value); err != nil {
			return nil, fmt.Errorf("decode draft %s: %w", d.QuestionID, err)
		}
		d.EvaluationID = evaluationID
		d.UpdatedAt = time.UnixMilli(updated)
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (r *draftRepo) ClearDrafts(ctx context.Context, evaluationID string) error {
	err := execStmt(ctx, r.drv, builder.Delete(tableDrafts).Where(entsql.EQ("evaluation_id", evaluationID)))
	if err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	return nil
}
