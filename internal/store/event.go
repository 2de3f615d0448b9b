package store

import (
	"context"
	"fmt"
	"math"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type eventRepo struct {
	drv *entsql.Driver
}

func (r *eventRepo) AppendRequest(ctx context.Context, data RequestEventData) error {
	err := execStmt(ctx, r.drv, builder.Insert(tableRequestEvents).
		Columns("timestamp", "op", "request_id", "evaluation_id", "question_id",
			"latency_ms", "success", "error_message").
		Values(time.Now().UnixMilli(), data.Op, data.RequestID, data.EvaluationID, data.QuestionID,
			data.LatencyMs, data.Success, data.ErrorMessage))
	if err != nil {
		return fmt.Errorf("save request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryRequests(ctx context.Context, opts QueryOpts) ([]RequestEvent, error) {
	sel := builder.Select("id", "timestamp", "op", "request_id", "evaluation_id", "question_id",
		"latency_ms", "success", "error_message").
		From(entsql.Table(tableRequestEvents))
	if opts.Op != "" {
		sel.Where(entsql.EQ("op", opts.Op))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UnixMilli()))
	}
	sel.OrderBy(entsql.Desc("id"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := queryStmt(ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("query request events: %w", err)
	}
	defer rows.Close()

	var events []RequestEvent
	for rows.Next() {
		var (
			e  RequestEvent
			ts int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Op, &e.RequestID, &e.EvaluationID, &e.QuestionID,
			&e.LatencyMs, &e.Success, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan request event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepo) RequestStats(ctx context.Context) ([]RequestStat, error) {
	rows, err := queryStmt(ctx, r.drv, builder.
		Select("op", entsql.Count("*"), entsql.Sum("success"), entsql.Avg("latency_ms")).
		From(entsql.Table(tableRequestEvents)).
		GroupBy("op").
		OrderBy("op"))
	if err != nil {
		return nil, fmt.Errorf("query request stats: %w", err)
	}
	defer rows.Close()

	var stats []RequestStat
	for rows.Next() {
		var (
			st        RequestStat
			successes int
			avg       float64
		)
		if err := rows.Scan(&st.Op, &st.Calls, &successes, &avg); err != nil {
			return nil, fmt.Errorf("scan request stat: %w", err)
		}
		st.Failures = st.Calls - successes
		st.AvgLatencyMs = int64(math.Round(avg))
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
