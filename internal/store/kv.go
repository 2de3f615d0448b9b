package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type kvRepo struct {
	drv *entsql.Driver
}

func (r *kvRepo) Get(ctx context.Context, key string) (string, bool, error) {
	rows, err := queryStmt(ctx, r.drv, builder.Select("value").
		From(entsql.Table(tableKV)).
		Where(entsql.EQ("key", key)).
		Limit(1))
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var v string
	if err := rows.Scan(&v); err != nil {
		return "", false, fmt.Errorf("scan %q: %w", key, err)
	}
	return v, true, nil
}

func (r *kvRepo) Set(ctx context.Context, key, value string) error {
	err := execStmt(ctx, r.drv, builder.Insert(tableKV).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	err := execStmt(ctx, r.drv, builder.Delete(tableKV).Where(entsql.EQ("key", key)))
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
