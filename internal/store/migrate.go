package store

import (
	"context"
	"reflect"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/selfeval/selfeval/ent/schema"
)

// Table names.
const (
	tableKV            = "kv"
	tableDrafts        = "drafts"
	tableRequestEvents = "request_events"
)

// builder renders SQLite statements.
var builder = entsql.Dialect(dialect.SQLite)

// Tables returns the migration tables described by the ent schemas.
func Tables() []*entschema.Table {
	return []*entschema.Table{
		tableOf(tableKV, schema.KV{}),
		tableOf(tableDrafts, schema.Draft{}),
		tableOf(tableRequestEvents, schema.RequestEvent{}),
	}
}

// tableOf converts an ent schema, mixins included, into a migration table
// with the implicit auto-increment id.
func tableOf(name string, s ent.Interface) *entschema.Table {
	id := &entschema.Column{Name: "id", Type: field.TypeInt, Increment: true}
	t := &entschema.Table{
		Name:       name,
		Columns:    []*entschema.Column{id},
		PrimaryKey: []*entschema.Column{id},
	}

	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	byName := map[string]*entschema.Column{"id": id}
	for _, f := range fields {
		d := f.Descriptor()
		c := &entschema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Unique:   d.Unique,
			Nullable: d.Optional,
			Size:     int64(d.Size),
		}
		if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
			c.Default = d.Default
		}
		t.Columns = append(t.Columns, c)
		byName[c.Name] = c
	}

	for _, ix := range indexes {
		d := ix.Descriptor()
		cols := make([]*entschema.Column, 0, len(d.Fields))
		for _, f := range d.Fields {
			cols = append(cols, byName[f])
		}
		t.Indexes = append(t.Indexes, &entschema.Index{
			Name:    name + "_" + strings.Join(d.Fields, "_"),
			Unique:  d.Unique,
			Columns: cols,
		})
	}
	return t
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := entschema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables()...)
}

// execStmt runs a built statement that returns no rows.
func execStmt(ctx context.Context, drv dialect.Driver, q entsql.Querier) error {
	query, args := q.Query()
	return drv.Exec(ctx, query, args, nil)
}

// queryStmt runs a built statement and returns its rows. Callers close them.
func queryStmt(ctx context.Context, drv dialect.Driver, q entsql.Querier) (*entsql.Rows, error) {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
