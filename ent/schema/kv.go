package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// KV is a small keyed string store (auth tokens, preferences).
type KV struct {
	ent.Schema
}

func (KV) Mixin() []ent.Mixin {
	return []ent.Mixin{UpdatedMixin{}}
}

func (KV) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			Unique().
			Immutable().
			Comment("Lookup key, e.g. auth.access"),
		field.Text("value").
			Comment("Stored value"),
	}
}
