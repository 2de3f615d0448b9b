package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// EventMixin provides the timestamp shared by append-only log entities.
type EventMixin struct {
	mixin.Schema
}

func (EventMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("timestamp").
			Immutable().
			Comment("Unix milliseconds when the event was recorded"),
	}
}

func (EventMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("timestamp"),
	}
}

// UpdatedMixin records when a mutable row last changed.
type UpdatedMixin struct {
	mixin.Schema
}

func (UpdatedMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("updated_at").
			Comment("Unix milliseconds of the last write"),
	}
}
