package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Draft is an answer kept locally until the backend acknowledges it.
type Draft struct {
	ent.Schema
}

func (Draft) Mixin() []ent.Mixin {
	return []ent.Mixin{UpdatedMixin{}}
}

func (Draft) Fields() []ent.Field {
	return []ent.Field{
		field.String("evaluation_id").
			Immutable().
			Comment("Evaluation the answer belongs to"),
		field.String("question_id").
			Immutable().
			Comment("Answered question"),
		field.Text("value").
			Comment("JSON-encoded answer value"),
		field.Int64("revision").
			Comment("Session revision of the latest submission"),
		field.Bool("acked").
			Default(false).
			Comment("Whether the backend acknowledged this revision"),
	}
}

func (Draft) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("evaluation_id", "question_id").Unique(),
		index.Fields("evaluation_id"),
	}
}
