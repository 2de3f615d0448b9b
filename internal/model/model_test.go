package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero", Value{}, true},
		{"empty text", Text(""), true},
		{"whitespace", Text("  \t"), true},
		{"text", Text("A"), false},
		{"zero int", Int(0), false},
		{"int", Int(7), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.IsEmpty())
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`7`), &v))
	n, ok := v.AsInt()
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	require.NoError(t, json.Unmarshal([]byte(`"B"`), &v))
	s, ok := v.AsText()
	assert.True(t, ok)
	assert.Equal(t, "B", s)

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsEmpty())

	assert.Error(t, json.Unmarshal([]byte(`7.5`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestValue_UnmarshalJSON_IntegerBounds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: `9007199254740993`, want: 9007199254740993},
		{in: `-42`, want: -42},
		{in: `7.0`, want: 7},
		{in: `1e2`, want: 100},
		{in: `1e20`, wantErr: true},
		{in: `99999999999999999999`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v Value
			err := json.Unmarshal([]byte(tt.in), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			n, ok := v.AsInt()
			assert.True(t, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestRef_UnmarshalBothForms(t *testing.T) {
	var byID struct {
		Section Ref[Section] `json:"section"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"section":"s1"}`), &byID))
	assert.Equal(t, "s1", byID.Section.ID())
	_, inlined := byID.Section.Inlined()
	assert.False(t, inlined)

	var populated struct {
		Section Ref[Section] `json:"section"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"section":{"id":"s2","name":"Soft skills"}}`), &populated))
	assert.Equal(t, "s2", populated.Section.ID())
	sec, inlined := populated.Section.Inlined()
	require.True(t, inlined)
	assert.Equal(t, "Soft skills", sec.Name)

	var empty struct {
		Section Ref[Section] `json:"section"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"section":null}`), &empty))
	assert.True(t, empty.Section.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"section":12}`), &empty))
}

func TestRef_Resolve(t *testing.T) {
	known := map[string]Section{"s1": {ID: "s1", Name: "Technical skills"}}
	lookup := func(id string) (Section, bool) {
		s, ok := known[id]
		return s, ok
	}

	s, ok := RefTo[Section]("s1").Resolve(lookup)
	require.True(t, ok)
	assert.Equal(t, "Technical skills", s.Name)

	_, ok = RefTo[Section]("missing").Resolve(lookup)
	assert.False(t, ok)

	s, ok = InlineRef(Section{ID: "s9", Name: "Inline"}).Resolve(nil)
	require.True(t, ok)
	assert.Equal(t, "Inline", s.Name)
}

func TestRef_MarshalRoundTripKeepsForm(t *testing.T) {
	b, err := json.Marshal(RefTo[Section]("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `"s1"`, string(b))

	b, err = json.Marshal(InlineRef(Section{ID: "s1", Name: "X"}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":"X"`)
}

func TestQuestion_Validate(t *testing.T) {
	mc := Question{ID: "q1", Kind: KindMultipleChoice, Options: []string{"A", "B", "C"}}
	scale := Question{ID: "q2", Kind: KindScale, Min: 1, Max: 10}
	free := Question{ID: "q3", Kind: KindFreeText}

	tests := []struct {
		name     string
		q        Question
		v        Value
		required bool
		wantErr  error
	}{
		{"option in set", mc, Text("B"), true, nil},
		{"option not in set", mc, Text("D"), true, ErrNotInOptionSet},
		{"option wrong type", mc, Int(1), true, ErrWrongType},
		{"scale lower bound", scale, Int(1), true, nil},
		{"scale upper bound", scale, Int(10), true, nil},
		{"scale below", scale, Int(0), true, ErrOutOfRange},
		{"scale above", scale, Int(11), true, ErrOutOfRange},
		{"scale wrong type", scale, Text("5"), true, ErrWrongType},
		{"free text", free, Text("I plan ahead"), true, nil},
		{"free text empty required", free, Text(" "), true, ErrEmptyAnswer},
		{"free text empty optional", free, Text(""), false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate(tt.v, tt.required)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestQuestion_NotInOptionSetMessage(t *testing.T) {
	q := Question{Kind: KindMultipleChoice, Options: []string{"A", "B", "C"}}
	assert.EqualError(t, q.Validate(Text("D"), true), "value not in option set")
}

func TestQuestion_Check(t *testing.T) {
	assert.NoError(t, Question{ID: "a", Kind: KindScale, Min: 1, Max: 5}.Check())
	assert.Error(t, Question{ID: "b", Kind: KindScale, Min: 5, Max: 1}.Check())
	assert.Error(t, Question{ID: "c", Kind: KindMultipleChoice}.Check())
	assert.Error(t, Question{ID: "d", Kind: KindFreeText, Points: -1}.Check())
	assert.Error(t, Question{ID: "e", Kind: "matrix"}.Check())
}

func TestQuestion_DefaultValue(t *testing.T) {
	n, ok := Question{Kind: KindScale, Min: 1, Max: 10}.DefaultValue().AsInt()
	require.True(t, ok)
	assert.Equal(t, 5, n)

	s, _ := Question{Kind: KindMultipleChoice, Options: []string{"x", "y"}}.DefaultValue().AsText()
	assert.Equal(t, "x", s)

	assert.True(t, Question{Kind: KindFreeText}.DefaultValue().IsEmpty())
}

func TestSortQuestions_OrdinalThenID(t *testing.T) {
	in := []Question{
		{ID: "c", Ordinal: 2},
		{ID: "b", Ordinal: 1},
		{ID: "a", Ordinal: 2},
		{ID: "z", Ordinal: 0},
	}
	got := SortQuestions(in)

	var ids []string
	for _, q := range got {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"z", "b", "a", "c"}, ids)
	assert.Equal(t, "c", in[0].ID, "input must not be reordered")
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusNotCreated, StatusPending))
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))

	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusInProgress))
	assert.False(t, CanTransition(StatusInProgress, StatusInProgress))
	assert.False(t, CanTransition(StatusPending, "archived"))

	assert.True(t, Regresses(StatusCompleted, StatusInProgress))
	assert.False(t, Regresses(StatusPending, StatusInProgress))
}

func TestEvaluation_Percent(t *testing.T) {
	total, maxScore := 15.0, 20.0
	e := Evaluation{TotalScore: &total, MaxScore: &maxScore}
	p, ok := e.Percent()
	require.True(t, ok)
	assert.InDelta(t, 75.0, p, 1e-9)

	_, ok = Evaluation{}.Percent()
	assert.False(t, ok)
}

func TestQuestionnaire_IsRequiredDefault(t *testing.T) {
	assert.True(t, Questionnaire{}.IsRequired())
	no := false
	assert.False(t, Questionnaire{Required: &no}.IsRequired())
}
