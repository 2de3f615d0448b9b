package backend

import "github.com/selfeval/selfeval/internal/model"

// DemoUser is the identity the offline demo backend acts for.
var DemoUser = model.User{ID: "demo-student", Name: "Demo Student", Role: "student"}

// NewDemo returns a Mock seeded with a small catalogue of sections, used by
// the --offline mode.
func NewDemo() *Mock {
	m := NewMock(DemoUser)

	m.AddSection(model.Section{
		ID:          "soft-skills",
		Name:        "Soft skills",
		Description: "Communication, teamwork and time management.",
	},
		scale("soft-1", 1, "I explain my ideas clearly to classmates."),
		scale("soft-2", 2, "I deliver group work on time."),
		scale("soft-3", 3, "I ask for feedback and act on it."),
	)

	agreement := []string{"Always", "Often", "Sometimes", "Rarely", "Never"}
	m.AddSection(model.Section{
		ID:          "adaptive-skills",
		Name:        "Adaptive skills",
		Description: "Coping with change, uncertainty and setbacks.",
	},
		choice("adapt-1", 1, "When plans change at the last minute I adjust quickly.", agreement),
		choice("adapt-2", 2, "I try a different approach when the first one fails.", agreement),
		choice("adapt-3", 3, "I stay calm under exam pressure.", agreement),
		choice("adapt-4", 4, "I learn new tools without being asked to.", agreement),
	)

	optional := false
	m.AddSection(model.Section{
		ID:          "technical-skills",
		Name:        "Technical skills",
		Description: "Core competencies of your degree programme.",
		Questionnaire: model.InlineRef(model.Questionnaire{
			ID:       "qn-technical-skills",
			Title:    "Technical self-assessment",
			Required: &optional,
		}),
	},
		scale("tech-1", 1, "I can set up a development environment on my own."),
		choice("tech-2", 2, "Which area do you feel strongest in?", []string{"Programming", "Mathematics", "Networks", "Databases"}),
		model.Question{ID: "tech-3", Ordinal: 3, Kind: model.KindFreeText, Points: 2,
			Text: "Describe a technical problem you solved recently."},
	)
	return m
}

func scale(id string, ord int, text string) model.Question {
	return model.Question{ID: id, Ordinal: ord, Kind: model.KindScale, Text: text, Points: 10, Min: 1, Max: 10}
}

func choice(id string, ord int, text string, options []string) model.Question {
	return model.Question{ID: id, Ordinal: ord, Kind: model.KindMultipleChoice, Text: text, Points: 4, Options: options}
}
