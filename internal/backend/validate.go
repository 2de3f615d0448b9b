package backend

import (
	"github.com/go-playground/validator/v10"

	"github.com/selfeval/selfeval/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkPayload runs struct-tag validation on a decoded payload.
func checkPayload(v any) error {
	switch p := v.(type) {
	case *[]model.Evaluation:
		return checkEach(*p)
	case *[]model.Section:
		return checkEach(*p)
	case *[]model.Question:
		if err := checkEach(*p); err != nil {
			return err
		}
		for _, q := range *p {
			if err := q.Check(); err != nil {
				return err
			}
		}
		return nil
	}
	return validate.Struct(v)
}

func checkEach[T any](items []T) error {
	for i := range items {
		if err := validate.Struct(&items[i]); err != nil {
			return err
		}
	}
	return nil
}
