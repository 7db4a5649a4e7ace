package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type SurveyParams struct {
	Query string `json:"query" validate:"required"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *SurveyParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type SurveyResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	DocID   string `json:"doc_id"`
	Kind    string `json:"kind"`
	Source  string `json:"source,omitempty"`
	Page    int    `json:"page,omitempty"`
	Summary string `json:"summary"`
}
