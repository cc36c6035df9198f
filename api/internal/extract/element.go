package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// elementSchemaJSON описывает поля, общие для всех элементов встроенного массива.
// questionText и answer обязательны; null в этих полях и в explanation: ошибка элемента.
// type и options здесь не проверяются: нестроковый type даёт MCQ, options читаются только для MCQ.
const elementSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["questionText", "answer"],
  "properties": {
    "questionText": {"type": "string"},
    "answer":       {"type": "string"},
    "explanation":  {"type": "string"}
  }
}`

const optionsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {"type": "string"}
}`

var (
	elementSchema = jsonschema.MustCompileString("element.schema.json", elementSchemaJSON)
	optionsSchema = jsonschema.MustCompileString("options.schema.json", optionsSchemaJSON)
)

type element struct {
	Type         json.RawMessage `json:"type"`
	QuestionText string          `json:"questionText"`
	Options      json.RawMessage `json:"options"`
	Answer       string          `json:"answer"`
	Explanation  string          `json:"explanation"`
}

// kind: только JSON-строка "GENERAL" даёт General; числа, bool, null и отсутствие поля дают MCQ.
func (el element) kind() question.Kind {
	var tag string
	if len(el.Type) == 0 || json.Unmarshal(el.Type, &tag) != nil {
		return question.MultipleChoice
	}
	return question.KindFromTag(tag)
}

// options decodes the MCQ options; an absent field means no options.
func (el element) options() ([]string, error) {
	out := []string{}
	if len(el.Options) == 0 {
		return out, nil
	}
	var doc any
	if err := json.Unmarshal(el.Options, &doc); err != nil {
		return nil, err
	}
	if err := optionsSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	if err := json.Unmarshal(el.Options, &out); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return out, nil
}

// buildQuestion validates one raw array element and maps it to a Question.
func buildQuestion(raw json.RawMessage) (question.Question, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return question.Question{}, err
	}
	if err := elementSchema.Validate(doc); err != nil {
		return question.Question{}, err
	}
	var el element
	if err := json.Unmarshal(raw, &el); err != nil {
		return question.Question{}, fmt.Errorf("decode element: %w", err)
	}

	q := question.Question{
		Text:        el.QuestionText,
		Kind:        el.kind(),
		Options:     []string{},
		Answer:      el.Answer,
		Explanation: el.Explanation,
	}
	if q.Kind != question.MultipleChoice {
		return q, nil
	}
	opts, err := el.options()
	if err != nil {
		return question.Question{}, err
	}
	q.Options = opts
	return q, nil
}
