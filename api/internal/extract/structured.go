package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// Policy decides what happens to a batch when one element is malformed.
type Policy int

const (
	// AbortBatch discards every element of the call once any element fails.
	AbortBatch Policy = iota
	// SkipMalformed drops only the failing elements and keeps the rest.
	SkipMalformed
)

func (p Policy) String() string {
	switch p {
	case SkipMalformed:
		return "skip"
	default:
		return "abort"
	}
}

// ParsePolicy понимает "abort" (по умолчанию) и "skip".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortBatch, nil
	case "skip":
		return SkipMalformed, nil
	default:
		return AbortBatch, fmt.Errorf("unknown element policy %q: use abort or skip", s)
	}
}

// ElementResult is the outcome of building one array element.
type ElementResult struct {
	Index    int
	Question question.Question
	Err      error
}

func (r ElementResult) OK() bool { return r.Err == nil }

// Structured извлекает вопросы из ответа модели со встроенным JSON-массивом.
type Structured struct {
	Policy Policy
	Logger *slog.Logger
}

func NewStructured(policy Policy, logger *slog.Logger) *Structured {
	return &Structured{Policy: policy, Logger: logger}
}

func (s *Structured) log() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Structured) policy() Policy {
	if s == nil {
		return AbortBatch
	}
	return s.Policy
}

// Parse reads the response envelope and returns one result per array element.
// The error is non-nil only for envelope or array level failures.
func (s *Structured) Parse(responseText string) ([]ElementResult, error) {
	text, err := EnvelopeText(responseText)
	if err != nil {
		return nil, err
	}
	return ParseText(text)
}

// ParseText is Parse without the envelope: text is the model's free-form output.
func ParseText(text string) ([]ElementResult, error) {
	fragment, err := LocateArray(text)
	if err != nil {
		return nil, err
	}
	raws, err := splitArray(fragment)
	if err != nil {
		return nil, err
	}
	results := make([]ElementResult, 0, len(raws))
	for i, raw := range raws {
		q, err := buildQuestion(raw)
		if err != nil {
			results = append(results, ElementResult{Index: i, Err: &ElementError{Index: i, Err: err}})
			continue
		}
		results = append(results, ElementResult{Index: i, Question: q})
	}
	return results, nil
}

// Collect applies the policy to per-element results.
// Под AbortBatch первая же ошибка обнуляет весь результат.
func Collect(results []ElementResult, policy Policy) ([]question.Question, error) {
	out := make([]question.Question, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			if policy == AbortBatch {
				return []question.Question{}, r.Err
			}
			errs = append(errs, r.Err)
			continue
		}
		out = append(out, r.Question)
	}
	return out, errors.Join(errs...)
}

// Extract never fails: problems degrade to an empty or, under SkipMalformed, partial result.
func (s *Structured) Extract(responseText string) []question.Question {
	results, err := s.Parse(responseText)
	return s.finish(results, err)
}

// ExtractText: Extract для текста без конверта (например, вывод модели, сохранённый в файл).
func (s *Structured) ExtractText(text string) []question.Question {
	results, err := ParseText(text)
	return s.finish(results, err)
}

func (s *Structured) finish(results []ElementResult, err error) []question.Question {
	if err != nil {
		s.log().Warn("structured extraction failed", "reason", reason(err), "err", err)
		return []question.Question{}
	}
	qs, err := Collect(results, s.policy())
	if err != nil {
		var ee *ElementError
		idx := -1
		if errors.As(err, &ee) {
			idx = ee.Index
		}
		s.log().Warn("structured extraction: malformed element",
			"reason", reason(err), "policy", s.policy().String(), "index", idx, "err", err)
	}
	s.log().Debug("structured extraction done", "elements", len(results), "questions", len(qs))
	return qs
}
