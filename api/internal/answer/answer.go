// Package answer fills in answers and explanations for questions
// the heuristic path extracted without them.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/prompt"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// Answerer returns a copy of qs with answers filled in where it could.
type Answerer interface {
	Name() string
	Answer(ctx context.Context, qs []question.Question) ([]question.Question, error)
}

// Completer: один текстовый вызов модели: системный и пользовательский промпт, ответ строкой.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Model adapts a Completer to Answerer.
type Model struct {
	Completer Completer
	Prompts   prompt.Set
	Logger    *slog.Logger
}

func NewModel(c Completer, prompts prompt.Set, logger *slog.Logger) *Model {
	return &Model{Completer: c, Prompts: prompts, Logger: logger}
}

func (m *Model) Name() string { return m.Completer.Name() }

func (m *Model) log() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// Answer отправляет модели только вопросы без ответа. Уже отвеченные не трогаются.
func (m *Model) Answer(ctx context.Context, qs []question.Question) ([]question.Question, error) {
	pending := Pending(qs)
	if len(pending) == 0 {
		return qs, nil
	}
	batch := make([]question.Question, 0, len(pending))
	for _, i := range pending {
		batch = append(batch, qs[i])
	}
	user := m.Prompts.AnswerUser + "\n\n" + Render(batch)
	reply, err := m.Completer.Complete(ctx, m.Prompts.AnswerSystem, user)
	if err != nil {
		return qs, fmt.Errorf("%s answer: %w", m.Completer.Name(), err)
	}
	answered, err := Apply(batch, reply)
	if err != nil {
		m.log().Warn("answer reply unusable", "provider", m.Completer.Name(), "err", err)
		return qs, err
	}
	out := append([]question.Question(nil), qs...)
	for k, i := range pending {
		out[i] = answered[k]
	}
	return out, nil
}

// Pending returns the indexes of questions without an answer.
func Pending(qs []question.Question) []int {
	var idx []int
	for i, q := range qs {
		if !q.Answered() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Render formats questions as a numbered list with lettered options.
func Render(qs []question.Question) string {
	var b strings.Builder
	for i, q := range qs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Text)
		for j, o := range q.Options {
			fmt.Fprintf(&b, "%s) %s\n", question.Label(j), o)
		}
	}
	return b.String()
}

type reply struct {
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// Apply reads the embedded array of {answer, explanation} from reply text and fills qs by position.
// Элементы, которые не читаются как объект, пропускаются: вопрос остаётся без ответа.
func Apply(qs []question.Question, text string) ([]question.Question, error) {
	fragment, err := extract.LocateArray(text)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", extract.ErrArrayMalformed, err)
	}
	out := append([]question.Question(nil), qs...)
	for i := range out {
		if i >= len(raws) {
			break
		}
		var r reply
		if err := json.Unmarshal(raws[i], &r); err != nil {
			continue
		}
		if out[i].Answer == "" {
			out[i].Answer = strings.TrimSpace(r.Answer)
			out[i].Explanation = strings.TrimSpace(r.Explanation)
		}
	}
	return out, nil
}
