package question

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind: тип вопроса. Строковый тег, чтобы можно было добавлять новые варианты.
type Kind string

const (
	MultipleChoice Kind = "MCQ"
	General        Kind = "GENERAL"
)

func (k Kind) String() string { return string(k) }

// KindFromTag: только точное "GENERAL" даёт General, всё остальное: MultipleChoice.
func KindFromTag(tag string) Kind {
	if tag == string(General) {
		return General
	}
	return MultipleChoice
}

var (
	ErrEmptyText          = errors.New("question text is empty")
	ErrNoOptions          = errors.New("multiple-choice question has no options")
	ErrGeneralWithOptions = errors.New("general question must not have options")
	ErrUnknownKind        = errors.New("unknown question kind")
)

// Question: единица результата извлечения.
type Question struct {
	Text        string   `json:"text"`
	Kind        Kind     `json:"kind"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// NewMultipleChoice собирает MCQ с дефолтами (пустые answer/explanation).
func NewMultipleChoice(text string, options []string) Question {
	if options == nil {
		options = []string{}
	}
	return Question{Text: text, Kind: MultipleChoice, Options: options}
}

// NewGeneral собирает вопрос без вариантов ответа.
func NewGeneral(text, answer, explanation string) Question {
	return Question{Text: text, Kind: General, Options: []string{}, Answer: answer, Explanation: explanation}
}

// Validate проверяет инварианты модели. MCQ без вариантов: невалиден.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyText
	}
	switch q.Kind {
	case MultipleChoice:
		if len(q.Options) == 0 {
			return ErrNoOptions
		}
	case General:
		if len(q.Options) != 0 {
			return ErrGeneralWithOptions
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(q.Kind))
	}
	return nil
}

// Label returns the letter label for option position i: 0 -> "A", 1 -> "B", ...
// Past "Z" the labels continue as "AA", "AB", ...
func Label(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i; ; n = n/26 - 1 {
		b = append([]byte{byte('A' + n%26)}, b...)
		if n < 26 {
			break
		}
	}
	return string(b)
}

// Highlighted сообщает, упомянута ли буква варианта i в ответе (как при экспорте).
func (q Question) Highlighted(i int) bool {
	if q.Kind != MultipleChoice || i < 0 || i >= len(q.Options) || q.Answer == "" {
		return false
	}
	return strings.Contains(q.Answer, Label(i))
}

// Answered: есть ли у вопроса ответ (эвристический путь ответов не даёт).
func (q Question) Answered() bool { return strings.TrimSpace(q.Answer) != "" }

// Set: сохранённый набор вопросов с одной загрузки.
type Set struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	// QuestionCount заполняется и там, где сами вопросы не загружаются (история).
	QuestionCount int        `json:"question_count"`
	Questions     []Question `json:"questions"`
}

const titleLayout = "2006-01-02 15:04"

// DefaultTitle: заголовок набора по умолчанию.
func DefaultTitle(at time.Time) string {
	return "Questions from " + at.Format(titleLayout)
}
