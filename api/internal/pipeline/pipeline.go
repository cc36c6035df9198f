// Package pipeline wires the collaborators around the two extraction paths:
// image → vision model → structured extraction, and image → OCR → heuristic
// extraction → answering model. Non-empty results can be persisted as a set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/radhikaramasamy/snipreader/api/internal/answer"
	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// ErrNoQuestions: извлечение прошло, но вопросов нет. Пользователю показывается NoQuestionsMessage, не 500.
var ErrNoQuestions = errors.New("pipeline: no questions extracted")

const NoQuestionsMessage = "No questions could be extracted from the image"

// Mode selects the extraction path.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeOCR        Mode = "ocr"
	ModeText       Mode = "text"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStructured:
		return ModeStructured, nil
	case ModeOCR:
		return ModeOCR, nil
	case ModeText:
		return ModeText, nil
	}
	return "", fmt.Errorf("unknown mode %q: use structured, ocr or text", s)
}

// SetStore is the part of store.SetRepo the pipeline needs.
type SetStore interface {
	Create(ctx context.Context, title, source string, qs []question.Question) (question.Set, error)
}

type Service struct {
	Vision     ocr.Vision
	OCR        ocr.Recognizer
	OCROptions ocr.Options
	Answerer   answer.Answerer // nil: вопросы эвристического пути остаются без ответов
	Structured *extract.Structured
	Heuristic  *extract.Heuristic
	Repo       SetStore // nil: наборы не сохраняются
	Logger     *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// FromImage runs the structured path. mime may be empty.
func (s *Service) FromImage(ctx context.Context, image []byte, mime string) ([]question.Question, error) {
	if s.Vision == nil {
		return nil, fmt.Errorf("vision model: %w", ocr.ErrNotConfigured)
	}
	raw, err := s.Vision.GenerateContent(ctx, image, mime)
	if err != nil {
		return nil, fmt.Errorf("%s generateContent: %w", s.Vision.Name(), err)
	}
	qs := s.Structured.Extract(raw)
	s.log().Info("structured path done", "provider", s.Vision.Name(), "questions", len(qs))
	if len(qs) == 0 {
		return qs, ErrNoQuestions
	}
	return qs, nil
}

// FromOCR runs OCR and then the heuristic path.
func (s *Service) FromOCR(ctx context.Context, image []byte, withAnswers bool) ([]question.Question, error) {
	if s.OCR == nil {
		return nil, fmt.Errorf("ocr: %w", ocr.ErrNotConfigured)
	}
	text, err := s.OCR.Recognize(ctx, image, s.OCROptions)
	if err != nil {
		return nil, fmt.Errorf("%s recognize: %w", s.OCR.Name(), err)
	}
	s.log().Debug("ocr done", "provider", s.OCR.Name(), "chars", len(text))
	return s.FromText(ctx, text, withAnswers)
}

// FromText runs the heuristic path over already recognized text.
// Ошибка отвечающей модели не фатальна: вопросы возвращаются без ответов.
func (s *Service) FromText(ctx context.Context, text string, withAnswers bool) ([]question.Question, error) {
	qs := s.Heuristic.Extract(text)
	s.log().Info("heuristic path done", "questions", len(qs))
	if len(qs) == 0 {
		return qs, ErrNoQuestions
	}
	if !withAnswers || s.Answerer == nil {
		return qs, nil
	}
	answered, err := s.Answerer.Answer(ctx, qs)
	if err != nil {
		s.log().Warn("answering failed, keeping questions unanswered", "provider", s.Answerer.Name(), "err", err)
		return qs, nil
	}
	return answered, nil
}

// Save persists qs as a new set. Without a repo the set is returned unsaved (empty ID).
func (s *Service) Save(ctx context.Context, title, source string, qs []question.Question) (question.Set, error) {
	if s.Repo == nil {
		now := time.Now().UTC()
		if strings.TrimSpace(title) == "" {
			title = question.DefaultTitle(now)
		}
		return question.Set{Title: title, Source: source, CreatedAt: now, QuestionCount: len(qs), Questions: qs}, nil
	}
	set, err := s.Repo.Create(ctx, title, source, qs)
	if err != nil {
		return question.Set{}, fmt.Errorf("save set: %w", err)
	}
	s.log().Info("set saved", "id", set.ID, "source", source, "questions", len(qs))
	return set, nil
}

// Input is one extraction request from any front end.
type Input struct {
	Mode        Mode
	Image       []byte
	MIME        string
	Text        string
	Title       string
	WithAnswers bool
}

// Run extracts by mode and saves the non-empty result.
func (s *Service) Run(ctx context.Context, in Input) (question.Set, error) {
	var (
		qs  []question.Question
		err error
	)
	switch in.Mode {
	case ModeStructured, "":
		qs, err = s.FromImage(ctx, in.Image, in.MIME)
	case ModeOCR:
		qs, err = s.FromOCR(ctx, in.Image, in.WithAnswers)
	case ModeText:
		qs, err = s.FromText(ctx, in.Text, in.WithAnswers)
	default:
		return question.Set{}, fmt.Errorf("unknown mode %q", in.Mode)
	}
	if err != nil {
		return question.Set{}, err
	}
	mode := in.Mode
	if mode == "" {
		mode = ModeStructured
	}
	return s.Save(ctx, in.Title, string(mode), qs)
}
