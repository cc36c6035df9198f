package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeVision struct {
	raw string
	err error
}

func (f fakeVision) Name() string { return "fake-vision" }
func (f fakeVision) GenerateContent(context.Context, []byte, string) (string, error) {
	return f.raw, f.err
}

type fakeOCR struct{ text string }

func (f fakeOCR) Name() string { return "fake-ocr" }
func (f fakeOCR) Recognize(context.Context, []byte, ocr.Options) (string, error) {
	return f.text, nil
}

type fakeAnswerer struct {
	err   error
	calls int
}

func (f *fakeAnswerer) Name() string { return "fake-answerer" }
func (f *fakeAnswerer) Answer(_ context.Context, qs []question.Question) ([]question.Question, error) {
	f.calls++
	if f.err != nil {
		return qs, f.err
	}
	out := append([]question.Question(nil), qs...)
	for i := range out {
		out[i].Answer = "A"
	}
	return out, nil
}

type memStore struct{ sets []question.Set }

func (m *memStore) Create(_ context.Context, title, source string, qs []question.Question) (question.Set, error) {
	s := question.Set{ID: "id-" + title, Title: title, Source: source, Questions: qs}
	m.sets = append(m.sets, s)
	return s, nil
}

const envelope = `{"candidates":[{"content":{"parts":[{"text":"[{\"type\":\"GENERAL\",\"questionText\":\"Capital of France?\",\"answer\":\"Paris\"}]"}]}}]}`

func newService(v ocr.Vision, r ocr.Recognizer, a *fakeAnswerer, repo SetStore) *Service {
	s := &Service{
		Vision:     v,
		OCR:        r,
		Structured: extract.NewStructured(extract.AbortBatch, quiet),
		Heuristic:  extract.NewHeuristic(quiet),
		Repo:       repo,
		Logger:     quiet,
	}
	if a != nil {
		s.Answerer = a
	}
	return s
}

func TestFromImage(t *testing.T) {
	s := newService(fakeVision{raw: envelope}, nil, nil, nil)
	qs, err := s.FromImage(context.Background(), []byte{1}, "image/png")
	if err != nil || len(qs) != 1 || qs[0].Answer != "Paris" {
		t.Fatalf("got %+v, %v", qs, err)
	}

	s = newService(fakeVision{raw: `{"candidates":[{"content":{"parts":[{"text":"no questions"}]}}]}`}, nil, nil, nil)
	if _, err := s.FromImage(context.Background(), []byte{1}, ""); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	s = newService(fakeVision{err: errors.New("quota")}, nil, nil, nil)
	if _, err := s.FromImage(context.Background(), []byte{1}, ""); err == nil || errors.Is(err, ErrNoQuestions) {
		t.Fatalf("provider failure must surface as a plain error, got %v", err)
	}

	s = newService(nil, nil, nil, nil)
	if _, err := s.FromImage(context.Background(), []byte{1}, ""); !errors.Is(err, ocr.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFromOCRAnswers(t *testing.T) {
	a := &fakeAnswerer{}
	s := newService(nil, fakeOCR{text: "1. What is 2+2?\nA) 3\nB) 4"}, a, nil)

	qs, err := s.FromOCR(context.Background(), []byte{1}, true)
	if err != nil || len(qs) != 1 || qs[0].Answer != "A" {
		t.Fatalf("got %+v, %v", qs, err)
	}

	qs, err = s.FromOCR(context.Background(), []byte{1}, false)
	if err != nil || qs[0].Answer != "" || a.calls != 1 {
		t.Fatalf("answering must be skipped when not requested, got %+v, calls=%d", qs, a.calls)
	}
}

func TestFromTextAnswerFailureKeepsQuestions(t *testing.T) {
	s := newService(nil, nil, &fakeAnswerer{err: errors.New("down")}, nil)
	qs, err := s.FromText(context.Background(), "1. Q?\nA) x\nB) y", true)
	if err != nil || len(qs) != 1 || qs[0].Answer != "" {
		t.Fatalf("got %+v, %v", qs, err)
	}
	if _, err := s.FromText(context.Background(), "just prose", true); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestRunSaves(t *testing.T) {
	repo := &memStore{}
	s := newService(fakeVision{raw: envelope}, nil, nil, repo)

	set, err := s.Run(context.Background(), Input{Image: []byte{1}, Title: "quiz"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if set.ID != "id-quiz" || set.Source != "structured" || len(repo.sets) != 1 {
		t.Fatalf("unexpected set %+v", set)
	}

	if _, err := s.Run(context.Background(), Input{Mode: ModeText, Text: "nothing"}); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if len(repo.sets) != 1 {
		t.Fatalf("empty results must not be saved")
	}
}

func TestSaveWithoutRepo(t *testing.T) {
	s := newService(nil, nil, nil, nil)
	set, err := s.Save(context.Background(), "", "text", nil)
	if err != nil || set.ID != "" || !strings.HasPrefix(set.Title, "Questions from ") {
		t.Fatalf("got %+v, %v", set, err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeStructured, "OCR": ModeOCR, "text": ModeText} {
		if got, err := ParseMode(in); err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("fax"); err == nil {
		t.Fatalf("expected error")
	}
}
