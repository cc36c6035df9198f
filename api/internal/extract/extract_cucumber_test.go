//go:build cucumber

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// TestExtractionScenarios runs the extraction feature scenarios.
func TestExtractionScenarios(t *testing.T) {
	featurePath := filepath.Join("..", "..", "..", "features", "extraction.feature")
	suite := godog.TestSuite{
		Name:                "extraction",
		ScenarioInitializer: InitializeExtractionScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeExtractionScenario wires steps for extraction scenarios.
func InitializeExtractionScenario(ctx *godog.ScenarioContext) {
	state := &extractionState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a model response with the text:$`, state.givenModelResponse)
	ctx.Step(`^the OCR text:$`, state.givenOCRText)
	ctx.Step(`^the element policy is "([^"]+)"$`, state.givenPolicy)
	ctx.Step(`^the (heuristic|structured) input "(.*)"$`, state.givenInput)
	ctx.Step(`^the options "([^"]*)"$`, state.givenOptions)

	ctx.Step(`^I run the structured extractor$`, state.whenStructured)
	ctx.Step(`^I run the heuristic extractor$`, state.whenHeuristic)
	ctx.Step(`^I segment the text into blocks$`, state.whenSegment)
	ctx.Step(`^I run the (heuristic|structured) extractor twice$`, state.whenTwice)
	ctx.Step(`^I label them "A\)" to "C\)" and extract the options again$`, state.whenRelabel)

	ctx.Step(`^I get (\d+) questions$`, state.thenQuestionCount)
	ctx.Step(`^question (\d+) has text "([^"]*)"$`, state.thenQuestionText)
	ctx.Step(`^question (\d+) has options "([^"]*)"$`, state.thenQuestionOptions)
	ctx.Step(`^question (\d+) has no options$`, state.thenNoOptions)
	ctx.Step(`^question (\d+) is a general question$`, state.thenGeneral)
	ctx.Step(`^I get (\d+) blocks$`, state.thenBlockCount)
	ctx.Step(`^block (\d+) equals the trimmed input$`, state.thenBlockTrimmed)
	ctx.Step(`^both runs return the same questions$`, state.thenSameRuns)
	ctx.Step(`^I get the options "([^"]*)"$`, state.thenOptions)
}

// extractionState holds scenario state for extraction feature tests.
type extractionState struct {
	input     string
	kind      string
	policy    Policy
	options   []string
	questions []question.Question
	second    []question.Question
	blocks    []string
}

// reset clears scenario state.
func (s *extractionState) reset() {
	*s = extractionState{}
}

// envelope wraps model text in a generateContent response body.
func envelope(text string) (string, error) {
	b, err := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b), err
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "|")
}

func (s *extractionState) givenModelResponse(doc *godog.DocString) error {
	s.input = doc.Content
	return nil
}

func (s *extractionState) givenOCRText(doc *godog.DocString) error {
	s.input = doc.Content
	return nil
}

func (s *extractionState) givenPolicy(name string) error {
	p, err := ParsePolicy(name)
	s.policy = p
	return err
}

func (s *extractionState) givenInput(kind, input string) error {
	s.kind = kind
	s.input = strings.ReplaceAll(input, `\n`, "\n")
	return nil
}

func (s *extractionState) givenOptions(list string) error {
	s.options = splitList(list)
	return nil
}

func (s *extractionState) run(kind string) ([]question.Question, error) {
	if kind == "heuristic" {
		return NewHeuristic(quiet).Extract(s.input), nil
	}
	resp, err := envelope(s.input)
	if err != nil {
		return nil, err
	}
	return NewStructured(s.policy, quiet).Extract(resp), nil
}

func (s *extractionState) whenStructured() (err error) {
	s.questions, err = s.run("structured")
	return err
}

func (s *extractionState) whenHeuristic() (err error) {
	s.questions, err = s.run("heuristic")
	return err
}

func (s *extractionState) whenSegment() error {
	s.blocks = SegmentBlocks(s.input)
	return nil
}

func (s *extractionState) whenTwice(kind string) (err error) {
	if s.questions, err = s.run(kind); err != nil {
		return err
	}
	s.second, err = s.run(kind)
	return err
}

func (s *extractionState) whenRelabel() error {
	lines := make([]string, 0, len(s.options))
	for i, o := range s.options {
		lines = append(lines, question.Label(i)+") "+o)
	}
	s.options = ExtractOptions(strings.Join(lines, "\n"))
	return nil
}

func (s *extractionState) question(n int) (question.Question, error) {
	if n < 1 || n > len(s.questions) {
		return question.Question{}, fmt.Errorf("question %d out of range, have %d", n, len(s.questions))
	}
	return s.questions[n-1], nil
}

func (s *extractionState) thenQuestionCount(n int) error {
	if len(s.questions) != n {
		return fmt.Errorf("expected %d questions, got %d: %+v", n, len(s.questions), s.questions)
	}
	return nil
}

func (s *extractionState) thenQuestionText(n int, text string) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if q.Text != text {
		return fmt.Errorf("question %d: expected text %q, got %q", n, text, q.Text)
	}
	return nil
}

func (s *extractionState) thenQuestionOptions(n int, list string) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if want := splitList(list); !reflect.DeepEqual(q.Options, want) {
		return fmt.Errorf("question %d: expected options %q, got %q", n, want, q.Options)
	}
	return nil
}

func (s *extractionState) thenNoOptions(n int) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if len(q.Options) != 0 {
		return fmt.Errorf("question %d: expected no options, got %q", n, q.Options)
	}
	return nil
}

func (s *extractionState) thenGeneral(n int) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if q.Kind != question.General {
		return fmt.Errorf("question %d: expected kind %q, got %q", n, question.General, q.Kind)
	}
	return nil
}

func (s *extractionState) thenBlockCount(n int) error {
	if len(s.blocks) != n {
		return fmt.Errorf("expected %d blocks, got %d: %q", n, len(s.blocks), s.blocks)
	}
	return nil
}

func (s *extractionState) thenBlockTrimmed(n int) error {
	if n < 1 || n > len(s.blocks) {
		return fmt.Errorf("block %d out of range", n)
	}
	if want := strings.TrimSpace(s.input); s.blocks[n-1] != want {
		return fmt.Errorf("block %d: expected %q, got %q", n, want, s.blocks[n-1])
	}
	return nil
}

func (s *extractionState) thenSameRuns() error {
	if len(s.questions) == 0 {
		return fmt.Errorf("expected at least one question")
	}
	if !reflect.DeepEqual(s.questions, s.second) {
		return fmt.Errorf("runs differ:\n%+v\n%+v", s.questions, s.second)
	}
	return nil
}

func (s *extractionState) thenOptions(list string) error {
	if want := splitList(list); !reflect.DeepEqual(s.options, want) {
		return fmt.Errorf("expected options %q, got %q", want, s.options)
	}
	return nil
}
