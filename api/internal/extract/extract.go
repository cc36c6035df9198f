package extract

import (
	"fmt"
	"log/slog"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

// Extractor is the shared contract of both strategies.
type Extractor interface {
	Extract(text string) []question.Question
}

var (
	_ Extractor = (*Structured)(nil)
	_ Extractor = (*Heuristic)(nil)
)

// New возвращает стратегию по имени: "structured" или "heuristic".
func New(mode string, policy Policy, logger *slog.Logger) (Extractor, error) {
	switch mode {
	case "structured", "":
		return NewStructured(policy, logger), nil
	case "heuristic":
		return NewHeuristic(logger), nil
	default:
		return nil, fmt.Errorf("unknown extraction mode %q: use structured or heuristic", mode)
	}
}
