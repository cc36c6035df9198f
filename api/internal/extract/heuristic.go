package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

var (
	// Номер вопроса в начале строки: "1.", "Q2:", "Question 3."
	questionMarker = regexp.MustCompile(`(?im)^[ \t]*(?:q(?:uestion)?\s*)?\d+[.:]\s*`)
	// Метка варианта в начале строки: "A)", "b.", "(C)", "(d."
	optionMarker = regexp.MustCompile(`(?im)^[ \t]*\(?([a-d])[).]\s*`)
)

// Heuristic сегментирует неструктурированный текст (OCR) на вопросы с вариантами.
// Ответы и пояснения не заполняются: это работа отдельного отвечающего этапа.
type Heuristic struct {
	Logger *slog.Logger
}

func NewHeuristic(logger *slog.Logger) *Heuristic {
	return &Heuristic{Logger: logger}
}

func (h *Heuristic) log() *slog.Logger {
	if h == nil || h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Extract segments rawText and keeps every block that parses as a multiple-choice question.
func (h *Heuristic) Extract(rawText string) []question.Question {
	blocks := SegmentBlocks(rawText)
	out := make([]question.Question, 0, len(blocks))
	for i, b := range blocks {
		q, ok := ParseBlock(b)
		if !ok {
			h.log().Debug("heuristic extraction: block skipped", "reason", "block_unrecognized", "index", i)
			continue
		}
		out = append(out, q)
	}
	h.log().Debug("heuristic extraction done", "blocks", len(blocks), "questions", len(out))
	return out
}

// SegmentBlocks splits rawText at question-number markers.
// Текст до первого маркера отбрасывается; без маркеров весь текст: один блок.
func SegmentBlocks(rawText string) []string {
	locs := questionMarker.FindAllStringIndex(rawText, -1)
	if len(locs) == 0 {
		if t := strings.TrimSpace(rawText); t != "" {
			return []string{t}
		}
		return nil
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(rawText)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, strings.TrimSpace(rawText[loc[0]:end]))
	}
	return blocks
}

// ParseBlock turns one block into an unanswered multiple-choice question.
// ok is false when the block has no question text or no options.
func ParseBlock(block string) (q question.Question, ok bool) {
	body := block
	if loc := questionMarker.FindStringIndex(block); loc != nil && strings.TrimSpace(block[:loc[0]]) == "" {
		body = block[loc[1]:]
	}

	text := body
	if loc := optionMarker.FindStringIndex(body); loc != nil {
		text = body[:loc[0]]
	}
	text = strings.TrimSpace(text)

	options := ExtractOptions(block)
	if text == "" || len(options) == 0 {
		return question.Question{}, false
	}
	return question.NewMultipleChoice(text, options), true
}

type option struct {
	Letter string
	Text   string
}

// scanOptions returns options in marker order; letters are neither reordered nor deduplicated.
func scanOptions(block string) []option {
	locs := optionMarker.FindAllStringSubmatchIndex(block, -1)
	out := make([]option, 0, len(locs))
	for i, loc := range locs {
		start, end := loc[1], len(block)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		} else if start >= end {
			// последняя метка в самом конце блока: текста варианта нет
			break
		}
		out = append(out, option{
			Letter: strings.ToUpper(block[loc[2]:loc[3]]),
			Text:   strings.TrimSpace(block[start:end]),
		})
	}
	return out
}

// ExtractOptions returns the trimmed option texts of block in the order their markers appear.
func ExtractOptions(block string) []string {
	opts := scanOptions(block)
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Text)
	}
	return out
}
