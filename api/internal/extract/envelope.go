package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// envelope: ответ generateContent; читаем только первый кандидат и первую часть.
type envelope struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// EnvelopeText returns the text of the first part of the first candidate.
func EnvelopeText(responseText string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(responseText)), &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnvelopeMalformed, err)
	}
	if len(env.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEnvelopeMalformed)
	}
	c := env.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content parts", ErrEnvelopeMalformed)
	}
	if c.Content.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: first part has no text", ErrEnvelopeMalformed)
	}
	return *c.Content.Parts[0].Text, nil
}

// LocateArray slices text from the first '[' to the last ']' inclusive.
// Вложенные скобки в прозе не балансируются: берётся самая внешняя пара.
func LocateArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < 0 || start >= end {
		return "", ErrNoEmbeddedArray
	}
	return text[start : end+1], nil
}

// splitArray разбирает фрагмент как JSON-массив, элементы остаются сырыми.
func splitArray(fragment string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArrayMalformed, err)
	}
	return elems, nil
}
