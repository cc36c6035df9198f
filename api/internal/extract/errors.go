package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrEnvelopeMalformed: в ответе нет цепочки candidates[0].content.parts[0].text.
	ErrEnvelopeMalformed = errors.New("response envelope malformed")
	// ErrNoEmbeddedArray: в тексте нет пары '[' ... ']'.
	ErrNoEmbeddedArray = errors.New("no embedded json array")
	// ErrArrayMalformed: вырезанный фрагмент не является JSON-массивом.
	ErrArrayMalformed = errors.New("embedded json array malformed")
	// ErrElementMalformed: у элемента нет questionText/answer или поля не того типа.
	ErrElementMalformed = errors.New("question element malformed")
)

// ElementError wraps ErrElementMalformed with the failing element position.
type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.Index, e.Err)
}

func (e *ElementError) Unwrap() []error { return []error{ErrElementMalformed, e.Err} }

// reason: короткий тег для логов.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrEnvelopeMalformed):
		return "envelope_malformed"
	case errors.Is(err, ErrNoEmbeddedArray):
		return "no_embedded_array"
	case errors.Is(err, ErrArrayMalformed):
		return "array_malformed"
	case errors.Is(err, ErrElementMalformed):
		return "element_malformed"
	default:
		return "unknown"
	}
}
