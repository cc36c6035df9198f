package ocr

import (
	"context"
	"errors"
)

// Vision: модель, читающая снимок целиком и отвечающая сырым конвертом generateContent.
type Vision interface {
	Name() string
	GenerateContent(ctx context.Context, image []byte, mime string) (string, error)
}

// Recognizer: классический OCR: картинка на входе, одна строка текста на выходе.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opt Options) (string, error)
}

// Options управляет распознаванием текста.
type Options struct {
	Langs []string // ["ru","en"]
	Model string   // "page" | "handwritten"
}

// ErrNotConfigured возвращается, когда провайдер не настроен (нет ключа).
var ErrNotConfigured = errors.New("ocr: provider is not configured")
