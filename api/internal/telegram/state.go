package telegram

import (
	"sync"
	"time"

	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// ModeStore: выбранный путь извлечения по чатам (structured по умолчанию).
type ModeStore struct {
	def pipeline.Mode
	m   sync.Map // chatID -> pipeline.Mode
}

func NewModeStore(def pipeline.Mode) *ModeStore {
	if def == "" {
		def = pipeline.ModeStructured
	}
	return &ModeStore{def: def}
}

func (s *ModeStore) Get(chatID int64) pipeline.Mode {
	if v, ok := s.m.Load(chatID); ok {
		return v.(pipeline.Mode)
	}
	return s.def
}

func (s *ModeStore) Set(chatID int64, mode pipeline.Mode) { s.m.Store(chatID, mode) }

// photoBatch копит фото одного альбома (или одного чата) до паузы debounce.
type photoBatch struct {
	ChatID int64
	Key    string // "grp:<mediaGroupID>" | "chat:<chatID>"

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}
