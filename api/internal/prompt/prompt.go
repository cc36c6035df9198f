package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var embedded []byte

// Set: тексты промптов для vision- и answer-вызовов.
type Set struct {
	Vision       string `yaml:"vision"`
	AnswerSystem string `yaml:"answer_system"`
	AnswerUser   string `yaml:"answer_user"`
}

// Default возвращает встроенный набор.
func Default() Set {
	s, err := parse(embedded)
	if err != nil {
		// встроенный YAML проверяется тестами
		panic(fmt.Sprintf("prompt: embedded catalogue: %v", err))
	}
	return s
}

// Load читает файл path поверх встроенного набора: пустые ключи файла не затирают дефолты.
// Пустой path: только встроенные промпты.
func Load(path string) (Set, error) {
	def := Default()
	if strings.TrimSpace(path) == "" {
		return def, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read prompt file: %w", err)
	}
	over, err := parse(b)
	if err != nil {
		return Set{}, fmt.Errorf("prompt file %s: %w", path, err)
	}
	if over.Vision != "" {
		def.Vision = over.Vision
	}
	if over.AnswerSystem != "" {
		def.AnswerSystem = over.AnswerSystem
	}
	if over.AnswerUser != "" {
		def.AnswerUser = over.AnswerUser
	}
	return def, nil
}

func parse(b []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Set{}, err
	}
	s.Vision = strings.TrimSpace(s.Vision)
	s.AnswerSystem = strings.TrimSpace(s.AnswerSystem)
	s.AnswerUser = strings.TrimSpace(s.AnswerUser)
	return s, nil
}
