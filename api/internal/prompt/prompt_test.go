package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()
	if !strings.Contains(s.Vision, `"type":"MCQ"`) || !strings.Contains(s.Vision, `"type":"GENERAL"`) {
		t.Fatalf("vision prompt must describe both question shapes: %q", s.Vision)
	}
	if s.AnswerSystem == "" || s.AnswerUser == "" {
		t.Fatalf("answer prompts must not be empty: %+v", s)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("vision: |\n  Read the page.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Vision != "Read the page." {
		t.Fatalf("vision not overridden: %q", s.Vision)
	}
	if s.AnswerSystem != Default().AnswerSystem {
		t.Fatalf("missing keys must keep defaults")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("vision: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
	if s, err := Load(""); err != nil || s != Default() {
		t.Fatalf("empty path must return defaults, got %+v, %v", s, err)
	}
}
