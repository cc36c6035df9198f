package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

const responseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4o-mini",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "[{\"answer\":\"B\",\"explanation\":\"2+2=4\"}]", "annotations": []}]
  }]
}`

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["model"] != "gpt-4o-mini" || body["instructions"] != "system" || body["input"] != "user" {
			t.Errorf("unexpected request body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, responseBody)
	}))
	defer srv.Close()

	c := New("sk-test", "gpt-4o-mini", srv.URL+"/v1/", option.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `[{"answer":"B","explanation":"2+2=4"}]` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	if _, err := New("", "m", "").Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error without api key")
	}
}
