package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docrag/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		APIKeyEnv: "TEST_GEMINI_KEY",
		Model:     "test-model",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func candidatePayload(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]string{{"text": text}},
					"role":  "model",
				},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "test-model:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["contents"]; !ok {
			t.Error("request body missing contents")
		}
		_ = json.NewEncoder(w).Encode(candidatePayload("the sky is blue"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.Generate(context.Background(), "what color is the sky?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "the sky is blue" {
		t.Fatalf("Generate = %q", got)
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse query")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range []string{"The sky ", "is blue."} {
			data, _ := json.Marshal(candidatePayload(frag))
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ch, err := c.GenerateStream(context.Background(), "q")
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	var b strings.Builder
	for frag := range ch {
		if frag.Err != nil {
			t.Fatalf("unexpected stream error: %v", frag.Err)
		}
		b.WriteString(frag.Text)
	}
	if b.String() != "The sky is blue." {
		t.Fatalf("streamed text = %q", b.String())
	}
}

func TestGenerateStreamConnectionDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		data, _ := json.Marshal(candidatePayload("The sky "))
		fmt.Fprintf(w, "data: %s\n\n", data)
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ch, err := c.GenerateStream(context.Background(), "q")
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	var texts []string
	var last domain.Fragment
	for frag := range ch {
		last = frag
		if frag.Err == nil {
			texts = append(texts, frag.Text)
		}
	}
	if strings.Join(texts, "") != "The sky " {
		t.Fatalf("streamed text = %q", strings.Join(texts, ""))
	}
	if last.Err == nil {
		t.Fatal("dropped connection did not surface as a stream error")
	}
}

func TestGenerateStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.GenerateStream(context.Background(), "q"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")
	if _, err := NewClient(Config{APIKeyEnv: "TEST_GEMINI_KEY"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
