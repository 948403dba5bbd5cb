package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestCompleteReturnsChoiceContent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Write([]byte(chatResponse("hello from the model")))
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL, APIKey: "secret", Model: "test-model", Timeout: 5 * time.Second})
	got, err := c.Complete(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello from the model" {
		t.Fatalf("content = %q", got)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatResponse("second time lucky")))
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL, Model: "m", Timeout: 5 * time.Second})
	got, err := c.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "second time lucky" {
		t.Fatalf("content = %q", got)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("calls = %d, want retry after 5xx", calls)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL, Model: "m", Timeout: 5 * time.Second})
	_, err := c.Complete(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v, want http 401 detail", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, 4xx must be permanent", calls)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	if _, err := contentFromChoices([]byte(`{"choices": []}`)); err == nil {
		t.Fatal("expected error for empty choices")
	}
	if _, err := contentFromChoices([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestCompleteSurfacesRequestBuildErrors(t *testing.T) {
	c := NewClient(Config{GatewayURL: "://missing-scheme", Model: "m"})
	_, err := c.Complete(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error for unparsable gateway URL")
	}
	if strings.Contains(err.Error(), "<nil>") {
		t.Fatalf("error lost its cause: %v", err)
	}
	if !strings.Contains(err.Error(), "missing protocol scheme") {
		t.Fatalf("error = %v, want URL parse detail", err)
	}
}

func TestCompleteRequiresGatewayURL(t *testing.T) {
	c := NewClient(Config{Model: "m"})
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected error when gateway is not configured")
	}
}
