package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func makeTestServer(t *testing.T, statusCode int, body any) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func reply(content string) chatResponse {
	return chatResponse{Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}}}
}

func TestComplete_Success(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, reply("Dear hiring manager"))

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	got, err := provider.Complete(context.Background(), "adapt this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Dear hiring manager" {
		t.Errorf("got %q", got)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusInternalServerError, map[string]string{"error": "server error"})

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	if _, err := provider.Complete(context.Background(), "adapt this"); err == nil {
		t.Fatal("expected error on 5xx response")
	}
}

func TestComplete_APIErrorBody(t *testing.T) {
	body := map[string]any{"error": map[string]string{"message": "quota exceeded", "type": "insufficient_quota"}}
	srv, client := makeTestServer(t, http.StatusOK, body)

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	if _, err := provider.Complete(context.Background(), "adapt this"); err == nil {
		t.Fatal("expected error when the body carries an error object")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, chatResponse{})

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	if _, err := provider.Complete(context.Background(), "adapt this"); err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var gotReq chatRequest
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(reply("ok"))
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL+"/", "my-secret-key", "gpt-4o-mini", srv.Client())
	if _, err := provider.Complete(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotReq.Temperature)
	}
	if gotReq.MaxTokens != 500 {
		t.Errorf("max_tokens = %d, want 500", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}
