package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lazaro-backend/internal/models"
)

func TestOllamaClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "the answer", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", 0.7)
	answer, err := c.Complete(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestOllamaClient_MissingModelIsPollable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": `model "llama3" not found, try pulling it first`})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", 0.7)
	_, err := c.Complete(context.Background(), "a prompt")
	var unavailable *models.InferenceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected InferenceUnavailableError, got %v", err)
	}
	if unavailable.Model != "llama3" {
		t.Errorf("unexpected model in error: %s", unavailable.Model)
	}
}

func TestOllamaClient_GenuineFailureIsNotPollable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3", 0.7)
	_, err := c.Complete(context.Background(), "a prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	var unavailable *models.InferenceUnavailableError
	if errors.As(err, &unavailable) {
		t.Fatal("hard failure must not be reported as a pollable condition")
	}
}

func TestOllamaClient_ModelStatus(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		want   ModelState
	}{
		{"installed", []string{"llama3:latest"}, ModelReady},
		{"exact", []string{"llama3"}, ModelReady},
		{"absent", []string{"mistral:latest"}, ModelMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				resp := ollamaTagsResponse{}
				for _, m := range tt.models {
					resp.Models = append(resp.Models, struct {
						Name string `json:"name"`
					}{Name: m})
				}
				json.NewEncoder(w).Encode(resp)
			}))
			defer srv.Close()

			c := NewOllamaClient(srv.URL, "llama3", 0.7)
			if got := c.ModelStatus(context.Background()); got != tt.want {
				t.Errorf("ModelStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOllamaClient_ModelStatusUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", "llama3", 0.7)
	if got := c.ModelStatus(context.Background()); got != ModelUnknown {
		t.Errorf("ModelStatus() = %s, want unknown", got)
	}
}
