package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"lazaro-backend/internal/models"
)

// OllamaClient implements Client against the Ollama generate API.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float32
	client      *http.Client
	pulling     atomic.Bool
}

// NewOllamaClient creates a client for a local or remote Ollama server.
func NewOllamaClient(baseURL, model string, temperature float32) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		// Generations can be slow on CPU-only hosts.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Complete calls POST /api/generate without streaming. A missing model is
// reported as *models.InferenceUnavailableError so the boundary layer can tell
// a pollable condition from a genuine failure.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if c.modelUnavailable(body) {
			state := "missing"
			if c.pulling.Load() {
				state = "pulling"
			}
			return "", &models.InferenceUnavailableError{Model: c.model, State: state}
		}
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, body)
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("parsing generate response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama reported error: %s", genResp.Error)
	}
	return genResp.Response, nil
}

// modelUnavailable sniffs the error body for the not-found/loading shape
// Ollama returns while a model is absent or still being set up.
func (c *OllamaClient) modelUnavailable(body []byte) bool {
	msg := strings.ToLower(string(body))
	return strings.Contains(msg, "not found") || strings.Contains(msg, "loading")
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ModelStatus lists installed models via GET /api/tags.
func (c *OllamaClient) ModelStatus(ctx context.Context) ModelState {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return ModelUnknown
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return ModelUnknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ModelUnknown
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return ModelUnknown
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return ModelReady
		}
	}
	if c.pulling.Load() {
		return ModelPulling
	}
	return ModelMissing
}

// ModelName reports the configured model.
func (c *OllamaClient) ModelName() string { return c.model }

// EnsureModel pulls the model in the background when it is not installed.
// Intended to be launched once at startup; ask requests issued meanwhile get
// the pollable unavailable status instead of blocking behind the download.
func (c *OllamaClient) EnsureModel(ctx context.Context) {
	if c.ModelStatus(ctx) == ModelReady {
		return
	}
	if !c.pulling.CompareAndSwap(false, true) {
		return
	}
	defer c.pulling.Store(false)

	log.Printf("[OllamaClient] Model %s not installed, pulling (this may take a while)...", c.model)
	reqBody, _ := json.Marshal(map[string]any{"name": c.model, "stream": false})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(reqBody))
	if err != nil {
		log.Printf("ERROR [OllamaClient] Creating pull request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	pullClient := &http.Client{Timeout: 30 * time.Minute}
	resp, err := pullClient.Do(req)
	if err != nil {
		log.Printf("ERROR [OllamaClient] Pulling model %s: %v", c.model, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("ERROR [OllamaClient] Pull for %s failed (status %d): %s", c.model, resp.StatusCode, body)
		return
	}
	log.Printf("[OllamaClient] Model %s pulled successfully.", c.model)
}
