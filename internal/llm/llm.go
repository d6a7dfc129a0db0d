// Package llm provides the inference-backend port and its Ollama adapter.
package llm

import "context"

// ModelState describes the availability of the configured inference model.
type ModelState string

const (
	ModelReady   ModelState = "ready"
	ModelMissing ModelState = "missing"
	ModelPulling ModelState = "pulling"
	ModelUnknown ModelState = "unknown"
)

// Client is the inference capability interface. A missing or still-loading
// model surfaces as *models.InferenceUnavailableError from Complete; the
// caller polls ModelStatus and retries, this layer never retries on its own.
type Client interface {
	// Complete sends the assembled prompt to the model and returns its answer.
	Complete(ctx context.Context, prompt string) (string, error)
	// ModelStatus probes the backend for the configured model's availability.
	ModelStatus(ctx context.Context) ModelState
	// ModelName reports the configured model.
	ModelName() string
}
