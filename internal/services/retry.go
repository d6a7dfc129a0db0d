package services

import (
	"context"
	"errors"
	"log"
	"time"

	"lazaro-backend/internal/models"
)

const retryAttempts = 3

// Variable so tests can shrink the backoff.
var retryInitialDelay = 500 * time.Millisecond

// retryTransient runs fn up to retryAttempts times with a doubling delay.
// Only transient backend failures (embedding service, vector store) are
// retried; every other error returns immediately.
func retryTransient(ctx context.Context, op string, fn func() error) error {
	delay := retryInitialDelay
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == retryAttempts {
			return err
		}
		log.Printf("WARN [retry] %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, retryAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

func isTransient(err error) bool {
	var embedErr *models.EmbeddingServiceError
	var vectorErr *models.VectorStoreError
	return errors.As(err, &embedErr) || errors.As(err, &vectorErr)
}
