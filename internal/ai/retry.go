package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 60s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)

	// Concurrency limit
	MaxConcurrentCalls int // Maximum concurrent API calls (default: 3, 0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    3,
	}
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation, requests pass through
	CircuitOpen                         // Too many failures, block requests (fail fast)
	CircuitHalfOpen                     // Testing recovery, allow limited requests
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements the circuit breaker pattern to prevent
// hammering a failing API.
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
	}
}

// Allow checks if a request should be allowed through the circuit breaker
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			return nil
		}
		return ErrCircuitOpen
	case CircuitHalfOpen:
		// Allow one request through to probe
		return nil
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.state = CircuitOpen
			cb.successCount = 0
		}
	case CircuitHalfOpen:
		// Any failure in half-open immediately opens the circuit
		cb.state = CircuitOpen
		cb.successCount = 0
	}
}

// GetState returns the current state (for testing/monitoring)
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// retryWithBackoff executes an operation with retry and exponential backoff
func (g *Generator) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if g.concurrencySem != nil {
		if err := g.concurrencySem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer g.concurrencySem.Release(1)
	}

	var lastErr error
	backoff := g.retry.InitialBackoff

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		if g.circuitBreaker != nil {
			if err := g.circuitBreaker.Allow(); err != nil {
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if g.circuitBreaker != nil {
				g.circuitBreaker.RecordSuccess()
			}
			return nil
		}
		lastErr = err

		// Non-retriable errors (bad request, auth) don't count against
		// the circuit breaker and don't get retried.
		if !isRetriableError(err) {
			return err
		}
		if g.circuitBreaker != nil {
			g.circuitBreaker.RecordFailure()
		}
		if attempt == g.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
			if backoff > g.retry.MaxBackoff {
				backoff = g.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, g.retry.MaxRetries+1, lastErr)
}

// isRetriableError determines if an error is transient
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()

	// Rate limits (429) are retriable
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}
	// Server errors (5xx) are retriable
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}
	// Network/connection errors are retriable
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// Remaining 4xx client errors indicate requests that won't succeed
	// on retry; default to not retrying unknown errors either.
	return false
}
