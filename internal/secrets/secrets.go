package secrets

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger

func init() {
	// Set up logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger = log.With().Str("component", "secrets").Logger()
}

// Source retrieves a PEM-encoded private key from a secret store by name.
type Source interface {
	PrivateKey(ctx context.Context, name string) (string, error)
}

// SourceFactory builds a Source for a given region. The region is passed
// explicitly per invocation instead of coming from ambient process state.
type SourceFactory func(ctx context.Context, region string) (Source, error)

// StoreError wraps a secret-store failure. It is fatal to the invocation:
// there is no retry and no fallback.
type StoreError struct {
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	return "secret store error for " + e.Name + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// unwrapPEM extracts the private key from a string secret payload. Secrets
// may be stored either as the raw PEM text or as a JSON object with the PEM
// under a "private_key" field. A payload that fails to parse as JSON is used
// as-is; there is no validation that the fallback is PEM-shaped.
func unwrapPEM(payload string) string {
	var wrapper map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		return payload
	}
	if key, ok := wrapper["private_key"].(string); ok {
		return key
	}
	return payload
}

// maskString returns a masked version of a string for logging
func maskString(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
