package provstore

import (
	"fmt"
	"os"
	"strings"
)

// NewFromEnv builds an HTTP client from PROVSTORE_API_URL (falling back to
// DefaultBaseURL), PROVSTORE_USERNAME and PROVSTORE_API_KEY.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg := Config{BaseURL: strings.TrimSpace(os.Getenv(envBaseURL))}
	client, err := New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("provstore: init HTTP client: %w", err)
	}
	return client, nil
}
