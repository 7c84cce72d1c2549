package provstore_sdk

import (
	"fmt"
	"os"
	"strings"

	"github.com/provstore/provstore_sdk_go/internal/devseed"
	"github.com/provstore/provstore_sdk_go/pkg/provstore"
	"github.com/provstore/provstore_sdk_go/pkg/provstore/mock"
)

const (
	envMode     = "PROVSTORE_RUNTIME_MODE"
	envBaseURL  = "PROVSTORE_API_URL"
	envMockSeed = "PROVSTORE_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// NewFromEnv initialises a client according to PROVSTORE_RUNTIME_MODE and
// returns the resolved mode ("http" or "mock").
func NewFromEnv(opts ...provstore.Option) (*provstore.Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	baseURL := strings.TrimSpace(os.Getenv(envBaseURL))

	switch mode {
	case "", ModeAuto:
		if baseURL != "" {
			return newHTTPClient(opts)
		}
		return newMockClient(opts)
	case ModeHTTP:
		if baseURL == "" {
			return nil, "", fmt.Errorf("provstore_sdk: HTTP mode requires %s", envBaseURL)
		}
		return newHTTPClient(opts)
	case ModeMock:
		return newMockClient(opts)
	default:
		return nil, "", fmt.Errorf("provstore_sdk: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPClient(opts []provstore.Option) (*provstore.Client, string, error) {
	client, err := provstore.NewFromEnv(opts...)
	if err != nil {
		return nil, "", err
	}
	return client, ModeHTTP, nil
}

func newMockClient(opts []provstore.Option) (*provstore.Client, string, error) {
	store := mock.New()
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		seed, err := devseed.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("provstore_sdk: load seed: %w", err)
		}
		if err := store.Seed(seed); err != nil {
			return nil, "", fmt.Errorf("provstore_sdk: apply seed: %w", err)
		}
	}
	client, err := provstore.NewWithBackend(store, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("provstore_sdk: init mock client: %w", err)
	}
	return client, ModeMock, nil
}
