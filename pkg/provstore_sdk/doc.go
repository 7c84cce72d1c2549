// Package provstore_sdk bootstraps a ProvStore client from the environment.
// PROVSTORE_RUNTIME_MODE selects "http", "mock" or "auto" (the default). In
// auto mode a client talks to PROVSTORE_API_URL when it is set and falls back
// to an in-memory store otherwise, optionally seeded from the YAML file named
// by PROVSTORE_MOCK_SEED. Both variants expose the same provstore.Client API.
package provstore_sdk
