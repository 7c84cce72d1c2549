package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFailConfig(t *testing.T) {
	cfg, err := parseFailConfig("rate=0.25, code=503")
	require.NoError(t, err)
	assert.Equal(t, failConfig{rate: 0.25, code: http.StatusServiceUnavailable}, cfg)

	cfg, err = parseFailConfig("rate=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, cfg.code)

	empty, err := parseFailConfig("")
	require.NoError(t, err)
	assert.Zero(t, empty)

	for _, bad := range []string{"rate", "rate=2", "code=x", "odds=1"} {
		_, err := parseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCredentials(t *testing.T) {
	creds, err := parseCredentials("alice=k1, bob=k2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "k1", "bob": "k2"}, creds)

	_, err = parseCredentials("alice")
	assert.Error(t, err)
}
