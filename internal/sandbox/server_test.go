package sandbox_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstore/provstore_sdk_go/internal/sandbox"
	"github.com/provstore/provstore_sdk_go/pkg/provstore/mock"
)

func newServer(t *testing.T, opts sandbox.Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(sandbox.New(mock.New(), opts))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url, auth, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestSandboxDocumentLifecycle(t *testing.T) {
	srv := newServer(t, sandbox.Options{})
	base := srv.URL + sandbox.APIPrefix

	status, body := call(t, http.MethodPost, base+"/documents/", "", `{"content":{"entity":{}},"public":false,"rec_id":"doc"}`)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, int64(1), created.ID)

	status, body = call(t, http.MethodGet, base+"/documents/1.json", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"entity":{}}`, body)

	status, body = call(t, http.MethodGet, base+"/documents/1/", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"document_name":"doc"`)
	assert.Contains(t, body, `"owner":"anonymous"`)

	status, _ = call(t, http.MethodPost, base+"/documents/1/bundles/", "", `{"content":{"entity":{}},"rec_id":"ex:b"}`)
	assert.Equal(t, http.StatusCreated, status)

	status, body = call(t, http.MethodGet, base+"/documents/1/bundles/", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"identifier":"ex:b"`)

	status, body = call(t, http.MethodGet, base+"/documents/1/bundles/1.json", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"entity":{}}`, body)

	status, _ = call(t, http.MethodDelete, base+"/documents/1/", "", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, http.MethodGet, base+"/documents/1.json", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSandboxKeepsTextFormats(t *testing.T) {
	srv := newServer(t, sandbox.Options{})
	base := srv.URL + sandbox.APIPrefix

	cases := []struct {
		format string
		body   string
	}{
		{format: "xml", body: `<prov:document xmlns:prov="http://www.w3.org/ns/prov#"/>`},
		{format: "ttl", body: "@prefix ex: <http://example.org/> .\nex:e a prov:Entity ."},
		{format: "provn", body: "document\n  entity(ex:e)\nendDocument"},
	}
	for i, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			payload, err := json.Marshal(map[string]any{"content": tc.body, "rec_id": tc.format})
			require.NoError(t, err)
			status, _ := call(t, http.MethodPost, base+"/documents/", "", string(payload))
			require.Equal(t, http.StatusCreated, status)

			url := fmt.Sprintf("%s/documents/%d.%s", base, i+1, tc.format)
			status, body := call(t, http.MethodGet, url, "", "")
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tc.body, body)

			status, _ = call(t, http.MethodGet, fmt.Sprintf("%s/documents/%d.json", base, i+1), "", "")
			assert.Equal(t, http.StatusUnprocessableEntity, status)
		})
	}
}

func TestSandboxStatusMapping(t *testing.T) {
	srv := newServer(t, sandbox.Options{})
	base := srv.URL + sandbox.APIPrefix

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing document", http.MethodGet, "/documents/99/", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/documents/", "not json", http.StatusBadRequest},
		{"missing name", http.MethodPost, "/documents/", `{"content":{}}`, http.StatusBadRequest},
		{"missing content", http.MethodPost, "/documents/", `{"rec_id":"x"}`, http.StatusBadRequest},
		{"bad ref", http.MethodGet, "/documents/abc.json", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := call(t, tc.method, base+tc.path, "", tc.body)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestSandboxCredentials(t *testing.T) {
	srv := newServer(t, sandbox.Options{Credentials: map[string]string{"alice": "k1", "bob": "k2"}})
	base := srv.URL + sandbox.APIPrefix
	doc := `{"content":{"entity":{}},"public":false,"rec_id":"private"}`

	status, _ := call(t, http.MethodPost, base+"/documents/", "", doc)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, http.MethodPost, base+"/documents/", "ApiKey alice:wrong", doc)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, http.MethodPost, base+"/documents/", "ApiKey alice:k1", doc)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, http.MethodGet, base+"/documents/1/", "ApiKey alice:k1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"owner":"alice"`)

	status, _ = call(t, http.MethodGet, base+"/documents/1.json", "ApiKey bob:k2", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, http.MethodDelete, base+"/documents/1/", "ApiKey bob:k2", "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSandboxFailureInjection(t *testing.T) {
	srv := newServer(t, sandbox.Options{FailRate: 1, FailCode: http.StatusGone})

	status, body := call(t, http.MethodGet, srv.URL+sandbox.APIPrefix+"/documents/1/", "", "")
	assert.Equal(t, http.StatusGone, status)
	assert.Contains(t, body, "failure injected")
}
