package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesTimeoutsUpToCeiling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "documents/1/"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDoRecoversAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":7}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "documents/",
		Body:   strings.NewReader(`{"rec_id":"x"}`),
	})
	require.NoError(t, err)
	data, err := ReadAllAndClose(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(data))
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []string{`{"rec_id":"x"}`, `{"rec_id":"x"}`}, bodies)
}

func TestDoDoesNotRetryStatusErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"boom"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "documents/1/"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, map[string]any{"error": "boom"}, httpErr.JSON)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusInternalServerError, ErrService},
		{http.StatusUnprocessableEntity, ErrUnprocessable},
		{http.StatusGone, ErrDocumentGone},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusUnauthorized, ErrInvalidCredentials},
		{http.StatusBadRequest, ErrInvalidData},
		{http.StatusTeapot, ErrUnexpectedHTTP},
		{http.StatusBadGateway, ErrUnexpectedHTTP},
	}
	for _, tc := range tests {
		err := &HTTPError{StatusCode: tc.status}
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestDoKeepsBasePathAndHeaders(t *testing.T) {
	var gotPath, gotAccept, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get(HeaderRequestID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/store/api/v0/", WithHeaders(http.Header{"Accept": {"application/json"}}))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodDelete, Path: "/documents/12/"})
	require.NoError(t, err)
	assert.Equal(t, "/store/api/v0/documents/12/", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.NotEmpty(t, gotRequestID)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Do(ctx, &Request{Method: http.MethodGet, Path: "documents/"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
	_, err = NewClient("://not-a-url")
	assert.Error(t, err)
}
