// Package sandbox serves the ProvStore REST surface on top of the in-memory
// mock so the HTTP client can be exercised end to end without a real store.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/provstore/provstore_sdk_go/internal/provapi"
	"github.com/provstore/provstore_sdk_go/pkg/provstore"
	"github.com/provstore/provstore_sdk_go/pkg/provstore/mock"
)

// APIPrefix is the path the API is mounted under, matching the public store.
const APIPrefix = "/store/api/v0"

// Options tune the sandbox behaviour.
type Options struct {
	// Latency is added before every request is handled.
	Latency time.Duration
	// FailRate is the probability in [0,1] that a request is answered with
	// FailCode instead of being handled.
	FailRate float64
	// FailCode defaults to 500.
	FailCode int
	// Credentials maps usernames to API keys. When empty every request is
	// accepted anonymously; otherwise writes need a valid ApiKey header and
	// private documents are only visible to their owner.
	Credentials map[string]string
	Logger      hclog.Logger
}

type server struct {
	store *mock.Mock
	opts  Options
	log   hclog.Logger
}

// New returns the sandbox handler backed by store.
func New(store *mock.Mock, opts Options) http.Handler {
	if opts.FailCode == 0 {
		opts.FailCode = http.StatusInternalServerError
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &server{store: store, opts: opts, log: logger.Named("sandbox")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.inject)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/documents/", s.createDocument)
		r.Get("/documents/{id}", s.documentProv)
		r.Get("/documents/{id}/", s.documentMeta)
		r.Delete("/documents/{id}/", s.deleteDocument)
		r.Get("/documents/{id}/bundles/", s.listBundles)
		r.Post("/documents/{id}/bundles/", s.addBundle)
		r.Get("/documents/{id}/bundles/{ref}", s.bundleProv)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func (s *server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if s.opts.FailRate > 0 && rand.Float64() < s.opts.FailRate {
			writeError(w, s.opts.FailCode, "failure injected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, ok := s.checkKey(header)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = mock.ContextWithOwner(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) checkKey(header string) (string, bool) {
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || scheme != "ApiKey" {
		return "", false
	}
	user, key, ok := strings.Cut(cred, ":")
	if !ok || user == "" {
		return "", false
	}
	if len(s.opts.Credentials) == 0 {
		return user, true
	}
	want, known := s.opts.Credentials[user]
	return user, known && want == key
}

func (s *server) requireUser(w http.ResponseWriter, r *http.Request) bool {
	if len(s.opts.Credentials) == 0 {
		return true
	}
	if _, ok := r.Context().Value(userKey{}).(string); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	return true
}

// visible enforces ownership of private documents when credentials are
// configured. Owner-only operations pass ownerOnly.
func (s *server) visible(w http.ResponseWriter, r *http.Request, id int64, ownerOnly bool) bool {
	if len(s.opts.Credentials) == 0 {
		return true
	}
	meta, err := s.store.GetDocumentMeta(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return false
	}
	user, _ := r.Context().Value(userKey{}).(string)
	if meta.Owner == user || (meta.Public && !ownerOnly) {
		return true
	}
	writeError(w, http.StatusForbidden, "you do not have permission to access this document")
	return false
}

type writeRequest struct {
	Content json.RawMessage `json:"content"`
	Public  bool            `json:"public"`
	RecID   string          `json:"rec_id"`
}

func (s *server) createDocument(w http.ResponseWriter, r *http.Request) {
	if !s.requireUser(w, r) {
		return
	}
	req, format, ok := decodeWrite(w, r)
	if !ok {
		return
	}
	id, err := s.store.PostDocument(r.Context(), &provstore.DocumentPost{
		Content: provapi.DecodeContent(req.Content),
		Format:  format,
		Name:    req.RecID,
		Public:  req.Public,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *server) documentProv(w http.ResponseWriter, r *http.Request) {
	id, format, err := parseRef(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !s.visible(w, r, id, false) {
		return
	}
	body, err := s.store.GetDocumentProv(r.Context(), id, format)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeBody(w, format, body)
}

func (s *server) documentMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok || !s.visible(w, r, id, false) {
		return
	}
	meta, err := s.store.GetDocumentMeta(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            meta.ID,
		"document_name": meta.Name,
		"public":        meta.Public,
		"owner":         meta.Owner,
		"created_at":    meta.CreatedAt.UTC().Format(time.RFC3339),
		"views_count":   meta.Views,
		"resource_uri":  fmt.Sprintf("%s/documents/%d/", APIPrefix, meta.ID),
	})
}

func (s *server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok || !s.requireUser(w, r) || !s.visible(w, r, id, true) {
		return
	}
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listBundles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok || !s.visible(w, r, id, false) {
		return
	}
	metas, err := s.store.GetBundles(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	objects := make([]map[string]any, 0, len(metas))
	for _, m := range metas {
		objects = append(objects, map[string]any{
			"id":         m.ID,
			"identifier": m.Identifier,
			"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta":    map[string]any{"total_count": len(objects)},
		"objects": objects,
	})
}

func (s *server) addBundle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok || !s.requireUser(w, r) || !s.visible(w, r, id, true) {
		return
	}
	req, format, ok := decodeWrite(w, r)
	if !ok {
		return
	}
	if err := s.store.AddBundle(r.Context(), id, req.RecID, provapi.DecodeContent(req.Content), format); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *server) bundleProv(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok || !s.visible(w, r, id, false) {
		return
	}
	bundleID, format, err := parseRef(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	body, err := s.store.GetBundleProv(r.Context(), id, bundleID, format)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeBody(w, format, body)
}

// decodeWrite reads a create or bundle request. A JSON object or array in
// "content" marks a JSON body; a string holds some other serialization,
// which is recognised by sniffFormat and stored as opaque text.
func decodeWrite(w http.ResponseWriter, r *http.Request) (*writeRequest, string, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	var req writeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return nil, "", false
	}
	content := strings.TrimSpace(string(req.Content))
	if content == "" || content == "null" {
		writeError(w, http.StatusBadRequest, "content is required")
		return nil, "", false
	}
	format := provstore.FormatJSON
	if content[0] == '"' {
		format = sniffFormat(provapi.DecodeContent(req.Content))
	}
	return &req, format, true
}

// sniffFormat guesses the serialization of a text body: XML by its leading
// tag, Turtle by its directives and PROV-N otherwise.
func sniffFormat(body []byte) string {
	text := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(text, "<rdf:RDF"):
		return "rdf"
	case strings.HasPrefix(text, "<"):
		return "xml"
	case strings.HasPrefix(text, "@prefix"), strings.HasPrefix(text, "@base"),
		strings.HasPrefix(strings.ToUpper(text), "PREFIX "):
		return "ttl"
	default:
		return "provn"
	}
}

// parseRef splits "12.json" into id and format.
func parseRef(ref string) (int64, string, error) {
	rawID, format, ok := strings.Cut(ref, ".")
	if !ok || format == "" {
		return 0, "", fmt.Errorf("missing format in %q", ref)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid id in %q", ref)
	}
	return id, format, nil
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid document id")
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, provstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provstore.ErrInvalidData):
		return http.StatusBadRequest
	case errors.Is(err, provstore.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provstore.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, provstore.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, provstore.ErrDocumentGone):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeBody sends a stored body untouched so clients get back exactly the
// bytes they saved.
func writeBody(w http.ResponseWriter, format string, body []byte) {
	contentType := "text/plain; charset=utf-8"
	if format == provstore.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
