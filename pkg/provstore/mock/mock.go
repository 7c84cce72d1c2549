// Package mock provides an in-memory ProvStore that satisfies
// provstore.Backend. It is used by tests, by the sandbox server and by the
// runtime bootstrap when no remote store is configured.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/provstore/provstore_sdk_go/internal/devseed"
	"github.com/provstore/provstore_sdk_go/pkg/provstore"
)

// DefaultOwner owns documents created without an owner in the context.
const DefaultOwner = "anonymous"

type document struct {
	id        int64
	name      string
	owner     string
	public    bool
	createdAt time.Time
	views     int
	format    string
	content   []byte
	bundles   []*bundle
}

type bundle struct {
	id         int64
	identifier string
	createdAt  time.Time
	content    []byte
}

// Mock is an in-memory document store. It is safe for concurrent use.
type Mock struct {
	mu           sync.RWMutex
	docs         map[int64]*document
	nextDocID    int64
	nextBundleID int64
	now          func() time.Time
}

var _ provstore.Backend = (*Mock)(nil)

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for creation timestamps.
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		docs:         make(map[int64]*document),
		nextDocID:    1,
		nextBundleID: 1,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type ownerKey struct{}

// ContextWithOwner attributes documents created with ctx to owner.
func ContextWithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

func ownerFrom(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok && owner != "" {
		return owner
	}
	return DefaultOwner
}

// Seed loads documents decoded via devseed.Load.
func (m *Mock) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	if err := seed.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range seed.Documents {
		owner := s.Owner
		if owner == "" {
			owner = DefaultOwner
		}
		format := s.Format
		if format == "" {
			format = provstore.FormatJSON
		}
		doc := m.insertLocked(s.Name, owner, s.Public, format, []byte(s.Content))
		doc.views = s.Views
		for _, b := range s.Bundles {
			m.addBundleLocked(doc, b.Identifier, []byte(b.Content))
		}
	}
	return nil
}

// PostDocument stores a new document and returns its id.
func (m *Mock) PostDocument(ctx context.Context, post *provstore.DocumentPost) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if post == nil || strings.TrimSpace(post.Name) == "" {
		return 0, fmt.Errorf("mock provstore: rec_id is required: %w", provstore.ErrInvalidData)
	}
	if len(post.Content) == 0 {
		return 0, fmt.Errorf("mock provstore: content is required: %w", provstore.ErrInvalidData)
	}
	format := post.Format
	if format == "" {
		format = provstore.FormatJSON
	}
	if format == provstore.FormatJSON && !json.Valid(post.Content) {
		return 0, fmt.Errorf("mock provstore: content is not valid JSON: %w", provstore.ErrUnprocessable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.insertLocked(post.Name, ownerFrom(ctx), post.Public, format, post.Content)
	return doc.id, nil
}

// GetDocumentProv returns the stored body. JSON bodies include the
// document's bundles under the "bundle" key.
func (m *Mock) GetDocumentProv(ctx context.Context, id int64, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if format != doc.format {
		return nil, fmt.Errorf("mock provstore: cannot convert %s to %s: %w", doc.format, format, provstore.ErrUnprocessable)
	}
	return compose(doc), nil
}

// GetDocumentMeta returns the document's metadata.
func (m *Mock) GetDocumentMeta(ctx context.Context, id int64) (*provstore.DocumentMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return &provstore.DocumentMeta{
		ID:        doc.id,
		Name:      doc.name,
		Public:    doc.public,
		Owner:     doc.owner,
		CreatedAt: doc.createdAt,
		Views:     doc.views,
	}, nil
}

// AddBundle attaches a bundle to a document. Identifiers are unique per
// document.
func (m *Mock) AddBundle(ctx context.Context, id int64, identifier string, body []byte, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("mock provstore: bundle rec_id is required: %w", provstore.ErrInvalidData)
	}
	if format == provstore.FormatJSON && !json.Valid(body) {
		return fmt.Errorf("mock provstore: bundle content is not valid JSON: %w", provstore.ErrUnprocessable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.lookupLocked(id)
	if err != nil {
		return err
	}
	for _, b := range doc.bundles {
		if b.identifier == identifier {
			return fmt.Errorf("mock provstore: bundle %q already exists: %w", identifier, provstore.ErrInvalidData)
		}
	}
	m.addBundleLocked(doc, identifier, body)
	return nil
}

// GetBundles lists a document's bundles in creation order.
func (m *Mock) GetBundles(ctx context.Context, id int64) ([]provstore.BundleMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	metas := make([]provstore.BundleMeta, 0, len(doc.bundles))
	for _, b := range doc.bundles {
		metas = append(metas, provstore.BundleMeta{
			ID:         b.id,
			Identifier: b.identifier,
			CreatedAt:  b.createdAt,
		})
	}
	return metas, nil
}

// GetBundleProv returns one bundle's body.
func (m *Mock) GetBundleProv(ctx context.Context, id, bundleID int64, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if format != doc.format {
		return nil, fmt.Errorf("mock provstore: cannot convert %s to %s: %w", doc.format, format, provstore.ErrUnprocessable)
	}
	for _, b := range doc.bundles {
		if b.id == bundleID {
			return append([]byte(nil), b.content...), nil
		}
	}
	return nil, fmt.Errorf("mock provstore: bundle %d of document %d: %w", bundleID, id, provstore.ErrNotFound)
}

// DeleteDocument removes a document and its bundles.
func (m *Mock) DeleteDocument(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookupLocked(id); err != nil {
		return err
	}
	delete(m.docs, id)
	return nil
}

// IDs returns the ids of every stored document in ascending order.
func (m *Mock) IDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Mock) insertLocked(name, owner string, public bool, format string, content []byte) *document {
	doc := &document{
		id:        m.nextDocID,
		name:      name,
		owner:     owner,
		public:    public,
		createdAt: m.now(),
		format:    format,
		content:   append([]byte(nil), content...),
	}
	m.nextDocID++
	m.docs[doc.id] = doc
	return doc
}

func (m *Mock) addBundleLocked(doc *document, identifier string, content []byte) {
	doc.bundles = append(doc.bundles, &bundle{
		id:         m.nextBundleID,
		identifier: identifier,
		createdAt:  m.now(),
		content:    append([]byte(nil), content...),
	})
	m.nextBundleID++
}

func (m *Mock) lookupLocked(id int64) (*document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("mock provstore: document %d: %w", id, provstore.ErrNotFound)
	}
	return doc, nil
}

// compose renders a document body. A JSON object body gains a "bundle"
// member holding every bundle keyed by identifier.
func compose(doc *document) []byte {
	if len(doc.bundles) == 0 || doc.format != provstore.FormatJSON {
		return append([]byte(nil), doc.content...)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc.content, &obj); err != nil || obj == nil {
		return append([]byte(nil), doc.content...)
	}
	bundles := make(map[string]json.RawMessage, len(doc.bundles))
	for _, b := range doc.bundles {
		if json.Valid(b.content) {
			bundles[b.identifier] = json.RawMessage(b.content)
		}
	}
	encoded, err := json.Marshal(bundles)
	if err != nil {
		return append([]byte(nil), doc.content...)
	}
	obj["bundle"] = encoded
	out, err := json.Marshal(obj)
	if err != nil {
		return append([]byte(nil), doc.content...)
	}
	return out
}
