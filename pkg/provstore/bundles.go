package provstore

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"
)

// BundleCollection is a cache of one document's bundles keyed by
// identifier. It is populated on the first Get or All and replaced
// wholesale by Refresh; it is never updated behind the caller's back.
type BundleCollection struct {
	doc     *Document
	bundles map[string]*Bundle
}

func newBundleCollection(doc *Document) *BundleCollection {
	return &BundleCollection{doc: doc}
}

// Get returns the bundle with the given identifier, listing the document's
// bundles first if the collection was never populated. A missing identifier
// yields ErrNotFound.
func (c *BundleCollection) Get(ctx context.Context, identifier string) (*Bundle, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	b, ok := c.bundles[identifier]
	if !ok {
		return nil, fmt.Errorf("provstore: bundle %q: %w", identifier, ErrNotFound)
	}
	return b, nil
}

// Set stores body as a bundle named identifier through the owning document.
// The collection itself is left unchanged.
func (c *BundleCollection) Set(ctx context.Context, identifier string, body []byte) error {
	return c.doc.AddBundle(ctx, body, identifier)
}

// All returns a sequence over the cached bundles ordered by identifier,
// listing them first if the collection was never populated. The sequence is
// a snapshot and can be ranged over any number of times.
func (c *BundleCollection) All(ctx context.Context) (iter.Seq[*Bundle], error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	snapshot := make([]*Bundle, 0, len(c.bundles))
	for _, b := range c.bundles {
		snapshot = append(snapshot, b)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].identifier < snapshot[j].identifier
	})
	return func(yield func(*Bundle) bool) {
		for _, b := range snapshot {
			if !yield(b) {
				return
			}
		}
	}, nil
}

// Len returns the number of cached bundles. It never contacts the store, so
// it is 0 until the collection has been populated.
func (c *BundleCollection) Len() int {
	return len(c.bundles)
}

// Refresh lists the document's bundles and replaces the cache.
func (c *BundleCollection) Refresh(ctx context.Context) (*BundleCollection, error) {
	if c.doc.Abstract() {
		return nil, ErrAbstractDocument
	}
	id := *c.doc.id
	metas, err := c.doc.client.backend.GetBundles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("provstore: list bundles of document %d: %w", id, err)
	}
	bundles := make(map[string]*Bundle, len(metas))
	for _, m := range metas {
		bundles[m.Identifier] = &Bundle{
			client:     c.doc.client,
			documentID: id,
			id:         m.ID,
			identifier: m.Identifier,
			createdAt:  m.CreatedAt,
		}
	}
	c.bundles = bundles
	return c, nil
}

func (c *BundleCollection) ensure(ctx context.Context) error {
	if c.bundles != nil {
		return nil
	}
	_, err := c.Refresh(ctx)
	return err
}

// Bundle is a read-only view of one bundle. Its body is fetched on first use
// and kept for the lifetime of the value; list the bundles again to observe
// remote changes.
type Bundle struct {
	client     *Client
	documentID int64
	id         int64
	identifier string
	createdAt  time.Time
	prov       []byte
}

// ID returns the store's numeric id for the bundle.
func (b *Bundle) ID() int64 { return b.id }

// Identifier returns the bundle's qualified name, e.g. "ex:bundle-1".
func (b *Bundle) Identifier() string { return b.identifier }

// CreatedAt returns when the bundle was stored.
func (b *Bundle) CreatedAt() time.Time { return b.createdAt }

// DocumentID returns the id of the owning document.
func (b *Bundle) DocumentID() int64 { return b.documentID }

// Prov returns the bundle body as JSON.
func (b *Bundle) Prov(ctx context.Context) ([]byte, error) {
	if b.prov != nil {
		return b.prov, nil
	}
	body, err := b.client.backend.GetBundleProv(ctx, b.documentID, b.id, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("provstore: read bundle %d of document %d: %w", b.id, b.documentID, err)
	}
	if body == nil {
		body = []byte{}
	}
	b.prov = body
	return body, nil
}
