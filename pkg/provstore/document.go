package provstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Document is a local handle to at most one remote document.
//
// A new handle is abstract. Create, Set and Get bind it to a remote id; once
// bound the id cannot change until Delete returns the handle to the abstract
// state. Metadata and the provenance body are fetched lazily and cached until
// the next Read, ReadMeta, ReadProv or Refresh.
//
// Methods that return *Document mutate the receiver in place and return it
// for chaining; on error they return nil.
//
// Handles come from Client.Document. A zero Document has no client and can
// never be bound: Create, Set and the read methods fail with
// ErrAbstractDocument.
type Document struct {
	client *Client
	id     *int64

	name      *string
	public    *bool
	owner     *string
	createdAt *time.Time
	views     *int
	prov      []byte

	bundles *BundleCollection
}

// ID returns the remote id and whether the handle is bound.
func (d *Document) ID() (int64, bool) {
	if d.id == nil {
		return 0, false
	}
	return *d.id, true
}

// Abstract reports whether the handle has no remote id.
func (d *Document) Abstract() bool {
	return d.id == nil
}

// Create stores body as a new document called name and binds the handle to
// the id the store assigns. It fails with ErrImmutableDocument when the
// handle is already bound. Creates are not deduplicated: a request retried
// after a timeout may store the document twice.
func (d *Document) Create(ctx context.Context, body []byte, name string, opts *CreateOptions) (*Document, error) {
	if !d.Abstract() {
		return nil, ErrImmutableDocument
	}
	if d.client == nil {
		return nil, ErrAbstractDocument
	}

	format := opts.format()
	id, err := d.client.backend.PostDocument(ctx, &DocumentPost{
		Content: body,
		Format:  format,
		Name:    name,
		Public:  opts != nil && opts.Public,
	})
	if err != nil {
		return nil, fmt.Errorf("provstore: create document: %w", err)
	}

	d.reset()
	d.id = &id
	if format == FormatJSON {
		d.prov = cloneBytes(body)
	}
	d.client.logger.Debug("document created", "document_id", id, "name", name)

	if opts != nil && opts.Refresh {
		return d.Refresh(ctx)
	}
	return d, nil
}

// Save is an alias for Create.
func (d *Document) Save(ctx context.Context, body []byte, name string, opts *CreateOptions) (*Document, error) {
	return d.Create(ctx, body, name, opts)
}

// Set binds the handle to id without contacting the store.
func (d *Document) Set(id int64) (*Document, error) {
	if !d.Abstract() {
		return nil, ErrImmutableDocument
	}
	if d.client == nil {
		return nil, ErrAbstractDocument
	}
	d.id = &id
	return d, nil
}

// Get binds the handle to id and reads both body and metadata.
func (d *Document) Get(ctx context.Context, id int64) (*Document, error) {
	if !d.Abstract() {
		return nil, ErrImmutableDocument
	}
	return d.Read(ctx, id)
}

// Read fetches the provenance body and the metadata. At most one id may be
// passed; passing one binds an abstract handle and fails with
// ErrImmutableDocument on a bound one. If the fetch fails, an id bound by
// this call is released again.
func (d *Document) Read(ctx context.Context, id ...int64) (*Document, error) {
	bound, err := d.bind(id)
	if err != nil {
		return nil, err
	}
	if _, err := d.readProv(ctx); err != nil {
		d.unbindOnError(bound)
		return nil, err
	}
	if err := d.readMeta(ctx); err != nil {
		d.unbindOnError(bound)
		return nil, err
	}
	return d, nil
}

// Refresh re-reads body and metadata, discarding every cached value
// including the bundle listing.
func (d *Document) Refresh(ctx context.Context) (*Document, error) {
	return d.Read(ctx)
}

// ReadProv fetches the provenance body, replacing any cached value. The id
// argument follows the rules of Read.
func (d *Document) ReadProv(ctx context.Context, id ...int64) ([]byte, error) {
	bound, err := d.bind(id)
	if err != nil {
		return nil, err
	}
	body, err := d.readProv(ctx)
	if err != nil {
		d.unbindOnError(bound)
		return nil, err
	}
	return body, nil
}

// ReadMeta fetches name, owner, visibility, creation time and view count,
// and starts a new, unpopulated bundle collection. The id argument follows
// the rules of Read.
func (d *Document) ReadMeta(ctx context.Context, id ...int64) (*Document, error) {
	bound, err := d.bind(id)
	if err != nil {
		return nil, err
	}
	if err := d.readMeta(ctx); err != nil {
		d.unbindOnError(bound)
		return nil, err
	}
	return d, nil
}

// ReadProvFormat fetches the body serialized as format. The result is not
// cached.
func (d *Document) ReadProvFormat(ctx context.Context, format string) ([]byte, error) {
	if d.Abstract() {
		return nil, ErrAbstractDocument
	}
	if format == "" {
		format = FormatJSON
	}
	body, err := d.client.backend.GetDocumentProv(ctx, *d.id, format)
	if err != nil {
		return nil, fmt.Errorf("provstore: read document %d as %s: %w", *d.id, format, err)
	}
	return body, nil
}

// AddBundle stores body as a bundle of this document. The cached bundle
// collection is not updated; call Refresh on it to see the new bundle.
func (d *Document) AddBundle(ctx context.Context, body []byte, identifier string) error {
	if d.Abstract() {
		return ErrAbstractDocument
	}
	if err := d.client.backend.AddBundle(ctx, *d.id, identifier, body, FormatJSON); err != nil {
		return fmt.Errorf("provstore: add bundle %q to document %d: %w", identifier, *d.id, err)
	}
	d.client.logger.Debug("bundle added", "document_id", *d.id, "identifier", identifier)
	return nil
}

// Bundles returns the document's bundle collection.
func (d *Document) Bundles() (*BundleCollection, error) {
	if d.Abstract() {
		return nil, ErrAbstractDocument
	}
	if d.bundles == nil {
		d.bundles = newBundleCollection(d)
	}
	return d.bundles, nil
}

// Delete removes the document from the store and returns the handle to the
// abstract state with every cache cleared.
func (d *Document) Delete(ctx context.Context) error {
	if d.Abstract() {
		return ErrAbstractDocument
	}
	id := *d.id
	if err := d.client.backend.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("provstore: delete document %d: %w", id, err)
	}
	d.id = nil
	d.reset()
	d.client.logger.Debug("document deleted", "document_id", id)
	return nil
}

// Name returns the document name as shown on the store.
func (d *Document) Name(ctx context.Context) (string, error) {
	if d.name == nil {
		if err := d.fillMeta(ctx); err != nil {
			return "", err
		}
	}
	return *d.name, nil
}

// Public reports whether the document is visible to everyone.
func (d *Document) Public(ctx context.Context) (bool, error) {
	if d.public == nil {
		if err := d.fillMeta(ctx); err != nil {
			return false, err
		}
	}
	return *d.public, nil
}

// Owner returns the username of the document's creator.
func (d *Document) Owner(ctx context.Context) (string, error) {
	if d.owner == nil {
		if err := d.fillMeta(ctx); err != nil {
			return "", err
		}
	}
	return *d.owner, nil
}

// CreatedAt returns when the document was stored.
func (d *Document) CreatedAt(ctx context.Context) (time.Time, error) {
	if d.createdAt == nil {
		if err := d.fillMeta(ctx); err != nil {
			return time.Time{}, err
		}
	}
	return *d.createdAt, nil
}

// Views returns the number of views recorded by the store.
func (d *Document) Views(ctx context.Context) (int, error) {
	if d.views == nil {
		if err := d.fillMeta(ctx); err != nil {
			return 0, err
		}
	}
	return *d.views, nil
}

// Prov returns the provenance body as JSON.
func (d *Document) Prov(ctx context.Context) ([]byte, error) {
	if d.prov != nil {
		return d.prov, nil
	}
	if d.Abstract() {
		return nil, ErrEmptyDocument
	}
	return d.readProv(ctx)
}

// URL returns the document's web page, or "" for an abstract handle.
func (d *Document) URL() string {
	if d.Abstract() {
		return ""
	}
	parts := strings.Split(d.client.config.BaseURL, "/")
	if len(parts) > 3 {
		parts = parts[:len(parts)-2]
	}
	return fmt.Sprintf("%s/documents/%d", strings.Join(parts, "/"), *d.id)
}

// Equal reports whether both handles use equal client configurations and
// the same id, or are both abstract.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if !d.client.Equal(other.client) {
		return false
	}
	if d.id == nil || other.id == nil {
		return d.id == nil && other.id == nil
	}
	return *d.id == *other.id
}

func (d *Document) String() string {
	if d.Abstract() {
		return fmt.Sprintf("<Abstract Document %p>", d)
	}
	return fmt.Sprintf("%s/documents/%d", d.client.config.BaseURL, *d.id)
}

// bind applies the optional id argument of the read methods. It reports
// whether this call bound the handle.
func (d *Document) bind(ids []int64) (bool, error) {
	switch {
	case len(ids) > 1:
		return false, fmt.Errorf("provstore: at most one document id may be given, got %d", len(ids))
	case len(ids) == 1:
		if !d.Abstract() {
			return false, ErrImmutableDocument
		}
		if d.client == nil {
			return false, ErrAbstractDocument
		}
		id := ids[0]
		d.id = &id
		return true, nil
	case d.Abstract():
		return false, ErrAbstractDocument
	default:
		return false, nil
	}
}

func (d *Document) unbindOnError(bound bool) {
	if bound {
		d.id = nil
		d.reset()
	}
}

func (d *Document) readProv(ctx context.Context) ([]byte, error) {
	body, err := d.client.backend.GetDocumentProv(ctx, *d.id, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("provstore: read document %d: %w", *d.id, err)
	}
	if body == nil {
		body = []byte{}
	}
	d.prov = body
	return body, nil
}

func (d *Document) readMeta(ctx context.Context) error {
	meta, err := d.client.backend.GetDocumentMeta(ctx, *d.id)
	if err != nil {
		return fmt.Errorf("provstore: read metadata of document %d: %w", *d.id, err)
	}
	d.name = &meta.Name
	d.public = &meta.Public
	d.owner = &meta.Owner
	d.createdAt = &meta.CreatedAt
	d.views = &meta.Views
	d.bundles = newBundleCollection(d)
	return nil
}

// fillMeta serves a cache miss on a metadata field.
func (d *Document) fillMeta(ctx context.Context) error {
	if d.Abstract() {
		return ErrEmptyDocument
	}
	return d.readMeta(ctx)
}

func (d *Document) reset() {
	d.name = nil
	d.public = nil
	d.owner = nil
	d.createdAt = nil
	d.views = nil
	d.prov = nil
	d.bundles = nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return append([]byte(nil), b...)
}
