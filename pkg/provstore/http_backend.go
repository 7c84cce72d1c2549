package provstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/provstore/provstore_sdk_go/internal/httpx"
	"github.com/provstore/provstore_sdk_go/internal/provapi"
)

type httpBackend struct {
	client *httpx.Client
}

type documentWire struct {
	Content json.RawMessage `json:"content"`
	Public  bool            `json:"public"`
	RecID   string          `json:"rec_id"`
}

type bundleWire struct {
	Content json.RawMessage `json:"content"`
	RecID   string          `json:"rec_id"`
}

type metaWire struct {
	ID           int64     `mapstructure:"id"`
	DocumentName string    `mapstructure:"document_name"`
	Name         string    `mapstructure:"name"`
	Public       bool      `mapstructure:"public"`
	Owner        string    `mapstructure:"owner"`
	CreatedAt    time.Time `mapstructure:"created_at"`
	ViewsCount   int       `mapstructure:"views_count"`
}

func (b *httpBackend) PostDocument(ctx context.Context, doc *DocumentPost) (int64, error) {
	content, err := encodeContent(doc.Content, doc.Format)
	if err != nil {
		return 0, err
	}
	body, contentType, err := httpx.WithJSONBody(documentWire{
		Content: content,
		Public:  doc.Public,
		RecID:   doc.Name,
	})
	if err != nil {
		return 0, fmt.Errorf("provstore: encode document: %w", err)
	}
	data, err := b.do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "documents/",
		Header: http.Header{"Content-Type": {contentType}},
		Body:   body,
	})
	if err != nil {
		return 0, err
	}
	var created struct {
		ID int64 `mapstructure:"id"`
	}
	if err := provapi.Decode(data, &created); err != nil {
		return 0, fmt.Errorf("provstore: decode create response: %w", err)
	}
	return created.ID, nil
}

func (b *httpBackend) GetDocumentProv(ctx context.Context, id int64, format string) ([]byte, error) {
	return b.do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("documents/%d.%s", id, format),
	})
}

func (b *httpBackend) GetDocumentMeta(ctx context.Context, id int64) (*DocumentMeta, error) {
	data, err := b.do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("documents/%d/", id),
	})
	if err != nil {
		return nil, err
	}
	var wire metaWire
	if err := provapi.Decode(data, &wire); err != nil {
		return nil, fmt.Errorf("provstore: decode document metadata: %w", err)
	}
	name := wire.DocumentName
	if name == "" {
		name = wire.Name
	}
	return &DocumentMeta{
		ID:        id,
		Name:      name,
		Public:    wire.Public,
		Owner:     wire.Owner,
		CreatedAt: wire.CreatedAt,
		Views:     wire.ViewsCount,
	}, nil
}

func (b *httpBackend) AddBundle(ctx context.Context, id int64, identifier string, body []byte, format string) error {
	content, err := encodeContent(body, format)
	if err != nil {
		return err
	}
	payload, contentType, err := httpx.WithJSONBody(bundleWire{
		Content: content,
		RecID:   identifier,
	})
	if err != nil {
		return fmt.Errorf("provstore: encode bundle: %w", err)
	}
	_, err = b.do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("documents/%d/bundles/", id),
		Header: http.Header{"Content-Type": {contentType}},
		Body:   payload,
	})
	return err
}

func (b *httpBackend) GetBundles(ctx context.Context, id int64) ([]BundleMeta, error) {
	data, err := b.do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("documents/%d/bundles/", id),
	})
	if err != nil {
		return nil, err
	}
	objects, err := provapi.ExtractObjects(data)
	if err != nil {
		return nil, err
	}
	var bundles []BundleMeta
	if err := provapi.Decode(objects, &bundles); err != nil {
		return nil, fmt.Errorf("provstore: decode bundle list: %w", err)
	}
	return bundles, nil
}

func (b *httpBackend) GetBundleProv(ctx context.Context, id, bundleID int64, format string) ([]byte, error) {
	return b.do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("documents/%d/bundles/%d.%s", id, bundleID, format),
	})
}

func (b *httpBackend) DeleteDocument(ctx context.Context, id int64) error {
	_, err := b.do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("documents/%d/", id),
	})
	return err
}

// encodeContent rejects a JSON body that does not parse with the same error
// kind the store answers it with.
func encodeContent(body []byte, format string) (json.RawMessage, error) {
	if format == "" {
		format = FormatJSON
	}
	content, err := provapi.EncodeContent(body, format)
	if errors.Is(err, provapi.ErrInvalidJSONContent) {
		return nil, fmt.Errorf("%w: %w", err, ErrUnprocessable)
	}
	if err != nil {
		return nil, fmt.Errorf("provstore: encode content: %w", err)
	}
	return content, nil
}

func (b *httpBackend) do(ctx context.Context, req *httpx.Request) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("provstore: http backend not configured")
	}
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return httpx.ReadAllAndClose(resp.Body)
}
