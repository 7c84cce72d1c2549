package provstore

import (
	"time"

	"github.com/provstore/provstore_sdk_go/internal/httpx"
)

// FormatJSON is the structured serialization used when no format is given.
const FormatJSON = "json"

// RetryPolicy controls per-request timeouts and timeout retries.
type RetryPolicy = httpx.RetryPolicy

// DefaultRetryPolicy allows three attempts of 30 seconds each, retried
// immediately.
var DefaultRetryPolicy = httpx.DefaultRetryPolicy

// DocumentPost carries the fields of a create request.
type DocumentPost struct {
	Content []byte
	Format  string
	Name    string
	Public  bool
}

// DocumentMeta is the metadata the store keeps for a document.
type DocumentMeta struct {
	ID        int64
	Name      string
	Public    bool
	Owner     string
	CreatedAt time.Time
	Views     int
}

// BundleMeta describes one bundle in a document's bundle listing.
type BundleMeta struct {
	ID         int64     `mapstructure:"id"`
	Identifier string    `mapstructure:"identifier"`
	CreatedAt  time.Time `mapstructure:"created_at"`
}

// CreateOptions control Document.Create. A nil value means a private JSON
// document that is not read back.
type CreateOptions struct {
	// Format names the serialization of the body. Defaults to FormatJSON.
	Format string
	// Public makes the document visible to everyone.
	Public bool
	// Refresh reads the document back from the store after saving.
	Refresh bool
}

func (o *CreateOptions) format() string {
	if o == nil || o.Format == "" {
		return FormatJSON
	}
	return o.Format
}
