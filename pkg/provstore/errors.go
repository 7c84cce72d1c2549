package provstore

import (
	"errors"

	"github.com/provstore/provstore_sdk_go/internal/httpx"
)

// HTTPError is returned for any non-2xx response. It unwraps to one of the
// status error kinds below.
type HTTPError = httpx.HTTPError

// Transport error kinds. Use errors.Is to test for them.
var (
	// ErrTimeout is returned once every attempt of a request has timed out.
	ErrTimeout = httpx.ErrTimeout
	// ErrService signals a 500 response.
	ErrService = httpx.ErrService
	// ErrUnprocessable signals a 422 response.
	ErrUnprocessable = httpx.ErrUnprocessable
	// ErrDocumentGone signals a 410 response.
	ErrDocumentGone = httpx.ErrDocumentGone
	// ErrNotFound signals a 404 response, or a bundle identifier missing from
	// a refreshed BundleCollection.
	ErrNotFound = httpx.ErrNotFound
	// ErrForbidden signals a 403 response.
	ErrForbidden = httpx.ErrForbidden
	// ErrInvalidCredentials signals a 401 response.
	ErrInvalidCredentials = httpx.ErrInvalidCredentials
	// ErrInvalidData signals a 400 response.
	ErrInvalidData = httpx.ErrInvalidData
	// ErrUnexpectedHTTP covers every other non-2xx status.
	ErrUnexpectedHTTP = httpx.ErrUnexpectedHTTP
)

// Document lifecycle errors.
var (
	// ErrAbstractDocument is returned when an operation needs a remote
	// document but the handle has no id.
	ErrAbstractDocument = errors.New("provstore: unsaved documents cannot be read")
	// ErrImmutableDocument is returned when a bound handle is asked to take
	// a different identity.
	ErrImmutableDocument = errors.New("provstore: cannot change document instance reference")
	// ErrEmptyDocument is returned when a field is neither cached nor
	// fetchable.
	ErrEmptyDocument = errors.New("provstore: there is no data associated with this document")
)
