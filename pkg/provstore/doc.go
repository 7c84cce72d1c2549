// Package provstore provides a client for the ProvStore provenance document
// store. The HTTP surface mirrors the store's /documents REST API: documents
// are created from an opaque provenance body, read back lazily as metadata
// and body, extended with named bundles, and deleted.
//
// The central type is Document, a handle that is either abstract (not yet
// backed by a remote document) or bound to a remote id. Binding happens once
// per identity through Create, Set or Get; Delete returns the handle to the
// abstract state. Document and BundleCollection are not safe for concurrent
// use; callers sharing a handle across goroutines must serialize access.
package provstore
