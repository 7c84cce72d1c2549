package provstore_test

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provstore/provstore_sdk_go/pkg/provstore"
)

func mustAll(t *testing.T, c *provstore.BundleCollection) iter.Seq[*provstore.Bundle] {
	t.Helper()
	seq, err := c.All(context.Background())
	require.NoError(t, err)
	return seq
}

func TestBundleLookup(t *testing.T) {
	for name, client := range clients(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, err := client.Document().Create(ctx, []byte(entityDoc), "bundled", nil)
			require.NoError(t, err)
			require.NoError(t, doc.AddBundle(ctx, []byte(bundleDoc), "ex:bundle-1"))

			bundles, err := doc.Bundles()
			require.NoError(t, err)

			b, err := bundles.Get(ctx, "ex:bundle-1")
			require.NoError(t, err)
			assert.Equal(t, "ex:bundle-1", b.Identifier())
			id, _ := doc.ID()
			assert.Equal(t, id, b.DocumentID())
			assert.False(t, b.CreatedAt().IsZero())

			_, err = bundles.Get(ctx, "ex:missing")
			assert.ErrorIs(t, err, provstore.ErrNotFound)
		})
	}
}

func TestBundleCollectionIsNotUpdatedBySet(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	doc, err := client.Document().Create(ctx, []byte(entityDoc), "set", nil)
	require.NoError(t, err)
	bundles, err := doc.Bundles()
	require.NoError(t, err)

	require.NoError(t, bundles.Set(ctx, "ex:b", []byte(bundleDoc)))
	_, err = bundles.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, bundles.Len())

	require.NoError(t, bundles.Set(ctx, "ex:a", []byte(bundleDoc)))
	assert.Equal(t, 1, bundles.Len())
	_, err = bundles.Get(ctx, "ex:a")
	assert.ErrorIs(t, err, provstore.ErrNotFound, "populated collections are only replaced by Refresh")

	_, err = bundles.Refresh(ctx)
	require.NoError(t, err)
	var identifiers []string
	for b := range mustAll(t, bundles) {
		identifiers = append(identifiers, b.Identifier())
	}
	assert.Equal(t, []string{"ex:a", "ex:b"}, identifiers)
}

func TestBundleIterationPopulatesOnce(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	doc, err := client.Document().Create(ctx, []byte(entityDoc), "iter", nil)
	require.NoError(t, err)
	require.NoError(t, doc.AddBundle(ctx, []byte(bundleDoc), "ex:bundle-1"))

	bundles, err := doc.Bundles()
	require.NoError(t, err)
	assert.Equal(t, 0, bundles.Len())

	count := 0
	for range mustAll(t, bundles) {
		count++
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, bundles.Len())
}

func TestBundlesResetByReadMeta(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	doc, err := client.Document().Create(ctx, []byte(entityDoc), "reset", nil)
	require.NoError(t, err)
	require.NoError(t, doc.AddBundle(ctx, []byte(bundleDoc), "ex:bundle-1"))

	bundles, err := doc.Bundles()
	require.NoError(t, err)
	_, err = bundles.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, bundles.Len())

	_, err = doc.ReadMeta(ctx)
	require.NoError(t, err)
	fresh, err := doc.Bundles()
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Len())
}

func TestDuplicateBundleRejected(t *testing.T) {
	client := newSandboxClient(t)
	ctx := context.Background()

	doc, err := client.Document().Create(ctx, []byte(entityDoc), "dup", nil)
	require.NoError(t, err)
	require.NoError(t, doc.AddBundle(ctx, []byte(bundleDoc), "ex:bundle-1"))

	err = doc.AddBundle(ctx, []byte(bundleDoc), "ex:bundle-1")
	assert.ErrorIs(t, err, provstore.ErrInvalidData)

	var httpErr *provstore.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
}
