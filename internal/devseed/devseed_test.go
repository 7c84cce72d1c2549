package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
documents:
  - name: flat
    owner: alice
    public: true
    views: 2
    content: '{"entity":{"ex:entity-1":{}}}'
    bundles:
      - identifier: ex:bundle-1
        content: '{"entity":{"ex:entity-2":{}}}'
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	seed, err := Load(path)
	require.NoError(t, err)
	require.Len(t, seed.Documents, 1)

	doc := seed.Documents[0]
	assert.Equal(t, "flat", doc.Name)
	assert.Equal(t, "alice", doc.Owner)
	assert.True(t, doc.Public)
	assert.Equal(t, 2, doc.Views)
	require.Len(t, doc.Bundles, 1)
	assert.Equal(t, "ex:bundle-1", doc.Bundles[0].Identifier)
}

func TestParseCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
documents:
  - name: ""
    content: ""
    views: -1
    bundles:
      - identifier: ex:b
      - identifier: ex:b
      - identifier: ""
`))
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 5)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
