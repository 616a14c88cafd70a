package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pathwise.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
map_root = "/conf/map"
listen   = ":9090"

store {
  driver = "sqlite"
  path   = "content.db"
}
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/conf/map", c.MapRoot)
	assert.Equal(t, ":9090", c.Listen)
	require.NotNil(t, c.Store)
	assert.Equal(t, "sqlite", c.Store.Driver)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
store {
  driver = "json"
  path   = "tree.json"
}
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/map", c.MapRoot)
	assert.Equal(t, ":8080", c.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	assert.Error(t, err)
}

func TestOpenStoreJSON(t *testing.T) {
	dir := t.TempDir()
	treePath := filepath.Join(dir, "tree.json")
	require.NoError(t, os.WriteFile(treePath,
		[]byte(`{"content": {"page": {".type": "pw:page"}}}`), 0o644))

	c := Default()
	c.Store = &Store{Driver: "json", Path: treePath}
	s, cleanup, err := c.OpenStore()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	n, err := s.GetNode(context.Background(), "/content/page")
	require.NoError(t, err)
	assert.Equal(t, "pw:page", n.Type)
}

func TestOpenStoreDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "content", "page"), 0o755))

	c := Default()
	c.Store = &Store{Driver: "dir", Path: dir}
	s, cleanup, err := c.OpenStore()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	_, err = s.GetNode(context.Background(), "/content/page")
	require.NoError(t, err)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	c := Default()
	c.Store = &Store{Driver: "carrier-pigeon"}
	_, _, err := c.OpenStore()
	assert.Error(t, err)

	c.Store = nil
	_, _, err = c.OpenStore()
	assert.Error(t, err)
}
