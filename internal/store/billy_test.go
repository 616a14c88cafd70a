package store

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billyFixture(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/content/page", 0o755))
	require.NoError(t, fs.MkdirAll("/content/other", 0o755))
	require.NoError(t, util.WriteFile(fs, "/content/_props.json",
		[]byte(`{"type": "pw:folder", "order": ["page"]}`), 0o644))
	require.NoError(t, util.WriteFile(fs, "/content/page/_props.json",
		[]byte(`{"type": "pw:page",
		         "capabilities": ["pw:VanityPath"],
		         "properties": {"pw:alias": ["seite"], "pw:vanityPath": "/shortcut"}}`), 0o644))
	require.NoError(t, util.WriteFile(fs, "/content/page/body.txt",
		[]byte("hello"), 0o644))
	return fs
}

func TestBillyStore_GetNode(t *testing.T) {
	s := NewBillyStore(billyFixture(t))
	ctx := context.Background()

	page, err := s.GetNode(ctx, "/content/page")
	require.NoError(t, err)
	assert.Equal(t, "pw:page", page.Type)
	assert.True(t, page.HasCapability("pw:VanityPath"))
	assert.Equal(t, []string{"seite"}, page.PropertyValues("pw:alias"))
	assert.Empty(t, page.Children, "plain files are not child nodes")

	content, err := s.GetNode(ctx, "/content")
	require.NoError(t, err)
	assert.Equal(t, []string{"page", "other"}, content.Children, "declared order first")

	other, err := s.GetNode(ctx, "/content/other")
	require.NoError(t, err)
	assert.Equal(t, "pw:folder", other.Type, "sidecar-less directory gets the default type")
}

func TestBillyStore_MissingAndFile(t *testing.T) {
	s := NewBillyStore(billyFixture(t))
	ctx := context.Background()

	_, err := s.GetNode(ctx, "/nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetNode(ctx, "/content/page/body.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBillyStore_Walk(t *testing.T) {
	s := NewBillyStore(billyFixture(t))

	var visited []string
	err := s.Walk(context.Background(), "/content", func(n *Node) error {
		visited = append(visited, n.Path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/content", "/content/page", "/content/other"}, visited)
}
