package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeDoc = `{
  "content": {
    ".type": "pw:folder",
    ".order": ["second", "first"],
    "first": {
      ".type": "pw:page",
      ".caps": ["pw:VanityPath"],
      ".props": {
        "pw:vanityPath": ["/shortcut", "/go"],
        "pw:vanityOrder": "100"
      }
    },
    "second": {
      ".props": {"pw:alias": "zweite"}
    },
    "third": {}
  }
}`

func TestLoadJSON(t *testing.T) {
	s, err := LoadJSON([]byte(treeDoc))
	require.NoError(t, err)
	ctx := context.Background()

	content, err := s.GetNode(ctx, "/content")
	require.NoError(t, err)
	assert.Equal(t, "pw:folder", content.Type)
	// .order first, remaining children name-sorted.
	assert.Equal(t, []string{"second", "first", "third"}, content.Children)

	first, err := s.GetNode(ctx, "/content/first")
	require.NoError(t, err)
	assert.Equal(t, "pw:page", first.Type)
	assert.True(t, first.HasCapability("pw:VanityPath"))
	assert.Equal(t, []string{"/shortcut", "/go"}, first.PropertyValues("pw:vanityPath"))

	second, err := s.GetNode(ctx, "/content/second")
	require.NoError(t, err)
	assert.Equal(t, "pw:folder", second.Type, "default type")
	assert.Equal(t, []string{"zweite"}, second.PropertyValues("pw:alias"))
}

func TestLoadJSONRejectsNonObject(t *testing.T) {
	_, err := LoadJSON([]byte(`[1, 2, 3]`))
	require.Error(t, err)

	_, err = LoadJSON([]byte(`{"a": "not an object"}`))
	require.Error(t, err)
}

func TestLoadJSONIntoOrdering(t *testing.T) {
	var paths []string
	err := LoadJSONInto([]byte(treeDoc), func(n *Node) error {
		paths = append(paths, n.Path)
		return nil
	})
	require.NoError(t, err)
	// Parents before children, siblings in declared order.
	assert.Equal(t, []string{
		"/content",
		"/content/second",
		"/content/first",
		"/content/third",
	}, paths)
}
