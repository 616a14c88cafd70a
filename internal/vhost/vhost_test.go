package vhost

import (
	"regexp"
	"testing"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *mapping.Tree {
	t := mapping.NewTree()
	virtual := &mapping.Rule{
		Scheme: "http", Host: "virtual.host.com", Port: 80,
		Kind: mapping.KindInternal, Target: "/content/virtual",
	}
	external := &mapping.Rule{
		Scheme: "http", Host: "gone.host.com", Port: 80,
		Kind: mapping.KindExternal, Target: "https://www.host.com",
	}
	patterns := &mapping.Rule{Scheme: "http", Host: "www.example.com", Port: 80}
	patterns.Children = []*mapping.Rule{
		{
			Scheme: "http", Host: "www.example.com", Port: 80,
			Kind: mapping.KindInternal, Target: "/content/users/$1",
			Pattern: regexp.MustCompile(`user/([^/.]+)`),
		},
		{
			Scheme: "http", Host: "www.example.com", Port: 80,
			Kind: mapping.KindInternal, Target: "/content/exact",
			Pattern: regexp.MustCompile(`virtual$`),
		},
	}
	t.Schemes["http"] = &mapping.SchemeNode{Hosts: map[string]*mapping.Rule{
		"virtual.host.com.80": virtual,
		"gone.host.com.80":    external,
		"www.example.com.80":  patterns,
	}}
	return t
}

func TestRewriteInboundHostRule(t *testing.T) {
	red, ok := RewriteInbound(testTree(), "http", "virtual.host.com", 80, "/index.html")
	require.True(t, ok)
	assert.False(t, red.External)
	assert.Equal(t, "/content/virtual/index.html", red.Path)
}

func TestRewriteInboundNoRule(t *testing.T) {
	_, ok := RewriteInbound(testTree(), "http", "unknown.host", 80, "/index.html")
	assert.False(t, ok)
}

func TestRewriteInboundExternal(t *testing.T) {
	red, ok := RewriteInbound(testTree(), "http", "gone.host.com", 80, "/index.html")
	require.True(t, ok)
	assert.True(t, red.External)
	assert.Equal(t, "https://www.host.com/index.html", red.Path)
}

func TestRewriteInboundPatternBackref(t *testing.T) {
	red, ok := RewriteInbound(testTree(), "http", "www.example.com", 80, "/user/alice.html")
	require.True(t, ok)
	assert.Equal(t, "/content/users/alice.html", red.Path)
}

func TestRewriteInboundEndAnchor(t *testing.T) {
	red, ok := RewriteInbound(testTree(), "http", "www.example.com", 80, "/virtual")
	require.True(t, ok)
	assert.Equal(t, "/content/exact", red.Path)

	// The anchor keeps the rule off longer paths.
	_, ok = RewriteInbound(testTree(), "http", "www.example.com", 80, "/virtual/below")
	assert.False(t, ok)
}

func TestRewriteInboundPatternMustMatchAtStart(t *testing.T) {
	_, ok := RewriteInbound(testTree(), "http", "www.example.com", 80, "/deep/user/alice")
	assert.False(t, ok)
}

func TestRewriteInboundChildBeatsOwnTarget(t *testing.T) {
	tree := mapping.NewTree()
	host := &mapping.Rule{
		Scheme: "http", Host: "h", Port: 80,
		Kind: mapping.KindInternal, Target: "/fallback",
		Children: []*mapping.Rule{{
			Scheme: "http", Host: "h", Port: 80,
			Kind: mapping.KindInternal, Target: "/special",
			Pattern: regexp.MustCompile(`^special`),
		}},
	}
	tree.Schemes["http"] = &mapping.SchemeNode{Hosts: map[string]*mapping.Rule{"h.80": host}}

	red, ok := RewriteInbound(tree, "http", "h", 80, "/special/page")
	require.True(t, ok)
	assert.Equal(t, "/special/page", red.Path)

	red, ok = RewriteInbound(tree, "http", "h", 80, "/other")
	require.True(t, ok)
	assert.Equal(t, "/fallback/other", red.Path)
}

func TestRewriteInboundFirstChildWins(t *testing.T) {
	tree := mapping.NewTree()
	host := &mapping.Rule{Scheme: "http", Host: "h", Port: 80}
	host.Children = []*mapping.Rule{
		{Kind: mapping.KindInternal, Target: "/first", Pattern: regexp.MustCompile(`page`)},
		{Kind: mapping.KindInternal, Target: "/second", Pattern: regexp.MustCompile(`page`)},
	}
	tree.Schemes["http"] = &mapping.SchemeNode{Hosts: map[string]*mapping.Rule{"h.80": host}}

	red, ok := RewriteInbound(tree, "http", "h", 80, "/page")
	require.True(t, ok)
	assert.Equal(t, "/first", red.Path)
}

func TestInternalTargetReducesURLForm(t *testing.T) {
	tree := mapping.NewTree()
	host := &mapping.Rule{
		Scheme: "http", Host: "h", Port: 80,
		Kind: mapping.KindInternal, Target: "http://localhost:8080/content/sub",
	}
	tree.Schemes["http"] = &mapping.SchemeNode{Hosts: map[string]*mapping.Rule{"h.80": host}}

	red, ok := RewriteInbound(tree, "http", "h", 80, "/x")
	require.True(t, ok)
	assert.Equal(t, "/content/sub/x", red.Path)
}

func outboundFixture() []mapping.OutboundEntry {
	mkRule := func(host string) *mapping.Rule {
		return &mapping.Rule{Scheme: "http", Host: host, Port: 80, Kind: mapping.KindInternal}
	}
	return []mapping.OutboundEntry{
		{Prefix: "/content/virtual", ExtPath: "", Rule: mkRule("virtual.host.com")},
		{Prefix: "/content/virtual/sub", ExtPath: "/s", Rule: mkRule("sub.host.com")},
		{Prefix: "/content/corp", ExtPath: "", Rule: mkRule("www.example.com")},
		{Prefix: "/content/corp", ExtPath: "", Rule: mkRule("mirror.example.com")},
	}
}

func TestSelectOutboundLongestPrefix(t *testing.T) {
	e, rest, ok := SelectOutbound(outboundFixture(), nil, "/content/virtual/sub/page.html")
	require.True(t, ok)
	assert.Equal(t, "/content/virtual/sub", e.Prefix)
	assert.Equal(t, "/page.html", rest)
}

func TestSelectOutboundSegmentBoundary(t *testing.T) {
	// "/content/virtualx" must not match the "/content/virtual" prefix.
	_, _, ok := SelectOutbound(outboundFixture(), nil, "/content/virtualx")
	assert.False(t, ok)

	// Decoration directly after the prefix is fine.
	e, rest, ok := SelectOutbound(outboundFixture(), nil, "/content/virtual.html")
	require.True(t, ok)
	assert.Equal(t, "/content/virtual", e.Prefix)
	assert.Equal(t, ".html", rest)
}

func TestSelectOutboundPrefersRequestContext(t *testing.T) {
	ctx := &api.RequestContext{Scheme: "http", Host: "mirror.example.com", Port: 80}
	e, _, ok := SelectOutbound(outboundFixture(), ctx, "/content/corp/about")
	require.True(t, ok)
	assert.Equal(t, "mirror.example.com", e.Rule.Host)

	// Without a matching context, configuration order decides.
	e, _, ok = SelectOutbound(outboundFixture(), nil, "/content/corp/about")
	require.True(t, ok)
	assert.Equal(t, "www.example.com", e.Rule.Host)
}

func TestSelectOutboundNoMatch(t *testing.T) {
	_, _, ok := SelectOutbound(outboundFixture(), nil, "/elsewhere")
	assert.False(t, ok)
}

func TestRuleURL(t *testing.T) {
	r := &mapping.Rule{Scheme: "http", Host: "h.example.com", Port: 80}
	assert.Equal(t, "http://h.example.com", r.URL())
	r.Port = 8080
	assert.Equal(t, "http://h.example.com:8080", r.URL())
	r = &mapping.Rule{Scheme: "https", Host: "s.example.com", Port: 443}
	assert.Equal(t, "https://s.example.com", r.URL())
}
