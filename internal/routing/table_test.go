package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/partyline/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable()
	require.NoError(t, table.Add("GET", "/", "index"))
	require.NoError(t, table.Add("GET", "/users/:id", "user"))
	require.NoError(t, table.Add("POST", "/users", "create_user"))
	require.NoError(t, table.Add("GET", "/static/*filepath", "static"))
	return table
}

func TestBuildPathsAndQuery(t *testing.T) {
	testlog.Start(t)
	table := newTestTable(t)
	ctx := context.Background()

	got, err := table.URLFor(ctx, "index", nil)
	require.NoError(t, err)
	assert.Equal(t, "/", got)

	got, err = table.URLFor(ctx, "user", Values{"id": "a b", "tab": "posts", "page": "2"})
	require.NoError(t, err)
	assert.Equal(t, "/users/a%20b?page=2&tab=posts", got)

	got, err = table.URLFor(ctx, "static", Values{"filepath": "/css/site.css"})
	require.NoError(t, err)
	assert.Equal(t, "/static/css/site.css", got)
}

func TestBuildUnderScriptRootAndExternal(t *testing.T) {
	testlog.Start(t)
	table := newTestTable(t)
	ctx := WithRequestInfo(context.Background(), RequestInfo{Scheme: "http", Host: "example.test:5000", ScriptRoot: "/one"})

	got, err := table.URLFor(ctx, "index", nil)
	require.NoError(t, err)
	assert.Equal(t, "/one/", got)

	got, err = table.URLFor(ctx, "user", Values{"id": "7", KeyExternal: "true"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:5000/one/users/7", got)

	got, err = table.URLFor(ctx, "user", Values{"id": "7", KeyExternal: "1", KeyScheme: "https", KeyAnchor: "bio"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test:5000/one/users/7#bio", got)
}

func TestBuildMethodOverride(t *testing.T) {
	testlog.Start(t)
	table := newTestTable(t)
	ctx := context.Background()

	got, err := table.URLFor(ctx, "create_user", Values{KeyMethod: "post"})
	require.NoError(t, err)
	assert.Equal(t, "/users", got)

	got, err = table.URLFor(ctx, "user", Values{"id": "1", KeyMethod: "HEAD"})
	require.NoError(t, err)
	assert.Equal(t, "/users/1", got)

	_, err = table.URLFor(ctx, "create_user", Values{KeyMethod: "GET"})
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "GET", buildErr.Method)
	assert.Equal(t, "method not allowed", buildErr.Reason)
}

func TestBuildMissesAreBuildErrors(t *testing.T) {
	testlog.Start(t)
	table := newTestTable(t)
	ctx := context.Background()

	_, err := table.URLFor(ctx, "nowhere", Values{"x": "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBuild))

	_, err = table.URLFor(ctx, "user", nil)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "user", buildErr.Endpoint)
	assert.Equal(t, "missing path parameters", buildErr.Reason)
}

func TestMultiplePatternsTriedInOrder(t *testing.T) {
	testlog.Start(t)
	table := NewTable()
	require.NoError(t, table.Add("GET", "/posts", "posts"))
	require.NoError(t, table.Add("GET", "/posts/page/:page", "posts"))
	require.NoError(t, table.Add("GET", "/posts", "posts"))

	assert.Len(t, table.Routes("posts"), 2)

	got, err := table.URLFor(context.Background(), "posts", Values{"page": "3"})
	require.NoError(t, err)
	assert.Equal(t, "/posts?page=3", got)
}

func TestAddRejectsInvalidRoutes(t *testing.T) {
	testlog.Start(t)
	table := NewTable()
	assert.ErrorIs(t, table.Add("GET", "users", "users"), ErrInvalidRoute)
	assert.ErrorIs(t, table.Add("GET", "/users/:", "users"), ErrInvalidRoute)
	assert.ErrorIs(t, table.Add("GET", "/files/*/tail", "files"), ErrInvalidRoute)
	assert.ErrorIs(t, table.Add("", "/users", "users"), ErrInvalidRoute)
	assert.Empty(t, table.Endpoints())
}

func TestSplitAndAttachRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Values{"id": "1", KeyMethod: "post", KeyExternal: "yes-please", KeyAnchor: "top"}

	o, rest := Split(in)
	assert.Equal(t, Values{"id": "1"}, rest)
	assert.Equal(t, "POST", o.Method())
	assert.False(t, o.External())
	assert.Equal(t, "top", o.Anchor())
	assert.Equal(t, in, o.Attach(rest))
	assert.Len(t, in, 4, "split must not mutate its input")

	empty, rest := Split(Values{"q": "x"})
	assert.True(t, empty.Empty())
	assert.Equal(t, Values{"q": "x"}, empty.Attach(rest))
}
