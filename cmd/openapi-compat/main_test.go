package main

import (
	"testing"

	"yatube/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec_BuiltInDocs(t *testing.T) {
	spec, err := parseSpec([]byte(docs.SwaggerInfo.ReadDoc()))
	require.NoError(t, err)

	require.Contains(t, spec.Paths, "/posts/{id}/")
	assert.Contains(t, spec.Paths["/posts/{id}/"]["get"].Responses, "404")
	assert.Contains(t, spec.Paths, "/profile/{username}/follow/")
	assert.Empty(t, compare(spec, spec))
}

func TestCompare_ReportsRemovals(t *testing.T) {
	base, err := parseSpec([]byte(`
paths:
  /groups/:
    get:
      responses:
        "200": {}
  /create/:
    post:
      responses:
        "302": {}
        "400": {}
  /gone/:
    get:
      responses:
        "200": {}
`))
	require.NoError(t, err)
	revision, err := parseSpec([]byte(`
paths:
  /groups/:
    get:
      responses:
        "200": {}
    post:
      responses:
        "201": {}
  /create/:
    post:
      responses:
        "302": {}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed path: /gone/",
		"removed response code: POST /create/ -> 400",
	}, compare(base, revision))
}

func TestParseSpec_RequiresPaths(t *testing.T) {
	_, err := parseSpec([]byte(`swagger: "2.0"`))
	assert.Error(t, err)
}
