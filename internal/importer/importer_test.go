package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/pkg/types"
)

func TestBuildDerivesEndpoints(t *testing.T) {
	exchanges := []types.Exchange{
		{Method: "GET", Host: "api.example.com", Path: "/api/v1/users", QueryParams: map[string][]string{"page": {"2"}, "tag": {"a", "b"}}, StatusCode: 200, ResponseBody: `[{"id":1,"name":"A"}]`},
		{Method: "GET", Host: "api.example.com", Path: "/api/v1/users/42", StatusCode: 404, ResponseBody: `{"error":"nope"}`},
		{Method: "GET", Host: "api.example.com", Path: "/api/v1/users/7", StatusCode: 200, ResponseBody: `{"id":7,"name":"B"}`},
		{Method: "POST", Host: "api.example.com", Path: "/api/v1/auth/login", ContentType: "application/json", RequestBody: `{"email":"a@b.c","password":"***"}`, StatusCode: 200, ResponseBody: `{"token":"t"}`},
		{Method: "PATCH", Host: "api.example.com", Path: "/api/v1/users/7", StatusCode: 200},
		{Method: "GET", Host: "cdn.example.com", Path: "/config", StatusCode: 200, ResponseBody: `{}`},
	}

	spec, err := Build("users", exchanges, Options{Host: "api.example.com"})
	require.NoError(t, err)
	require.Len(t, spec.Endpoints, 3)

	list := spec.Endpoints[0]
	assert.Equal(t, "getUsers", list.Name)
	assert.Equal(t, "/api/v1/users", list.Path)
	assert.Equal(t, types.VerbGet, list.Verb)
	assert.Equal(t, "{\n  \"page\": 2,\n  \"tag\": [\"a\", \"b\"]\n}\n", list.Request)
	assert.Equal(t, "[\n  {\n    \"id\": 1,\n    \"name\": \"A\"\n  }\n]\n", list.Response)

	detail := spec.Endpoints[1]
	assert.Equal(t, "getUsersById", detail.Name)
	assert.Equal(t, "/api/v1/users/{id}", detail.Path)
	assert.Equal(t, "{\n  \"id\": 7\n}\n", detail.Request, "the successful sample wins")
	assert.Contains(t, detail.Response, `"name": "B"`)

	login := spec.Endpoints[2]
	assert.Equal(t, "createAuthLogin", login.Name)
	assert.Equal(t, types.VerbPost, login.Verb)
	assert.Equal(t, "{\n  \"email\": \"a@b.c\",\n  \"password\": \"***\"\n}\n", login.Request)
}

func TestBuildLiteralsInferCleanly(t *testing.T) {
	exchanges := []types.Exchange{
		{Method: "GET", Path: "/shops/3f2504e0-4f89-11d3-9a0c-0305e82c3301/orders/12", QueryParams: map[string][]string{"q": {"x y"}, "min": {"0.5"}, "all": {"true"}, "zip": {"007"}}, StatusCode: 200, ResponseBody: `{"ok":true}`},
	}
	spec, err := Build("orders", exchanges, Options{})
	require.NoError(t, err)
	ep := spec.Endpoints[0]
	assert.Equal(t, "/shops/{shopId}/orders/{orderId}", ep.Path)
	assert.Equal(t, "getShopsOrdersByOrderId", ep.Name)

	cls, err := schema.Infer(ep.Request, "P")
	require.NoError(t, err)
	want := map[string]schema.Primitive{
		"shopId":  schema.String,
		"orderId": schema.Integer,
		"all":     schema.Boolean,
		"min":     schema.Double,
		"q":       schema.String,
		"zip":     schema.String,
	}
	require.Len(t, cls.Fields, len(want))
	for _, f := range cls.Fields {
		assert.Equal(t, want[f.WireKey], f.Type.Primitive, f.WireKey)
	}
}

func TestBuildSkipsNonJSONBodies(t *testing.T) {
	exchanges := []types.Exchange{
		{Method: "PUT", Path: "/profile", RequestBody: "name=x", StatusCode: 200, ResponseBody: "<html></html>"},
		{Method: "DELETE", Path: "/profile", StatusCode: 500, ResponseBody: `{"error":"x"}`},
	}
	spec, err := Build("profile", exchanges, Options{})
	require.NoError(t, err)
	require.Len(t, spec.Endpoints, 2)
	assert.Equal(t, "updateProfile", spec.Endpoints[0].Name)
	assert.Empty(t, spec.Endpoints[0].Request)
	assert.Empty(t, spec.Endpoints[0].Response)
	assert.Equal(t, "deleteProfile", spec.Endpoints[1].Name)
	assert.Empty(t, spec.Endpoints[1].Response, "error responses are not samples")
}

func TestBuildDisambiguatesNames(t *testing.T) {
	exchanges := []types.Exchange{
		{Method: "GET", Path: "/user-list", StatusCode: 200},
		{Method: "GET", Path: "/user_list", StatusCode: 200},
		{Method: "GET", Path: "/", StatusCode: 200},
	}
	spec, err := Build("misc", exchanges, Options{})
	require.NoError(t, err)
	require.Len(t, spec.Endpoints, 3)
	assert.Equal(t, "getUserList", spec.Endpoints[0].Name)
	assert.Equal(t, "getUserList2", spec.Endpoints[1].Name)
	assert.Equal(t, "getRoot", spec.Endpoints[2].Name)
}

func TestBuildWithoutEndpoints(t *testing.T) {
	_, err := Build("empty", []types.Exchange{{Method: "HEAD", Path: "/x"}}, Options{})
	assert.True(t, errors.Is(err, feature.ErrInvalidSpec), "got %v", err)
}
