package openapi

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/pkg/types"
)

func mustInfer(t *testing.T, literal, name string) *schema.ClassSchema {
	t.Helper()
	cls, err := schema.Infer(literal, name)
	if err != nil {
		t.Fatalf("infer %s: %v", name, err)
	}
	return &cls
}

func TestRenderAndValidate(t *testing.T) {
	ops := []Operation{
		{
			Name:     "login",
			Path:     "/auth/login",
			Verb:     types.VerbPost,
			Request:  mustInfer(t, `{"email":"a@b.c","password":"x"}`, "LoginBodyModel"),
			Response: mustInfer(t, `{"token":"t","user":{"id":1}}`, "LoginModel"),
		},
		{
			Name:    "getUser",
			Path:    "/users/{id}",
			Verb:    types.VerbGet,
			Request: mustInfer(t, `{"id":1,"expand":null}`, "GetUserParamModel"),
		},
		{Name: "logout", Path: "/auth/logout", Verb: types.VerbDelete},
	}

	data, err := Render("auth", ops)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if errs := Validate(data); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	paths := doc["paths"].(map[string]interface{})
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(paths))
	}
	login := paths["/auth/login"].(map[string]interface{})["post"].(map[string]interface{})
	if login["operationId"] != "login" {
		t.Fatalf("unexpected operationId: %v", login["operationId"])
	}
	if _, ok := login["requestBody"]; !ok {
		t.Fatalf("login should carry a request body")
	}

	get := paths["/users/{id}"].(map[string]interface{})["get"].(map[string]interface{})
	params := get["parameters"].([]interface{})
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	first := params[0].(map[string]interface{})
	if first["name"] != "id" || first["in"] != "path" {
		t.Fatalf("expected id path param, got %v", first)
	}
	second := params[1].(map[string]interface{})
	if second["name"] != "expand" || second["in"] != "query" || second["required"] != false {
		t.Fatalf("expected optional expand query param, got %v", second)
	}

	schemas := doc["components"].(map[string]interface{})["schemas"].(map[string]interface{})
	for _, name := range []string{"LoginBodyModel", "LoginModel", "User"} {
		if _, ok := schemas[name]; !ok {
			t.Fatalf("missing component %s", name)
		}
	}
	if _, ok := schemas["GetUserParamModel"]; ok {
		t.Fatalf("param models are expanded into parameters, not components")
	}
}

func TestRenderUndeclaredPathParam(t *testing.T) {
	data, err := Render("orders", []Operation{{Name: "getOrder", Path: "/orders/{orderId}", Verb: types.VerbGet}})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	get := doc["paths"].(map[string]interface{})["/orders/{orderId}"].(map[string]interface{})["get"].(map[string]interface{})
	params := get["parameters"].([]interface{})
	if len(params) != 1 || params[0].(map[string]interface{})["name"] != "orderId" {
		t.Fatalf("expected orderId path param, got %v", params)
	}
}

func TestRenderRequiresOperations(t *testing.T) {
	if _, err := Render("empty", nil); err == nil {
		t.Fatalf("expected error for empty operation list")
	}
}

func TestValidateReportsProblems(t *testing.T) {
	errs := Validate([]byte("info: {}\n"))
	if len(errs) != 2 {
		t.Fatalf("expected missing openapi and paths, got %v", errs)
	}

	dangling := []byte(`openapi: 3.0.0
paths:
  /x:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Missing'
`)
	errs = Validate(dangling)
	if len(errs) != 1 {
		t.Fatalf("expected one dangling reference, got %v", errs)
	}
}
