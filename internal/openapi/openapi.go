// Package openapi renders an OpenAPI 3.0 document for a generated feature.
package openapi

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/pkg/types"
)

// Operation is one endpoint with its inferred models. Request and Response
// are nil when the endpoint has no usable literal.
type Operation struct {
	Name     string
	Path     string
	Verb     types.Verb
	Request  *schema.ClassSchema
	Response *schema.ClassSchema
}

var pathParam = regexp.MustCompile(`\{([^{}]+)\}`)

// Render builds the document. Models land in components/schemas and
// operations reference them with $ref.
func Render(title string, ops []Operation) ([]byte, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations to render")
	}

	doc := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":   title,
			"version": "1.0.0",
		},
	}
	paths := map[string]interface{}{}
	components := map[string]interface{}{}

	for _, op := range ops {
		pathItem, ok := paths[op.Path].(map[string]interface{})
		if !ok {
			pathItem = map[string]interface{}{}
			paths[op.Path] = pathItem
		}
		item := map[string]interface{}{
			"operationId": op.Name,
			"tags":        []string{title},
		}

		params := make([]map[string]interface{}, 0)
		declared := map[string]struct{}{}
		if op.Request != nil && !op.Verb.CarriesBody() {
			for _, nested := range op.Request.Nested {
				addComponents(components, nested)
			}
			for _, f := range op.Request.Fields {
				in := "query"
				if strings.Contains(op.Path, "{"+wireKey(f)+"}") {
					in = "path"
				}
				declared[wireKey(f)] = struct{}{}
				params = append(params, map[string]interface{}{
					"name":     wireKey(f),
					"in":       in,
					"required": in == "path" || !f.Nullable,
					"schema":   fieldSchema(f),
				})
			}
		}
		for _, m := range pathParam.FindAllStringSubmatch(op.Path, -1) {
			if _, ok := declared[m[1]]; ok {
				continue
			}
			declared[m[1]] = struct{}{}
			params = append(params, map[string]interface{}{
				"name":     m[1],
				"in":       "path",
				"required": true,
				"schema":   map[string]interface{}{"type": "string"},
			})
		}
		if len(params) > 0 {
			item["parameters"] = params
		}

		if op.Request != nil && op.Verb.CarriesBody() {
			addComponents(components, *op.Request)
			item["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": ref(op.Request.Name),
					},
				},
			}
		}

		resp := map[string]interface{}{"description": "OK"}
		if op.Response != nil {
			addComponents(components, *op.Response)
			resp["content"] = map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": ref(op.Response.Name),
				},
			}
		}
		item["responses"] = map[string]interface{}{"200": resp}

		pathItem[strings.ToLower(string(op.Verb))] = item
	}

	doc["paths"] = paths
	if len(components) > 0 {
		doc["components"] = map[string]interface{}{"schemas": components}
	}
	return yaml.Marshal(doc)
}

// addComponents registers cls and every class it owns.
func addComponents(components map[string]interface{}, cls schema.ClassSchema) {
	for _, nested := range cls.Nested {
		addComponents(components, nested)
	}
	props := map[string]interface{}{}
	var required []string
	for _, f := range cls.Fields {
		props[wireKey(f)] = fieldSchema(f)
		if !f.Nullable {
			required = append(required, wireKey(f))
		}
	}
	obj := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	components[cls.Name] = obj
}

func fieldSchema(f schema.FieldSchema) map[string]interface{} {
	var item map[string]interface{}
	if f.Type.IsClass() {
		item = ref(f.Type.Class)
	} else {
		item = primitiveSchema(f.Type.Primitive)
	}
	if f.IsCollection {
		item = map[string]interface{}{"type": "array", "items": item}
	}
	if f.Nullable && !f.Type.IsClass() {
		item["nullable"] = true
	}
	return item
}

func primitiveSchema(p schema.Primitive) map[string]interface{} {
	switch p {
	case schema.String:
		return map[string]interface{}{"type": "string"}
	case schema.Integer:
		return map[string]interface{}{"type": "integer", "format": "int64"}
	case schema.Double:
		return map[string]interface{}{"type": "number", "format": "double"}
	case schema.Boolean:
		return map[string]interface{}{"type": "boolean"}
	default:
		// any type
		return map[string]interface{}{}
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func wireKey(f schema.FieldSchema) string {
	if f.WireKey != "" {
		return f.WireKey
	}
	return f.Name
}

// Validate performs basic structural checks on a rendered document.
func Validate(data []byte) []string {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{err.Error()}
	}
	var errs []string
	if _, ok := doc["openapi"]; !ok {
		errs = append(errs, "missing openapi field")
	}
	paths, ok := doc["paths"].(map[string]interface{})
	if !ok || len(paths) == 0 {
		errs = append(errs, "missing or empty paths")
		return errs
	}
	var schemas map[string]interface{}
	if c, ok := doc["components"].(map[string]interface{}); ok {
		schemas, _ = c["schemas"].(map[string]interface{})
	}
	for p, v := range paths {
		item, ok := v.(map[string]interface{})
		if !ok {
			errs = append(errs, fmt.Sprintf("invalid path item for %s", p))
			continue
		}
		for method, op := range item {
			for _, r := range refs(op) {
				name := strings.TrimPrefix(r, "#/components/schemas/")
				if _, ok := schemas[name]; !ok {
					errs = append(errs, fmt.Sprintf("%s %s: dangling reference %s", method, p, r))
				}
			}
		}
	}
	return errs
}

func refs(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if s, ok := child.(string); ok && k == "$ref" {
				out = append(out, s)
				continue
			}
			out = append(out, refs(child)...)
		}
	case []interface{}:
		for _, child := range t {
			out = append(out, refs(child)...)
		}
	}
	return out
}
