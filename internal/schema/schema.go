// Package schema infers a typed class tree from a sample JSON literal.
package schema

import (
	"errors"
	"fmt"
)

// Primitive is the tag of a non-class field type.
type Primitive string

const (
	String  Primitive = "string"
	Integer Primitive = "integer"
	Double  Primitive = "double"
	Boolean Primitive = "boolean"
	Dynamic Primitive = "dynamic"
)

// TypeRef is either a primitive or the name of a nested class.
type TypeRef struct {
	Primitive Primitive
	Class     string
}

// PrimitiveType returns a TypeRef for p.
func PrimitiveType(p Primitive) TypeRef { return TypeRef{Primitive: p} }

// ClassType returns a TypeRef pointing at a nested class.
func ClassType(name string) TypeRef { return TypeRef{Class: name} }

// IsClass reports whether t references a nested class.
func (t TypeRef) IsClass() bool { return t.Class != "" }

func (t TypeRef) String() string {
	if t.IsClass() {
		return t.Class
	}
	return string(t.Primitive)
}

// FieldSchema is one field of a class. WireKey is the key as it appeared in
// the literal; Name is its lowerCamel form.
type FieldSchema struct {
	Name         string
	WireKey      string
	Type         TypeRef
	Nullable     bool
	IsCollection bool
}

// ClassSchema is a class with its fields and the classes it exclusively owns.
type ClassSchema struct {
	Name   string
	Fields []FieldSchema
	Nested []ClassSchema
}

// Field returns the field named name.
func (c ClassSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// NestedClass returns the direct nested class named name.
func (c ClassSchema) NestedClass(name string) (ClassSchema, bool) {
	for _, n := range c.Nested {
		if n.Name == name {
			return n, true
		}
	}
	return ClassSchema{}, false
}

// ErrNotRepresentable means the literal carries no usable type information.
var ErrNotRepresentable = errors.New("literal is not representable")

// NotRepresentableError explains why a literal was rejected.
type NotRepresentableError struct {
	Reason string
}

func (e *NotRepresentableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotRepresentable, e.Reason)
}

func (e *NotRepresentableError) Unwrap() error { return ErrNotRepresentable }

func notRepresentable(format string, args ...any) error {
	return &NotRepresentableError{Reason: fmt.Sprintf(format, args...)}
}
