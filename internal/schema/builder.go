package schema

import (
	"strconv"
	"strings"

	"github.com/yourorg/cleangen/internal/naming"
)

const (
	fallbackClassName = "Item"
	fallbackFieldName = "field"
)

// NameTable hands out unique identifiers within one scope. A table shared by
// a Builder spans one generation batch; it is never process-wide.
type NameTable struct {
	next map[string]int
}

// NewNameTable returns an empty table.
func NewNameTable() *NameTable {
	return &NameTable{next: make(map[string]int)}
}

// Reserve returns name if it is free, otherwise name with the smallest
// numeric suffix (starting at 2) that is free. The result is taken.
func (t *NameTable) Reserve(name string) string {
	if t.next == nil {
		t.next = make(map[string]int)
	}
	if _, taken := t.next[name]; !taken {
		t.next[name] = 2
		return name
	}
	for n := t.next[name]; ; n++ {
		candidate := name + strconv.Itoa(n)
		if _, taken := t.next[candidate]; taken {
			continue
		}
		t.next[name] = n + 1
		t.next[candidate] = 2
		return candidate
	}
}

// Taken reports whether name has been handed out.
func (t *NameTable) Taken(name string) bool {
	_, ok := t.next[name]
	return ok
}

// Builder infers class trees. The zero value is ready to use and gives every
// Infer call its own name scope.
type Builder struct {
	// Names, when set, is shared by every Infer call on this builder so that
	// nested class names stay unique across a batch. Callers reserve root
	// names themselves. A shared table makes the builder unsafe for
	// concurrent use.
	Names *NameTable

	// AllowCollisions keeps derived nested class names even when they clash.
	AllowCollisions bool
}

// Infer builds a ClassSchema named rootName from a literal using a fresh
// name scope.
func Infer(literal, rootName string) (ClassSchema, error) {
	var b Builder
	return b.Infer(literal, rootName)
}

// Infer parses literal and builds the class tree rooted at rootName. The only
// failure is an error wrapping ErrNotRepresentable.
func (b *Builder) Infer(literal, rootName string) (ClassSchema, error) {
	if strings.TrimSpace(literal) == "" {
		return ClassSchema{}, notRepresentable("literal is blank")
	}
	v, err := ParseLiteral(literal)
	if err != nil {
		return ClassSchema{}, notRepresentable("malformed literal: %v", err)
	}

	root := v
	switch v.Kind {
	case KindObject:
	case KindArray:
		if len(v.Items) == 0 {
			return ClassSchema{}, notRepresentable("array literal is empty")
		}
		root = v.Items[0]
		if root.Kind != KindObject {
			return ClassSchema{}, notRepresentable("first array element is %s, not object", root.Kind)
		}
	default:
		return ClassSchema{}, notRepresentable("top-level %s literal", v.Kind)
	}

	names := b.Names
	if names == nil {
		names = NewNameTable()
		rootName = reserveClass(names, rootName)
	}
	return b.build(root, rootName, names), nil
}

func (b *Builder) build(obj Value, name string, names *NameTable) ClassSchema {
	cls := ClassSchema{Name: name}
	fields := newFieldTable()
	for _, m := range obj.Members {
		field := FieldSchema{
			Name:    fields.Reserve(fieldName(m.Key)),
			WireKey: m.Key,
		}
		v := m.Value
		switch v.Kind {
		case KindObject:
			nested := b.build(v, b.className(names, naming.ToType(m.Key)), names)
			cls.Nested = append(cls.Nested, nested)
			field.Type = ClassType(nested.Name)
		case KindArray:
			field.IsCollection = true
			if len(v.Items) == 0 {
				field.Type = PrimitiveType(Dynamic)
				break
			}
			first := v.Items[0]
			if first.Kind == KindObject {
				nested := b.build(first, b.className(names, naming.Singularize(naming.ToType(m.Key))), names)
				cls.Nested = append(cls.Nested, nested)
				field.Type = ClassType(nested.Name)
				break
			}
			field.Type = PrimitiveType(primitiveOf(first.Kind))
		case KindNull:
			field.Type = PrimitiveType(Dynamic)
			field.Nullable = true
		default:
			field.Type = PrimitiveType(primitiveOf(v.Kind))
		}
		cls.Fields = append(cls.Fields, field)
	}
	return cls
}

func (b *Builder) className(names *NameTable, derived string) string {
	if derived == "" {
		derived = fallbackClassName
	}
	if _, reserved := reservedTypes[derived]; b.AllowCollisions && !reserved {
		return derived
	}
	return reserveClass(names, derived)
}

func fieldName(key string) string {
	if name := naming.ToField(key); name != "" {
		return name
	}
	return fallbackFieldName
}

func primitiveOf(k Kind) Primitive {
	switch k {
	case KindString:
		return String
	case KindInteger:
		return Integer
	case KindDouble:
		return Double
	case KindBoolean:
		return Boolean
	default:
		return Dynamic
	}
}
