// Package dart renders inferred class trees as Dart model classes with
// fromJson/toJson methods.
package dart

import (
	"fmt"
	"strings"

	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/schema"
)

// Options tunes class emission.
type Options struct {
	// LegacyWireKeys derives JSON keys from the field name (snake_case of the
	// lowerCamel name) instead of using the key seen in the literal.
	LegacyWireKeys bool
}

// Emit renders cls, its nested classes first. A non-blank literal is
// reproduced as a doc comment above the root class.
func Emit(cls schema.ClassSchema, literal string, opts Options) string {
	b := &strings.Builder{}
	emitClass(b, cls, literal, opts)
	return b.String()
}

func emitClass(b *strings.Builder, cls schema.ClassSchema, literal string, opts Options) {
	for _, nested := range cls.Nested {
		emitClass(b, nested, "", opts)
		b.WriteString("\n")
	}

	if strings.TrimSpace(literal) != "" {
		writeLiteralDoc(b, literal)
	}

	fmt.Fprintf(b, "class %s {\n", cls.Name)
	for _, f := range cls.Fields {
		fmt.Fprintf(b, "  final %s%s %s;\n", TypeName(f), nullSuffix(f), f.Name)
	}
	if len(cls.Fields) > 0 {
		b.WriteString("\n")
	}

	writeConstructor(b, cls)
	b.WriteString("\n")
	writeFromJSON(b, cls, opts)
	b.WriteString("\n")
	writeToJSON(b, cls, opts)
	b.WriteString("}\n")
}

func writeLiteralDoc(b *strings.Builder, literal string) {
	b.WriteString("/// Generated from JSON:\n")
	b.WriteString("/// ```json\n")
	for _, line := range strings.Split(strings.TrimRight(literal, "\r\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			b.WriteString("///\n")
			continue
		}
		fmt.Fprintf(b, "/// %s\n", line)
	}
	b.WriteString("/// ```\n")
}

func writeConstructor(b *strings.Builder, cls schema.ClassSchema) {
	if len(cls.Fields) == 0 {
		fmt.Fprintf(b, "  %s();\n", cls.Name)
		return
	}
	fmt.Fprintf(b, "  %s({\n", cls.Name)
	for _, f := range cls.Fields {
		required := "required "
		if f.Nullable {
			required = ""
		}
		fmt.Fprintf(b, "    %sthis.%s,\n", required, f.Name)
	}
	b.WriteString("  });\n")
}

func writeFromJSON(b *strings.Builder, cls schema.ClassSchema, opts Options) {
	fmt.Fprintf(b, "  factory %s.fromJson(Map<String, dynamic> json) {\n", cls.Name)
	if len(cls.Fields) == 0 {
		fmt.Fprintf(b, "    return %s();\n", cls.Name)
		b.WriteString("  }\n")
		return
	}
	fmt.Fprintf(b, "    return %s(\n", cls.Name)
	for _, f := range cls.Fields {
		key := fmt.Sprintf("json[%s]", Quote(wireKey(f, opts)))
		switch {
		case f.IsCollection && f.Type.IsClass():
			fmt.Fprintf(b, "      %s: %s != null\n", f.Name, key)
			fmt.Fprintf(b, "          ? (%s as List).map((e) => %s.fromJson(e)).toList()\n", key, f.Type.Class)
			fmt.Fprintf(b, "          : %s,\n", absentCollection(f))
		case f.IsCollection:
			fmt.Fprintf(b, "      %s: %s != null\n", f.Name, key)
			fmt.Fprintf(b, "          ? List<%s>.from(%s)\n", primitiveType(f.Type.Primitive), key)
			fmt.Fprintf(b, "          : %s,\n", absentCollection(f))
		case f.Type.IsClass():
			fmt.Fprintf(b, "      %s: %s != null\n", f.Name, key)
			fmt.Fprintf(b, "          ? %s.fromJson(%s)\n", f.Type.Class, key)
			if f.Nullable {
				b.WriteString("          : null,\n")
			} else {
				fmt.Fprintf(b, "          : throw const FormatException('Missing required field: %s'),\n", f.Name)
			}
		default:
			fmt.Fprintf(b, "      %s: %s,\n", f.Name, readPrimitive(f, key))
		}
	}
	b.WriteString("    );\n")
	b.WriteString("  }\n")
}

func writeToJSON(b *strings.Builder, cls schema.ClassSchema, opts Options) {
	b.WriteString("  Map<String, dynamic> toJson() {\n")
	if len(cls.Fields) == 0 {
		b.WriteString("    return {};\n")
		b.WriteString("  }\n")
		return
	}
	b.WriteString("    return {\n")
	for _, f := range cls.Fields {
		key := Quote(wireKey(f, opts))
		switch {
		case f.IsCollection && f.Type.IsClass():
			fmt.Fprintf(b, "      %s: %s%s.map((e) => e.toJson()).toList(),\n", key, f.Name, nullSuffix(f))
		case f.Type.IsClass() && !f.IsCollection:
			fmt.Fprintf(b, "      %s: %s%s.toJson(),\n", key, f.Name, nullSuffix(f))
		default:
			fmt.Fprintf(b, "      %s: %s,\n", key, f.Name)
		}
	}
	b.WriteString("    };\n")
	b.WriteString("  }\n")
}

// readPrimitive reads a scalar field, casting to its declared type and
// substituting the type's zero value when a required key is absent.
func readPrimitive(f schema.FieldSchema, key string) string {
	p := f.Type.Primitive
	var expr string
	switch p {
	case schema.Dynamic:
		return key
	case schema.Double:
		expr = fmt.Sprintf("(%s as num?)?.toDouble()", key)
	default:
		expr = fmt.Sprintf("%s as %s?", key, primitiveType(p))
	}
	if def, ok := defaultValue(p); ok && !f.Nullable {
		expr += " ?? " + def
	}
	return expr
}

// TypeName is the Dart type of f without the nullability marker.
func TypeName(f schema.FieldSchema) string {
	t := f.Type.Class
	if !f.Type.IsClass() {
		t = primitiveType(f.Type.Primitive)
	}
	if f.IsCollection {
		return "List<" + t + ">"
	}
	return t
}

func primitiveType(p schema.Primitive) string {
	switch p {
	case schema.String:
		return "String"
	case schema.Integer:
		return "int"
	case schema.Double:
		return "double"
	case schema.Boolean:
		return "bool"
	default:
		return "dynamic"
	}
}

func defaultValue(p schema.Primitive) (string, bool) {
	switch p {
	case schema.String:
		return "''", true
	case schema.Integer:
		return "0", true
	case schema.Double:
		return "0.0", true
	case schema.Boolean:
		return "false", true
	default:
		return "", false
	}
}

func absentCollection(f schema.FieldSchema) string {
	if f.Nullable {
		return "null"
	}
	return "[]"
}

// nullSuffix marks optional declarations and null-aware member access.
func nullSuffix(f schema.FieldSchema) string {
	if f.Nullable {
		return "?"
	}
	return ""
}

func wireKey(f schema.FieldSchema, opts Options) string {
	if opts.LegacyWireKeys || f.WireKey == "" {
		return naming.ToWire(f.Name)
	}
	return f.WireKey
}

var dartEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `$`, `\$`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// Quote renders s as a single-quoted Dart string literal.
func Quote(s string) string {
	return "'" + dartEscaper.Replace(s) + "'"
}
