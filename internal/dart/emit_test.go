package dart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/schema"
)

func mustInfer(t *testing.T, literal, root string) schema.ClassSchema {
	t.Helper()
	cls, err := schema.Infer(literal, root)
	require.NoError(t, err)
	return cls
}

func TestEmitFlatClass(t *testing.T) {
	cls := mustInfer(t, `{"id":1,"name":"John Doe","is_active":true}`, "User")
	got := Emit(cls, "", Options{})

	want := `class User {
  final int id;
  final String name;
  final bool isActive;

  User({
    required this.id,
    required this.name,
    required this.isActive,
  });

  factory User.fromJson(Map<String, dynamic> json) {
    return User(
      id: json['id'] as int? ?? 0,
      name: json['name'] as String? ?? '',
      isActive: json['is_active'] as bool? ?? false,
    );
  }

  Map<String, dynamic> toJson() {
    return {
      'id': id,
      'name': name,
      'is_active': isActive,
    };
  }
}
`
	assert.Equal(t, want, got)
	assert.Equal(t, "is_active", naming.ToWire(naming.ToField("is_active")))
}

func TestEmitEmptyClass(t *testing.T) {
	cls := mustInfer(t, "{}", "X")
	got := Emit(cls, "", Options{})

	want := `class X {
  X();

  factory X.fromJson(Map<String, dynamic> json) {
    return X();
  }

  Map<String, dynamic> toJson() {
    return {};
  }
}
`
	assert.Equal(t, want, got)
}

func TestEmitNestedClassesComeFirst(t *testing.T) {
	literal := `{"token":"x","user":{"id":1,"name":"A"},"expires_in":3600}`
	cls := mustInfer(t, literal, "LoginResponse")
	got := Emit(cls, literal, Options{})

	userAt := strings.Index(got, "class User {")
	docAt := strings.Index(got, "/// Generated from JSON:")
	rootAt := strings.Index(got, "class LoginResponse {")
	require.True(t, userAt >= 0 && docAt >= 0 && rootAt >= 0, got)
	assert.Less(t, userAt, docAt)
	assert.Less(t, docAt, rootAt)
	assert.Contains(t, got, "}\n\n/// Generated from JSON:\n/// ```json\n/// "+literal+"\n/// ```\nclass LoginResponse {\n")

	assert.Contains(t, got, "  final User user;\n")
	assert.Contains(t, got, "  final int expiresIn;\n")
	assert.Contains(t, got, "      user: json['user'] != null\n          ? User.fromJson(json['user'])\n          : throw const FormatException('Missing required field: user'),\n")
	assert.Contains(t, got, "      'user': user.toJson(),\n")
	assert.Contains(t, got, "      expiresIn: json['expires_in'] as int? ?? 0,\n")
}

func TestEmitCollections(t *testing.T) {
	literal := `[{"id":1,"price":99.99,"tags":["electronics"],"variants":[{"sku":"a"}],"extra":[],"note":null}]`
	cls := mustInfer(t, literal, "Product")
	got := Emit(cls, "", Options{})

	assert.Contains(t, got, "  final double price;\n")
	assert.Contains(t, got, "  final List<String> tags;\n")
	assert.Contains(t, got, "  final List<Variant> variants;\n")
	assert.Contains(t, got, "  final List<dynamic> extra;\n")
	assert.Contains(t, got, "  final dynamic? note;\n")

	assert.Contains(t, got, "    this.note,\n")
	assert.NotContains(t, got, "required this.note")

	assert.Contains(t, got, "      price: (json['price'] as num?)?.toDouble() ?? 0.0,\n")
	assert.Contains(t, got, "      tags: json['tags'] != null\n          ? List<String>.from(json['tags'])\n          : [],\n")
	assert.Contains(t, got, "      variants: json['variants'] != null\n          ? (json['variants'] as List).map((e) => Variant.fromJson(e)).toList()\n          : [],\n")
	assert.Contains(t, got, "      extra: json['extra'] != null\n          ? List<dynamic>.from(json['extra'])\n          : [],\n")
	assert.Contains(t, got, "      note: json['note'],\n")

	assert.Contains(t, got, "      'variants': variants.map((e) => e.toJson()).toList(),\n")
	assert.Contains(t, got, "      'tags': tags,\n")
	assert.Contains(t, got, "      'note': note,\n")
}

func TestEmitNullableShapes(t *testing.T) {
	cls := schema.ClassSchema{
		Name: "Opt",
		Fields: []schema.FieldSchema{
			{Name: "child", WireKey: "child", Type: schema.ClassType("Child"), Nullable: true},
			{Name: "children", WireKey: "children", Type: schema.ClassType("Child"), Nullable: true, IsCollection: true},
			{Name: "label", WireKey: "label", Type: schema.PrimitiveType(schema.String), Nullable: true},
		},
		Nested: []schema.ClassSchema{{Name: "Child"}},
	}
	got := Emit(cls, "", Options{})

	assert.Contains(t, got, "  final Child? child;\n")
	assert.Contains(t, got, "  final List<Child>? children;\n")
	assert.Contains(t, got, "          ? Child.fromJson(json['child'])\n          : null,\n")
	assert.Contains(t, got, "          : null,\n")
	assert.Contains(t, got, "      label: json['label'] as String?,\n")
	assert.Contains(t, got, "      'child': child?.toJson(),\n")
	assert.Contains(t, got, "      'children': children?.map((e) => e.toJson()).toList(),\n")
}

func TestEmitWireKeys(t *testing.T) {
	cls := mustInfer(t, `{"address_1":"x","userID":2,"it's":true}`, "Keys")

	preserved := Emit(cls, "", Options{})
	assert.Contains(t, preserved, "json['address_1']")
	assert.Contains(t, preserved, "json['userID']")
	assert.Contains(t, preserved, `json['it\'s']`)

	legacy := Emit(cls, "", Options{LegacyWireKeys: true})
	assert.Contains(t, legacy, "json['address1']")
	assert.Contains(t, legacy, "json['userid']")
	assert.NotContains(t, legacy, "json['address_1']")
}

func TestEmitLiteralDocIsVerbatim(t *testing.T) {
	literal := "{\n  \"a\": 1,\n\n  \"b\": \"x\"\n}\n"
	cls := mustInfer(t, literal, "Doc")
	got := Emit(cls, literal, Options{})
	assert.True(t, strings.HasPrefix(got, "/// Generated from JSON:\n/// ```json\n/// {\n///   \"a\": 1,\n///\n///   \"b\": \"x\"\n/// }\n/// ```\nclass Doc {\n"), got)
}

func TestEmitIsDeterministic(t *testing.T) {
	literal := `{"a":{"b":[{"c":1.5}]},"d":[true],"e":null}`
	first := Emit(mustInfer(t, literal, "R"), literal, Options{})
	second := Emit(mustInfer(t, literal, "R"), literal, Options{})
	assert.Equal(t, first, second)
}
