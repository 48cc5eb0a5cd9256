package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWire(t *testing.T) {
	cases := map[string]string{
		"isActive":    "is_active",
		"id":          "id",
		"expiresIn":   "expires_in",
		"getUsers":    "get_users",
		"UserProfile": "user_profile",
		"userID":      "user_id",
		"already_ok":  "already_ok",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToWire(in), "ToWire(%q)", in)
	}
}

func TestToWireKnownFidelityGaps(t *testing.T) {
	// Digits and leading separators do not survive the snake -> camel -> snake trip.
	assert.NotEqual(t, "address_1", ToWire(ToField("address_1")))
	assert.NotEqual(t, "_private", ToWire(ToField("_private")))
}

func TestToType(t *testing.T) {
	assert.Equal(t, "User", ToType("user"))
	assert.Equal(t, "LoginResponse", ToType("login_response"))
	assert.Equal(t, "ContentType", ToType("content-type"))
	assert.Equal(t, "FirstName", ToType("firstName"))
	assert.Equal(t, "", ToType(""))
}

func TestToField(t *testing.T) {
	assert.Equal(t, "isActive", ToField("is_active"))
	assert.Equal(t, "expiresIn", ToField("expires_in"))
	assert.Equal(t, "contentType", ToField("content-type"))
	assert.Equal(t, "firstname", ToField("firstName"), "first segment is lower-cased entirely")
	assert.Equal(t, "id", ToField("ID"))
}

func TestToMember(t *testing.T) {
	assert.Equal(t, "getUsers", ToMember("get_users"))
	assert.Equal(t, "getUsers", ToMember("getUsers"))
	assert.Equal(t, "login", ToMember("Login"))
}

func TestSingularize(t *testing.T) {
	assert.Equal(t, "Item", Singularize("Items"))
	assert.Equal(t, "Categorie", Singularize("Categories"))
	assert.Equal(t, "Data", Singularize("Data"))
	assert.Equal(t, "Addres", Singularize("Address"))
}

func TestWireRoundTrip(t *testing.T) {
	for _, key := range []string{"is_active", "expires_in", "id", "created_at"} {
		assert.Equal(t, key, ToWire(ToField(key)))
	}
}
