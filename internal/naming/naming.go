// Package naming converts between wire-style keys (snake_case, possibly
// hyphenated) and the identifiers used in generated Dart code.
package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z]+)`)

// ToWire converts a camelCase identifier to snake_case.
//
// It is not an exact inverse of ToField: keys with digits next to letters,
// acronyms or leading/trailing separators do not round-trip.
func ToWire(id string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(id, "${1}_${2}"))
}

// ToType builds an UpperCamel type name from a wire key.
func ToType(id string) string {
	var b strings.Builder
	for _, seg := range split(id) {
		b.WriteString(upperFirst(seg))
	}
	return b.String()
}

// ToField builds a lowerCamel field name from a wire key. The first segment
// is lower-cased entirely.
func ToField(id string) string {
	segs := split(id)
	if len(segs) == 0 {
		return id
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(segs[0]))
	for _, seg := range segs[1:] {
		b.WriteString(upperFirst(seg))
	}
	return b.String()
}

// ToMember is ToType with a lower-case first letter. Inner casing is kept, so
// both "get_users" and "getUsers" become "getUsers".
func ToMember(id string) string {
	return lowerFirst(ToType(id))
}

// Singularize strips one trailing "s". No other plural forms are handled.
func Singularize(id string) string {
	return strings.TrimSuffix(id, "s")
}

func split(id string) []string {
	return strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
