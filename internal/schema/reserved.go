package schema

// reservedTypes are class names a generated model must not take: dart:core
// types and the names the layered files refer to next to model imports.
var reservedTypes = map[string]struct{}{
	"BigInt": {}, "Comparable": {}, "DateTime": {}, "Duration": {}, "Enum": {},
	"Error": {}, "Exception": {}, "FormatException": {}, "Function": {},
	"Future": {}, "Invocation": {}, "Iterable": {}, "Iterator": {}, "List": {},
	"Map": {}, "MapEntry": {}, "Match": {}, "Never": {}, "Null": {}, "Object": {},
	"Pattern": {}, "Record": {}, "RegExp": {}, "Runes": {}, "Set": {}, "Sink": {},
	"StackTrace": {}, "Stream": {}, "String": {}, "StringBuffer": {}, "Symbol": {},
	"Type": {}, "Uri": {},

	"BaseRepository": {}, "BaseState": {}, "Body": {}, "Cubit": {},
	"DataState": {}, "Dio": {}, "Fetcher": {}, "HttpResponse": {}, "Path": {},
	"Query": {}, "RestApi": {}, "UseCase": {},
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
}

// reservedFields are Dart reserved words and members every model already has.
var reservedFields = map[string]struct{}{
	"assert": {}, "await": {}, "break": {}, "case": {}, "catch": {}, "class": {},
	"const": {}, "continue": {}, "default": {}, "do": {}, "else": {}, "enum": {},
	"extends": {}, "false": {}, "final": {}, "finally": {}, "for": {}, "if": {},
	"in": {}, "is": {}, "new": {}, "null": {}, "rethrow": {}, "return": {},
	"super": {}, "switch": {}, "this": {}, "throw": {}, "true": {}, "try": {},
	"var": {}, "void": {}, "while": {}, "with": {}, "yield": {},

	"fromJson": {}, "toJson": {}, "hashCode": {}, "runtimeType": {},
	"toString": {}, "noSuchMethod": {},
}

// reserveClass is Reserve that never hands out a reserved type name.
func reserveClass(t *NameTable, name string) string {
	if _, ok := reservedTypes[name]; ok && !t.Taken(name) {
		t.Reserve(name)
	}
	return t.Reserve(name)
}

func newFieldTable() *NameTable {
	t := NewNameTable()
	for name := range reservedFields {
		t.Reserve(name)
	}
	return t
}
