package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind tags the arm of a parsed literal value.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindInteger
	KindDouble
	KindBoolean
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a parsed literal. Only the fields matching Kind are set.
type Value struct {
	Kind    Kind
	Members []Member
	Items   []Value
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value Value
}

// maxDepth bounds object and array nesting, matching encoding/json.
const maxDepth = 10000

// ParseLiteral decodes a single JSON document keeping object key order.
// Repeated keys keep the position of their first occurrence and the value of
// the last one.
func ParseLiteral(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("trailing data after literal")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, fmt.Errorf("literal nested deeper than %d levels", maxDepth)
		}
		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Value{Kind: KindNull}, nil
	case bool:
		return Value{Kind: KindBoolean}, nil
	case string:
		return Value{Kind: KindString}, nil
	case json.Number:
		return Value{Kind: numberKind(t)}, nil
	default:
		return Value{Kind: KindUnknown}, nil
	}
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	obj := Value{Kind: KindObject}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T", tok)
		}
		v, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		if i, ok := index[key]; ok {
			obj.Members[i].Value = v
			continue
		}
		index[key] = len(obj.Members)
		obj.Members = append(obj.Members, Member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	arr := Value{Kind: KindArray}
	for dec.More() {
		v, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		arr.Items = append(arr.Items, v)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return arr, nil
}

// numberKind classifies a number literal. A fraction or exponent makes it a
// double; whole numbers outside the int64 range have no integer type.
func numberKind(n json.Number) Kind {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return KindDouble
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return KindUnknown
	}
	return KindInteger
}
