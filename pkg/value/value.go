// Package value models the fully-merged inventory parameter tree that the
// class-hierarchy evaluator produces: an arbitrarily nested map/list/scalar
// structure consumed by dotted-key name throughout Commodore. It replaces
// the dynamic attribute access of the Python original with a small tagged
// value type and typed accessors that return a distinct error for "not
// found" versus "wrong shape", per Design Note §9 of the specification.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a tagged node of the parameter tree. The zero Value is Null.
type Value struct {
	kind kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindList
	kindMap
)

func Null() Value                { return Value{kind: kindNull} }
func Bool(b bool) Value          { return Value{kind: kindBool, b: b} }
func Int(i int64) Value          { return Value{kind: kindInt, i: i} }
func Float(f float64) Value      { return Value{kind: kindFloat, f: f} }
func String(s string) Value      { return Value{kind: kindString, s: s} }
func List(items []Value) Value   { return Value{kind: kindList, list: items} }
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: kindMap, m: m}
}

func (v Value) IsNull() bool   { return v.kind == kindNull }
func (v Value) IsMap() bool    { return v.kind == kindMap }
func (v Value) IsList() bool   { return v.kind == kindList }
func (v Value) IsString() bool { return v.kind == kindString }

// NotFoundError is returned when a dotted path does not resolve to any node.
type NotFoundError struct{ Path string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("key not found: %s", e.Path) }

// TypeMismatchError is returned when a dotted path resolves to a node of an
// unexpected kind (e.g. a map accessed as a string).
type TypeMismatchError struct {
	Path     string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("key %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

func (v Value) kindName() string {
	switch v.kind {
	case kindNull:
		return "null"
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindString:
		return "string"
	case kindList:
		return "list"
	case kindMap:
		return "map"
	default:
		return "unknown"
	}
}

// splitPath splits a dotted key path, e.g. "parameters.components.argocd.url".
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// At walks a dotted path from v, returning NotFoundError if any segment is
// missing. Intermediate list indices are not supported by dotted paths;
// use Index on the resolved list Value instead.
func (v Value) At(path string) (Value, error) {
	cur := v
	var walked []string
	for _, seg := range splitPath(path) {
		walked = append(walked, seg)
		if !cur.IsMap() {
			return Value{}, &NotFoundError{Path: strings.Join(walked, ".")}
		}
		next, ok := cur.m[seg]
		if !ok {
			return Value{}, &NotFoundError{Path: strings.Join(walked, ".")}
		}
		cur = next
	}
	return cur, nil
}

// Index returns the i-th element of a list Value.
func (v Value) Index(i int) (Value, error) {
	if !v.IsList() {
		return Value{}, &TypeMismatchError{Path: "[" + strconv.Itoa(i) + "]", Expected: "list", Got: v.kindName()}
	}
	if i < 0 || i >= len(v.list) {
		return Value{}, &NotFoundError{Path: fmt.Sprintf("[%d]", i)}
	}
	return v.list[i], nil
}

// GetStringAt resolves path and requires the result to be a string.
func (v Value) GetStringAt(path string) (string, error) {
	node, err := v.At(path)
	if err != nil {
		return "", err
	}
	if node.kind != kindString {
		return "", &TypeMismatchError{Path: path, Expected: "string", Got: node.kindName()}
	}
	return node.s, nil
}

// GetStringAtOr resolves path as a string, returning def if the path is
// absent. A type mismatch is still an error.
func (v Value) GetStringAtOr(path, def string) (string, error) {
	s, err := v.GetStringAt(path)
	if err != nil {
		var nf *NotFoundError
		if asNotFound(err, &nf) {
			return def, nil
		}
		return "", err
	}
	return s, nil
}

func asNotFound(err error, target **NotFoundError) bool {
	if nf, ok := err.(*NotFoundError); ok {
		*target = nf
		return true
	}
	return false
}

// GetBoolAt resolves path and requires the result to be a bool.
func (v Value) GetBoolAt(path string) (bool, error) {
	node, err := v.At(path)
	if err != nil {
		return false, err
	}
	if node.kind != kindBool {
		return false, &TypeMismatchError{Path: path, Expected: "bool", Got: node.kindName()}
	}
	return node.b, nil
}

// GetBoolAtOr resolves path as a bool, returning def if the path is absent.
// A type mismatch is still an error.
func (v Value) GetBoolAtOr(path string, def bool) (bool, error) {
	b, err := v.GetBoolAt(path)
	if err != nil {
		var nf *NotFoundError
		if asNotFound(err, &nf) {
			return def, nil
		}
		return false, err
	}
	return b, nil
}

// GetMapAt resolves path and requires the result to be a map, returned as a
// Value wrapping it (callers can then use .Keys()/.At() further).
func (v Value) GetMapAt(path string) (Value, error) {
	node, err := v.At(path)
	if err != nil {
		return Value{}, err
	}
	if node.kind != kindMap {
		return Value{}, &TypeMismatchError{Path: path, Expected: "map", Got: node.kindName()}
	}
	return node, nil
}

// GetListAt resolves path and requires the result to be a list.
func (v Value) GetListAt(path string) ([]Value, error) {
	node, err := v.At(path)
	if err != nil {
		return nil, err
	}
	if node.kind != kindList {
		return nil, &TypeMismatchError{Path: path, Expected: "list", Got: node.kindName()}
	}
	return node.list, nil
}

// Keys returns the sorted keys of a map Value, or nil if v is not a map.
func (v Value) Keys() []string {
	if !v.IsMap() {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsString returns the Go representation of a scalar Value.
func (v Value) AsString() string {
	switch v.kind {
	case kindString:
		return v.s
	case kindBool:
		return strconv.FormatBool(v.b)
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case kindNull:
		return ""
	default:
		return ""
	}
}

// Raw converts a Value tree into plain Go interface{} data (map[string]any,
// []any, or scalars), the shape produced by yaml.Unmarshal, for interop with
// libraries that expect untyped YAML/JSON data (e.g. the evaluator adapter).
func (v Value) Raw() interface{} {
	switch v.kind {
	case kindNull:
		return nil
	case kindBool:
		return v.b
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	case kindString:
		return v.s
	case kindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Raw()
		}
		return out
	case kindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, item := range v.m {
			out[k] = item.Raw()
		}
		return out
	default:
		return nil
	}
}

// FromRaw builds a Value tree from untyped data as produced by
// yaml.Unmarshal(&out) into an interface{} (map[string]interface{} or
// map[interface{}]interface{}, []interface{}, and scalars).
func FromRaw(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromRaw(item)
		}
		return List(items)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromRaw(item)
		}
		return Map(m)
	case map[interface{}]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[fmt.Sprintf("%v", k)] = FromRaw(item)
		}
		return Map(m)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Merge overlays "over" onto "base": maps are merged key by key recursively,
// any other kind (including lists) is replaced wholesale by "over" when
// "over" is not null. This mirrors the class-hierarchy evaluator's reclass
// style deep-merge semantics for dict values.
func Merge(base, over Value) Value {
	if over.IsNull() {
		return base
	}
	if base.IsMap() && over.IsMap() {
		merged := make(map[string]Value, len(base.m)+len(over.m))
		for k, v := range base.m {
			merged[k] = v
		}
		for k, v := range over.m {
			if existing, ok := merged[k]; ok {
				merged[k] = Merge(existing, v)
			} else {
				merged[k] = v
			}
		}
		return Map(merged)
	}
	return over
}
