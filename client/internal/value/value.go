// Package value is a typed model of the JSON documents exchanged with the
// content management API.
//
// A document is parsed once into a tree of Value nodes. Objects whose "sys"
// block has type "Link" are classified as *Link while parsing, so code that
// walks a record can switch on the node type instead of probing maps. A Link
// that has been resolved against a response's records is replaced by a *Ref
// that points at the wrapped target; graphs built this way may be cyclic and
// still marshal finitely because a Ref encodes as its link stub.
package value

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// LinkType is the sys.type value that marks a link placeholder.
const LinkType = "Link"

// Value is one node of a parsed document.
type Value interface {
	json.Marshaler
	isValue()
}

// Object is a JSON object that keeps its key order.
type Object struct {
	keys   []string
	fields map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

func (*Object) isValue() {}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Set stores v under key. Existing keys keep their position.
func (o *Object) Set(key string, v Value) {
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Clone returns a shallow copy: child nodes are shared.
func (o *Object) Clone() *Object {
	c := &Object{
		keys:   append([]string(nil), o.keys...),
		fields: make(map[string]Value, len(o.fields)),
	}
	for k, v := range o.fields {
		c.fields[k] = v
	}
	return c
}

// Lookup follows a path of object keys.
func (o *Object) Lookup(path ...string) (Value, bool) {
	var cur Value = o
	for _, key := range path {
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		if cur, ok = obj.fields[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Str returns the string at path, or "" when absent or not a string.
func (o *Object) Str(path ...string) string {
	v, ok := o.Lookup(path...)
	if !ok {
		return ""
	}
	s, ok := v.(Scalar)
	if !ok {
		return ""
	}
	str, _ := s.String()
	return str
}

// Target returns the wrapped target of the Ref stored under key, or nil.
func (o *Object) Target(key string) any {
	if ref, ok := o.fields[key].(*Ref); ok {
		return ref.Target
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNode(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Array is a JSON array.
type Array struct {
	Items []Value
}

func (*Array) isValue() {}

// MarshalJSON implements json.Marshaler.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a.Items {
		if i > 0 {
			buf.WriteByte(',')
		}
		vb, err := marshalNode(v)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Scalar is a string, number, boolean or null literal kept in its raw form.
type Scalar struct {
	raw json.RawMessage
}

func (Scalar) isValue() {}

// Null is the JSON null literal.
var Null = Scalar{raw: json.RawMessage("null")}

// String returns a Scalar holding s.
func String(s string) Scalar {
	b, _ := json.Marshal(s)
	return Scalar{raw: b}
}

// Int returns a Scalar holding n.
func Int(n int) Scalar {
	return Scalar{raw: json.RawMessage(strconv.Itoa(n))}
}

// Bool returns a Scalar holding b.
func Bool(b bool) Scalar {
	if b {
		return Scalar{raw: json.RawMessage("true")}
	}
	return Scalar{raw: json.RawMessage("false")}
}

// Raw returns the literal as it appeared in the document.
func (s Scalar) Raw() json.RawMessage { return s.raw }

// IsNull reports whether s is the null literal.
func (s Scalar) IsNull() bool { return len(s.raw) == 0 || string(s.raw) == "null" }

// String returns the decoded string when s is a JSON string.
func (s Scalar) String() (string, bool) {
	if len(s.raw) == 0 || s.raw[0] != '"' {
		return "", false
	}
	var out string
	if err := json.Unmarshal(s.raw, &out); err != nil {
		return "", false
	}
	return out, true
}

// Int returns the integer value when s is an integral number.
func (s Scalar) Int() (int, bool) {
	n, err := strconv.Atoi(string(s.raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// Link is a placeholder {sys:{type:"Link", linkType, id}} for another record.
type Link struct {
	LinkType string
	ID       string
	raw      *Object
}

func (*Link) isValue() {}

// NewLink builds a link placeholder.
func NewLink(linkType, id string) *Link {
	sys := NewObject()
	sys.Set("type", String(LinkType))
	sys.Set("linkType", String(linkType))
	sys.Set("id", String(id))
	raw := NewObject()
	raw.Set("sys", sys)
	return &Link{LinkType: linkType, ID: id, raw: raw}
}

// Object returns the link as it appeared in the document.
func (l *Link) Object() *Object { return l.raw }

// MarshalJSON implements json.Marshaler.
func (l *Link) MarshalJSON() ([]byte, error) {
	if l.raw == nil {
		return NewLink(l.LinkType, l.ID).raw.MarshalJSON()
	}
	return l.raw.MarshalJSON()
}

// Ref is a link that has been resolved to Target.
type Ref struct {
	Link   *Link
	Target any
}

func (*Ref) isValue() {}

// MarshalJSON encodes the link stub, never the target.
func (r *Ref) MarshalJSON() ([]byte, error) {
	return r.Link.MarshalJSON()
}

func marshalNode(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}
