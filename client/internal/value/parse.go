package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTrailingData is returned when a document holds more than one value.
var ErrTrailingData = errors.New("value: trailing data after document")

// Parse decodes data into a typed tree.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

// ParseObject decodes data and requires the top-level value to be an object.
// A top-level link placeholder is returned as its underlying object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Object:
		return t, nil
	case *Link:
		return t.raw, nil
	default:
		return nil, fmt.Errorf("value: expected object, got %T", v)
	}
}

// FromAny converts an arbitrary Go value into a tree by way of its JSON form.
func FromAny(v any) (Value, error) {
	if tv, ok := v.(Value); ok {
		return tv, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// DecodeInto unmarshals v into dst by way of its JSON form.
func DecodeInto(v Value, dst any) error {
	b, err := marshalNode(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("value: unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return Scalar{raw: json.RawMessage(t.String())}, nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null, nil
	default:
		return nil, fmt.Errorf("value: unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("value: object key is %T", tok)
		}
		v, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // '}'
		return nil, err
	}
	if link, ok := asLink(obj); ok {
		return link, nil
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	arr := &Array{}
	for dec.More() {
		v, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr.Items = append(arr.Items, v)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return nil, err
	}
	return arr, nil
}

// asLink classifies obj as a link placeholder when its sys.type is "Link".
func asLink(obj *Object) (*Link, bool) {
	sys, ok := obj.fields["sys"].(*Object)
	if !ok {
		return nil, false
	}
	t, ok := sys.fields["type"].(Scalar)
	if !ok {
		return nil, false
	}
	if s, _ := t.String(); s != LinkType {
		return nil, false
	}
	return &Link{
		LinkType: sys.Str("linkType"),
		ID:       sys.Str("id"),
		raw:      obj,
	}, true
}
